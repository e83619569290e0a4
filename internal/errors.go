package internal

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can match on it instead of on message text.
type Kind int

const (
	KindUnknown Kind = iota

	// Malformed or missing input.
	KindInvalidArgument
	KindInvalidPublicKey
	KindInvalidConnectCode
	KindMissingSender
	KindExpectedValidCaPath
	KindExpectedValidClientCertPath
	KindExpectedValidClientKeyPath
	KindInvalidCredentials

	// Missing or corrupt persisted state.
	KindMissingConfig
	KindCorruptConfig
	KindMissingDefaultPointer
	KindMissingCredentials
	KindCorruptCredentials
	KindIncompleteCredentials
	KindUnreadableCertFile

	// Transport and authentication.
	KindConnectFailed
	KindRPCFailed
	KindSessionDestroyed
	KindNoSessionsEstablished
	KindValidationFailed

	// Authorization.
	KindUnauthorized
	KindOperatorAlreadySet

	// Local write failures.
	KindWriteFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                     "Unknown",
	KindInvalidArgument:             "InvalidArgument",
	KindInvalidPublicKey:            "InvalidPublicKey",
	KindInvalidConnectCode:          "InvalidConnectCode",
	KindMissingSender:               "MissingSender",
	KindExpectedValidCaPath:         "ExpectedValidCaPathForSavingCredentials",
	KindExpectedValidClientCertPath: "ExpectedValidClientCertPathForSavingCredentials",
	KindExpectedValidClientKeyPath:  "ExpectedValidClientKeyPathForSavingCredentials",
	KindInvalidCredentials:          "InvalidCredentials",
	KindMissingConfig:               "MissingConfig",
	KindCorruptConfig:               "CorruptConfig",
	KindMissingDefaultPointer:       "MissingDefaultPointer",
	KindMissingCredentials:          "MissingCredentials",
	KindCorruptCredentials:          "CorruptCredentials",
	KindIncompleteCredentials:       "IncompleteCredentials",
	KindUnreadableCertFile:          "UnreadableCertFile",
	KindConnectFailed:               "ConnectFailed",
	KindRPCFailed:                   "RPCFailed",
	KindSessionDestroyed:            "SessionDestroyed",
	KindNoSessionsEstablished:       "NoSessionsEstablished",
	KindValidationFailed:            "ValidationFailed",
	KindUnauthorized:                "Unauthorized",
	KindOperatorAlreadySet:          "OperatorAlreadySet",
	KindWriteFailed:                 "WriteFailed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code returns the HTTP-style status class of the kind.
func (k Kind) Code() int {
	switch k {
	case KindUnauthorized, KindOperatorAlreadySet:
		return 401
	case KindConnectFailed, KindRPCFailed, KindSessionDestroyed, KindNoSessionsEstablished:
		return 503
	case KindValidationFailed, KindWriteFailed, KindUnknown:
		return 500
	default:
		return 400
	}
}

// Error is the structured error returned across package boundaries.
type Error struct {
	Kind   Kind
	Reason string // symbolic reason, defaults to Kind.String()
	Detail string
	Err    error
}

// NewError builds an Error of the given kind wrapping err, which may be nil.
func NewError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Errorf builds an Error whose detail is formatted from the arguments.
func Errorf(kind Kind, reason string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = e.Kind.String()
	}
	msg := fmt.Sprintf("[%d] %s", e.Kind.Code(), reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is a kind-only Error (see ErrKind) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == "" && t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// ErrKind returns a comparison target for errors.Is.
func ErrKind(k Kind) error {
	return &Error{Kind: k}
}

// KindOf returns the kind of the outermost Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StorageError represents errors accessing files under the home directory
type StorageError struct {
	Path string
	Op   string // "read", "write", "mkdir", "rename"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding a persisted file
type ParseError struct {
	Source string // "config", "credentials", "proxy"
	Key    string // file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
