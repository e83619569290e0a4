package credentials

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/iksnae/corebos/internal"
)

// Transport names the wire used to reach a node.
type Transport string

const (
	TransportGRPC     Transport = "grpc"
	TransportLNSocket Transport = "lnsocket"
)

// DefaultNodeName is offered when the operator is asked to name a node.
const DefaultNodeName = "coreln"

var publicKeyPattern = regexp.MustCompile(`(?i)^0[2-3][0-9A-F]{64}$`)

// IsPublicKey reports whether s is a compressed secp256k1 public key in hex.
func IsPublicKey(s string) bool {
	return publicKeyPattern.MatchString(s)
}

// Record is a saved node credential. It is either a GRPCRecord or a RuneRecord.
type Record interface {
	Transport() Transport
	Socket() string
	// Validate checks the record is complete enough to save.
	Validate() error
	// Complete checks the record read from disk has every required field.
	Complete() error
	isRecord()
}

// GRPCRecord authenticates with mutual TLS.
type GRPCRecord struct {
	CACertPath     string `json:"ca_cert_path"`
	ClientCertPath string `json:"client_cert_path"`
	ClientKeyPath  string `json:"client_key_path"`
	Address        string `json:"socket"`
}

func (GRPCRecord) Transport() Transport { return TransportGRPC }
func (r GRPCRecord) Socket() string     { return r.Address }
func (GRPCRecord) isRecord()            {}

func (r GRPCRecord) Validate() error {
	if !fileExists(r.CACertPath) {
		return internal.NewError(internal.KindExpectedValidCaPath, "", nil)
	}
	if !fileExists(r.ClientCertPath) {
		return internal.NewError(internal.KindExpectedValidClientCertPath, "", nil)
	}
	if !fileExists(r.ClientKeyPath) {
		return internal.NewError(internal.KindExpectedValidClientKeyPath, "", nil)
	}
	if r.Address == "" {
		return internal.NewError(internal.KindInvalidArgument, "ExpectedSocketForSavingCredentials", nil)
	}
	return nil
}

func (r GRPCRecord) Complete() error {
	switch {
	case r.CACertPath == "":
		return incomplete("ca_cert_path")
	case r.ClientCertPath == "":
		return incomplete("client_cert_path")
	case r.ClientKeyPath == "":
		return incomplete("client_key_path")
	case r.Address == "":
		return incomplete("socket")
	}
	return nil
}

// RuneRecord authenticates with a commando rune over the Lightning transport.
type RuneRecord struct {
	PublicKey string `json:"public_key"`
	Rune      string `json:"rune"`
	Address   string `json:"socket"`
}

func (RuneRecord) Transport() Transport { return TransportLNSocket }
func (r RuneRecord) Socket() string     { return r.Address }
func (RuneRecord) isRecord()            {}

func (r RuneRecord) Validate() error {
	if !IsPublicKey(r.PublicKey) {
		return internal.NewError(internal.KindInvalidPublicKey, "ExpectedPublicKeyForSavingLnSocketCredentials", nil)
	}
	if r.Rune == "" {
		return internal.NewError(internal.KindInvalidArgument, "ExpectedCommandoRuneForSavingLnSocketCredentials", nil)
	}
	if r.Address == "" {
		return internal.NewError(internal.KindInvalidArgument, "ExpectedSocketForSavingLnSocketCredentials", nil)
	}
	return nil
}

func (r RuneRecord) Complete() error {
	switch {
	case r.PublicKey == "":
		return incomplete("public_key")
	case r.Rune == "":
		return incomplete("rune")
	case r.Address == "":
		return incomplete("socket")
	}
	return nil
}

func incomplete(field string) error {
	return internal.Errorf(internal.KindIncompleteCredentials, "", "missing %s", field)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// fileRecord is the on-disk shape of credentials.json. Older files carry no
// transport tag.
type fileRecord struct {
	Transport      Transport `json:"transport,omitempty"`
	CACertPath     string    `json:"ca_cert_path,omitempty"`
	ClientCertPath string    `json:"client_cert_path,omitempty"`
	ClientKeyPath  string    `json:"client_key_path,omitempty"`
	PublicKey      string    `json:"public_key,omitempty"`
	Rune           string    `json:"rune,omitempty"`
	Socket         string    `json:"socket,omitempty"`
}

func marshalRecord(r Record) ([]byte, error) {
	f := fileRecord{Transport: r.Transport(), Socket: r.Socket()}
	switch rec := r.(type) {
	case GRPCRecord:
		f.CACertPath = rec.CACertPath
		f.ClientCertPath = rec.ClientCertPath
		f.ClientKeyPath = rec.ClientKeyPath
	case RuneRecord:
		f.PublicKey = rec.PublicKey
		f.Rune = rec.Rune
	}
	return json.MarshalIndent(f, "", "  ")
}

func unmarshalRecord(data []byte) (Record, error) {
	var f fileRecord
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	transport := f.Transport
	if transport == "" {
		switch {
		case f.PublicKey != "" || f.Rune != "":
			transport = TransportLNSocket
		case f.CACertPath != "" || f.ClientCertPath != "" || f.ClientKeyPath != "":
			transport = TransportGRPC
		default:
			return nil, internal.Errorf(internal.KindIncompleteCredentials, "", "cannot tell the transport of the saved credentials")
		}
	}

	var rec Record
	switch transport {
	case TransportGRPC:
		rec = GRPCRecord{
			CACertPath:     f.CACertPath,
			ClientCertPath: f.ClientCertPath,
			ClientKeyPath:  f.ClientKeyPath,
			Address:        f.Socket,
		}
	case TransportLNSocket:
		rec = RuneRecord{PublicKey: f.PublicKey, Rune: f.Rune, Address: f.Socket}
	default:
		return nil, internal.Errorf(internal.KindCorruptCredentials, "", "unknown transport %q", transport)
	}

	if err := rec.Complete(); err != nil {
		return nil, err
	}
	return rec, nil
}
