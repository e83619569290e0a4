package credentials

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/iksnae/corebos/internal"
)

// Entry is a record together with the node name it was resolved from.
type Entry struct {
	Name   string
	Record Record
}

// TLSMaterial holds the PEM blobs referenced by a GRPCRecord.
type TLSMaterial struct {
	CACert     []byte
	ClientCert []byte
	ClientKey  []byte
}

type config struct {
	DefaultSavedNode string `json:"default_saved_node"`
}

// Store reads and writes node credentials under the home directory.
type Store struct {
	paths internal.HomePaths
}

// NewStore creates a store rooted at paths.Base
func NewStore(paths internal.HomePaths) *Store {
	return &Store{paths: paths}
}

// Paths returns the home paths the store writes to
func (s *Store) Paths() internal.HomePaths {
	return s.paths
}

// Put saves record under savedNode. The record is validated before anything
// touches the disk. The default pointer is only rewritten when isDefault is set.
func (s *Store) Put(record Record, savedNode string, isDefault bool) error {
	if record == nil {
		return internal.NewError(internal.KindInvalidArgument, "ExpectedCredentialsToSave", nil)
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if err := ValidateNodeName(savedNode); err != nil {
		return err
	}

	internal.EnsureDir(s.paths.Base)
	internal.EnsureDir(s.paths.NodeDir(savedNode))

	data, err := marshalRecord(record)
	if err != nil {
		return internal.NewError(internal.KindWriteFailed, "UnexpectedErrorWritingCredentialsFile", err)
	}
	if err := internal.WriteFileAtomic(s.paths.CredentialsPath(savedNode), data, 0600); err != nil {
		return internal.NewError(internal.KindWriteFailed, "UnexpectedErrorWritingCredentialsFile", err)
	}
	internal.LogDebug("Wrote %s credentials for %s", record.Transport(), savedNode)

	if !isDefault {
		return nil
	}

	data, err = json.MarshalIndent(config{DefaultSavedNode: savedNode}, "", "  ")
	if err != nil {
		return internal.NewError(internal.KindWriteFailed, "UnexpectedErrorWritingConfigFile", err)
	}
	if err := internal.WriteFileAtomic(s.paths.ConfigPath(), data, 0600); err != nil {
		return internal.NewError(internal.KindWriteFailed, "UnexpectedErrorWritingConfigFile", err)
	}
	internal.LogDebug("Default node is now %s", savedNode)

	return nil
}

// Get loads the credentials of name, or of the default node when name is empty.
func (s *Store) Get(name string) (Entry, error) {
	if name == "" {
		def, err := s.DefaultNode()
		if err != nil {
			return Entry{}, err
		}
		name = def
	}

	path := s.paths.CredentialsPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, internal.Errorf(internal.KindMissingCredentials, "", "no credentials saved for %q", name)
		}
		return Entry{}, internal.NewError(internal.KindMissingCredentials, "",
			&internal.StorageError{Path: path, Op: "read", Err: err})
	}

	record, err := unmarshalRecord(data)
	if err != nil {
		if internal.KindOf(err) != internal.KindUnknown {
			return Entry{}, err
		}
		return Entry{}, internal.NewError(internal.KindCorruptCredentials, "",
			&internal.ParseError{Source: "credentials", Key: path, Err: err})
	}

	return Entry{Name: name, Record: record}, nil
}

// DefaultNode reads the default node name from config.json
func (s *Store) DefaultNode() (string, error) {
	path := s.paths.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", internal.NewError(internal.KindMissingConfig, "",
			&internal.StorageError{Path: path, Op: "read", Err: err})
	}

	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", internal.NewError(internal.KindCorruptConfig, "",
			&internal.ParseError{Source: "config", Key: path, Err: err})
	}
	if cfg.DefaultSavedNode == "" {
		return "", internal.NewError(internal.KindMissingDefaultPointer, "", nil)
	}

	return cfg.DefaultSavedNode, nil
}

// SavedNodes lists the nodes that have a credentials file
func (s *Store) SavedNodes() ([]string, error) {
	return s.paths.FindSavedNodes()
}

// LoadTLS reads the PEM files a gRPC record points at.
func (s *Store) LoadTLS(record GRPCRecord) (TLSMaterial, error) {
	var m TLSMaterial
	files := []struct {
		detail string
		path   string
		dst    *[]byte
	}{
		{"ca_cert", record.CACertPath, &m.CACert},
		{"client_cert", record.ClientCertPath, &m.ClientCert},
		{"client_key", record.ClientKeyPath, &m.ClientKey},
	}

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err == nil && len(data) == 0 {
			err = errors.New("file is empty")
		}
		if err != nil {
			return TLSMaterial{}, &internal.Error{
				Kind:   internal.KindUnreadableCertFile,
				Detail: f.detail,
				Err:    &internal.StorageError{Path: f.path, Op: "read", Err: err},
			}
		}
		*f.dst = data
	}

	return m, nil
}

// ValidateNodeName rejects names that cannot be used as a directory name.
func ValidateNodeName(name string) error {
	if name == "" {
		return internal.NewError(internal.KindInvalidArgument, "ExpectedSavedNodeNameForSavingCredentials", nil)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return internal.Errorf(internal.KindInvalidArgument, "ExpectedSavedNodeNameForSavingCredentials",
			"%q is not a valid node name", name)
	}
	return nil
}
