package credentials

import (
	"errors"
	"strings"

	"github.com/iksnae/corebos/internal"
)

// Submission is what the operator entered in a connect flow.
type Submission struct {
	Record    Record
	SavedNode string
	IsDefault bool
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func existingFile(kind string) func(string) error {
	return func(s string) error {
		if err := required(s); err != nil {
			return err
		}
		if !fileExists(internal.ExpandPath(s)) {
			return errors.New("Expected valid path to " + kind + " file")
		}
		return nil
	}
}

// AskGRPC asks for the TLS material and socket of a gRPC node.
func AskGRPC(p internal.Prompter) (Submission, error) {
	caPath, err := p.Ask(internal.Question{Message: "Enter Path to ca.pem file", Name: "path", Validate: existingFile("ca.pem")})
	if err != nil {
		return Submission{}, err
	}
	certPath, err := p.Ask(internal.Question{Message: "Enter Path to client.pem file", Name: "path", Validate: existingFile("client.pem")})
	if err != nil {
		return Submission{}, err
	}
	keyPath, err := p.Ask(internal.Question{Message: "Enter Path to client-key.pem file", Name: "path", Validate: existingFile("client-key.pem")})
	if err != nil {
		return Submission{}, err
	}
	socket, err := p.Ask(internal.Question{Message: "Enter grpc socket (host:port)", Name: "socket", Validate: required})
	if err != nil {
		return Submission{}, err
	}

	record := GRPCRecord{
		CACertPath:     internal.ExpandPath(caPath),
		ClientCertPath: internal.ExpandPath(certPath),
		ClientKeyPath:  internal.ExpandPath(keyPath),
		Address:        socket,
	}
	return askPlacement(p, record)
}

// AskRune asks for the public key, socket and commando rune of a node.
func AskRune(p internal.Prompter) (Submission, error) {
	pubkey, err := p.Ask(internal.Question{
		Message: "Enter public key",
		Name:    "pubkey",
		Validate: func(s string) error {
			if err := required(s); err != nil {
				return err
			}
			if !IsPublicKey(s) {
				return errors.New("Expected valid public key")
			}
			return nil
		},
	})
	if err != nil {
		return Submission{}, err
	}
	socket, err := p.Ask(internal.Question{Message: "Enter socket", Name: "socket", Validate: required})
	if err != nil {
		return Submission{}, err
	}
	commandoRune, err := p.Ask(internal.Question{Message: "Enter commando rune", Name: "rune", Secret: true, Validate: required})
	if err != nil {
		return Submission{}, err
	}

	return askPlacement(p, RuneRecord{PublicKey: pubkey, Rune: commandoRune, Address: socket})
}

func askPlacement(p internal.Prompter, record Record) (Submission, error) {
	name, err := p.Ask(internal.Question{
		Message: "Enter a saved node name (can be one word random lowercase)",
		Name:    "name",
		Default: DefaultNodeName,
		Validate: func(s string) error {
			return ValidateNodeName(strings.ToLower(s))
		},
	})
	if err != nil {
		return Submission{}, err
	}

	isDefault, err := p.Confirm(internal.Question{Message: "Is this the default node?", Name: "ok", Default: "y"})
	if err != nil {
		return Submission{}, err
	}

	return Submission{Record: record, SavedNode: strings.ToLower(name), IsDefault: isDefault}, nil
}
