// Package chain creates on-chain deposit addresses and payment URIs.
package chain

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/mdp/qrterminal/v3"
)

// Formats accepted by --format, mapped to the node's address types.
var formats = map[string]lightning.AddressType{
	"p2wpkh":  lightning.AddressBech32,
	"np2wpkh": lightning.AddressP2SHSegwit,
	"p2tr":    lightning.AddressP2TR,
}

// FormatNames lists the accepted formats, default first.
var FormatNames = []string{"p2wpkh", "np2wpkh", "p2tr"}

// Deposit is a fresh address with its payment URI and rendered QR code.
type Deposit struct {
	Address string `json:"deposit_address" yaml:"deposit_address"`
	URI     string `json:"deposit_uri" yaml:"deposit_uri"`
	QR      string `json:"deposit_qr,omitempty" yaml:"-"`
}

// AddressType maps a format name to an address type. The empty format is
// p2wpkh.
func AddressType(format string) (lightning.AddressType, error) {
	if format == "" {
		return lightning.AddressBech32, nil
	}
	t, ok := formats[format]
	if !ok {
		return "", internal.Errorf(internal.KindInvalidArgument, "ExpectedKnownAddressFormat", "unsupported format %q, use one of %v", format, FormatNames)
	}
	return t, nil
}

// PaymentURI builds a BIP21 URI requesting sats.
func PaymentURI(address string, sats uint64) string {
	if sats == 0 {
		return fmt.Sprintf("bitcoin:%s?amount=0", address)
	}
	return fmt.Sprintf("bitcoin:%s?amount=%d.%08d", address, sats/1e8, sats%1e8)
}

// WriteQR renders text as a half-block QR code.
func WriteQR(w io.Writer, text string) {
	qrterminal.GenerateHalfBlock(text, qrterminal.L, w)
}

// GetDeposit asks s for a new address of the given format.
func GetDeposit(ctx context.Context, s lightning.Session, format string, sats uint64) (Deposit, error) {
	t, err := AddressType(format)
	if err != nil {
		return Deposit{}, err
	}

	addr, err := s.NewAddr(ctx, t)
	if err != nil {
		return Deposit{}, err
	}

	uri := PaymentURI(addr, sats)
	var qr bytes.Buffer
	WriteQR(&qr, uri)

	return Deposit{Address: addr, URI: uri, QR: qr.String()}, nil
}
