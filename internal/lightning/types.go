// Package lightning turns saved credentials into live node sessions and
// resolves the set of sessions a command runs against.
package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeInfo is the part of getinfo corebos shows.
type NodeInfo struct {
	PublicKey           string `json:"id" yaml:"id"`
	Alias               string `json:"alias" yaml:"alias"`
	Color               string `json:"color,omitempty" yaml:"color,omitempty"`
	NumPeers            uint32 `json:"num_peers" yaml:"num_peers"`
	NumPendingChannels  uint32 `json:"num_pending_channels" yaml:"num_pending_channels"`
	NumActiveChannels   uint32 `json:"num_active_channels" yaml:"num_active_channels"`
	NumInactiveChannels uint32 `json:"num_inactive_channels" yaml:"num_inactive_channels"`
	Version             string `json:"version" yaml:"version"`
	Blockheight         uint32 `json:"blockheight" yaml:"blockheight"`
	Network             string `json:"network" yaml:"network"`
}

// Output is an on-chain wallet output.
type Output struct {
	AmountMsat Msat   `json:"amount_msat"`
	Status     string `json:"status"`
}

// Channel is our side of one channel.
type Channel struct {
	PeerID        string `json:"peer_id"`
	OurAmountMsat Msat   `json:"our_amount_msat"`
	AmountMsat    Msat   `json:"amount_msat"`
	State         string `json:"state"`
	Connected     bool   `json:"connected"`
}

// Funds is the listfunds result.
type Funds struct {
	Outputs  []Output  `json:"outputs"`
	Channels []Channel `json:"channels"`
}

// AddressType selects the kind of deposit address newaddr returns.
type AddressType string

const (
	AddressBech32     AddressType = "bech32"
	AddressP2SHSegwit AddressType = "p2sh-segwit"
	AddressP2TR       AddressType = "p2tr"
)

// Session is a live, authenticated handle to one node. After Destroy, or
// after any failed call, every method returns a SessionDestroyed error without
// touching the network.
type Session interface {
	Name() string
	GetInfo(ctx context.Context) (NodeInfo, error)
	ListFunds(ctx context.Context) (Funds, error)
	NewAddr(ctx context.Context, t AddressType) (string, error)
	Destroy()
	Destroyed() bool
}

// Msat is a millisatoshi amount. Nodes report it as a number, as a string
// with an "msat" suffix, or as {"msat": n}.
type Msat uint64

func (m *Msat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = 0
		return nil
	}

	if strings.HasPrefix(s, "{") {
		var obj struct {
			Msat json.RawMessage `json:"msat"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.Msat == nil {
			return fmt.Errorf("amount object without msat: %s", s)
		}
		return m.UnmarshalJSON(obj.Msat)
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSuffix(str, "msat")
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid msat amount %s: %w", string(b), err)
	}
	*m = Msat(v)
	return nil
}

// Sats truncates to whole satoshis.
func (m Msat) Sats() uint64 {
	return uint64(m) / 1000
}
