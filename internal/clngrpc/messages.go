package clngrpc

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// GetinfoRequest has no fields.
type GetinfoRequest struct{}

func (*GetinfoRequest) marshalWire() []byte          { return nil }
func (*GetinfoRequest) unmarshalWire(b []byte) error { _, err := parseFields(b); return err }

// GetinfoResponse is the subset of cln.GetinfoResponse corebos reads.
type GetinfoResponse struct {
	ID                  []byte
	Alias               string
	Color               []byte
	NumPeers            uint32
	NumPendingChannels  uint32
	NumActiveChannels   uint32
	NumInactiveChannels uint32
	Version             string
	LightningDir        string
	Blockheight         uint32
	Network             string
}

func (r *GetinfoResponse) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, r.ID)
	b = appendString(b, 2, r.Alias)
	b = appendBytes(b, 3, r.Color)
	b = appendVarint(b, 4, uint64(r.NumPeers))
	b = appendVarint(b, 5, uint64(r.NumPendingChannels))
	b = appendVarint(b, 6, uint64(r.NumActiveChannels))
	b = appendVarint(b, 7, uint64(r.NumInactiveChannels))
	b = appendString(b, 8, r.Version)
	b = appendString(b, 9, r.LightningDir)
	b = appendVarint(b, 11, uint64(r.Blockheight))
	b = appendString(b, 12, r.Network)
	return b
}

func (r *GetinfoResponse) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case 1:
			r.ID = append([]byte(nil), f.bytes...)
		case 2:
			r.Alias = string(f.bytes)
		case 3:
			r.Color = append([]byte(nil), f.bytes...)
		case 4:
			r.NumPeers = uint32(f.varint)
		case 5:
			r.NumPendingChannels = uint32(f.varint)
		case 6:
			r.NumActiveChannels = uint32(f.varint)
		case 7:
			r.NumInactiveChannels = uint32(f.varint)
		case 8:
			r.Version = string(f.bytes)
		case 9:
			r.LightningDir = string(f.bytes)
		case 11:
			r.Blockheight = uint32(f.varint)
		case 12:
			r.Network = string(f.bytes)
		}
	}
	return nil
}

// ListfundsRequest can ask for spent outputs as well.
type ListfundsRequest struct {
	Spent bool
}

func (r *ListfundsRequest) marshalWire() []byte {
	return appendBool(nil, 1, r.Spent)
}

func (r *ListfundsRequest) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.num == 1 {
			r.Spent = f.varint != 0
		}
	}
	return nil
}

// OutputStatus mirrors cln.ListfundsOutputs.ListfundsOutputsStatus.
type OutputStatus int32

const (
	OutputUnconfirmed OutputStatus = 0
	OutputConfirmed   OutputStatus = 1
	OutputSpent       OutputStatus = 2
	OutputImmature    OutputStatus = 3
)

var outputStatusNames = map[OutputStatus]string{
	OutputUnconfirmed: "unconfirmed",
	OutputConfirmed:   "confirmed",
	OutputSpent:       "spent",
	OutputImmature:    "immature",
}

// String returns the status as the JSON-RPC interface spells it.
func (s OutputStatus) String() string {
	if name, ok := outputStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ChannelState mirrors cln.ChannelState.
type ChannelState int32

var channelStateNames = []string{
	"OPENINGD",
	"CHANNELD_AWAITING_LOCKIN",
	"CHANNELD_NORMAL",
	"CHANNELD_SHUTTING_DOWN",
	"CLOSINGD_SIGEXCHANGE",
	"CLOSINGD_COMPLETE",
	"AWAITING_UNILATERAL",
	"FUNDING_SPEND_SEEN",
	"ONCHAIN",
	"DUALOPEND_OPEN_INIT",
	"DUALOPEND_AWAITING_LOCKIN",
	"CHANNELD_AWAITING_SPLICE",
	"DUALOPEND_OPEN_COMMITTED",
	"DUALOPEND_OPEN_COMMIT_READY",
}

const ChannelNormal ChannelState = 2

// String returns the state as the JSON-RPC interface spells it.
func (s ChannelState) String() string {
	if s >= 0 && int(s) < len(channelStateNames) {
		return channelStateNames[s]
	}
	return "UNKNOWN"
}

// ListfundsOutput is one on-chain output.
type ListfundsOutput struct {
	Txid       []byte
	Output     uint32
	AmountMsat uint64
	Address    string
	Status     OutputStatus
}

func (o *ListfundsOutput) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, o.Txid)
	b = appendVarint(b, 2, uint64(o.Output))
	b = appendAmount(b, 3, o.AmountMsat)
	b = appendString(b, 5, o.Address)
	b = appendVarint(b, 7, uint64(o.Status))
	return b
}

func (o *ListfundsOutput) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case 1:
			o.Txid = append([]byte(nil), f.bytes...)
		case 2:
			o.Output = uint32(f.varint)
		case 3:
			if o.AmountMsat, err = parseAmount(f.bytes); err != nil {
				return err
			}
		case 5:
			o.Address = string(f.bytes)
		case 7:
			o.Status = OutputStatus(f.varint)
		}
	}
	return nil
}

// ListfundsChannel is one channel's share of funds.
type ListfundsChannel struct {
	PeerID         []byte
	OurAmountMsat  uint64
	AmountMsat     uint64
	Connected      bool
	State          ChannelState
	ShortChannelID string
}

func (c *ListfundsChannel) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, c.PeerID)
	b = appendAmount(b, 2, c.OurAmountMsat)
	b = appendAmount(b, 3, c.AmountMsat)
	b = appendBool(b, 6, c.Connected)
	b = appendVarint(b, 7, uint64(c.State))
	b = appendString(b, 8, c.ShortChannelID)
	return b
}

func (c *ListfundsChannel) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case 1:
			c.PeerID = append([]byte(nil), f.bytes...)
		case 2:
			if c.OurAmountMsat, err = parseAmount(f.bytes); err != nil {
				return err
			}
		case 3:
			if c.AmountMsat, err = parseAmount(f.bytes); err != nil {
				return err
			}
		case 6:
			c.Connected = f.varint != 0
		case 7:
			c.State = ChannelState(f.varint)
		case 8:
			c.ShortChannelID = string(f.bytes)
		}
	}
	return nil
}

// ListfundsResponse lists outputs and channels.
type ListfundsResponse struct {
	Outputs  []ListfundsOutput
	Channels []ListfundsChannel
}

func (r *ListfundsResponse) marshalWire() []byte {
	var b []byte
	for i := range r.Outputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Outputs[i].marshalWire())
	}
	for i := range r.Channels {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Channels[i].marshalWire())
	}
	return b
}

func (r *ListfundsResponse) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case 1:
			var o ListfundsOutput
			if err := o.unmarshalWire(f.bytes); err != nil {
				return err
			}
			r.Outputs = append(r.Outputs, o)
		case 2:
			var c ListfundsChannel
			if err := c.unmarshalWire(f.bytes); err != nil {
				return err
			}
			r.Channels = append(r.Channels, c)
		}
	}
	return nil
}

// AddressType mirrors cln.NewaddrRequest.NewaddrAddresstype.
type AddressType int32

const (
	AddressBech32     AddressType = 0
	AddressP2SHSegwit AddressType = 1
	AddressAll        AddressType = 2
	AddressP2TR       AddressType = 3
)

// NewaddrRequest asks for a fresh deposit address.
type NewaddrRequest struct {
	AddressType AddressType
}

func (r *NewaddrRequest) marshalWire() []byte {
	// addresstype is optional in the schema, so an explicit zero is sent.
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(r.AddressType))
}

func (r *NewaddrRequest) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.num == 1 {
			r.AddressType = AddressType(f.varint)
		}
	}
	return nil
}

// NewaddrResponse carries the generated address.
type NewaddrResponse struct {
	Bech32     string
	P2SHSegwit string
	P2TR       string
}

func (r *NewaddrResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.Bech32)
	b = appendString(b, 2, r.P2SHSegwit)
	b = appendString(b, 3, r.P2TR)
	return b
}

func (r *NewaddrResponse) unmarshalWire(b []byte) error {
	fields, err := parseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case 1:
			r.Bech32 = string(f.bytes)
		case 2:
			r.P2SHSegwit = string(f.bytes)
		case 3:
			r.P2TR = string(f.bytes)
		}
	}
	return nil
}
