package lightning

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/clngrpc"
)

// CommandoConn is the rune-authenticated transport. *lnsocket.Client
// implements it.
type CommandoConn interface {
	Call(ctx context.Context, method string, params interface{}, commandoRune string) (json.RawMessage, error)
	Close() error
}

// NodeClient is the gRPC transport. *clngrpc.Client implements it.
type NodeClient interface {
	Getinfo(ctx context.Context) (*clngrpc.GetinfoResponse, error)
	ListFunds(ctx context.Context) (*clngrpc.ListfundsResponse, error)
	NewAddr(ctx context.Context, t clngrpc.AddressType) (*clngrpc.NewaddrResponse, error)
	Close() error
}

// guard tracks the destroyed state shared by both session kinds.
type guard struct {
	name      string
	mu        sync.Mutex
	destroyed bool
	release   func() error
}

func (g *guard) Name() string { return g.name }

func (g *guard) Destroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

func (g *guard) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return
	}
	g.destroyed = true
	if g.release != nil {
		if err := g.release(); err != nil {
			internal.LogDebug("Closing session to %s: %v", g.name, err)
		}
	}
	internal.LogDebug("Session to %s destroyed", g.name)
}

// call runs fn unless the session is destroyed. A failure destroys the session
// before the error is returned.
func (g *guard) call(method string, fn func() error) error {
	if g.Destroyed() {
		return internal.Errorf(internal.KindSessionDestroyed, "", "%s: session to %s is destroyed", method, g.name)
	}
	if err := fn(); err != nil {
		g.Destroy()
		return &internal.Error{
			Kind:   internal.KindRPCFailed,
			Detail: fmt.Sprintf("%s on %s", method, g.name),
			Err:    err,
		}
	}
	return nil
}

// runeSession issues commando calls with the saved rune.
type runeSession struct {
	guard
	conn CommandoConn
	rune string
}

func newRuneSession(name string, conn CommandoConn, commandoRune string) *runeSession {
	s := &runeSession{conn: conn, rune: commandoRune}
	s.name = name
	s.release = conn.Close
	return s
}

func (s *runeSession) rpc(ctx context.Context, method string, params interface{}, out interface{}) error {
	return s.call(method, func() error {
		raw, err := s.conn.Call(ctx, method, params, s.rune)
		if err != nil {
			return err
		}
		if len(raw) == 0 || string(raw) == "null" {
			return fmt.Errorf("empty %s result", method)
		}
		return json.Unmarshal(raw, out)
	})
}

func (s *runeSession) GetInfo(ctx context.Context) (NodeInfo, error) {
	var info NodeInfo
	if err := s.rpc(ctx, "getinfo", nil, &info); err != nil {
		return NodeInfo{}, err
	}
	return info, nil
}

func (s *runeSession) ListFunds(ctx context.Context) (Funds, error) {
	var funds Funds
	if err := s.rpc(ctx, "listfunds", nil, &funds); err != nil {
		return Funds{}, err
	}
	return funds, nil
}

func (s *runeSession) NewAddr(ctx context.Context, t AddressType) (string, error) {
	var addr string
	params := map[string]string{"addresstype": string(t)}
	err := s.call("newaddr", func() error {
		raw, err := s.conn.Call(ctx, "newaddr", params, s.rune)
		if err != nil {
			return err
		}
		var res map[string]string
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		if addr = res[string(t)]; addr == "" {
			return fmt.Errorf("newaddr returned no %s address", t)
		}
		return nil
	})
	return addr, err
}

// grpcSession wraps the gRPC client. It is poisoned after any failed call in
// the same way as the rune session.
type grpcSession struct {
	guard
	client NodeClient
}

func newGRPCSession(name string, client NodeClient) *grpcSession {
	s := &grpcSession{client: client}
	s.name = name
	s.release = client.Close
	return s
}

func (s *grpcSession) GetInfo(ctx context.Context) (NodeInfo, error) {
	var info NodeInfo
	err := s.call("getinfo", func() error {
		resp, err := s.client.Getinfo(ctx)
		if err != nil {
			return err
		}
		info = NodeInfo{
			PublicKey:           hex.EncodeToString(resp.ID),
			Alias:               resp.Alias,
			Color:               hex.EncodeToString(resp.Color),
			NumPeers:            resp.NumPeers,
			NumPendingChannels:  resp.NumPendingChannels,
			NumActiveChannels:   resp.NumActiveChannels,
			NumInactiveChannels: resp.NumInactiveChannels,
			Version:             resp.Version,
			Blockheight:         resp.Blockheight,
			Network:             resp.Network,
		}
		return nil
	})
	return info, err
}

func (s *grpcSession) ListFunds(ctx context.Context) (Funds, error) {
	var funds Funds
	err := s.call("listfunds", func() error {
		resp, err := s.client.ListFunds(ctx)
		if err != nil {
			return err
		}
		for _, o := range resp.Outputs {
			funds.Outputs = append(funds.Outputs, Output{AmountMsat: Msat(o.AmountMsat), Status: o.Status.String()})
		}
		for _, c := range resp.Channels {
			funds.Channels = append(funds.Channels, Channel{
				PeerID:        hex.EncodeToString(c.PeerID),
				OurAmountMsat: Msat(c.OurAmountMsat),
				AmountMsat:    Msat(c.AmountMsat),
				State:         c.State.String(),
				Connected:     c.Connected,
			})
		}
		return nil
	})
	return funds, err
}

var grpcAddressTypes = map[AddressType]clngrpc.AddressType{
	AddressBech32:     clngrpc.AddressBech32,
	AddressP2SHSegwit: clngrpc.AddressP2SHSegwit,
	AddressP2TR:       clngrpc.AddressP2TR,
}

func (s *grpcSession) NewAddr(ctx context.Context, t AddressType) (string, error) {
	wireType, ok := grpcAddressTypes[t]
	if !ok {
		return "", internal.Errorf(internal.KindInvalidArgument, "", "unsupported address type %q", t)
	}

	var addr string
	err := s.call("newaddr", func() error {
		resp, err := s.client.NewAddr(ctx, wireType)
		if err != nil {
			return err
		}
		switch t {
		case AddressP2TR:
			addr = resp.P2TR
		case AddressP2SHSegwit:
			addr = resp.P2SHSegwit
		default:
			addr = resp.Bech32
		}
		if addr == "" {
			return fmt.Errorf("newaddr returned no %s address", t)
		}
		return nil
	})
	return addr, err
}
