package lnsocket

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
)

// ErrClosed is returned for calls on a closed client.
var ErrClosed = errors.New("lnsocket: connection closed")

// RPCError is an {"error":{...}} reply from the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return "rpc error: " + e.Message
}

type request struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
	Rune   string      `json:"rune"`
	ID     string      `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Client is an authenticated commando connection to one node.
type Client struct {
	conn    net.Conn
	machine *Machine

	mu     sync.Mutex // one request in flight
	nextID atomic.Uint64
	closed atomic.Bool
}

// Dial connects to addr, checks the node's static key matches pubkeyHex and
// exchanges init messages. A fresh local key is generated per connection.
func Dial(ctx context.Context, pubkeyHex, addr string) (*Client, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, fmt.Errorf("lnsocket: public key: %w", err)
	}
	remote, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("lnsocket: public key: %w", err)
	}
	local, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, err := newClient(ctx, conn, local, remote)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(ctx context.Context, conn net.Conn, local *btcec.PrivateKey, remote *btcec.PublicKey) (*Client, error) {
	stop := watchContext(ctx, conn)
	defer stop()

	machine, err := Initiate(conn, local, remote)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn, machine: machine}
	if err := c.machine.WriteMessage(encodeInit()); err != nil {
		return nil, fmt.Errorf("lnsocket: send init: %w", err)
	}
	if err := c.awaitInit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) awaitInit() error {
	for {
		msg, err := c.machine.ReadMessage()
		if err != nil {
			return fmt.Errorf("lnsocket: read init: %w", err)
		}
		typ, err := MessageType(msg)
		if err != nil {
			return err
		}
		switch typ {
		case MsgInit:
			return nil
		case MsgPing:
			if err := c.pong(msg); err != nil {
				return err
			}
		}
	}
}

func (c *Client) pong(ping []byte) error {
	reply, err := encodePong(ping)
	if err != nil || reply == nil {
		return err
	}
	return c.machine.WriteMessage(reply)
}

// Call issues one commando RPC and waits for its terminal reply. A node error
// comes back as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params interface{}, commandoRune string) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := watchContext(ctx, c.conn)
	defer stop()

	if params == nil {
		params = []interface{}{}
	}
	id := c.nextID.Add(1)
	body, err := json.Marshal(request{Method: method, Params: params, Rune: commandoRune, ID: "corebos:" + uuid.NewString()})
	if err != nil {
		return nil, err
	}
	if err := c.machine.WriteMessage(encodeCommandoRequest(id, body)); err != nil {
		return nil, c.wrapIOError(ctx, err)
	}

	var reply []byte
	for {
		msg, err := c.machine.ReadMessage()
		if err != nil {
			return nil, c.wrapIOError(ctx, err)
		}
		typ, err := MessageType(msg)
		if err != nil {
			return nil, err
		}

		switch typ {
		case MsgPing:
			if err := c.pong(msg); err != nil {
				return nil, c.wrapIOError(ctx, err)
			}
			continue
		case MsgCommandoContinue, MsgCommandoReply:
		default:
			continue
		}

		frame, err := decodeCommando(msg)
		if err != nil {
			return nil, err
		}
		if frame.ID != id {
			continue
		}
		reply = append(reply, frame.Body...)
		if frame.Type == MsgCommandoReply {
			break
		}
	}

	var resp response
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("lnsocket: decode %s reply: %w", method, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (c *Client) wrapIOError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Close tears down the connection. Calling it again is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// watchContext applies ctx's deadline to conn and interrupts blocked I/O when
// ctx is cancelled. The returned func clears both.
func watchContext(ctx context.Context, conn net.Conn) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stopAfter := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	return func() {
		stopAfter()
		_ = conn.SetDeadline(time.Time{})
	}
}
