// Package lightningtest provides in-memory sessions and connectors for
// exercising code that talks to nodes.
package lightningtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/lightning"
)

// FakeSession is a scripted lightning.Session. A failing call poisons it the
// same way a real session is poisoned.
type FakeSession struct {
	NodeName string
	Info     lightning.NodeInfo
	Funds    lightning.Funds
	Addrs    map[lightning.AddressType]string
	Err      error

	mu        sync.Mutex
	destroyed bool
	calls     []string
}

var _ lightning.Session = (*FakeSession)(nil)

func (f *FakeSession) Name() string { return f.NodeName }

func (f *FakeSession) call(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return internal.Errorf(internal.KindSessionDestroyed, "", "%s: session to %s is destroyed", method, f.NodeName)
	}
	f.calls = append(f.calls, method)
	if f.Err != nil {
		f.destroyed = true
		return &internal.Error{Kind: internal.KindRPCFailed, Detail: method + " on " + f.NodeName, Err: f.Err}
	}
	return nil
}

func (f *FakeSession) GetInfo(context.Context) (lightning.NodeInfo, error) {
	if err := f.call("getinfo"); err != nil {
		return lightning.NodeInfo{}, err
	}
	return f.Info, nil
}

func (f *FakeSession) ListFunds(context.Context) (lightning.Funds, error) {
	if err := f.call("listfunds"); err != nil {
		return lightning.Funds{}, err
	}
	return f.Funds, nil
}

func (f *FakeSession) NewAddr(_ context.Context, t lightning.AddressType) (string, error) {
	if err := f.call("newaddr"); err != nil {
		return "", err
	}
	addr, ok := f.Addrs[t]
	if !ok {
		return "", fmt.Errorf("no %s address scripted", t)
	}
	return addr, nil
}

func (f *FakeSession) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}

func (f *FakeSession) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// Calls lists the methods that reached the session, in order.
func (f *FakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeConnector hands out FakeSessions by name. The empty name resolves to
// Default.
type FakeConnector struct {
	Default  string
	Sessions map[string]*FakeSession
	Errs     map[string]error
	// NoResolve leaves "" for Connect to resolve.
	NoResolve bool

	mu        sync.Mutex
	connected []string
}

var (
	_ lightning.Connector    = (*FakeConnector)(nil)
	_ lightning.NameResolver = (*FakeConnector)(nil)
)

func (c *FakeConnector) Connect(_ context.Context, name string) (lightning.Session, error) {
	if name == "" {
		if c.Default == "" {
			return nil, internal.NewError(internal.KindMissingConfig, "", nil)
		}
		name = c.Default
	}

	c.mu.Lock()
	c.connected = append(c.connected, name)
	c.mu.Unlock()

	if err, ok := c.Errs[name]; ok {
		return nil, &internal.Error{Kind: internal.KindConnectFailed, Detail: name, Err: err}
	}
	s, ok := c.Sessions[name]
	if !ok {
		return nil, internal.Errorf(internal.KindMissingCredentials, "", "no credentials for %s", name)
	}
	return s, nil
}

// ResolveName maps "" to Default. It is a no-op when NoResolve is set, which
// makes the connector behave like one that cannot resolve names up front.
func (c *FakeConnector) ResolveName(name string) (string, error) {
	if name != "" || c.NoResolve {
		return name, nil
	}
	if c.Default == "" {
		return "", internal.NewError(internal.KindMissingConfig, "", nil)
	}
	return c.Default, nil
}

// Connected lists the names passed to Connect after default resolution. The
// order follows completion, not request order.
func (c *FakeConnector) Connected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.connected...)
}
