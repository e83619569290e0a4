package lightning

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/clngrpc"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lnsocket"
)

// RuneDialer opens a commando connection for a rune record.
type RuneDialer func(ctx context.Context, rec credentials.RuneRecord) (CommandoConn, error)

// GRPCDialer opens a gRPC client for a record whose TLS files are loaded.
type GRPCDialer func(ctx context.Context, rec credentials.GRPCRecord, tls credentials.TLSMaterial) (NodeClient, error)

// Connector opens a session by node name. An empty name means the default node.
type Connector interface {
	Connect(ctx context.Context, name string) (Session, error)
}

// Factory builds sessions from saved credentials.
type Factory struct {
	store    *credentials.Store
	dialRune RuneDialer
	dialGRPC GRPCDialer
}

// FactoryOption customizes a Factory
type FactoryOption func(*Factory)

// WithRuneDialer replaces the commando transport
func WithRuneDialer(d RuneDialer) FactoryOption {
	return func(f *Factory) { f.dialRune = d }
}

// WithGRPCDialer replaces the gRPC transport
func WithGRPCDialer(d GRPCDialer) FactoryOption {
	return func(f *Factory) { f.dialGRPC = d }
}

// NewFactory creates a factory reading credentials from store
func NewFactory(store *credentials.Store, opts ...FactoryOption) *Factory {
	f := &Factory{store: store, dialRune: dialLNSocket, dialGRPC: dialCLNGRPC}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the credential store behind the factory
func (f *Factory) Store() *credentials.Store {
	return f.store
}

func dialLNSocket(ctx context.Context, rec credentials.RuneRecord) (CommandoConn, error) {
	return lnsocket.Dial(ctx, rec.PublicKey, rec.Address)
}

func dialCLNGRPC(_ context.Context, rec credentials.GRPCRecord, m credentials.TLSMaterial) (NodeClient, error) {
	cfg, err := clngrpc.TLSConfig(m.CACert, m.ClientCert, m.ClientKey, "")
	if err != nil {
		return nil, err
	}
	return clngrpc.Dial(rec.Address, cfg)
}

var _ NameResolver = (*Factory)(nil)

// ResolveName lowercases name and maps "" to the default node.
func (f *Factory) ResolveName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		return name, nil
	}
	return f.store.DefaultNode()
}

// Connect resolves the credentials of name and opens a session to the node.
func (f *Factory) Connect(ctx context.Context, name string) (Session, error) {
	entry, err := f.store.Get(name)
	if err != nil {
		if internal.KindOf(err) == internal.KindIncompleteCredentials {
			return nil, internal.NewError(internal.KindInvalidCredentials, "", err)
		}
		return nil, err
	}

	switch rec := entry.Record.(type) {
	case credentials.RuneRecord:
		if err := rec.Complete(); err != nil {
			return nil, internal.NewError(internal.KindInvalidCredentials, "", err)
		}
		internal.LogDebug("Connecting to %s at %s over lnsocket", entry.Name, rec.Address)
		conn, err := f.dialRune(ctx, rec)
		if err != nil {
			return nil, connectFailed(entry.Name, err)
		}
		return newRuneSession(entry.Name, conn, rec.Rune), nil

	case credentials.GRPCRecord:
		if err := rec.Complete(); err != nil {
			return nil, internal.NewError(internal.KindInvalidCredentials, "", err)
		}
		material, err := f.store.LoadTLS(rec)
		if err != nil {
			return nil, err
		}
		internal.LogDebug("Connecting to %s at %s over grpc", entry.Name, rec.Address)
		client, err := f.dialGRPC(ctx, rec, material)
		if err != nil {
			return nil, connectFailed(entry.Name, err)
		}
		return newGRPCSession(entry.Name, client), nil
	}

	return nil, internal.Errorf(internal.KindInvalidCredentials, "", "unsupported credentials for %s", entry.Name)
}

func connectFailed(name string, err error) error {
	return &internal.Error{Kind: internal.KindConnectFailed, Detail: name, Err: err}
}

// PutAndValidate saves sub and then proves the saved record works with one
// getinfo call. A failed check leaves the written files in place.
func (f *Factory) PutAndValidate(ctx context.Context, sub credentials.Submission) (NodeInfo, error) {
	if err := f.store.Put(sub.Record, sub.SavedNode, sub.IsDefault); err != nil {
		return NodeInfo{}, err
	}
	return f.Validate(ctx, sub.SavedNode)
}

// Validate connects to name and runs getinfo. The session is always destroyed.
func (f *Factory) Validate(ctx context.Context, name string) (NodeInfo, error) {
	session, err := f.Connect(ctx, name)
	if err != nil {
		return NodeInfo{}, internal.NewError(internal.KindValidationFailed, "", err)
	}
	defer session.Destroy()

	info, err := session.GetInfo(ctx)
	if err != nil {
		return NodeInfo{}, internal.NewError(internal.KindValidationFailed, "", err)
	}
	if info.PublicKey == "" {
		return NodeInfo{}, internal.NewError(internal.KindValidationFailed, "", fmt.Errorf("getinfo on %s returned no node id", name))
	}

	internal.LogInfo("Authenticated to %s (%s)", name, info.Alias)
	return info, nil
}
