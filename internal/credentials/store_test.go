package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/testutil"
)

const testPubkey = "02" + "1111111111111111111111111111111111111111111111111111111111111111"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(internal.HomePaths{Base: testutil.CreateHomeDir(t)})
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	fx := testutil.CreateTLSFixture(t, testutil.CreateTempDir(t))

	records := map[string]Record{
		"grpcnode": GRPCRecord{
			CACertPath:     fx.CAPath,
			ClientCertPath: fx.ClientCertPath,
			ClientKeyPath:  fx.ClientKeyPath,
			Address:        "127.0.0.1:9736",
		},
		"runenode": RuneRecord{PublicKey: testPubkey, Rune: "r-abc", Address: "10.0.0.1:9735"},
	}

	for name, rec := range records {
		if err := store.Put(rec, name, false); err != nil {
			t.Fatalf("Put(%s) error = %v", name, err)
		}
	}

	for name, want := range records {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Name != name {
				t.Errorf("Name = %q, want %q", got.Name, name)
			}
			if diff := cmp.Diff(want, got.Record); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}

	info, err := os.Stat(store.Paths().CredentialsPath("runenode"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestStore_DefaultResolution(t *testing.T) {
	store := newTestStore(t)
	alpha := RuneRecord{PublicKey: testPubkey, Rune: "alpha-rune", Address: "alpha:9735"}
	beta := RuneRecord{PublicKey: testPubkey, Rune: "beta-rune", Address: "beta:9735"}

	if err := store.Put(alpha, "alpha", true); err != nil {
		t.Fatalf("Put(alpha) error = %v", err)
	}
	got, err := store.Get("")
	if err != nil {
		t.Fatalf("Get(default) error = %v", err)
	}
	if got.Name != "alpha" || got.Record != Record(alpha) {
		t.Errorf("default = %+v, want alpha", got)
	}

	if err := store.Put(beta, "beta", true); err != nil {
		t.Fatalf("Put(beta) error = %v", err)
	}
	got, err = store.Get("")
	if err != nil {
		t.Fatalf("Get(default) error = %v", err)
	}
	if got.Name != "beta" || got.Record != Record(beta) {
		t.Errorf("default = %+v, want beta", got)
	}

	got, err = store.Get("alpha")
	if err != nil {
		t.Fatalf("Get(alpha) error = %v", err)
	}
	if got.Record != Record(alpha) {
		t.Errorf("alpha record = %+v, want %+v", got.Record, alpha)
	}
}

func TestStore_PutNonDefaultKeepsPointer(t *testing.T) {
	store := newTestStore(t)
	rec := RuneRecord{PublicKey: testPubkey, Rune: "r", Address: "h:1"}

	if err := store.Put(rec, "alpha", true); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(rec, "beta", false); err != nil {
		t.Fatal(err)
	}

	def, err := store.DefaultNode()
	if err != nil {
		t.Fatalf("DefaultNode() error = %v", err)
	}
	if def != "alpha" {
		t.Errorf("DefaultNode() = %q, want alpha", def)
	}

	nodes, err := store.SavedNodes()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alpha", "beta"}, nodes); diff != "" {
		t.Errorf("SavedNodes() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PutMissingCertPaths(t *testing.T) {
	store := newTestStore(t)
	fx := testutil.CreateTLSFixture(t, testutil.CreateTempDir(t))
	missing := filepath.Join(testutil.CreateTempDir(t), "nope.pem")

	tests := []struct {
		name string
		rec  GRPCRecord
		want internal.Kind
	}{
		{
			name: "all missing",
			rec:  GRPCRecord{CACertPath: missing, ClientCertPath: missing, ClientKeyPath: missing, Address: "h:1"},
			want: internal.KindExpectedValidCaPath,
		},
		{
			name: "client cert missing",
			rec:  GRPCRecord{CACertPath: fx.CAPath, ClientCertPath: missing, ClientKeyPath: fx.ClientKeyPath, Address: "h:1"},
			want: internal.KindExpectedValidClientCertPath,
		},
		{
			name: "client key missing",
			rec:  GRPCRecord{CACertPath: fx.CAPath, ClientCertPath: fx.ClientCertPath, ClientKeyPath: "", Address: "h:1"},
			want: internal.KindExpectedValidClientKeyPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(tt.rec, "node", true)
			if internal.KindOf(err) != tt.want {
				t.Errorf("Put() kind = %v, want %v (err %v)", internal.KindOf(err), tt.want, err)
			}
			if store.Paths().Exists() {
				t.Error("home directory should not be created when validation fails")
			}
		})
	}
}

func TestStore_PutInvalidInput(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		rec  Record
		node string
		want internal.Kind
	}{
		{"nil record", nil, "n", internal.KindInvalidArgument},
		{"bad pubkey", RuneRecord{PublicKey: "03abc", Rune: "r", Address: "h:1"}, "n", internal.KindInvalidPublicKey},
		{"missing rune", RuneRecord{PublicKey: testPubkey, Address: "h:1"}, "n", internal.KindInvalidArgument},
		{"missing socket", RuneRecord{PublicKey: testPubkey, Rune: "r"}, "n", internal.KindInvalidArgument},
		{"empty node name", RuneRecord{PublicKey: testPubkey, Rune: "r", Address: "h:1"}, "", internal.KindInvalidArgument},
		{"traversal node name", RuneRecord{PublicKey: testPubkey, Rune: "r", Address: "h:1"}, "../x", internal.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(tt.rec, tt.node, false)
			if internal.KindOf(err) != tt.want {
				t.Errorf("Put() kind = %v, want %v", internal.KindOf(err), tt.want)
			}
		})
	}
}

func TestStore_GetErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, hp internal.HomePaths)
		node  string
		want  internal.Kind
	}{
		{
			name:  "no config",
			setup: func(t *testing.T, hp internal.HomePaths) {},
			want:  internal.KindMissingConfig,
		},
		{
			name: "corrupt config",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "config.json", []byte("{not json"))
			},
			want: internal.KindCorruptConfig,
		},
		{
			name: "config without default",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "config.json", []byte(`{"other":"x"}`))
			},
			want: internal.KindMissingDefaultPointer,
		},
		{
			name: "default points at missing node",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "config.json", []byte(`{"default_saved_node":"ghost"}`))
			},
			want: internal.KindMissingCredentials,
		},
		{
			name:  "named node missing",
			setup: func(t *testing.T, hp internal.HomePaths) {},
			node:  "ghost",
			want:  internal.KindMissingCredentials,
		},
		{
			name: "corrupt credentials",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "n/credentials.json", []byte("]["))
			},
			node: "n",
			want: internal.KindCorruptCredentials,
		},
		{
			name: "incomplete rune credentials",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "n/credentials.json", []byte(`{"transport":"lnsocket","public_key":"`+testPubkey+`","socket":"h:1"}`))
			},
			node: "n",
			want: internal.KindIncompleteCredentials,
		},
		{
			name: "incomplete grpc credentials",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "n/credentials.json", []byte(`{"ca_cert_path":"/a","client_cert_path":"/b","socket":"h:1"}`))
			},
			node: "n",
			want: internal.KindIncompleteCredentials,
		},
		{
			name: "empty object",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "n/credentials.json", []byte(`{}`))
			},
			node: "n",
			want: internal.KindIncompleteCredentials,
		},
		{
			name: "unknown transport",
			setup: func(t *testing.T, hp internal.HomePaths) {
				testutil.WriteFile(t, hp.Base, "n/credentials.json", []byte(`{"transport":"carrier-pigeon","socket":"h:1"}`))
			},
			node: "n",
			want: internal.KindCorruptCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			tt.setup(t, store.Paths())

			_, err := store.Get(tt.node)
			if internal.KindOf(err) != tt.want {
				t.Errorf("Get() kind = %v, want %v (err %v)", internal.KindOf(err), tt.want, err)
			}
			if !errors.Is(err, internal.ErrKind(tt.want)) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}
}

func TestStore_GetLegacyUntagged(t *testing.T) {
	store := newTestStore(t)
	hp := store.Paths()

	testutil.WriteFile(t, hp.Base, "old/credentials.json",
		[]byte(`{"public_key":"`+testPubkey+`","rune":"r","socket":"h:9735"}`))
	testutil.WriteFile(t, hp.Base, "oldgrpc/credentials.json",
		[]byte(`{"ca_cert_path":"/ca","client_cert_path":"/c","client_key_path":"/k","socket":"h:9736"}`))

	got, err := store.Get("old")
	if err != nil {
		t.Fatalf("Get(old) error = %v", err)
	}
	if got.Record.Transport() != TransportLNSocket {
		t.Errorf("transport = %v, want lnsocket", got.Record.Transport())
	}

	got, err = store.Get("oldgrpc")
	if err != nil {
		t.Fatalf("Get(oldgrpc) error = %v", err)
	}
	want := GRPCRecord{CACertPath: "/ca", ClientCertPath: "/c", ClientKeyPath: "/k", Address: "h:9736"}
	if diff := cmp.Diff(Record(want), got.Record); diff != "" {
		t.Errorf("legacy grpc record mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_WritesTransportTag(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(RuneRecord{PublicKey: testPubkey, Rune: "r", Address: "h:1"}, "n", false); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(store.Paths().CredentialsPath("n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"transport": "lnsocket"`) {
		t.Errorf("credentials file missing transport tag: %s", data)
	}
}

func TestStore_LoadTLS(t *testing.T) {
	store := newTestStore(t)
	dir := testutil.CreateTempDir(t)
	fx := testutil.CreateTLSFixture(t, dir)
	rec := GRPCRecord{CACertPath: fx.CAPath, ClientCertPath: fx.ClientCertPath, ClientKeyPath: fx.ClientKeyPath, Address: "h:1"}

	m, err := store.LoadTLS(rec)
	if err != nil {
		t.Fatalf("LoadTLS() error = %v", err)
	}
	if len(m.CACert) == 0 || len(m.ClientCert) == 0 || len(m.ClientKey) == 0 {
		t.Error("LoadTLS() returned empty material")
	}

	tests := []struct {
		name   string
		mutate func(r GRPCRecord) GRPCRecord
		detail string
	}{
		{"ca", func(r GRPCRecord) GRPCRecord { r.CACertPath = filepath.Join(dir, "gone"); return r }, "ca_cert"},
		{"cert", func(r GRPCRecord) GRPCRecord { r.ClientCertPath = filepath.Join(dir, "gone"); return r }, "client_cert"},
		{"key", func(r GRPCRecord) GRPCRecord {
			r.ClientKeyPath = testutil.WriteFile(t, dir, "empty.pem", nil)
			return r
		}, "client_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.LoadTLS(tt.mutate(rec))
			var e *internal.Error
			if !errors.As(err, &e) {
				t.Fatalf("LoadTLS() error = %v, want *internal.Error", err)
			}
			if e.Kind != internal.KindUnreadableCertFile || e.Detail != tt.detail {
				t.Errorf("LoadTLS() = %v/%q, want UnreadableCertFile/%q", e.Kind, e.Detail, tt.detail)
			}
		})
	}
}

func TestIsPublicKey(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{testPubkey, true},
		{"03" + strings.Repeat("ab", 32), true},
		{"03" + strings.Repeat("AB", 32), true},
		{"04" + strings.Repeat("ab", 32), false},
		{"02" + strings.Repeat("ab", 31), false},
		{"02" + strings.Repeat("ab", 33), false},
		{"02" + strings.Repeat("zz", 32), false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPublicKey(tt.in); got != tt.want {
			t.Errorf("IsPublicKey(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
