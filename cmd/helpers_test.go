package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const unreachableSocket = "10.0.0.1:9735"

var (
	alicePubkey = "02" + strings.Repeat("a", 64)
	bobPubkey   = "03" + strings.Repeat("b", 64)
)

// nodeReplies are the commando results served for every node, keyed by method.
var nodeReplies = map[string]string{
	"getinfo":   `{"id":"` + alicePubkey + `","alias":"alice","network":"regtest","version":"v24.08","num_active_channels":1}`,
	"listfunds": `{"outputs":[{"amount_msat":"5000000msat","status":"confirmed"},{"amount_msat":"2000000msat","status":"unconfirmed"}],"channels":[{"peer_id":"` + bobPubkey + `","our_amount_msat":"9000000msat","amount_msat":"10000000msat","state":"CHANNELD_NORMAL","connected":true}]}`,
	"newaddr":   `{"bech32":"bcrt1qdeposit","p2sh-segwit":"2NDeposit","p2tr":"bcrt1ptaproot"}`,
}

type scriptedCommando struct {
	replies map[string]string
}

func (s *scriptedCommando) Call(_ context.Context, method string, _ interface{}, _ string) (json.RawMessage, error) {
	reply, ok := s.replies[method]
	if !ok {
		return nil, errors.New("unexpected method " + method)
	}
	return json.RawMessage(reply), nil
}

func (s *scriptedCommando) Close() error { return nil }

// useScriptedNodes routes rune connections to scripted replies. Nodes saved
// with unreachableSocket fail to dial.
func useScriptedNodes(t *testing.T) {
	t.Helper()
	prev := factoryOptions
	factoryOptions = []lightning.FactoryOption{
		lightning.WithRuneDialer(func(_ context.Context, rec credentials.RuneRecord) (lightning.CommandoConn, error) {
			if rec.Address == unreachableSocket {
				return nil, errors.New("connection refused")
			}
			return &scriptedCommando{replies: nodeReplies}, nil
		}),
	}
	t.Cleanup(func() { factoryOptions = prev })
}

// newHome creates an empty home directory
func newHome(t *testing.T) string {
	t.Helper()
	return testutil.CreateTempDir(t)
}

func saveNode(t *testing.T, home, name, socket string, isDefault bool) {
	t.Helper()
	store := credentials.NewStore(internal.HomePaths{Base: home})
	rec := credentials.RuneRecord{PublicKey: alicePubkey, Rune: "rune-" + name, Address: socket}
	if err := store.Put(rec, name, isDefault); err != nil {
		t.Fatalf("failed to save node %s: %v", name, err)
	}
}

// resetFlags puts every flag back to its default so one test's flags do not
// leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and stdin and returns what
// it wrote to stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), err
}
