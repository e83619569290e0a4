package balance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/internal/lightning/lightningtest"
)

func sats(n uint64) *uint64 { return &n }

var testFunds = lightning.Funds{
	Outputs: []lightning.Output{
		{AmountMsat: 100_000_000, Status: "confirmed"},
		{AmountMsat: 50_000_500, Status: "unconfirmed"},
	},
	Channels: []lightning.Channel{
		{OurAmountMsat: 20_000_000, State: "CHANNELD_NORMAL"},
		{OurAmountMsat: 3_000_999, State: "CHANNELD_AWAITING_LOCKIN"},
	},
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want Result
	}{
		{"total", Options{}, Result{Balance: sats(173_000)}},
		{"confirmed total", Options{Confirmed: true}, Result{Balance: sats(120_000)}},
		{"detailed", Options{Detailed: true}, Result{OffchainBalance: sats(23_000), OnchainBalance: sats(150_000)}},
		{"confirmed detailed", Options{Detailed: true, Confirmed: true}, Result{OffchainBalance: sats(20_000), OnchainBalance: sats(100_000)}},
		{"onchain only", Options{OnchainOnly: true}, Result{Balance: sats(150_000)}},
		{"offchain only", Options{OffchainOnly: true}, Result{Balance: sats(23_000)}},
		{"only flags beat detailed", Options{OffchainOnly: true, Detailed: true}, Result{Balance: sats(23_000)}},
		{"onchain wins over offchain", Options{OnchainOnly: true, OffchainOnly: true}, Result{Balance: sats(150_000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Compute(testFunds, tt.opts)); diff != "" {
				t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompute_Empty(t *testing.T) {
	got := Compute(lightning.Funds{}, Options{Detailed: true})
	if diff := cmp.Diff(Result{OffchainBalance: sats(0), OnchainBalance: sats(0)}, got); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
}

func TestGet(t *testing.T) {
	s := &lightningtest.FakeSession{NodeName: "a", Funds: testFunds}
	got, err := Get(context.Background(), s, Options{OnchainOnly: true, Confirmed: true})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got.Balance != 100_000 {
		t.Errorf("Balance = %d, want 100000", *got.Balance)
	}

	failing := &lightningtest.FakeSession{NodeName: "b", Err: errors.New("boom")}
	if _, err := Get(context.Background(), failing, Options{}); internal.KindOf(err) != internal.KindRPCFailed {
		t.Errorf("Get() kind = %v, want RPCFailed", internal.KindOf(err))
	}
}

func TestResult_Rows(t *testing.T) {
	got := Result{OffchainBalance: sats(1234567), OnchainBalance: sats(0)}.Rows()
	want := [][]string{
		{"offchain_balance", "1,234,567 sats"},
		{"onchain_balance", "0 sats"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
}
