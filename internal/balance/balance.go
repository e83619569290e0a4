// Package balance sums wallet outputs and channel balances reported by listfunds.
package balance

import (
	"context"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/corebos/internal/lightning"
)

const (
	confirmedStatus = "confirmed"
	normalState     = "channeldnormal"
)

// Options selects which funds are counted. OnchainOnly wins when both
// OnchainOnly and OffchainOnly are set.
type Options struct {
	Confirmed    bool
	Detailed     bool
	OffchainOnly bool
	OnchainOnly  bool
}

// Result holds whole-satoshi balances. Only the fields selected by Options
// are set.
type Result struct {
	Balance         *uint64 `json:"balance,omitempty" yaml:"balance,omitempty"`
	OffchainBalance *uint64 `json:"offchain_balance,omitempty" yaml:"offchain_balance,omitempty"`
	OnchainBalance  *uint64 `json:"onchain_balance,omitempty" yaml:"onchain_balance,omitempty"`
}

// Get fetches listfunds from s and computes the balance.
func Get(ctx context.Context, s lightning.Session, opts Options) (Result, error) {
	funds, err := s.ListFunds(ctx)
	if err != nil {
		return Result{}, err
	}
	return Compute(funds, opts), nil
}

// Compute applies opts to funds.
func Compute(funds lightning.Funds, opts Options) Result {
	onchain := onchainSats(funds.Outputs, opts)
	offchain := offchainSats(funds.Channels, opts)

	switch {
	case opts.OnchainOnly:
		return Result{Balance: &onchain}
	case opts.OffchainOnly:
		return Result{Balance: &offchain}
	case opts.Detailed:
		return Result{OffchainBalance: &offchain, OnchainBalance: &onchain}
	}

	total := onchain + offchain
	return Result{Balance: &total}
}

// Amounts are summed in millisatoshis and truncated once.
func onchainSats(outputs []lightning.Output, opts Options) uint64 {
	if opts.OffchainOnly && !opts.OnchainOnly {
		return 0
	}
	var msat uint64
	for _, o := range outputs {
		if opts.Confirmed && !strings.EqualFold(o.Status, confirmedStatus) {
			continue
		}
		msat += uint64(o.AmountMsat)
	}
	return lightning.Msat(msat).Sats()
}

func offchainSats(channels []lightning.Channel, opts Options) uint64 {
	if opts.OnchainOnly {
		return 0
	}
	var msat uint64
	for _, c := range channels {
		if opts.Confirmed && normalizeState(c.State) != normalState {
			continue
		}
		msat += uint64(c.OurAmountMsat)
	}
	return lightning.Msat(msat).Sats()
}

// normalizeState folds CHANNELD_NORMAL and channeldnormal to the same key.
func normalizeState(state string) string {
	return strings.ToLower(strings.ReplaceAll(state, "_", ""))
}

// Header is the table header for Rows.
func (r Result) Header() []string {
	return []string{"Balance", "Amount"}
}

// Rows lists the set balances as label/value pairs for table output.
func (r Result) Rows() [][]string {
	var rows [][]string
	add := func(label string, v *uint64) {
		if v != nil {
			rows = append(rows, []string{label, humanize.Comma(int64(*v)) + " sats"})
		}
	}
	add("balance", r.Balance)
	add("offchain_balance", r.OffchainBalance)
	add("onchain_balance", r.OnchainBalance)
	return rows
}
