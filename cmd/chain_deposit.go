package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/chain"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/spf13/cobra"
)

var (
	depositFormat string
	depositNode   string
)

var chainDepositCmd = &cobra.Command{
	Use:   "chain-deposit [amount]",
	Short: "Generate an on-chain deposit address",
	Long: `Ask the node for a fresh on-chain address and print it with a bitcoin:
payment URI and a QR code. The optional amount is in satoshis.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sats uint64
		if len(args) == 1 {
			n, err := strconv.ParseUint(strings.ReplaceAll(args[0], "_", ""), 10, 64)
			if err != nil {
				return internal.Errorf(internal.KindInvalidArgument, "ExpectedNumericAmountToDeposit", "invalid amount %q", args[0])
			}
			sats = n
		}
		if _, err := chain.AddressType(depositFormat); err != nil {
			return err
		}

		factory, err := newFactory()
		if err != nil {
			return err
		}
		sessions, err := lightning.NewPool(factory).Resolve(cmd.Context(), []string{depositNode})
		if err != nil {
			return err
		}
		defer lightning.DestroyAll(sessions)

		deposit, err := chain.GetDeposit(cmd.Context(), sessions[0], depositFormat, sats)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputFormat != "" && outputFormat != "table" {
			return renderResult(out, deposit)
		}
		fmt.Fprint(out, deposit.QR)
		fmt.Fprintln(out, deposit.Address)
		fmt.Fprintln(out, deposit.URI)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainDepositCmd)
	chainDepositCmd.Flags().StringVar(&depositFormat, "format", "p2wpkh", "Address format: "+strings.Join(chain.FormatNames, ", "))
	chainDepositCmd.Flags().StringVar(&depositNode, "node", "", "Saved node name (default node when empty)")
}
