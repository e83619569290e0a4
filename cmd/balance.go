package cmd

import (
	"github.com/iksnae/corebos/internal/balance"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/spf13/cobra"
)

var (
	balanceOpts balance.Options
	balanceNode string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the node balance",
	Long: `Show the total of on-chain outputs and channel balances in satoshis.

--onchain and --offchain narrow the total to one side; --onchain wins when
both are given. --detailed reports both sides separately and --confirmed only
counts confirmed outputs and normal channels.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}

		sessions, err := lightning.NewPool(factory).Resolve(cmd.Context(), []string{balanceNode})
		if err != nil {
			return err
		}
		defer lightning.DestroyAll(sessions)

		result, err := balance.Get(cmd.Context(), sessions[0], balanceOpts)
		if err != nil {
			return err
		}
		return renderResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVar(&balanceOpts.Confirmed, "confirmed", false, "Only count confirmed funds")
	balanceCmd.Flags().BoolVar(&balanceOpts.Detailed, "detailed", false, "Show on-chain and off-chain balances separately")
	balanceCmd.Flags().BoolVar(&balanceOpts.OffchainOnly, "offchain", false, "Only count channel balances")
	balanceCmd.Flags().BoolVar(&balanceOpts.OnchainOnly, "onchain", false, "Only count on-chain outputs")
	balanceCmd.Flags().StringVar(&balanceNode, "node", "", "Saved node name (default node when empty)")
}
