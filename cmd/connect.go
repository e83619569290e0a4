package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/spf13/cobra"
)

var connectGRPC bool

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Save credentials for a node",
	Long: `Ask for node credentials, save them and check them with getinfo.

By default the node is reached over lnsocket with a commando rune. Use --grpc
to save the TLS files and socket of the node's gRPC interface instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}

		prompter := internal.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		var sub credentials.Submission
		if connectGRPC {
			sub, err = credentials.AskGRPC(prompter)
		} else {
			sub, err = credentials.AskRune(prompter)
		}
		if err != nil {
			return err
		}

		var info lightning.NodeInfo
		err = internal.ShowProgress(cmd.Context(), "Validating credentials for "+sub.SavedNode, func(ctx context.Context) error {
			var verr error
			info, verr = factory.PutAndValidate(ctx, sub)
			return verr
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		internal.PrintSuccess(out, fmt.Sprintf("Connected to %s (%s)", info.Alias, info.PublicKey))
		if sub.IsDefault {
			internal.PrintInfo(out, sub.SavedNode+" is the default node")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().BoolVar(&connectGRPC, "grpc", false, "Connect over gRPC with TLS certificates instead of a rune")
}
