package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/internal/render"
	"github.com/spf13/cobra"
)

const modulePath = "github.com/iksnae/corebos"

var (
	verbose      bool
	storagePath  string
	outputFormat string
	version      string = "dev"
	commit       string = "unknown"
	date         string = "unknown"
)

// factoryOptions are passed to every node factory. Tests replace the
// transports here.
var factoryOptions []lightning.FactoryOption

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "corebos",
	Short: "Manage Core Lightning nodes from the terminal and Telegram",
	Long: `corebos talks to Core Lightning nodes over commando runes or gRPC.

Credentials for each node are saved under ~/.corebos (override with --storage
or COREBOS_HOME). One saved node is the default and is used when --node is not
given.

Quick Start:
  corebos connect                 # Save rune credentials for a node
  corebos connect --grpc          # Save gRPC credentials instead
  corebos balance --detailed      # On-chain and channel balances
  corebos chain-deposit 50000     # Fresh address with a payment URI
  corebos telegram                # Run the Telegram bot`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func formatError(err error) string {
	if kind := internal.KindOf(err); kind != internal.KindUnknown {
		return fmt.Sprintf("Error [%d %s]: %v", kind.Code(), kind, err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func homePaths() (internal.HomePaths, error) {
	paths, err := internal.DetectHomePaths(storagePath)
	if err != nil {
		return internal.HomePaths{}, fmt.Errorf("failed to get home paths: %w", err)
	}
	return paths, nil
}

func newFactory() (*lightning.Factory, error) {
	paths, err := homePaths()
	if err != nil {
		return nil, err
	}
	return lightning.NewFactory(credentials.NewStore(paths), factoryOptions...), nil
}

func renderResult(w io.Writer, v interface{}) error {
	r, err := render.NewRenderer(outputFormat)
	if err != nil {
		return err
	}
	return r.Render(v, w)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Custom home directory for saved credentials (default ~/.corebos)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, jsonl, yaml")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
