package cmd

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/release"
	"github.com/spf13/cobra"
)

var upgradeCheckOnly bool

// Tests replace the version lookup and the install step.
var (
	newVersionChecker = func() release.Checker { return release.NewModuleProxy(modulePath) }
	installModule     = goInstall
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade corebos to the latest version",
	Long: `Look up the latest published version on the Go module proxy and, when it
is newer than the running binary, reinstall it with go install.

Use --check to only report whether an upgrade is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		var latest string
		err := internal.ShowProgress(cmd.Context(), "Checking for new versions", func(ctx context.Context) error {
			var lerr error
			latest, lerr = newVersionChecker().Latest(ctx)
			return lerr
		})
		if err != nil {
			return fmt.Errorf("failed to look up the latest version: %w", err)
		}

		if !release.IsNewer(latest, version) {
			internal.PrintSuccess(out, fmt.Sprintf("corebos %s is up to date (latest %s)", version, latest))
			return nil
		}
		internal.PrintInfo(out, fmt.Sprintf("corebos %s is available (running %s)", latest, version))
		if upgradeCheckOnly {
			fmt.Fprintf(out, "Upgrade with: go install %s@%s\n", modulePath, latest)
			return nil
		}

		internal.LogInfo("Installing %s@%s...", modulePath, latest)
		if err := installModule(cmd.Context(), modulePath+"@"+latest, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			return fmt.Errorf("failed to install %s: %w", latest, err)
		}
		internal.PrintSuccess(out, "Upgrade successful!")
		return nil
	},
}

func goInstall(ctx context.Context, target string, stdout, stderr io.Writer) error {
	if _, err := exec.LookPath("go"); err != nil {
		return fmt.Errorf("go is not installed or not in PATH")
	}
	install := exec.CommandContext(ctx, "go", "install", target)
	install.Stdout = stdout
	install.Stderr = stderr
	return install.Run()
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().BoolVar(&upgradeCheckOnly, "check", false, "Only report whether a newer version exists")
}
