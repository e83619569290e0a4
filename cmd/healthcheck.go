package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/spf13/cobra"
)

var healthcheckOffline bool

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check saved credentials and node connectivity",
	Long: `Check the health of corebos by verifying:
  • Home directory detection
  • The default node pointer in config.json
  • Every saved credentials file
  • A getinfo round trip to each saved node (skip with --offline)

This command is useful for debugging connection problems before starting the bot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 corebos Health Check"))
		fmt.Fprintln(out)

		// Step 1: Detect home directory
		fmt.Fprintln(out, infoStyle.Render("Step 1: Detecting home directory..."))
		paths, err := homePaths()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to detect home directory:"), err)
			return err
		}
		if !paths.Exists() {
			fmt.Fprintln(out, errorStyle.Render("❌ No home directory at "+paths.Base))
			fmt.Fprintln(out, "   Run `corebos connect` to save a node first")
			return fmt.Errorf("health check failed: %s does not exist", paths.Base)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Home directory found"))
		if verbose {
			fmt.Fprintf(out, "   Base path: %s\n", paths.Base)
		}
		fmt.Fprintln(out)

		store := credentials.NewStore(paths)

		// Step 2: Default node
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking default node..."))
		def, err := store.DefaultNode()
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No default node:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ Default node is "+def))
		}
		fmt.Fprintln(out)

		// Step 3: Saved credentials
		fmt.Fprintln(out, infoStyle.Render("Step 3: Reading saved credentials..."))
		nodes, err := listSavedNodes(store)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to scan saved nodes:"), err)
			return err
		}
		if len(nodes) == 0 {
			fmt.Fprintln(out, errorStyle.Render("❌ No saved nodes"))
			return fmt.Errorf("health check failed: no saved nodes")
		}
		var readable []string
		for _, n := range nodes {
			if n.Problem != "" {
				fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %s: %s", n.Name, n.Problem)))
				continue
			}
			readable = append(readable, n.Name)
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s (%s)", n.Name, n.Transport)))
			if verbose {
				fmt.Fprintf(out, "   Socket: %s\n", n.Socket)
			}
		}
		fmt.Fprintln(out)

		failed := len(nodes) - len(readable)
		if !healthcheckOffline && len(readable) > 0 {
			// Step 4: Connectivity
			fmt.Fprintln(out, infoStyle.Render("Step 4: Connecting to nodes..."))
			factory, err := newFactory()
			if err != nil {
				return err
			}
			failed += checkNodes(cmd.Context(), out, factory, readable)
			fmt.Fprintln(out)
		}

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if failed > 0 {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Health check failed: %d of %d node(s) have problems", failed, len(nodes))))
			return fmt.Errorf("health check failed: %d node(s) have problems", failed)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Nodes: %d saved", len(nodes))))
		return nil
	},
}

// checkNodes runs getinfo against each node and returns how many failed.
func checkNodes(ctx context.Context, out io.Writer, c lightning.Connector, names []string) int {
	sessions, failures, err := lightning.NewPool(c).ResolvePartial(ctx, names)
	if err != nil && len(failures) == 0 {
		fmt.Fprintln(out, errorStyle.Render("❌ Connection failed:"), err)
		return len(names)
	}
	defer lightning.DestroyAll(sessions)

	failed := len(failures)
	for _, f := range failures {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ %s: %v", lightning.DisplayName(f.Name), f.Err)))
	}
	for _, s := range sessions {
		info, err := s.GetInfo(ctx)
		if err != nil {
			failed++
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ %s: %v", s.Name(), err)))
			continue
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s is %s running %s on %s", s.Name(), info.Alias, info.Version, info.Network)))
	}
	return failed
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckOffline, "offline", false, "Only check saved files, do not connect to nodes")
}
