package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"
	"github.com/spf13/cobra"
)

var (
	tipStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
)

// savedNode is one row of the nodes listing
type savedNode struct {
	Name      string `json:"name" yaml:"name"`
	Default   bool   `json:"default" yaml:"default"`
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
	Socket    string `json:"socket,omitempty" yaml:"socket,omitempty"`
	Problem   string `json:"problem,omitempty" yaml:"problem,omitempty"`
}

type savedNodes []savedNode

func (s savedNodes) Header() []string {
	return []string{"Node", "Default", "Transport", "Socket"}
}

func (s savedNodes) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, n := range s {
		def := ""
		if n.Default {
			def = "✓"
		}
		socket := n.Socket
		if n.Problem != "" {
			socket = n.Problem
		}
		rows = append(rows, []string{n.Name, def, n.Transport, socket})
	}
	return rows
}

// listSavedNodes reads every saved node. Unreadable entries are listed with
// the problem instead of failing the listing.
func listSavedNodes(store *credentials.Store) (savedNodes, error) {
	names, err := store.SavedNodes()
	if err != nil {
		return nil, err
	}
	def, err := store.DefaultNode()
	if err != nil {
		internal.LogDebug("No default node: %v", err)
	}

	nodes := make(savedNodes, 0, len(names))
	for _, name := range names {
		n := savedNode{Name: name, Default: name == def}
		entry, err := store.Get(name)
		if err != nil {
			n.Problem = internal.KindOf(err).String()
		} else {
			n.Transport = string(entry.Record.Transport())
			n.Socket = entry.Record.Socket()
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List saved nodes",
	Long:  `List the nodes with saved credentials and mark the default node.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := homePaths()
		if err != nil {
			return err
		}
		nodes, err := listSavedNodes(credentials.NewStore(paths))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := renderResult(out, nodes); err != nil {
			return err
		}
		if len(nodes) == 0 && (outputFormat == "" || outputFormat == "table") {
			fmt.Fprintln(out, tipStyle.Render("💡 Tip: save a node with `corebos connect`"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}
