package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// TableRenderer draws Tabular results as a bordered table. Other values fall
// back to YAML.
type TableRenderer struct{}

func (r *TableRenderer) Render(v interface{}, w io.Writer) error {
	tab, ok := v.(Tabular)
	if !ok {
		return (&YAMLRenderer{}).Render(v, w)
	}

	header := tab.Header()
	rows := tab.Rows()
	if len(rows) == 0 {
		// Keep the column layout visible when there is nothing to show.
		empty := make([]string, len(header))
		for i := range empty {
			empty[i] = " "
		}
		rows = [][]string{empty}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func (r *TableRenderer) Format() string {
	return "table"
}
