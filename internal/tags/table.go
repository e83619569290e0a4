package tags

import (
	"strconv"
	"strings"
)

// Table renders tags one per row
type Table []Tag

func (t Table) Header() []string {
	return []string{"Tag", "Icon", "Avoided", "Nodes"}
}

func (t Table) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, tag := range t {
		rows = append(rows, []string{tag.Alias, tag.Icon, strconv.FormatBool(tag.IsAvoided), strings.Join(tag.Nodes, "\n")})
	}
	return rows
}
