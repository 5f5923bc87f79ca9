// Package export renders dashboard tables as CSV.
//
// The format is fixed: every header and every present value is wrapped in
// double quotes with embedded quotes doubled, absent and null values are
// written as an empty unquoted field, and records are separated by a single
// "\n" with no trailing newline.
package export

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/forgev2/forge-admin/pkg/types"
)

// Table is a set of rows with an explicit column order.
type Table struct {
	Columns []string
	Rows    []types.Row
}

// NewTable builds a Table whose columns are order followed by any other keys
// of the first row in sorted order.
func NewTable(rows []types.Row, order []string) Table {
	var first types.Row
	if len(rows) > 0 {
		first = rows[0]
	}
	return Table{Columns: Columns(first, order), Rows: rows}
}

// Columns returns the column order for row: the names in order that the row
// carries, then the row's remaining keys sorted. With a nil row the order is
// returned as is.
func Columns(row types.Row, order []string) []string {
	if row == nil {
		return append([]string(nil), order...)
	}

	cols := make([]string, 0, len(row))
	seen := make(map[string]struct{}, len(row))
	for _, c := range order {
		if _, dup := seen[c]; dup {
			continue
		}
		if _, ok := row[c]; ok {
			cols = append(cols, c)
			seen[c] = struct{}{}
		}
	}

	var rest []string
	for k := range row {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// CSV renders table as text. An empty table renders as the empty string.
func CSV(table Table) string {
	var b strings.Builder
	_ = Write(&b, table)
	return b.String()
}

// Write streams table to w in CSV form.
func Write(w io.Writer, table Table) error {
	if len(table.Rows) == 0 {
		return nil
	}
	cols := table.Columns
	if len(cols) == 0 {
		cols = Columns(table.Rows[0], nil)
	}

	bw := bufio.NewWriter(w)
	for i, c := range cols {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(quote(c))
	}
	for _, row := range table.Rows {
		bw.WriteByte('\n')
		for i, c := range cols {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(Field(row.Get(c)))
		}
	}
	return bw.Flush()
}

// Field renders a single value.
func Field(v interface{}) string {
	if v == nil {
		return ""
	}
	return quote(types.ToString(v))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
