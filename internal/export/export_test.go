package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/pkg/types"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	table := Table{
		Columns: []string{"id", "name", "note", "seats"},
		Rows: []types.Row{
			{"id": "u1", "name": `Ann "The Admin"`, "note": "a,b", "seats": 3.0},
			{"id": "u2", "name": nil, "seats": 1.5},
		},
	}

	want := `"id","name","note","seats"` + "\n" +
		`"u1","Ann ""The Admin""","a,b","3"` + "\n" +
		`"u2",,,"1.5"`
	require.Equal(t, want, CSV(table))
}

func TestCSV_Empty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", CSV(Table{Columns: []string{"id"}}))
	require.Equal(t, "", CSV(Table{}))
}

func TestCSV_BoolsAndMultiline(t *testing.T) {
	t.Parallel()

	table := Table{
		Columns: []string{"flag", "text"},
		Rows:    []types.Row{{"flag": false, "text": "line1\nline2"}},
	}
	require.Equal(t, `"flag","text"`+"\n"+`"false","line1`+"\n"+`line2"`, CSV(table))
}

func TestCSV_ColumnsFromFirstRow(t *testing.T) {
	t.Parallel()

	table := Table{Rows: []types.Row{{"b": 1.0, "a": 2.0}, {"a": 3.0, "c": 4.0}}}
	require.Equal(t, `"a","b"`+"\n"+`"2","1"`+"\n"+`"3",`, CSV(table))
}

func TestColumns(t *testing.T) {
	t.Parallel()

	row := types.Row{"z": 1, "id": 2, "email": 3, "a": 4}
	require.Equal(t, []string{"id", "email", "a", "z"}, Columns(row, []string{"id", "missing", "email", "id"}))
	require.Equal(t, []string{"x", "y"}, Columns(nil, []string{"x", "y"}))
}

func TestNewTable(t *testing.T) {
	t.Parallel()

	tbl := NewTable([]types.Row{{"plan": "pro", "id": "s1"}}, []string{"id"})
	require.Equal(t, []string{"id", "plan"}, tbl.Columns)
}

func TestFileSink_Save(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewFileSink(dir)

	path, err := sink.Save("../users.csv", Table{
		Columns: []string{"user_id"},
		Rows:    []types.Row{{"user_id": "u1"}},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "users.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `"user_id"`+"\n"+`"u1"`, string(data))

	_, err = sink.Save("", Table{})
	require.Error(t, err)
	require.Equal(t, forgeerrors.ErrCategoryValidation, forgeerrors.GetCategory(err))
}

func TestProperty_RecordCountAndQuoting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("one header line plus one line per row", prop.ForAll(
		func(vals []string) bool {
			rows := make([]types.Row, len(vals))
			for i, v := range vals {
				rows[i] = types.Row{"v": v}
			}
			out := CSV(Table{Columns: []string{"v"}, Rows: rows})
			if len(rows) == 0 {
				return out == ""
			}
			lines := strings.Split(out, "\n")
			if len(lines) != len(rows)+1 {
				return false
			}
			for i, line := range lines[1:] {
				want := `"` + strings.ReplaceAll(vals[i], `"`, `""`) + `"`
				if line != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString().Map(func(s string) string {
			return strings.NewReplacer("\n", "", "\r", "").Replace(s)
		})),
	))

	properties.TestingRun(t)
}

// cell is one generated value: Mode 0 leaves the key out, 1 stores nil and
// 2 stores Text.
type cell struct {
	Mode int
	Text string
}

var roundTripKeys = []string{"id", "b", "c", "d"}

func rowsFromCells(specs [][]cell) []types.Row {
	rows := make([]types.Row, len(specs))
	for i, cells := range specs {
		row := types.Row{}
		for j, c := range cells {
			key := roundTripKeys[j]
			switch {
			case j == 0 || c.Mode == 2:
				row[key] = c.Text
			case c.Mode == 1:
				row[key] = nil
			}
		}
		rows[i] = row
	}
	return rows
}

func parseCSV(text string) ([][]string, error) {
	if text == "" {
		return nil, nil
	}
	return csv.NewReader(strings.NewReader(text)).ReadAll()
}

// records is the expected parse of rows under cols: nil and missing values
// read back as empty strings.
func records(cols []string, rows []types.Row) [][]string {
	out := [][]string{cols}
	for _, row := range rows {
		rec := make([]string, len(cols))
		for j, c := range cols {
			if v := row.Get(c); v != nil {
				rec[j] = types.ToString(v)
			}
		}
		out = append(out, rec)
	}
	return out
}

func TestProperty_RoundTripThroughCSVReader(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	pieces := []string{"a", "Z", "7", " ", ",", `"`, `""`, "\n", ",\n", "é", "x,y"}
	text := gen.SliceOf(gen.IntRange(0, len(pieces)-1)).Map(func(idx []int) string {
		var b strings.Builder
		for _, i := range idx {
			b.WriteString(pieces[i])
		}
		return b.String()
	})
	cellGen := gen.Struct(reflect.TypeOf(cell{}), map[string]gopter.Gen{
		"Mode": gen.IntRange(0, 2),
		"Text": text,
	})
	rowsGen := gen.SliceOf(gen.SliceOfN(len(roundTripKeys), cellGen))

	properties.Property("parsing the output yields the rows under the header columns", prop.ForAll(
		func(specs [][]cell) bool {
			rows := rowsFromCells(specs)
			out := CSV(Table{Rows: rows})
			got, err := parseCSV(out)
			if err != nil {
				return false
			}
			if len(rows) == 0 {
				return got == nil
			}
			cols := Columns(rows[0], nil)
			return reflect.DeepEqual(records(cols, rows), got)
		},
		rowsGen,
	))

	properties.Property("exporting the parsed rows is a fixpoint", prop.ForAll(
		func(specs [][]cell) bool {
			rows := rowsFromCells(specs)
			first, err := parseCSV(CSV(Table{Rows: rows}))
			if err != nil || len(first) == 0 {
				return err == nil
			}

			cols := first[0]
			parsed := make([]types.Row, len(first)-1)
			for i, rec := range first[1:] {
				parsed[i] = types.Row{}
				for j, c := range cols {
					parsed[i][c] = rec[j]
				}
			}
			second, err := parseCSV(CSV(Table{Columns: cols, Rows: parsed}))
			return err == nil && reflect.DeepEqual(first, second)
		},
		rowsGen,
	))

	properties.TestingRun(t)
}

func TestCSV_ParsesWithCSVReader(t *testing.T) {
	t.Parallel()

	table := Table{
		Columns: []string{"id", "note", "extra"},
		Rows: []types.Row{
			{"id": "u1", "note": "a,\"b\"\nc", "extra": nil},
			{"id": "u2", "unlisted": "dropped"},
		},
	}
	got, err := parseCSV(CSV(table))
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"id", "note", "extra"},
		{"u1", "a,\"b\"\nc", ""},
		{"u2", "", ""},
	}, got)
}
