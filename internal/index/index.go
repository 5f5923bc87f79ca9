// Package index builds in-memory lookup tables over resource rows.
//
// Keys are compared by their string form, so the number 7 and the string "7"
// address the same entry. Rows whose key field is absent or null share a
// single "missing" slot; looking up a nil value returns that row.
package index

import (
	"github.com/forgev2/forge-admin/pkg/types"
)

// Index maps a key field value to the last row carrying it.
type Index struct {
	field   string
	rows    map[string]types.Row
	missing types.Row
	hasNil  bool
}

// Build indexes rows by field in a single pass. When several rows share a key
// the last one wins. Nil rows are skipped.
//
// A null key and an absent key land in the same slot. A lookup row whose own
// key is null or absent therefore matches the last indexed row that also
// lacks the key, e.g. a user without id picks up a stats row without user_id.
func Build(rows []types.Row, field string) Index {
	idx := Index{
		field: field,
		rows:  make(map[string]types.Row, len(rows)),
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		v := row.Get(field)
		if v == nil {
			idx.missing = row
			idx.hasNil = true
			continue
		}
		idx.rows[types.ToString(v)] = row
	}
	return idx
}

// Get returns the row indexed under value.
func (i Index) Get(value interface{}) (types.Row, bool) {
	if value == nil {
		return i.missing, i.hasNil
	}
	row, ok := i.rows[types.ToString(value)]
	return row, ok
}

// GetOrEmpty returns the row indexed under value or an empty row.
func (i Index) GetOrEmpty(value interface{}) types.Row {
	if row, ok := i.Get(value); ok {
		return row
	}
	return types.Row{}
}

// Len returns the number of distinct keys.
func (i Index) Len() int {
	n := len(i.rows)
	if i.hasNil {
		n++
	}
	return n
}

// Field returns the key field the index was built on.
func (i Index) Field() string {
	return i.field
}
