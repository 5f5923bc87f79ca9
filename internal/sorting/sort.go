// Package sorting orders derived table rows by a single column and tracks
// the three-state sort toggle of the dashboard tables.
package sorting

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/forgev2/forge-admin/pkg/types"
)

// Direction is a sort direction.
type Direction string

const (
	None Direction = ""
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc, desc and the empty string (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return None, nil
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return None, fmt.Errorf("sorting: invalid direction %q", s)
}

// NewCollator returns a collator that compares digit runs by numeric value,
// so "item2" sorts before "item10". Collators are not safe for concurrent use.
func NewCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

// Compare orders two cell values. nil is treated as the empty string. When
// both values start with a number they compare numerically; otherwise their
// text compares with coll.
func Compare(a, b interface{}, coll *collate.Collator) int {
	if a == nil {
		a = ""
	}
	if b == nil {
		b = ""
	}

	an, aok := types.ParseFloatPrefix(a)
	bn, bok := types.ParseFloatPrefix(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}

	if coll == nil {
		coll = NewCollator()
	}
	return coll.CompareString(types.ToString(a), types.ToString(b))
}

// Sort returns rows ordered by key in direction dir. The input slice is not
// modified. Rows comparing equal keep their input order. With an empty key or
// direction None the input is returned as is.
func Sort(rows []types.Row, key string, dir Direction) []types.Row {
	if key == "" || dir == None {
		return rows
	}

	out := make([]types.Row, len(rows))
	copy(out, rows)
	if len(out) <= 1 {
		return out
	}

	coll := NewCollator()
	sort.SliceStable(out, func(i, j int) bool {
		cmp := Compare(out[i].Get(key), out[j].Get(key), coll)
		if dir == Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}
