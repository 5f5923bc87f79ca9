package sorting

import "github.com/forgev2/forge-admin/pkg/types"

// Sort indicators appended to the active column header.
const (
	AscIndicator  = " ▲"
	DescIndicator = " ▼"
)

// State is the single active sort across all dashboard tables. The zero value
// has no active sort. State is not safe for concurrent use.
type State struct {
	Table     string    `json:"table,omitempty"`
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether a sort is in effect.
func (s State) Active() bool {
	return s.Table != "" && s.Key != "" && s.Direction != None
}

// Toggle advances the sort for (table, key): a new pair starts ascending,
// ascending becomes descending and descending clears the sort.
func (s *State) Toggle(table, key string) {
	if s.Table != table || s.Key != key || s.Direction == None {
		*s = State{Table: table, Key: key, Direction: Asc}
		return
	}
	if s.Direction == Asc {
		s.Direction = Desc
		return
	}
	*s = State{}
}

// Indicator returns the header suffix for (table, key).
func (s State) Indicator(table, key string) string {
	if !s.Active() || s.Table != table || s.Key != key {
		return ""
	}
	if s.Direction == Asc {
		return AscIndicator
	}
	return DescIndicator
}

// Apply sorts rows when table is the active table and returns them unchanged
// otherwise.
func (s State) Apply(table string, rows []types.Row) []types.Row {
	if !s.Active() || s.Table != table {
		return rows
	}
	return Sort(rows, s.Key, s.Direction)
}
