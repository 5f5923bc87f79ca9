package view

import (
	"time"

	"github.com/forgev2/forge-admin/internal/aggregate"
	"github.com/forgev2/forge-admin/internal/export"
	"github.com/forgev2/forge-admin/internal/index"
	"github.com/forgev2/forge-admin/internal/join"
	"github.com/forgev2/forge-admin/internal/sorting"
	"github.com/forgev2/forge-admin/internal/trigger"
	"github.com/forgev2/forge-admin/pkg/types"
)

// Statistics holds the record counters shown on the overview.
type Statistics struct {
	TotalWorkflows int `json:"total_workflows"`
	TotalTemplates int `json:"total_templates"`
}

// Overview is the summary block of the dashboard.
type Overview struct {
	Summary          aggregate.Summary `json:"summary"`
	ProCount         int               `json:"pro_count"`
	TeamCount        int               `json:"team_count"`
	EstimatedRevenue float64           `json:"estimated_revenue"`
	ActiveSubs       int               `json:"active_subscriptions"`
	IncompleteSubs   int               `json:"incomplete_subscriptions"`
	Statistics       Statistics        `json:"statistics"`
	BuiltAt          time.Time         `json:"built_at"`
}

// Dashboard is every derived view of one resource set. It is built once per
// fetch cycle and not modified afterwards.
type Dashboard struct {
	Users     []join.UserView
	Overview  Overview
	Workflows trigger.Metrics

	tables  map[TableID]export.Table
	columns map[TableID][]Column
}

// Build derives the dashboard from set.
func Build(set *types.ResourceSet) *Dashboard {
	return BuildAt(set, time.Now().UTC())
}

// BuildAt is Build with an explicit build time.
func BuildAt(set *types.ResourceSet, now time.Time) *Dashboard {
	users := set.Rows(types.ResourceUser)
	subs := set.Rows(types.ResourceSubscription)
	templates := set.Rows(types.ResourceTemplates)
	workflows := set.Rows(types.ResourceWorkflow)

	usersByID := join.UserIndex(users)
	views := join.Users(users,
		join.StatsIndex(set.Rows(types.ResourceUserStats)),
		join.SubscriptionIndex(subs))
	active, incomplete := aggregate.SplitSubscriptions(subs, usersByID)

	d := &Dashboard{
		Users:     views,
		Workflows: trigger.Summarize(workflows),
		tables:    make(map[TableID]export.Table, len(TableIDs)),
		columns:   make(map[TableID][]Column, len(TableIDs)),
	}

	userRows := make([]types.Row, len(views))
	for i, v := range views {
		userRows[i] = UserRecord(v)
	}
	d.put(UserManagement, UserColumns, userRows)

	subRows := make([]types.Row, len(subs))
	for i, s := range subs {
		subRows[i] = SubscriptionRecord(s, usersByID)
	}
	d.put(AllSubs, SubscriptionColumns, subRows)

	statusCols := subscriptionColumns(set)
	d.put(ActiveSubs, columnsFor(statusCols, statusSubColumns), withEmails(active, usersByID))
	d.put(IncompleteSubs, columnsFor(statusCols, statusSubColumns), withEmails(incomplete, usersByID))

	templateRows := make([]types.Row, len(templates))
	for i, t := range templates {
		templateRows[i] = TemplateRecord(t, usersByID)
	}
	d.put(TemplatesTable, TemplateColumns, templateRows)

	pro := aggregate.CountByPlan(subs, "pro")
	team := aggregate.CountByPlan(subs, "team")
	d.Overview = Overview{
		Summary:          aggregate.Summarize(set.Rows(types.ResourceUserStats)),
		ProCount:         pro,
		TeamCount:        team,
		EstimatedRevenue: aggregate.EstimatedRevenue(pro, team),
		ActiveSubs:       len(active),
		IncompleteSubs:   len(incomplete),
		Statistics: Statistics{
			TotalWorkflows: len(workflows),
			TotalTemplates: len(templates),
		},
		BuiltAt: now,
	}
	return d
}

func (d *Dashboard) put(id TableID, cols []Column, rows []types.Row) {
	d.columns[id] = cols
	d.tables[id] = export.Table{Columns: keys(cols), Rows: rows}
}

// subscriptionColumns is the subscription resource's column order with
// user_email appended when the resource does not carry it.
func subscriptionColumns(set *types.ResourceSet) []string {
	subs := set.Rows(types.ResourceSubscription)
	cols := set.Columns(types.ResourceSubscription)
	if len(cols) == 0 && len(subs) > 0 {
		cols = export.Columns(subs[0], nil)
	}
	out := append([]string(nil), cols...)
	for _, c := range out {
		if c == "user_email" {
			return out
		}
	}
	return append(out, "user_email")
}

func withEmails(subs []types.Row, usersByID index.Index) []types.Row {
	out := make([]types.Row, len(subs))
	for i, s := range subs {
		out[i] = WithUserEmail(s, usersByID)
	}
	return out
}

// Table returns a derived table in its natural order.
func (d *Dashboard) Table(id TableID) (export.Table, bool) {
	t, ok := d.tables[id]
	return t, ok
}

// Sorted returns a derived table with state applied.
func (d *Dashboard) Sorted(id TableID, state sorting.State) (export.Table, bool) {
	t, ok := d.tables[id]
	if !ok {
		return export.Table{}, false
	}
	t.Rows = state.Apply(string(id), t.Rows)
	return t, true
}

// Header is one rendered column header.
type Header struct {
	Column
	Indicator string `json:"indicator,omitempty"`
}

// Headers returns the column headers of a table with the sort indicator of
// the active column.
func (d *Dashboard) Headers(id TableID, state sorting.State) []Header {
	cols := d.columns[id]
	out := make([]Header, len(cols))
	for i, c := range cols {
		out[i] = Header{Column: c, Indicator: state.Indicator(string(id), c.Key)}
	}
	return out
}

// Columns returns the column descriptions of a table.
func (d *Dashboard) Columns(id TableID) []Column {
	return d.columns[id]
}
