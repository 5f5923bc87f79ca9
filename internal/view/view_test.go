package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgev2/forge-admin/internal/export"
	"github.com/forgev2/forge-admin/internal/sorting"
	"github.com/forgev2/forge-admin/pkg/types"
)

func testSet() *types.ResourceSet {
	set := types.NewResourceSet()
	set.Put(types.ResourceUser, []types.Row{
		{"id": "u1", "name": "Ann", "email": "ann@x", "email_verified": true, "created_at": "2024-01-02T03:04:05Z"},
		{"id": "u2", "name": "Bob", "email": "bob@x", "email_verified": false},
		{"id": "u3", "name": "Cy", "email": "ann@x"},
	}, []string{"id", "name", "email", "email_verified", "created_at"})
	set.Put(types.ResourceUserStats, []types.Row{
		{"user_id": "u1", "total_api_calls": 10.0, "total_cost": 2.5},
		{"user_id": "u2", "total_api_calls": 5.0, "total_cost": "1.5"},
	}, nil)
	set.Put(types.ResourceSubscription, []types.Row{
		{"id": "s1", "reference_id": "u1", "plan": "pro", "status": "active", "stripe_customer_id": "c1", "seats": 1.0},
		{"id": "s2", "reference_id": "u2", "plan": "team", "status": "active", "stripe_customer_id": "c2", "cancel_at_period_end": true},
		{"id": "s3", "reference_id": "u3", "plan": "pro", "status": "incomplete", "stripe_customer_id": "c3"},
		{"id": "s4", "reference_id": "u9", "plan": "pro", "status": "incomplete", "stripe_customer_id": "c4"},
	}, []string{"id", "reference_id", "plan", "status", "stripe_customer_id"})
	set.Put(types.ResourceWorkflow, []types.Row{{"name": "w1"}, {"name": "w2"}}, nil)
	set.Put(types.ResourceTemplates, []types.Row{
		{"id": "t1", "workflow_id": "w1", "user_id": "u1", "name": "Starter"},
		{"id": "t2", "workflow_id": "w2", "user_id": "ghost"},
	}, nil)
	return set
}

func TestBuild_Overview(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d := BuildAt(testSet(), now)

	require.Len(t, d.Users, 3)
	require.Equal(t, 15.0, d.Overview.Summary.TotalAPICalls)
	require.Equal(t, 4.0, d.Overview.Summary.TotalCost)
	require.Equal(t, 3, d.Overview.ProCount)
	require.Equal(t, 1, d.Overview.TeamCount)
	require.Equal(t, 100.0, d.Overview.EstimatedRevenue)
	require.Equal(t, 2, d.Overview.ActiveSubs)
	require.Equal(t, 1, d.Overview.IncompleteSubs)
	require.Equal(t, Statistics{TotalWorkflows: 2, TotalTemplates: 2}, d.Overview.Statistics)
	require.Equal(t, now, d.Overview.BuiltAt)
	require.Equal(t, 2, d.Workflows.TotalWorkflows)
}

func TestBuild_UserManagementCSV(t *testing.T) {
	t.Parallel()

	d := Build(testSet())
	tbl, ok := d.Table(UserManagement)
	require.True(t, ok)
	require.Equal(t, keys(UserColumns), tbl.Columns)

	row := tbl.Rows[2]
	require.Equal(t, "u3", row["user_id"])
	require.Equal(t, "No", row["email_verified"])
	require.Nil(t, row["total_api_calls"])
	require.Equal(t, "incomplete", row["subscription_status"])

	csv := export.CSV(tbl)
	require.Contains(t, csv, `"user_id","name","email","email_verified","created_at","plan"`)
	require.Contains(t, csv, `"u1","Ann","ann@x","Yes","2024-01-02T03:04:05Z","pro","active","10","2.5"`)
}

func TestBuild_SubscriptionTables(t *testing.T) {
	t.Parallel()

	d := Build(testSet())

	all, _ := d.Table(AllSubs)
	require.Len(t, all.Rows, 4)
	require.Equal(t, "bob@x", all.Rows[1]["user_email"])
	require.Equal(t, "Yes", all.Rows[1]["cancel_at_period_end"])
	require.Nil(t, all.Rows[3]["user_email"])

	active, _ := d.Table(ActiveSubs)
	require.Equal(t, []string{"id", "reference_id", "plan", "status", "stripe_customer_id", "user_email"}, active.Columns)
	require.Len(t, active.Rows, 2)
	require.Equal(t, "ann@x", active.Rows[0]["user_email"])

	incomplete, _ := d.Table(IncompleteSubs)
	require.Len(t, incomplete.Rows, 1)
	require.Equal(t, "s4", incomplete.Rows[0]["id"])
}

func TestBuild_Templates(t *testing.T) {
	t.Parallel()

	d := Build(testSet())
	tbl, _ := d.Table(TemplatesTable)
	require.Equal(t, "Ann", tbl.Rows[0]["user_name"])
	require.Equal(t, Placeholder, tbl.Rows[1]["user_name"])
	require.Equal(t, Placeholder, tbl.Rows[1]["user_email"])
}

func TestBuild_EmptySet(t *testing.T) {
	t.Parallel()

	d := Build(types.NewResourceSet())
	for _, id := range TableIDs {
		tbl, ok := d.Table(id)
		require.True(t, ok)
		require.Empty(t, tbl.Rows)
		require.Equal(t, "", export.CSV(tbl))
	}
	require.Zero(t, d.Overview.EstimatedRevenue)
}

func TestSortedAndHeaders(t *testing.T) {
	t.Parallel()

	d := Build(testSet())
	state := sorting.State{Table: string(AllSubs), Key: "subscription_id", Direction: sorting.Desc}

	tbl, ok := d.Sorted(AllSubs, state)
	require.True(t, ok)
	require.Equal(t, "s4", tbl.Rows[0]["subscription_id"])

	natural, _ := d.Table(AllSubs)
	require.Equal(t, "s1", natural.Rows[0]["subscription_id"])

	other, _ := d.Sorted(ActiveSubs, state)
	require.Equal(t, "s1", other.Rows[0]["id"])

	headers := d.Headers(AllSubs, state)
	require.Equal(t, sorting.DescIndicator, headers[0].Indicator)
	require.Equal(t, "", headers[1].Indicator)

	_, ok = d.Sorted("nope", state)
	require.False(t, ok)
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	require.Equal(t, "free", Display(Plan, nil))
	require.Equal(t, "free", Display(Plan, ""))
	require.Equal(t, "pro", Display(Plan, "pro"))
	require.Equal(t, "none", Display(Status, nil))
	require.Equal(t, "0", Display(Number, nil))
	require.Equal(t, "0", Display(Number, 0.0))
	require.Equal(t, "12.5", Display(Number, 12.5))
	require.Equal(t, Placeholder, Display(Optional, nil))
	require.Equal(t, "0", Display(Optional, 0.0))
	require.Equal(t, Placeholder, Display(Identifier, ""))
	require.Equal(t, Placeholder, Display(Date, nil))
	require.Equal(t, "2024-01-02 03:04:05", Display(Date, "2024-01-02T03:04:05Z"))
	require.Equal(t, "someday", Display(Date, "someday"))
	require.Equal(t, "Yes", Display(YesNo, "true"))
	require.Equal(t, "No", Display(YesNo, nil))
	require.Equal(t, "", Display(Text, nil))

	row := types.Row{"plan": nil, "seats": 2.0}
	require.Equal(t, []string{"free", "2"}, DisplayRow([]Column{
		{Key: "plan", Kind: Plan},
		{Key: "seats", Kind: Optional},
	}, row))
}

func TestParseTableID(t *testing.T) {
	t.Parallel()

	id, err := ParseTableID("active_subs")
	require.NoError(t, err)
	require.Equal(t, "active_subscriptions.csv", id.FileName())

	_, err = ParseTableID("payments")
	require.Error(t, err)

	require.Equal(t, "users.csv", UserManagement.FileName())
	require.Equal(t, "templates.csv", TemplatesTable.FileName())
}
