// Package view projects the joined and aggregated data into the dashboard's
// derived tables and applies display defaults in one place.
package view

import (
	"fmt"

	"github.com/forgev2/forge-admin/pkg/types"
)

// TableID names a derived table.
type TableID string

const (
	UserManagement TableID = "user_management"
	AllSubs        TableID = "all_subs"
	ActiveSubs     TableID = "active_subs"
	IncompleteSubs TableID = "incomplete_subs"
	TemplatesTable TableID = "templates"
)

// TableIDs lists every derived table.
var TableIDs = []TableID{UserManagement, AllSubs, ActiveSubs, IncompleteSubs, TemplatesTable}

var fileNames = map[TableID]string{
	UserManagement: "users.csv",
	AllSubs:        "subscriptions.csv",
	ActiveSubs:     "active_subscriptions.csv",
	IncompleteSubs: "incomplete_subscriptions.csv",
	TemplatesTable: "templates.csv",
}

// ParseTableID validates a table name.
func ParseTableID(s string) (TableID, error) {
	for _, id := range TableIDs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown table %q", s)
}

// FileName returns the CSV download name of a table.
func (id TableID) FileName() string {
	if name, ok := fileNames[id]; ok {
		return name
	}
	return string(id) + ".csv"
}

// Kind selects the display default of a column.
type Kind int

const (
	// Text shows the value as is; null shows as empty.
	Text Kind = iota
	// Identifier shows a placeholder when the value is unset.
	Identifier
	// Number shows 0 when the value is null.
	Number
	// Optional shows a placeholder when the value is null.
	Optional
	// Date formats a timestamp and shows a placeholder when unset.
	Date
	// Plan shows "free" when unset.
	Plan
	// Status shows "none" when unset.
	Status
	// YesNo renders a truthiness flag.
	YesNo
)

// Placeholder is shown for unset values.
const Placeholder = "—"

// Column describes one column of a derived table.
type Column struct {
	Key    string `json:"key"`
	Header string `json:"header"`
	Kind   Kind   `json:"-"`
}

// UserColumns is the user_management projection, in export order.
var UserColumns = []Column{
	{Key: "user_id", Header: "User ID", Kind: Identifier},
	{Key: "name", Header: "Name"},
	{Key: "email", Header: "Email"},
	{Key: "email_verified", Header: "Email Verified"},
	{Key: "created_at", Header: "Created At", Kind: Date},
	{Key: "plan", Header: "Plan", Kind: Plan},
	{Key: "subscription_status", Header: "Subscription Status", Kind: Status},
	{Key: "total_api_calls", Header: "API Calls", Kind: Number},
	{Key: "total_cost", Header: "Total Cost", Kind: Number},
	{Key: "total_manual_executions", Header: "Manual Executions", Kind: Number},
	{Key: "total_webhook_triggers", Header: "Webhook Triggers", Kind: Number},
	{Key: "total_scheduled_executions", Header: "Scheduled Executions", Kind: Number},
	{Key: "total_tokens_used", Header: "Tokens Used", Kind: Number},
	{Key: "total_chat_executions", Header: "Chat Executions", Kind: Number},
	{Key: "current_usage_limit", Header: "Usage Limit", Kind: Optional},
	{Key: "usage_limit_updated_at", Header: "Limit Updated At", Kind: Date},
	{Key: "current_period_cost", Header: "Current Period Cost", Kind: Number},
	{Key: "last_period_cost", Header: "Last Period Cost", Kind: Number},
	{Key: "last_active", Header: "Last Active", Kind: Date},
	{Key: "seats", Header: "Seats", Kind: Optional},
}

// SubscriptionColumns is the all_subs projection, in export order.
var SubscriptionColumns = []Column{
	{Key: "subscription_id", Header: "Subscription ID"},
	{Key: "plan", Header: "Plan"},
	{Key: "status", Header: "Status"},
	{Key: "stripe_customer_id", Header: "Stripe Customer"},
	{Key: "stripe_subscription_id", Header: "Stripe Sub ID", Kind: Identifier},
	{Key: "user_email", Header: "User Email", Kind: Identifier},
	{Key: "period_start", Header: "Period Start", Kind: Date},
	{Key: "period_end", Header: "Period End", Kind: Date},
	{Key: "cancel_at_period_end", Header: "Cancel at Period End"},
	{Key: "seats", Header: "Seats", Kind: Optional},
}

// statusSubColumns describes the known columns of the active and incomplete
// tables; other subscription columns display as text.
var statusSubColumns = []Column{
	{Key: "id", Header: "Subscription ID"},
	{Key: "plan", Header: "Plan"},
	{Key: "status", Header: "Status"},
	{Key: "stripe_customer_id", Header: "Stripe Customer"},
	{Key: "stripe_subscription_id", Header: "Stripe Sub ID", Kind: Identifier},
	{Key: "user_email", Header: "User Email", Kind: Identifier},
	{Key: "period_start", Header: "Period Start", Kind: Date},
	{Key: "period_end", Header: "Period End", Kind: Date},
	{Key: "cancel_at_period_end", Header: "Cancel at Period End", Kind: YesNo},
	{Key: "seats", Header: "Seats", Kind: Optional},
}

// TemplateColumns is the templates projection, in export order.
var TemplateColumns = []Column{
	{Key: "workflow_id", Header: "Workflow ID"},
	{Key: "user_name", Header: "User Name"},
	{Key: "user_email", Header: "User Email"},
	{Key: "name", Header: "Name"},
	{Key: "description", Header: "Description"},
	{Key: "author", Header: "Author"},
	{Key: "views", Header: "Views"},
	{Key: "stars", Header: "Stars"},
	{Key: "color", Header: "Color"},
	{Key: "icon", Header: "Icon"},
	{Key: "category", Header: "Category"},
	{Key: "created_at", Header: "Created At", Kind: Date},
	{Key: "updated_at", Header: "Updated At", Kind: Date},
}

func keys(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Key
	}
	return out
}

// columnsFor returns the column descriptions for keys, looking each key up in
// known and falling back to a text column headed by the key.
func columnsFor(keys []string, known []Column) []Column {
	byKey := make(map[string]Column, len(known))
	for _, c := range known {
		byKey[c.Key] = c
	}
	out := make([]Column, len(keys))
	for i, k := range keys {
		if c, ok := byKey[k]; ok {
			out[i] = c
		} else {
			out[i] = Column{Key: k, Header: k}
		}
	}
	return out
}

// Display renders a single value for presentation.
func Display(kind Kind, v interface{}) string {
	switch kind {
	case Identifier:
		if !types.Truthy(v) {
			return Placeholder
		}
	case Number:
		if v == nil {
			return "0"
		}
	case Optional:
		if v == nil {
			return Placeholder
		}
	case Date:
		if !types.Truthy(v) {
			return Placeholder
		}
		if t, ok := types.ParseTime(v); ok {
			return t.UTC().Format("2006-01-02 15:04:05")
		}
	case Plan:
		if !types.Truthy(v) {
			return "free"
		}
	case Status:
		if !types.Truthy(v) {
			return "none"
		}
	case YesNo:
		return yesNo(v)
	}
	return types.ToString(v)
}

// DisplayRow renders row for presentation in column order.
func DisplayRow(cols []Column, row types.Row) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = Display(c.Kind, row.Get(c.Key))
	}
	return out
}

func yesNo(v interface{}) string {
	if types.Truthy(v) {
		return "Yes"
	}
	return "No"
}
