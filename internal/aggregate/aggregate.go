// Package aggregate computes usage and subscription statistics.
package aggregate

import (
	"github.com/forgev2/forge-admin/internal/index"
	"github.com/forgev2/forge-admin/pkg/types"
)

// Plan prices in USD per month used for the revenue estimate.
const (
	ProPlanPrice  = 20
	TeamPlanPrice = 40
)

// Summary holds the totals over every user_stats row.
type Summary struct {
	TotalManualExecutions    float64 `json:"total_manual_executions"`
	TotalAPICalls            float64 `json:"total_api_calls"`
	TotalWebhookTriggers     float64 `json:"total_webhook_triggers"`
	TotalScheduledExecutions float64 `json:"total_scheduled_executions"`
	TotalTokensUsed          float64 `json:"total_tokens_used"`
	TotalChatExecutions      float64 `json:"total_chat_executions"`
	TotalCost                float64 `json:"total_cost"`
}

// Summarize folds stats rows into a Summary. Missing or non-numeric fields
// contribute zero.
func Summarize(stats []types.Row) Summary {
	var s Summary
	for _, row := range stats {
		if row == nil {
			continue
		}
		s.TotalManualExecutions += number(row, "total_manual_executions")
		s.TotalAPICalls += number(row, "total_api_calls")
		s.TotalWebhookTriggers += number(row, "total_webhook_triggers")
		s.TotalScheduledExecutions += number(row, "total_scheduled_executions")
		s.TotalTokensUsed += number(row, "total_tokens_used")
		s.TotalChatExecutions += number(row, "total_chat_executions")
		s.TotalCost += number(row, "total_cost")
	}
	return s
}

func number(row types.Row, key string) float64 {
	f, ok := types.ToNumber(row.Get(key))
	if !ok {
		return 0
	}
	return f
}

// CountByPlan counts subscriptions whose plan equals plan exactly.
func CountByPlan(subs []types.Row, plan string) int {
	n := 0
	for _, s := range subs {
		if p, ok := s.Get("plan").(string); ok && p == plan {
			n++
		}
	}
	return n
}

// FilterByStatus returns subscriptions with the given status that are linked
// to a Stripe customer. Input order is preserved.
func FilterByStatus(subs []types.Row, status string) []types.Row {
	out := make([]types.Row, 0)
	for _, s := range subs {
		st, ok := s.Get("status").(string)
		if !ok || st != status {
			continue
		}
		if !types.Truthy(s.Get("stripe_customer_id")) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SplitSubscriptions returns the active and incomplete subscriptions.
// Incomplete subscriptions whose user shares an email with any active
// subscription's user are dropped; usersByID must be keyed by user id.
//
// The match is by email, not by user id, so two accounts with the same email
// hide each other's stale checkouts.
func SplitSubscriptions(subs []types.Row, usersByID index.Index) (active, incomplete []types.Row) {
	active = FilterByStatus(subs, "active")

	activeEmails := make(map[string]struct{}, len(active))
	for _, s := range active {
		if email := UserEmail(s, usersByID); types.Truthy(email) {
			activeEmails[types.ToString(email)] = struct{}{}
		}
	}

	incomplete = make([]types.Row, 0)
	for _, s := range FilterByStatus(subs, "incomplete") {
		email := UserEmail(s, usersByID)
		if email != nil {
			if _, dup := activeEmails[types.ToString(email)]; dup {
				continue
			}
		}
		incomplete = append(incomplete, s)
	}
	return active, incomplete
}

// UserEmail returns the email of the user a subscription references, or nil.
func UserEmail(sub types.Row, usersByID index.Index) interface{} {
	u, ok := usersByID.Get(sub.Get("reference_id"))
	if !ok {
		return nil
	}
	return u.Get("email")
}

// EstimatedRevenue returns the monthly revenue estimate for the given plan
// counts.
func EstimatedRevenue(pro, team int) float64 {
	return float64(pro*ProPlanPrice + team*TeamPlanPrice)
}
