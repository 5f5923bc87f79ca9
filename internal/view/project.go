package view

import (
	"github.com/forgev2/forge-admin/internal/aggregate"
	"github.com/forgev2/forge-admin/internal/index"
	"github.com/forgev2/forge-admin/internal/join"
	"github.com/forgev2/forge-admin/pkg/types"
)

// UserRecord flattens a composite view into the user_management row.
// Unmatched stats and subscription fields stay null so exports leave them
// empty; display defaults are applied by Display.
func UserRecord(v join.UserView) types.Row {
	u, st, sub := v.User, v.Stats, v.Subscription
	return types.Row{
		"user_id":                    u.Get("id"),
		"name":                       u.Get("name"),
		"email":                      u.Get("email"),
		"email_verified":             yesNo(u.Get("email_verified")),
		"created_at":                 u.Get("created_at"),
		"plan":                       sub.Get("plan"),
		"subscription_status":        sub.Get("status"),
		"total_api_calls":            st.Get("total_api_calls"),
		"total_cost":                 st.Get("total_cost"),
		"total_manual_executions":    st.Get("total_manual_executions"),
		"total_webhook_triggers":     st.Get("total_webhook_triggers"),
		"total_scheduled_executions": st.Get("total_scheduled_executions"),
		"total_tokens_used":          st.Get("total_tokens_used"),
		"total_chat_executions":      st.Get("total_chat_executions"),
		"current_usage_limit":        st.Get("current_usage_limit"),
		"usage_limit_updated_at":     st.Get("usage_limit_updated_at"),
		"current_period_cost":        st.Get("current_period_cost"),
		"last_period_cost":           st.Get("last_period_cost"),
		"last_active":                st.Get("last_active"),
		"seats":                      sub.Get("seats"),
	}
}

// SubscriptionRecord flattens a subscription into the all_subs row.
func SubscriptionRecord(s types.Row, usersByID index.Index) types.Row {
	return types.Row{
		"subscription_id":        s.Get("id"),
		"plan":                   s.Get("plan"),
		"status":                 s.Get("status"),
		"stripe_customer_id":     s.Get("stripe_customer_id"),
		"stripe_subscription_id": s.Get("stripe_subscription_id"),
		"user_email":             aggregate.UserEmail(s, usersByID),
		"period_start":           s.Get("period_start"),
		"period_end":             s.Get("period_end"),
		"cancel_at_period_end":   yesNo(s.Get("cancel_at_period_end")),
		"seats":                  s.Get("seats"),
	}
}

// WithUserEmail copies a subscription row and adds the referenced user's
// email as user_email.
func WithUserEmail(s types.Row, usersByID index.Index) types.Row {
	out := s.Clone()
	out["user_email"] = aggregate.UserEmail(s, usersByID)
	return out
}

// TemplateRecord flattens a template and attaches its author's name and
// email, with placeholders when the user is unknown or the field is unset.
func TemplateRecord(t types.Row, usersByID index.Index) types.Row {
	u := usersByID.GetOrEmpty(t.Get("user_id"))
	row := types.Row{
		"user_name":  placeholder(u.Get("name")),
		"user_email": placeholder(u.Get("email")),
	}
	for _, c := range TemplateColumns {
		if _, set := row[c.Key]; !set {
			row[c.Key] = t.Get(c.Key)
		}
	}
	return row
}

func placeholder(v interface{}) interface{} {
	if !types.Truthy(v) {
		return Placeholder
	}
	return v
}
