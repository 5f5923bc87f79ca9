package types

import "fmt"

// Field documents one column of a resource. Required fields are the join and
// classification keys; every other field is optional and may be absent.
type Field struct {
	Name     string
	Required bool
}

// Fields lists the columns the dashboard reads from each consumed resource.
// Resources not listed are fetched but never transformed.
var Fields = map[ResourceName][]Field{
	ResourceUser: {
		{Name: "id", Required: true},
		{Name: "name"},
		{Name: "email"},
		{Name: "email_verified"},
		{Name: "created_at"},
	},
	ResourceUserStats: {
		{Name: "user_id", Required: true},
		{Name: "total_manual_executions"},
		{Name: "total_api_calls"},
		{Name: "total_webhook_triggers"},
		{Name: "total_scheduled_executions"},
		{Name: "total_tokens_used"},
		{Name: "total_chat_executions"},
		{Name: "total_cost"},
		{Name: "current_usage_limit"},
		{Name: "usage_limit_updated_at"},
		{Name: "current_period_cost"},
		{Name: "last_period_cost"},
		{Name: "last_active"},
	},
	ResourceSubscription: {
		{Name: "id"},
		{Name: "reference_id", Required: true},
		{Name: "plan"},
		{Name: "status"},
		{Name: "stripe_customer_id"},
		{Name: "stripe_subscription_id"},
		{Name: "period_start"},
		{Name: "period_end"},
		{Name: "cancel_at_period_end"},
		{Name: "seats"},
	},
	ResourceWorkflow: {
		{Name: "id"},
		{Name: "name"},
		{Name: "user_id"},
		{Name: "state"},
		{Name: "is_deployed"},
		{Name: "deployed_at"},
		{Name: "run_count"},
	},
	ResourceTemplates: {
		{Name: "id"},
		{Name: "workflow_id"},
		{Name: "user_id"},
		{Name: "name"},
		{Name: "description"},
		{Name: "author"},
		{Name: "views"},
		{Name: "stars"},
		{Name: "color"},
		{Name: "icon"},
		{Name: "category"},
		{Name: "created_at"},
		{Name: "updated_at"},
	},
}

// Issue describes a row that lacks a required field.
type Issue struct {
	Resource ResourceName
	Row      int
	Field    string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%d]: missing %s", i.Resource, i.Row, i.Field)
}

// Validate reports every row of resource that lacks a required field. Rows
// with issues are still usable; the join treats them as unmatched.
func Validate(resource ResourceName, rows []Row) []Issue {
	var required []string
	for _, f := range Fields[resource] {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	if len(required) == 0 {
		return nil
	}

	var issues []Issue
	for i, row := range rows {
		for _, name := range required {
			if !row.Has(name) {
				issues = append(issues, Issue{Resource: resource, Row: i, Field: name})
			}
		}
	}
	return issues
}
