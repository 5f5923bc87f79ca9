// Package trigger classifies workflows by the trigger configured on their
// starter block and summarizes deployment and run metrics.
package trigger

import (
	"encoding/json"
	"sort"

	"github.com/forgev2/forge-admin/pkg/types"
)

// Type is a workflow trigger category.
type Type string

const (
	Manual    Type = "manual"
	Webhook   Type = "webhook"
	Scheduled Type = "scheduled"
	Other     Type = "other"
)

// Types lists every category in tie-break order.
var Types = []Type{Manual, Webhook, Scheduled, Other}

// Fallback reasons.
const (
	ReasonNoState        = "workflow has no state"
	ReasonNoBlocks       = "workflow state has no blocks"
	ReasonNoStarter      = "no starter block"
	ReasonNoStartSetting = "starter block has no startWorkflow setting"
)

var scheduleValues = map[string]struct{}{
	"schedule": {},
	"daily":    {},
	"weekly":   {},
	"monthly":  {},
	"hourly":   {},
}

// Classification is the outcome of classifying one workflow. Fallback is set
// when the state could not be read and Manual was assumed; Reason says why.
type Classification struct {
	Type     Type   `json:"type"`
	Reason   string `json:"reason,omitempty"`
	Fallback bool   `json:"fallback"`
}

// Classify reads state.blocks, finds the starter block and maps its
// startWorkflow value to a trigger type. Unreadable state falls back to
// Manual. A state stored as a JSON string is decoded first.
func Classify(workflow types.Row) Classification {
	state, ok := asObject(workflow.Get("state"))
	if !ok {
		return fallback(ReasonNoState)
	}
	blocks, ok := blockList(state["blocks"])
	if !ok {
		return fallback(ReasonNoBlocks)
	}

	var starter map[string]interface{}
	for _, b := range blocks {
		if t, _ := b["type"].(string); t == "starter" {
			starter = b
			break
		}
	}
	if starter == nil {
		return fallback(ReasonNoStarter)
	}

	sub, _ := starter["subBlocks"].(map[string]interface{})
	if sub == nil || !types.Truthy(sub["startWorkflow"]) {
		return fallback(ReasonNoStartSetting)
	}

	var value interface{}
	if sw, ok := sub["startWorkflow"].(map[string]interface{}); ok {
		value = sw["value"]
	}
	s, _ := value.(string)
	switch {
	case s == "manual":
		return Classification{Type: Manual}
	case s == "webhook":
		return Classification{Type: Webhook}
	}
	if _, ok := scheduleValues[s]; ok {
		return Classification{Type: Scheduled}
	}
	return Classification{Type: Other}
}

func fallback(reason string) Classification {
	return Classification{Type: Manual, Reason: reason, Fallback: true}
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case types.Row:
		return t, true
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(t), &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// blockList returns the blocks in a stable order: object blocks by sorted
// key, array blocks by position. Non-object entries are ignored.
func blockList(v interface{}) ([]map[string]interface{}, bool) {
	var out []map[string]interface{}
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if b, ok := t[k].(map[string]interface{}); ok {
				out = append(out, b)
			}
		}
	case []interface{}:
		for _, e := range t {
			if b, ok := e.(map[string]interface{}); ok {
				out = append(out, b)
			}
		}
	default:
		return nil, false
	}
	return out, true
}
