package trigger

import (
	"sort"
	"time"

	"github.com/forgev2/forge-admin/pkg/types"
)

// MaxRecentDeployments caps Metrics.RecentDeployments.
const MaxRecentDeployments = 10

// Counts holds per-category workflow counts.
type Counts struct {
	Total      int `json:"total"`
	Deployed   int `json:"deployed"`
	InProgress int `json:"in_progress"`
}

// ByTrigger holds Counts for every trigger category.
type ByTrigger struct {
	Manual    Counts `json:"manual"`
	Webhook   Counts `json:"webhook"`
	Scheduled Counts `json:"scheduled"`
	Other     Counts `json:"other"`
}

// Get returns the counts for t.
func (b *ByTrigger) Get(t Type) *Counts {
	switch t {
	case Webhook:
		return &b.Webhook
	case Scheduled:
		return &b.Scheduled
	case Other:
		return &b.Other
	default:
		return &b.Manual
	}
}

// Deployment is an entry of the recent deployments list.
type Deployment struct {
	Name       interface{} `json:"name"`
	DeployedAt interface{} `json:"deployed_at"`
	UserID     interface{} `json:"user_id"`
	RunCount   interface{} `json:"run_count"`
}

// Metrics summarizes a workflow collection.
type Metrics struct {
	TotalWorkflows      int          `json:"total_workflows"`
	DeployedWorkflows   int          `json:"deployed_workflows"`
	InProgressWorkflows int          `json:"in_progress_workflows"`
	ByTriggerType       ByTrigger    `json:"by_trigger_type"`
	DeploymentRate      float64      `json:"deployment_rate"`
	TotalRunCount       int64        `json:"total_run_count"`
	AverageRunCount     float64      `json:"average_run_count"`
	ActiveWorkflows     int          `json:"active_workflows"`
	ActiveRate          float64      `json:"active_rate"`
	RecentDeployments   []Deployment `json:"recent_deployments"`
	MostPopular         Type         `json:"most_popular"`
	Fallbacks           int          `json:"fallbacks"`
}

// IsDeployed reports whether is_deployed is true or the string "true".
func IsDeployed(w types.Row) bool {
	switch v := w.Get("is_deployed").(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// RunCount returns the leading integer of run_count, or 0.
func RunCount(w types.Row) int64 {
	n, ok := types.ParseIntPrefix(w.Get("run_count"))
	if !ok {
		return 0
	}
	return n
}

// Summarize computes Metrics over workflows. Rates are percentages and are
// zero for an empty collection.
func Summarize(workflows []types.Row) Metrics {
	m := Metrics{
		RecentDeployments: []Deployment{},
		MostPopular:       Manual,
	}
	if len(workflows) == 0 {
		return m
	}

	type dated struct {
		row types.Row
		at  time.Time
		ok  bool
		pos int
	}
	var deployed []dated

	for i, w := range workflows {
		if w == nil {
			w = types.Row{}
		}
		m.TotalWorkflows++

		c := Classify(w)
		if c.Fallback {
			m.Fallbacks++
		}
		counts := m.ByTriggerType.Get(c.Type)
		counts.Total++

		if IsDeployed(w) {
			m.DeployedWorkflows++
			counts.Deployed++
			if types.Truthy(w.Get("deployed_at")) {
				at, ok := types.ParseTime(w.Get("deployed_at"))
				deployed = append(deployed, dated{row: w, at: at, ok: ok, pos: i})
			}
		} else {
			counts.InProgress++
		}

		runs := RunCount(w)
		m.TotalRunCount += runs
		if runs > 0 {
			m.ActiveWorkflows++
		}
	}

	m.InProgressWorkflows = m.TotalWorkflows - m.DeployedWorkflows
	total := float64(m.TotalWorkflows)
	m.DeploymentRate = float64(m.DeployedWorkflows) / total * 100
	m.AverageRunCount = float64(m.TotalRunCount) / total
	m.ActiveRate = float64(m.ActiveWorkflows) / total * 100

	// newest first; unparsable dates last
	sort.SliceStable(deployed, func(i, j int) bool {
		a, b := deployed[i], deployed[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.at.After(b.at)
	})
	if len(deployed) > MaxRecentDeployments {
		deployed = deployed[:MaxRecentDeployments]
	}
	for _, d := range deployed {
		rc := d.row.Get("run_count")
		if !types.Truthy(rc) {
			rc = 0
		}
		m.RecentDeployments = append(m.RecentDeployments, Deployment{
			Name:       d.row.Get("name"),
			DeployedAt: d.row.Get("deployed_at"),
			UserID:     d.row.Get("user_id"),
			RunCount:   rc,
		})
	}

	best := Manual
	for _, t := range Types[1:] {
		if m.ByTriggerType.Get(t).Total > m.ByTriggerType.Get(best).Total {
			best = t
		}
	}
	m.MostPopular = best

	return m
}
