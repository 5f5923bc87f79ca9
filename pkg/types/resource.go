package types

import "fmt"

// ResourceName identifies one of the backend resources served under /data/{resource}.
type ResourceName string

const (
	ResourceAccount             ResourceName = "account"
	ResourceTemplates           ResourceName = "templates"
	ResourceSession             ResourceName = "session"
	ResourceSubscription        ResourceName = "subscription"
	ResourceUser                ResourceName = "user"
	ResourceUserStats           ResourceName = "user_stats"
	ResourceWorkflow            ResourceName = "workflow"
	ResourceWorkspace           ResourceName = "workspace"
	ResourceWorkspaceInvitation ResourceName = "workspace_invitation"
)

// AllResources is the fixed, ordered list of resources fetched on every cycle.
var AllResources = []ResourceName{
	ResourceAccount,
	ResourceTemplates,
	ResourceSession,
	ResourceSubscription,
	ResourceUser,
	ResourceUserStats,
	ResourceWorkflow,
	ResourceWorkspace,
	ResourceWorkspaceInvitation,
}

// ParseResource validates a resource name against AllResources.
func ParseResource(s string) (ResourceName, error) {
	for _, r := range AllResources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// ResourceSet holds the rows of every fetched resource for one fetch cycle.
// It is filled once by the fetcher and treated as read-only afterwards; a new
// cycle produces a new set.
type ResourceSet struct {
	rows    map[ResourceName][]Row
	columns map[ResourceName][]string
}

// NewResourceSet creates an empty resource set.
func NewResourceSet() *ResourceSet {
	return &ResourceSet{
		rows:    make(map[ResourceName][]Row),
		columns: make(map[ResourceName][]string),
	}
}

// Put stores the rows of a resource together with the column order observed
// in its first row. rows may be nil; it is stored as an empty slice.
func (s *ResourceSet) Put(name ResourceName, rows []Row, columns []string) {
	if rows == nil {
		rows = []Row{}
	}
	s.rows[name] = rows
	s.columns[name] = columns
}

// Rows returns the rows of a resource, never nil.
func (s *ResourceSet) Rows(name ResourceName) []Row {
	if s == nil {
		return []Row{}
	}
	if rows, ok := s.rows[name]; ok {
		return rows
	}
	return []Row{}
}

// Columns returns the column order of a resource, or nil when unknown.
func (s *ResourceSet) Columns(name ResourceName) []string {
	if s == nil {
		return nil
	}
	return s.columns[name]
}

// Has reports whether the set covers the named resource.
func (s *ResourceSet) Has(name ResourceName) bool {
	if s == nil {
		return false
	}
	_, ok := s.rows[name]
	return ok
}

// Len returns the number of resources in the set.
func (s *ResourceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}
