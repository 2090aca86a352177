package driver

import "sort"

// Registry defines the interface for driver registry operations
type Registry interface {
	IsEnabled(name string) bool
}

// SetRegistry is a Registry backed by a fixed set of names.
type SetRegistry struct {
	enabled map[string]struct{}
}

// NewRegistry constructs a registry from the provided enabled names.
// An empty list enables every supported driver.
func NewRegistry(enabled []string) *SetRegistry {
	if len(enabled) == 0 {
		enabled = []string{SQLite, Postgres, MySQL, SQLServer}
	}
	m := make(map[string]struct{}, len(enabled))
	for _, n := range enabled {
		if n == "" {
			continue
		}
		m[Normalize(n)] = struct{}{}
	}
	return &SetRegistry{enabled: m}
}

// IsEnabled returns true if the driver name is enabled.
func (r *SetRegistry) IsEnabled(name string) bool {
	_, ok := r.enabled[name]
	return ok
}

// List returns a sorted list of enabled driver names.
func (r *SetRegistry) List() []string {
	out := make([]string, 0, len(r.enabled))
	for n := range r.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
