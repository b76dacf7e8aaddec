package cache

import (
	"sort"
	"strings"
)

// BuildKey renders a deterministic cache key: kind, then the project scope
// if any, then every non-empty parameter as name:value in name order.
//
//	BuildKey("daily", "p", map[string]string{"start": "2025-01-01"})
//	// "daily:project:p:start:2025-01-01"
func BuildKey(kind, project string, params map[string]string) string {
	parts := []string{kind}
	if project != "" {
		parts = append(parts, "project", project)
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name, params[name])
	}
	return strings.Join(parts, ":")
}
