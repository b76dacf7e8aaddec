package util

import (
	"regexp"
	"sort"
	"strings"
)

var datedModelPattern = regexp.MustCompile(`^claude-(.+)-(\d{8})$`)

// SimplifyModelName turns "claude-opus-4-20250514" into "Opus-4".
// Names that do not follow the dated pattern are returned unchanged.
func SimplifyModelName(modelName string) string {
	matches := datedModelPattern.FindStringSubmatch(modelName)
	if len(matches) != 3 || matches[1] == "" {
		return modelName
	}
	part := matches[1]
	return strings.ToUpper(part[:1]) + part[1:]
}

// ModelFamilyOrder ranks model families for display: opus, sonnet, haiku, then the rest.
func ModelFamilyOrder(modelName string) int {
	lower := strings.ToLower(modelName)
	switch {
	case strings.Contains(lower, "opus"):
		return 1
	case strings.Contains(lower, "sonnet"):
		return 2
	case strings.Contains(lower, "haiku"):
		return 3
	default:
		return 100
	}
}

// SortModels returns a sorted copy of models, by family then name.
func SortModels(models []string) []string {
	sorted := make([]string, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := ModelFamilyOrder(sorted[i]), ModelFamilyOrder(sorted[j])
		if oi != oj {
			return oi < oj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}
