package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplifyModelName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-opus-4-20250514", "Opus-4"},
		{"claude-3-haiku-20240307", "3-haiku"},
		{"claude-sonnet-4-5", "claude-sonnet-4-5"},
		{"unknown", "unknown"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SimplifyModelName(tt.input))
		})
	}
}

func TestSortModels(t *testing.T) {
	input := []string{"unknown", "claude-3-haiku-20240307", "claude-sonnet-4-20250514", "claude-opus-4-20250514"}
	sorted := SortModels(input)

	assert.Equal(t, []string{
		"claude-opus-4-20250514",
		"claude-sonnet-4-20250514",
		"claude-3-haiku-20240307",
		"unknown",
	}, sorted)
	assert.Equal(t, "unknown", input[0], "input must not be mutated")
}
