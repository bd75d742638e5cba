package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims and drops empties",
			input:    []string{"  a ", "", "   ", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "keeps first occurrence",
			input:    []string{"a", "b", "a", "c", "b"},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "case variants are distinct",
			input:    []string{"A", "a"},
			expected: []string{"A", "a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{
			name:     "case variants collapse",
			input:    []string{" 5D8E2AAC ", "5d8e2aac", "other"},
			expected: []string{"5d8e2aac", "other"},
		},
		{
			name:     "whitespace only is dropped",
			input:    []string{"  ", "X"},
			expected: []string{"x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
