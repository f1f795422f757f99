package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScrapedText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses whitespace", "  Roma   Tomatoes\t5kg ", "Roma Tomatoes 5kg"},
		{"non-breaking spaces", "Olive Oil 4L", "Olive Oil 4L"},
		{"full-width characters", "ＤＯＺＥＮ", "DOZEN"},
		{"newlines inside cell", "Free Range\nEggs", "Free Range Eggs"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeScrapedText(tt.input))
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"dairy & eggs", "Dairy & Eggs"},
		{"PRODUCE", "Produce"},
		{"dry  goods", "Dry Goods"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeCategory(tt.input))
		})
	}
}
