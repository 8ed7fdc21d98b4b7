package analyzer_test

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/journal-migrate/internal/analyzer"
)

func TestSeverity_String_allLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity analyzer.Severity
		expected string
	}{
		{analyzer.Safe, "SAFE"},
		{analyzer.Low, "LOW"},
		{analyzer.Medium, "MEDIUM"},
		{analyzer.High, "HIGH"},
		{analyzer.Critical, "CRITICAL"},
		{analyzer.Severity(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.severity.String())
		})
	}
}

func TestSeverity_Color_allLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity analyzer.Severity
		expected *color.Color
		name     string
	}{
		{analyzer.Safe, color.New(color.FgGreen), "Safe_green"},
		{analyzer.Low, color.New(color.FgCyan), "Low_cyan"},
		{analyzer.Medium, color.New(color.FgYellow), "Medium_yellow"},
		{analyzer.High, color.New(color.FgRed), "High_red"},
		{analyzer.Critical, color.New(color.FgHiRed, color.Bold), "Critical_boldBrightRed"},
		{analyzer.Severity(99), color.New(color.Reset), "Unknown_reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.expected.Equals(tt.severity.Color()))
		})
	}
}

func TestSeverity_Label_containsName(t *testing.T) {
	t.Parallel()

	assert.Contains(t, analyzer.Critical.Label(), "CRITICAL")
}
