package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	rain := Weather{Condition: ConditionRain}
	clear := Weather{Condition: ConditionClear}

	tests := []struct {
		name      string
		issueType IssueType
		weather   Weather
		want      Classification
	}{
		{"pothole in rain", IssuePothole, rain, Classification{PriorityCritical, true}},
		{"manhole in rain", IssueManhole, rain, Classification{PriorityCritical, true}},
		{"water leak in rain", IssueWaterLeak, rain, Classification{PriorityCritical, true}},
		{"waste in rain", IssueWaste, rain, Classification{PriorityMedium, false}},
		{"streetlight in rain", IssueStreetlight, rain, Classification{PriorityMedium, false}},
		{"manhole in clear weather", IssueManhole, clear, Classification{PriorityHigh, false}},
		{"pothole in clear weather", IssuePothole, clear, Classification{PriorityMedium, false}},
		{"waste in clear weather", IssueWaste, clear, Classification{PriorityMedium, false}},
		{"pothole with neutral fallback", IssuePothole, NeutralWeather(), Classification{PriorityMedium, false}},
		{"manhole with neutral fallback", IssueManhole, NeutralWeather(), Classification{PriorityHigh, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.issueType, tt.weather))
		})
	}
}

func TestClassifyPrecipitationWithoutRainCondition(t *testing.T) {
	// Some providers report drizzle as cloudy with a nonzero precipitation
	// rate; that still counts as active rain.
	wet := Weather{Condition: ConditionCloudy, PrecipitationMM: 0.4}

	got := Classify(IssuePothole, wet)

	assert.True(t, got.IsRainyHazard)
	assert.Equal(t, PriorityCritical, got.Priority)
}

func TestClassifyUnknownIssueType(t *testing.T) {
	// Total over arbitrary input: an unrecognized type is never a hazard.
	got := Classify(IssueType("graffiti"), Weather{Condition: ConditionRain})

	assert.False(t, got.IsRainyHazard)
	assert.Equal(t, PriorityMedium, got.Priority)
}
