package domain

// rainAmplified marks the issue types where active rain materially worsens
// danger: exposed holes and water hazards. Waste and streetlight issues are
// unpleasant in rain but not more dangerous.
var rainAmplified = map[IssueType]bool{
	IssuePothole:   true,
	IssueManhole:   true,
	IssueWaterLeak: true,
}

// Classification is the one-time hazard decision made at submission. It
// feeds both the report's priority and the map layer's visual treatment.
type Classification struct {
	Priority      Priority
	IsRainyHazard bool
}

// Classify decides whether a report should be flagged as a weather hazard
// and what priority it receives. Pure and total: it never fails, and any
// weather-lookup failure is the caller's problem (substitute
// NeutralWeather before calling).
//
// A report is a rainy hazard iff the snapshot indicates active rain and the
// issue type is rain-amplified. Hazards are critical; a dry open manhole is
// still high; everything else is medium.
func Classify(issueType IssueType, weather Weather) Classification {
	hazard := weather.Raining() && rainAmplified[issueType]

	priority := PriorityMedium
	switch {
	case hazard:
		priority = PriorityCritical
	case issueType == IssueManhole:
		priority = PriorityHigh
	}

	return Classification{Priority: priority, IsRainyHazard: hazard}
}
