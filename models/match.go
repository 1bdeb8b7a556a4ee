package models

// MatchCriteria is the filter handed to the candidate supply.
type MatchCriteria struct {
	Activity          string   `json:"activity"`
	Location          string   `json:"location,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Level             string   `json:"level,omitempty"`
	Pace              string   `json:"pace,omitempty"`
	AvailabilitySlots []string `json:"availabilitySlots,omitempty"`
	ExcludeID         string   `json:"excludeId,omitempty"`
	ExcludedSlots     []string `json:"excludedSlots,omitempty"`
	Headcount         int      `json:"headcount"`
	Limit             int      `json:"limit"`
}

// MatchStats is informational only; the convergence loop never reads it.
type MatchStats struct {
	TotalCandidates int            `json:"totalCandidates"`
	Matched         int            `json:"matched"`
	PerSlot         map[string]int `json:"perSlot"`
}
