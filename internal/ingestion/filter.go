package ingestion

import (
	"strings"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

// MatchesOperator reports whether the aircraft's broadcast callsign belongs
// to the monitored operator. The match is case-insensitive on the trimmed
// callsign; aircraft broadcasting no callsign never match.
func MatchesOperator(state *models.AircraftState, prefixes []string) bool {
	callsign := strings.ToUpper(state.TrimmedCallsign())
	if callsign == "" {
		return false
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(callsign, strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}

// FilterOperator keeps the matching aircraft, preserving feed order.
func FilterOperator(states []*models.AircraftState, prefixes []string) []*models.AircraftState {
	matched := make([]*models.AircraftState, 0, len(states))
	for _, state := range states {
		if MatchesOperator(state, prefixes) {
			matched = append(matched, state)
		}
	}
	return matched
}
