package models

import (
	"fmt"
	"strings"
	"time"
)

// AircraftState is one observation of one aircraft from the squawk feed.
// Every field except Hex comes from third-party broadcast data and may be
// absent; pointer fields are nil when the feed did not report them.
type AircraftState struct {
	Hex          string // ICAO 24-bit address, stable across flights
	Callsign     string // broadcast flight identifier (e.g. "AFR1234"), may be empty
	Registration string // tail number (e.g. "F-GKXS"), may be empty
	Type         string // aircraft type code (e.g. "A320"), may be empty
	Squawk       string // transponder code as reported
	Origin       string
	Destination  string
	AltitudeFt   *float64
	GroundSpeed  *float64 // knots
	Latitude     *float64
	Longitude    *float64
	OnGround     bool
	SeenAt       time.Time // when we fetched the observation
}

// TrimmedCallsign returns the callsign without surrounding whitespace.
// The feed pads callsigns to a fixed width.
func (a *AircraftState) TrimmedCallsign() string {
	return strings.TrimSpace(a.Callsign)
}

// TrackingURL points at the live view for this airframe.
func (a *AircraftState) TrackingURL() string {
	return fmt.Sprintf("https://globe.adsbexchange.com/?icao=%s", a.Hex)
}

// AlertRecord is a persisted entry in the alerted set: one aircraft we have
// already sent an email for during the current emergency episode.
type AlertRecord struct {
	Hex          string
	Callsign     string
	Registration string
	AircraftType string
	Squawk       string
	Latitude     *float64
	Longitude    *float64
	AlertedAt    time.Time
}

// NewAlertRecord snapshots the fields of a state worth keeping alongside
// the dedup entry.
func NewAlertRecord(a *AircraftState) *AlertRecord {
	return &AlertRecord{
		Hex:          a.Hex,
		Callsign:     a.TrimmedCallsign(),
		Registration: a.Registration,
		AircraftType: a.Type,
		Squawk:       a.Squawk,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		AlertedAt:    time.Now(),
	}
}
