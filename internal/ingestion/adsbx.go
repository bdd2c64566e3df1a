package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

const userAgent = "Mozilla/5.0 (compatible; SquawkMonitor/1.0)"

// FeedClient fetches the current set of emergency-squawk aircraft.
type FeedClient interface {
	Fetch(ctx context.Context) ([]*models.AircraftState, error)
}

// ADSBXClient reads the ADS-B Exchange globe cache for squawk 7700. The
// endpoint is pre-filtered server-side, so every returned aircraft is
// already broadcasting the emergency code.
type ADSBXClient struct {
	url    string
	client *http.Client
}

func NewADSBXClient(url string, timeout time.Duration) *ADSBXClient {
	return &ADSBXClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type feedResponse struct {
	Aircraft []feedAircraft `json:"ac"`
}

type feedAircraft struct {
	Hex          string       `json:"hex"`
	Flight       string       `json:"flight"`
	Call         string       `json:"call"`
	Registration string       `json:"r"`
	TypeShort    string       `json:"t"`
	TypeLong     string       `json:"type"`
	Squawk       string       `json:"squawk"`
	AltBaro      baroAltitude `json:"alt_baro"`
	GroundSpeed  *float64     `json:"gs"`
	Lat          *float64     `json:"lat"`
	Lon          *float64     `json:"lon"`
	From         string       `json:"from"`
	To           string       `json:"to"`
}

// baroAltitude handles the feed's alt_baro field, which is a number in feet
// or the literal string "ground".
type baroAltitude struct {
	Feet     *float64
	OnGround bool
}

func (b *baroAltitude) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.OnGround = s == "ground"
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unexpected alt_baro value %s: %w", string(data), err)
	}
	b.Feet = &f
	return nil
}

func (c *ADSBXClient) Fetch(ctx context.Context) ([]*models.AircraftState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading resp.Body: %w", err)
	}

	aircraft, err := parseFeed(body)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	states := make([]*models.AircraftState, 0, len(aircraft))
	for _, a := range aircraft {
		states = append(states, mapAircraft(a, now))
	}

	return states, nil
}

// parseFeed accepts both payload shapes the cache has served over time: an
// object with an "ac" array, or a bare array of aircraft.
func parseFeed(body []byte) ([]feedAircraft, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var aircraft []feedAircraft
		if err := json.Unmarshal(trimmed, &aircraft); err != nil {
			return nil, fmt.Errorf("error decoding aircraft list: %w", err)
		}
		return aircraft, nil
	}

	var data feedResponse
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, fmt.Errorf("error decoding feed response: %w", err)
	}
	return data.Aircraft, nil
}

func mapAircraft(a feedAircraft, seenAt time.Time) *models.AircraftState {
	callsign := a.Flight
	if strings.TrimSpace(callsign) == "" {
		callsign = a.Call
	}
	aircraftType := a.TypeShort
	if aircraftType == "" {
		aircraftType = a.TypeLong
	}

	return &models.AircraftState{
		Hex:          a.Hex,
		Callsign:     callsign,
		Registration: strings.TrimSpace(a.Registration),
		Type:         aircraftType,
		Squawk:       a.Squawk,
		Origin:       a.From,
		Destination:  a.To,
		AltitudeFt:   a.AltBaro.Feet,
		GroundSpeed:  a.GroundSpeed,
		Latitude:     a.Lat,
		Longitude:    a.Lon,
		OnGround:     a.AltBaro.OnGround,
		SeenAt:       seenAt,
	}
}
