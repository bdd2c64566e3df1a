package api

import (
	"fmt"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(records []models.AlertRecord) FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, rec := range records {
		// Geometry stays null when the feed never reported a position.
		var geom *Geometry
		if rec.Latitude != nil && rec.Longitude != nil {
			geom = &Geometry{
				Type:        "Point",
				Coordinates: []float64{*rec.Longitude, *rec.Latitude},
			}
		}

		f := Feature{
			Type:     "Feature",
			Geometry: geom,
			Properties: map[string]any{
				"hex":           rec.Hex,
				"callsign":      rec.Callsign,
				"registration":  rec.Registration,
				"aircraft_type": rec.AircraftType,
				"squawk":        rec.Squawk,
				"alerted_at":    rec.AlertedAt,
				"tracking_url":  fmt.Sprintf("https://globe.adsbexchange.com/?icao=%s", rec.Hex),
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
