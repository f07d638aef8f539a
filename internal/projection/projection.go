// Package projection maps stored observations to their tier-dependent
// API representation.
package projection

import (
	"math"
	"time"

	"bluewave-telemetry-backend/internal/model"
)

// Access tiers. Raw callers see stored values unchanged; processed callers
// get notes redacted and coordinates degraded to 3 decimal places.
const (
	TierRaw       = "raw"
	TierProcessed = "processed"
)

// Record is the outward shape of an observation. Notes is a pointer so the
// processed tier can omit the field entirely rather than emit an empty
// string.
type Record struct {
	ID              int64     `json:"id"`
	BuoyID          int64     `json:"buoy_id"`
	ObservedAt      time.Time `json:"observed_at"`
	Timezone        string    `json:"timezone"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	TempC           float64   `json:"temp_c"`
	Humidity        float64   `json:"humidity"`
	WindMS          float64   `json:"wind_m_s"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	Haze            bool      `json:"haze"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Normalize maps a tier claim to a known tier. Absent or unrecognized
// claims degrade to the processed tier.
func Normalize(tier string) string {
	if tier == TierRaw {
		return TierRaw
	}
	return TierProcessed
}

// Project returns the tier-dependent representation of o. Pure and
// per-record; safe to apply concurrently over a batch.
func Project(o model.Observation, tier string) Record {
	notes := o.Notes
	rec := Record{
		ID:              o.ID,
		BuoyID:          o.BuoyID,
		ObservedAt:      o.ObservedAt,
		Timezone:        o.Timezone,
		Lat:             o.Lat,
		Lon:             o.Lon,
		TempC:           o.TempC,
		Humidity:        o.Humidity,
		WindMS:          o.WindMS,
		PrecipitationMM: o.PrecipitationMM,
		Haze:            o.Haze,
		Notes:           &notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	if Normalize(tier) == TierProcessed {
		rec.Notes = nil
		rec.Lat = round3(o.Lat)
		rec.Lon = round3(o.Lon)
	}
	return rec
}

// ProjectAll projects a batch in input order.
func ProjectAll(obs []model.Observation, tier string) []Record {
	out := make([]Record, len(obs))
	for i, o := range obs {
		out[i] = Project(o, tier)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
