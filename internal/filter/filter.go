// Package filter translates optional query parameters into narrowed,
// still-lazy GORM queries over the observation collection.
package filter

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// ParseError reports a malformed value for a recognized query parameter.
type ParseError struct {
	Param string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid value %q for query parameter %q", e.Value, e.Param)
}

var boxParams = []string{"lat_min", "lat_max", "lon_min", "lon_max"}

// Observations narrows q by the recognized parameters in args: "from" and
// "to" (inclusive RFC3339 bounds on observed_at), "buoy_id" (exact match),
// and the bounding box ("lat_min"/"lat_max", "lon_min"/"lon_max"; each
// axis applies only when both ends are present). Filters AND-combine and
// commute; unrecognized keys are ignored. The query is not executed.
func Observations(q *gorm.DB, args map[string]string) (*gorm.DB, error) {
	if v, ok := args["from"]; ok {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &ParseError{Param: "from", Value: v}
		}
		q = q.Where("observed_at >= ?", at.UTC())
	}
	if v, ok := args["to"]; ok {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &ParseError{Param: "to", Value: v}
		}
		q = q.Where("observed_at <= ?", at.UTC())
	}
	if v, ok := args["buoy_id"]; ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &ParseError{Param: "buoy_id", Value: v}
		}
		q = q.Where("buoy_id = ?", id)
	}

	// Malformed box values fail even when the other end of the axis is
	// absent; an incomplete axis is otherwise silently skipped.
	box := make(map[string]float64, len(boxParams))
	for _, key := range boxParams {
		v, ok := args[key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ParseError{Param: key, Value: v}
		}
		box[key] = f
	}
	if min, ok := box["lat_min"]; ok {
		if max, ok := box["lat_max"]; ok {
			q = q.Where("lat >= ? AND lat <= ?", min, max)
		}
	}
	if min, ok := box["lon_min"]; ok {
		if max, ok := box["lon_max"]; ok {
			q = q.Where("lon >= ? AND lon <= ?", min, max)
		}
	}

	return q, nil
}
