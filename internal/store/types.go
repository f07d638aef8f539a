package store

import (
	"strconv"
	"time"
)

// Paging bounds. Values outside the window are coerced rather than
// rejected; non-numeric input falls back to the defaults.
const (
	DefaultPage    = 1
	DefaultPerPage = 100
	MaxPerPage     = 1000
)

// Page describes one page of a query result.
type Page struct {
	Number  int
	PerPage int
}

// ParsePage builds a Page from raw query-parameter strings, coercing
// defensively: page is forced to >= 1, per_page is clamped into
// [1, MaxPerPage], and unparseable values resolve to the defaults.
func ParsePage(pageStr, perPageStr string) Page {
	page := DefaultPage
	if pageStr != "" {
		if n, err := strconv.Atoi(pageStr); err == nil {
			page = n
		}
	}
	if page < 1 {
		page = 1
	}

	per := DefaultPerPage
	if perPageStr != "" {
		if n, err := strconv.Atoi(perPageStr); err == nil {
			per = n
		}
	}
	if per < 1 {
		per = 1
	}
	if per > MaxPerPage {
		per = MaxPerPage
	}

	return Page{Number: page, PerPage: per}
}

// ObservationPatch is the typed patch for partial updates. Only non-nil
// fields are applied; unknown keys never reach the model.
type ObservationPatch struct {
	BuoyID          *int64     `json:"buoy_id" binding:"omitempty,gt=0"`
	ObservedAt      *time.Time `json:"observed_at"`
	Timezone        *string    `json:"timezone"`
	Lat             *float64   `json:"lat"`
	Lon             *float64   `json:"lon"`
	TempC           *float64   `json:"temp_c"`
	Humidity        *float64   `json:"humidity" binding:"omitempty,gte=0,lte=100"`
	WindMS          *float64   `json:"wind_m_s"`
	PrecipitationMM *float64   `json:"precipitation_mm"`
	Haze            *bool      `json:"haze"`
	Notes           *string    `json:"notes"`
}
