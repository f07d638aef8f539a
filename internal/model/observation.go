package model

import "time"

// Observation is a single telemetry reading reported for a buoy.
// ObservedAt is stored as an absolute UTC instant; Timezone is a display
// label only and never feeds into timestamp comparisons.
type Observation struct {
	ID              int64     `gorm:"primaryKey"`
	BuoyID          int64     `gorm:"index;not null"`
	ObservedAt      time.Time `gorm:"index;not null"`
	Timezone        string    `gorm:"size:64;not null"`
	Lat             float64   `gorm:"index;not null"`
	Lon             float64   `gorm:"index;not null"`
	TempC           float64   `gorm:"column:temp_c;not null"`
	Humidity        float64   `gorm:"not null"`
	WindMS          float64   `gorm:"column:wind_m_s;not null"`
	PrecipitationMM float64   `gorm:"column:precipitation_mm;not null"`
	Haze            bool      `gorm:"not null"`
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`

	// Associations
	Buoy Buoy `gorm:"constraint:OnDelete:CASCADE"`
}
