package model

import "time"

// Buoy statuses accepted by the registry.
const (
	BuoyStatusActive      = "active"
	BuoyStatusInactive    = "inactive"
	BuoyStatusMaintenance = "maintenance"
)

// Buoy represents a registered sensor buoy.
type Buoy struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	Lat       float64   `gorm:"not null"`
	Lon       float64   `gorm:"not null"`
	Status    string    `gorm:"size:32;not null;default:active"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Observations []Observation `gorm:"foreignKey:BuoyID"`
}
