package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationSample is an append-only driver position report.
type LocationSample struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DriverID   uuid.UUID `gorm:"column:driver_id;type:uuid;not null;index:idx_location_samples_driver_recorded,priority:1" json:"driver_id"`
	Latitude   float64   `gorm:"column:latitude;not null" json:"latitude"`
	Longitude  float64   `gorm:"column:longitude;not null" json:"longitude"`
	Heading    *float64  `gorm:"column:heading" json:"heading,omitempty"`
	Speed      *float64  `gorm:"column:speed" json:"speed,omitempty"`
	Accuracy   *float64  `gorm:"column:accuracy" json:"accuracy,omitempty"`
	Geohash    string    `gorm:"column:geohash;type:text" json:"geohash"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index:idx_location_samples_driver_recorded,priority:2" json:"recorded_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (s *LocationSample) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
