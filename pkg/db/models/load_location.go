package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoadLocation holds the geocoded pickup and delivery points of a load.
type LoadLocation struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoadID           uuid.UUID `gorm:"column:load_id;type:uuid;not null;uniqueIndex" json:"load_id"`
	PickupLat        *float64  `gorm:"column:pickup_lat" json:"pickup_lat,omitempty"`
	PickupLng        *float64  `gorm:"column:pickup_lng" json:"pickup_lng,omitempty"`
	PickupGeohash    *string   `gorm:"column:pickup_geohash;type:text" json:"pickup_geohash,omitempty"`
	PickupAccuracy   *string   `gorm:"column:pickup_accuracy;type:text" json:"pickup_accuracy,omitempty"`
	DeliveryLat      *float64  `gorm:"column:delivery_lat" json:"delivery_lat,omitempty"`
	DeliveryLng      *float64  `gorm:"column:delivery_lng" json:"delivery_lng,omitempty"`
	DeliveryGeohash  *string   `gorm:"column:delivery_geohash;type:text" json:"delivery_geohash,omitempty"`
	DeliveryAccuracy *string   `gorm:"column:delivery_accuracy;type:text" json:"delivery_accuracy,omitempty"`
	GeocodedAt       time.Time `gorm:"column:geocoded_at;not null" json:"geocoded_at"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (l *LoadLocation) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (l *LoadLocation) HasPickup() bool {
	return l != nil && l.PickupLat != nil && l.PickupLng != nil
}

func (l *LoadLocation) HasDelivery() bool {
	return l != nil && l.DeliveryLat != nil && l.DeliveryLng != nil
}
