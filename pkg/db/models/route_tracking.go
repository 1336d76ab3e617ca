package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// RouteTracking is the single live tracking record of a load.
type RouteTracking struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoadID      uuid.UUID            `gorm:"column:load_id;type:uuid;not null;uniqueIndex" json:"load_id"`
	DriverID    *uuid.UUID           `gorm:"column:driver_id;type:uuid" json:"driver_id,omitempty"`
	CurrentLat  float64              `gorm:"column:current_lat;not null" json:"current_lat"`
	CurrentLng  float64              `gorm:"column:current_lng;not null" json:"current_lng"`
	EtaPickup   *time.Time           `gorm:"column:eta_pickup" json:"eta_pickup,omitempty"`
	EtaDelivery *time.Time           `gorm:"column:eta_delivery" json:"eta_delivery,omitempty"`
	Status      enums.TrackingStatus `gorm:"column:status;type:text;not null" json:"status"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (RouteTracking) TableName() string {
	return "route_tracking"
}

func (r *RouteTracking) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
