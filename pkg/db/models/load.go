package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Load is a shipment request and the aggregate root for bids, tracking,
// geocoded locations and invoices.
type Load struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoadNumber          string              `gorm:"column:load_number;type:text;not null;uniqueIndex" json:"load_number"`
	Status              enums.LoadStatus    `gorm:"column:status;type:text;not null;index" json:"status"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	CarrierID           *uuid.UUID          `gorm:"column:carrier_id;type:uuid;index;check:chk_loads_carrier_rate,carrier_id IS NULL OR carrier_rate IS NOT NULL" json:"carrier_id,omitempty"`
	DriverID            *uuid.UUID          `gorm:"column:driver_id;type:uuid;index" json:"driver_id,omitempty"`
	PickupAddress       string              `gorm:"column:pickup_address;type:text;not null" json:"pickup_address"`
	DeliveryAddress     string              `gorm:"column:delivery_address;type:text;not null" json:"delivery_address"`
	PickupLat           *float64            `gorm:"column:pickup_lat" json:"pickup_lat,omitempty"`
	PickupLng           *float64            `gorm:"column:pickup_lng" json:"pickup_lng,omitempty"`
	DeliveryLat         *float64            `gorm:"column:delivery_lat" json:"delivery_lat,omitempty"`
	DeliveryLng         *float64            `gorm:"column:delivery_lng" json:"delivery_lng,omitempty"`
	PickupWindowStart   *time.Time          `gorm:"column:pickup_window_start" json:"pickup_window_start,omitempty"`
	PickupWindowEnd     *time.Time          `gorm:"column:pickup_window_end" json:"pickup_window_end,omitempty"`
	DeliveryWindowStart *time.Time          `gorm:"column:delivery_window_start" json:"delivery_window_start,omitempty"`
	DeliveryWindowEnd   *time.Time          `gorm:"column:delivery_window_end" json:"delivery_window_end,omitempty"`
	Commodity           string              `gorm:"column:commodity;type:text" json:"commodity"`
	EquipmentType       enums.EquipmentType `gorm:"column:equipment_type;type:text" json:"equipment_type"`
	WeightLbs           *int                `gorm:"column:weight_lbs" json:"weight_lbs,omitempty"`
	CustomerRate        decimal.NullDecimal `gorm:"column:customer_rate;type:numeric(12,2)" json:"customer_rate,omitempty"`
	CarrierRate         decimal.NullDecimal `gorm:"column:carrier_rate;type:numeric(12,2)" json:"carrier_rate,omitempty"`
	RateConfirmed       bool                `gorm:"column:rate_confirmed;not null;default:false" json:"rate_confirmed"`
	RateConfirmedAt     *time.Time          `gorm:"column:rate_confirmed_at" json:"rate_confirmed_at,omitempty"`
	CreatedBy           *uuid.UUID          `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
	PickedUpAt          *time.Time          `gorm:"column:picked_up_at" json:"picked_up_at,omitempty"`
	DeliveredAt         *time.Time          `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt         *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	ClosedAt            *time.Time          `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt      `gorm:"column:deleted_at;index" json:"-"`
}

func (l *Load) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// HasCarrier reports whether a carrier has been assigned.
func (l *Load) HasCarrier() bool {
	return l != nil && l.CarrierID != nil && *l.CarrierID != uuid.Nil
}

// HasPickupCoordinates reports whether the pickup point has been resolved.
func (l *Load) HasPickupCoordinates() bool {
	return l != nil && l.PickupLat != nil && l.PickupLng != nil
}
