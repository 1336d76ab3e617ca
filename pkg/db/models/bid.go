package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Bid is a carrier's offer to haul a load. At most one bid per load may be
// accepted; the accepted-per-load partial unique index lives in migrations.
type Bid struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoadID      uuid.UUID       `gorm:"column:load_id;type:uuid;not null;index" json:"load_id"`
	CarrierID   uuid.UUID       `gorm:"column:carrier_id;type:uuid;not null;index" json:"carrier_id"`
	BidAmount   decimal.Decimal `gorm:"column:bid_amount;type:numeric(12,2);not null" json:"bid_amount"`
	Status      enums.BidStatus `gorm:"column:status;type:text;not null" json:"status"`
	Notes       *string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	SubmittedBy *uuid.UUID      `gorm:"column:submitted_by;type:uuid" json:"submitted_by,omitempty"`
	SubmittedAt time.Time       `gorm:"column:submitted_at;not null" json:"submitted_at"`
	DecidedAt   *time.Time      `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
