package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Invoice settles a delivered load against its customer. One per load, ever.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LoadID        uuid.UUID           `gorm:"column:load_id;type:uuid;not null;uniqueIndex:uniq_invoices_load_id" json:"load_id"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	InvoiceNumber string              `gorm:"column:invoice_number;type:text;not null;uniqueIndex" json:"invoice_number"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:text;not null" json:"status"`
	IssuedAt      *time.Time          `gorm:"column:issued_at" json:"issued_at,omitempty"`
	DueAt         *time.Time          `gorm:"column:due_at" json:"due_at,omitempty"`
	PaidAt        *time.Time          `gorm:"column:paid_at" json:"paid_at,omitempty"`
	IssuedBy      *uuid.UUID          `gorm:"column:issued_by;type:uuid" json:"issued_by,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
