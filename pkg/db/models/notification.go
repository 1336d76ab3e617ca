package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Notification is an in-app message addressed to a role, optionally narrowed
// to one company (carrier or shipper).
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID       *uuid.UUID             `gorm:"column:event_id;type:uuid" json:"event_id,omitempty"`
	RecipientRole enums.ActorRole        `gorm:"column:recipient_role;type:text;not null;index" json:"recipient_role"`
	RecipientID   *uuid.UUID             `gorm:"column:recipient_id;type:uuid;index" json:"recipient_id,omitempty"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null" json:"type"`
	EntityType    string                 `gorm:"column:entity_type;type:text;not null" json:"entity_type"`
	EntityID      uuid.UUID              `gorm:"column:entity_id;type:uuid;not null" json:"entity_id"`
	Title         string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message       string                 `gorm:"column:message;type:text;not null" json:"message"`
	ReadAt        *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
