package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Driver is the read side of a fleet record. Fleet CRUD lives outside this
// service; the engine only reads drivers to score and assign them.
type Driver struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CarrierID     *uuid.UUID          `gorm:"column:carrier_id;type:uuid;index" json:"carrier_id,omitempty"`
	Name          string              `gorm:"column:name;type:text;not null" json:"name"`
	EquipmentType enums.EquipmentType `gorm:"column:equipment_type;type:text" json:"equipment_type"`
	Active        bool                `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (d *Driver) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
