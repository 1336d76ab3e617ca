package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// RouteStop is one entry of a driver's current stop plan. Plans are replaced
// wholesale, so rows only describe the latest plan.
type RouteStop struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DriverID    uuid.UUID        `gorm:"column:driver_id;type:uuid;not null;index" json:"driver_id"`
	LoadID      *uuid.UUID       `gorm:"column:load_id;type:uuid;index" json:"load_id,omitempty"`
	Sequence    int              `gorm:"column:sequence;not null" json:"sequence"`
	StopType    enums.StopType   `gorm:"column:stop_type;type:text;not null" json:"stop_type"`
	Address     string           `gorm:"column:address;type:text" json:"address"`
	Lat         *float64         `gorm:"column:lat" json:"lat,omitempty"`
	Lng         *float64         `gorm:"column:lng" json:"lng,omitempty"`
	Status      enums.StopStatus `gorm:"column:status;type:text;not null" json:"status"`
	ScheduledAt *time.Time       `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	CompletedAt *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (s *RouteStop) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
