package tracking

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// RecordLocationInput is one position report from a driver device.
type RecordLocationInput struct {
	DriverID   uuid.UUID
	Lat        float64
	Lng        float64
	Heading    *float64
	Speed      *float64
	Accuracy   *float64
	RecordedAt *time.Time
}

// UpdateTrackingInput moves the live tracking record of a load.
type UpdateTrackingInput struct {
	LoadID uuid.UUID
	Lat    float64
	Lng    float64
	Status enums.TrackingStatus
}

// TrackingResult is the stored tracking row plus why no ETA was computed,
// when that happened.
type TrackingResult struct {
	Tracking       *models.RouteTracking `json:"tracking"`
	ETAFor         string                `json:"eta_for,omitempty"`
	ETAUnavailable string                `json:"eta_unavailable,omitempty"`
}

// StopInput is one entry of a new stop plan, in driving order.
type StopInput struct {
	LoadID      *uuid.UUID
	StopType    enums.StopType
	Address     string
	Lat         *float64
	Lng         *float64
	ScheduledAt *time.Time
}
