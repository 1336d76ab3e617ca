package assignment

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Recommendation is one ranked driver/load pairing. Lower scores are closer.
type Recommendation struct {
	DriverID            uuid.UUID           `json:"driver_id"`
	DriverName          string              `json:"driver_name"`
	CarrierID           *uuid.UUID          `json:"carrier_id,omitempty"`
	DriverEquipment     enums.EquipmentType `json:"driver_equipment,omitempty"`
	LastSeenAt          time.Time           `json:"last_seen_at"`
	LoadID              uuid.UUID           `json:"load_id"`
	LoadNumber          string              `json:"load_number"`
	LoadEquipment       enums.EquipmentType `json:"load_equipment,omitempty"`
	PickupGeohash       string              `json:"pickup_geohash,omitempty"`
	DistanceMeters      int                 `json:"distance_meters"`
	DurationSeconds     int                 `json:"duration_seconds"`
	Score               float64             `json:"score"`
	EquipmentCompatible bool                `json:"equipment_compatible"`
}

// Recommendations is a ranked list. Reason explains an empty list.
type Recommendations struct {
	Items  []Recommendation `json:"items"`
	Reason string           `json:"reason,omitempty"`
}

// CarrierRecommendation ranks a carrier for one load by its closest driver.
type CarrierRecommendation struct {
	CarrierID           uuid.UUID           `json:"carrier_id"`
	LoadID              uuid.UUID           `json:"load_id"`
	LoadNumber          string              `json:"load_number"`
	DriverID            uuid.UUID           `json:"driver_id"`
	DriverName          string              `json:"driver_name"`
	DriversRanked       int                 `json:"drivers_ranked"`
	DriverEquipment     enums.EquipmentType `json:"driver_equipment,omitempty"`
	DistanceMeters      int                 `json:"distance_meters"`
	DurationSeconds     int                 `json:"duration_seconds"`
	Score               float64             `json:"score"`
	EquipmentCompatible bool                `json:"equipment_compatible"`
}

// CarrierRecommendations is a ranked carrier list. Reason explains an empty list.
type CarrierRecommendations struct {
	Items  []CarrierRecommendation `json:"items"`
	Reason string                  `json:"reason,omitempty"`
}
