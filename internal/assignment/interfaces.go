package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Repository reads scorer candidates. Nothing here writes.
type Repository interface {
	DriverPositions(ctx context.Context, limit int) ([]DriverPosition, error)
	OpenLoadPickups(ctx context.Context, limit int) ([]LoadPickup, error)
	FindLoad(ctx context.Context, id uuid.UUID) (*models.Load, error)
	FindLocation(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error)
}

// Service ranks driver and load pairings by proximity.
type Service interface {
	OptimizedAssignments(ctx context.Context, actor types.Actor) (*Recommendations, error)
	LoadProximity(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*Recommendations, error)
	CarrierProximity(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*CarrierRecommendations, error)
}

// DriverPosition is an active driver at its latest reported position.
type DriverPosition struct {
	DriverID      uuid.UUID
	CarrierID     *uuid.UUID
	Name          string
	EquipmentType enums.EquipmentType
	Lat           float64
	Lng           float64
	RecordedAt    time.Time
}

// LoadPickup is an unassigned load with a geocoded pickup point.
type LoadPickup struct {
	LoadID        uuid.UUID
	LoadNumber    string
	Status        enums.LoadStatus
	EquipmentType enums.EquipmentType
	PickupLat     float64
	PickupLng     float64
	PickupGeohash *string
}

type distanceProvider interface {
	DistanceMatrix(ctx context.Context, origins, destinations []maps.Coordinates) (*maps.Matrix, error)
}

type scorerMetrics interface {
	Geo(op string, err error)
	ScorerEmpty(reason string)
}
