package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Repository persists driver positions, live tracking and stop plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLoad(ctx context.Context, id uuid.UUID) (*models.Load, error)
	FindLoadLocation(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error)
	FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	InsertSample(ctx context.Context, sample *models.LocationSample) error
	LatestSample(ctx context.Context, driverID uuid.UUID) (*models.LocationSample, error)
	UpsertTracking(ctx context.Context, tracking *models.RouteTracking) error
	FindTracking(ctx context.Context, loadID uuid.UUID) (*models.RouteTracking, error)
	UpdateTrackingStatus(ctx context.Context, loadID uuid.UUID, status enums.TrackingStatus, at time.Time) error
	ReplaceStops(ctx context.Context, driverID uuid.UUID, stops []models.RouteStop) error
	ListStops(ctx context.Context, driverID uuid.UUID) ([]models.RouteStop, error)
	FindStop(ctx context.Context, id uuid.UUID) (*models.RouteStop, error)
	CompleteStop(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Service is the route tracker.
type Service interface {
	RecordLocation(ctx context.Context, input RecordLocationInput, actor types.Actor) (*models.LocationSample, error)
	CurrentLocation(ctx context.Context, driverID uuid.UUID, actor types.Actor) (*models.LocationSample, error)
	UpdateTracking(ctx context.Context, input UpdateTrackingInput, actor types.Actor) (*TrackingResult, error)
	GetTracking(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.RouteTracking, error)
	UpdateRouteStops(ctx context.Context, driverID uuid.UUID, stops []StopInput, actor types.Actor) ([]models.RouteStop, error)
	ListStops(ctx context.Context, driverID uuid.UUID, actor types.Actor) ([]models.RouteStop, error)
	CompleteStop(ctx context.Context, stopID uuid.UUID, actor types.Actor) (*models.RouteStop, error)
}

type etaProvider interface {
	ETA(ctx context.Context, from, to maps.Coordinates) (*time.Time, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type geoMetrics interface {
	Geo(op string, err error)
}
