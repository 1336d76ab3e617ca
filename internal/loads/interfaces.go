package loads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/pagination"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Repository persists loads. Every state change is a guarded update that
// reports whether the predicate still held.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, load *models.Load) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Load, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Load, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Load, error)
	AssignCarrierIfUnassigned(ctx context.Context, id, carrierID uuid.UUID, rate decimal.Decimal, at time.Time) (bool, error)
	ReassignCarrier(ctx context.Context, id, carrierID uuid.UUID, rate decimal.Decimal, at time.Time) (bool, error)
	SupersedeBids(ctx context.Context, loadID, carrierID uuid.UUID, at time.Time) (int64, error)
	ConfirmRate(ctx context.Context, id, carrierID uuid.UUID, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.LoadStatus, updates map[string]any) (bool, error)
	AssignDriver(ctx context.Context, id, driverID uuid.UUID, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	FindTracking(ctx context.Context, loadID uuid.UUID) (*models.RouteTracking, error)
}

// Service drives the load lifecycle.
type Service interface {
	CreateLoad(ctx context.Context, input CreateLoadInput, actor types.Actor) (*models.Load, error)
	GetLoad(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Load, error)
	ListLoads(ctx context.Context, input ListLoadsInput, actor types.Actor) (*LoadList, error)
	AssignCarrier(ctx context.Context, input AssignCarrierInput, actor types.Actor) (*models.Load, error)
	ConfirmRate(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Load, error)
	Transition(ctx context.Context, input TransitionInput, actor types.Actor) (*TransitionResult, error)
	AssignDriver(ctx context.Context, loadID, driverID uuid.UUID, actor types.Actor) (*models.Load, error)
	SoftDelete(ctx context.Context, loadID uuid.UUID, actor types.Actor) error
	CarrierAssigner
}

// CarrierAssigner is the slice of the lifecycle the bid ledger needs. Both
// methods run inside the caller's transaction.
type CarrierAssigner interface {
	LoadForBidding(ctx context.Context, tx *gorm.DB, loadID uuid.UUID) (*models.Load, error)
	AssignCarrierInTx(ctx context.Context, tx *gorm.DB, loadID, carrierID uuid.UUID, rate decimal.Decimal) (*models.Load, error)
}

// ReadinessChecker reports whether a delivered load can be invoiced.
type ReadinessChecker interface {
	CheckReadiness(load *models.Load) error
}

// Geocoder resolves load addresses after creation.
type Geocoder interface {
	GeocodeLoad(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type notifier interface {
	Notify(ctx context.Context, event outbox.DomainEvent)
}

type transitionMetrics interface {
	Transition(to, result string)
}
