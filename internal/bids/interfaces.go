package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Repository persists bids. Status changes are guarded on the current status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bid *models.Bid) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByLoad(ctx context.Context, loadID uuid.UUID, carrierID *uuid.UUID) ([]models.Bid, error)
	LatestPending(ctx context.Context, loadID, carrierID uuid.UUID) (*models.Bid, error)
	HasAccepted(ctx context.Context, loadID uuid.UUID) (bool, error)
	MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	RejectPendingSiblings(ctx context.Context, loadID, acceptedID uuid.UUID, at time.Time) ([]models.Bid, error)
}

// Service is the bid ledger.
type Service interface {
	SubmitBid(ctx context.Context, input SubmitBidInput, actor types.Actor) (*models.Bid, error)
	AcceptBid(ctx context.Context, loadID, bidID uuid.UUID, actor types.Actor) (*AcceptResult, error)
	RejectBid(ctx context.Context, bidID uuid.UUID, actor types.Actor) (*models.Bid, error)
	ListBids(ctx context.Context, loadID uuid.UUID, actor types.Actor) ([]models.Bid, error)
	LatestPendingBid(ctx context.Context, loadID, carrierID uuid.UUID) (*models.Bid, error)
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

type bidMetrics interface {
	Bid(action, result string)
}
