package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bids repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) ListByLoad(ctx context.Context, loadID uuid.UUID, carrierID *uuid.UUID) ([]models.Bid, error) {
	query := r.db.WithContext(ctx).Where("load_id = ?", loadID)
	if carrierID != nil {
		query = query.Where("carrier_id = ?", *carrierID)
	}
	var rows []models.Bid
	err := query.Order("submitted_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) LatestPending(ctx context.Context, loadID, carrierID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("load_id = ? AND carrier_id = ? AND status = ?", loadID, carrierID, enums.BidStatusPending).
		Order("submitted_at DESC").
		Order("id DESC").
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) HasAccepted(ctx context.Context, loadID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("load_id = ? AND status = ?", loadID, enums.BidStatusAccepted).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.decide(ctx, id, enums.BidStatusAccepted, at)
}

func (r *repository) MarkRejected(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.decide(ctx, id, enums.BidStatusRejected, at)
}

func (r *repository) decide(ctx context.Context, id uuid.UUID, status enums.BidStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND status = ?", id, enums.BidStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_at": at,
			"updated_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// RejectPendingSiblings rejects every other pending bid on the load and
// returns the rows it rejected.
func (r *repository) RejectPendingSiblings(ctx context.Context, loadID, acceptedID uuid.UUID, at time.Time) ([]models.Bid, error) {
	var siblings []models.Bid
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("load_id = ? AND id <> ? AND status = ?", loadID, acceptedID, enums.BidStatusPending).
		Order("submitted_at ASC").
		Find(&siblings).Error
	if err != nil || len(siblings) == 0 {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(siblings))
	for _, bid := range siblings {
		ids = append(ids, bid.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id IN ? AND status = ?", ids, enums.BidStatusPending).
		Updates(map[string]any{
			"status":     enums.BidStatusRejected,
			"decided_at": at,
			"updated_at": at,
		}).Error
	if err != nil {
		return nil, err
	}
	for i := range siblings {
		siblings[i].Status = enums.BidStatusRejected
		siblings[i].DecidedAt = &at
	}
	return siblings, nil
}
