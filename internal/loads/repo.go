package loads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loads repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, load *models.Load) error {
	return r.db.WithContext(ctx).Create(load).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Load, error) {
	var load models.Load
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&load).Error; err != nil {
		return nil, err
	}
	return &load, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Load, error) {
	var load models.Load
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&load).Error
	if err != nil {
		return nil, err
	}
	return &load, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Load, error) {
	query := r.db.WithContext(ctx).Model(&models.Load{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CarrierID != nil {
		query = query.Where("carrier_id = ?", *filter.CarrierID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.VisibleToCarrier != nil {
		query = query.Where("(status = ? OR carrier_id = ?)", enums.LoadStatusPosted, *filter.VisibleToCarrier)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Load
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// AssignCarrierIfUnassigned claims a posted load for a carrier. It fails the
// predicate when another carrier got there first.
func (r *repository) AssignCarrierIfUnassigned(ctx context.Context, id, carrierID uuid.UUID, rate decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ? AND carrier_id IS NULL AND status = ?", id, enums.LoadStatusPosted).
		Updates(map[string]any{
			"carrier_id":        carrierID,
			"carrier_rate":      rate,
			"rate_confirmed":    false,
			"rate_confirmed_at": nil,
			"status":            enums.LoadStatusPendingPickup,
			"updated_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ReassignCarrier(ctx context.Context, id, carrierID uuid.UUID, rate decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ? AND status IN ?", id, []enums.LoadStatus{enums.LoadStatusPosted, enums.LoadStatusPendingPickup}).
		Updates(map[string]any{
			"carrier_id":        carrierID,
			"carrier_rate":      rate,
			"rate_confirmed":    false,
			"rate_confirmed_at": nil,
			"status":            enums.LoadStatusPendingPickup,
			"updated_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

// SupersedeBids rejects every pending bid on the load and any accepted bid
// held by a carrier other than carrierID.
func (r *repository) SupersedeBids(ctx context.Context, loadID, carrierID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("load_id = ? AND (status = ? OR (status = ? AND carrier_id <> ?))",
			loadID, enums.BidStatusPending, enums.BidStatusAccepted, carrierID).
		Updates(map[string]any{
			"status":     enums.BidStatusRejected,
			"decided_at": at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ConfirmRate(ctx context.Context, id, carrierID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ? AND carrier_id = ? AND carrier_rate IS NOT NULL AND rate_confirmed = ?", id, carrierID, false).
		Updates(map[string]any{
			"rate_confirmed":    true,
			"rate_confirmed_at": at,
			"updated_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.LoadStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) AssignDriver(ctx context.Context, id, driverID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ? AND status IN ?", id, assignableStatuses).
		Updates(map[string]any{
			"driver_id":  driverID,
			"updated_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Load{}).Error
}

func (r *repository) FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) FindTracking(ctx context.Context, loadID uuid.UUID) (*models.RouteTracking, error) {
	var tracking models.RouteTracking
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}

var assignableStatuses = []enums.LoadStatus{
	enums.LoadStatusDraft,
	enums.LoadStatusPosted,
	enums.LoadStatusPendingPickup,
	enums.LoadStatusInTransit,
}
