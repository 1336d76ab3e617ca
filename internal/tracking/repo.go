package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLoad(ctx context.Context, id uuid.UUID) (*models.Load, error) {
	var load models.Load
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&load).Error; err != nil {
		return nil, err
	}
	return &load, nil
}

func (r *repository) FindLoadLocation(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error) {
	var location models.LoadLocation
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) FindDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) InsertSample(ctx context.Context, sample *models.LocationSample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}

func (r *repository) LatestSample(ctx context.Context, driverID uuid.UUID) (*models.LocationSample, error) {
	var sample models.LocationSample
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("recorded_at DESC").
		Order("created_at DESC").
		First(&sample).Error
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// UpsertTracking writes the single tracking row of a load. Every live column
// is overwritten on conflict, so an ETA that no longer applies is cleared.
func (r *repository) UpsertTracking(ctx context.Context, tracking *models.RouteTracking) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "load_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"driver_id", "current_lat", "current_lng", "eta_pickup", "eta_delivery", "status", "updated_at",
			}),
		}).
		Create(tracking).Error
}

func (r *repository) FindTracking(ctx context.Context, loadID uuid.UUID) (*models.RouteTracking, error) {
	var tracking models.RouteTracking
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}

func (r *repository) UpdateTrackingStatus(ctx context.Context, loadID uuid.UUID, status enums.TrackingStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.RouteTracking{}).
		Where("load_id = ?", loadID).
		Updates(trackingStatusUpdates(status, at)).Error
}

// ReplaceStops discards the driver's current plan and writes stops in its
// place. Callers run it inside a transaction.
func (r *repository) ReplaceStops(ctx context.Context, driverID uuid.UUID, stops []models.RouteStop) error {
	if err := r.db.WithContext(ctx).Where("driver_id = ?", driverID).Delete(&models.RouteStop{}).Error; err != nil {
		return err
	}
	if len(stops) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&stops).Error
}

func (r *repository) ListStops(ctx context.Context, driverID uuid.UUID) ([]models.RouteStop, error) {
	var stops []models.RouteStop
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("sequence ASC").
		Find(&stops).Error
	return stops, err
}

func (r *repository) FindStop(ctx context.Context, id uuid.UUID) (*models.RouteStop, error) {
	var stop models.RouteStop
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&stop).Error; err != nil {
		return nil, err
	}
	return &stop, nil
}

func (r *repository) CompleteStop(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RouteStop{}).
		Where("id = ? AND status = ?", id, enums.StopStatusPending).
		Updates(map[string]any{"status": enums.StopStatusCompleted, "completed_at": at})
	return res.RowsAffected > 0, res.Error
}

// trackingStatusUpdates also nulls the ETAs a status has moved past.
func trackingStatusUpdates(status enums.TrackingStatus, at time.Time) map[string]any {
	updates := map[string]any{"status": status, "updated_at": at}
	switch status {
	case enums.TrackingStatusAtPickup, enums.TrackingStatusEnRouteDelivery:
		updates["eta_pickup"] = nil
	case enums.TrackingStatusAtDelivery, enums.TrackingStatusCompleted:
		updates["eta_pickup"] = nil
		updates["eta_delivery"] = nil
	}
	return updates
}
