package geocoding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a geocoding repository bound to the provided DB.
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

func (r *repository) FindLocation(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error) {
	var location models.LoadLocation
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// UpsertLocation keeps one location row per load; a regeocode overwrites it.
func (r *repository) UpsertLocation(ctx context.Context, location *models.LoadLocation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "load_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"pickup_lat", "pickup_lng", "pickup_geohash", "pickup_accuracy",
				"delivery_lat", "delivery_lng", "delivery_geohash", "delivery_accuracy",
				"geocoded_at", "updated_at",
			}),
		}).
		Create(location).Error
}

func (r *repository) MirrorCoordinates(ctx context.Context, loadID uuid.UUID, pickupLat, pickupLng, deliveryLat, deliveryLng *float64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Load{}).
		Where("id = ?", loadID).
		Updates(map[string]any{
			"pickup_lat":   pickupLat,
			"pickup_lng":   pickupLng,
			"delivery_lat": deliveryLat,
			"delivery_lng": deliveryLng,
			"updated_at":   at,
		}).Error
}

// ListMissing returns the oldest live loads that have never been geocoded.
func (r *repository) ListMissing(ctx context.Context, limit int) ([]models.Load, error) {
	var loads []models.Load
	err := r.db.WithContext(ctx).
		Model(&models.Load{}).
		Joins("LEFT JOIN load_locations ON load_locations.load_id = loads.id").
		Where("load_locations.id IS NULL").
		Where("loads.status NOT IN ?", []enums.LoadStatus{enums.LoadStatusCancelled, enums.LoadStatusClosed}).
		Order("loads.created_at ASC").
		Limit(limit).
		Find(&loads).Error
	return loads, err
}
