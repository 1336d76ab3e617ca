package assignment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the scorer's read model over the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

const driverPositionsSQL = `
SELECT d.id AS driver_id,
       d.carrier_id,
       d.name,
       d.equipment_type,
       s.latitude AS lat,
       s.longitude AS lng,
       s.recorded_at
FROM drivers d
JOIN location_samples s ON s.driver_id = d.id
WHERE d.active = ?
  AND s.recorded_at = (
      SELECT MAX(latest.recorded_at)
      FROM location_samples latest
      WHERE latest.driver_id = d.id
  )
ORDER BY s.recorded_at DESC, d.id ASC`

// DriverPositions returns each active driver's latest sample, freshest
// first. Drivers without samples are left out.
func (r *repository) DriverPositions(ctx context.Context, limit int) ([]DriverPosition, error) {
	var rows []DriverPosition
	if err := r.db.WithContext(ctx).Raw(driverPositionsSQL, true).Scan(&rows).Error; err != nil {
		return nil, err
	}
	// two samples can share the latest timestamp
	seen := make(map[uuid.UUID]struct{}, len(rows))
	positions := rows[:0]
	for _, row := range rows {
		if _, ok := seen[row.DriverID]; ok {
			continue
		}
		seen[row.DriverID] = struct{}{}
		positions = append(positions, row)
		if limit > 0 && len(positions) == limit {
			break
		}
	}
	return positions, nil
}

// OpenLoadPickups returns draft and posted loads with nobody assigned and a
// resolved pickup point, oldest first.
func (r *repository) OpenLoadPickups(ctx context.Context, limit int) ([]LoadPickup, error) {
	var rows []LoadPickup
	query := r.db.WithContext(ctx).
		Table("loads").
		Select(`loads.id AS load_id, loads.load_number, loads.status, loads.equipment_type,
			load_locations.pickup_lat, load_locations.pickup_lng, load_locations.pickup_geohash`).
		Joins("JOIN load_locations ON load_locations.load_id = loads.id").
		Where("loads.deleted_at IS NULL").
		Where("loads.status IN ?", []enums.LoadStatus{enums.LoadStatusDraft, enums.LoadStatusPosted}).
		Where("loads.carrier_id IS NULL AND loads.driver_id IS NULL").
		Where("load_locations.pickup_lat IS NOT NULL AND load_locations.pickup_lng IS NOT NULL").
		Order("loads.created_at ASC").
		Order("loads.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
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
