package geocoding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
)

// Repository persists geocoded load locations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLoad(ctx context.Context, id uuid.UUID) (*models.Load, error)
	FindLocation(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error)
	UpsertLocation(ctx context.Context, location *models.LoadLocation) error
	MirrorCoordinates(ctx context.Context, loadID uuid.UUID, pickupLat, pickupLng, deliveryLat, deliveryLng *float64, at time.Time) error
	ListMissing(ctx context.Context, limit int) ([]models.Load, error)
}

// Service resolves load addresses into coordinates.
type Service interface {
	GeocodeLoad(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error)
	BackfillMissing(ctx context.Context, limit int) (BackfillResult, error)
}

// BackfillResult summarizes one batch run.
type BackfillResult struct {
	Attempted  int `json:"attempted"`
	Geocoded   int `json:"geocoded"`
	Unresolved int `json:"unresolved"`
	Failed     int `json:"failed"`
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.GeocodeResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type geoMetrics interface {
	Geo(op string, err error)
}
