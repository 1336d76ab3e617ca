package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
)

const (
	// LocationGeohashPrecision gives cells of roughly 1.2km, enough to bucket
	// loads by pickup area.
	LocationGeohashPrecision = 6

	defaultBackfillLimit = 25
	maxBackfillLimit     = 200
)

type service struct {
	repo    Repository
	tx      txRunner
	geo     geocoder
	logg    *logger.Logger
	metrics geoMetrics
	now     func() time.Time
}

type Option func(*service)

func WithMetrics(m geoMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService wires load geocoding. Spacing between provider calls is the
// provider's concern; batches here run strictly one call at a time.
func NewService(repo Repository, tx txRunner, geo geocoder, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("geocoding repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if geo == nil {
		return nil, fmt.Errorf("geocoder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo: repo,
		tx:   tx,
		geo:  geo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GeocodeLoad resolves both addresses of a load and stores them. An address
// the provider cannot resolve is stored as null; a provider outage stores
// nothing so the load is picked up again by the next backfill.
func (s *service) GeocodeLoad(ctx context.Context, loadID uuid.UUID) (*models.LoadLocation, error) {
	load, err := s.repo.FindLoad(ctx, loadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "load not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lookup")
	}
	return s.geocode(ctx, load)
}

func (s *service) geocode(ctx context.Context, load *models.Load) (*models.LoadLocation, error) {
	pickup, err := s.resolve(ctx, load.PickupAddress)
	if err != nil {
		return nil, err
	}
	delivery, err := s.resolve(ctx, load.DeliveryAddress)
	if err != nil {
		return nil, err
	}

	now := s.now()
	location := &models.LoadLocation{
		LoadID:     load.ID,
		GeocodedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if pickup != nil {
		location.PickupLat = &pickup.Lat
		location.PickupLng = &pickup.Lng
		location.PickupGeohash = cell(pickup)
		location.PickupAccuracy = accuracy(pickup)
	}
	if delivery != nil {
		location.DeliveryLat = &delivery.Lat
		location.DeliveryLng = &delivery.Lng
		location.DeliveryGeohash = cell(delivery)
		location.DeliveryAccuracy = accuracy(delivery)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpsertLocation(ctx, location); err != nil {
			return err
		}
		return repo.MirrorCoordinates(ctx, load.ID,
			location.PickupLat, location.PickupLng,
			location.DeliveryLat, location.DeliveryLng, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store load location")
	}

	stored, err := s.repo.FindLocation(ctx, load.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload load location")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"load_id":           load.ID.String(),
		"pickup_resolved":   stored.HasPickup(),
		"delivery_resolved": stored.HasDelivery(),
	})
	if !stored.HasPickup() || !stored.HasDelivery() {
		s.logg.Warn(logCtx, "load address unresolved")
	} else {
		s.logg.Info(logCtx, "load geocoded")
	}
	return stored, nil
}

func (s *service) resolve(ctx context.Context, address string) (*maps.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	result, err := s.geo.Geocode(ctx, address)
	if s.metrics != nil {
		s.metrics.Geo("geocode", err)
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "geocode address")
	}
	return result, nil
}

// BackfillMissing geocodes loads that have no location yet, oldest first.
// One failing load does not stop the batch; failures are combined into the
// returned error.
func (s *service) BackfillMissing(ctx context.Context, limit int) (BackfillResult, error) {
	if limit <= 0 {
		limit = defaultBackfillLimit
	}
	if limit > maxBackfillLimit {
		limit = maxBackfillLimit
	}

	var result BackfillResult
	pending, err := s.repo.ListMissing(ctx, limit)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loads missing locations")
	}

	var errs error
	for i := range pending {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		load := pending[i]
		result.Attempted++
		location, err := s.geocode(ctx, &load)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("load %s: %w", load.ID, err))
			continue
		}
		if location.HasPickup() && location.HasDelivery() {
			result.Geocoded++
		} else {
			result.Unresolved++
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"attempted":  result.Attempted,
		"geocoded":   result.Geocoded,
		"unresolved": result.Unresolved,
		"failed":     result.Failed,
	}), "geocode backfill complete")
	return result, errs
}

func cell(r *maps.GeocodeResult) *string {
	hash := geohash.EncodeWithPrecision(r.Lat, r.Lng, LocationGeohashPrecision)
	return &hash
}

func accuracy(r *maps.GeocodeResult) *string {
	if r.Accuracy == "" {
		return nil
	}
	value := r.Accuracy
	return &value
}
