package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

const (
	// SampleGeohashPrecision gives cells of roughly 150m.
	SampleGeohashPrecision = 7

	defaultETATimeout = 5 * time.Second
	maxStopsPerPlan   = 50
	maxClockSkew      = 5 * time.Minute
)

type service struct {
	repo       Repository
	tx         txRunner
	geo        etaProvider
	logg       *logger.Logger
	metrics    geoMetrics
	etaTimeout time.Duration
	now        func() time.Time
}

type Option func(*service)

func WithMetrics(m geoMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithETATimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.etaTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService wires the route tracker. geo may be nil, in which case no ETAs
// are computed.
func NewService(repo Repository, tx txRunner, geo etaProvider, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo:       repo,
		tx:         tx,
		geo:        geo,
		logg:       logg,
		etaTimeout: defaultETATimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) RecordLocation(ctx context.Context, input RecordLocationInput, actor types.Actor) (*models.LocationSample, error) {
	if !actsAsDriver(actor, input.DriverID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "drivers may only report their own position")
	}
	if err := validateCoordinates(input.Lat, input.Lng); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindDriver(ctx, input.DriverID); err != nil {
		return nil, mapNotFound(err, "driver")
	}

	now := s.now()
	recordedAt := now
	if input.RecordedAt != nil {
		recordedAt = input.RecordedAt.UTC()
		if recordedAt.After(now.Add(maxClockSkew)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recorded_at is in the future")
		}
	}
	sample := &models.LocationSample{
		DriverID:   input.DriverID,
		Latitude:   input.Lat,
		Longitude:  input.Lng,
		Heading:    input.Heading,
		Speed:      input.Speed,
		Accuracy:   input.Accuracy,
		Geohash:    geohash.EncodeWithPrecision(input.Lat, input.Lng, SampleGeohashPrecision),
		RecordedAt: recordedAt,
		CreatedAt:  now,
	}
	if err := s.repo.InsertSample(ctx, sample); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record location")
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"driver_id": input.DriverID.String(),
		"geohash":   sample.Geohash,
	}), "location recorded")
	return sample, nil
}

// CurrentLocation is the driver's latest sample.
func (s *service) CurrentLocation(ctx context.Context, driverID uuid.UUID, actor types.Actor) (*models.LocationSample, error) {
	if !actsAsDriver(actor, driverID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not read this driver's position")
	}
	sample, err := s.repo.LatestSample(ctx, driverID)
	if err != nil {
		return nil, mapNotFound(err, "location")
	}
	return sample, nil
}

func (s *service) UpdateTracking(ctx context.Context, input UpdateTrackingInput, actor types.Actor) (*TrackingResult, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown tracking status").
			WithDetails(map[string]any{"status": input.Status})
	}
	if err := validateCoordinates(input.Lat, input.Lng); err != nil {
		return nil, err
	}
	load, err := s.repo.FindLoad(ctx, input.LoadID)
	if err != nil {
		return nil, mapNotFound(err, "load")
	}
	if !canTrack(actor, load) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not assigned to this load")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"load_id": load.ID.String(),
		"status":  input.Status,
	})

	now := s.now()
	row := &models.RouteTracking{
		LoadID:     load.ID,
		DriverID:   load.DriverID,
		CurrentLat: input.Lat,
		CurrentLng: input.Lng,
		Status:     input.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	result := &TrackingResult{}
	if target, column := etaTarget(input.Status); target != "" {
		result.ETAFor = target
		eta, reason := s.estimate(ctx, load, target, maps.Coordinates{Lat: input.Lat, Lng: input.Lng})
		if reason != "" {
			result.ETAUnavailable = reason
			s.logg.Warn(s.logg.WithField(logCtx, "reason", reason), "eta unavailable")
		}
		if column == "eta_pickup" {
			row.EtaPickup = eta
		} else {
			row.EtaDelivery = eta
		}
	}

	if err := s.repo.UpsertTracking(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert tracking")
	}
	stored, err := s.repo.FindTracking(ctx, load.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload tracking")
	}
	result.Tracking = stored
	s.logg.Info(logCtx, "tracking updated")
	return result, nil
}

// estimate returns the ETA to the waypoint, or the reason there is none.
func (s *service) estimate(ctx context.Context, load *models.Load, target string, from maps.Coordinates) (*time.Time, string) {
	if s.geo == nil {
		return nil, "geo provider not configured"
	}
	to, ok := s.waypoint(ctx, load, target)
	if !ok {
		return nil, target + " location not geocoded"
	}

	etaCtx, cancel := context.WithTimeout(ctx, s.etaTimeout)
	defer cancel()
	eta, err := s.geo.ETA(etaCtx, from, to)
	if s.metrics != nil {
		s.metrics.Geo("eta", err)
	}
	if err != nil {
		return nil, "geo provider unavailable: " + err.Error()
	}
	if eta == nil {
		return nil, "no route to " + target
	}
	return eta, ""
}

// waypoint prefers the geocoded load location and falls back to the
// coordinates mirrored onto the load.
func (s *service) waypoint(ctx context.Context, load *models.Load, target string) (maps.Coordinates, bool) {
	location, err := s.repo.FindLoadLocation(ctx, load.ID)
	if err == nil {
		if target == "pickup" && location.HasPickup() {
			return maps.Coordinates{Lat: *location.PickupLat, Lng: *location.PickupLng}, true
		}
		if target == "delivery" && location.HasDelivery() {
			return maps.Coordinates{Lat: *location.DeliveryLat, Lng: *location.DeliveryLng}, true
		}
	}
	if target == "pickup" && load.PickupLat != nil && load.PickupLng != nil {
		return maps.Coordinates{Lat: *load.PickupLat, Lng: *load.PickupLng}, true
	}
	if target == "delivery" && load.DeliveryLat != nil && load.DeliveryLng != nil {
		return maps.Coordinates{Lat: *load.DeliveryLat, Lng: *load.DeliveryLng}, true
	}
	return maps.Coordinates{}, false
}

func (s *service) GetTracking(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.RouteTracking, error) {
	load, err := s.repo.FindLoad(ctx, loadID)
	if err != nil {
		return nil, mapNotFound(err, "load")
	}
	if !canTrack(actor, load) && !(actor.Role == enums.ActorRoleShipper && actor.ActsFor(load.CustomerID)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracking not found")
	}
	tracking, err := s.repo.FindTracking(ctx, loadID)
	if err != nil {
		return nil, mapNotFound(err, "tracking")
	}
	return tracking, nil
}

// UpdateRouteStops replaces the driver's whole stop plan. Previous stops,
// completed or not, are discarded.
func (s *service) UpdateRouteStops(ctx context.Context, driverID uuid.UUID, inputs []StopInput, actor types.Actor) ([]models.RouteStop, error) {
	if !actsAsDriver(actor, driverID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not plan this driver's route")
	}
	if len(inputs) > maxStopsPerPlan {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a plan holds at most %d stops", maxStopsPerPlan))
	}

	now := s.now()
	stops := make([]models.RouteStop, 0, len(inputs))
	for i, in := range inputs {
		if !in.StopType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown stop type").
				WithDetails(map[string]any{"index": i, "stop_type": in.StopType})
		}
		if (in.Lat == nil) != (in.Lng == nil) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stop coordinates need both lat and lng").
				WithDetails(map[string]any{"index": i})
		}
		if in.Lat != nil {
			if err := validateCoordinates(*in.Lat, *in.Lng); err != nil {
				return nil, err
			}
		}
		stops = append(stops, models.RouteStop{
			DriverID:    driverID,
			LoadID:      in.LoadID,
			Sequence:    i + 1,
			StopType:    in.StopType,
			Address:     strings.TrimSpace(in.Address),
			Lat:         in.Lat,
			Lng:         in.Lng,
			Status:      enums.StopStatusPending,
			ScheduledAt: in.ScheduledAt,
			CreatedAt:   now,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindDriver(ctx, driverID); err != nil {
			return mapNotFound(err, "driver")
		}
		if err := repo.ReplaceStops(ctx, driverID, stops); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace route stops")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"driver_id": driverID.String(),
		"stops":     len(stops),
	}), "route plan replaced")
	return stops, nil
}

func (s *service) ListStops(ctx context.Context, driverID uuid.UUID, actor types.Actor) ([]models.RouteStop, error) {
	if !actsAsDriver(actor, driverID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not read this driver's route")
	}
	stops, err := s.repo.ListStops(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list route stops")
	}
	if stops == nil {
		stops = []models.RouteStop{}
	}
	return stops, nil
}

// CompleteStop marks a stop done and advances the load's tracking: a pickup
// moves it to en_route_delivery, a delivery to completed. Completing a
// completed stop is a no-op.
func (s *service) CompleteStop(ctx context.Context, stopID uuid.UUID, actor types.Actor) (*models.RouteStop, error) {
	var (
		stop     *models.RouteStop
		advanced enums.TrackingStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindStop(ctx, stopID)
		if err != nil {
			return mapNotFound(err, "stop")
		}
		if !actsAsDriver(actor, current.DriverID) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not complete this stop")
		}
		stop = current
		if current.Status == enums.StopStatusCompleted {
			return nil
		}

		now := s.now()
		ok, err := repo.CompleteStop(ctx, current.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete stop")
		}
		if !ok {
			return nil
		}
		current.Status = enums.StopStatusCompleted
		current.CompletedAt = &now

		if current.LoadID == nil {
			return nil
		}
		if _, err := repo.FindTracking(ctx, *current.LoadID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tracking lookup")
		}
		next := enums.TrackingStatusEnRouteDelivery
		if current.StopType == enums.StopTypeDelivery {
			next = enums.TrackingStatusCompleted
		}
		if err := repo.UpdateTrackingStatus(ctx, *current.LoadID, next, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance tracking")
		}
		advanced = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"stop_id":   stop.ID.String(),
		"driver_id": stop.DriverID.String(),
		"stop_type": stop.StopType,
	}
	if advanced != "" {
		fields["load_id"] = stop.LoadID.String()
		fields["tracking_status"] = advanced
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "stop completed")
	return stop, nil
}

// etaTarget names the next waypoint for a tracking status and the column
// its ETA lands in.
func etaTarget(status enums.TrackingStatus) (string, string) {
	switch status {
	case enums.TrackingStatusEnRoutePickup:
		return "pickup", "eta_pickup"
	case enums.TrackingStatusAtPickup, enums.TrackingStatusEnRouteDelivery:
		return "delivery", "eta_delivery"
	}
	return "", ""
}

func actsAsDriver(actor types.Actor, driverID uuid.UUID) bool {
	if actor.IsStaff() || actor.Role == enums.ActorRoleSystem {
		return true
	}
	return actor.Role == enums.ActorRoleDriver && actor.UserID == driverID
}

func canTrack(actor types.Actor, load *models.Load) bool {
	switch actor.Role {
	case enums.ActorRoleDispatcher, enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return true
	case enums.ActorRoleCarrier:
		return load.HasCarrier() && actor.ActsFor(*load.CarrierID)
	case enums.ActorRoleDriver:
		return load.DriverID != nil && *load.DriverID == actor.UserID
	}
	return false
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range").
			WithDetails(map[string]float64{"lat": lat, "lng": lng})
	}
	return nil
}

func mapNotFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, entity+" lookup")
}
