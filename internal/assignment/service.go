package assignment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

const (
	DefaultFleetTopN = 20
	DefaultLoadTopN  = 10

	defaultCandidateLimit = 100
	metersPerMile         = 1609.344
)

// Empty-result reasons. The short codes double as metric labels.
const (
	reasonNoDrivers      = "no_drivers"
	reasonNoLoads        = "no_loads"
	reasonGeoUnavailable = "geo_unavailable"
	reasonNoRoutes       = "no_routes"
	reasonNoCarriers     = "no_carriers"
)

var reasonMessages = map[string]string{
	reasonNoDrivers:      "no active drivers have reported a location",
	reasonNoLoads:        "no unassigned loads have a geocoded pickup",
	reasonGeoUnavailable: "distance provider is unavailable, try again shortly",
	reasonNoRoutes:       "no drivable route was found between drivers and loads",
	reasonNoCarriers:     "no carrier drivers have reported a location",
}

const reasonPickupMissing = "load pickup has not been geocoded"

type service struct {
	repo           Repository
	geo            distanceProvider
	logg           *logger.Logger
	metrics        scorerMetrics
	fleetTopN      int
	loadTopN       int
	candidateLimit int
}

type Option func(*service)

func WithMetrics(m scorerMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithTopN bounds fleet-wide and single-load result sizes.
func WithTopN(fleet, load int) Option {
	return func(s *service) {
		if fleet > 0 {
			s.fleetTopN = fleet
		}
		if load > 0 {
			s.loadTopN = load
		}
	}
}

// WithCandidateLimit caps how many drivers and loads enter one matrix.
func WithCandidateLimit(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.candidateLimit = n
		}
	}
}

func NewService(repo Repository, geo distanceProvider, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if geo == nil {
		return nil, fmt.Errorf("distance provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo:           repo,
		geo:            geo,
		logg:           logg,
		fleetTopN:      DefaultFleetTopN,
		loadTopN:       DefaultLoadTopN,
		candidateLimit: defaultCandidateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OptimizedAssignments pairs every located driver with every open load and
// returns the closest pairings fleet-wide.
func (s *service) OptimizedAssignments(ctx context.Context, actor types.Actor) (*Recommendations, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may run fleet assignment")
	}
	drivers, err := s.repo.DriverPositions(ctx, s.candidateLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver positions")
	}
	pickups, err := s.repo.OpenLoadPickups(ctx, s.candidateLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open pickups")
	}
	return s.rank(ctx, drivers, pickups, s.fleetTopN), nil
}

// LoadProximity ranks located drivers by distance to one load's pickup.
func (s *service) LoadProximity(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*Recommendations, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may rank drivers for a load")
	}
	pickup, err := s.loadPickup(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if pickup == nil {
		s.recordEmpty(ctx, reasonNoLoads)
		return &Recommendations{Items: []Recommendation{}, Reason: reasonPickupMissing}, nil
	}

	drivers, err := s.repo.DriverPositions(ctx, s.candidateLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver positions")
	}
	return s.rank(ctx, drivers, []LoadPickup{*pickup}, s.loadTopN), nil
}

// CarrierProximity ranks carriers for one load by their closest located
// driver. Drivers without a carrier are company fleet and are skipped.
func (s *service) CarrierProximity(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*CarrierRecommendations, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may rank carriers for a load")
	}
	pickup, err := s.loadPickup(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if pickup == nil {
		s.recordEmpty(ctx, reasonNoLoads)
		return &CarrierRecommendations{Items: []CarrierRecommendation{}, Reason: reasonPickupMissing}, nil
	}

	drivers, err := s.repo.DriverPositions(ctx, s.candidateLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver positions")
	}
	carrierDrivers := make([]DriverPosition, 0, len(drivers))
	for _, d := range drivers {
		if d.CarrierID != nil && *d.CarrierID != uuid.Nil {
			carrierDrivers = append(carrierDrivers, d)
		}
	}
	if len(carrierDrivers) == 0 {
		s.recordEmpty(ctx, reasonNoCarriers)
		return &CarrierRecommendations{Items: []CarrierRecommendation{}, Reason: reasonMessages[reasonNoCarriers]}, nil
	}

	ranked := s.rank(ctx, carrierDrivers, []LoadPickup{*pickup}, 0)
	if len(ranked.Items) == 0 {
		return &CarrierRecommendations{Items: []CarrierRecommendation{}, Reason: ranked.Reason}, nil
	}

	// ranked is closest first, so the first row seen per carrier is its best
	index := make(map[uuid.UUID]int)
	items := make([]CarrierRecommendation, 0, len(ranked.Items))
	for _, rec := range ranked.Items {
		carrierID := *rec.CarrierID
		if i, ok := index[carrierID]; ok {
			items[i].DriversRanked++
			continue
		}
		index[carrierID] = len(items)
		items = append(items, CarrierRecommendation{
			CarrierID:           carrierID,
			LoadID:              rec.LoadID,
			LoadNumber:          rec.LoadNumber,
			DriverID:            rec.DriverID,
			DriverName:          rec.DriverName,
			DriversRanked:       1,
			DriverEquipment:     rec.DriverEquipment,
			DistanceMeters:      rec.DistanceMeters,
			DurationSeconds:     rec.DurationSeconds,
			Score:               rec.Score,
			EquipmentCompatible: rec.EquipmentCompatible,
		})
	}
	if s.loadTopN > 0 && len(items) > s.loadTopN {
		items = items[:s.loadTopN]
	}
	return &CarrierRecommendations{Items: items}, nil
}

// loadPickup resolves a load's geocoded pickup. A nil pickup with a nil
// error means the load exists but has not been geocoded.
func (s *service) loadPickup(ctx context.Context, loadID uuid.UUID) (*LoadPickup, error) {
	load, err := s.repo.FindLoad(ctx, loadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "load not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lookup")
	}

	location, err := s.repo.FindLocation(ctx, loadID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location lookup")
	}
	if !location.HasPickup() {
		return nil, nil
	}
	return &LoadPickup{
		LoadID:        load.ID,
		LoadNumber:    load.LoadNumber,
		Status:        load.Status,
		EquipmentType: load.EquipmentType,
		PickupLat:     *location.PickupLat,
		PickupLng:     *location.PickupLng,
		PickupGeohash: location.PickupGeohash,
	}, nil
}

// rank scores every driver/pickup pair by driving distance. Incompatible
// equipment is flagged on the pairing, never filtered out.
func (s *service) rank(ctx context.Context, drivers []DriverPosition, pickups []LoadPickup, topN int) *Recommendations {
	if len(drivers) == 0 {
		return s.empty(ctx, reasonNoDrivers)
	}
	if len(pickups) == 0 {
		return s.empty(ctx, reasonNoLoads)
	}

	origins := make([]maps.Coordinates, len(drivers))
	for i, d := range drivers {
		origins[i] = maps.Coordinates{Lat: d.Lat, Lng: d.Lng}
	}
	destinations := make([]maps.Coordinates, len(pickups))
	for j, p := range pickups {
		destinations[j] = maps.Coordinates{Lat: p.PickupLat, Lng: p.PickupLng}
	}

	matrix, err := s.geo.DistanceMatrix(ctx, origins, destinations)
	if s.metrics != nil {
		s.metrics.Geo("distance_matrix", err)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "distance matrix failed")
		return s.empty(ctx, reasonGeoUnavailable)
	}

	items := make([]Recommendation, 0, len(drivers)*len(pickups))
	for i, d := range drivers {
		for j, p := range pickups {
			cell := matrix.At(i, j)
			if !cell.OK {
				continue
			}
			rec := Recommendation{
				DriverID:            d.DriverID,
				DriverName:          d.Name,
				CarrierID:           d.CarrierID,
				DriverEquipment:     d.EquipmentType,
				LastSeenAt:          d.RecordedAt,
				LoadID:              p.LoadID,
				LoadNumber:          p.LoadNumber,
				LoadEquipment:       p.EquipmentType,
				DistanceMeters:      cell.DistanceMeters,
				DurationSeconds:     cell.DurationSeconds,
				Score:               score(cell.DistanceMeters),
				EquipmentCompatible: d.EquipmentType.Compatible(p.EquipmentType),
			}
			if p.PickupGeohash != nil {
				rec.PickupGeohash = *p.PickupGeohash
			}
			items = append(items, rec)
		}
	}
	if len(items) == 0 {
		return s.empty(ctx, reasonNoRoutes)
	}

	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if x.Score != y.Score {
			return x.Score < y.Score
		}
		if x.DurationSeconds != y.DurationSeconds {
			return x.DurationSeconds < y.DurationSeconds
		}
		if x.DriverID != y.DriverID {
			return x.DriverID.String() < y.DriverID.String()
		}
		return x.LoadID.String() < y.LoadID.String()
	})
	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"drivers": len(drivers),
		"loads":   len(pickups),
		"ranked":  len(items),
	}), "assignment ranking computed")
	return &Recommendations{Items: items}
}

func (s *service) empty(ctx context.Context, reason string) *Recommendations {
	s.recordEmpty(ctx, reason)
	return &Recommendations{Items: []Recommendation{}, Reason: reasonMessages[reason]}
}

func (s *service) recordEmpty(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.ScorerEmpty(reason)
	}
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "assignment ranking empty")
}

// score is driving distance in miles, rounded to hundredths.
func score(meters int) float64 {
	return math.Round(float64(meters)/metersPerMile*100) / 100
}
