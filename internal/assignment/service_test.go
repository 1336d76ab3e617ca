package assignment

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/maps"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

var fixedNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// planarMatrix fakes driving distance as 100km per degree of separation.
type planarMatrix struct {
	err     error
	noRoute bool
	calls   int
	origins int
	dests   int
}

func (p *planarMatrix) DistanceMatrix(_ context.Context, origins, destinations []maps.Coordinates) (*maps.Matrix, error) {
	p.calls++
	p.origins, p.dests = len(origins), len(destinations)
	if p.err != nil {
		return nil, p.err
	}
	m := &maps.Matrix{Rows: make([][]maps.Element, len(origins))}
	for i, o := range origins {
		m.Rows[i] = make([]maps.Element, len(destinations))
		for j, d := range destinations {
			if p.noRoute {
				continue
			}
			deg := math.Hypot(o.Lat-d.Lat, o.Lng-d.Lng)
			m.Rows[i][j] = maps.Element{
				OK:              true,
				DistanceMeters:  int(deg * 100000),
				DurationSeconds: int(deg * 3600),
			}
		}
	}
	return m, nil
}

type recordingMetrics struct {
	empty []string
	geo   int
}

func (r *recordingMetrics) Geo(string, error)        { r.geo++ }
func (r *recordingMetrics) ScorerEmpty(reason string) { r.empty = append(r.empty, reason) }

type fixture struct {
	svc     Service
	conn    *gorm.DB
	geo     *planarMatrix
	metrics *recordingMetrics
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	client := dbtest.Client(t)
	geo := &planarMatrix{}
	rec := &recordingMetrics{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(client.DB()), geo, logg, append([]Option{WithMetrics(rec)}, opts...)...)
	require.NoError(t, err)
	return fixture{svc: svc, conn: client.DB(), geo: geo, metrics: rec}
}

func (f fixture) seedDriver(t *testing.T, name string, equipment enums.EquipmentType, active bool, lat, lng float64) *models.Driver {
	t.Helper()
	driver := &models.Driver{Name: name, EquipmentType: equipment, Active: true}
	require.NoError(t, f.conn.Create(driver).Error)
	if !active {
		require.NoError(t, f.conn.Model(driver).Update("active", false).Error)
	}
	f.sample(t, driver.ID, lat, lng, fixedNow)
	return driver
}

func (f fixture) sample(t *testing.T, driverID uuid.UUID, lat, lng float64, at time.Time) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.LocationSample{
		DriverID:   driverID,
		Latitude:   lat,
		Longitude:  lng,
		RecordedAt: at,
	}).Error)
}

func (f fixture) seedLoad(t *testing.T, equipment enums.EquipmentType, lat, lng *float64, mutate func(*models.Load)) *models.Load {
	t.Helper()
	load := &models.Load{
		LoadNumber:      "LD-20260302-" + strings.ToUpper(uuid.NewString()[:6]),
		Status:          enums.LoadStatusPosted,
		CustomerID:      uuid.New(),
		PickupAddress:   "pickup",
		DeliveryAddress: "delivery",
		EquipmentType:   equipment,
	}
	if mutate != nil {
		mutate(load)
	}
	require.NoError(t, f.conn.Create(load).Error)
	hash := "9vg4mq"
	require.NoError(t, f.conn.Create(&models.LoadLocation{
		LoadID:        load.ID,
		PickupLat:     lat,
		PickupLng:     lng,
		PickupGeohash: &hash,
		GeocodedAt:    fixedNow,
	}).Error)
	return load
}

func ptr(v float64) *float64 { return &v }

func dispatcher() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.ActorRoleDispatcher}
}

func TestOptimizedAssignmentsEmptyFleet(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.NotEmpty(t, result.Reason)
	require.Equal(t, []string{reasonNoDrivers}, f.metrics.empty)
	require.Zero(t, f.geo.calls)

	f.seedDriver(t, "Ana", enums.EquipmentDryVan, true, 32.0, -96.0)
	result, err = f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, reasonMessages[reasonNoLoads], result.Reason)
}

func TestOptimizedAssignmentsRanksByDistance(t *testing.T) {
	f := newFixture(t)
	near := f.seedDriver(t, "Near", enums.EquipmentFlatbed, true, 32.70, -96.80)
	far := f.seedDriver(t, "Far", enums.EquipmentDryVan, true, 30.00, -97.70)
	f.seedDriver(t, "Parked", enums.EquipmentDryVan, false, 32.77, -96.79)

	dallas := f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), nil)
	f.seedLoad(t, enums.EquipmentDryVan, nil, nil, nil)
	f.seedLoad(t, enums.EquipmentDryVan, ptr(32.0), ptr(-96.0), func(l *models.Load) {
		carrier := uuid.New()
		l.Status = enums.LoadStatusPendingPickup
		l.CarrierID = &carrier
		l.CarrierRate = decimal.NewNullDecimal(decimal.NewFromInt(900))
	})

	result, err := f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Reason)
	require.Equal(t, 2, f.geo.origins, "inactive drivers are not candidates")
	require.Equal(t, 1, f.geo.dests, "assigned and ungeocoded loads are not candidates")
	require.Len(t, result.Items, 2)

	best := result.Items[0]
	require.Equal(t, near.ID, best.DriverID)
	require.Equal(t, dallas.ID, best.LoadID)
	require.False(t, best.EquipmentCompatible, "incompatible equipment is flagged, not filtered")
	require.Equal(t, "9vg4mq", best.PickupGeohash)
	require.Equal(t, far.ID, result.Items[1].DriverID)
	require.True(t, result.Items[1].EquipmentCompatible)
	require.Less(t, best.Score, result.Items[1].Score)
}

func TestOptimizedAssignmentsUsesLatestSample(t *testing.T) {
	f := newFixture(t)
	driver := f.seedDriver(t, "Mover", enums.EquipmentDryVan, true, 40.0, -100.0)
	f.sample(t, driver.ID, 32.76, -96.78, fixedNow.Add(time.Minute))
	f.sample(t, driver.ID, 32.76, -96.78, fixedNow.Add(time.Minute))
	f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), nil)

	result, err := f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Len(t, result.Items, 1, "duplicate latest samples collapse to one candidate")
	require.Less(t, result.Items[0].Score, 5.0)
	require.True(t, result.Items[0].LastSeenAt.Equal(fixedNow.Add(time.Minute)))
}

func TestOptimizedAssignmentsTopN(t *testing.T) {
	f := newFixture(t, WithTopN(3, 2))
	for i := 0; i < 3; i++ {
		f.seedDriver(t, "Driver", enums.EquipmentDryVan, true, 32.0+float64(i), -96.0)
	}
	for i := 0; i < 2; i++ {
		f.seedLoad(t, enums.EquipmentDryVan, ptr(32.5+float64(i)), ptr(-96.5), nil)
	}

	result, err := f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	for i := 1; i < len(result.Items); i++ {
		require.LessOrEqual(t, result.Items[i-1].Score, result.Items[i].Score)
	}
}

func TestOptimizedAssignmentsDegradesOnGeoFailure(t *testing.T) {
	f := newFixture(t)
	f.seedDriver(t, "Ana", enums.EquipmentDryVan, true, 32.0, -96.0)
	f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), nil)

	f.geo.err = pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "distance matrix request failed")
	result, err := f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, reasonMessages[reasonGeoUnavailable], result.Reason)

	f.geo.err = nil
	f.geo.noRoute = true
	result, err = f.svc.OptimizedAssignments(context.Background(), dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, reasonMessages[reasonNoRoutes], result.Reason)
	require.Equal(t, []string{reasonGeoUnavailable, reasonNoRoutes}, f.metrics.empty)
	require.Equal(t, 2, f.metrics.geo)
}

func TestLoadProximity(t *testing.T) {
	f := newFixture(t)
	f.seedDriver(t, "Near", enums.EquipmentDryVan, true, 32.70, -96.80)
	f.seedDriver(t, "Far", enums.EquipmentDryVan, true, 35.00, -97.00)

	carrier := uuid.New()
	assigned := f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), func(l *models.Load) {
		l.Status = enums.LoadStatusPendingPickup
		l.CarrierID = &carrier
		l.CarrierRate = decimal.NewNullDecimal(decimal.NewFromInt(900))
	})

	result, err := f.svc.LoadProximity(context.Background(), assigned.ID, dispatcher())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, "Near", result.Items[0].DriverName)
	require.Equal(t, assigned.ID, result.Items[0].LoadID)

	ungeocoded := f.seedLoad(t, enums.EquipmentDryVan, nil, nil, nil)
	result, err = f.svc.LoadProximity(context.Background(), ungeocoded.ID, dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.NotEmpty(t, result.Reason)

	_, err = f.svc.LoadProximity(context.Background(), uuid.New(), dispatcher())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	carrierActor := types.Actor{UserID: uuid.New(), CompanyID: &carrier, Role: enums.ActorRoleCarrier}
	_, err = f.svc.LoadProximity(context.Background(), assigned.ID, carrierActor)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func (f fixture) seedCarrierDriver(t *testing.T, name string, carrierID uuid.UUID, equipment enums.EquipmentType, lat, lng float64) *models.Driver {
	t.Helper()
	driver := &models.Driver{Name: name, CarrierID: &carrierID, EquipmentType: equipment, Active: true}
	require.NoError(t, f.conn.Create(driver).Error)
	f.sample(t, driver.ID, lat, lng, fixedNow)
	return driver
}

func TestCarrierProximityRanksBestDriverPerCarrier(t *testing.T) {
	f := newFixture(t)
	load := f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), nil)

	// fleet drivers have no carrier and are not candidates
	f.seedDriver(t, "Fleet", enums.EquipmentDryVan, true, 32.77, -96.79)

	acme, zenith := uuid.New(), uuid.New()
	acmeNear := f.seedCarrierDriver(t, "Acme Near", acme, enums.EquipmentFlatbed, 32.70, -96.80)
	f.seedCarrierDriver(t, "Acme Far", acme, enums.EquipmentDryVan, 35.00, -97.00)
	zenithMid := f.seedCarrierDriver(t, "Zenith Mid", zenith, enums.EquipmentReefer, 33.50, -96.80)

	result, err := f.svc.CarrierProximity(context.Background(), load.ID, dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Reason)
	require.Equal(t, 3, f.geo.origins)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	require.Equal(t, acme, first.CarrierID)
	require.Equal(t, acmeNear.ID, first.DriverID)
	require.Equal(t, 2, first.DriversRanked)
	require.Equal(t, load.ID, first.LoadID)
	require.False(t, first.EquipmentCompatible, "incompatible equipment is flagged, not filtered")

	second := result.Items[1]
	require.Equal(t, zenith, second.CarrierID)
	require.Equal(t, zenithMid.ID, second.DriverID)
	require.Equal(t, 1, second.DriversRanked)
	require.True(t, second.EquipmentCompatible)
	require.Less(t, first.Score, second.Score)
}

func TestCarrierProximityEmptyResults(t *testing.T) {
	f := newFixture(t)
	load := f.seedLoad(t, enums.EquipmentDryVan, ptr(32.77), ptr(-96.79), nil)
	f.seedDriver(t, "Fleet", enums.EquipmentDryVan, true, 32.70, -96.80)

	result, err := f.svc.CarrierProximity(context.Background(), load.ID, dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, reasonMessages[reasonNoCarriers], result.Reason)
	require.Zero(t, f.geo.calls)

	f.seedCarrierDriver(t, "Acme", uuid.New(), enums.EquipmentDryVan, 32.70, -96.80)
	f.geo.err = pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "distance matrix request failed")
	result, err = f.svc.CarrierProximity(context.Background(), load.ID, dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, reasonMessages[reasonGeoUnavailable], result.Reason)

	ungeocoded := f.seedLoad(t, enums.EquipmentDryVan, nil, nil, nil)
	result, err = f.svc.CarrierProximity(context.Background(), ungeocoded.ID, dispatcher())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.NotEmpty(t, result.Reason)

	_, err = f.svc.CarrierProximity(context.Background(), uuid.New(), dispatcher())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	carrier := uuid.New()
	carrierActor := types.Actor{UserID: uuid.New(), CompanyID: &carrier, Role: enums.ActorRoleCarrier}
	_, err = f.svc.CarrierProximity(context.Background(), load.ID, carrierActor)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
