package loads

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event outbox.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) ofType(eventType enums.OutboxEventType) []outbox.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []outbox.DomainEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type readinessStub struct {
	calls int
	err   error
}

func (r *readinessStub) CheckReadiness(*models.Load) error {
	r.calls++
	return r.err
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) contains(text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Contains(l.buf.String(), text)
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	notifier *recordingNotifier
	logs     *logBuffer
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	client := dbtest.Client(t)
	notifier := &recordingNotifier{}
	logs := &logBuffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: logs})
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := NewService(NewRepository(client.DB()), client, notifier, logg, opts...)
	require.NoError(t, err)
	return fixture{svc: svc, conn: client.DB(), notifier: notifier, logs: logs}
}

func (f fixture) seedLoad(t *testing.T, mutate func(*models.Load)) *models.Load {
	t.Helper()
	load := &models.Load{
		LoadNumber:      NewLoadNumber(fixedNow),
		Status:          enums.LoadStatusPosted,
		CustomerID:      uuid.New(),
		PickupAddress:   "100 Main St, Dallas, TX",
		DeliveryAddress: "200 Elm St, Houston, TX",
		CustomerRate:    decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	if mutate != nil {
		mutate(load)
	}
	require.NoError(t, f.conn.Create(load).Error)
	return load
}

func (f fixture) reload(t *testing.T, id uuid.UUID) models.Load {
	t.Helper()
	var load models.Load
	require.NoError(t, f.conn.Unscoped().Where("id = ?", id).First(&load).Error)
	return load
}

func withCarrier(carrierID uuid.UUID, rate int64, confirmed bool) func(*models.Load) {
	return func(l *models.Load) {
		l.Status = enums.LoadStatusPendingPickup
		l.CarrierID = &carrierID
		l.CarrierRate = decimal.NewNullDecimal(decimal.NewFromInt(rate))
		l.RateConfirmed = confirmed
	}
}

func dispatcher() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.ActorRoleDispatcher}
}

func carrierActor(companyID uuid.UUID) types.Actor {
	return types.Actor{UserID: uuid.New(), CompanyID: &companyID, Role: enums.ActorRoleCarrier}
}

func shipperActor(companyID uuid.UUID) types.Actor {
	return types.Actor{UserID: uuid.New(), CompanyID: &companyID, Role: enums.ActorRoleShipper}
}

func (f fixture) seedBid(t *testing.T, loadID, carrierID uuid.UUID, amount int64, status enums.BidStatus) *models.Bid {
	t.Helper()
	bid := &models.Bid{
		LoadID:      loadID,
		CarrierID:   carrierID,
		BidAmount:   decimal.NewFromInt(amount),
		Status:      status,
		SubmittedAt: fixedNow,
	}
	require.NoError(t, f.conn.Create(bid).Error)
	return bid
}

func (f fixture) bidStatus(t *testing.T, id uuid.UUID) enums.BidStatus {
	t.Helper()
	var bid models.Bid
	require.NoError(t, f.conn.Where("id = ?", id).First(&bid).Error)
	return bid.Status
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (r *recordingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}
