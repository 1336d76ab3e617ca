package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "fd:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type failingRepo struct {
	Repository
}

func (f failingRepo) WithTx(*gorm.DB) Repository { return f }

func (failingRepo) CreateBatch(context.Context, []models.Notification) error {
	return errors.New("insert failed")
}

type consumerFixture struct {
	consumer *Consumer
	conn     *gorm.DB
	store    *memoryStore
}

func newConsumerFixture(t *testing.T, wrap func(Repository) Repository) consumerFixture {
	t.Helper()
	client := dbtest.Client(t)
	store := newMemoryStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	repo := NewRepository(client.DB())
	if wrap != nil {
		repo = wrap(repo)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	consumer, err := NewConsumer(repo, client, nil, nil, manager, logg)
	require.NoError(t, err)
	return consumerFixture{consumer: consumer, conn: client.DB(), store: store}
}

func message(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func bidAccepted(carrierID, customerID uuid.UUID) payloads.BidAcceptedEvent {
	loadID := uuid.New()
	return payloads.BidAcceptedEvent{
		Notice: payloads.Notice{
			Recipients: []payloads.Recipient{
				{Role: enums.ActorRoleCarrier, CompanyID: &carrierID},
				{Role: enums.ActorRoleShipper, CompanyID: &customerID},
				{Role: enums.ActorRoleCarrier, CompanyID: &carrierID},
			},
			Type:       enums.NotificationTypeAssignmentAlert,
			EntityType: enums.AggregateLoad,
			EntityID:   loadID,
			Title:      "Bid accepted",
			Message:    "Your bid on LD-20260302-ABC123 was accepted.",
		},
		BidID:       uuid.New(),
		LoadID:      loadID,
		LoadNumber:  "LD-20260302-ABC123",
		CarrierID:   carrierID,
		CarrierRate: decimal.NewFromInt(450),
	}
}

func (f consumerFixture) count(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Notification{}).Count(&count).Error)
	return count
}

func TestConsumerFansOutPerRecipient(t *testing.T) {
	f := newConsumerFixture(t, nil)
	carrierID, customerID := uuid.New(), uuid.New()
	eventID := uuid.New()

	result := f.consumer.process(context.Background(), message(t, enums.EventBidAccepted, eventID, bidAccepted(carrierID, customerID)))
	require.True(t, result.ack)
	require.Equal(t, 2, result.created, "duplicate recipients collapse")

	var rows []models.Notification
	require.NoError(t, f.conn.Order("recipient_role ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, enums.ActorRoleCarrier, rows[0].RecipientRole)
	require.Equal(t, carrierID, *rows[0].RecipientID)
	require.Equal(t, eventID, *rows[0].EventID)
	require.Equal(t, string(enums.AggregateLoad), rows[0].EntityType)
	require.Equal(t, enums.ActorRoleShipper, rows[1].RecipientRole)

	again := f.consumer.process(context.Background(), message(t, enums.EventBidAccepted, eventID, bidAccepted(carrierID, customerID)))
	require.True(t, again.ack)
	require.Zero(t, again.created)
	require.EqualValues(t, 2, f.count(t), "redelivery does not duplicate rows")
}

func TestConsumerDispatcherBroadcast(t *testing.T) {
	f := newConsumerFixture(t, nil)
	event := payloads.BidSubmittedEvent{
		Notice: payloads.Notice{
			Recipients: []payloads.Recipient{{Role: enums.ActorRoleDispatcher}},
			Type:       enums.NotificationTypeBidAlert,
			EntityType: enums.AggregateBid,
			EntityID:   uuid.New(),
			Title:      "New bid",
			Message:    "A carrier bid $500.00.",
		},
		Amount: decimal.NewFromInt(500),
	}

	result := f.consumer.process(context.Background(), message(t, enums.EventBidSubmitted, uuid.New(), event))
	require.True(t, result.ack)

	var row models.Notification
	require.NoError(t, f.conn.First(&row).Error)
	require.Nil(t, row.RecipientID)
	require.Equal(t, enums.NotificationTypeBidAlert, row.Type)
}

func TestConsumerAcksUnusableMessages(t *testing.T) {
	f := newConsumerFixture(t, nil)

	unknown := message(t, "order_created", uuid.New(), map[string]string{})
	require.True(t, f.consumer.process(context.Background(), unknown).ack)

	garbled := &pubsub.Message{
		ID:         "m-1",
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": string(enums.EventBidSubmitted)},
	}
	require.True(t, f.consumer.process(context.Background(), garbled).ack)

	badID := message(t, enums.EventBidSubmitted, uuid.Nil, payloads.BidSubmittedEvent{})
	require.True(t, f.consumer.process(context.Background(), badID).ack)

	silent := message(t, enums.EventBidSubmitted, uuid.New(), payloads.BidSubmittedEvent{})
	require.True(t, f.consumer.process(context.Background(), silent).ack)
	require.Zero(t, f.count(t))
}

func TestConsumerNacksAndClearsMarkerOnFailure(t *testing.T) {
	f := newConsumerFixture(t, func(r Repository) Repository { return failingRepo{Repository: r} })
	eventID := uuid.New()

	result := f.consumer.process(context.Background(), message(t, enums.EventBidAccepted, eventID, bidAccepted(uuid.New(), uuid.New())))
	require.True(t, result.nack)
	require.Empty(t, f.store.keys, "a failed event can be retried")
}
