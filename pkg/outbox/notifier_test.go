package outbox

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestNotifierQueuesEvent(t *testing.T) {
	client := dbtest.Client(t)
	svc := NewService(NewRepository(client.DB()), testLogger())
	notifier := NewNotifier(client, svc, testLogger())

	loadID := uuid.New()
	notifier.Notify(context.Background(), DomainEvent{
		EventType:     enums.EventLoadStatusChanged,
		AggregateType: enums.AggregateLoad,
		AggregateID:   loadID,
		Data:          map[string]string{"to": "posted"},
	})

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, loadID, rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)
}

func TestNotifierNotifyOnceSkipsDuplicates(t *testing.T) {
	client := dbtest.Client(t)
	svc := NewService(NewRepository(client.DB()), testLogger())
	notifier := NewNotifier(client, svc, testLogger())

	event := DomainEvent{
		EventType:     enums.EventInvoiceIssued,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"invoice": "INV-1"},
	}
	notifier.NotifyOnce(context.Background(), event)
	notifier.NotifyOnce(context.Background(), event)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

type failingEmitter struct{ calls int }

func (f *failingEmitter) Emit(context.Context, *gorm.DB, DomainEvent) error {
	f.calls++
	return errors.New("boom")
}

func (f *failingEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	return f.Emit(ctx, tx, event)
}

func TestNotifierSwallowsEmitFailure(t *testing.T) {
	client := dbtest.Client(t)
	emitter := &failingEmitter{}
	notifier := NewNotifier(client, emitter, testLogger())

	require.NotPanics(t, func() {
		notifier.Notify(context.Background(), DomainEvent{
			EventType:     enums.EventBidSubmitted,
			AggregateType: enums.AggregateBid,
			AggregateID:   uuid.New(),
		})
	})
	require.Equal(t, 1, emitter.calls)
}

func TestNilNotifierIsNoop(t *testing.T) {
	var notifier *Notifier
	require.NotPanics(t, func() {
		notifier.Notify(context.Background(), DomainEvent{EventType: enums.EventBidSubmitted})
	})
}
