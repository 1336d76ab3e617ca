package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/registry"
)

const dispatchNotificationConsumer = "dispatch-notifications"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

// Consumer turns dispatch domain events into inbox rows, one per recipient.
type Consumer struct {
	repo         Repository
	tx           txRunner
	subscription *pubsub.Subscriber
	decoders     decoder
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a dispatch notification consumer. A nil decoder set
// falls back to the registered v1 notification decoders.
func NewConsumer(repo Repository, tx txRunner, subscription *pubsub.Subscriber, decoders decoder, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if decoders == nil {
		decoders = registry.NewNotificationDecoders()
	}
	return &Consumer{
		repo:         repo,
		tx:           tx,
		subscription: subscription,
		decoders:     decoders,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("domain subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err == nil && eventID == uuid.Nil {
		err = fmt.Errorf("nil event id")
	}
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	notifier, ok := decoded.(payloads.Notifier)
	if !ok {
		c.logg.Warn(logCtx, "payload carries no notice")
		return processResult{ack: true}
	}
	notice := notifier.Notification()
	if len(notice.Recipients) == 0 {
		c.logg.Info(logCtx, "event has no recipients")
		return processResult{ack: true}
	}

	rows := buildNotifications(eventID, notice)
	skipped, err := c.idempotency.Process(ctx, dispatchNotificationConsumer, eventID, func(ctx context.Context) error {
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return c.repo.WithTx(tx).CreateBatch(ctx, rows)
		})
	})
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return processResult{nack: true}
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"entity_id":  notice.EntityID.String(),
		"recipients": len(rows),
	}), "notifications created")
	return processResult{ack: true, created: len(rows)}
}

func buildNotifications(eventID uuid.UUID, notice payloads.Notice) []models.Notification {
	rows := make([]models.Notification, 0, len(notice.Recipients))
	seen := make(map[string]struct{}, len(notice.Recipients))
	for _, recipient := range notice.Recipients {
		if !recipient.Role.IsValid() {
			continue
		}
		key := string(recipient.Role)
		if recipient.CompanyID != nil {
			key += ":" + recipient.CompanyID.String()
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		id := eventID
		rows = append(rows, models.Notification{
			EventID:       &id,
			RecipientRole: recipient.Role,
			RecipientID:   recipient.CompanyID,
			Type:          notice.Type,
			EntityType:    string(notice.EntityType),
			EntityID:      notice.EntityID,
			Title:         strings.TrimSpace(notice.Title),
			Message:       strings.TrimSpace(notice.Message),
		})
	}
	return rows
}
