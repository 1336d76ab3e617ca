package outbox

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

// Notifier queues notification events after the primary transaction has
// committed. A failed emit is logged and dropped; it never reaches the caller.
type Notifier struct {
	tx      txRunner
	emitter emitter
	logg    *logger.Logger
}

func NewNotifier(tx txRunner, emitter emitter, logg *logger.Logger) *Notifier {
	return &Notifier{tx: tx, emitter: emitter, logg: logg}
}

// Notify queues event in its own transaction.
func (n *Notifier) Notify(ctx context.Context, event DomainEvent) {
	n.run(ctx, event, false)
}

// NotifyOnce queues event unless one of the same type already exists for the
// aggregate.
func (n *Notifier) NotifyOnce(ctx context.Context, event DomainEvent) {
	n.run(ctx, event, true)
}

func (n *Notifier) run(ctx context.Context, event DomainEvent, once bool) {
	if n == nil || n.tx == nil || n.emitter == nil {
		return
	}
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if once {
			return n.emitter.EmitIfNotExists(ctx, tx, event)
		}
		return n.emitter.Emit(ctx, tx, event)
	})
	if err != nil && n.logg != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
			"error":        err.Error(),
		})
		n.logg.Warn(logCtx, "notification event not queued")
	}
}
