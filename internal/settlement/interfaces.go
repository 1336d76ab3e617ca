package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Repository reads loads and persists invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLoadForUpdate(ctx context.Context, loadID uuid.UUID) (*models.Load, error)
	FindInvoiceByLoad(ctx context.Context, loadID uuid.UUID) (*models.Invoice, error)
	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Guard issues invoices for delivered loads, exactly once per load.
type Guard interface {
	IssueInvoice(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Invoice, error)
	GetInvoice(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID uuid.UUID, actor types.Actor) (*models.Invoice, error)
	CheckReadiness(load *models.Load) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type notifier interface {
	NotifyOnce(ctx context.Context, event outbox.DomainEvent)
}

type invoiceMetrics interface {
	Invoice(result string)
}
