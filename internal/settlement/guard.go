package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/lock"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/metrics"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// PaymentTerms is the net term printed on issued invoices.
const PaymentTerms = 30 * 24 * time.Hour

type guard struct {
	repo     Repository
	tx       txRunner
	locks    locker
	notifier notifier
	logg     *logger.Logger
	metrics  invoiceMetrics
	now      func() time.Time
}

type Option func(*guard)

func WithMetrics(m invoiceMetrics) Option {
	return func(g *guard) { g.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(g *guard) { g.now = now }
}

// NewGuard wires the settlement guard.
func NewGuard(repo Repository, tx txRunner, locks locker, notifier notifier, logg *logger.Logger, opts ...Option) (Guard, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	g := &guard{
		repo:     repo,
		tx:       tx,
		locks:    locks,
		notifier: notifier,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CheckReadiness applies the load-side invoice preconditions in order:
// status first, then customer rate.
func (g *guard) CheckReadiness(load *models.Load) error {
	if load.Status != enums.LoadStatusDelivered && load.Status != enums.LoadStatusClosed {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "load must be delivered before invoicing").
			WithDetails(map[string]any{"status": load.Status})
	}
	if !load.CustomerRate.Valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer rate is required to invoice").
			WithDetails(map[string]string{"customer_rate": "required"})
	}
	return nil
}

func (g *guard) IssueInvoice(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Invoice, error) {
	invoice, err := g.issue(ctx, loadID, actor)
	if g.metrics != nil {
		g.metrics.Invoice(metrics.Result(err))
	}
	if err != nil {
		return nil, err
	}

	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"load_id":        loadID.String(),
		"invoice_id":     invoice.ID.String(),
		"invoice_number": invoice.InvoiceNumber,
		"amount":         invoice.Amount.StringFixed(2),
	}), "invoice issued")

	customerID := invoice.CustomerID
	g.notifier.NotifyOnce(ctx, outbox.DomainEvent{
		EventType:     enums.EventInvoiceIssued,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Actor:         outbox.ActorFrom(actor),
		OccurredAt:    *invoice.IssuedAt,
		Data: payloads.InvoiceIssuedEvent{
			Notice: payloads.Notice{
				Recipients: []payloads.Recipient{
					{Role: enums.ActorRoleShipper, CompanyID: &customerID},
					{Role: enums.ActorRoleDispatcher},
				},
				Type:       enums.NotificationTypeSettlementAlert,
				EntityType: enums.AggregateInvoice,
				EntityID:   invoice.ID,
				Title:      "Invoice issued",
				Message:    fmt.Sprintf("Invoice %s for $%s has been issued.", invoice.InvoiceNumber, invoice.Amount.StringFixed(2)),
			},
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			LoadID:        invoice.LoadID,
			CustomerID:    customerID,
			Amount:        invoice.Amount,
			IssuedAt:      *invoice.IssuedAt,
		},
	})
	return invoice, nil
}

func (g *guard) issue(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Invoice, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may issue invoices")
	}

	var invoice *models.Invoice
	err := g.locks.WithLock(ctx, lock.InvoiceKey(loadID), func(ctx context.Context) error {
		return g.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := g.repo.WithTx(tx)
			load, err := repo.FindLoadForUpdate(ctx, loadID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "load not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lookup")
			}
			if err := g.CheckReadiness(load); err != nil {
				return err
			}
			existing, err := repo.FindInvoiceByLoad(ctx, loadID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice lookup")
			}
			if existing != nil {
				return duplicateInvoice(loadID, existing.ID)
			}

			now := g.now()
			due := now.Add(PaymentTerms)
			candidate := &models.Invoice{
				LoadID:        load.ID,
				CustomerID:    load.CustomerID,
				InvoiceNumber: InvoiceNumber(load.LoadNumber),
				Amount:        load.CustomerRate.Decimal,
				Status:        enums.InvoiceStatusIssued,
				IssuedAt:      &now,
				DueAt:         &due,
				IssuedBy:      actor.UserRef(),
			}
			if err := repo.CreateInvoice(ctx, candidate); err != nil {
				if dbpkg.IsUniqueViolation(err, "") {
					return duplicateInvoice(loadID, uuid.Nil)
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
			}
			invoice = candidate
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (g *guard) GetInvoice(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Invoice, error) {
	invoice, err := g.repo.FindInvoiceByLoad(ctx, loadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice lookup")
	}
	if !actor.IsStaff() && !(actor.Role == enums.ActorRoleShipper && actor.ActsFor(invoice.CustomerID)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

// MarkPaid settles an issued or overdue invoice. Paying a paid invoice
// returns it unchanged.
func (g *guard) MarkPaid(ctx context.Context, invoiceID uuid.UUID, actor types.Actor) (*models.Invoice, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may record payments")
	}

	var invoice *models.Invoice
	paid := false
	err := g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := g.repo.WithTx(tx)
		current, err := repo.FindInvoice(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice lookup")
		}
		invoice = current
		switch current.Status {
		case enums.InvoiceStatusPaid:
			return nil
		case enums.InvoiceStatusIssued, enums.InvoiceStatusOverdue:
		default:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "invoice has not been issued").
				WithDetails(map[string]any{"status": current.Status})
		}

		now := g.now()
		ok, err := repo.MarkPaid(ctx, current.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice changed while recording payment")
		}
		current.Status = enums.InvoiceStatusPaid
		current.PaidAt = &now
		current.UpdatedAt = now
		paid = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if paid {
		g.logg.Info(g.logg.WithFields(ctx, map[string]any{
			"invoice_id": invoice.ID.String(),
			"load_id":    invoice.LoadID.String(),
		}), "invoice paid")
	}
	return invoice, nil
}

// InvoiceNumber derives the invoice number from the load number.
func InvoiceNumber(loadNumber string) string {
	return "INV-" + loadNumber
}

func duplicateInvoice(loadID, invoiceID uuid.UUID) error {
	details := map[string]any{"load_id": loadID}
	if invoiceID != uuid.Nil {
		details["invoice_id"] = invoiceID
	}
	return pkgerrors.New(pkgerrors.CodeDuplicateInvoice, "an invoice already exists for this load").WithDetails(details)
}
