package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLoadForUpdate(ctx context.Context, loadID uuid.UUID) (*models.Load, error) {
	var load models.Load
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", loadID).First(&load).Error
	if err != nil {
		return nil, err
	}
	return &load, nil
}

func (r *repository) FindInvoiceByLoad(ctx context.Context, loadID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", id, []enums.InvoiceStatus{enums.InvoiceStatusIssued, enums.InvoiceStatusOverdue}).
		Updates(map[string]any{
			"status":     enums.InvoiceStatusPaid,
			"paid_at":    at,
			"updated_at": at,
		})
	return res.RowsAffected > 0, res.Error
}
