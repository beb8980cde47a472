package refunds

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/pkg/db/models"
)

// Repository manages persistence for per-line refund records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.OrderItemRefund) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderItemRefund, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItemRefund, error)
	// SetGatewayRefs attaches the provider's refund and transaction ids once
	// the refund notify webhook confirms them.
	SetGatewayRefs(ctx context.Context, id uuid.UUID, refundID, txnID *string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a refund repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, refund *models.OrderItemRefund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderItemRefund, error) {
	var refund models.OrderItemRefund
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItemRefund, error) {
	var refunds []models.OrderItemRefund
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *repository) SetGatewayRefs(ctx context.Context, id uuid.UUID, refundID, txnID *string) error {
	updates := map[string]any{}
	if refundID != nil {
		updates["gateway_ref_id"] = *refundID
	}
	if txnID != nil {
		updates["gateway_txn_id"] = *txnID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderItemRefund{}).
		Where("id = ?", id).
		Updates(updates).Error
}
