// Package transfers owns the offline bank-transfer audit trail: the transfer
// rows that back manual settlement and the retention job that purges slip
// images after the audit window.
package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/pkg/db/models"
)

// Repository manages persistence for offline bank transfer records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.OfflineBankTransfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OfflineBankTransfer, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OfflineBankTransfer, error)
	// ListExpiredSlips returns transfers uploaded before the cutoff whose
	// slip file has not been purged yet.
	ListExpiredSlips(ctx context.Context, cutoff time.Time, limit int) ([]models.OfflineBankTransfer, error)
	// MarkSlipDeleted tombstones the row after its slip file is removed.
	MarkSlipDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID, verifiedBy string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transfer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transfer *models.OfflineBankTransfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.OfflineBankTransfer, error) {
	var transfer models.OfflineBankTransfer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OfflineBankTransfer, error) {
	var transfer models.OfflineBankTransfer
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) ListExpiredSlips(ctx context.Context, cutoff time.Time, limit int) ([]models.OfflineBankTransfer, error) {
	query := r.db.WithContext(ctx).
		Where("slip_deleted = ? AND uploaded_at < ?", false, cutoff).
		Order("uploaded_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var transfers []models.OfflineBankTransfer
	if err := query.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *repository) MarkSlipDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OfflineBankTransfer{}).
		Where("id = ?", id).
		Updates(map[string]any{"slip_deleted": true, "slip_deleted_at": at}).Error
}

func (r *repository) MarkVerified(ctx context.Context, id uuid.UUID, verifiedBy string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OfflineBankTransfer{}).
		Where("id = ?", id).
		Updates(map[string]any{"verified_at": at, "verified_by": verifiedBy}).Error
}
