package promo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/pkg/db/models"
)

// Repository manages persistence for promo codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.PromoCode) error
	// GetByCode looks up a promo case-insensitively. A missing code returns
	// (nil, nil); callers turn that into a validation reason, not an error.
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	// ConsumeUse atomically increments use_count while the usage cap still
	// allows it. Returns false when the cap was reached concurrently.
	ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a promo repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NormalizeCode uppercases and trims promo input. Codes are stored uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *repository) Create(ctx context.Context, promo *models.PromoCode) error {
	promo.Code = NormalizeCode(promo.Code)
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ? AND (max_uses IS NULL OR use_count < max_uses)", id).
		UpdateColumn("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
