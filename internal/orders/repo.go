package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/ordercode"
)

// Repository manages persistence for orders, their items and their status
// history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetByIDForUpdate loads the order under a row lock so concurrent
	// writers recomputing derived totals serialize on it.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	// GetByRef resolves a gateway order reference, which is an order code
	// for orders placed here or a raw UUID for legacy references.
	GetByRef(ctx context.Context, ref string) (*models.Order, error)
	// GetWithDetails loads the order with items and history preloaded.
	GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	// UpdateStatus moves an order from one status to another, guarded by
	// the expected current status so concurrent webhook deliveries
	// serialize; returns false when the guard did not match.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
	// ListUnpaidBefore returns orders still waiting on an online payment
	// that were created before the cutoff, oldest first.
	ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateRefundStatus(ctx context.Context, orderID uuid.UUID, status enums.RefundStatus) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	for i := range order.History {
		if order.History[i].ID == uuid.Nil {
			order.History[i].ID = uuid.New()
		}
		order.History[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	// sqlite has no SELECT ... FOR UPDATE; its single writer serializes anyway.
	if query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	err := query.Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByRef(ctx context.Context, ref string) (*models.Order, error) {
	if ordercode.IsValid(ref) {
		return r.GetByCode(ctx, ref)
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		// Not a code and not a UUID; treat as unknown order.
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *repository) GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	switch to {
	case enums.OrderStatusPaid:
		updates["paid_at"] = at
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	statuses := []enums.OrderStatus{enums.OrderStatusPendingPayment, enums.OrderStatusPaymentFailed}
	query := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", statuses, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var stale []models.Order
	if err := query.Find(&stale).Error; err != nil {
		return nil, err
	}
	return stale, nil
}

func (r *repository) UpdateRefundStatus(ctx context.Context, orderID uuid.UUID, status enums.RefundStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("refund_status", status).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
