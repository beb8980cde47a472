package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/pkg/db"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
)

// RecordOutcome says whether a ledger write landed or hit the dedup index.
type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota
	RecordDuplicateIgnored
)

// Repository is the append-only payment event ledger. Rows are never updated
// or deleted; replays collapse onto the dedup unique index.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Record inserts the event, reporting RecordDuplicateIgnored when the
	// same (order, txn, type) tuple already exists.
	Record(ctx context.Context, event *models.PaymentEvent) (RecordOutcome, error)
	HasPaidEvent(ctx context.Context, orderID uuid.UUID) (bool, error)
	// LatestPaidTxnID returns the gateway transaction id of the most recent
	// paid event, or empty when the order has none.
	LatestPaidTxnID(ctx context.Context, orderID uuid.UUID) (string, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Record(ctx context.Context, event *models.PaymentEvent) (RecordOutcome, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return RecordInserted, nil
	}
	// uq_payment_events_dedup is the only unique index beyond the primary
	// key, so any unique violation here is a replayed notification.
	if db.IsUniqueViolation(err, "") {
		return RecordDuplicateIgnored, nil
	}
	return 0, err
}

func (r *repository) HasPaidEvent(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("order_id = ? AND event_type = ?", orderID, enums.PaymentEventTypePaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) LatestPaidTxnID(ctx context.Context, orderID uuid.UUID) (string, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND event_type = ?", orderID, enums.PaymentEventTypePaid).
		Order("received_at DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return event.GatewayTxnID, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("received_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
