package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItemRefund records one per-line refund. Caps are enforced by the
// refunds service against the sum of prior rows for the same line.
type OrderItemRefund struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID  uuid.UUID `gorm:"column:order_item_id;type:uuid;not null;index"`
	Quantity     int       `gorm:"column:quantity;not null"`
	AmountCents  int       `gorm:"column:amount_cents;not null"`
	Reason       *string   `gorm:"column:reason"`
	GatewayRefID *string   `gorm:"column:gateway_ref_id"`
	GatewayTxnID *string   `gorm:"column:gateway_txn_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
