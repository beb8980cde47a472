package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/visolux/store-backend/pkg/enums"
)

// PaymentEvent is one verified gateway notification, recorded append-only.
// The (order_id, gateway_txn_id, event_type) uniqueness makes replayed
// callbacks idempotent at the storage layer.
type PaymentEvent struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_payment_events_dedup"`
	Gateway       string                 `gorm:"column:gateway;type:text;not null;default:'FIUU'"`
	GatewayTxnID  string                 `gorm:"column:gateway_txn_id;not null;uniqueIndex:uq_payment_events_dedup"`
	EventType     enums.PaymentEventType `gorm:"column:event_type;type:text;not null;uniqueIndex:uq_payment_events_dedup"`
	StatusCode    string                 `gorm:"column:status_code;not null"`
	AmountCents   int                    `gorm:"column:amount_cents;not null"`
	Currency      string                 `gorm:"column:currency;type:text;not null"`
	Channel       *string                `gorm:"column:channel"`
	AppCode       *string                `gorm:"column:app_code"`
	PayloadDigest string                 `gorm:"column:payload_digest;not null"`
	Payload       json.RawMessage        `gorm:"column:payload;type:jsonb"`
	Verified      bool                   `gorm:"column:verified;not null;default:true"`
	PaidAt        *time.Time             `gorm:"column:paid_at"`
	ReceivedAt    time.Time              `gorm:"column:received_at;autoCreateTime"`
}
