package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/visolux/store-backend/pkg/enums"
)

// Order is the frozen result of a checkout. All money columns are integer
// cents snapshotted at placement time; later promo or fee changes never
// reprice an existing order.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string              `gorm:"column:code;not null;uniqueIndex:uq_orders_code"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	RefundStatus  enums.RefundStatus  `gorm:"column:refund_status;type:text;not null;default:'none'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Currency      string              `gorm:"column:currency;type:text;not null;default:'MYR'"`

	CustomerName  string `gorm:"column:customer_name;not null"`
	CustomerEmail string `gorm:"column:customer_email;not null"`
	CustomerPhone string `gorm:"column:customer_phone"`

	AddressLine1 string       `gorm:"column:address_line1;not null"`
	AddressLine2 string       `gorm:"column:address_line2"`
	City         string       `gorm:"column:city;not null"`
	State        string       `gorm:"column:state;not null"`
	Postcode     string       `gorm:"column:postcode;not null"`
	Region       enums.Region `gorm:"column:region;type:text;not null"`

	ItemsSubtotalCents int     `gorm:"column:items_subtotal_cents;not null"`
	ShippingCents      int     `gorm:"column:shipping_cents;not null;default:0"`
	DiscountCents      int     `gorm:"column:discount_cents;not null;default:0"`
	GrandTotalCents    int     `gorm:"column:grand_total_cents;not null"`
	PromoCodeApplied   *string `gorm:"column:promo_code_applied"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items   []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots one purchased line at its placement-time price.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SKU            string    `gorm:"column:sku;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusHistory is the append-only audit trail of status transitions.
// Rows are never updated or deleted; the current status must always be
// reconstructible by replaying them in order.
type OrderStatusHistory struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus      `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.OrderStatus      `gorm:"column:to_status;type:text;not null"`
	Source     enums.TransitionSource `gorm:"column:source;type:text;not null"`
	Reason     *string                `gorm:"column:reason"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
