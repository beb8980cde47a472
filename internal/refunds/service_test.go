package refunds

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
)

const (
	testMerchantID = "visolux"
	testSecretKey  = "secret456"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupRefundsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending_payment',
  refund_status TEXT NOT NULL DEFAULT 'none',
  payment_method TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'MYR',
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT NOT NULL DEFAULT '',
  address_line1 TEXT NOT NULL,
  address_line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postcode TEXT NOT NULL,
  region TEXT NOT NULL,
  items_subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  grand_total_cents INTEGER NOT NULL,
  promo_code_applied TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  source TEXT NOT NULL,
  reason TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_item_refunds (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT,
  gateway_ref_id TEXT,
  gateway_txn_id TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payment_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway TEXT NOT NULL DEFAULT 'FIUU',
  gateway_txn_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  status_code TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  channel TEXT,
  app_code TEXT,
  payload_digest TEXT NOT NULL,
  payload TEXT,
  verified INTEGER NOT NULL DEFAULT 1,
  paid_at DATETIME,
  received_at DATETIME,
  UNIQUE (order_id, gateway_txn_id, event_type)
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	for _, table := range []string{"order_item_refunds", "payment_events", "order_status_histories", "order_items", "orders"} {
		require.NoError(t, conn.Exec("DELETE FROM "+table).Error)
	}
	return conn
}

func newRefundsService(t *testing.T, conn *gorm.DB) (*Service, orders.Repository, payments.Repository) {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo, logg)
	require.NoError(t, err)
	ledger := payments.NewRepository(conn)

	gateway := fiuu.Config{
		MerchantID: testMerchantID,
		VerifyKey:  "vkey123",
		SecretKey:  testSecretKey,
		GatewayURL: "https://pay.example.com/RMS/pay",
	}
	svc, err := NewService(ordersSvc, NewRepository(conn), ledger, dbTxRunner{db: conn}, gateway, logg)
	require.NoError(t, err)
	return svc, ordersRepo, ledger
}

// seedPaidOrder creates a paid two-line order: 2 x 50.00 and 1 x 20.00 with a
// 10.00 order discount, grand total 118.00 with 8.00 shipping.
func seedPaidOrder(t *testing.T, repo orders.Repository, code string) *models.Order {
	t.Helper()

	paidAt := time.Now().Add(-time.Hour)
	order := &models.Order{
		Code:               code,
		Status:             enums.OrderStatusPaid,
		RefundStatus:       enums.RefundStatusNone,
		PaymentMethod:      enums.PaymentMethodOnline,
		Currency:           "MYR",
		CustomerName:       "Aina Binti Rahman",
		CustomerEmail:      "aina@example.com",
		AddressLine1:       "12 Jalan Ampang",
		City:               "Shah Alam",
		State:              "Selangor",
		Postcode:           "40000",
		Region:             enums.RegionWest,
		ItemsSubtotalCents: 12000,
		ShippingCents:      800,
		DiscountCents:      1000,
		GrandTotalCents:    11800,
		PaidAt:             &paidAt,
		Items: []models.OrderItem{
			{SKU: "TEE-BLK-M", Name: "Black Tee (M)", UnitPriceCents: 5000, Quantity: 2, LineTotalCents: 10000},
			{SKU: "CAP-NVY", Name: "Navy Cap", UnitPriceCents: 2000, Quantity: 1, LineTotalCents: 2000},
		},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestRefundItemPartial(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, ledger := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0001")
	_, err := ledger.Record(ctx, &models.PaymentEvent{
		OrderID:       order.ID,
		GatewayTxnID:  "777001",
		EventType:     enums.PaymentEventTypePaid,
		StatusCode:    "00",
		AmountCents:   11800,
		Currency:      "MYR",
		PayloadDigest: "digest",
		ReceivedAt:    time.Now(),
	})
	require.NoError(t, err)

	// Line nets after allocating the 10.00 discount: 10000 -> 9167, 2000 -> 1833.
	result, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    1,
	})
	require.NoError(t, err)
	// Half of the tee line's 91.67 net, rounded half up.
	assert.Equal(t, 4584, result.Refund.AmountCents)
	assert.Equal(t, enums.RefundStatusPartial, result.RefundStatus)
	assert.Equal(t, enums.OrderStatusPartiallyRefunded, result.OrderStatus)
	require.NotNil(t, result.Refund.GatewayTxnID)
	assert.Equal(t, "777001", *result.Refund.GatewayTxnID)

	reloaded, err := ordersRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPartiallyRefunded, reloaded.Status)
	assert.Equal(t, enums.RefundStatusPartial, reloaded.RefundStatus)
}

func TestRefundItemFullRefund(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, _ := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0002")

	_, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    2,
	})
	require.NoError(t, err)

	result, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[1].ID,
		Quantity:    1,
	})
	require.NoError(t, err)

	// 9167 + 1833 covers the full 110.00 item net.
	assert.Equal(t, enums.RefundStatusFull, result.RefundStatus)
	assert.Equal(t, enums.OrderStatusRefunded, result.OrderStatus)

	reloaded, err := ordersRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, reloaded.Status)
	assert.Equal(t, enums.RefundStatusFull, reloaded.RefundStatus)
}

func TestRefundItemQuantityCap(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, _ := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0003")

	_, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    3,
	})
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RefundExceedsPaid", details["reason"])

	_, err = svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    1,
	})
	require.NoError(t, err)

	_, err = svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    2,
	})
	require.Error(t, err)

	// The failed attempts must not have written anything extra.
	var count int64
	require.NoError(t, conn.Table("order_item_refunds").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// racingTxRunner commits a competing refund immediately before running the
// transaction body, standing in for a second writer that lands between a
// stale pre-transaction read and our insert.
type racingTxRunner struct {
	db     *gorm.DB
	racing *models.OrderItemRefund
}

func (r *racingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.racing != nil {
		racing := r.racing
		r.racing = nil
		if err := r.db.Create(racing).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func TestRefundItemCapSeesCompetingRefund(t *testing.T) {
	conn := setupRefundsTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo, logg)
	require.NoError(t, err)

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0007")

	// The competing writer refunds the tee line in full.
	runner := &racingTxRunner{db: conn, racing: &models.OrderItemRefund{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    2,
		AmountCents: 9167,
	}}
	svc, err := NewService(ordersSvc, NewRepository(conn), payments.NewRepository(conn), runner, fiuu.Config{
		MerchantID: testMerchantID,
		SecretKey:  testSecretKey,
	}, logg)
	require.NoError(t, err)

	_, err = svc.RefundItem(context.Background(), RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    1,
	})
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeStateConflict, typed.Code())

	// Only the competing refund may exist; the sum must stay within the
	// line's paid amount.
	var count int64
	require.NoError(t, conn.Table("order_item_refunds").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRefundItemAmountCap(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, _ := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0004")

	over := 9500
	_, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    2,
		AmountCents: &over,
	})
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeStateConflict, typed.Code())
}

func TestRefundItemStatusGate(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, _ := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0005")
	require.NoError(t, conn.Table("orders").
		Where("id = ?", order.ID).
		UpdateColumn("status", enums.OrderStatusPendingPayment).Error)

	_, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Quantity:    1,
	})
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeStateConflict, typed.Code())
}

func md5hex(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

func refundNotifyPayload(refID, refundID, txnID, amount, status string) map[string]string {
	sig := md5hex("P" + testMerchantID + refID + refundID + txnID + amount + status + testSecretKey)
	return map[string]string{
		"RefundType": "P",
		"MerchantID": testMerchantID,
		"RefID":      refID,
		"RefundID":   refundID,
		"TxnID":      txnID,
		"Amount":     amount,
		"Status":     status,
		"Signature":  sig,
	}
}

func TestHandleRefundNotify(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, ordersRepo, _ := newRefundsService(t, conn)
	ctx := context.Background()

	order := seedPaidOrder(t, ordersRepo, "20240101120000-RFND0006")
	result, err := svc.RefundItem(ctx, RefundItemInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[1].ID,
		Quantity:    1,
	})
	require.NoError(t, err)

	payload := refundNotifyPayload(result.Refund.ID.String(), "RF999", "777002", "18.33", "00")
	notify, err := svc.HandleRefundNotify(ctx, payload)
	require.NoError(t, err)
	assert.True(t, notify.OK)

	stored, err := NewRepository(conn).GetByID(ctx, result.Refund.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayRefID)
	assert.Equal(t, "RF999", *stored.GatewayRefID)
	require.NotNil(t, stored.GatewayTxnID)
	assert.Equal(t, "777002", *stored.GatewayTxnID)
}

func TestHandleRefundNotifyBadSignature(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, _, _ := newRefundsService(t, conn)

	payload := refundNotifyPayload(uuid.NewString(), "RF999", "777002", "18.33", "00")
	payload["Signature"] = "00000000000000000000000000000000"

	_, err := svc.HandleRefundNotify(context.Background(), payload)
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeAuthenticity, typed.Code())
}

func TestHandleRefundNotifyUnknownRefund(t *testing.T) {
	conn := setupRefundsTestDB(t)
	svc, _, _ := newRefundsService(t, conn)

	payload := refundNotifyPayload(uuid.NewString(), "RF000", "777003", "10.00", "00")
	notify, err := svc.HandleRefundNotify(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, notify.OK)
}
