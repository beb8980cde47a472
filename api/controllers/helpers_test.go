package controllers

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	checkoutsvc "github.com/visolux/store-backend/internal/checkout"
	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/internal/promo"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/refunds"
	"github.com/visolux/store-backend/internal/shipping"
	"github.com/visolux/store-backend/internal/transfers"
	"github.com/visolux/store-backend/pkg/config"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
)

const (
	testMerchantID = "visolux"
	testVerifyKey  = "vkey123"
	testSecretKey  = "secret456"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var controllerTestDDL = []string{
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
	`CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  percent_off INTEGER NOT NULL DEFAULT 0,
  amount_off_cents INTEGER NOT NULL DEFAULT 0,
  applies_to_shipping INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  starts_at DATETIME,
  ends_at DATETIME,
  max_uses INTEGER,
  use_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
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
	`CREATE TABLE IF NOT EXISTS offline_bank_transfers (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  bank_name TEXT NOT NULL,
  reference_no TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  slip_path TEXT NOT NULL,
  uploaded_at DATETIME NOT NULL,
  slip_deleted INTEGER NOT NULL DEFAULT 0,
  slip_deleted_at DATETIME,
  verified_at DATETIME,
  verified_by TEXT,
  created_at DATETIME
);`,
}

var controllerTestTables = []string{
	"offline_bank_transfers",
	"order_item_refunds",
	"payment_events",
	"order_status_histories",
	"order_items",
	"orders",
	"promo_codes",
}

// testEnv wires the full service stack over an in-memory database, the same
// shape cmd/api assembles in production.
type testEnv struct {
	conn *gorm.DB
	logg *logger.Logger

	ordersRepo    orders.Repository
	promoRepo     promo.Repository
	ledgerRepo    payments.Repository
	refundsRepo   refunds.Repository
	transfersRepo transfers.Repository

	ordersSvc   *orders.Service
	engine      *quote.Engine
	checkoutSvc *checkoutsvc.Service
	paymentsSvc *payments.Service
	refundsSvc  *refunds.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range controllerTestDDL {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	for _, table := range controllerTestTables {
		require.NoError(t, conn.Exec("DELETE FROM "+table).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	gateway := fiuu.Config{
		MerchantID: testMerchantID,
		VerifyKey:  testVerifyKey,
		SecretKey:  testSecretKey,
		GatewayURL: "https://pay.example.com/RMS/pay",
		Currency:   "MYR",
	}

	env := &testEnv{conn: conn, logg: logg}
	env.ordersRepo = orders.NewRepository(conn)
	env.promoRepo = promo.NewRepository(conn)
	env.ledgerRepo = payments.NewRepository(conn)
	env.refundsRepo = refunds.NewRepository(conn)
	env.transfersRepo = transfers.NewRepository(conn)

	env.ordersSvc, err = orders.NewService(env.ordersRepo, logg)
	require.NoError(t, err)

	promoSvc, err := promo.NewService(env.promoRepo)
	require.NoError(t, err)
	calc := shipping.NewCalculator(config.ShippingConfig{WestFeeCents: 800, EastFeeCents: 1800})
	env.engine, err = quote.NewEngine(calc, promoSvc)
	require.NoError(t, err)

	runner := dbTxRunner{db: conn}
	env.checkoutSvc, err = checkoutsvc.NewService(env.engine, env.ordersRepo, env.promoRepo, runner, gateway, logg)
	require.NoError(t, err)
	env.paymentsSvc, err = payments.NewService(gateway, env.ordersSvc, env.ledgerRepo, runner, logg, nil)
	require.NoError(t, err)
	env.refundsSvc, err = refunds.NewService(env.ordersSvc, env.refundsRepo, env.ledgerRepo, runner, gateway, logg)
	require.NoError(t, err)
	return env
}

func (e *testEnv) tx() dbTxRunner {
	return dbTxRunner{db: e.conn}
}

func seedOrder(t *testing.T, env *testEnv, code string, method enums.PaymentMethod, status enums.OrderStatus, grandTotalCents int) *models.Order {
	t.Helper()

	order := &models.Order{
		Code:               code,
		Status:             status,
		RefundStatus:       enums.RefundStatusNone,
		PaymentMethod:      method,
		Currency:           "MYR",
		CustomerName:       "Aina Binti Rahman",
		CustomerEmail:      "aina@example.com",
		AddressLine1:       "12 Jalan Ampang",
		City:               "Shah Alam",
		State:              "Selangor",
		Postcode:           "40000",
		Region:             enums.RegionWest,
		ItemsSubtotalCents: grandTotalCents,
		GrandTotalCents:    grandTotalCents,
	}
	require.NoError(t, env.ordersRepo.Create(context.Background(), order))
	return order
}

func md5hex(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// signedCallback builds a gateway notification with a valid two-stage skey.
func signedCallback(orderRef, tranID, status, amount, currency, payDate string) map[string]string {
	payload := map[string]string{
		"tranID":   tranID,
		"orderid":  orderRef,
		"status":   status,
		"domain":   testMerchantID,
		"amount":   amount,
		"currency": currency,
		"paydate":  payDate,
		"channel":  "FPX",
	}
	pre := md5hex(tranID + orderRef + status + testMerchantID + amount + currency)
	payload["skey"] = md5hex(payDate + testMerchantID + pre + testSecretKey)
	return payload
}
