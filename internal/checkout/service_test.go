package checkout

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/promo"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/shipping"
	"github.com/visolux/store-backend/pkg/config"
	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
	}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	for _, table := range []string{"order_status_histories", "order_items", "orders", "promo_codes"} {
		require.NoError(t, conn.Exec("DELETE FROM "+table).Error)
	}
	return conn
}

func newCheckoutService(t *testing.T, conn *gorm.DB) (*Service, orders.Repository, promo.Repository) {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	calc := shipping.NewCalculator(config.ShippingConfig{WestFeeCents: 800, EastFeeCents: 1800})
	promoRepo := promo.NewRepository(conn)
	promoSvc, err := promo.NewService(promoRepo)
	require.NoError(t, err)
	engine, err := quote.NewEngine(calc, promoSvc)
	require.NoError(t, err)
	ordersRepo := orders.NewRepository(conn)

	gateway := fiuu.Config{
		MerchantID: "visolux",
		VerifyKey:  "vkey123",
		SecretKey:  "secret456",
		GatewayURL: "https://pay.example.com/RMS/pay",
		Currency:   "MYR",
	}
	svc, err := NewService(engine, ordersRepo, promoRepo, dbTxRunner{db: conn}, gateway, logg)
	require.NoError(t, err)
	return svc, ordersRepo, promoRepo
}

func validInput() PlaceOrderInput {
	return PlaceOrderInput{
		CustomerName:  "Aina Binti Rahman",
		CustomerEmail: "aina@example.com",
		CustomerPhone: "+60 12-345 6789",
		AddressLine1:  "12 Jalan Ampang",
		City:          "Shah Alam",
		State:         "Selangor",
		Postcode:      "40000",
		Items: []ItemInput{
			{SKU: "TEE-BLK-M", Name: "Black Tee (M)", UnitPriceCents: 5000, Quantity: 2},
		},
		PaymentMethod: enums.PaymentMethodOnline,
	}
}

func TestPlaceOrderOnline(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, ordersRepo, _ := newCheckoutService(t, conn)
	ctx := context.Background()

	result, err := svc.PlaceOrder(ctx, validInput())
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, 10000, order.ItemsSubtotalCents)
	assert.Equal(t, 800, order.ShippingCents)
	assert.Equal(t, 0, order.DiscountCents)
	assert.Equal(t, 10800, order.GrandTotalCents)
	assert.Equal(t, enums.RegionWest, order.Region)

	require.NotNil(t, result.Payment)
	assert.Equal(t, "108.00", result.Payment.Fields["amount"])
	assert.Equal(t, order.Code, result.Payment.Fields["orderid"])
	assert.NotEmpty(t, result.Payment.Fields["vcode"])

	stored, err := ordersRepo.GetWithDetails(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 10000, stored.Items[0].LineTotalCents)
	require.Len(t, stored.History, 1)
	assert.Equal(t, enums.TransitionSourceCheckout, stored.History[0].Source)
}

func TestPlaceOrderOfflineTransfer(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, _ := newCheckoutService(t, conn)

	in := validInput()
	in.PaymentMethod = enums.PaymentMethodOfflineTransfer
	result, err := svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusAwaitingVerification, result.Order.Status)
	assert.Nil(t, result.Payment)
}

func TestPlaceOrderAppliesPromoAndConsumesUse(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, promoRepo := newCheckoutService(t, conn)
	ctx := context.Background()

	maxUses := 2
	require.NoError(t, promoRepo.Create(ctx, &models.PromoCode{
		Code:       "SAVE10",
		Type:       enums.PromoTypePercent,
		PercentOff: 10,
		Active:     true,
		MaxUses:    &maxUses,
	}))

	in := validInput()
	in.PromoCode = "save10"
	result, err := svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, 1000, order.DiscountCents)
	assert.Equal(t, 9800, order.GrandTotalCents)
	require.NotNil(t, order.PromoCodeApplied)
	assert.Equal(t, "SAVE10", *order.PromoCodeApplied)

	stored, err := promoRepo.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UseCount)
}

func TestPlaceOrderRejectsInvalidPromo(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, _ := newCheckoutService(t, conn)

	in := validInput()
	in.PromoCode = "NOPE"
	_, err := svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeValidation, typed.Code())
}

func TestPlaceOrderRejectsExhaustedPromo(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, promoRepo := newCheckoutService(t, conn)
	ctx := context.Background()

	maxUses := 1
	require.NoError(t, promoRepo.Create(ctx, &models.PromoCode{
		Code:       "ONEUSE",
		Type:       enums.PromoTypePercent,
		PercentOff: 10,
		Active:     true,
		MaxUses:    &maxUses,
		UseCount:   1,
	}))

	in := validInput()
	in.PromoCode = "ONEUSE"
	_, err := svc.PlaceOrder(ctx, in)
	require.Error(t, err)

	// Rejected placement must leave nothing behind.
	var count int64
	require.NoError(t, conn.Table("orders").Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderRejectsUnknownState(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, _ := newCheckoutService(t, conn)

	in := validInput()
	in.State = "Singapore"
	_, err := svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)
	typed := storeerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, storeerrors.CodeValidation, typed.Code())
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, _ := newCheckoutService(t, conn)

	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"no items", func(in *PlaceOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *PlaceOrderInput) { in.Items[0].UnitPriceCents = -1 }},
		{"bad postcode", func(in *PlaceOrderInput) { in.Postcode = "4000" }},
		{"missing name", func(in *PlaceOrderInput) { in.CustomerName = " " }},
		{"bad payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "cheque" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.PlaceOrder(context.Background(), in)
			require.Error(t, err)
			typed := storeerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, storeerrors.CodeValidation, typed.Code())
		})
	}
}

func TestPlaceOrderEastRegionPricing(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc, _, _ := newCheckoutService(t, conn)

	in := validInput()
	in.State = "Sabah"
	in.City = "Kota Kinabalu"
	in.Postcode = "88000"
	result, err := svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, enums.RegionEast, result.Order.Region)
	assert.Equal(t, 1800, result.Order.ShippingCents)
	assert.Equal(t, 11800, result.Order.GrandTotalCents)
}
