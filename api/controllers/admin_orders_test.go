package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
)

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seedItem(t *testing.T, env *testEnv, orderID uuid.UUID, sku string, unitPriceCents, qty int) *models.OrderItem {
	t.Helper()
	item := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		SKU:            sku,
		Name:           sku,
		UnitPriceCents: unitPriceCents,
		Quantity:       qty,
		LineTotalCents: unitPriceCents * qty,
	}
	require.NoError(t, env.conn.Create(item).Error)
	return item
}

func TestAdminGetOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := seedOrder(t, env, "20240101120000-AD000001", enums.PaymentMethodOnline, enums.OrderStatusPaid, 10000)
	seedItem(t, env, order.ID, "TEE-BLK-M", 5000, 2)
	_, err := env.ledgerRepo.Record(ctx, &models.PaymentEvent{
		OrderID:       order.ID,
		Gateway:       "FIUU",
		GatewayTxnID:  "777001",
		EventType:     enums.PaymentEventTypePaid,
		StatusCode:    "00",
		AmountCents:   10000,
		Currency:      "MYR",
		PayloadDigest: "digest",
	})
	require.NoError(t, err)

	handler := AdminGetOrder(env.logg, env.ordersRepo, env.ledgerRepo, env.refundsRepo, env.transfersRepo)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": order.ID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view adminOrderResponse
	decodeData(t, resp, &view)
	assert.Equal(t, order.Code, view.Order.Code)
	require.Len(t, view.Order.Items, 1)
	require.Len(t, view.Events, 1)
	assert.Equal(t, "777001", view.Events[0].GatewayTxnID)
}

func TestAdminGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	handler := AdminGetOrder(env.logg, env.ordersRepo, env.ledgerRepo, env.refundsRepo, env.transfersRepo)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": uuid.NewString()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeErrorCode(t, resp))
}

func TestAdminSettleOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := seedOrder(t, env, "20240101120000-AD000002", enums.PaymentMethodOfflineTransfer, enums.OrderStatusAwaitingVerification, 9800)

	handler := AdminSettleOrder(env.logg, env.ordersSvc, env.transfersRepo, env.tx())
	body := `{"verified_by":"ops@visolux.com.my","bank_name":"Maybank","reference_no":"MB-20240101-77","amount_cents":9800}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), map[string]string{"id": order.ID.String()})
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	reloaded, err := env.ordersRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)

	transfer, err := env.transfersRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, "Maybank", transfer.BankName)
	require.NotNil(t, transfer.VerifiedAt)
	require.NotNil(t, transfer.VerifiedBy)
	assert.Equal(t, "ops@visolux.com.my", *transfer.VerifiedBy)

	history, err := env.ordersRepo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.TransitionSourceManual, history[0].Source)
}

func TestAdminSettleRejectsOnlineOrder(t *testing.T) {
	env := newTestEnv(t)

	order := seedOrder(t, env, "20240101120000-AD000003", enums.PaymentMethodOnline, enums.OrderStatusPendingPayment, 9800)

	handler := AdminSettleOrder(env.logg, env.ordersSvc, env.transfersRepo, env.tx())
	body := `{"verified_by":"ops@visolux.com.my"}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), map[string]string{"id": order.ID.String()})
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "STATE_CONFLICT", decodeErrorCode(t, resp))
}

func TestAdminCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := seedOrder(t, env, "20240101120000-AD000004", enums.PaymentMethodOnline, enums.OrderStatusPendingPayment, 9800)

	handler := AdminCancelOrder(env.logg, env.ordersSvc, env.tx())
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"customer request"}`)), map[string]string{"id": order.ID.String()})
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	reloaded, err := env.ordersRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.CancelledAt)

	history, err := env.ordersRepo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Reason)
	assert.Equal(t, "customer request", *history[0].Reason)
}

func TestAdminCancelPaidOrderConflicts(t *testing.T) {
	env := newTestEnv(t)

	order := seedOrder(t, env, "20240101120000-AD000005", enums.PaymentMethodOnline, enums.OrderStatusPaid, 9800)

	handler := AdminCancelOrder(env.logg, env.ordersSvc, env.tx())
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), map[string]string{"id": order.ID.String()})
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "STATE_CONFLICT", decodeErrorCode(t, resp))
}

func TestAdminRefundItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := seedOrder(t, env, "20240101120000-AD000006", enums.PaymentMethodOnline, enums.OrderStatusPaid, 10000)
	item := seedItem(t, env, order.ID, "TEE-BLK-M", 5000, 2)
	_, err := env.ledgerRepo.Record(ctx, &models.PaymentEvent{
		OrderID:       order.ID,
		Gateway:       "FIUU",
		GatewayTxnID:  "777002",
		EventType:     enums.PaymentEventTypePaid,
		StatusCode:    "00",
		AmountCents:   10000,
		Currency:      "MYR",
		PayloadDigest: "digest",
	})
	require.NoError(t, err)

	handler := AdminRefundItem(env.logg, env.refundsSvc)
	req := withURLParams(
		httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"reason":"damaged in transit"}`)),
		map[string]string{"id": order.ID.String(), "itemID": item.ID.String()},
	)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)

	refundRows, err := env.refundsRepo.ListByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, refundRows, 1)
	assert.Equal(t, 5000, refundRows[0].AmountCents)
	require.NotNil(t, refundRows[0].GatewayTxnID)
	assert.Equal(t, "777002", *refundRows[0].GatewayTxnID)

	reloaded, err := env.ordersRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPartiallyRefunded, reloaded.Status)
	assert.Equal(t, enums.RefundStatusPartial, reloaded.RefundStatus)
}

func TestAdminRefundItemQuantityCap(t *testing.T) {
	env := newTestEnv(t)

	order := seedOrder(t, env, "20240101120000-AD000007", enums.PaymentMethodOnline, enums.OrderStatusPaid, 10000)
	item := seedItem(t, env, order.ID, "TEE-BLK-M", 5000, 2)

	handler := AdminRefundItem(env.logg, env.refundsSvc)
	req := withURLParams(
		httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`)),
		map[string]string{"id": order.ID.String(), "itemID": item.ID.String()},
	)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "STATE_CONFLICT", decodeErrorCode(t, resp))
}
