package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/api/controllers"
	"github.com/visolux/store-backend/api/middleware"
	checkoutsvc "github.com/visolux/store-backend/internal/checkout"
	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/refunds"
	"github.com/visolux/store-backend/internal/transfers"
	"github.com/visolux/store-backend/pkg/config"
	"github.com/visolux/store-backend/pkg/db"
	"github.com/visolux/store-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deps collects everything the HTTP surface needs. The gateway endpoints
// live at the root because their paths are registered verbatim with the
// payment provider.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	DB     db.Pinger
	Tx     txRunner

	QuoteEngine   *quote.Engine
	Checkout      *checkoutsvc.Service
	Payments      *payments.Service
	Refunds       *refunds.Service
	OrdersService *orders.Service
	OrdersRepo    orders.Repository
	RefundsRepo   refunds.Repository
	TransfersRepo transfers.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(nil),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/quote", controllers.QuoteCheckout(logg, deps.QuoteEngine))
		r.Post("/", controllers.PlaceOrder(logg, deps.Checkout))
	})

	resultURL := cfg.App.PaymentResultURL
	r.Route("/payment", func(r chi.Router) {
		r.HandleFunc("/return", controllers.PaymentReturn(logg, deps.Payments, resultURL))
		r.Post("/callback", controllers.PaymentCallback(logg, deps.Payments))
		r.Get("/cancel", controllers.PaymentCancel(logg, resultURL))
		r.HandleFunc("/refund/notify", controllers.RefundNotify(logg, deps.Refunds))
	})

	r.Route("/api/admin/v1/orders", func(r chi.Router) {
		r.Get("/{id}", controllers.AdminGetOrder(logg, deps.OrdersRepo, deps.Payments.Ledger(), deps.RefundsRepo, deps.TransfersRepo))
		r.Post("/{id}/settle", controllers.AdminSettleOrder(logg, deps.OrdersService, deps.TransfersRepo, deps.Tx))
		r.Post("/{id}/cancel", controllers.AdminCancelOrder(logg, deps.OrdersService, deps.Tx))
		r.Post("/{id}/items/{itemID}/refund", controllers.AdminRefundItem(logg, deps.Refunds))
	})

	return r
}
