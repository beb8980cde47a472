package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/visolux/store-backend/api/routes"
	checkoutsvc "github.com/visolux/store-backend/internal/checkout"
	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/internal/payments"
	"github.com/visolux/store-backend/internal/promo"
	"github.com/visolux/store-backend/internal/quote"
	"github.com/visolux/store-backend/internal/refunds"
	"github.com/visolux/store-backend/internal/shipping"
	"github.com/visolux/store-backend/internal/transfers"
	"github.com/visolux/store-backend/pkg/config"
	"github.com/visolux/store-backend/pkg/db"
	"github.com/visolux/store-backend/pkg/fiuu"
	"github.com/visolux/store-backend/pkg/logger"
	"github.com/visolux/store-backend/pkg/metrics"
	"github.com/visolux/store-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	gateway := gatewayConfig(cfg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	promosRepo := promo.NewRepository(dbClient.DB())
	ledgerRepo := payments.NewRepository(dbClient.DB())
	refundsRepo := refunds.NewRepository(dbClient.DB())
	transfersRepo := transfers.NewRepository(dbClient.DB())

	ordersSvc, err := orders.NewService(ordersRepo, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	promoSvc, err := promo.NewService(promosRepo)
	if err != nil {
		fatal(logg, "failed to create promo service", err)
	}
	shippingCalc := shipping.NewCalculator(cfg.Shipping)
	quoteEngine, err := quote.NewEngine(shippingCalc, promoSvc)
	if err != nil {
		fatal(logg, "failed to create quote engine", err)
	}
	checkoutSvc, err := checkoutsvc.NewService(quoteEngine, ordersRepo, promosRepo, dbClient, gateway, logg)
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}
	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	paymentsSvc, err := payments.NewService(gateway, ordersSvc, ledgerRepo, dbClient, logg, webhookMetrics)
	if err != nil {
		fatal(logg, "failed to create payments service", err)
	}
	refundsSvc, err := refunds.NewService(ordersSvc, refundsRepo, ledgerRepo, dbClient, gateway, logg)
	if err != nil {
		fatal(logg, "failed to create refunds service", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Tx:            dbClient,
		QuoteEngine:   quoteEngine,
		Checkout:      checkoutSvc,
		Payments:      paymentsSvc,
		Refunds:       refundsSvc,
		OrdersService: ordersSvc,
		OrdersRepo:    ordersRepo,
		RefundsRepo:   refundsRepo,
		TransfersRepo: transfersRepo,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

// gatewayConfig joins the merchant credentials with the callback endpoints
// registered against this deployment's public base URL.
func gatewayConfig(cfg *config.Config) fiuu.Config {
	base := strings.TrimRight(cfg.App.BaseURL, "/")
	return fiuu.Config{
		MerchantID:    cfg.Fiuu.MerchantID,
		VerifyKey:     cfg.Fiuu.VerifyKey,
		SecretKey:     cfg.Fiuu.SecretKey,
		GatewayURL:    cfg.Fiuu.GatewayURL,
		Currency:      cfg.Fiuu.Currency,
		PaymentMethod: cfg.Fiuu.PaymentMethod,
		LegacyVcode:   cfg.Fiuu.IsLegacyVcode(),
		ReturnURL:     base + cfg.Fiuu.ReturnURLPath,
		CallbackURL:   base + cfg.Fiuu.CallbackURLPath,
		CancelURL:     base + cfg.Fiuu.CancelURLPath,
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
