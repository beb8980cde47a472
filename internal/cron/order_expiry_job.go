package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/visolux/store-backend/internal/orders"
	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/logger"
)

const (
	defaultExpiryDays  = 7
	expiryBatchSize    = 500
	expiredOrderReason = "payment window expired"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderExpiryJobParams configure the unpaid order expiry job.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders *orders.Service
	// ExpiryDays is how long an unpaid order may wait for its payment.
	ExpiryDays int
}

// NewOrderExpiryJob builds the job that cancels orders whose payment never
// arrived. Cancellation goes through the state machine, so each expired
// order gets a history row and a late gateway success is still surfaced as
// an anomaly rather than silently applied.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	expiry := params.ExpiryDays
	if expiry <= 0 {
		expiry = defaultExpiryDays
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	orders *orders.Service
	expiry int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.expiry) * 24 * time.Hour)

	stale, err := j.orders.Repo().ListUnpaidBefore(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("order expiry: listing stale orders: %w", err)
	}

	var errs error
	cancelled := 0
	reason := expiredOrderReason
	for i := range stale {
		order := &stale[i]
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := j.orders.Transition(ctx, tx, order, orders.EventCancel, enums.TransitionSourceManual, &reason)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancelling order %s: %w", order.Code, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"expiry_days": j.expiry,
		"eligible":    len(stale),
		"cancelled":   cancelled,
	})
	if errs != nil {
		j.logg.Error(logCtx, "order expiry completed with failures", errs)
		return fmt.Errorf("order expiry: %w", errs)
	}
	j.logg.Info(logCtx, "order expiry complete")
	return nil
}
