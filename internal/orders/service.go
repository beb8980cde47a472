// Package orders owns the order lifecycle: the status state machine, the
// append-only history trail, and order persistence.
package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/visolux/store-backend/pkg/db/models"
	"github.com/visolux/store-backend/pkg/enums"
	storeerrors "github.com/visolux/store-backend/pkg/errors"
	"github.com/visolux/store-backend/pkg/logger"
)

// Service applies state-machine events to persisted orders.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, logg: logg, now: time.Now}, nil
}

// Repo exposes the repository for read paths and cross-service wiring.
func (s *Service) Repo() Repository {
	return s.repo
}

// Transition applies one event to the order inside the caller's transaction.
// Real transitions update the row (guarded by the expected current status)
// and append exactly one history row. Anomalies are logged and returned with
// the status untouched; benign no-ops return silently.
func (s *Service) Transition(ctx context.Context, tx *gorm.DB, order *models.Order, event Event, source enums.TransitionSource, reason *string) (Outcome, error) {
	outcome, err := Apply(order.Status, event)
	if err != nil {
		return Outcome{}, err
	}

	if outcome.Anomaly {
		anomalyCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_code":   order.Code,
			"order_status": string(order.Status),
			"event":        string(event),
			"source":       string(source),
		})
		s.logg.Warn(anomalyCtx, outcome.Reason)
		return outcome, nil
	}

	if !outcome.Changed {
		return outcome, nil
	}

	repo := s.repo.WithTx(tx)
	now := s.now()

	updated, err := repo.UpdateStatus(ctx, order.ID, outcome.From, outcome.To, now)
	if err != nil {
		return Outcome{}, storeerrors.Wrap(storeerrors.CodeDependency, err, "updating order status")
	}
	if !updated {
		return Outcome{}, storeerrors.New(storeerrors.CodeConflict, "order status changed concurrently")
	}

	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: outcome.From,
		ToStatus:   outcome.To,
		Source:     source,
		Reason:     reason,
	}); err != nil {
		return Outcome{}, storeerrors.Wrap(storeerrors.CodeDependency, err, "appending order status history")
	}

	order.Status = outcome.To
	switch outcome.To {
	case enums.OrderStatusPaid:
		order.PaidAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	return outcome, nil
}
