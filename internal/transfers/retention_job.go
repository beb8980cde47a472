package transfers

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/visolux/store-backend/pkg/logger"
	"github.com/visolux/store-backend/pkg/metrics"
)

const (
	defaultRetentionDays = 180
	retentionBatchSize   = 500
)

// SlipRetentionJobParams configure the slip retention job.
type SlipRetentionJobParams struct {
	Logger     *logger.Logger
	Repository Repository
	Metrics    *metrics.JobMetrics
	// RetentionDays is how long slip files are kept after upload.
	RetentionDays int
	// Apply performs deletions; false counts eligible rows without touching
	// anything.
	Apply bool
}

// NewSlipRetentionJob builds the job that purges bank-in slip images past
// the audit retention window. Rows are tombstoned, never deleted.
func NewSlipRetentionJob(params SlipRetentionJobParams) (*SlipRetentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("transfers repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	return &SlipRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		apply:     params.Apply,
		now:       time.Now,
		remove:    os.Remove,
	}, nil
}

// SlipRetentionJob purges expired slip files.
type SlipRetentionJob struct {
	logg      *logger.Logger
	repo      Repository
	metrics   *metrics.JobMetrics
	retention int
	apply     bool
	now       func() time.Time
	remove    func(path string) error
}

func (j *SlipRetentionJob) Name() string { return "slip-retention" }

// Run purges one batch of expired slips. Per-row failures are aggregated and
// do not stop the sweep; a missing file still tombstones the row.
func (j *SlipRetentionJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	expired, err := j.repo.ListExpiredSlips(ctx, cutoff, retentionBatchSize)
	if err != nil {
		j.recordOutcome(start, false)
		return fmt.Errorf("slip retention: listing expired slips: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"eligible":       len(expired),
		"apply":          j.apply,
	})

	if !j.apply {
		j.logg.Info(logCtx, "slip retention dry run complete")
		j.recordOutcome(start, true)
		return nil
	}

	var errs error
	deleted := 0
	for _, transfer := range expired {
		if err := j.remove(transfer.SlipPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, fmt.Errorf("removing slip %s: %w", transfer.SlipPath, err))
			continue
		}
		if err := j.repo.MarkSlipDeleted(ctx, transfer.ID, j.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tombstoning transfer %s: %w", transfer.ID, err))
			continue
		}
		deleted++
	}

	logCtx = j.logg.WithField(logCtx, "deleted", deleted)
	if errs != nil {
		j.logg.Error(logCtx, "slip retention completed with failures", errs)
		j.recordOutcome(start, false)
		return fmt.Errorf("slip retention: %w", errs)
	}
	j.logg.Info(logCtx, "slip retention cleanup complete")
	j.recordOutcome(start, true)
	return nil
}

func (j *SlipRetentionJob) recordOutcome(start time.Time, success bool) {
	if j.metrics == nil {
		return
	}
	j.metrics.ObserveDuration(j.Name(), time.Since(start))
	if success {
		j.metrics.IncSuccess(j.Name())
	} else {
		j.metrics.IncFailure(j.Name())
	}
}
