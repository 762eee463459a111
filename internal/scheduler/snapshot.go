package scheduler

import (
	"context"
	"log/slog"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// Snapshotter values the portfolio and records the day's snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (cryptochat.PortfolioValue, error)
}

// SnapshotJob keeps the portfolio history current even when nobody asks
// for the portfolio value that day.
type SnapshotJob struct {
	log    *slog.Logger
	source Snapshotter
}

// NewSnapshotJob creates a snapshot job.
func NewSnapshotJob(source Snapshotter, logger *slog.Logger) *SnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotJob{log: logger.With("job", "portfolio_snapshot"), source: source}
}

// Name returns the job name.
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshot"
}

// Run records today's snapshot.
func (j *SnapshotJob) Run(ctx context.Context) error {
	value, err := j.source.Snapshot(ctx)
	if err != nil {
		return err
	}
	j.log.Debug("snapshot job finished", "holdings", len(value.Holdings))
	return nil
}
