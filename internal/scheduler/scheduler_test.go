package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(discardLogger())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(discardLogger())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(discardLogger())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

type fixedPrices struct{}

func (fixedPrices) SearchCoin(context.Context, string) (string, error) { return "bitcoin", nil }

func (fixedPrices) CurrentPrice(context.Context, string) (cryptochat.CoinData, error) {
	return cryptochat.CoinData{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", CurrentPrice: 40000}, nil
}

func (fixedPrices) PriceHistory(context.Context, string, int) ([]cryptochat.PricePoint, error) {
	return nil, nil
}

func (fixedPrices) Trending(context.Context) ([]cryptochat.TrendingCoin, error) { return nil, nil }

func TestSnapshotJobRecordsSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	core, err := cryptochat.OpenWithOptions(cryptochat.Options{
		Store:    cryptochat.NewMemoryStore(),
		Provider: fixedPrices{},
		Logger:   discardLogger(),
		Rand:     rand.New(rand.NewSource(1)),
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	defer core.Close()
	require.NoError(t, core.AddHolding(ctx, "BTC", 0.5, "Bitcoin", ""))

	s := New(discardLogger())
	job := NewSnapshotJob(core, discardLogger())
	assert.Equal(t, "portfolio_snapshot", job.Name())
	require.NoError(t, s.RunNow(job))

	history, err := core.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-05-01", history[0].Date)
	assert.Equal(t, 20000.0, history[0].TotalValue.Float())
}
