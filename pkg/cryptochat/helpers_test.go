package cryptochat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFakeTransport = WrapError(ErrCodeTransport, "fake transport", errors.New("connection refused"))

// fakeProvider is an in-memory PriceProvider.
type fakeProvider struct {
	mu          sync.Mutex
	search      map[string]string
	coins       map[string]CoinData
	history     map[string][]PricePoint
	trending    []TrendingCoin
	searchErr   error
	priceErr    map[string]error
	historyErr  error
	trendingErr error
	searchCalls []string
	priceCalls  []string
	block       chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		search: map[string]string{
			"BTC":      "bitcoin",
			"ETH":      "ethereum",
			"dogecoin": "dogecoin",
		},
		coins: map[string]CoinData{
			"bitcoin":  {ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", CurrentPrice: 50000, PriceChange24h: 10},
			"ethereum": {ID: "ethereum", Symbol: "ETH", Name: "Ethereum", CurrentPrice: 3000, PriceChange24h: -5},
			"dogecoin": {ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", CurrentPrice: 0.25},
		},
		history:  map[string][]PricePoint{},
		priceErr: map[string]error{},
	}
}

func (f *fakeProvider) SearchCoin(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return f.search[query], nil
}

func (f *fakeProvider) CurrentPrice(_ context.Context, coinID string) (CoinData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls = append(f.priceCalls, coinID)
	if err := f.priceErr[coinID]; err != nil {
		return CoinData{}, err
	}
	coin, ok := f.coins[coinID]
	if !ok {
		return CoinData{}, errFakeTransport
	}
	return coin, nil
}

func (f *fakeProvider) PriceHistory(_ context.Context, coinID string, _ int) ([]PricePoint, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[coinID], nil
}

func (f *fakeProvider) Trending(context.Context) ([]TrendingCoin, error) {
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	return f.trending, nil
}

func (f *fakeProvider) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}

// testClock is a settable Clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(date string) *testClock {
	t, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		panic(err)
	}
	return &testClock{now: t.Add(12 * time.Hour)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(date string) {
	t, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.Add(12 * time.Hour)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	core     *Core
	kv       *MemoryStore
	provider *fakeProvider
	clock    *testClock
}

func setupTestCore(t *testing.T) *testEnv {
	t.Helper()
	kv := NewMemoryStore()
	provider := newFakeProvider()
	clock := newTestClock("2024-03-15")
	core, err := OpenWithOptions(Options{
		Store:    kv,
		Provider: provider,
		Logger:   discardLogger(),
		Rand:     rand.New(rand.NewSource(1)),
		Now:      clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })
	return &testEnv{core: core, kv: kv, provider: provider, clock: clock}
}
