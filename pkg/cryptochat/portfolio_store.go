package cryptochat

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"sync"
)

// Storage keys, shared with the browser widget's localStorage layout.
const (
	PortfolioKey = "crypto-portfolio"
	HistoryKey   = "crypto-portfolio-history"
)

// MaxHistoryEntries caps the stored snapshot history.
const MaxHistoryEntries = 30

// PortfolioStore keeps holdings and snapshot history in a KeyValueStore.
// Every mutation is a read-modify-write under one lock.
type PortfolioStore struct {
	mu     sync.Mutex
	kv     KeyValueStore
	logger *slog.Logger
}

// NewPortfolioStore wraps kv.
func NewPortfolioStore(kv KeyValueStore, logger *slog.Logger) *PortfolioStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioStore{kv: kv, logger: logger}
}

// Portfolio returns the stored holdings. Unreadable data counts as empty.
func (s *PortfolioStore) Portfolio(ctx context.Context) (*Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPortfolio(ctx)
}

// AddHolding upserts a holding. The amount replaces any previous amount.
func (s *PortfolioStore) AddHolding(ctx context.Context, symbol string, amount float64, name, coinID string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return NewError(ErrCodeInvalidInput, "symbol is required")
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NewError(ErrCodeInvalidInput, "amount must be a positive number")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadPortfolio(ctx)
	if err != nil {
		return err
	}
	p.Put(Holding{Amount: amount, Symbol: symbol, Name: name, CoinID: coinID})
	return s.savePortfolio(ctx, p)
}

// SetCoinID records a resolved coin id on an existing holding.
func (s *PortfolioStore) SetCoinID(ctx context.Context, symbol, coinID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadPortfolio(ctx)
	if err != nil {
		return err
	}
	h, ok := p.Get(symbol)
	if !ok || h.CoinID == coinID {
		return nil
	}
	h.CoinID = coinID
	p.Put(h)
	return s.savePortfolio(ctx, p)
}

// RemoveHolding deletes a holding; removing an absent symbol is a no-op.
func (s *PortfolioStore) RemoveHolding(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadPortfolio(ctx)
	if err != nil {
		return err
	}
	if !p.Delete(symbol) {
		return nil
	}
	return s.savePortfolio(ctx, p)
}

// Clear deletes holdings and the whole snapshot history.
func (s *PortfolioStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, PortfolioKey); err != nil {
		return WrapError(ErrCodeStorage, "clear portfolio", err)
	}
	if err := s.kv.Delete(ctx, HistoryKey); err != nil {
		return WrapError(ErrCodeStorage, "clear history", err)
	}
	return nil
}

// History returns stored snapshots, most recent first.
func (s *PortfolioStore) History(ctx context.Context) ([]PortfolioSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistory(ctx)
}

// SaveSnapshot stores snap, replacing any snapshot with the same date, then
// keeps the MaxHistoryEntries most recent dates.
func (s *PortfolioStore) SaveSnapshot(ctx context.Context, snap PortfolioSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, err := s.loadHistory(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range history {
		if history[i].Date == snap.Date {
			history[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		history = append(history, snap)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date > history[j].Date
	})
	if len(history) > MaxHistoryEntries {
		history = history[:MaxHistoryEntries]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return WrapError(ErrCodeInternal, "encode history", err)
	}
	if err := s.kv.Set(ctx, HistoryKey, data); err != nil {
		return WrapError(ErrCodeStorage, "save history", err)
	}
	return nil
}

func (s *PortfolioStore) loadPortfolio(ctx context.Context) (*Portfolio, error) {
	data, ok, err := s.kv.Get(ctx, PortfolioKey)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "load portfolio", err)
	}
	p := NewPortfolio()
	if !ok {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		s.logger.Warn("stored portfolio unreadable, treating as empty", "err", err)
		return NewPortfolio(), nil
	}
	return p, nil
}

func (s *PortfolioStore) savePortfolio(ctx context.Context, p *Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return WrapError(ErrCodeInternal, "encode portfolio", err)
	}
	if err := s.kv.Set(ctx, PortfolioKey, data); err != nil {
		return WrapError(ErrCodeStorage, "save portfolio", err)
	}
	return nil
}

func (s *PortfolioStore) loadHistory(ctx context.Context) ([]PortfolioSnapshot, error) {
	data, ok, err := s.kv.Get(ctx, HistoryKey)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "load history", err)
	}
	if !ok {
		return []PortfolioSnapshot{}, nil
	}
	var history []PortfolioSnapshot
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Warn("stored history unreadable, treating as empty", "err", err)
		return []PortfolioSnapshot{}, nil
	}
	if history == nil {
		history = []PortfolioSnapshot{}
	}
	return history, nil
}
