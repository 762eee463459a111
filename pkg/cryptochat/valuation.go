package cryptochat

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

const historyWindowDays = 7

// ValuationEngine prices holdings and keeps the daily snapshot history.
type ValuationEngine struct {
	store    *PortfolioStore
	provider PriceProvider
	now      Clock
	logger   *slog.Logger
}

// NewValuationEngine wires a valuation engine. now may be nil.
func NewValuationEngine(store *PortfolioStore, provider PriceProvider, now Clock, logger *slog.Logger) *ValuationEngine {
	if now == nil {
		now = systemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValuationEngine{store: store, provider: provider, now: now, logger: logger}
}

// CurrentValue prices every holding in stored order and records today's
// snapshot, replacing any earlier entry for today. An empty portfolio
// records a zero total. A holding that cannot be resolved or priced is
// returned with zero values; only storage failures are returned as errors.
func (v *ValuationEngine) CurrentValue(ctx context.Context) ([]PricedHolding, error) {
	portfolio, err := v.store.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	holdings := portfolio.Holdings()
	priced := make([]PricedHolding, 0, len(holdings))
	for _, h := range holdings {
		priced = append(priced, v.priceHolding(ctx, h))
	}
	if err := v.RecordSnapshot(ctx, priced); err != nil {
		return nil, err
	}
	return priced, nil
}

func (v *ValuationEngine) priceHolding(ctx context.Context, h Holding) PricedHolding {
	out := PricedHolding{
		Symbol:       h.Symbol,
		Name:         h.Name,
		Amount:       h.Amount,
		CurrentPrice: ZeroAmount,
		TotalValue:   ZeroAmount,
	}
	coinID := h.CoinID
	if coinID == "" {
		id, err := v.provider.SearchCoin(ctx, h.Symbol)
		if err != nil {
			v.logger.Error("resolve holding failed", "symbol", h.Symbol, "err", err)
			return out
		}
		if id == "" {
			v.logger.Warn("holding symbol not found", "symbol", h.Symbol)
			return out
		}
		coinID = id
	}
	coin, err := v.provider.CurrentPrice(ctx, coinID)
	if err != nil {
		v.logger.Error("price holding failed", "symbol", h.Symbol, "coinId", coinID, "err", err)
		return out
	}
	if h.CoinID == "" {
		if err := v.store.SetCoinID(ctx, h.Symbol, coinID); err != nil {
			v.logger.Warn("cache coin id failed", "symbol", h.Symbol, "err", err)
		}
	}
	price := decimal.NewFromFloat(coin.CurrentPrice)
	out.CurrentPrice = Amount{price}
	out.TotalValue = Amount{price.Mul(decimal.NewFromFloat(h.Amount))}
	out.PriceChange24h = coin.PriceChange24h
	return out
}

// Aggregate sums holdings and back-solves the 24h change from each
// holding's percentage move.
func Aggregate(holdings []PricedHolding) PortfolioSummary {
	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	change := decimal.Zero
	for _, h := range holdings {
		value := h.TotalValue.Decimal
		total = total.Add(value)
		factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(h.PriceChange24h).Div(hundred))
		if factor.IsZero() {
			continue
		}
		change = change.Add(value.Sub(value.Div(factor)))
	}
	summary := PortfolioSummary{
		TotalValue:     Amount{total},
		TotalChange24h: Amount{change},
	}
	previous := total.Sub(change)
	if !total.IsZero() && !previous.IsZero() {
		summary.TotalChangePercent = change.Mul(hundred).Div(previous).InexactFloat64()
	}
	return summary
}

// RecordSnapshot stores today's valuation of holdings.
func (v *ValuationEngine) RecordSnapshot(ctx context.Context, holdings []PricedHolding) error {
	total := decimal.Zero
	values := make([]SymbolValue, 0, len(holdings))
	for _, h := range holdings {
		total = total.Add(h.TotalValue.Decimal)
		values = append(values, SymbolValue{Symbol: h.Symbol, Value: h.TotalValue})
	}
	return v.store.SaveSnapshot(ctx, PortfolioSnapshot{
		Date:       dateKey(v.now()),
		TotalValue: Amount{total},
		Holdings:   values,
	})
}

// History7Days returns snapshots dated within the last seven days, oldest first.
func (v *ValuationEngine) History7Days(ctx context.Context) ([]PortfolioSnapshot, error) {
	history, err := v.store.History(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := dateKey(v.now().AddDate(0, 0, -historyWindowDays))
	recent := make([]PortfolioSnapshot, 0, len(history))
	for _, snap := range history {
		if snap.Date >= cutoff {
			recent = append(recent, snap)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date < recent[j].Date
	})
	return recent, nil
}

// History returns every stored snapshot, most recent first.
func (v *ValuationEngine) History(ctx context.Context) ([]PortfolioSnapshot, error) {
	return v.store.History(ctx)
}
