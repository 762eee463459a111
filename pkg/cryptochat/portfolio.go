package cryptochat

import (
	"context"
	"strings"
)

// Portfolio returns the stored holdings in insertion order.
func (c *Core) Portfolio(ctx context.Context) (*Portfolio, error) {
	return c.store.Portfolio(ctx)
}

// AddHolding upserts a holding, replacing any previous amount for symbol.
// An empty name falls back to the symbol.
func (c *Core) AddHolding(ctx context.Context, symbol string, amount float64, name, coinID string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = normalizeSymbol(symbol)
	}
	return c.store.AddHolding(ctx, symbol, amount, name, strings.TrimSpace(coinID))
}

// RemoveHolding deletes symbol from the portfolio.
func (c *Core) RemoveHolding(ctx context.Context, symbol string) error {
	return c.store.RemoveHolding(ctx, symbol)
}

// ClearPortfolio deletes all holdings and the snapshot history.
func (c *Core) ClearPortfolio(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// PortfolioValue prices the portfolio and records today's snapshot.
func (c *Core) PortfolioValue(ctx context.Context) (PortfolioValue, error) {
	holdings, err := c.valuation.CurrentValue(ctx)
	if err != nil {
		return PortfolioValue{}, err
	}
	return PortfolioValue{Holdings: holdings, Summary: Aggregate(holdings)}, nil
}

// Snapshot values the portfolio so today's history entry is current.
// It is the entry point for scheduled jobs.
func (c *Core) Snapshot(ctx context.Context) (PortfolioValue, error) {
	value, err := c.PortfolioValue(ctx)
	if err != nil {
		return PortfolioValue{}, err
	}
	c.logger.Info("portfolio snapshot recorded",
		"date", dateKey(c.now()),
		"holdings", len(value.Holdings),
		"total", value.Summary.TotalValue.String())
	return value, nil
}

// History7Days returns the last week of snapshots, oldest first.
func (c *Core) History7Days(ctx context.Context) ([]PortfolioSnapshot, error) {
	return c.valuation.History7Days(ctx)
}

// History returns all stored snapshots, most recent first.
func (c *Core) History(ctx context.Context) ([]PortfolioSnapshot, error) {
	return c.valuation.History(ctx)
}

// SearchCoin resolves a free-text query to a coin id.
func (c *Core) SearchCoin(ctx context.Context, query string) (string, error) {
	return c.provider.SearchCoin(ctx, query)
}

// CurrentPrice returns market data for coin, which may be an id or a query.
func (c *Core) CurrentPrice(ctx context.Context, coin string) (CoinData, error) {
	coinID, err := c.resolveCoin(ctx, coin)
	if err != nil {
		return CoinData{}, err
	}
	return c.provider.CurrentPrice(ctx, coinID)
}

// PriceChart returns a price series with summary statistics.
func (c *Core) PriceChart(ctx context.Context, coinID, name string, days int) (PriceChart, error) {
	if days <= 0 {
		days = chartDays
	}
	points, err := c.provider.PriceHistory(ctx, coinID, days)
	if err != nil {
		return PriceChart{}, err
	}
	if name == "" {
		name = coinID
	}
	return PriceChart{
		CoinID: coinID,
		Name:   name,
		Days:   days,
		Points: points,
		Stats:  ComputePriceStats(points),
	}, nil
}

// PriceHistory resolves coin and returns its chart over days.
func (c *Core) PriceHistory(ctx context.Context, coin string, days int) (PriceChart, error) {
	coinID, err := c.resolveCoin(ctx, coin)
	if err != nil {
		return PriceChart{}, err
	}
	return c.PriceChart(ctx, coinID, "", days)
}

// Trending returns today's trending coins.
func (c *Core) Trending(ctx context.Context) ([]TrendingCoin, error) {
	return c.provider.Trending(ctx)
}

// resolveCoin maps a ticker from the built-in tables or a provider search
// to a coin id.
func (c *Core) resolveCoin(ctx context.Context, coin string) (string, error) {
	coin = strings.ToLower(strings.TrimSpace(coin))
	if coin == "" {
		return "", NewError(ErrCodeInvalidInput, "coin is required")
	}
	for _, alias := range priceCoins {
		if alias.alias == coin || alias.id == coin {
			return alias.id, nil
		}
	}
	id, err := c.provider.SearchCoin(ctx, coin)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrCoinNotFound
	}
	return id, nil
}
