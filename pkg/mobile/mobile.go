package mobile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// Core wraps the chat core for gomobile bindings. Every call takes and
// returns JSON strings.
type Core struct {
	core *cryptochat.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	return openWithOptions(cryptochat.Options{DBPath: dbPath})
}

// OpenWithAPIKey initializes the core with a CoinGecko demo API key.
func OpenWithAPIKey(dbPath, apiKey string) (*Core, error) {
	return openWithOptions(cryptochat.Options{DBPath: dbPath, CoinGeckoAPIKey: apiKey})
}

func openWithOptions(opts cryptochat.Options) (*Core, error) {
	core, err := cryptochat.OpenWithOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// WelcomeJSON returns the opening bot message.
func (c *Core) WelcomeJSON() (string, error) {
	return marshalJSON(c.core.Welcome())
}

// SendMessageJSON processes one user message and returns the reply.
func (c *Core) SendMessageJSON(text string) (string, error) {
	resp, err := c.core.Process(context.Background(), text)
	if err != nil {
		return "", err
	}
	return marshalJSON(resp)
}

// GetPortfolioJSON returns the holdings keyed by symbol, in insertion order.
func (c *Core) GetPortfolioJSON() (string, error) {
	p, err := c.core.Portfolio(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(p)
}

// SetHoldingJSON upserts a holding from {"symbol","amount","name","coin_id"}.
func (c *Core) SetHoldingJSON(payloadJSON string) (string, error) {
	var payload holdingPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", cryptochat.WrapError(cryptochat.ErrCodeParse, "invalid holding payload", err)
	}
	ctx := context.Background()
	if err := c.core.AddHolding(ctx, payload.Symbol, payload.Amount, payload.Name, payload.CoinID); err != nil {
		return "", err
	}
	return c.GetPortfolioJSON()
}

// RemoveHolding deletes symbol from the portfolio.
func (c *Core) RemoveHolding(symbol string) error {
	return c.core.RemoveHolding(context.Background(), symbol)
}

// ClearPortfolio deletes all holdings and history.
func (c *Core) ClearPortfolio() error {
	return c.core.ClearPortfolio(context.Background())
}

// GetPortfolioValueJSON prices the portfolio.
func (c *Core) GetPortfolioValueJSON() (string, error) {
	value, err := c.core.PortfolioValue(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(value)
}

// GetHistoryJSON returns snapshots for range "7d" (default) or "all".
func (c *Core) GetHistoryJSON(rangeName string) (string, error) {
	ctx := context.Background()
	var (
		history []cryptochat.PortfolioSnapshot
		err     error
	)
	switch rangeName {
	case "", "7d":
		history, err = c.core.History7Days(ctx)
	case "all":
		history, err = c.core.History(ctx)
	default:
		return "", cryptochat.NewError(cryptochat.ErrCodeInvalidInput, fmt.Sprintf("unknown range %q", rangeName))
	}
	if err != nil {
		return "", err
	}
	if history == nil {
		history = []cryptochat.PortfolioSnapshot{}
	}
	return marshalJSON(history)
}

// GetPriceJSON returns market data for a ticker, id or search query.
func (c *Core) GetPriceJSON(coin string) (string, error) {
	data, err := c.core.CurrentPrice(context.Background(), coin)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// GetTrendingJSON returns today's trending coins.
func (c *Core) GetTrendingJSON() (string, error) {
	coins, err := c.core.Trending(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(coins)
}

type holdingPayload struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Name   string  `json:"name"`
	CoinID string  `json:"coin_id"`
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(data), nil
}
