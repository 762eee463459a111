package cryptochat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Holding is one user-declared quantity of a coin.
type Holding struct {
	Amount float64 `json:"amount"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	CoinID string  `json:"coinId,omitempty"`
}

// Portfolio maps uppercase symbols to holdings and remembers insertion order.
// It persists as a JSON object whose key order is the iteration order.
type Portfolio struct {
	order []string
	items map[string]Holding
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{items: map[string]Holding{}}
}

// Len returns the number of holdings.
func (p *Portfolio) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// Get returns the holding stored under symbol (case-insensitive).
func (p *Portfolio) Get(symbol string) (Holding, bool) {
	if p == nil {
		return Holding{}, false
	}
	h, ok := p.items[normalizeSymbol(symbol)]
	return h, ok
}

// Put stores h under its uppercase symbol. A replaced symbol keeps its position.
func (p *Portfolio) Put(h Holding) {
	key := normalizeSymbol(h.Symbol)
	h.Symbol = key
	if p.items == nil {
		p.items = map[string]Holding{}
	}
	if _, exists := p.items[key]; !exists {
		p.order = append(p.order, key)
	}
	p.items[key] = h
}

// Delete removes symbol, reporting whether it was present.
func (p *Portfolio) Delete(symbol string) bool {
	key := normalizeSymbol(symbol)
	if _, ok := p.items[key]; !ok {
		return false
	}
	delete(p.items, key)
	for i, s := range p.order {
		if s == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Holdings returns the holdings in stored order.
func (p *Portfolio) Holdings() []Holding {
	if p == nil {
		return []Holding{}
	}
	out := make([]Holding, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.items[key])
	}
	return out
}

// MarshalJSON writes the holdings as an object keyed by symbol, in order.
func (p *Portfolio) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range p.Holdings() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(h.Symbol)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by symbol, keeping the key order.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("portfolio: expected object, got %v", tok)
	}
	p.order = nil
	p.items = map[string]Holding{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("portfolio: unexpected key %v", tok)
		}
		var h Holding
		if err := dec.Decode(&h); err != nil {
			return fmt.Errorf("portfolio: holding %q: %w", key, err)
		}
		if h.Symbol == "" {
			h.Symbol = key
		}
		p.Put(h)
	}
	_, err = dec.Token()
	return err
}

// PricedHolding is a holding valued at the current market price.
type PricedHolding struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	CurrentPrice   Amount  `json:"currentPrice"`
	TotalValue     Amount  `json:"totalValue"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// PortfolioSummary aggregates a set of priced holdings.
type PortfolioSummary struct {
	TotalValue         Amount  `json:"totalValue"`
	TotalChange24h     Amount  `json:"totalChange24h"`
	TotalChangePercent float64 `json:"totalChangePercent"`
}

// SymbolValue is one holding's value inside a snapshot.
type SymbolValue struct {
	Symbol string `json:"symbol"`
	Value  Amount `json:"value"`
}

// PortfolioSnapshot is one day's total-portfolio valuation.
type PortfolioSnapshot struct {
	Date       string        `json:"date"`
	TotalValue Amount        `json:"totalValue"`
	Holdings   []SymbolValue `json:"holdings"`
}

// CoinData is the current market data for a coin.
type CoinData struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	MarketCapRank  int     `json:"market_cap_rank"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
	TotalVolume    float64 `json:"total_volume"`
	Description    string  `json:"description,omitempty"`
}

// TrendingCoin is one entry of the provider's trending list.
type TrendingCoin struct {
	ID             string   `json:"id"`
	CoinID         int      `json:"coin_id"`
	Name           string   `json:"name"`
	Symbol         string   `json:"symbol"`
	MarketCapRank  int      `json:"market_cap_rank"`
	Thumb          string   `json:"thumb"`
	Small          string   `json:"small"`
	Large          string   `json:"large"`
	Slug           string   `json:"slug"`
	PriceBTC       float64  `json:"price_btc"`
	Score          int      `json:"score"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	PriceChange24h *float64 `json:"price_change_percentage_24h,omitempty"`
}

// PricePoint is one sample of a price series.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// PriceChart is the payload of a chart response.
type PriceChart struct {
	CoinID string       `json:"coinId"`
	Name   string       `json:"name"`
	Days   int          `json:"days"`
	Points []PricePoint `json:"points"`
	Stats  PriceStats   `json:"stats"`
}

// PortfolioValue is the payload of a portfolio-value response.
type PortfolioValue struct {
	Holdings []PricedHolding  `json:"holdings"`
	Summary  PortfolioSummary `json:"summary"`
}

// ResponseKind tells the widget how to render a reply.
type ResponseKind string

const (
	KindText             ResponseKind = "text"
	KindPrice            ResponseKind = "price"
	KindTrending         ResponseKind = "trending"
	KindPortfolio        ResponseKind = "portfolio"
	KindPortfolioValue   ResponseKind = "portfolio-value"
	KindPortfolioHistory ResponseKind = "portfolio-history"
	KindChart            ResponseKind = "chart"
	KindError            ResponseKind = "error"
)

// Response is a bot reply.
type Response struct {
	ID        string       `json:"id"`
	Kind      ResponseKind `json:"type"`
	Intent    IntentKind   `json:"intent"`
	Text      string       `json:"text"`
	Speech    string       `json:"speech,omitempty"`
	Data      any          `json:"data,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
