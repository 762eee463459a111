package cryptochat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultCoinGeckoURL is the public CoinGecko v3 API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// maxResponseSize limits external API responses to 1MB to prevent memory exhaustion.
const maxResponseSize = 1 << 20 // 1MB

const trendingLimit = 5

// PriceProvider supplies market data for coins.
type PriceProvider interface {
	// SearchCoin resolves a free-text query to a coin id, "" when nothing matches.
	SearchCoin(ctx context.Context, query string) (string, error)
	CurrentPrice(ctx context.Context, coinID string) (CoinData, error)
	PriceHistory(ctx context.Context, coinID string, days int) ([]PricePoint, error)
	// Trending returns the top trending coins. Prices may be missing.
	Trending(ctx context.Context) ([]TrendingCoin, error)
}

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// CoinGeckoOptions configures a CoinGeckoClient.
type CoinGeckoOptions struct {
	BaseURL       string
	APIKey        string // Optional: demo key sent as x_cg_demo_api_key
	Logger        *slog.Logger
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration
	HTTPClient    HTTPDoer // Optional: inject custom client for testing
}

// CoinGeckoClient is a PriceProvider backed by the CoinGecko REST API.
// Successful responses are cached for CacheTTL and each endpoint has its own
// circuit breaker.
type CoinGeckoClient struct {
	baseURL       string
	apiKey        string
	logger        *slog.Logger
	cacheTTL      time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	client        HTTPDoer

	cacheMu      sync.RWMutex
	cache        map[string]cacheEntry
	circuitMu    sync.Mutex
	serviceState map[string]*serviceState
}

type cacheEntry struct {
	value any
	ts    time.Time
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

// NewCoinGeckoClient returns a client with defaults applied to zero options.
func NewCoinGeckoClient(opts CoinGeckoOptions) *CoinGeckoClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: defaultDuration(opts.HTTPTimeout, 10*time.Second),
		}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoClient{
		baseURL:       baseURL,
		apiKey:        opts.APIKey,
		logger:        logger,
		cacheTTL:      defaultDuration(opts.CacheTTL, 30*time.Second),
		failThreshold: defaultInt(opts.FailThreshold, 3),
		failWindow:    defaultDuration(opts.FailWindow, 60*time.Second),
		cooldown:      defaultDuration(opts.Cooldown, 120*time.Second),
		client:        client,
		cache:         map[string]cacheEntry{},
		serviceState:  map[string]*serviceState{},
	}
}

// SearchCoin returns the id of the first search hit.
func (c *CoinGeckoClient) SearchCoin(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	return fetchCached(ctx, c, "search", "/search", url.Values{"query": {query}}, parseSearch)
}

// CurrentPrice returns market data for coinID.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context, coinID string) (CoinData, error) {
	if coinID == "" {
		return CoinData{}, NewError(ErrCodeInvalidInput, "coin id is required")
	}
	q := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	return fetchCached(ctx, c, "coins", "/coins/"+url.PathEscape(coinID), q, parseCoin)
}

// PriceHistory returns daily USD prices for the last days days.
func (c *CoinGeckoClient) PriceHistory(ctx context.Context, coinID string, days int) ([]PricePoint, error) {
	if coinID == "" {
		return nil, NewError(ErrCodeInvalidInput, "coin id is required")
	}
	if days <= 0 {
		days = 7
	}
	q := url.Values{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
	}
	return fetchCached(ctx, c, "market_chart", "/coins/"+url.PathEscape(coinID)+"/market_chart", q, parseMarketChart)
}

// Trending returns the top trending coins with prices from the simple-price
// batch. When the batch fails the coins are returned without prices.
func (c *CoinGeckoClient) Trending(ctx context.Context) ([]TrendingCoin, error) {
	coins, err := fetchCached(ctx, c, "trending", "/search/trending", nil, parseTrending)
	if err != nil {
		return nil, err
	}
	out := append([]TrendingCoin(nil), coins...)
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, len(out))
	for i, coin := range out {
		ids[i] = coin.ID
	}
	q := url.Values{
		"ids":                 {strings.Join(ids, ",")},
		"vs_currencies":       {"usd"},
		"include_24hr_change": {"true"},
	}
	prices, err := fetchCached(ctx, c, "simple_price", "/simple/price", q, parseSimplePrice)
	if err != nil {
		c.logger.Warn("trending price batch failed", "err", err)
		return out, nil
	}
	for i := range out {
		quote := prices[out[i].ID]
		price, change := 0.0, 0.0
		if quote.USD != nil {
			price = *quote.USD
		}
		if quote.Change24h != nil {
			change = *quote.Change24h
		}
		out[i].CurrentPrice = &price
		out[i].PriceChange24h = &change
	}
	return out, nil
}

// fetchCached serves a parsed response from cache or fetches and parses it.
// Transport and payload failures both count against the endpoint's breaker.
func fetchCached[T any](ctx context.Context, c *CoinGeckoClient, service, endpoint string, query url.Values, parse func([]byte) (T, error)) (T, error) {
	var zero T
	key := endpoint + "?" + query.Encode()
	if v, ok := c.getCached(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	if !c.serviceAvailable(service) {
		return zero, NewError(ErrCodeTransport, service+" is cooling down after repeated failures")
	}
	c.logger.Debug("coingecko request", "service", service, "endpoint", endpoint)
	body, err := c.httpGet(ctx, c.buildURL(endpoint, query))
	if err != nil {
		c.recordServiceFailure(service)
		return zero, WrapError(ErrCodeTransport, service+" request failed", err)
	}
	value, err := parse(body)
	if err != nil {
		c.recordServiceFailure(service)
		return zero, WrapError(ErrCodeTransport, service+" returned a malformed payload", err)
	}
	c.recordServiceSuccess(service)
	c.setCached(key, value)
	return value, nil
}

func (c *CoinGeckoClient) buildURL(endpoint string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.apiKey != "" {
		q.Set("x_cg_demo_api_key", c.apiKey)
	}
	u := c.baseURL + endpoint
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (c *CoinGeckoClient) httpGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

func (c *CoinGeckoClient) getCached(key string) (any, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.ts) > c.cacheTTL {
		return nil, false
	}
	return entry.value, true
}

func (c *CoinGeckoClient) setCached(key string, value any) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{value: value, ts: time.Now()}
}

func (c *CoinGeckoClient) serviceAvailable(service string) bool {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	state, ok := c.serviceState[service]
	if !ok {
		return true
	}
	return time.Now().After(state.cooldownUntil)
}

func (c *CoinGeckoClient) recordServiceFailure(service string) {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	state := c.serviceState[service]
	now := time.Now()
	if state == nil {
		state = &serviceState{firstFailAt: now}
		c.serviceState[service] = state
	}
	if now.Sub(state.firstFailAt) > c.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= c.failThreshold {
		state.cooldownUntil = now.Add(c.cooldown)
		c.logger.Warn("coingecko circuit open", "service", service, "failures", state.failCount, "until", state.cooldownUntil)
	}
}

func (c *CoinGeckoClient) recordServiceSuccess(service string) {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	delete(c.serviceState, service)
}

func parseSearch(body []byte) (string, error) {
	var payload struct {
		Coins []struct {
			ID string `json:"id"`
		} `json:"coins"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload.Coins) == 0 {
		return "", nil
	}
	return payload.Coins[0].ID, nil
}

// parseCoin picks the fields the chat needs out of the large /coins/{id} document.
func parseCoin(body []byte) (CoinData, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return CoinData{}, err
	}
	id, err := pathString(doc, "$.id")
	if err != nil {
		return CoinData{}, err
	}
	symbol, err := pathString(doc, "$.symbol")
	if err != nil {
		return CoinData{}, err
	}
	name, err := pathString(doc, "$.name")
	if err != nil {
		return CoinData{}, err
	}
	price, err := pathFloat(doc, "$.market_data.current_price.usd")
	if err != nil {
		return CoinData{}, err
	}
	coin := CoinData{
		ID:           id,
		Symbol:       strings.ToUpper(symbol),
		Name:         name,
		CurrentPrice: price,
	}
	// Optional fields are frequently null for small coins.
	coin.MarketCap, _ = pathFloat(doc, "$.market_data.market_cap.usd")
	coin.PriceChange24h, _ = pathFloat(doc, "$.market_data.price_change_percentage_24h")
	coin.TotalVolume, _ = pathFloat(doc, "$.market_data.total_volume.usd")
	if rank, err := pathFloat(doc, "$.market_cap_rank"); err == nil {
		coin.MarketCapRank = int(rank)
	}
	if desc, err := pathString(doc, "$.description.en"); err == nil {
		coin.Description = firstSentence(desc)
	}
	return coin, nil
}

func parseMarketChart(body []byte) ([]PricePoint, error) {
	var payload struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Prices == nil {
		return nil, fmt.Errorf("missing prices")
	}
	points := make([]PricePoint, 0, len(payload.Prices))
	for _, pair := range payload.Prices {
		if len(pair) < 2 {
			return nil, fmt.Errorf("malformed price pair %v", pair)
		}
		points = append(points, PricePoint{Timestamp: int64(pair[0]), Price: pair[1]})
	}
	return points, nil
}

func parseTrending(body []byte) ([]TrendingCoin, error) {
	var payload struct {
		Coins []struct {
			Item TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Coins == nil {
		return nil, fmt.Errorf("missing coins")
	}
	out := make([]TrendingCoin, 0, trendingLimit)
	for _, c := range payload.Coins {
		if len(out) == trendingLimit {
			break
		}
		out = append(out, c.Item)
	}
	return out, nil
}

type simpleQuote struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

func parseSimplePrice(body []byte) (map[string]simpleQuote, error) {
	var payload map[string]simpleQuote
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func pathValue(doc any, path string) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	// jsonpath may wrap a single answer in a list.
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	return v, nil
}

func pathString(doc any, path string) (string, error) {
	v, err := pathValue(doc, path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: not a string: %v", path, v)
	}
	return s, nil
}

func pathFloat(doc any, path string) (float64, error) {
	v, err := pathValue(doc, path)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s: not a number: %v", path, v)
	}
	return f, nil
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if i := strings.Index(text, "."); i >= 0 {
		text = text[:i]
	}
	return text + "."
}
