package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// stubProvider serves canned market data. When release is set, CurrentPrice
// signals entered and waits for release to close.
type stubProvider struct {
	mu       sync.Mutex
	search   map[string]string
	coins    map[string]cryptochat.CoinData
	priceErr error
	entered  chan struct{}
	release  chan struct{}
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		search: map[string]string{"BTC": "bitcoin", "ETH": "ethereum", "dogecoin": "dogecoin"},
		coins: map[string]cryptochat.CoinData{
			"bitcoin":  {ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", CurrentPrice: 50000, PriceChange24h: 2},
			"ethereum": {ID: "ethereum", Symbol: "ETH", Name: "Ethereum", CurrentPrice: 3000},
			"dogecoin": {ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", CurrentPrice: 0.25},
		},
	}
}

func (p *stubProvider) SearchCoin(_ context.Context, query string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search[query], nil
}

func (p *stubProvider) CurrentPrice(ctx context.Context, coinID string) (cryptochat.CoinData, error) {
	if p.release != nil {
		p.entered <- struct{}{}
		select {
		case <-p.release:
		case <-ctx.Done():
			return cryptochat.CoinData{}, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.priceErr != nil {
		return cryptochat.CoinData{}, p.priceErr
	}
	coin, ok := p.coins[coinID]
	if !ok {
		return cryptochat.CoinData{}, cryptochat.NewError(cryptochat.ErrCodeTransport, "unexpected status 404")
	}
	return coin, nil
}

func (p *stubProvider) PriceHistory(_ context.Context, coinID string, days int) ([]cryptochat.PricePoint, error) {
	points := make([]cryptochat.PricePoint, 0, days)
	for i := 0; i < days; i++ {
		points = append(points, cryptochat.PricePoint{Timestamp: int64(i) * 86400000, Price: float64(100 + i)})
	}
	return points, nil
}

func (p *stubProvider) Trending(context.Context) ([]cryptochat.TrendingCoin, error) {
	price := 0.25
	return []cryptochat.TrendingCoin{{ID: "dogecoin", Name: "Dogecoin", Symbol: "DOGE", CurrentPrice: &price}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter creates a test router backed by a temporary database.
func setupTestRouter(t *testing.T, provider *stubProvider, logger *slog.Logger) http.Handler {
	t.Helper()
	if logger == nil {
		logger = discardLogger()
	}
	core, err := cryptochat.OpenWithOptions(cryptochat.Options{
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to open core: %v", err)
	}
	t.Cleanup(func() { _ = core.Close() })
	return NewRouter(core)
}

// doRequest performs a request and returns the response.
func doRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reqBody = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func parseJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return result
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)
	rr := doRequest(router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if result := parseJSON(t, rr); result["status"] != "ok" {
		t.Fatalf("expected status 'ok', got %v", result["status"])
	}
}

func TestWelcomeEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)
	rr := doRequest(router, http.MethodGet, "/api/chat/welcome", nil)
	result := parseJSON(t, rr)
	if result["text"] != cryptochat.WelcomeText {
		t.Fatalf("unexpected welcome: %v", result["text"])
	}
}

func TestChatEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)

	rr := doRequest(router, http.MethodPost, "/api/chat", chatPayload{Text: "what's BTC trading at?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	result := parseJSON(t, rr)
	if result["type"] != "price" || result["intent"] != string(cryptochat.IntentPriceQuery) {
		t.Fatalf("unexpected reply: %v", result)
	}
	data, ok := result["data"].(map[string]any)
	if !ok || data["name"] != "Bitcoin" {
		t.Fatalf("unexpected data: %v", result["data"])
	}
	if result["id"] == "" {
		t.Fatalf("expected reply id")
	}
}

func TestChatEndpointErrors(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  cryptochat.ErrorCode
	}{
		{"empty text", chatPayload{Text: "   "}, http.StatusBadRequest, cryptochat.ErrCodeInvalidInput},
		{"malformed body", "{not json", http.StatusBadRequest, cryptochat.ErrCodeParse},
		{"unknown field", `{"message":"hi"}`, http.StatusBadRequest, cryptochat.ErrCodeParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(router, http.MethodPost, "/api/chat", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.ErrorCode != string(tt.wantErr) {
				t.Fatalf("expected error code %s, got %s", tt.wantErr, resp.ErrorCode)
			}
			if resp.RequestID == "" {
				t.Fatalf("expected request id in error response")
			}
		})
	}
}

func TestChatEndpointBusy(t *testing.T) {
	provider := newStubProvider()
	provider.entered = make(chan struct{})
	provider.release = make(chan struct{})
	router := setupTestRouter(t, provider, nil)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- doRequest(router, http.MethodPost, "/api/chat", chatPayload{Text: "what's BTC trading at?"})
	}()
	<-provider.entered

	rr := doRequest(router, http.MethodPost, "/api/chat", chatPayload{Text: "hello"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", rr.Code)
	}
	close(provider.release)

	if got := <-first; got.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", got.Code)
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)

	rr := doRequest(router, http.MethodPut, "/api/portfolio/eth", holdingPayload{Amount: 2, Name: "Ethereum", CoinID: "ethereum"})
	if rr.Code != http.StatusOK {
		t.Fatalf("put eth: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = doRequest(router, http.MethodPut, "/api/portfolio/btc", holdingPayload{Amount: 0.5})
	if rr.Code != http.StatusOK {
		t.Fatalf("put btc: expected 200, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodGet, "/api/portfolio", nil)
	body := rr.Body.String()
	if strings.Index(body, `"ETH"`) > strings.Index(body, `"BTC"`) {
		t.Fatalf("expected insertion order ETH then BTC, got %s", body)
	}
	if !strings.Contains(body, `"name":"BTC"`) {
		t.Fatalf("expected symbol as fallback name, got %s", body)
	}

	rr = doRequest(router, http.MethodGet, "/api/portfolio/value", nil)
	var value cryptochat.PortfolioValue
	if err := json.NewDecoder(rr.Body).Decode(&value); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if len(value.Holdings) != 2 || value.Summary.TotalValue.Float() != 31000 {
		t.Fatalf("unexpected value: %+v", value)
	}

	rr = doRequest(router, http.MethodGet, "/api/portfolio/history?range=7d", nil)
	var history []cryptochat.PortfolioSnapshot
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].TotalValue.Float() != 31000 {
		t.Fatalf("expected one snapshot, got %+v", history)
	}

	rr = doRequest(router, http.MethodDelete, "/api/portfolio/BTC", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodGet, "/api/portfolio", nil)
	if strings.Contains(rr.Body.String(), "BTC") {
		t.Fatalf("expected BTC removed, got %s", rr.Body.String())
	}

	rr = doRequest(router, http.MethodDelete, "/api/portfolio", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodGet, "/api/portfolio", nil)
	if strings.TrimSpace(rr.Body.String()) != "{}" {
		t.Fatalf("expected empty portfolio, got %s", rr.Body.String())
	}
	rr = doRequest(router, http.MethodGet, "/api/portfolio/history?range=all", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected cleared history, got %s", rr.Body.String())
	}
}

func TestPortfolioEndpointValidation(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)

	rr := doRequest(router, http.MethodPut, "/api/portfolio/btc", holdingPayload{Amount: -1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodPut, "/api/portfolio/btc", "[]")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", rr.Code)
	}
	rr = doRequest(router, http.MethodGet, "/api/portfolio/history?range=1y", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad range, got %d", rr.Code)
	}
}

func TestPriceEndpoints(t *testing.T) {
	provider := newStubProvider()
	router := setupTestRouter(t, provider, nil)

	rr := doRequest(router, http.MethodGet, "/api/prices/btc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if result := parseJSON(t, rr); result["id"] != "bitcoin" {
		t.Fatalf("unexpected coin: %v", result)
	}

	rr = doRequest(router, http.MethodGet, "/api/prices/dogecoin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("search fallback: expected 200, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodGet, "/api/prices/nosuchcoin", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodGet, "/api/prices/eth/history?days=3", nil)
	var chart cryptochat.PriceChart
	if err := json.NewDecoder(rr.Body).Decode(&chart); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if chart.CoinID != "ethereum" || chart.Days != 3 || len(chart.Points) != 3 || chart.Stats.High != 102 {
		t.Fatalf("unexpected chart: %+v", chart)
	}

	for _, days := range []string{"0", "366", "abc"} {
		rr = doRequest(router, http.MethodGet, "/api/prices/eth/history?days="+days, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("days=%s: expected 400, got %d", days, rr.Code)
		}
	}

	provider.mu.Lock()
	provider.priceErr = cryptochat.WrapError(cryptochat.ErrCodeTransport, "request failed", errors.New("dial tcp: refused"))
	provider.mu.Unlock()
	rr = doRequest(router, http.MethodGet, "/api/prices/btc", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestTrendingEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubProvider(), nil)
	rr := doRequest(router, http.MethodGet, "/api/trending", nil)
	var coins []cryptochat.TrendingCoin
	if err := json.NewDecoder(rr.Body).Decode(&coins); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(coins) != 1 || coins[0].CurrentPrice == nil || *coins[0].CurrentPrice != 0.25 {
		t.Fatalf("unexpected trending: %+v", coins)
	}
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[cryptochat.ErrorCode]int{
		cryptochat.ErrCodeInvalidInput: http.StatusBadRequest,
		cryptochat.ErrCodeParse:        http.StatusBadRequest,
		cryptochat.ErrCodeNotFound:     http.StatusNotFound,
		cryptochat.ErrCodeBusy:         http.StatusConflict,
		cryptochat.ErrCodeTransport:    http.StatusBadGateway,
		cryptochat.ErrCodeUnsupported:  http.StatusNotImplemented,
		cryptochat.ErrCodeStorage:      http.StatusInternalServerError,
		cryptochat.ErrCodeInternal:     http.StatusInternalServerError,
		"SOMETHING_ELSE":               http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := mapErrorCodeToHTTPStatus(code); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestWriteErrorResponsePlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	writeErrorResponse(rr, req, errors.New("boom"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "boom" || resp.ErrorCode != "" || resp.Code != 500 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
