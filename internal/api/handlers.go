package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

const (
	defaultHistoryDays = 7
	maxHistoryDays     = 365
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *handler) welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Welcome())
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, r, cryptochat.WrapError(cryptochat.ErrCodeParse, "invalid request body", err))
		return
	}
	resp, err := h.core.Process(r.Context(), payload.Text)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	annotate(w, "intent", resp.Intent)
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.core.Portfolio(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) putHolding(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	var payload holdingPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, r, cryptochat.WrapError(cryptochat.ErrCodeParse, "invalid request body", err))
		return
	}
	if err := h.core.AddHolding(r.Context(), symbol, payload.Amount, payload.Name, payload.CoinID); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	p, err := h.core.Portfolio(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.core.RemoveHolding(r.Context(), chi.URLParam(r, "symbol")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}

func (h *handler) clearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.core.ClearPortfolio(r.Context()); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "cleared"})
}

func (h *handler) getPortfolioValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.core.PortfolioValue(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *handler) getPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	var (
		history []cryptochat.PortfolioSnapshot
		err     error
	)
	switch strings.ToLower(r.URL.Query().Get("range")) {
	case "", "7d":
		history, err = h.core.History7Days(r.Context())
	case "all":
		history, err = h.core.History(r.Context())
	default:
		writeErrorResponse(w, r, cryptochat.NewError(cryptochat.ErrCodeInvalidInput, "range must be 7d or all"))
		return
	}
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	if history == nil {
		history = []cryptochat.PortfolioSnapshot{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *handler) getPrice(w http.ResponseWriter, r *http.Request) {
	coin, err := h.core.CurrentPrice(r.Context(), chi.URLParam(r, "coin"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coin)
}

func (h *handler) getPriceHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(r.URL.Query().Get("days"))
	if !ok {
		writeErrorResponse(w, r, cryptochat.NewError(cryptochat.ErrCodeInvalidInput, "days must be between 1 and 365"))
		return
	}
	chart, err := h.core.PriceHistory(r.Context(), chi.URLParam(r, "coin"), days)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *handler) getTrending(w http.ResponseWriter, r *http.Request) {
	coins, err := h.core.Trending(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coins)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseDays(value string) (int, bool) {
	if value == "" {
		return defaultHistoryDays, true
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 1 || days > maxHistoryDays {
		return 0, false
	}
	return days, true
}
