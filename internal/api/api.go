package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// Options configures the router.
type Options struct {
	Logger      *slog.Logger // Optional: defaults to the core's logger
	CORSOrigins []string     // Optional: defaults to "*"
}

// NewRouter builds the HTTP API router.
func NewRouter(core *cryptochat.Core) http.Handler {
	return NewRouterWithOptions(core, Options{})
}

// NewRouterWithOptions builds the HTTP API router using opts.
func NewRouterWithOptions(core *cryptochat.Core, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = core.Logger()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLogMiddleware(logger))
	r.Use(panicRecoveryMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger, origins: origins}

	r.Get("/api/health", h.health)

	// Chat
	r.Get("/api/chat/welcome", h.welcome)
	r.Post("/api/chat", h.chat)
	r.Get("/api/chat/ws", h.chatSocket)

	// Portfolio
	r.Get("/api/portfolio", h.getPortfolio)
	r.Delete("/api/portfolio", h.clearPortfolio)
	r.Get("/api/portfolio/value", h.getPortfolioValue)
	r.Get("/api/portfolio/history", h.getPortfolioHistory)
	r.Put("/api/portfolio/{symbol}", h.putHolding)
	r.Delete("/api/portfolio/{symbol}", h.deleteHolding)

	// Prices
	r.Get("/api/prices/{coin}", h.getPrice)
	r.Get("/api/prices/{coin}/history", h.getPriceHistory)
	r.Get("/api/trending", h.getTrending)

	return r
}

type handler struct {
	core    *cryptochat.Core
	logger  *slog.Logger
	origins []string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	annotate(w, "error_message", message)
	writeJSON(w, status, map[string]string{"error": message})
}
