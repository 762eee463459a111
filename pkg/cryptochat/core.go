package cryptochat

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Options controls Core initialization.
type Options struct {
	DBPath   string
	Store    KeyValueStore // Optional: replaces the SQLite store at DBPath
	Provider PriceProvider // Optional: defaults to CoinGecko
	Speech   SpeechIO      // Optional: defaults to NoSpeech
	Logger   *slog.Logger
	Rand     *rand.Rand // Optional: source for canned replies
	Now      Clock      // Optional: snapshot clock

	CoinGeckoURL       string
	CoinGeckoAPIKey    string
	PriceCacheTTL      time.Duration
	PriceFailThreshold int
	PriceFailWindow    time.Duration
	PriceCooldown      time.Duration
	HTTPTimeout        time.Duration
	HTTPClient         HTTPDoer
}

// Core is the chat assistant: it owns the portfolio store, the price
// provider and the conversation state.
type Core struct {
	logger    *slog.Logger
	sqlite    *SQLiteStore
	store     *PortfolioStore
	provider  PriceProvider
	valuation *ValuationEngine
	resolver  *IntentResolver
	replies   *replyPicker
	now       Clock
	busy      chan struct{}

	speechMu sync.RWMutex
	speech   SpeechIO
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sqlite *SQLiteStore
	kv := opts.Store
	if kv == nil {
		if opts.DBPath == "" {
			return nil, errors.New("db path is required")
		}
		s, err := OpenSQLiteStore(opts.DBPath, logger)
		if err != nil {
			return nil, err
		}
		sqlite = s
		kv = s
	}

	provider := opts.Provider
	if provider == nil {
		provider = NewCoinGeckoClient(CoinGeckoOptions{
			BaseURL:       opts.CoinGeckoURL,
			APIKey:        opts.CoinGeckoAPIKey,
			Logger:        logger,
			CacheTTL:      opts.PriceCacheTTL,
			FailThreshold: opts.PriceFailThreshold,
			FailWindow:    opts.PriceFailWindow,
			Cooldown:      opts.PriceCooldown,
			HTTPTimeout:   opts.HTTPTimeout,
			HTTPClient:    opts.HTTPClient,
		})
	}
	speech := opts.Speech
	if speech == nil {
		speech = NoSpeech{}
	}
	now := opts.Now
	if now == nil {
		now = systemClock
	}

	store := NewPortfolioStore(kv, logger)
	return &Core{
		logger:    logger,
		sqlite:    sqlite,
		store:     store,
		provider:  provider,
		valuation: NewValuationEngine(store, provider, now, logger),
		resolver:  NewIntentResolver(),
		replies:   newReplyPicker(opts.Rand),
		speech:    speech,
		now:       now,
		busy:      make(chan struct{}, 1),
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.sqlite == nil {
		return nil
	}
	return c.sqlite.Close()
}

// DBPath returns the underlying database path, "" for injected stores.
func (c *Core) DBPath() string {
	if c.sqlite == nil {
		return ""
	}
	return c.sqlite.Path()
}

// Logger returns the logger shared by the core's components.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// Speech returns the configured voice channel.
func (c *Core) Speech() SpeechIO {
	c.speechMu.RLock()
	defer c.speechMu.RUnlock()
	return c.speech
}

// SetSpeech swaps the voice channel; nil disables speech.
func (c *Core) SetSpeech(s SpeechIO) {
	if s == nil {
		s = NoSpeech{}
	}
	c.speechMu.Lock()
	defer c.speechMu.Unlock()
	c.speech = s
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
