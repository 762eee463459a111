package cryptochat

import (
	"regexp"
	"strconv"
	"strings"
)

// IntentKind is the classified purpose of a user message.
type IntentKind string

const (
	IntentGreeting         IntentKind = "greeting"
	IntentThanks           IntentKind = "thanks"
	IntentPortfolioValue   IntentKind = "portfolio_value"
	IntentPortfolioHistory IntentKind = "portfolio_history"
	IntentPriceChart       IntentKind = "price_chart"
	IntentPriceQuery       IntentKind = "price_query"
	IntentTrending         IntentKind = "trending"
	IntentAddHolding       IntentKind = "add_holding"
	IntentAddHoldingUsage  IntentKind = "add_holding_usage"
	IntentShowPortfolio    IntentKind = "show_portfolio"
	IntentClearPortfolio   IntentKind = "clear_portfolio"
	IntentHelp             IntentKind = "help"
	IntentUnknown          IntentKind = "unknown"
)

// Intent is the result of classifying one message.
type Intent struct {
	Kind IntentKind `json:"kind"`

	// CoinID and CoinName are set for chart and price intents when the text
	// names a coin from the built-in tables.
	CoinID   string `json:"coin_id,omitempty"`
	CoinName string `json:"coin_name,omitempty"`
	// SearchTerms holds candidate provider queries for a price intent that
	// matched no table entry, in input order.
	SearchTerms []string `json:"search_terms,omitempty"`

	Amount float64 `json:"amount,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
}

type coinAlias struct {
	alias string
	id    string
	name  string
}

// Chart lookups accept tickers and names; table order is the tie-break.
var chartCoins = []coinAlias{
	{"btc", "bitcoin", "Bitcoin"},
	{"bitcoin", "bitcoin", "Bitcoin"},
	{"eth", "ethereum", "Ethereum"},
	{"ethereum", "ethereum", "Ethereum"},
	{"ada", "cardano", "Cardano"},
	{"cardano", "cardano", "Cardano"},
	{"dot", "polkadot", "Polkadot"},
	{"polkadot", "polkadot", "Polkadot"},
	{"sol", "solana", "Solana"},
	{"solana", "solana", "Solana"},
}

var defaultChartCoin = chartCoins[0]

var priceCoins = []coinAlias{
	{"btc", "bitcoin", ""},
	{"eth", "ethereum", ""},
	{"ada", "cardano", ""},
	{"dot", "polkadot", ""},
	{"sol", "solana", ""},
	{"matic", "polygon", ""},
	{"avax", "avalanche-2", ""},
	{"atom", "cosmos", ""},
	{"link", "chainlink", ""},
	{"uni", "uniswap", ""},
}

var (
	reAmountSymbol = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+)`)
)

var (
	greetingWords   = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}
	thanksWords     = []string{"thank", "thanks"}
	valuePhrases    = []string{"portfolio value", "portfolio worth", "how much is my portfolio", "portfolio total"}
	historyPhrases  = []string{"portfolio history", "portfolio chart", "portfolio 7 day", "portfolio performance", "last 7 days portfolio", "portfolio trend"}
	chartWords      = []string{"chart", "graph", "history", "7-day", "7 day", "seven day", "last 7 days", "past 7 days", "week"}
	priceWords      = []string{"price", "trading at", "worth", "cost"}
	trendingWords   = []string{"trending", "hot", "popular"}
	addHoldingWords = []string{"i have", "i own", "holding"}
	clearPhrases    = []string{"clear portfolio", "reset portfolio", "clear my portfolio", "reset my portfolio"}
	portfolioWords  = []string{"portfolio", "my coins", "my holdings"}
	helpPhrases     = []string{"help", "what can you do"}
)

// Shorter tokens ("is", "of") are never sent to the provider's search.
const minSearchTermLen = 3

type intentRule struct {
	kind  IntentKind
	match func(lower string) bool
	build func(raw, lower string) Intent
}

// IntentResolver classifies free text with an ordered rule list.
// The first matching rule wins.
type IntentResolver struct {
	rules []intentRule
}

// NewIntentResolver returns a resolver with the built-in rule order.
func NewIntentResolver() *IntentResolver {
	simple := func(kind IntentKind) func(string, string) Intent {
		return func(string, string) Intent { return Intent{Kind: kind} }
	}
	return &IntentResolver{rules: []intentRule{
		// Substring match: "which" or "history" greet.
		{IntentGreeting, containsAny(greetingWords), simple(IntentGreeting)},
		{IntentThanks, containsAny(thanksWords), simple(IntentThanks)},
		{IntentPortfolioValue, containsAny(valuePhrases), simple(IntentPortfolioValue)},
		{IntentPortfolioHistory, containsAny(historyPhrases), simple(IntentPortfolioHistory)},
		{IntentPriceChart, containsAny(chartWords), buildChartIntent},
		{IntentPriceQuery, containsAny(priceWords), buildPriceIntent},
		{IntentTrending, containsAny(trendingWords), simple(IntentTrending)},
		{IntentAddHolding, containsAny(addHoldingWords), buildAddHoldingIntent},
		// Clear must precede show: both phrases contain "portfolio".
		{IntentClearPortfolio, containsAny(clearPhrases), simple(IntentClearPortfolio)},
		{IntentShowPortfolio, containsAny(portfolioWords), simple(IntentShowPortfolio)},
		{IntentHelp, containsAny(helpPhrases), simple(IntentHelp)},
	}}
}

// Resolve classifies text. It never fails; unmatched text is IntentUnknown.
func (r *IntentResolver) Resolve(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.match(lower) {
			return rule.build(text, lower)
		}
	}
	return Intent{Kind: IntentUnknown}
}

func containsAny(keywords []string) func(string) bool {
	return func(lower string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

func lookupCoin(lower string, table []coinAlias) (coinAlias, bool) {
	for _, c := range table {
		if strings.Contains(lower, c.alias) {
			return c, true
		}
	}
	return coinAlias{}, false
}

func buildChartIntent(_, lower string) Intent {
	coin, ok := lookupCoin(lower, chartCoins)
	if !ok {
		coin = defaultChartCoin
	}
	return Intent{Kind: IntentPriceChart, CoinID: coin.id, CoinName: coin.name}
}

func buildPriceIntent(raw, lower string) Intent {
	if coin, ok := lookupCoin(lower, priceCoins); ok {
		return Intent{Kind: IntentPriceQuery, CoinID: coin.id}
	}
	var terms []string
	for _, word := range strings.Fields(raw) {
		if len(word) >= minSearchTermLen {
			terms = append(terms, word)
		}
	}
	return Intent{Kind: IntentPriceQuery, SearchTerms: terms}
}

func buildAddHoldingIntent(raw, _ string) Intent {
	amount, symbol, ok := parseAmountSymbol(raw)
	if !ok {
		return Intent{Kind: IntentAddHoldingUsage}
	}
	return Intent{Kind: IntentAddHolding, Amount: amount, Symbol: symbol}
}

// parseAmountSymbol extracts the first "<number> <letters>" pair, e.g. "2.5 eth".
func parseAmountSymbol(text string) (float64, string, bool) {
	m := reAmountSymbol.FindStringSubmatch(text)
	if len(m) < 3 {
		return 0, "", false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return amount, strings.ToUpper(m[2]), true
}
