package cryptochat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const chartDays = 7

// Process answers one user message. Only one message is handled at a time;
// a call made while another is in flight fails with ErrBusy. Provider
// failures become error replies, not Go errors.
func (c *Core) Process(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, NewError(ErrCodeInvalidInput, "message text is required")
	}
	select {
	case c.busy <- struct{}{}:
	default:
		return Response{}, ErrBusy
	}
	defer func() { <-c.busy }()

	intent := c.resolver.Resolve(text)
	c.logger.Debug("message resolved", "intent", intent.Kind)
	resp, err := c.handle(ctx, intent)
	if err != nil {
		c.logger.Error("message handling failed", "intent", intent.Kind, "err", err)
		resp = Response{Kind: KindError, Text: textGenericError}
	}
	resp.ID = uuid.NewString()
	resp.Intent = intent.Kind
	resp.Timestamp = c.now()
	if resp.Speech != "" {
		if speech := c.Speech(); speech.Supported() {
			speech.Speak(resp.Speech)
		}
	}
	return resp, nil
}

// Welcome returns the session's opening message.
func (c *Core) Welcome() Response {
	return Response{
		ID:        uuid.NewString(),
		Kind:      KindText,
		Intent:    IntentGreeting,
		Text:      WelcomeText,
		Timestamp: c.now(),
	}
}

func (c *Core) handle(ctx context.Context, intent Intent) (Response, error) {
	switch intent.Kind {
	case IntentGreeting:
		return Response{
			Kind:   KindText,
			Text:   c.replies.pick(greetingReplies),
			Speech: "Hello! What crypto information can I help you with today?",
		}, nil
	case IntentThanks:
		return Response{
			Kind:   KindText,
			Text:   c.replies.pick(thanksReplies),
			Speech: "You're welcome! Anything else you'd like to know?",
		}, nil
	case IntentPortfolioValue:
		return c.replyPortfolioValue(ctx)
	case IntentPortfolioHistory:
		return c.replyPortfolioHistory(ctx)
	case IntentPriceChart:
		return c.replyChart(ctx, intent)
	case IntentPriceQuery:
		return c.replyPrice(ctx, intent)
	case IntentTrending:
		return c.replyTrending(ctx)
	case IntentAddHolding:
		return c.replyAddHolding(ctx, intent)
	case IntentAddHoldingUsage:
		return Response{Kind: KindText, Text: textAddUsage}, nil
	case IntentShowPortfolio:
		p, err := c.store.Portfolio(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{
			Kind:   KindPortfolio,
			Text:   textShowPortfolio,
			Speech: "Here's your current portfolio",
			Data:   p,
		}, nil
	case IntentClearPortfolio:
		if err := c.store.Clear(ctx); err != nil {
			return Response{}, err
		}
		return Response{
			Kind:   KindText,
			Text:   textCleared,
			Speech: "Your portfolio has been cleared",
		}, nil
	case IntentHelp:
		return Response{
			Kind:   KindText,
			Text:   helpText,
			Speech: "I can help you check prices, see trends, manage your portfolio, and show price charts",
		}, nil
	default:
		return Response{Kind: KindText, Text: c.replies.pick(unknownReplies)}, nil
	}
}

func (c *Core) replyPortfolioValue(ctx context.Context) (Response, error) {
	value, err := c.PortfolioValue(ctx)
	if err != nil {
		return Response{}, err
	}
	if len(value.Holdings) == 0 {
		return Response{Kind: KindText, Text: textEmptyPortfolio}, nil
	}
	total := value.Summary.TotalValue
	return Response{
		Kind:   KindPortfolioValue,
		Text:   fmt.Sprintf("Your portfolio is currently worth %s:", FormatUSD(total)),
		Speech: fmt.Sprintf("Your portfolio is currently worth %s dollars", total.Round(0).String()),
		Data:   value,
	}, nil
}

func (c *Core) replyPortfolioHistory(ctx context.Context) (Response, error) {
	history, err := c.valuation.History7Days(ctx)
	if err != nil {
		return Response{}, err
	}
	if len(history) == 0 {
		return Response{Kind: KindText, Text: textNoHistory}, nil
	}
	return Response{
		Kind:   KindPortfolioHistory,
		Text:   textHistory,
		Speech: "Here's your portfolio performance over the last 7 days",
		Data:   history,
	}, nil
}

func (c *Core) replyChart(ctx context.Context, intent Intent) (Response, error) {
	chart, err := c.PriceChart(ctx, intent.CoinID, intent.CoinName, chartDays)
	if err != nil {
		c.logger.Warn("price history unavailable", "coinId", intent.CoinID, "err", err)
		return Response{Kind: KindError, Text: textChartUnavailable}, nil
	}
	return Response{
		Kind:   KindChart,
		Text:   fmt.Sprintf("%s 7-day price chart:", intent.CoinName),
		Speech: fmt.Sprintf("Here's the %s 7-day price chart", intent.CoinName),
		Data:   chart,
	}, nil
}

func (c *Core) replyPrice(ctx context.Context, intent Intent) (Response, error) {
	coinID := intent.CoinID
	for _, term := range intent.SearchTerms {
		if coinID != "" {
			break
		}
		id, err := c.provider.SearchCoin(ctx, term)
		if err != nil {
			c.logger.Warn("coin search failed", "query", term, "err", err)
			continue
		}
		coinID = id
	}
	if coinID == "" {
		return Response{Kind: KindError, Text: textCoinNotFound}, nil
	}
	coin, err := c.provider.CurrentPrice(ctx, coinID)
	if err != nil {
		c.logger.Warn("price unavailable", "coinId", coinID, "err", err)
		return Response{Kind: KindError, Text: textPriceUnavailable}, nil
	}
	return Response{
		Kind:   KindPrice,
		Text:   fmt.Sprintf("Here's the current price for %s:", coin.Name),
		Speech: fmt.Sprintf("%s is currently trading at %.2f dollars", coin.Name, coin.CurrentPrice),
		Data:   coin,
	}, nil
}

func (c *Core) replyTrending(ctx context.Context) (Response, error) {
	coins, err := c.provider.Trending(ctx)
	if err != nil {
		c.logger.Warn("trending unavailable", "err", err)
		return Response{Kind: KindError, Text: textTrendUnavailable}, nil
	}
	return Response{
		Kind:   KindTrending,
		Text:   textTrending,
		Speech: "Here are today's trending cryptocurrencies",
		Data:   coins,
	}, nil
}

func (c *Core) replyAddHolding(ctx context.Context, intent Intent) (Response, error) {
	notFound := Response{
		Kind: KindError,
		Text: fmt.Sprintf("I couldn't find information for %s. Please check the symbol and try again.", intent.Symbol),
	}
	coinID, err := c.provider.SearchCoin(ctx, intent.Symbol)
	if err != nil {
		c.logger.Warn("coin search failed", "symbol", intent.Symbol, "err", err)
		return notFound, nil
	}
	if coinID == "" {
		return notFound, nil
	}
	coin, err := c.provider.CurrentPrice(ctx, coinID)
	if err != nil {
		c.logger.Warn("coin lookup failed", "symbol", intent.Symbol, "coinId", coinID, "err", err)
		return notFound, nil
	}
	if err := c.store.AddHolding(ctx, intent.Symbol, intent.Amount, coin.Name, coinID); err != nil {
		if IsErrorCode(err, ErrCodeInvalidInput) {
			return Response{Kind: KindText, Text: textAddUsage}, nil
		}
		return Response{}, err
	}
	amount := strconv.FormatFloat(intent.Amount, 'f', -1, 64)
	return Response{
		Kind:   KindText,
		Text:   fmt.Sprintf("Added %s %s to your portfolio!", amount, intent.Symbol),
		Speech: fmt.Sprintf("Added %s %s to your portfolio", amount, intent.Symbol),
	}, nil
}
