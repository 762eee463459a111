package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

const (
	textNoSpeech      = "_I didn't catch that. Please try again._"
	textVoiceOn       = "_Voice mode on: lines are read as speech._"
	textVoiceOff      = "_Voice mode off._"
	textEmptySnapshot = "Your portfolio is empty, recorded $0.00 for today."
	textNoHistory     = "No portfolio history yet."
)

// responseMarkdown renders a reply with its payload as tables.
func responseMarkdown(resp cryptochat.Response) string {
	var b strings.Builder
	if resp.Kind == cryptochat.KindError {
		b.WriteString("⚠️ ")
	}
	b.WriteString(resp.Text)
	body := ""
	switch data := resp.Data.(type) {
	case cryptochat.CoinData:
		body = coinMarkdown(data)
	case []cryptochat.TrendingCoin:
		body = trendingMarkdown(data)
	case *cryptochat.Portfolio:
		body = portfolioMarkdown(data)
	case cryptochat.PortfolioValue:
		body = portfolioValueMarkdown(data)
	case []cryptochat.PortfolioSnapshot:
		body = historyMarkdown(data)
	case cryptochat.PriceChart:
		body = chartMarkdown(data)
	}
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	return b.String()
}

func coinMarkdown(c cryptochat.CoinData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "| %s (%s) | |\n|---|---:|\n", c.Name, strings.ToUpper(c.Symbol))
	fmt.Fprintf(&b, "| Price | %s |\n", usd(c.CurrentPrice))
	fmt.Fprintf(&b, "| 24h change | %s |\n", percent(c.PriceChange24h))
	fmt.Fprintf(&b, "| Market cap | %s |\n", usd(c.MarketCap))
	fmt.Fprintf(&b, "| Volume | %s |\n", usd(c.TotalVolume))
	if c.MarketCapRank > 0 {
		fmt.Fprintf(&b, "| Rank | #%d |\n", c.MarketCapRank)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Description)
	}
	return b.String()
}

func trendingMarkdown(coins []cryptochat.TrendingCoin) string {
	var b strings.Builder
	b.WriteString("| # | Coin | Price | 24h |\n|---:|---|---:|---:|\n")
	for i, c := range coins {
		price, change := "n/a", "n/a"
		if c.CurrentPrice != nil {
			price = usd(*c.CurrentPrice)
		}
		if c.PriceChange24h != nil {
			change = percent(*c.PriceChange24h)
		}
		fmt.Fprintf(&b, "| %d | %s (%s) | %s | %s |\n", i+1, c.Name, strings.ToUpper(c.Symbol), price, change)
	}
	return b.String()
}

func portfolioMarkdown(p *cryptochat.Portfolio) string {
	if p.Len() == 0 {
		return "_No holdings yet._"
	}
	var b strings.Builder
	b.WriteString("| Symbol | Name | Amount |\n|---|---|---:|\n")
	for _, h := range p.Holdings() {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", h.Symbol, h.Name, strconv.FormatFloat(h.Amount, 'f', -1, 64))
	}
	return b.String()
}

func portfolioValueMarkdown(v cryptochat.PortfolioValue) string {
	var b strings.Builder
	b.WriteString("| Symbol | Amount | Price | Value | 24h |\n|---|---:|---:|---:|---:|\n")
	for _, h := range v.Holdings {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			h.Symbol,
			strconv.FormatFloat(h.Amount, 'f', -1, 64),
			cryptochat.FormatUSD(h.CurrentPrice),
			cryptochat.FormatUSD(h.TotalValue),
			percent(h.PriceChange24h))
	}
	fmt.Fprintf(&b, "\n**Total:** %s (%s, %s over 24h)\n",
		cryptochat.FormatUSD(v.Summary.TotalValue),
		signedUSD(v.Summary.TotalChange24h),
		percent(v.Summary.TotalChangePercent))
	return b.String()
}

func historyMarkdown(history []cryptochat.PortfolioSnapshot) string {
	var b strings.Builder
	b.WriteString("| Date | Total |\n|---|---:|\n")
	for _, s := range history {
		fmt.Fprintf(&b, "| %s | %s |\n", s.Date, cryptochat.FormatUSD(s.TotalValue))
	}
	return b.String()
}

func chartMarkdown(c cryptochat.PriceChart) string {
	var b strings.Builder
	b.WriteString("| Date | Price |\n|---|---:|\n")
	for _, p := range c.Points {
		date := time.UnixMilli(p.Timestamp).UTC().Format("2006-01-02")
		fmt.Fprintf(&b, "| %s | %s |\n", date, usd(p.Price))
	}
	s := c.Stats
	fmt.Fprintf(&b, "\nHigh %s, low %s, mean %s, change %s\n", usd(s.High), usd(s.Low), usd(s.Mean), percent(s.ChangePercent))
	return b.String()
}

func usd(v float64) string {
	return cryptochat.FormatUSD(cryptochat.NewAmount(v))
}

func signedUSD(v cryptochat.Amount) string {
	if v.IsNegative() {
		return "-" + cryptochat.FormatUSD(cryptochat.Amount{Decimal: v.Neg()})
	}
	return "+" + cryptochat.FormatUSD(v)
}

func percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
