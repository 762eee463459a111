package cryptochat

import (
	"math/rand"
	"sync"
)

// WelcomeText is the first bot message of a session.
const WelcomeText = "👋 Hi! I'm your crypto assistant. I can help you check prices, see trending coins, manage your portfolio, and more. Try asking me something like 'What's BTC trading at?' or 'Show me trending coins'."

var greetingReplies = []string{
	"Hello! 👋 Ready to dive into the crypto world? Ask me about prices, trends, or your portfolio!",
	"Hi there! 🚀 What crypto information can I help you with today?",
	"Hey! 💰 I'm here to help with all your crypto needs. What would you like to know?",
	"Hello! 📈 Let's explore the crypto markets together. What can I help you with?",
}

var thanksReplies = []string{
	"You're welcome! 😊 Anything else you'd like to know about crypto?",
	"Happy to help! 🎉 Feel free to ask me anything else about cryptocurrencies.",
	"No problem! 👍 I'm here whenever you need crypto insights.",
	"Glad I could help! 💪 What else would you like to explore?",
}

var unknownReplies = []string{
	"I didn't quite catch that. Try asking about crypto prices, trending coins, or your portfolio. Type 'help' to see what I can do! 🤔",
	"Hmm, I'm not sure about that. I specialize in crypto! Ask me about prices, trends, or portfolio management. 📊",
	"I didn't understand that request. I'm great with crypto questions though! Try asking about Bitcoin prices or trending coins. 💡",
	"That's not something I can help with, but I'm excellent with cryptocurrency questions! What would you like to know about crypto? 🚀",
}

const helpText = `I can help you with:
• Check crypto prices: "What's BTC trading at?"
• Show trending coins: "Show me trending coins"
• Manage portfolio: "I have 2 BTC" or "Show my portfolio"
• Portfolio value: "What's my portfolio worth?"
• Portfolio history: "Show portfolio chart"
• Price charts: "Show BTC chart" or "7-day price chart"
• Clear portfolio: "Clear my portfolio"

Just ask me naturally!`

const (
	textEmptyPortfolio   = "You don't have any holdings in your portfolio yet. Add some by saying 'I have X BTC' or similar."
	textNoHistory        = "No portfolio history available yet. Portfolio values are tracked daily, so check back tomorrow to see your 7-day performance!"
	textHistory          = "Here's your portfolio performance over the last 7 days:"
	textCoinNotFound     = "I couldn't find that cryptocurrency. Try mentioning a popular coin like BTC, ETH, or ADA."
	textTrending         = "Here are today's trending cryptocurrencies:"
	textAddUsage         = "Please specify the amount and coin, like 'I have 2 BTC' or 'I own 10 ETH'."
	textShowPortfolio    = "Here's your current portfolio:"
	textCleared          = "Your portfolio has been cleared."
	textPriceUnavailable = "Unable to fetch price data. Please try again later."
	textChartUnavailable = "Unable to fetch price history. Please try again later."
	textTrendUnavailable = "Unable to fetch trending coins. Please try again later."
	textGenericError     = "Sorry, I encountered an error. Please try again."
)

// replyPicker draws canned replies from a shared random source.
type replyPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newReplyPicker(rnd *rand.Rand) *replyPicker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return &replyPicker{rnd: rnd}
}

func (p *replyPicker) pick(pool []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rnd.Intn(len(pool))]
}
