package cryptochat

import (
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount wraps decimal.Decimal for USD values.
// JSON marshaling outputs a plain number so the widget can chart it directly,
// while sums and the 24h back-solve run in decimal.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(8).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Float returns the amount as a float64, losing precision beyond 8 places.
func (a Amount) Float() float64 {
	f, _ := a.Round(8).Float64()
	return f
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// ZeroAmount is the zero USD value.
var ZeroAmount = Amount{decimal.Zero}

// FormatUSD renders v the way the widget shows prices: "$1,234.56".
func FormatUSD(v Amount) string {
	cents := v.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}
