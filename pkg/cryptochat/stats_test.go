package cryptochat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePriceStats(t *testing.T) {
	s := ComputePriceStats([]PricePoint{{1, 100}, {2, 120}, {3, 80}, {4, 110}})
	assert.Equal(t, 120.0, s.High)
	assert.Equal(t, 80.0, s.Low)
	assert.InDelta(t, 102.5, s.Mean, 1e-9)
	assert.InDelta(t, 17.078251, s.StdDev, 1e-5)
	assert.InDelta(t, 10.0, s.ChangePercent, 1e-9)
}

func TestComputePriceStats_Degenerate(t *testing.T) {
	assert.Equal(t, PriceStats{}, ComputePriceStats(nil))

	single := ComputePriceStats([]PricePoint{{1, 42}})
	assert.Equal(t, PriceStats{High: 42, Low: 42, Mean: 42}, single)

	fromZero := ComputePriceStats([]PricePoint{{1, 0}, {2, 5}})
	assert.Zero(t, fromZero.ChangePercent)
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{100000, "$100,000.00"},
		{0.005, "$0.01"},
		{67123.456, "$67,123.46"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUSD(NewAmount(tt.in)), tt.in)
	}
}

func TestAmountJSON(t *testing.T) {
	a := NewAmount(1234.123456789)
	b, err := a.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "1234.12345679", string(b))

	var back Amount
	assert.NoError(t, back.UnmarshalJSON([]byte(`"99.5"`)))
	assert.Equal(t, 99.5, back.Float())
}
