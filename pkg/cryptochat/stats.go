package cryptochat

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PriceStats summarizes a price series.
type PriceStats struct {
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"stdDev"`
	ChangePercent float64 `json:"changePercent"`
}

// ComputePriceStats returns the zero value for an empty series.
func ComputePriceStats(points []PricePoint) PriceStats {
	if len(points) == 0 {
		return PriceStats{}
	}
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	s := PriceStats{
		High: floats.Max(prices),
		Low:  floats.Min(prices),
		Mean: stat.Mean(prices, nil),
	}
	if len(prices) > 1 {
		s.StdDev = stat.StdDev(prices, nil)
	}
	if first := prices[0]; first != 0 {
		s.ChangePercent = (prices[len(prices)-1] - first) / first * 100
	}
	return s
}
