package cadence

import "math/rand/v2"

// ContentProvider supplies the rotating filler snippets for the Nurture
// template. Injected so tests can pin deterministic values.
type ContentProvider interface {
	MarketTrend() string
	FinancingTip() string
	NewListingsCount() int
}

var (
	marketTrends = []string{"up 2%", "down 1%", "stable"}

	financingTips = []string{
		"Consider getting pre-approved before shopping to strengthen your offers",
		"First-time buyer programs can save you thousands in down payment assistance",
		"Interest rates are currently favorable - lock in your rate early",
	}
)

// RandomContent picks each snippet uniformly from the documented sets.
type RandomContent struct{}

func (RandomContent) MarketTrend() string  { return marketTrends[rand.IntN(len(marketTrends))] }
func (RandomContent) FinancingTip() string { return financingTips[rand.IntN(len(financingTips))] }
func (RandomContent) NewListingsCount() int { return rand.IntN(10) + 1 }
