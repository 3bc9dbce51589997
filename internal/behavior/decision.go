// Package behavior holds the agent decision contract: a pure function from
// (behavioral parameters, market snapshot, randomness) to order intents.
// The market treats agents only through this numeric contract; it
// revalidates every intent before anything reaches a book.
package behavior

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

// OrderIntent is an agent's wish to trade. The market turns accepted
// intents into orders.
type OrderIntent struct {
	Symbol   string
	Side     domain.OrderSide
	Price    decimal.Decimal
	Quantity int64
}

// AgentView is the slice of an agent's own state a decision function may
// see: unreserved cash and units plus the agent's behavioral parameters.
type AgentView struct {
	AgentID        string
	AvailableCash  decimal.Decimal
	AvailableUnits map[string]int64 // symbol → unreserved units
	Params         domain.BehaviorParams
}

// MarketSnapshot is the public market state for one round. Symbols is
// sorted ascending; decision functions must iterate it in order so that
// their draws from the shared generator replay identically.
type MarketSnapshot struct {
	Round   int
	Symbols []string
	Prices  map[string]decimal.Decimal
}

// DecisionFunc produces zero or more order intents for one agent. It must
// be pure apart from the draws it takes from rng, and must take the same
// number of draws regardless of which branch it ends on, or replays with
// the same seed will diverge.
type DecisionFunc func(view AgentView, snap MarketSnapshot, rng *rand.Rand) []OrderIntent

// None is a decision function that never trades. Useful in tests that
// drive the book directly.
func None(AgentView, MarketSnapshot, *rand.Rand) []OrderIntent {
	return nil
}

// Default returns the reference decision function.
//
// Per instrument it takes exactly three draws: a drift draw whose span
// grows with the speculation parameter, a gaussian perturbation scaled by
// the noise parameter, and a sizing fraction. A positive combined signal
// quotes a buy above or below market at the signalled price; a negative
// one quotes a sell. Literacy damps the fraction of cash or holdings the
// agent is willing to commit.
func Default() DecisionFunc {
	return func(view AgentView, snap MarketSnapshot, rng *rand.Rand) []OrderIntent {
		var intents []OrderIntent
		for _, symbol := range snap.Symbols {
			price := snap.Prices[symbol]

			drift := (rng.Float64()*2 - 1) * (0.05 + 0.10*view.Params.Speculation)
			noise := rng.NormFloat64() * 0.02 * view.Params.Noise
			sizing := rng.Float64()

			signal := drift + noise
			limit := price.Mul(decimal.NewFromFloat(1 + signal))
			if !limit.IsPositive() {
				continue
			}

			damp := sizing / (1 + view.Params.Literacy)

			if signal >= 0 {
				// Buys above market read the signal as underpricing.
				budget := view.AvailableCash.Mul(decimal.NewFromFloat(damp))
				qty := budget.Div(limit).IntPart()
				if qty < 1 {
					continue
				}
				intents = append(intents, OrderIntent{
					Symbol:   symbol,
					Side:     domain.OrderSideBuy,
					Price:    limit,
					Quantity: qty,
				})
			} else {
				held := view.AvailableUnits[symbol]
				if held < 1 {
					continue
				}
				qty := int64(float64(held) * damp)
				if qty < 1 {
					qty = 1
				}
				intents = append(intents, OrderIntent{
					Symbol:   symbol,
					Side:     domain.OrderSideSell,
					Price:    limit,
					Quantity: qty,
				})
			}
		}
		return intents
	}
}
