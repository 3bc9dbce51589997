package domain

import "github.com/shopspring/decimal"

// BehaviorParams are an agent's immutable behavioral coefficients, fixed for
// the agent's lifetime. Speculation biases the limit price it quotes away
// from the market price, Noise scales the random perturbation of that price,
// and Literacy damps irrational order sizing.
type BehaviorParams struct {
	Speculation float64 // [0, 1]
	Noise       float64 // [0, 1]
	Literacy    float64 // [0, 1]
}

// Holding is an agent's position in a single instrument. ReservedUnits are
// locked by resting sell orders and released as they fill or expire.
type Holding struct {
	Units         int64
	ReservedUnits int64
}

// Agent is a market participant. Cash and holdings mutate only through
// settled transactions and dividend payments; ReservedCash is locked by
// resting buy orders. Agents are created at initialization and never
// destroyed mid-run.
type Agent struct {
	AgentID      string
	Cash         decimal.Decimal
	ReservedCash decimal.Decimal
	Holdings     map[string]*Holding // symbol → position
	Behavior     BehaviorParams
}

// AvailableCash returns cash not locked by resting buy orders.
func (a *Agent) AvailableCash() decimal.Decimal {
	return a.Cash.Sub(a.ReservedCash)
}

// Units returns the total units held of the given symbol.
func (a *Agent) Units(symbol string) int64 {
	h, ok := a.Holdings[symbol]
	if !ok {
		return 0
	}
	return h.Units
}

// AvailableUnits returns units not locked by resting sell orders.
func (a *Agent) AvailableUnits(symbol string) int64 {
	h, ok := a.Holdings[symbol]
	if !ok {
		return 0
	}
	return h.Units - h.ReservedUnits
}

// Holding returns the position for symbol, creating an empty one if needed.
func (a *Agent) Holding(symbol string) *Holding {
	h, ok := a.Holdings[symbol]
	if !ok {
		h = &Holding{}
		a.Holdings[symbol] = h
	}
	return h
}

// NetWorth is cash plus the market value of all holdings at the given
// prices. Reserved cash and units are still the agent's own and count fully.
func (a *Agent) NetWorth(prices map[string]decimal.Decimal) decimal.Decimal {
	total := a.Cash
	for symbol, h := range a.Holdings {
		price, ok := prices[symbol]
		if !ok || h.Units == 0 {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(h.Units)))
	}
	return total
}
