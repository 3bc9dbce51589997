package market

import "github.com/shopspring/decimal"

// RoundSnapshot is the read-only record of one completed round, appended to
// the histories and pushed to the round listener.
type RoundSnapshot struct {
	Round          int                        `json:"round"`
	InflationRate  float64                    `json:"inflation_rate"`
	Prices         map[string]decimal.Decimal `json:"prices"`
	NetWorth       map[string]decimal.Decimal `json:"net_worth"`
	MarketValue    decimal.Decimal            `json:"market_value"`
	Transactions   int                        `json:"transactions"`
	Dividends      decimal.Decimal            `json:"dividends"`
	DroppedIntents int                        `json:"dropped_intents"`
}

// recordRound appends the post-round price of every instrument, the net
// worth of every agent, and the total market value to the histories, and
// builds the snapshot handed to the round listener. Recording happens at
// exactly one point per round, so every series always has one entry per
// completed round. Callers must hold the write lock.
func (m *Market) recordRound(round int, rate float64, txCount int, dividends decimal.Decimal) RoundSnapshot {
	prices := m.currentPrices()

	netWorth := make(map[string]decimal.Decimal, len(m.agentIDs))
	for _, id := range m.agentIDs {
		netWorth[id] = m.agents[id].NetWorth(prices)
	}

	marketValue := decimal.Zero
	for _, symbol := range m.symbols {
		var held int64
		for _, id := range m.agentIDs {
			held += m.agents[id].Units(symbol)
		}
		if held > 0 {
			marketValue = marketValue.Add(prices[symbol].Mul(decimal.NewFromInt(held)))
		}
	}

	for _, symbol := range m.symbols {
		m.priceHist[symbol] = append(m.priceHist[symbol], prices[symbol])
	}
	for _, id := range m.agentIDs {
		m.netWorthHist[id] = append(m.netWorthHist[id], netWorth[id])
	}
	m.marketValueHist = append(m.marketValueHist, marketValue)

	return RoundSnapshot{
		Round:          round,
		InflationRate:  rate,
		Prices:         prices,
		NetWorth:       netWorth,
		MarketValue:    marketValue,
		Transactions:   txCount,
		Dividends:      dividends,
		DroppedIntents: m.dropped,
	}
}
