package market

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

// payDividends accrues one round of income on every fund and, on payment
// rounds, distributes each fund's accrued income to its holders. Returns
// the total cash paid out this round.
func (m *Market) payDividends(round int) decimal.Decimal {
	total := decimal.Zero
	for _, symbol := range m.symbols {
		inst := m.instruments[symbol]
		if !inst.IsFund() {
			continue
		}
		inst.AccrueIncome()
		if round%m.dividendInterval != 0 {
			continue
		}
		paid := m.distribute(inst)
		if paid.IsPositive() {
			m.logger.Info("dividends paid",
				slog.Int("round", round),
				slog.String("symbol", inst.Symbol),
				slog.String("amount", paid.String()),
			)
		}
		total = total.Add(paid)
	}
	return total
}

// distribute pays out a fund's accrued income proportionally to units held
// at payment time: agent share = accrued × units / outstanding. Shares are
// floored to whole cents; leftover cents go one at a time to holders by
// largest fractional remainder (ties broken by ascending agent ID, which
// the initial iteration order already provides), and the final sub-cent
// residue is absorbed by the first holder in that order. The sum of
// payments therefore equals the held portion of the accrued income
// exactly. Income attributable to units outside any agent's hands is not
// paid. Accrued income resets to zero afterwards.
func (m *Market) distribute(inst *domain.Instrument) decimal.Decimal {
	defer func() { inst.AccruedIncome = decimal.Zero }()

	if inst.OutstandingUnits <= 0 || !inst.AccruedIncome.IsPositive() {
		return decimal.Zero
	}
	outstanding := decimal.NewFromInt(inst.OutstandingUnits)

	type holderShare struct {
		agent     *domain.Agent
		paid      decimal.Decimal
		remainder decimal.Decimal
	}
	var shares []holderShare
	heldExact := decimal.Zero
	flooredTotal := decimal.Zero

	for _, id := range m.agentIDs {
		agent := m.agents[id]
		units := agent.Units(inst.Symbol)
		if units <= 0 {
			continue
		}
		exact := inst.AccruedIncome.Mul(decimal.NewFromInt(units)).Div(outstanding)
		floored := domain.FloorToCent(exact)
		shares = append(shares, holderShare{
			agent:     agent,
			paid:      floored,
			remainder: exact.Sub(floored),
		})
		heldExact = heldExact.Add(exact)
		flooredTotal = flooredTotal.Add(floored)
	}
	if len(shares) == 0 {
		return decimal.Zero
	}

	// Largest remainder first; the sort is stable, so equal remainders
	// keep ascending agent ID order.
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder.Cmp(shares[j].remainder) > 0
	})

	leftover := heldExact.Sub(flooredTotal)
	for i := range shares {
		if leftover.Cmp(domain.Cent) < 0 {
			break
		}
		shares[i].paid = shares[i].paid.Add(domain.Cent)
		leftover = leftover.Sub(domain.Cent)
	}
	// Sub-cent residue goes to the largest-remainder holder.
	if leftover.IsPositive() {
		shares[0].paid = shares[0].paid.Add(leftover)
	}

	total := decimal.Zero
	for _, s := range shares {
		s.agent.Cash = s.agent.Cash.Add(s.paid)
		total = total.Add(s.paid)
	}
	return total
}
