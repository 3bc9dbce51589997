package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/behavior"
	"github.com/efreitasn/marketsim/internal/domain"
)

// Run advances every remaining round. It stops early only on context
// cancellation or a fatal error; per-intent failures never interrupt a
// round.
func (m *Market) Run(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.round < m.rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.runRound(); err != nil {
			return err
		}
	}
	return nil
}

// RunRound advances exactly one round through the phase machine
// Collecting → Matching → Settling → Adjusting → DividendPaying → Idle.
// It returns a *domain.StateError once the configured rounds are
// exhausted.
func (m *Market) RunRound(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.runRound()
}

// runRound executes one full round. Callers must hold the write lock.
func (m *Market) runRound() error {
	if m.round >= m.rounds {
		return &domain.StateError{Round: m.round, Reason: fmt.Sprintf("configured %d rounds exhausted", m.rounds)}
	}
	round := m.round + 1

	m.phase = PhaseCollecting
	pending, err := m.collect(round)
	if err != nil {
		return err
	}

	m.phase = PhaseMatching
	var txs []*domain.Transaction
	for _, order := range pending {
		matched, err := m.books[order.Symbol].Submit(order)
		if err != nil {
			// The order passed validation, so this is unreachable in
			// practice; release its reservation and keep the round alive.
			m.releaseReservation(order, order.Quantity)
			m.dropped++
			m.logger.Warn("book rejected validated order",
				slog.String("order_id", order.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		txs = append(txs, matched...)
	}

	m.phase = PhaseSettling
	if err := m.settle(round, txs); err != nil {
		return err
	}

	m.phase = PhaseAdjusting
	rate, err := m.adjust(round)
	if err != nil {
		return err
	}

	m.phase = PhaseDividendPaying
	dividends := m.payDividends(round)

	snap := m.recordRound(round, rate, len(txs), dividends)
	m.expireOrders(round)

	m.round = round
	m.phase = PhaseIdle

	m.logger.Info("round complete",
		slog.Int("round", round),
		slog.Int("orders", len(pending)),
		slog.Int("transactions", len(txs)),
		slog.Float64("inflation_rate", rate),
		slog.String("dividends", dividends.String()),
	)

	if m.onRound != nil {
		m.onRound(snap)
	}
	return nil
}

// collect asks every agent, in ascending ID order, for its intents against
// the current snapshot, validates each against the agent's unreserved cash
// and units, and reserves what accepted orders need. Insolvent or malformed
// intents are dropped silently; an intent naming an unknown instrument is
// structural corruption and halts the run.
func (m *Market) collect(round int) ([]*domain.Order, error) {
	snap := behavior.MarketSnapshot{
		Round:   round,
		Symbols: m.symbols,
		Prices:  m.currentPrices(),
	}

	var pending []*domain.Order
	for _, id := range m.agentIDs {
		agent := m.agents[id]

		availableUnits := make(map[string]int64, len(agent.Holdings))
		for symbol := range agent.Holdings {
			availableUnits[symbol] = agent.AvailableUnits(symbol)
		}
		view := behavior.AgentView{
			AgentID:        agent.AgentID,
			AvailableCash:  agent.AvailableCash(),
			AvailableUnits: availableUnits,
			Params:         agent.Behavior,
		}

		for _, intent := range m.decide(view, snap, m.rng) {
			order, err := m.acceptIntent(agent, intent, round)
			if err != nil {
				if errors.Is(err, domain.ErrUnknownInstrument) {
					return nil, &domain.StateError{
						Round:  round,
						Entity: intent.Symbol,
						Reason: "order references unknown instrument",
					}
				}
				m.dropped++
				m.logger.Debug("intent dropped",
					slog.String("agent_id", agent.AgentID),
					slog.String("symbol", intent.Symbol),
					slog.String("reason", err.Error()),
				)
				continue
			}
			pending = append(pending, order)
		}
	}
	return pending, nil
}

// acceptIntent validates one intent and, if solvent, reserves its cash or
// units and registers the order.
func (m *Market) acceptIntent(agent *domain.Agent, intent behavior.OrderIntent, round int) (*domain.Order, error) {
	if _, ok := m.instruments[intent.Symbol]; !ok {
		return nil, domain.ErrUnknownInstrument
	}
	if intent.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", domain.ErrInvalidOrder, intent.Quantity)
	}
	if !intent.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price %s", domain.ErrInvalidOrder, intent.Price)
	}

	qty := decimal.NewFromInt(intent.Quantity)
	switch intent.Side {
	case domain.OrderSideBuy:
		cost := intent.Price.Mul(qty)
		if cost.Cmp(agent.AvailableCash()) > 0 {
			return nil, fmt.Errorf("%w: cost %s exceeds available %s", domain.ErrInsufficientCash, cost, agent.AvailableCash())
		}
		agent.ReservedCash = agent.ReservedCash.Add(cost)
	case domain.OrderSideSell:
		if intent.Quantity > agent.AvailableUnits(intent.Symbol) {
			return nil, fmt.Errorf("%w: %d of %q exceeds available %d", domain.ErrInsufficientUnits, intent.Quantity, intent.Symbol, agent.AvailableUnits(intent.Symbol))
		}
		agent.Holding(intent.Symbol).ReservedUnits += intent.Quantity
	default:
		return nil, fmt.Errorf("%w: side %q", domain.ErrInvalidOrder, intent.Side)
	}

	m.sequence++
	order := &domain.Order{
		OrderID:  orderID(m.sequence),
		AgentID:  agent.AgentID,
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Price:    intent.Price,
		Quantity: intent.Quantity,
		Round:    round,
		Sequence: m.sequence,
	}
	m.orders.Create(order)
	return order, nil
}

// settle applies every transaction of the round to the two agents, appends
// it to the log, and moves each instrument's price to its last clearing
// price. Buy reservations release at the buy order's limit price, which
// always covers the clearing price, so settled cash never goes negative.
func (m *Market) settle(round int, txs []*domain.Transaction) error {
	lastPrice := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		buyer, ok := m.agents[tx.BuyerID]
		if !ok {
			return &domain.StateError{Round: round, Entity: tx.BuyerID, Reason: "transaction references unknown buyer"}
		}
		seller, ok := m.agents[tx.SellerID]
		if !ok {
			return &domain.StateError{Round: round, Entity: tx.SellerID, Reason: "transaction references unknown seller"}
		}
		buyOrder, err := m.orders.Get(tx.BuyOrderID)
		if err != nil {
			return &domain.StateError{Round: round, Entity: tx.BuyOrderID, Reason: "transaction references unknown buy order"}
		}

		qty := decimal.NewFromInt(tx.Quantity)
		value := tx.Value()

		buyer.Cash = buyer.Cash.Sub(value)
		buyer.ReservedCash = buyer.ReservedCash.Sub(buyOrder.Price.Mul(qty))
		buyer.Holding(tx.Symbol).Units += tx.Quantity

		sellerHolding := seller.Holding(tx.Symbol)
		sellerHolding.Units -= tx.Quantity
		sellerHolding.ReservedUnits -= tx.Quantity
		seller.Cash = seller.Cash.Add(value)

		if buyer.Cash.IsNegative() {
			return &domain.StateError{Round: round, Entity: tx.BuyerID, Reason: "settlement drove cash negative"}
		}
		if sellerHolding.Units < 0 {
			return &domain.StateError{Round: round, Entity: tx.SellerID, Reason: "settlement drove holdings negative"}
		}

		m.txLog.Append(tx)
		lastPrice[tx.Symbol] = tx.Price
	}

	for _, symbol := range m.symbols {
		if p, ok := lastPrice[symbol]; ok {
			m.instruments[symbol].Price = p
		}
	}
	return nil
}

// adjust draws the round's inflation rate and compounds every price by
// (1 + rate). A drawn rate at or below -1 would zero out prices and is
// fatal.
func (m *Market) adjust(round int) (float64, error) {
	rate := m.inflation.draw(m.rng)
	if rate <= -1 {
		return 0, &domain.StateError{Round: round, Entity: "inflation", Reason: fmt.Sprintf("drawn rate %v would drive prices non-positive", rate)}
	}
	factor := domain.InflationFactor(rate)
	for _, symbol := range m.symbols {
		inst := m.instruments[symbol]
		inst.Price = inst.Price.Mul(factor)
		if !inst.Price.IsPositive() {
			return 0, &domain.StateError{Round: round, Entity: symbol, Reason: "inflation drove price non-positive"}
		}
	}
	m.inflationHist = append(m.inflationHist, rate)
	return rate, nil
}

// expireOrders removes resting orders older than the configured TTL and
// releases the reservations they hold.
func (m *Market) expireOrders(round int) {
	if m.orderTTL <= 0 {
		return
	}
	cutoff := round - m.orderTTL
	if cutoff < 1 {
		return
	}
	for _, symbol := range m.symbols {
		for _, resting := range m.books[symbol].ExpireThrough(cutoff) {
			m.releaseReservation(resting.Order, resting.Remaining)
			m.logger.Debug("order expired",
				slog.String("order_id", resting.Order.OrderID),
				slog.String("agent_id", resting.Order.AgentID),
				slog.Int64("remaining", resting.Remaining),
			)
		}
	}
}

// releaseReservation returns the unfilled part of an order's reservation
// to its agent.
func (m *Market) releaseReservation(order *domain.Order, qty int64) {
	agent, ok := m.agents[order.AgentID]
	if !ok {
		return
	}
	if order.Side == domain.OrderSideBuy {
		agent.ReservedCash = agent.ReservedCash.Sub(order.Price.Mul(decimal.NewFromInt(qty)))
	} else {
		agent.Holding(order.Symbol).ReservedUnits -= qty
	}
}
