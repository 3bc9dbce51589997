package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/domain"
)

// transactionID derives a stable ID from the two orders' submission
// sequences. A given pair of orders matches at most once, and deriving IDs
// instead of drawing them keeps two runs with the same seed bit-identical.
func transactionID(aggressor, resting uint64) string {
	name := fmt.Sprintf("transaction:%d:%d", aggressor, resting)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Submit runs the incoming order through price-time-priority matching
// against the opposite side of the book and returns one transaction per
// match. The clearing price is always the resting order's limit price. A
// fully filled incoming order is discarded; an unfilled remainder rests on
// the book.
//
// Submit only mutates book state. Settlement of the returned transactions
// against agent balances is the caller's phase. The caller must have
// validated solvency; the book itself rejects only structurally invalid
// orders (non-positive price or quantity, wrong symbol).
func (b *OrderBook) Submit(order *domain.Order) ([]*domain.Transaction, error) {
	if order.Symbol != b.symbol {
		return nil, fmt.Errorf("%w: order for %q submitted to %q book", domain.ErrInvalidOrder, order.Symbol, b.symbol)
	}
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", domain.ErrInvalidOrder, order.Quantity)
	}
	if !order.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price %s", domain.ErrInvalidOrder, order.Price)
	}

	remaining := order.Quantity
	var txs []*domain.Transaction

	for remaining > 0 {
		var best BookEntry
		var found bool
		if order.Side == domain.OrderSideBuy {
			best, found = b.BestSell()
		} else {
			best, found = b.BestBuy()
		}
		if !found {
			break
		}

		// Price compatibility: a trade happens only when the buy price
		// reaches the sell price.
		if order.Side == domain.OrderSideBuy {
			if order.Price.Cmp(best.Price) < 0 {
				break
			}
		} else {
			if best.Price.Cmp(order.Price) < 0 {
				break
			}
		}

		resting := best.Resting

		fillQty := remaining
		if resting.Remaining < fillQty {
			fillQty = resting.Remaining
		}

		var buyOrder, sellOrder *domain.Order
		if order.Side == domain.OrderSideBuy {
			buyOrder, sellOrder = order, resting.Order
		} else {
			buyOrder, sellOrder = resting.Order, order
		}

		txs = append(txs, &domain.Transaction{
			TransactionID: transactionID(order.Sequence, resting.Order.Sequence),
			Symbol:        b.symbol,
			Price:         best.Price, // the resting order earns its quote
			Quantity:      fillQty,
			BuyerID:       buyOrder.AgentID,
			SellerID:      sellOrder.AgentID,
			BuyOrderID:    buyOrder.OrderID,
			SellOrderID:   sellOrder.OrderID,
			Round:         order.Round,
		})

		remaining -= fillQty
		resting.Remaining -= fillQty
		if resting.Remaining == 0 {
			b.Remove(resting.Order.OrderID)
		}
	}

	if remaining > 0 {
		b.insert(BookEntry{
			Price:    order.Price,
			Sequence: order.Sequence,
			Resting:  &RestingOrder{Order: order, Remaining: remaining},
		})
	}

	return txs, nil
}
