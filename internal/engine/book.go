package engine

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

// RestingOrder is an order sitting on the book with its unmatched quantity.
// The order itself is immutable; Remaining is book state.
type RestingOrder struct {
	Order     *domain.Order
	Remaining int64
}

// BookEntry keys a resting order within a side's B-tree by (price, sequence).
type BookEntry struct {
	Price    decimal.Decimal
	Sequence uint64
	Resting  *RestingOrder
}

// PriceLevel is an aggregated view of all resting orders at one price.
type PriceLevel struct {
	Price         decimal.Decimal
	TotalQuantity int64
	OrderCount    int
}

// buyLess orders the buy side: price descending, then submission sequence
// ascending. Min() returns the best buy (highest price, earliest sequence).
func buyLess(a, b BookEntry) bool {
	if cmp := a.Price.Cmp(b.Price); cmp != 0 {
		return cmp > 0
	}
	return a.Sequence < b.Sequence
}

// sellLess orders the sell side: price ascending, then submission sequence
// ascending. Min() returns the best sell (lowest price, earliest sequence).
func sellLess(a, b BookEntry) bool {
	if cmp := a.Price.Cmp(b.Price); cmp != 0 {
		return cmp < 0
	}
	return a.Sequence < b.Sequence
}

// OrderBook maintains the buy and sell sides for a single instrument using
// B-trees with a secondary index for O(log n) removal by order ID.
//
// The book assumes a single logical writer: the market serializes all
// submissions and reads, so the book carries no lock of its own.
type OrderBook struct {
	symbol string
	buys   *btree.BTreeG[BookEntry]
	sells  *btree.BTreeG[BookEntry]
	index  map[string]BookEntry // order_id → entry
}

// NewOrderBook creates an order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol: symbol,
		buys:   btree.NewG[BookEntry](degree, buyLess),
		sells:  btree.NewG[BookEntry](degree, sellLess),
		index:  make(map[string]BookEntry),
	}
}

// Symbol returns the instrument symbol this book trades.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

func (b *OrderBook) insert(entry BookEntry) {
	if entry.Resting.Order.Side == domain.OrderSideBuy {
		b.buys.ReplaceOrInsert(entry)
	} else {
		b.sells.ReplaceOrInsert(entry)
	}
	b.index[entry.Resting.Order.OrderID] = entry
}

// Remove deletes a resting order from the book by order ID. It is a no-op
// for unknown IDs.
func (b *OrderBook) Remove(orderID string) {
	entry, ok := b.index[orderID]
	if !ok {
		return
	}
	delete(b.index, orderID)
	if entry.Resting.Order.Side == domain.OrderSideBuy {
		b.buys.Delete(entry)
	} else {
		b.sells.Delete(entry)
	}
}

// BestBuy returns the highest-priority resting buy (highest price, earliest
// sequence).
func (b *OrderBook) BestBuy() (BookEntry, bool) {
	return b.buys.Min()
}

// BestSell returns the highest-priority resting sell (lowest price, earliest
// sequence).
func (b *OrderBook) BestSell() (BookEntry, bool) {
	return b.sells.Min()
}

// BuyCount returns the number of resting buy orders.
func (b *OrderBook) BuyCount() int {
	return b.buys.Len()
}

// SellCount returns the number of resting sell orders.
func (b *OrderBook) SellCount() int {
	return b.sells.Len()
}

// TopBuys returns up to n aggregated price levels from the buy side,
// ordered by price descending.
func (b *OrderBook) TopBuys(n int) []PriceLevel {
	return topLevels(b.buys, n)
}

// TopSells returns up to n aggregated price levels from the sell side,
// ordered by price ascending.
func (b *OrderBook) TopSells(n int) []PriceLevel {
	return topLevels(b.sells, n)
}

// topLevels iterates a side in priority order and aggregates entries into
// at most n price levels.
func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(entry.Price) {
			levels[len(levels)-1].TotalQuantity += entry.Resting.Remaining
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Resting.Remaining,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// ExpireThrough removes every resting order created at or before the given
// round and returns them (buys first, then sells, each in priority order) so
// the caller can release the reservations they hold.
func (b *OrderBook) ExpireThrough(round int) []*RestingOrder {
	var expired []*RestingOrder
	collect := func(entry BookEntry) bool {
		if entry.Resting.Order.Round <= round {
			expired = append(expired, entry.Resting)
		}
		return true
	}
	b.buys.Ascend(collect)
	b.sells.Ascend(collect)
	for _, r := range expired {
		b.Remove(r.Order.OrderID)
	}
	return expired
}
