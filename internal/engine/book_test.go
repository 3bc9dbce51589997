package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

var nextSeq uint64

func newOrder(agentID string, side domain.OrderSide, price string, qty int64, round int) *domain.Order {
	nextSeq++
	return &domain.Order{
		OrderID:  fmt.Sprintf("order-%d", nextSeq),
		AgentID:  agentID,
		Symbol:   "PETR4",
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Round:    round,
		Sequence: nextSeq,
	}
}

func mustSubmit(t *testing.T, b *OrderBook, order *domain.Order) []*domain.Transaction {
	t.Helper()
	txs, err := b.Submit(order)
	if err != nil {
		t.Fatalf("Submit(%s %s@%s x%d): %v", order.Side, order.Symbol, order.Price, order.Quantity, err)
	}
	return txs
}

func TestSubmit_PartialFillAtRestingPrice(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("seller", domain.OrderSideSell, "10", 5, 0))
	txs := mustSubmit(t, book, newOrder("buyer", domain.OrderSideBuy, "12", 3, 0))

	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if !tx.Price.Equal(decimal.RequireFromString("10")) {
		t.Errorf("clearing price = %s, want 10 (resting order's limit)", tx.Price)
	}
	if tx.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", tx.Quantity)
	}
	if tx.BuyerID != "buyer" || tx.SellerID != "seller" {
		t.Errorf("parties = %s/%s, want buyer/seller", tx.BuyerID, tx.SellerID)
	}

	best, ok := book.BestSell()
	if !ok {
		t.Fatal("expected a resting sell remainder")
	}
	if best.Resting.Remaining != 2 {
		t.Errorf("resting sell remainder = %d, want 2", best.Resting.Remaining)
	}
	if book.BuyCount() != 0 {
		t.Errorf("buy side has %d orders, want 0 (buy fully filled)", book.BuyCount())
	}
}

func TestSubmit_NoCrossRestsOnBook(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("seller", domain.OrderSideSell, "10", 5, 0))
	txs := mustSubmit(t, book, newOrder("buyer", domain.OrderSideBuy, "9", 5, 0))

	if len(txs) != 0 {
		t.Fatalf("transactions = %d, want 0 (buy below ask)", len(txs))
	}
	if book.BuyCount() != 1 || book.SellCount() != 1 {
		t.Errorf("book sizes = %d/%d, want 1/1", book.BuyCount(), book.SellCount())
	}
}

func TestSubmit_TimePriorityAtEqualPrice(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("first", domain.OrderSideSell, "10", 2, 0))
	mustSubmit(t, book, newOrder("second", domain.OrderSideSell, "10", 2, 0))

	txs := mustSubmit(t, book, newOrder("buyer", domain.OrderSideBuy, "10", 3, 0))
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}
	if txs[0].SellerID != "first" {
		t.Errorf("first fill against %q, want the earlier order", txs[0].SellerID)
	}
	if txs[0].Quantity != 2 || txs[1].Quantity != 1 {
		t.Errorf("fill quantities = %d,%d, want 2,1", txs[0].Quantity, txs[1].Quantity)
	}
	best, ok := book.BestSell()
	if !ok || best.Resting.Order.AgentID != "second" || best.Resting.Remaining != 1 {
		t.Errorf("expected 1 unit of the later sell to remain")
	}
}

func TestSubmit_PricePriorityBeatsTime(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("expensive", domain.OrderSideSell, "11", 1, 0))
	mustSubmit(t, book, newOrder("cheap", domain.OrderSideSell, "10", 1, 0))

	txs := mustSubmit(t, book, newOrder("buyer", domain.OrderSideBuy, "11", 1, 0))
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	if txs[0].SellerID != "cheap" {
		t.Errorf("filled against %q, want the cheaper sell despite later arrival", txs[0].SellerID)
	}
	if !txs[0].Price.Equal(decimal.RequireFromString("10")) {
		t.Errorf("clearing price = %s, want 10", txs[0].Price)
	}
}

func TestSubmit_SweepsMultipleLevels(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("a", domain.OrderSideSell, "10", 1, 0))
	mustSubmit(t, book, newOrder("b", domain.OrderSideSell, "11", 1, 0))
	mustSubmit(t, book, newOrder("c", domain.OrderSideSell, "13", 1, 0))

	txs := mustSubmit(t, book, newOrder("buyer", domain.OrderSideBuy, "12", 3, 0))
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2 (the 13 ask is out of reach)", len(txs))
	}
	if !txs[0].Price.Equal(decimal.RequireFromString("10")) || !txs[1].Price.Equal(decimal.RequireFromString("11")) {
		t.Errorf("clearing prices = %s,%s, want 10,11", txs[0].Price, txs[1].Price)
	}
	// The unmatched unit rests as a buy at 12.
	best, ok := book.BestBuy()
	if !ok || best.Resting.Remaining != 1 || !best.Price.Equal(decimal.RequireFromString("12")) {
		t.Error("expected 1 unit resting on the buy side at 12")
	}
}

func TestSubmit_InvalidOrders(t *testing.T) {
	book := NewOrderBook("PETR4")

	cases := []struct {
		name  string
		order *domain.Order
	}{
		{"zero quantity", newOrder("a", domain.OrderSideBuy, "10", 0, 0)},
		{"negative quantity", newOrder("a", domain.OrderSideBuy, "10", -3, 0)},
		{"zero price", newOrder("a", domain.OrderSideBuy, "0", 1, 0)},
		{"negative price", newOrder("a", domain.OrderSideSell, "-5", 1, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := book.Submit(tc.order); !errors.Is(err, domain.ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
		})
	}

	wrong := newOrder("a", domain.OrderSideBuy, "10", 1, 0)
	wrong.Symbol = "VALE3"
	if _, err := book.Submit(wrong); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("wrong-symbol err = %v, want ErrInvalidOrder", err)
	}
	if book.BuyCount() != 0 || book.SellCount() != 0 {
		t.Error("rejected orders must not touch the book")
	}
}

func TestOrderBook_Remove(t *testing.T) {
	book := NewOrderBook("PETR4")

	order := newOrder("a", domain.OrderSideBuy, "10", 5, 0)
	mustSubmit(t, book, order)

	book.Remove(order.OrderID)
	if book.BuyCount() != 0 {
		t.Errorf("buy count after remove = %d, want 0", book.BuyCount())
	}
	// Unknown IDs are a no-op.
	book.Remove("no-such-order")
}

func TestOrderBook_TopLevelsAggregate(t *testing.T) {
	book := NewOrderBook("PETR4")

	mustSubmit(t, book, newOrder("a", domain.OrderSideBuy, "10", 3, 0))
	mustSubmit(t, book, newOrder("b", domain.OrderSideBuy, "10", 2, 0))
	mustSubmit(t, book, newOrder("c", domain.OrderSideBuy, "9", 1, 0))

	levels := book.TopBuys(10)
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	if !levels[0].Price.Equal(decimal.RequireFromString("10")) || levels[0].TotalQuantity != 5 || levels[0].OrderCount != 2 {
		t.Errorf("top level = %+v, want price 10 qty 5 count 2", levels[0])
	}
	if levels[1].TotalQuantity != 1 {
		t.Errorf("second level qty = %d, want 1", levels[1].TotalQuantity)
	}

	if got := book.TopBuys(1); len(got) != 1 {
		t.Errorf("TopBuys(1) = %d levels, want 1", len(got))
	}
}

func TestOrderBook_ExpireThrough(t *testing.T) {
	book := NewOrderBook("PETR4")

	old := newOrder("a", domain.OrderSideBuy, "9", 1, 0)
	fresh := newOrder("b", domain.OrderSideSell, "12", 1, 3)
	mustSubmit(t, book, old)
	mustSubmit(t, book, fresh)

	expired := book.ExpireThrough(1)
	if len(expired) != 1 {
		t.Fatalf("expired = %d orders, want 1", len(expired))
	}
	if expired[0].Order.OrderID != old.OrderID {
		t.Errorf("expired %q, want %q", expired[0].Order.OrderID, old.OrderID)
	}
	if book.BuyCount() != 0 || book.SellCount() != 1 {
		t.Errorf("book sizes after expiry = %d/%d, want 0/1", book.BuyCount(), book.SellCount())
	}
}
