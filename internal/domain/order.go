package domain

import "github.com/shopspring/decimal"

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order is an immutable intent to trade a quantity of one instrument at a
// limit price. Remaining unmatched quantity is tracked by the order book,
// never by mutating the order itself.
//
// Sequence is the market-assigned submission counter; it is the second key
// of price-time priority and makes tie-breaking deterministic across runs.
type Order struct {
	OrderID  string
	AgentID  string
	Symbol   string
	Side     OrderSide
	Price    decimal.Decimal
	Quantity int64
	Round    int
	Sequence uint64
}

// Cost returns price × quantity, the cash a buy order must be able to cover.
func (o *Order) Cost() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}
