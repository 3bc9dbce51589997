package domain

import "github.com/shopspring/decimal"

// Transaction is the immutable record of a completed match: the
// authoritative settlement record. Price is the clearing price — always the
// resting order's limit price. The buy/sell order IDs let settlement release
// the exact reservation each side posted.
type Transaction struct {
	TransactionID string
	Symbol        string
	Price         decimal.Decimal
	Quantity      int64
	BuyerID       string
	SellerID      string
	BuyOrderID    string
	SellOrderID   string
	Round         int
}

// Value returns clearing price × quantity, the cash that moves from buyer
// to seller when the transaction settles.
func (t *Transaction) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
