package domain

import "github.com/shopspring/decimal"

// InstrumentKind distinguishes plain assets from income-producing funds.
type InstrumentKind string

const (
	InstrumentKindAsset InstrumentKind = "asset"
	InstrumentKindFund  InstrumentKind = "fund"
)

// Instrument is a tradeable asset or fund. Price is the last-cleared trade
// price (or the initial price if untraded) adjusted for inflation; it stays
// strictly positive for the lifetime of a run. OutstandingUnits is fixed
// after initialization — there are no issuance events.
type Instrument struct {
	Symbol           string
	Kind             InstrumentKind
	Price            decimal.Decimal
	OutstandingUnits int64

	// YieldRate is the per-payment-cycle income rate on the unit price.
	// Funds only; zero for assets.
	YieldRate decimal.Decimal

	// AccruedIncome is undistributed fund income. It grows each round and
	// resets to zero when dividends are paid.
	AccruedIncome decimal.Decimal
}

// IsFund reports whether the instrument distributes dividends.
func (i *Instrument) IsFund() bool {
	return i.Kind == InstrumentKindFund
}

// AccrueIncome adds one round of income, yield_rate × price × outstanding
// units, to the fund's undistributed balance. No-op for assets.
func (i *Instrument) AccrueIncome() {
	if !i.IsFund() {
		return
	}
	units := decimal.NewFromInt(i.OutstandingUnits)
	i.AccruedIncome = i.AccruedIncome.Add(i.YieldRate.Mul(i.Price).Mul(units))
}
