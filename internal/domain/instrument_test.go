package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInstrument_AccrueIncome(t *testing.T) {
	fund := &Instrument{
		Symbol:           "FII_A",
		Kind:             InstrumentKindFund,
		Price:            decimal.RequireFromString("100"),
		OutstandingUnits: 200,
		YieldRate:        decimal.RequireFromString("0.05"),
	}

	fund.AccrueIncome()
	// 0.05 × 100 × 200 = 1000.
	if !fund.AccruedIncome.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("accrued income = %s, want 1000", fund.AccruedIncome)
	}

	fund.AccrueIncome()
	if !fund.AccruedIncome.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("accrued income after second round = %s, want 2000", fund.AccruedIncome)
	}
}

func TestInstrument_AccrueIncome_AssetNoOp(t *testing.T) {
	asset := &Instrument{
		Symbol:           "PETR4",
		Kind:             InstrumentKindAsset,
		Price:            decimal.RequireFromString("50"),
		OutstandingUnits: 400,
	}
	asset.AccrueIncome()
	if !asset.AccruedIncome.IsZero() {
		t.Errorf("asset accrued income = %s, want 0", asset.AccruedIncome)
	}
	if asset.IsFund() {
		t.Error("asset reported as fund")
	}
}
