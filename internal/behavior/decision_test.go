package behavior

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

func testView(cash string, units map[string]int64, params domain.BehaviorParams) AgentView {
	return AgentView{
		AgentID:        "a1",
		AvailableCash:  decimal.RequireFromString(cash),
		AvailableUnits: units,
		Params:         params,
	}
}

func testSnapshot() MarketSnapshot {
	return MarketSnapshot{
		Round:   0,
		Symbols: []string{"PETR4", "VALE3"},
		Prices: map[string]decimal.Decimal{
			"PETR4": decimal.RequireFromString("25"),
			"VALE3": decimal.RequireFromString("60"),
		},
	}
}

func TestDefault_SameSeedSameIntents(t *testing.T) {
	view := testView("10000", map[string]int64{"PETR4": 50, "VALE3": 20}, domain.BehaviorParams{
		Speculation: 0.7,
		Noise:       0.5,
		Literacy:    0.3,
	})
	snap := testSnapshot()

	decide := Default()
	first := decide(view, snap, rand.New(rand.NewSource(99)))
	second := decide(view, snap, rand.New(rand.NewSource(99)))

	if len(first) != len(second) {
		t.Fatalf("intent counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Symbol != b.Symbol || a.Side != b.Side || !a.Price.Equal(b.Price) || a.Quantity != b.Quantity {
			t.Errorf("intent %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestDefault_FixedDrawCount(t *testing.T) {
	// The function must consume three draws per instrument on every branch,
	// so the state of the generator after a call depends only on the symbol
	// count. An agent with nothing to trade must not shift later draws.
	snap := testSnapshot()
	decide := Default()

	rich := rand.New(rand.NewSource(7))
	broke := rand.New(rand.NewSource(7))

	decide(testView("10000", map[string]int64{"PETR4": 50}, domain.BehaviorParams{}), snap, rich)
	decide(testView("0", nil, domain.BehaviorParams{}), snap, broke)

	for i := 0; i < 10; i++ {
		a, b := rich.Float64(), broke.Float64()
		if a != b {
			t.Fatalf("draw %d diverged after decision: %v vs %v", i, a, b)
		}
	}
}

func TestDefault_StaysWithinMeans(t *testing.T) {
	view := testView("500", map[string]int64{"PETR4": 10, "VALE3": 3}, domain.BehaviorParams{
		Speculation: 1,
		Noise:       1,
		Literacy:    0,
	})
	snap := testSnapshot()
	decide := Default()

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, intent := range decide(view, snap, rng) {
			if intent.Quantity < 1 {
				t.Fatalf("seed %d: intent quantity %d < 1", seed, intent.Quantity)
			}
			if !intent.Price.IsPositive() {
				t.Fatalf("seed %d: non-positive limit price %s", seed, intent.Price)
			}
			switch intent.Side {
			case domain.OrderSideBuy:
				cost := intent.Price.Mul(decimal.NewFromInt(intent.Quantity))
				if cost.Cmp(view.AvailableCash) > 0 {
					t.Fatalf("seed %d: buy cost %s exceeds available cash %s", seed, cost, view.AvailableCash)
				}
			case domain.OrderSideSell:
				if intent.Quantity > view.AvailableUnits[intent.Symbol] {
					t.Fatalf("seed %d: sell quantity %d exceeds held %d", seed, intent.Quantity, view.AvailableUnits[intent.Symbol])
				}
			}
		}
	}
}

func TestNone(t *testing.T) {
	if got := None(testView("100", nil, domain.BehaviorParams{}), testSnapshot(), rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("None returned %v, want nil", got)
	}
}
