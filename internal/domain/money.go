package domain

import "github.com/shopspring/decimal"

// Cent is the smallest cash amount the simulator pays out. Prices may carry
// more precision (inflation compounds without truncation); only dividend
// payouts are quantized to cents.
var Cent = decimal.New(1, -2)

// Price converts a configured float price or rate into a decimal value.
// decimal.NewFromFloat uses the shortest round-trip representation, so a
// scenario value of 0.02 becomes exactly 0.02.
func Price(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// FloorToCent truncates a non-negative amount down to whole cents.
func FloorToCent(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(2)
}

// InflationFactor returns the multiplicative factor (1 + rate) applied to
// every instrument price for one round.
func InflationFactor(rate float64) decimal.Decimal {
	return decimal.NewFromFloat(1 + rate)
}
