package market

import (
	"fmt"
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
)

// InflationKind selects how the per-round inflation rate is produced.
type InflationKind string

const (
	// InflationFixed applies the same configured rate every round.
	InflationFixed InflationKind = "fixed"
	// InflationGaussian draws each round's rate from a normal
	// distribution using the market's seeded generator.
	InflationGaussian InflationKind = "gaussian"
)

// InflationConfig describes the inflation model. Rates compound: each
// round every price is multiplied by (1 + rate), never incremented.
type InflationConfig struct {
	Kind   InflationKind
	Rate   float64 // fixed
	Mean   float64 // gaussian
	StdDev float64 // gaussian
}

func (c InflationConfig) validate() error {
	switch c.Kind {
	case InflationFixed:
		if c.Rate <= -1 {
			return &domain.ConfigError{Entity: "inflation", Reason: fmt.Sprintf("rate must be > -1, got %v", c.Rate)}
		}
	case InflationGaussian:
		if c.Mean <= -1 {
			return &domain.ConfigError{Entity: "inflation", Reason: fmt.Sprintf("mean must be > -1, got %v", c.Mean)}
		}
		if c.StdDev < 0 {
			return &domain.ConfigError{Entity: "inflation", Reason: fmt.Sprintf("stddev must be >= 0, got %v", c.StdDev)}
		}
	default:
		return &domain.ConfigError{Entity: "inflation", Reason: fmt.Sprintf("unknown kind %q", c.Kind)}
	}
	return nil
}

// draw produces this round's rate. Gaussian draws take exactly one value
// from the generator; fixed takes none.
func (c InflationConfig) draw(rng *rand.Rand) float64 {
	if c.Kind == InflationGaussian {
		return c.Mean + rng.NormFloat64()*c.StdDev
	}
	return c.Rate
}
