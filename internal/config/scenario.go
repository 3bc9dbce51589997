package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/market"
)

// defaultDividendInterval pays fund dividends every 22nd round, the
// trading-days-per-month cadence the simulation models.
const defaultDividendInterval = 22

// Scenario is the YAML description of one simulation run. Structural
// validation happens here; semantic validation (unknown instrument
// references, out-of-range rates) happens in market.New.
type Scenario struct {
	Seed             int64            `yaml:"seed"`
	Rounds           int              `yaml:"rounds"`
	DividendInterval int              `yaml:"dividend_interval"`
	OrderTTLRounds   int              `yaml:"order_ttl_rounds"`
	Inflation        InflationSpec    `yaml:"inflation"`
	Instruments      []InstrumentSpec `yaml:"instruments"`
	Agents           []AgentSpec      `yaml:"agents"`
}

// InflationSpec selects fixed or gaussian per-round inflation.
type InflationSpec struct {
	Kind   string  `yaml:"kind"`
	Rate   float64 `yaml:"rate"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
}

// InstrumentSpec seeds one asset or fund.
type InstrumentSpec struct {
	Symbol           string  `yaml:"symbol"`
	Kind             string  `yaml:"kind"`
	Price            float64 `yaml:"price"`
	OutstandingUnits int64   `yaml:"outstanding_units"`
	YieldRate        float64 `yaml:"yield_rate"`
}

// AgentSpec seeds one agent.
type AgentSpec struct {
	ID       string           `yaml:"id"`
	Cash     float64          `yaml:"cash"`
	Holdings map[string]int64 `yaml:"holdings"`
	Behavior BehaviorSpec     `yaml:"behavior"`
}

// BehaviorSpec holds the agent's behavioral coefficients, each in [0, 1].
type BehaviorSpec struct {
	Speculation float64 `yaml:"speculation"`
	Noise       float64 `yaml:"noise"`
	Literacy    float64 `yaml:"literacy"`
}

// LoadScenario reads and decodes a scenario file, rejecting unknown fields,
// and applies defaults (inflation kind "fixed", dividend interval 22).
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, &domain.ConfigError{Entity: "scenario", Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if s.Inflation.Kind == "" {
		s.Inflation.Kind = string(market.InflationFixed)
	}
	if s.DividendInterval == 0 {
		s.DividendInterval = defaultDividendInterval
	}
	return &s, nil
}

// MarketConfig maps the scenario onto a market.Config. market.New performs
// the authoritative validation.
func (s *Scenario) MarketConfig() market.Config {
	instruments := make([]market.InstrumentConfig, 0, len(s.Instruments))
	for _, is := range s.Instruments {
		instruments = append(instruments, market.InstrumentConfig{
			Symbol:           is.Symbol,
			Kind:             domain.InstrumentKind(is.Kind),
			Price:            is.Price,
			OutstandingUnits: is.OutstandingUnits,
			YieldRate:        is.YieldRate,
		})
	}
	agents := make([]market.AgentConfig, 0, len(s.Agents))
	for _, as := range s.Agents {
		agents = append(agents, market.AgentConfig{
			AgentID:  as.ID,
			Cash:     as.Cash,
			Holdings: as.Holdings,
			Behavior: domain.BehaviorParams{
				Speculation: as.Behavior.Speculation,
				Noise:       as.Behavior.Noise,
				Literacy:    as.Behavior.Literacy,
			},
		})
	}
	return market.Config{
		Instruments: instruments,
		Agents:      agents,
		Rounds:      s.Rounds,
		Inflation: market.InflationConfig{
			Kind:   market.InflationKind(s.Inflation.Kind),
			Rate:   s.Inflation.Rate,
			Mean:   s.Inflation.Mean,
			StdDev: s.Inflation.StdDev,
		},
		DividendInterval: s.DividendInterval,
		OrderTTLRounds:   s.OrderTTLRounds,
		Seed:             s.Seed,
	}
}
