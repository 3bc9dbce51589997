package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/market"
)

const scenarioYAML = `
seed: 42
rounds: 30
dividend_interval: 10
order_ttl_rounds: 5
inflation:
  kind: gaussian
  mean: 0.005
  stddev: 0.002
instruments:
  - symbol: PETR4
    kind: asset
    price: 25.5
    outstanding_units: 1000
  - symbol: FII_A
    kind: fund
    price: 100
    outstanding_units: 500
    yield_rate: 0.05
agents:
  - id: a1
    cash: 10000
    holdings:
      PETR4: 100
    behavior:
      speculation: 0.7
      noise: 0.4
      literacy: 0.2
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if s.Seed != 42 || s.Rounds != 30 {
		t.Errorf("seed/rounds = %d/%d, want 42/30", s.Seed, s.Rounds)
	}
	if s.DividendInterval != 10 || s.OrderTTLRounds != 5 {
		t.Errorf("dividend_interval/order_ttl = %d/%d, want 10/5", s.DividendInterval, s.OrderTTLRounds)
	}
	if s.Inflation.Kind != "gaussian" || s.Inflation.Mean != 0.005 {
		t.Errorf("inflation = %+v", s.Inflation)
	}
	if len(s.Instruments) != 2 || len(s.Agents) != 1 {
		t.Fatalf("instruments/agents = %d/%d, want 2/1", len(s.Instruments), len(s.Agents))
	}
	if s.Instruments[1].YieldRate != 0.05 {
		t.Errorf("fund yield_rate = %v, want 0.05", s.Instruments[1].YieldRate)
	}
	if s.Agents[0].Holdings["PETR4"] != 100 {
		t.Errorf("holdings = %v", s.Agents[0].Holdings)
	}
}

func TestParseScenario_Defaults(t *testing.T) {
	s, err := ParseScenario([]byte("rounds: 5\ninflation:\n  rate: 0.01\n"))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if s.Inflation.Kind != "fixed" {
		t.Errorf("default inflation kind = %q, want fixed", s.Inflation.Kind)
	}
	if s.DividendInterval != 22 {
		t.Errorf("default dividend interval = %d, want 22", s.DividendInterval)
	}
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte("rounds: 5\nvolatility: high\n"))
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *domain.ConfigError", err)
	}
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("rounds: [unclosed"))
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *domain.ConfigError", err)
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if s.Rounds != 30 {
		t.Errorf("rounds = %d, want 30", s.Rounds)
	}

	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScenario_MarketConfig(t *testing.T) {
	s, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	cfg := s.MarketConfig()

	if cfg.Seed != 42 || cfg.Rounds != 30 || cfg.DividendInterval != 10 || cfg.OrderTTLRounds != 5 {
		t.Errorf("run params not carried over: %+v", cfg)
	}
	if cfg.Inflation.Kind != market.InflationGaussian || cfg.Inflation.StdDev != 0.002 {
		t.Errorf("inflation = %+v", cfg.Inflation)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("instruments = %d, want 2", len(cfg.Instruments))
	}
	if cfg.Instruments[0].Kind != domain.InstrumentKindAsset || cfg.Instruments[1].Kind != domain.InstrumentKindFund {
		t.Errorf("instrument kinds not mapped: %+v", cfg.Instruments)
	}
	if len(cfg.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(cfg.Agents))
	}
	a := cfg.Agents[0]
	if a.AgentID != "a1" || a.Cash != 10000 || a.Behavior.Speculation != 0.7 {
		t.Errorf("agent not mapped: %+v", a)
	}

	// The mapped config must pass market validation.
	if _, err := market.New(cfg); err != nil {
		t.Errorf("market.New rejected a valid scenario: %v", err)
	}
}
