// Package market owns the simulation: the instrument set, the agent set,
// one order book per instrument, the transaction log, and the round loop
// that sequences collection, matching, settlement, inflation, and dividend
// payment. A Market is scoped to exactly one run; nothing is shared between
// runs.
package market

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/behavior"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/store"
)

// Phase is the market's position within the round state machine.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseCollecting     Phase = "collecting"
	PhaseMatching       Phase = "matching"
	PhaseSettling       Phase = "settling"
	PhaseAdjusting      Phase = "adjusting"
	PhaseDividendPaying Phase = "dividend_paying"
)

// InstrumentConfig seeds one tradeable instrument.
type InstrumentConfig struct {
	Symbol           string
	Kind             domain.InstrumentKind
	Price            float64
	OutstandingUnits int64
	YieldRate        float64 // funds only
}

// AgentConfig seeds one agent with cash, optional initial holdings, and its
// behavioral parameters.
type AgentConfig struct {
	AgentID  string
	Cash     float64
	Holdings map[string]int64
	Behavior domain.BehaviorParams
}

// Config fully describes one simulation run.
type Config struct {
	Instruments []InstrumentConfig
	Agents      []AgentConfig
	Rounds      int
	Inflation   InflationConfig

	// DividendInterval is the number of rounds between fund payouts.
	// Income accrues every round regardless.
	DividendInterval int

	// OrderTTLRounds expires resting orders that many rounds after
	// submission, releasing their reservations. 0 means orders never
	// expire.
	OrderTTLRounds int

	// Seed fixes the single random generator. Two runs with the same
	// seed and config produce identical transaction logs and histories.
	Seed int64

	// Decision is the agent decision function. Nil selects
	// behavior.Default().
	Decision behavior.DecisionFunc

	// OnRound, when set, receives a snapshot after every completed round.
	OnRound func(RoundSnapshot)

	Logger *slog.Logger
}

// Market drives the simulation. All exported methods are safe for
// concurrent use; rounds execute under the write lock, so readers observe
// only whole-round boundaries.
type Market struct {
	mu     sync.RWMutex
	logger *slog.Logger
	rng    *rand.Rand

	instruments map[string]*domain.Instrument
	symbols     []string // ascending; the deterministic iteration order
	agents      map[string]*domain.Agent
	agentIDs    []string // ascending; the deterministic iteration order

	books  map[string]*engine.OrderBook
	orders *store.OrderStore
	txLog  *store.TransactionStore

	decide    behavior.DecisionFunc
	inflation InflationConfig
	onRound   func(RoundSnapshot)

	rounds           int
	round            int // completed rounds
	phase            Phase
	sequence         uint64
	dividendInterval int
	orderTTL         int
	dropped          int

	priceHist       map[string][]decimal.Decimal
	netWorthHist    map[string][]decimal.Decimal
	inflationHist   []float64
	marketValueHist []decimal.Decimal
}

// New validates the configuration and builds a fresh market. It returns a
// *domain.ConfigError naming the offending entity for any invalid input:
// unknown instrument references, out-of-range inflation parameters,
// non-positive initial prices.
func New(cfg Config) (*Market, error) {
	if cfg.Rounds < 1 {
		return nil, &domain.ConfigError{Entity: "rounds", Reason: fmt.Sprintf("must be >= 1, got %d", cfg.Rounds)}
	}
	if len(cfg.Instruments) == 0 {
		return nil, &domain.ConfigError{Entity: "instruments", Reason: "at least one instrument is required"}
	}
	if cfg.DividendInterval < 1 {
		return nil, &domain.ConfigError{Entity: "dividend_interval", Reason: fmt.Sprintf("must be >= 1, got %d", cfg.DividendInterval)}
	}
	if cfg.OrderTTLRounds < 0 {
		return nil, &domain.ConfigError{Entity: "order_ttl_rounds", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.OrderTTLRounds)}
	}
	if err := cfg.Inflation.validate(); err != nil {
		return nil, err
	}

	instruments := make(map[string]*domain.Instrument, len(cfg.Instruments))
	for _, ic := range cfg.Instruments {
		if ic.Symbol == "" {
			return nil, &domain.ConfigError{Entity: "instrument", Reason: "empty symbol"}
		}
		if _, dup := instruments[ic.Symbol]; dup {
			return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: "duplicate instrument symbol"}
		}
		if ic.Price <= 0 {
			return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: fmt.Sprintf("initial price must be positive, got %v", ic.Price)}
		}
		if ic.OutstandingUnits < 0 {
			return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: fmt.Sprintf("outstanding units must be >= 0, got %d", ic.OutstandingUnits)}
		}
		switch ic.Kind {
		case domain.InstrumentKindAsset:
			if ic.YieldRate != 0 {
				return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: "yield_rate is only valid for funds"}
			}
		case domain.InstrumentKindFund:
			if ic.YieldRate < 0 {
				return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: fmt.Sprintf("yield_rate must be >= 0, got %v", ic.YieldRate)}
			}
		default:
			return nil, &domain.ConfigError{Entity: ic.Symbol, Reason: fmt.Sprintf("unknown instrument kind %q", ic.Kind)}
		}
		instruments[ic.Symbol] = &domain.Instrument{
			Symbol:           ic.Symbol,
			Kind:             ic.Kind,
			Price:            domain.Price(ic.Price),
			OutstandingUnits: ic.OutstandingUnits,
			YieldRate:        domain.Price(ic.YieldRate),
			AccruedIncome:    decimal.Zero,
		}
	}

	agents := make(map[string]*domain.Agent, len(cfg.Agents))
	heldUnits := make(map[string]int64)
	for _, ac := range cfg.Agents {
		if ac.AgentID == "" {
			return nil, &domain.ConfigError{Entity: "agent", Reason: "empty agent id"}
		}
		if _, dup := agents[ac.AgentID]; dup {
			return nil, &domain.ConfigError{Entity: ac.AgentID, Reason: "duplicate agent id"}
		}
		if ac.Cash < 0 {
			return nil, &domain.ConfigError{Entity: ac.AgentID, Reason: fmt.Sprintf("initial cash must be >= 0, got %v", ac.Cash)}
		}
		if err := validateBehavior(ac.AgentID, ac.Behavior); err != nil {
			return nil, err
		}
		holdings := make(map[string]*domain.Holding, len(ac.Holdings))
		for symbol, units := range ac.Holdings {
			if _, ok := instruments[symbol]; !ok {
				return nil, &domain.ConfigError{Entity: ac.AgentID, Reason: fmt.Sprintf("holding references unknown instrument %q", symbol)}
			}
			if units < 0 {
				return nil, &domain.ConfigError{Entity: ac.AgentID, Reason: fmt.Sprintf("holding of %q must be >= 0, got %d", symbol, units)}
			}
			if units == 0 {
				continue
			}
			holdings[symbol] = &domain.Holding{Units: units}
			heldUnits[symbol] += units
		}
		agents[ac.AgentID] = &domain.Agent{
			AgentID:  ac.AgentID,
			Cash:     domain.Price(ac.Cash),
			Holdings: holdings,
			Behavior: ac.Behavior,
		}
	}
	for symbol, held := range heldUnits {
		if held > instruments[symbol].OutstandingUnits {
			return nil, &domain.ConfigError{
				Entity: symbol,
				Reason: fmt.Sprintf("agents hold %d units but only %d are outstanding", held, instruments[symbol].OutstandingUnits),
			}
		}
	}

	symbols := make([]string, 0, len(instruments))
	for s := range instruments {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	agentIDs := make([]string, 0, len(agents))
	for id := range agents {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)

	books := make(map[string]*engine.OrderBook, len(symbols))
	priceHist := make(map[string][]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		books[s] = engine.NewOrderBook(s)
		priceHist[s] = []decimal.Decimal{}
	}
	netWorthHist := make(map[string][]decimal.Decimal, len(agentIDs))
	for _, id := range agentIDs {
		netWorthHist[id] = []decimal.Decimal{}
	}

	decide := cfg.Decision
	if decide == nil {
		decide = behavior.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Market{
		logger:           logger,
		rng:              rand.New(rand.NewSource(cfg.Seed)),
		instruments:      instruments,
		symbols:          symbols,
		agents:           agents,
		agentIDs:         agentIDs,
		books:            books,
		orders:           store.NewOrderStore(),
		txLog:            store.NewTransactionStore(),
		decide:           decide,
		inflation:        cfg.Inflation,
		onRound:          cfg.OnRound,
		rounds:           cfg.Rounds,
		phase:            PhaseIdle,
		dividendInterval: cfg.DividendInterval,
		orderTTL:         cfg.OrderTTLRounds,
		priceHist:        priceHist,
		netWorthHist:     netWorthHist,
	}, nil
}

func validateBehavior(agentID string, p domain.BehaviorParams) error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return &domain.ConfigError{Entity: agentID, Reason: fmt.Sprintf("%s must be within [0, 1], got %v", name, v)}
		}
		return nil
	}
	if err := check("speculation", p.Speculation); err != nil {
		return err
	}
	if err := check("noise", p.Noise); err != nil {
		return err
	}
	return check("literacy", p.Literacy)
}

// orderID derives a stable order ID from the submission sequence, so runs
// with the same seed assign identical IDs.
func orderID(sequence uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("order:%d", sequence))).String()
}

// Round returns the number of completed rounds.
func (m *Market) Round() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round
}

// TotalRounds returns the configured round count.
func (m *Market) TotalRounds() int {
	return m.rounds
}

// Phase returns the market's current position in the round state machine.
// Outside RunRound it is always PhaseIdle.
func (m *Market) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// DroppedIntents returns how many agent intents have been dropped by
// validation since the run started.
func (m *Market) DroppedIntents() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

// PriceHistory returns each instrument's per-round price series. Every
// series has exactly Round() entries.
func (m *Market) PriceHistory() map[string][]decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]decimal.Decimal, len(m.priceHist))
	for symbol, series := range m.priceHist {
		cp := make([]decimal.Decimal, len(series))
		copy(cp, series)
		result[symbol] = cp
	}
	return result
}

// NetWorthHistory returns each agent's per-round net-worth series.
func (m *Market) NetWorthHistory() map[string][]decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]decimal.Decimal, len(m.netWorthHist))
	for id, series := range m.netWorthHist {
		cp := make([]decimal.Decimal, len(series))
		copy(cp, series)
		result[id] = cp
	}
	return result
}

// InflationHistory returns the per-round inflation rates actually applied.
func (m *Market) InflationHistory() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp := make([]float64, len(m.inflationHist))
	copy(cp, m.inflationHist)
	return cp
}

// MarketValueHistory returns the per-round total value of all agent-held
// units at current prices.
func (m *Market) MarketValueHistory() []decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp := make([]decimal.Decimal, len(m.marketValueHist))
	copy(cp, m.marketValueHist)
	return cp
}

// Transactions returns the full settlement log in order.
func (m *Market) Transactions() []*domain.Transaction {
	return m.txLog.All()
}

// InstrumentView is a read-only snapshot of one instrument.
type InstrumentView struct {
	Symbol           string
	Kind             domain.InstrumentKind
	Price            decimal.Decimal
	OutstandingUnits int64
	AccruedIncome    decimal.Decimal
}

// Instruments returns a snapshot of every instrument, ordered by symbol.
func (m *Market) Instruments() []InstrumentView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]InstrumentView, 0, len(m.symbols))
	for _, s := range m.symbols {
		inst := m.instruments[s]
		views = append(views, InstrumentView{
			Symbol:           inst.Symbol,
			Kind:             inst.Kind,
			Price:            inst.Price,
			OutstandingUnits: inst.OutstandingUnits,
			AccruedIncome:    inst.AccruedIncome,
		})
	}
	return views
}

// AgentView is a read-only snapshot of one agent's finances.
type AgentView struct {
	AgentID  string
	Cash     decimal.Decimal
	NetWorth decimal.Decimal
}

// Agents returns a snapshot of every agent, ordered by ID.
func (m *Market) Agents() []AgentView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prices := m.currentPrices()
	views := make([]AgentView, 0, len(m.agentIDs))
	for _, id := range m.agentIDs {
		a := m.agents[id]
		views = append(views, AgentView{
			AgentID:  a.AgentID,
			Cash:     a.Cash,
			NetWorth: a.NetWorth(prices),
		})
	}
	return views
}

// AgentHoldings returns a copy of one agent's holdings as total units per
// symbol.
func (m *Market) AgentHoldings(agentID string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return nil, domain.ErrUnknownAgent
	}
	holdings := make(map[string]int64, len(agent.Holdings))
	for symbol, h := range agent.Holdings {
		if h.Units != 0 {
			holdings[symbol] = h.Units
		}
	}
	return holdings, nil
}

// PriceLevel is an aggregated view of one price level of a book side.
type PriceLevel = engine.PriceLevel

// Depth returns up to n aggregated price levels per side of one
// instrument's book.
func (m *Market) Depth(symbol string, n int) (buys, sells []engine.PriceLevel, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	book, ok := m.books[symbol]
	if !ok {
		return nil, nil, domain.ErrUnknownInstrument
	}
	return book.TopBuys(n), book.TopSells(n), nil
}

// currentPrices builds a symbol → price map. Callers must hold the lock.
func (m *Market) currentPrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(m.symbols))
	for _, s := range m.symbols {
		prices[s] = m.instruments[s].Price
	}
	return prices
}
