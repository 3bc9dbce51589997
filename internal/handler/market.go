package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/market"
)

// MarketHandler serves the read surface of one simulation run.
type MarketHandler struct {
	market *market.Market
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(m *market.Market) *MarketHandler {
	return &MarketHandler{market: m}
}

type instrumentResponse struct {
	Symbol           string          `json:"symbol"`
	Kind             string          `json:"kind"`
	Price            decimal.Decimal `json:"price"`
	OutstandingUnits int64           `json:"outstanding_units"`
	AccruedIncome    decimal.Decimal `json:"accrued_income"`
}

// ListInstruments returns every instrument with its current price and,
// for funds, pending income.
func (h *MarketHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	views := h.market.Instruments()
	resp := make([]instrumentResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, instrumentResponse{
			Symbol:           v.Symbol,
			Kind:             string(v.Kind),
			Price:            v.Price,
			OutstandingUnits: v.OutstandingUnits,
			AccruedIncome:    v.AccruedIncome,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetPriceHistory returns one instrument's per-round price series.
func (h *MarketHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	history, ok := h.market.PriceHistory()[symbol]
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_instrument", "no such instrument: "+symbol)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"prices": history,
	})
}

type bookLevelResponse struct {
	Price         decimal.Decimal `json:"price"`
	TotalQuantity int64           `json:"total_quantity"`
	OrderCount    int             `json:"order_count"`
}

// GetBook returns up to ten aggregated price levels per side of one
// instrument's resting book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	buys, sells, err := h.market.Depth(symbol, 10)
	if err != nil {
		WriteError(w, http.StatusNotFound, "unknown_instrument", "no such instrument: "+symbol)
		return
	}
	toResp := func(levels []market.PriceLevel) []bookLevelResponse {
		resp := make([]bookLevelResponse, 0, len(levels))
		for _, l := range levels {
			resp = append(resp, bookLevelResponse{
				Price:         l.Price,
				TotalQuantity: l.TotalQuantity,
				OrderCount:    l.OrderCount,
			})
		}
		return resp
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"buys":   toResp(buys),
		"sells":  toResp(sells),
	})
}

type agentResponse struct {
	AgentID  string          `json:"agent_id"`
	Cash     decimal.Decimal `json:"cash"`
	NetWorth decimal.Decimal `json:"net_worth"`
}

// ListAgents returns every agent with its current cash and net worth.
func (h *MarketHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	views := h.market.Agents()
	resp := make([]agentResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, agentResponse{
			AgentID:  v.AgentID,
			Cash:     v.Cash,
			NetWorth: v.NetWorth,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetNetWorthHistory returns one agent's per-round net-worth series.
func (h *MarketHandler) GetNetWorthHistory(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	history, ok := h.market.NetWorthHistory()[agentID]
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_agent", "no such agent: "+agentID)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"agent_id":  agentID,
		"net_worth": history,
	})
}

type transactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	Round         int             `json:"round"`
}

// ListTransactions returns the full settlement log in order.
func (h *MarketHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.market.Transactions()
	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, transactionResponse{
			TransactionID: t.TransactionID,
			Symbol:        t.Symbol,
			Price:         t.Price,
			Quantity:      t.Quantity,
			BuyerID:       t.BuyerID,
			SellerID:      t.SellerID,
			Round:         t.Round,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetInflationHistory returns the per-round inflation rates applied so far.
func (h *MarketHandler) GetInflationHistory(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"rates": h.market.InflationHistory(),
	})
}

// GetRounds returns the run's progress through its configured rounds.
func (h *MarketHandler) GetRounds(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"round":           h.market.Round(),
		"total_rounds":    h.market.TotalRounds(),
		"phase":           h.market.Phase(),
		"dropped_intents": h.market.DroppedIntents(),
	})
}

// AdvanceRound runs one round. Once the configured rounds are exhausted it
// responds 409 Conflict.
func (h *MarketHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	if err := h.market.RunRound(r.Context()); err != nil {
		var stateErr *domain.StateError
		if errors.As(err, &stateErr) {
			WriteError(w, http.StatusConflict, "state_error", stateErr.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"round": h.market.Round(),
	})
}
