// Package handler exposes a read-only HTTP surface over a finished or
// in-progress simulation: histories, the transaction log, book depth, and
// a websocket stream of round snapshots. Handlers only read the market's
// accessors; advancing a round is the single command.
package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/marketsim/internal/market"
)

// NewRouter creates a chi router with all routes registered and request
// logging middleware.
func NewRouter(m *market.Market, hub *Hub, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))

	marketH := NewMarketHandler(m)
	streamH := NewStreamHandler(hub, logger)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Instrument routes.
	r.Get("/instruments", marketH.ListInstruments)
	r.Get("/instruments/{symbol}/prices", marketH.GetPriceHistory)
	r.Get("/instruments/{symbol}/book", marketH.GetBook)

	// Agent routes.
	r.Get("/agents", marketH.ListAgents)
	r.Get("/agents/{agent_id}/networth", marketH.GetNetWorthHistory)

	// Run routes.
	r.Get("/transactions", marketH.ListTransactions)
	r.Get("/inflation", marketH.GetInflationHistory)
	r.Get("/rounds", marketH.GetRounds)
	r.Post("/rounds", marketH.AdvanceRound)

	// Stream.
	r.Get("/ws", streamH.ServeWS)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack exposes the underlying connection so the websocket upgrade works
// through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
