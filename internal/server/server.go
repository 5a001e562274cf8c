// Package server exposes the conversion engine to the out-of-process UI
// shell: JSON endpoints for input edits, settings, and state reads, plus a
// WebSocket stream of refresh-cycle outcomes and elapsed-time ticks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/app"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/engine"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/infra"
)

// Server is the presentation boundary. It owns the ephemeral ActiveInput
// state; everything durable lives behind the refresher and its store.
type Server struct {
	refresher *app.Refresher
	limiter   *infra.RateLimiter
	httpSrv   *http.Server

	inputMu sync.Mutex
	input   *domain.ActiveInput
}

// New builds the server with its routes registered.
func New(addr string, refresher *app.Refresher) *Server {
	s := &Server{
		refresher: refresher,
		// Manual refresh: small burst, roughly one call per ten seconds
		// sustained, to stay inside the price API's free tier.
		limiter: infra.NewRateLimiter(3, 0.1),
		input:   domain.NewActiveInput(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("POST /api/v1/input", s.handleInput)
	mux.HandleFunc("GET /api/v1/rates", s.handleGetRates)
	mux.HandleFunc("PUT /api/v1/rates", s.handleSaveRates)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// resultPayload renders a conversion result for the wire: display strings per
// field, with unavailable outputs as the placeholder.
type resultPayload struct {
	Outputs map[domain.Symbol]string `json:"outputs"`
	USD     string                   `json:"usd"`
}

func renderResult(res domain.ConversionResult) resultPayload {
	return resultPayload{
		Outputs: res.Display(),
		USD:     res.USD.Format(2),
	}
}

// statePayload is the full screen state for GET /api/v1/state.
type statePayload struct {
	Prices       map[domain.Symbol]string `json:"prices"`
	Rates        ratesPayload             `json:"rates"`
	ActiveField  domain.Symbol            `json:"active_field,omitempty"`
	ActiveText   string                   `json:"active_text,omitempty"`
	Result       resultPayload            `json:"result"`
	ElapsedSec   int64                    `json:"elapsed_sec"`
	HasElapsed   bool                     `json:"has_elapsed"`
	ElapsedLabel string                   `json:"elapsed_label"`
}

type ratesPayload struct {
	BynPerUsd string `json:"byn_per_usd"`
	RubPerUsd string `json:"rub_per_usd"`
	Markup    string `json:"markup"`
}

func renderRates(r domain.RateConfig) ratesPayload {
	return ratesPayload{
		BynPerUsd: r.BynPerUsd.String(),
		RubPerUsd: r.RubPerUsd.String(),
		Markup:    r.Markup.String(),
	}
}

func (s *Server) currentResult() (domain.Symbol, string, domain.ConversionResult) {
	s.inputMu.Lock()
	active, text, ok := s.input.Active()
	s.inputMu.Unlock()

	if !ok {
		return "", "", domain.EmptyResult()
	}
	return active, text, engine.Convert(active, text, s.refresher.Snapshot(), s.refresher.Rates())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	prices := s.refresher.Snapshot()
	priceLabels := make(map[domain.Symbol]string, len(domain.CryptoSymbols))
	for _, sym := range domain.CryptoSymbols {
		if p, ok := prices.Price(sym); ok {
			priceLabels[sym] = p.StringFixed(2)
		} else {
			priceLabels[sym] = domain.Placeholder
		}
	}

	active, text, result := s.currentResult()
	elapsed, hasElapsed := s.refresher.Elapsed()

	writeJSON(w, http.StatusOK, statePayload{
		Prices:       priceLabels,
		Rates:        renderRates(s.refresher.Rates()),
		ActiveField:  active,
		ActiveText:   text,
		Result:       renderResult(result),
		ElapsedSec:   elapsed,
		HasElapsed:   hasElapsed,
		ElapsedLabel: app.ElapsedLabel(elapsed, hasElapsed),
	})
}

type inputRequest struct {
	Field domain.Symbol `json:"field"`
	Text  string        `json:"text"`
}

// handleInput records an edit to one field. Setting any field clears the
// other four, so exactly one field is ever active.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.inputMu.Lock()
	err := s.input.Set(req.Field, req.Text)
	s.inputMu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, _, result := s.currentResult()
	writeJSON(w, http.StatusOK, renderResult(result))
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderRates(s.refresher.Rates()))
}

func (s *Server) handleSaveRates(w http.ResponseWriter, r *http.Request) {
	var req ratesPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates, err := parseRates(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.refresher.SetRates(r.Context(), rates); err != nil {
		if errors.Is(err, domain.ErrInvalidRate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to save rates", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to save rates")
		return
	}

	writeJSON(w, http.StatusOK, renderRates(s.refresher.Rates()))
}

func parseRates(p ratesPayload) (domain.RateConfig, error) {
	var rates domain.RateConfig
	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"byn_per_usd", p.BynPerUsd, &rates.BynPerUsd},
		{"rub_per_usd", p.RubPerUsd, &rates.RubPerUsd},
		{"markup", p.Markup, &rates.Markup},
	} {
		v, ok := engine.ParseAmount(field.raw)
		if !ok {
			return rates, errors.New("unparseable value for " + field.name)
		}
		*field.dst = v
	}
	return rates, rates.Validate()
}

// handleRefresh triggers an immediate fetch cycle, rate-limited.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.TryAcquire() {
		writeError(w, http.StatusTooManyRequests, "refresh rate limit exceeded")
		return
	}
	if !s.refresher.TriggerRefresh() {
		writeError(w, http.StatusConflict, "refresh already pending")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
