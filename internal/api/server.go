// Package api provides a read-only HTTP API for observing a running simulation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/engine"
	"github.com/talgya/compliance-sim/internal/persistence"
	"github.com/talgya/compliance-sim/internal/world"
)

// Defaults for the per-client limit.
const (
	DefaultRateLimit  = 120
	DefaultRateWindow = time.Minute
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim  *engine.Simulation
	Eng  *engine.Engine
	DB   *persistence.DB // Optional; enables /stats/history
	Port int

	limiter *RateLimiter
}

// NewServer creates a server with the default rate limit.
func NewServer(sim *engine.Simulation, eng *engine.Engine, db *persistence.DB, port int) *Server {
	return &Server{
		Sim:     sim,
		Eng:     eng,
		DB:      db,
		Port:    port,
		limiter: NewRateLimiter(DefaultRateLimit, DefaultRateWindow),
	}
}

// Handler returns the routed, rate-limited handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/v1/agent/{id}", s.handleAgent)
	mux.HandleFunc("GET /api/v1/network", s.handleNetwork)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	return s.limiter.Middleware(mux)
}

// Serve listens on Port until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go s.limiter.RunCleanup(ctx)

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":       "compliance-sim",
		"simulation": s.Sim.Status(),
	}
	if s.Eng != nil {
		status["running"] = s.Eng.Running()
		status["max_periods"] = s.Eng.MaxPeriods
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	type statuteSummary struct {
		*behavior.ComplianceStats
		ComplianceRate float64 `json:"compliance_rate"`
		EvasionRate    float64 `json:"evasion_rate"`
		Summary        string  `json:"summary"`
	}

	report, ok := s.Sim.LatestReport()
	if !ok {
		writeJSON(w, map[string]any{"period": 0, "statutes": []statuteSummary{}})
		return
	}

	statutes := make([]statuteSummary, 0, len(report.Stats))
	for _, cs := range report.Stats {
		statutes = append(statutes, statuteSummary{
			ComplianceStats: cs,
			ComplianceRate:  cs.ComplianceRate(),
			EvasionRate:     cs.EvasionRate(),
			Summary:         cs.Summary(),
		})
	}
	writeJSON(w, map[string]any{
		"period":          report.Period,
		"date":            report.Date.Format(time.DateOnly),
		"detections":      report.Detections,
		"penalties_paid":  report.PenaltiesPaid,
		"messages_sent":   report.MessagesSent,
		"messages_pruned": report.MessagesPruned,
		"statutes":        statutes,
	})
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.DB.PeriodStats(r.URL.Query().Get("statute"))
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.PeriodStat{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	view, ok := s.Sim.Agent(behavior.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.NetworkSummary())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	events := s.Sim.RecentEvents(0)
	out := make([]engine.Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if category != "" && events[i].Category != category {
			continue
		}
		out = append(out, events[i])
	}
	writeJSON(w, out)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	type regionEntry struct {
		Q            int                `json:"q"`
		R            int                `json:"r"`
		Regime       string             `json:"regime"`
		Enforcement  float64            `json:"enforcement"`
		Norm         float64            `json:"norm"`
		PenaltyScale float64            `json:"penalty_scale"`
		Compliance   map[string]float64 `json:"compliance,omitempty"`
	}

	m := s.Sim.Map
	status := s.Sim.Status()
	regions := make([]regionEntry, 0, m.RegionCount())
	for _, c := range m.Coords() {
		reg := m.Get(c)
		entry := regionEntry{
			Q:            c.Q,
			R:            c.R,
			Regime:       world.RegimeName(reg.Regime),
			Enforcement:  reg.Enforcement,
			Norm:         reg.Norm,
			PenaltyScale: reg.PenaltyScale,
		}
		for _, id := range status.Statutes {
			if rate, ok := s.Sim.RegionCompliance(c, id); ok {
				if entry.Compliance == nil {
					entry.Compliance = make(map[string]float64)
				}
				entry.Compliance[id] = rate
			}
		}
		regions = append(regions, entry)
	}

	writeJSON(w, map[string]any{
		"radius":  m.Radius,
		"regions": regions,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write json", "error", err)
	}
}
