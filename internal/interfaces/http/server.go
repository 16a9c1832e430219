// Package http exposes the admission pipeline, tracker, and trust engine
// over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/signalward/signalward/internal/domain"
	"github.com/signalward/signalward/internal/filters"
	"github.com/signalward/signalward/internal/metrics"
	"github.com/signalward/signalward/internal/tracker"
	"github.com/signalward/signalward/internal/trust"
)

// MarginSource supplies the latest margin snapshot for admission checks.
type MarginSource interface {
	Latest() domain.MarginStatus
}

// Config tunes the HTTP listener.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the admission pipeline, tracker, and trust engine behind a
// JSON API.
type Server struct {
	cfg       Config
	pipeline  *filters.Pipeline
	tracker   *tracker.Tracker
	trust     *trust.Engine
	margin    MarginSource
	collector *metrics.Collector
	router    *mux.Router
}

func NewServer(cfg Config, pipeline *filters.Pipeline, trk *tracker.Tracker,
	engine *trust.Engine, margin MarginSource, collector *metrics.Collector) *Server {
	s := &Server{
		cfg:       cfg,
		pipeline:  pipeline,
		tracker:   trk,
		trust:     engine,
		margin:    margin,
		collector: collector,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/admit", s.handleAdmit).Methods(http.MethodPost)
	s.router.HandleFunc("/records", s.handleAddRecords).Methods(http.MethodPost)
	s.router.HandleFunc("/providers", s.handleListProviders).Methods(http.MethodGet)
	s.router.HandleFunc("/providers/trust", s.handleTrustComparison).Methods(http.MethodGet)
	s.router.HandleFunc("/providers/{id}/stats", s.handleProviderStats).Methods(http.MethodGet)
	s.router.HandleFunc("/providers/{id}/trust", s.handleProviderTrust).Methods(http.MethodGet)
	s.router.HandleFunc("/providers/{id}", s.handleResetProvider).Methods(http.MethodDelete)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.collector != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.collector.Registry(), promhttp.HandlerOpts{}))
	}
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type admitRequest struct {
	Signal domain.Signal `json:"signal"`
}

type admitResponse struct {
	Verdict *filters.Verdict `json:"verdict"`
	Summary string           `json:"summary"`
}

func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid admit request: "+err.Error())
		return
	}
	if req.Signal.Symbol == "" {
		writeError(w, http.StatusBadRequest, "signal.symbol is required")
		return
	}

	snapshot := s.margin.Latest()
	started := time.Now()
	verdict := s.pipeline.Evaluate(&req.Signal, &snapshot, time.Now().UTC())
	if s.collector != nil {
		s.collector.RecordVerdict(verdict, time.Since(started))
	}

	log.Info().Str("symbol", req.Signal.Symbol).Bool("allow", verdict.Allow).
		Strs("reasons", verdict.Reasons).Msg("admission verdict")
	writeJSON(w, http.StatusOK, admitResponse{Verdict: verdict, Summary: verdict.Summary()})
}

func (s *Server) handleAddRecords(w http.ResponseWriter, r *http.Request) {
	var recs []domain.SignalExecutionData
	if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid records payload: "+err.Error())
		return
	}
	if err := s.tracker.AddSignalDataBatch(r.Context(), recs); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if s.collector != nil {
		s.collector.RecordIngest(len(recs))
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(recs)})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.tracker.ProviderIDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
}

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["id"]
	stats, err := s.tracker.SuccessStats(r.Context(), providerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProviderTrust(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["id"]
	recs, err := s.tracker.ProviderRecords(r.Context(), providerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.trust.Score(providerID, recs))
}

func (s *Server) handleTrustComparison(w http.ResponseWriter, r *http.Request) {
	providers, err := s.tracker.ProviderIDs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results := make([]*trust.Result, 0, len(providers))
	for _, providerID := range providers {
		recs, err := s.tracker.ProviderRecords(r.Context(), providerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		results = append(results, s.trust.Score(providerID, recs))
	}
	writeJSON(w, http.StatusOK, s.trust.Compare(results))
}

func (s *Server) handleResetProvider(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["id"]
	if err := s.tracker.Reset(r.Context(), providerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset": providerID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, err := s.tracker.TotalSignals(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	snapshot := s.margin.Latest()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"total_signals":    total,
		"margin_connected": snapshot.IsConnected,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
