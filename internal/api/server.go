// Package api is the HTTP ingress: web report submissions, the mini-app
// form, segment risk colors and operational endpoints.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/FreiFahren/nlp-service/internal/bot"
	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/risk"
)

//go:embed static/miniapp.html
var miniAppHTML []byte

// Notifier forwards a web report into the chat group.
type Notifier interface {
	Notify(report bot.WebReport, limited bool) (bool, error)
}

// ReportSource provides the live report set for the risk endpoint.
type ReportSource interface {
	RecentReports(ctx context.Context) ([]models.Report, error)
}

// Server is the HTTP API server.
type Server struct {
	router          *mux.Router
	notifier        Notifier
	reports         ReportSource
	engine          *risk.Engine
	reportPassword  string
	restartPassword string
	restart         func()
	address         string
	server          *http.Server
}

// NewServer assembles the router. restart is invoked after a successful
// POST /restart; the process supervisor brings the service back up.
func NewServer(address string, notifier Notifier, reports ReportSource, engine *risk.Engine, reportPassword, restartPassword string, restart func()) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		notifier:        notifier,
		reports:         reports,
		engine:          engine,
		reportPassword:  reportPassword,
		restartPassword: restartPassword,
		restart:         restart,
		address:         address,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/healthcheck", s.handleHealthcheck).Methods("GET")
	s.router.HandleFunc("/report-inspector", s.handleReportInspector).Methods("POST")
	s.router.HandleFunc("/mini-app/report", s.handleMiniAppReport).Methods("POST")
	s.router.HandleFunc("/mini-app", s.handleMiniApp).Methods("GET")
	s.router.HandleFunc("/v0/risk-colors", s.handleRiskColors).Methods("GET")
	s.router.HandleFunc("/restart", s.handleRestart).Methods("POST")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("address", s.address).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// webReportRequest is the body shared by both report ingress routes.
type webReportRequest struct {
	Line      string `json:"line"`
	Station   string `json:"station"`
	Direction string `json:"direction"`
	Message   string `json:"message"`
	StationID string `json:"stationId"`
}

func (s *Server) handleReportInspector(w http.ResponseWriter, r *http.Request) {
	s.forwardReport(w, r, true)
}

func (s *Server) handleMiniAppReport(w http.ResponseWriter, r *http.Request) {
	s.forwardReport(w, r, false)
}

func (s *Server) forwardReport(w http.ResponseWriter, r *http.Request, limited bool) {
	if r.Header.Get("X-Password") != s.reportPassword {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Invalid password", nil)
		return
	}

	var request webReportRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sent, err := s.notifier.Notify(bot.WebReport{
		Line:      request.Line,
		Station:   request.Station,
		Direction: request.Direction,
		Message:   request.Message,
	}, limited)
	if err != nil {
		// The report is lost; the caller's retry policy is external.
		hlog.FromRequest(r).Error().Err(err).Msg("failed to forward report")
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to forward report", err)
		return
	}

	response := map[string]string{"status": "success"}
	if !sent {
		response["message"] = "Rate limited"
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMiniApp(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(miniAppHTML)
}

// riskColorsResponse is the map overlay payload.
type riskColorsResponse struct {
	LastModified  string            `json:"last_modified"`
	SegmentColors map[string]string `json:"segment_colors"`
}

func (s *Server) handleRiskColors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	reports, err := s.reports.RecentReports(ctx)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to fetch reports")
		s.writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch reports", err)
		return
	}

	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, riskColorsResponse{
		LastModified:  now.Format(time.RFC3339),
		SegmentColors: s.engine.Predict(reports, now),
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Password") != s.restartPassword {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Invalid password", nil)
		return
	}
	hlog.FromRequest(r).Warn().Msg("restart requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	go s.restart()
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		log.Error().Err(err).Str("message", message).Msg("API error")
	}
	// Internal details stay in the logs; the response carries the summary
	// only.
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Password")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic in handler")
				s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return hlog.NewHandler(log.Logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger := hlog.FromRequest(r).With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	}))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	})(next)
}
