package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	settlementengine "meridian/contexts/finance-core/settlement-engine"
	sessionservice "meridian/contexts/identity-access/session-service"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "meridian/internal/platform/httpserver/docs"
)

type Server struct {
	router     chi.Router
	logger     *slog.Logger
	addr       string
	settlement settlementengine.Module
	sessions   sessionservice.Module
}

func New(
	settlement settlementengine.Module,
	sessions sessionservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		addr:       addr,
		settlement: settlement,
		sessions:   sessions,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.router)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(requestIDMiddleware)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	s.router.Handle("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleIssueSession)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionAuthMiddleware)
			r.Delete("/sessions", s.handleRevokeSession)

			r.Get("/payouts", s.handleListPayouts)
			r.Get("/payouts/{payout_id}", s.handleGetPayout)
			r.Post("/payouts/{payout_id}/send", s.handleSendPayout)
			r.Post("/payouts/{payout_id}/reset", s.handleResetPayout)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
