// Package api implements the HTTP layer for Decision Compass. Handlers
// are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/decision-compass-backend/internal/email"
	"github.com/nyashahama/decision-compass-backend/internal/flow"
	"github.com/nyashahama/decision-compass-backend/internal/session"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches
// methods to this type and uses only the fields it needs.
type Server struct {
	// sessions is the in-memory registry of live sessions.
	sessions *session.Store

	// flow executes state-machine operations against a session.
	flow *flow.Controller

	// mailer sends the report email. Nil when email delivery is not
	// configured — the email endpoint then returns 503.
	mailer email.Sender

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	sessions *session.Store,
	controller *flow.Controller,
	mailer email.Sender,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		sessions: sessions,
		flow:     controller,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	// Generous: an analysis call can sit behind up to two backoff delays
	// plus model latency.
	r.Use(middleware.Timeout(120 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Session creation — no auth (anonymous visitors).
		r.Post("/session", s.handleCreateSession)

		// Session-scoped routes — require a valid X-Anon-Token header.
		r.Route("/session/{sessionID}", func(r chi.Router) {
			r.Use(s.requireAnonToken)
			r.Get("/state", s.handleGetState)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/topic", s.handleSubmitTopic)
			r.Post("/answer", s.handleAnswer)
			r.Post("/next", s.handleNext)
			r.Post("/prev", s.handlePrev)
			r.Post("/retry", s.handleRetry)
			r.Post("/refine", s.handleRefine)
			r.Post("/alternative", s.handleSelectAlternative)
			r.Post("/reset", s.handleReset)
			r.Post("/email", s.handleEmailReport)
		})
	})

	return r
}
