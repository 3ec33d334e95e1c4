package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/decision-compass-backend/internal/flow"
	"github.com/nyashahama/decision-compass-backend/internal/session"
)

// ─── CONTEXT KEYS ─────────────────────────────────────────────────────────────

type contextKey string

const ctxKeySession contextKey = "session"

// ─── ANON TOKEN AUTH ──────────────────────────────────────────────────────────

// requireAnonToken validates the X-Anon-Token header against the session
// registry and confirms the token owns the session named in the URL.
//
// The token is handed to the browser once at session creation and kept in
// sessionStorage. A missing or foreign token yields 401/403 before the
// handler runs. On success the live *flow.Session is stored in the
// request context.
func (s *Server) requireAnonToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-Anon-Token"))
		if token == "" {
			respondErr(w, http.StatusUnauthorized, "missing X-Anon-Token header")
			return
		}

		sess, err := s.sessions.GetByToken(token)
		if errors.Is(err, session.ErrNotFound) {
			respondErr(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if err != nil {
			s.respondInternalErr(w, r, err)
			return
		}

		if sess.ID.String() != chi.URLParam(r, "sessionID") {
			respondErr(w, http.StatusForbidden, "token does not match session")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom pulls the verified session out of the request context. Only
// valid below requireAnonToken.
func sessionFrom(r *http.Request) *flow.Session {
	return r.Context().Value(ctxKeySession).(*flow.Session)
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

// corsMiddleware handles preflight OPTIONS requests and sets CORS
// headers. In production, tighten AllowedOrigins to the frontend domain.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed := "*"
		if s.cfg.Env != "production" {
			allowed = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Anon-Token, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ─── LOGGER MIDDLEWARE ────────────────────────────────────────────────────────

// loggerMiddleware logs each request with method, path, status, and duration.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ─── RESPONSE HELPERS ─────────────────────────────────────────────────────────

// respond writes a JSON body with the given status code.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondErr writes a standard JSON error envelope.
func respondErr(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

// respondInternalErr logs an unexpected error and returns a 500 to the
// client without leaking internal details.
func (s *Server) respondInternalErr(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error",
		"error", err,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondErr(w, http.StatusInternalServerError, "internal server error")
}

// respondFlowErr maps the flow package's protocol errors onto HTTP
// statuses. These mean the client called an operation the state machine
// does not permit — distinct from gateway failures, which travel inside
// the state snapshot.
func respondFlowErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrBusy):
		respondErr(w, http.StatusConflict, "a call is already in flight for this session")
	case errors.Is(err, flow.ErrWrongStage):
		respondErr(w, http.StatusConflict, "operation not valid in the current stage")
	case errors.Is(err, flow.ErrUnanswered):
		respondErr(w, http.StatusConflict, "answer the current question first")
	case errors.Is(err, flow.ErrEmptyTopic),
		errors.Is(err, flow.ErrEmptyInput),
		errors.Is(err, flow.ErrUnknownQuestion),
		errors.Is(err, flow.ErrInvalidOption),
		errors.Is(err, flow.ErrUnknownAlternative):
		respondErr(w, http.StatusBadRequest, err.Error())
	default:
		respondErr(w, http.StatusInternalServerError, "internal server error")
	}
}

// ─── REQUEST PARSING HELPERS ─────────────────────────────────────────────────

// decode JSON-decodes r.Body into dst. Returns false and writes 400 if
// the body is missing, malformed, or too large. Callers should return
// immediately on false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB max
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
