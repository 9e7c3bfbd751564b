package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/mesh-intelligence/pantry/internal/auth"
)

type requestInfoKey struct{}

// requestInfo is filled in by inner handlers and read back by logRequests.
type requestInfo struct {
	user string
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		ev := s.Logger.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = s.Logger.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("user", info.user).
			Msg("request")
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.Logger.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate rejects requests without an accepted bearer credential and
// stores the caller's user id in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Verifier == nil {
			s.fail(w, r, auth.ErrNoVerifier, slugAsConflict)
			return
		}
		cred, err := auth.Bearer(r)
		if err != nil {
			s.fail(w, r, err, slugAsConflict)
			return
		}
		user, err := s.Verifier.Verify(r.Context(), cred)
		if err != nil {
			s.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("credential rejected")
			s.fail(w, r, err, slugAsConflict)
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.user = user
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}
