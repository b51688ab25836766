package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/apimocker/apimocker/pkg/simulate"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// corsMiddleware adds permissive CORS headers and short-circuits
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware rejects requests the configured auth provider does not
// accept.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authGate == nil {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(s.authGate.HeaderName())
		result := s.authGate.Validate(header)
		if !result.OK {
			respondError(w, http.StatusUnauthorized, result.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// customResponseMiddleware serves a registered override instead of the
// normal handler when one matches the request.
func (s *Server) customResponseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.responses == nil || s.responses.Count() == 0 {
			next.ServeHTTP(w, r)
			return
		}

		// Body predicates need the parsed payload; the body is restored
		// so the downstream handler can read it again.
		var body map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			data, err := io.ReadAll(r.Body)
			if err == nil {
				r.Body = io.NopCloser(bytes.NewReader(data))
				_ = json.Unmarshal(data, &body)
			}
		}

		match := s.responses.FindMatch(r.Method, r.URL.Path, body)
		if match == nil {
			next.ServeHTTP(w, r)
			return
		}

		for name, value := range match.Headers {
			w.Header().Set(name, value)
		}
		if match.Body == nil {
			w.WriteHeader(match.Status)
			return
		}
		respondJSON(w, match.Status, match.Body)
	})
}

// simulationMiddleware applies configured delays and failure injection,
// plus the per-request _delay and _status overrides.
func (s *Server) simulationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		// A forced status responds immediately, before any delay.
		if code := simulate.ForcedStatus(q.Get(simulate.ParamStatus)); code != 0 {
			respondJSON(w, code, simulate.ErrorBody(code))
			return
		}

		s.sim.Sleep(r.Context(), q.Get(simulate.ParamDelay))


		if code := s.sim.Fail(); code != 0 {
			respondJSON(w, code, simulate.ErrorBody(code))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware logs method, path, status and elapsed time for
// every request.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start))
	})
}
