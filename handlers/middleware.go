package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"postservice/auth"
)

// requestLogging attaches logger to every request and writes one access line
// per response.
func requestLogging(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("reqId", "Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request served")
		}),
	}
}

// recoverPanics turns a panicking handler into a plain 500 envelope.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err, ok := recovered.(error)
				if !ok {
					err = fmt.Errorf("%v", recovered)
				}
				hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("Recovered from panic")
				writeFailure(rw, r, http.StatusInternalServerError, internalErrorMessage)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// requireIdentity resolves the caller before next runs and stores the identity
// in the request context.
func requireIdentity(resolver auth.Resolver, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		identity, err := resolver.Resolve(r)
		if err != nil {
			hlog.FromRequest(r).Info().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
			writeFailure(rw, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(rw, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}
