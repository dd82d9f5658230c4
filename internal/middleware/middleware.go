// Package middleware provides HTTP middleware for the storefront API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dunglas/httpsfv"
)

// Chain composes middleware so the first argument wraps the last.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Logging logs one line per request: method, path, status, duration, and
// the calling client profile when one was negotiated.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			}
			if profile, ok := ClientProfileFrom(r.Context()); ok {
				attrs = append(attrs,
					slog.String("client_app", profile.App),
					slog.String("client_version", profile.Version))
			}
			logger.Info("request", attrs...)
		})
	}
}

// Recovery converts handler panics into 500 responses with a logged stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						slog.Any("error", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ClientProfile identifies the calling frontend, parsed from the
// Storefront-Client structured-field header, e.g.
//
//	Storefront-Client: app="web";version="2.1", platform="android"
type ClientProfile struct {
	App      string
	Version  string
	Platform string
}

type profileKey struct{}

// ClientProfileFrom extracts the negotiated client profile, if any.
func ClientProfileFrom(ctx context.Context) (ClientProfile, bool) {
	p, ok := ctx.Value(profileKey{}).(ClientProfile)
	return p, ok
}

// WithClientProfile parses the Storefront-Client header into the request
// context. The header is optional; a malformed one is ignored rather than
// rejected, since it only feeds logging and analytics.
func WithClientProfile() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Storefront-Client")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			profile, err := parseClientProfile(header)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), profileKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseClientProfile(header string) (ClientProfile, error) {
	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return ClientProfile{}, err
	}

	var p ClientProfile
	if member, ok := dict.Get("app"); ok {
		if item, ok := member.(httpsfv.Item); ok {
			if s, ok := item.Value.(string); ok {
				p.App = s
			}
			if v, ok := item.Params.Get("version"); ok {
				if s, ok := v.(string); ok {
					p.Version = s
				}
			}
		}
	}
	if member, ok := dict.Get("platform"); ok {
		if item, ok := member.(httpsfv.Item); ok {
			if s, ok := item.Value.(string); ok {
				p.Platform = s
			}
		}
	}
	return p, nil
}

// statusWriter captures the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
