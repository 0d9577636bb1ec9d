// Package httptransport is the thin HTTP layer: the capture page and its
// submission endpoint, the operator invite API, and operational endpoints.
// Handlers delegate to domain services; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intake/pkg/requestcontext"
)

// Registrar is a handler group that mounts its routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter assembles the service router with request-scoped client
// metadata, panic recovery, and operational endpoints.
func NewRouter(log *slog.Logger, groups ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(clientMetadata)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, g := range groups {
		g.Register(r)
	}
	return r
}

// clientMetadata stores the client IP and User-Agent in the request context
// so services read them without touching net/http.
func clientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := requestcontext.WithClientMetadata(req.Context(), clientIP(req), req.UserAgent())
		if id := middleware.GetReqID(req.Context()); id != "" {
			ctx = requestcontext.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			log.Info("http request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("request_id", requestcontext.RequestID(req.Context())),
			)
		})
	}
}

// clientIP resolves the original client address behind proxies. First hop
// of X-Forwarded-For, then X-Real-IP, then the socket peer.
func clientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if rip := req.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
