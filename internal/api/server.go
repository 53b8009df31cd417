package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	// WriteTimeout bounds writing any response.
	WriteTimeout = 120 * time.Second
	// DefaultRefreshTimeout bounds a refresh request so its report is written before WriteTimeout.
	DefaultRefreshTimeout = WriteTimeout - 15*time.Second
)

// Options configures the HTTP surface.
type Options struct {
	AdminAPIKey string
	CORSOrigins []string
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, h *Handler, opts Options) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(h, opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter builds the route tree. Mutating routes require the admin key when one is set.
func NewRouter(h *Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/holdings", h.ListHoldings)
		r.Get("/portfolio/summary", h.GetSummary)
		r.Get("/allocations", h.GetAllocations)
		r.Get("/rebalance", h.GetRebalance)
		r.Get("/quote/{ticker}", h.GetQuote)
		r.Get("/audit", h.GetAudit)
		r.Get("/export/csv", h.ExportCSV)
		r.Get("/export/xlsx", h.ExportXLSX)

		r.Group(func(r chi.Router) {
			if opts.AdminAPIKey != "" {
				r.Use(func(next http.Handler) http.Handler { return requireAuth(opts.AdminAPIKey, next) })
			}
			r.Post("/holdings", h.CreateHolding)
			r.Put("/holdings/{id}", h.UpdateHolding)
			r.Delete("/holdings/{id}", h.DeleteHolding)
			r.Put("/allocations", h.PutAllocations)
			r.Post("/prices/refresh", h.RefreshPrices)
			r.Post("/export/sheets", h.ExportSheets)
		})
	})

	return r
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
