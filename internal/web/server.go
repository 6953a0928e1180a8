// Package web serves the single-user dashboard: upload a CSV or XLSX file,
// pick a grouping and a chart, and download the results.
package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the dashboard limits and defaults.
type Config struct {
	MaxUploadBytes int64
	MaxRows        int
	AssetsHost     string
	DefaultChart   export.ChartKind
	GroupOrder     aggregate.Order
}

// Server is the HTTP server for the dashboard. It holds at most one
// session; a new upload replaces it.
type Server struct {
	cfg    Config
	router *chi.Mux
	server *http.Server

	mu      sync.RWMutex
	session *pipeline.Session
}

// NewServer creates a new Server instance. A zero MaxUploadBytes uses
// pipeline.DefaultMaxUploadBytes and a negative one disables the limit.
func NewServer(cfg Config) *Server {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = pipeline.DefaultMaxUploadBytes
	}
	if cfg.AssetsHost == "" {
		cfg.AssetsHost = export.DefaultAssetsHost
	}
	if cfg.DefaultChart == "" {
		cfg.DefaultChart = export.Bar
	}
	s := &Server{cfg: cfg, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)
	s.router.Get("/analyze", s.handleAnalyze)
	s.router.Get("/plot", s.handlePlot)
	s.router.Get("/download/{kind}", s.handleDownload)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	logging.FromContext(context.Background()).Info("starting dashboard", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) current() *pipeline.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Server) replace(sess *pipeline.Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

// securityHeaders adds security headers to all responses. The chart page
// is framed by the dashboard and loads echarts from the assets host.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	scriptSrc := "'self' 'unsafe-inline'"
	if host := assetOrigin(s.cfg.AssetsHost); host != "" {
		scriptSrc += " " + host
	}
	csp := "default-src 'self'; script-src " + scriptSrc + "; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'self'"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// assetOrigin reduces an assets URL to scheme://host for the CSP.
func assetOrigin(u string) string {
	rest, ok := strings.CutPrefix(u, "https://")
	scheme := "https://"
	if !ok {
		if rest, ok = strings.CutPrefix(u, "http://"); !ok {
			return ""
		}
		scheme = "http://"
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}

// requestLogger logs each request with its status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
