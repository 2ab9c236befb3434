package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxBodyBytes bounds request bodies. Saved image edits travel as data URIs.
const maxBodyBytes = 32 << 20

// NewServer creates and configures the HTTP server for the reblock web UI.
func NewServer(deps *ops.Deps, log logger.Logger, version, bind string, port int) (*http.Server, error) {
	if log == nil {
		log = logger.NewNop()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	h := &Handlers{
		deps:     deps,
		renderer: NewRenderer(templateSub, version, log),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /scrape", h.HandleScrape)
	mux.HandleFunc("GET /history", h.HandleHistory)
	mux.HandleFunc("POST /history/clear", h.HandleClear)
	mux.HandleFunc("GET /pages/{id}", h.HandleInfo)
	mux.HandleFunc("GET /pages/{id}/edit", h.HandleEdit)
	mux.HandleFunc("GET /pages/{id}/changes", h.HandleChanges)
	mux.HandleFunc("POST /pages/{id}/modifications", h.HandleSave)
	mux.HandleFunc("POST /pages/{id}/delete", h.HandleDelete)
	mux.HandleFunc("DELETE /pages/{id}", h.HandleDelete)
	mux.HandleFunc("POST /save_modifications", h.HandleSaveByEntryID)
	mux.HandleFunc("POST /transform", h.HandleTransform)
	mux.HandleFunc("POST /img2img", h.HandleImg2Img)

	mux.Handle("GET /metrics", deps.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	handler := securityHeaders(requestLogger(log, deps, mux))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
// Images may come from any origin since blocks reference the scraped site.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' http: https: data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger stores a request-scoped logger in the context, bounds the
// request body, then logs and measures every request once it completes.
func requestLogger(log logger.Logger, deps *ops.Deps, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.With(logger.String("method", r.Method), logger.String("path", r.URL.Path))

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		deps.Metrics.ObserveHTTP(r.Method, r.Pattern, rec.status, elapsed)
		reqLog.Debug("request served",
			logger.Int("status", rec.status),
			logger.Duration("duration", elapsed),
		)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log logger.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("reblock UI running", logger.String("addr", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
