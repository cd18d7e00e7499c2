// Package httpapi serves the farm diagnostic over HTTP.
//
//	GET /healthz          liveness, never touches the database
//	GET /status           markdown report (?format=json for JSON)
//	GET /tables           configured tables with labels
//
// /status answers 200 when every check passed and 503 otherwise; the body
// always carries the full report.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HendryAvila/farmcheck/internal/diagnostic"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"github.com/HendryAvila/farmcheck/internal/logging"
	"github.com/HendryAvila/farmcheck/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	contentMarkdown = "text/markdown; charset=utf-8"
	contentJSON     = "application/json"
	shutdownGrace   = 10 * time.Second
)

// NewRouter returns the HTTP handler for runner.
func NewRouter(runner diagnostic.Runner, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = report.FormatMarkdown
		}
		if format != report.FormatMarkdown && format != report.FormatJSON {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
			return
		}

		rep := runner.Run(r.Context())
		body, err := report.Render(rep, format)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		code := http.StatusOK
		if !report.Summarize(rep).Healthy() {
			code = http.StatusServiceUnavailable
		}
		if format == report.FormatJSON {
			w.Header().Set("Content-Type", contentJSON)
		} else {
			w.Header().Set("Content-Type", contentMarkdown)
		}
		w.WriteHeader(code)
		_, _ = w.Write(body)
	})

	r.Get("/tables", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, farm.Describe(runner.Tables()))
	})

	return r
}

// NewServer returns an *http.Server for h with conservative timeouts.
// WriteTimeout leaves room for a slow diagnostic run.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	<-errCh
	return nil
}

// accessLog logs one line per request with the chi request id.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqID := middleware.GetReqID(r.Context())
			if reqID != "" {
				ww.Header().Set("X-Request-Id", reqID)
			}

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", reqID),
				zap.String("remote", r.RemoteAddr))
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
