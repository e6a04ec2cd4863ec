// Package dev runs the interactive development server. It serves pages
// through the engine's request matcher, watches the project for
// changes, refreshes the engine snapshot when templates change, and
// pushes live-reload notifications to connected browsers.
package dev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vellum-web/vellum"
)

// reloadScript is served at /_vellum/reload.js and injected into every
// HTML response so browsers reconnect and reload on change.
const reloadScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(proto + location.host + "/_vellum/reload");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "reload") location.reload();
      if (msg.type === "error") console.error("[vellum] " + msg.error);
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
`

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "vellum",
	Subsystem: "dev",
	Name:      "request_duration_seconds",
	Help:      "Dev server request latency by status code.",
	Buckets:   prometheus.DefBuckets,
}, []string{"code"})

// ServerOptions configures the development server.
type ServerOptions struct {
	// Logger receives server diagnostics. Defaults to the engine's
	// logger.
	Logger *slog.Logger

	// OnReload is called after browsers are notified, with the client
	// count. Used by the CLI for console feedback.
	OnReload func(clients int)
}

// Server is the development server.
type Server struct {
	engine     *vellum.Engine
	options    ServerOptions
	logger     *slog.Logger
	watcher    *Watcher
	reload     *ReloadServer
	httpServer *http.Server
}

// NewServer wires a dev server around an engine.
func NewServer(engine *vellum.Engine, options ServerOptions) *Server {
	cfg := engine.Config()

	logger := options.Logger
	if logger == nil {
		logger = engine.Logger()
	}

	watchPaths := append([]string{cfg.TemplatesDir(), cfg.StaticDir()}, cfg.Dev.Watch...)
	watcher := NewWatcher(WatcherConfig{
		Paths:  watchPaths,
		Ignore: append(DefaultIgnore, cfg.Dev.Ignore...),
	})

	var reload *ReloadServer
	if cfg.Dev.HotReload {
		reload = NewReloadServer()
	}

	return &Server{
		engine:  engine,
		options: options,
		logger:  logger,
		watcher: watcher,
		reload:  reload,
	}
}

// Start runs the server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.engine.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Dev.Host, cfg.Dev.Port)

	s.watcher.OnChange(s.handleChange)
	go func() {
		if err := s.watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("watcher stopped", "error", err)
		}
	}()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info("dev server listening", "addr", "http://"+addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// routes assembles the dev mux: the engine handler behind the reload
// injector, plus the engine's internal namespace.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/_vellum/reload.js", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(reloadScript))
	})
	r.Get("/_vellum/metrics", promhttp.Handler().ServeHTTP)
	if s.reload != nil {
		r.Get("/_vellum/reload", s.reload.HandleWebSocket)
	}

	page := http.Handler(s.engine)
	if s.reload != nil {
		page = s.injectReloadClient(page)
	}
	r.NotFound(page.ServeHTTP)

	return r
}

// logRequests logs each request through slog and records latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		elapsed := time.Since(start)
		requestDuration.WithLabelValues(strconv.Itoa(ww.Status())).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", elapsed.Round(time.Microsecond),
		)
	})
}

// injectReloadClient appends the reload script tag to HTML responses.
func (s *Server) injectReloadClient(next http.Handler) http.Handler {
	const tag = `<script src="/_vellum/reload.js"></script>`

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, req)

		for key, values := range rec.Header() {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}

		body := rec.Body.Bytes()
		if isHTML(rec.Header().Get("Content-Type")) {
			if idx := bytes.LastIndex(body, []byte("</body>")); idx != -1 {
				patched := make([]byte, 0, len(body)+len(tag))
				patched = append(patched, body[:idx]...)
				patched = append(patched, tag...)
				patched = append(patched, body[idx:]...)
				body = patched
			} else {
				body = append(body, tag...)
			}
			w.Header().Del("Content-Length")
		}

		w.WriteHeader(rec.Code)
		_, _ = w.Write(body)
	})
}

func isHTML(contentType string) bool {
	return len(contentType) >= 9 && contentType[:9] == "text/html"
}

// handleChange reacts to watcher events: template changes refresh the
// engine snapshot before browsers reload, static changes just reload.
func (s *Server) handleChange(change Change) {
	if change.Type == ChangeTemplate {
		if err := s.engine.Refresh(); err != nil {
			s.logger.Error("refresh failed", "error", err)
			if s.reload != nil {
				s.reload.NotifyError(err.Error())
			}
			return
		}
	}

	s.logger.Info("change detected", "path", change.Path)
	if s.reload != nil {
		s.reload.NotifyReload(change.Path)
		if s.options.OnReload != nil {
			s.options.OnReload(s.reload.ClientCount())
		}
	}
}
