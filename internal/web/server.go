package web

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vbonduro/betelcare/internal/domain"
	"github.com/vbonduro/betelcare/internal/i18n"
	"github.com/vbonduro/betelcare/internal/previewstore"
	"github.com/vbonduro/betelcare/internal/session"
)

const (
	historyLimit = 10
	writeTimeout = 120 * time.Second
)

type Server struct {
	sessions  *session.Manager
	previews  previewstore.PreviewStore
	templates embed.FS
	mux       *http.ServeMux
	logger    *slog.Logger
}

func NewServer(sessions *session.Manager, previews previewstore.PreviewStore, tmpl embed.FS, logger *slog.Logger) *Server {
	s := &Server{
		sessions:  sessions,
		previews:  previews,
		templates: tmpl,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /lang", s.handleLanguage)
	s.mux.HandleFunc("GET /history", s.handleHistory)

	s.mux.HandleFunc("POST /capture/camera/start", s.handleCameraStart)
	s.mux.HandleFunc("POST /capture/camera/frame", s.handleCameraFrame)
	s.mux.HandleFunc("POST /capture/camera/snapshot", s.handleCameraSnapshot)
	s.mux.HandleFunc("POST /capture/camera/stop", s.handleCameraStop)
	s.mux.HandleFunc("POST /capture/file", s.handleSelectFile)
	s.mux.HandleFunc("POST /capture/remove", s.handleRemoveImage)
	s.mux.HandleFunc("POST /capture/submit", s.handleSubmit)
	s.mux.HandleFunc("GET /capture/preview", s.handlePreview)

	s.mux.HandleFunc("POST /chat", s.handleChatSend)
	s.mux.HandleFunc("GET /chat/log", s.handleChatLog)
	s.mux.HandleFunc("GET /chat/ws", s.handleChatFeed)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(self)")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data: blob:; "+
				"media-src 'self' blob:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
// It passes hijacking through so the chat feed can upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// funcs returns the template helpers for one language.
func funcs(lang i18n.Language) template.FuncMap {
	return template.FuncMap{
		"t":       i18n.Translator(lang),
		"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
		"theme":   domain.ThemeFor,
		"clock":   func(t time.Time) string { return t.Format("15:04") },
		"stamp":   func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	}
}

// renderPage parses the base layout, the page and every partial, then
// executes "base".
func (s *Server) renderPage(w http.ResponseWriter, lang i18n.Language, page string, data any) error {
	tmpl, err := template.New("").Funcs(funcs(lang)).ParseFS(s.templates, "base.html", page, "partials/*.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial executes the {{define}} block called name from the partials.
func (s *Server) renderPartial(w http.ResponseWriter, lang i18n.Language, name string, data any) error {
	tmpl, err := template.New("").Funcs(funcs(lang)).ParseFS(s.templates, "partials/*.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, name, data)
}
