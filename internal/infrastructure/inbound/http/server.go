package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/httpmocker"
	"github.com/sophialabs/httpmocker/internal/domain/trace"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

const maxBodySize = 10 << 20 // 10 MB

// Mocker is the engine requests are forwarded through.
type Mocker interface {
	http.RoundTripper
	Mode() httpmocker.Mode
	SetMode(httpmocker.Mode) error
	Trace(n int) []trace.Entry
	ResetTrace()
}

// Server forwards every request to an upstream through the Mocker and
// exposes admin routes under /__admin.
type Server struct {
	router   *chi.Mux
	mocker   Mocker
	upstream *url.URL
	logger   ports.Logger
}

// NewServer creates a Server. With a nil upstream, requests go to the host
// they name, so the server can act as a forward proxy.
func NewServer(mocker Mocker, upstream *url.URL, logger ports.Logger) *Server {
	s := &Server{mocker: mocker, upstream: upstream, logger: logger}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handleSetMode)
		r.Get("/trace", s.handleGetTrace)
		r.Delete("/trace", s.handleResetTrace)
	})

	proxy := &httputil.ReverseProxy{
		Rewrite:      s.rewrite,
		Transport:    s.mocker,
		ErrorHandler: s.proxyError,
	}
	r.Handle("/*", http.MaxBytesHandler(s.logRequest(proxy), maxBodySize))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("request received", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	if s.upstream != nil {
		pr.SetURL(s.upstream)
	} else {
		if pr.Out.URL.Scheme == "" {
			pr.Out.URL.Scheme = "http"
		}
		if pr.Out.URL.Host == "" {
			pr.Out.URL.Host = pr.In.Host
		}
	}
	pr.SetXForwarded()
}

func (s *Server) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ratelimit.ErrLimited) {
		s.logger.Info("request rate-limited", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
		return
	}
	s.logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusBadGateway, "upstream_failed", err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modeBody struct {
	Mode httpmocker.Mode `json:"mode"`
}

func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modeBody{Mode: s.mocker.Mode()})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	var body struct {
		Mode *httpmocker.Mode `json:"mode"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	if body.Mode == nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", "missing mode")
		return
	}
	if err := s.mocker.SetMode(*body.Mode); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, httpmocker.ErrNoRecorder) {
			status = http.StatusConflict
		}
		writeError(w, status, "mode_rejected", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, modeBody{Mode: s.mocker.Mode()})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	n := 10
	if lastParam := r.URL.Query().Get("last"); lastParam != "" {
		if parsed, err := strconv.Atoi(lastParam); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := s.mocker.Trace(n)
	if entries == nil {
		entries = []trace.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleResetTrace(w http.ResponseWriter, _ *http.Request) {
	s.mocker.ResetTrace()
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
