// Package web provides the HTTP server and handlers for the upload UI.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/betaconv/internal/config"
	"github.com/JonMunkholm/betaconv/internal/core"
	"github.com/JonMunkholm/betaconv/internal/web/middleware"
	"github.com/JonMunkholm/betaconv/internal/web/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// AuditReader lists recorded conversion events. *core.AuditService
// implements it.
type AuditReader interface {
	Recent(ctx context.Context, q core.AuditQuery) ([]core.AuditEntry, error)
}

// Server is the HTTP server for the conversion UI.
type Server struct {
	service  *core.Service
	sessions *SessionStore
	audit    AuditReader
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server

	limiters []*rateLimiter
}

// NewServer creates a Server. audit may be nil, in which case /api/audit
// is not mounted.
func NewServer(service *core.Service, cfg *config.Config, audit AuditReader) *Server {
	s := &Server{
		service:  service,
		sessions: NewSessionStore(cfg.Session.TTL, cfg.Session.MaxEntries),
		audit:    audit,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.newLimiter(s.cfg.Rate.RequestsPerMinute)))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/conversion/{id}", s.handleConversion)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/preview/{id}/download", s.handlePreviewDownload)

		// Upload and export run the pipeline, so they get a tighter limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimit(s.newLimiter(s.cfg.Rate.UploadLimit)))
			}
			r.Post("/upload", s.handleUpload)
			r.Get("/export/{id}", s.handleExport)
			r.Post("/export/{id}", s.handleExport)
		})

		if s.audit != nil {
			r.Get("/audit", s.handleAudit)
		}
	})
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start listens on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Sessions returns the conversion store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// contentSecurityPolicy allows the htmx bundle and the inline page styles.
var contentSecurityPolicy = "default-src 'self'; script-src 'self' " + origin(templates.HTMXSrc) +
	"; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// securityHeaders adds hardening headers to every response.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
