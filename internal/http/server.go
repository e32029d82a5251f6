package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/personalcms/web/internal/apiclient"
	"github.com/personalcms/web/internal/authhook"
	"github.com/personalcms/web/internal/config"
	"github.com/personalcms/web/internal/metrics"
	"github.com/personalcms/web/internal/session"
	"github.com/personalcms/web/internal/userstore"
	"github.com/personalcms/web/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wraps the HTTP server
type Server struct {
	config   *config.Config
	engine   *gin.Engine
	api      *apiclient.Client
	users    *userstore.Store
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config) *Server {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	// Schemas and query binding share one validator
	binding.Validator = validation.GinValidator()

	engine := gin.New()
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	registry := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metrics.WithRegistry(registry))
	}

	// Middleware - order matters
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(securityHeadersMiddleware())
	engine.Use(cacheControlMiddleware())
	engine.Use(loggerMiddleware())
	engine.Use(metricsMiddleware(m))
	engine.Use(bodyLimitMiddleware(maxBodySize))

	server := &Server{
		config:   cfg,
		engine:   engine,
		api:      apiclient.NewClient(cfg.API.BaseURL, cfg.API.ProfileFetchTimeout, apiclient.WithMetrics(m)),
		users:    userstore.New(cfg.UserCache.TTL, userstore.WithMetrics(m)),
		metrics:  m,
		registry: registry,
	}

	server.setupRoutes()

	return server
}

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second // covers the profile fetch on /callback
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until ctx is cancelled or serving fails
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.ServerAddress
	if addr == "" {
		addr = ":3000"
	}

	if err := s.users.StartSweeper(s.config.UserCache.SweepSchedule); err != nil {
		return err
	}
	defer s.users.Stop()

	// Configure server with timeouts
	server := &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// cookies binds the session cookie store to the current request
func (s *Server) cookies(c *gin.Context) *session.Store {
	return session.New(c, session.Options{
		Domain: s.config.Auth.CookieDomain,
		Secure: s.config.Auth.SecureCookie,
	})
}

// newHook creates the auth hook for the current request
func (s *Server) newHook(c *gin.Context, nav authhook.Navigator) *authhook.Hook {
	return authhook.New(c.Request.URL, authhook.Deps{
		Cookies:   s.cookies(c),
		Navigator: nav,
		API:       s.api,
		Users:     s.users,
		Logger:    slog.Default(),
	})
}
