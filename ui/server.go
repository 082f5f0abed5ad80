// Package ui serves the dashboard: login gate, upload, HTML views, JSON API and Excel export.
package ui

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"custdash/domain/purchase"
	"custdash/internal"
	"custdash/internal/analysis"
	"custdash/internal/config"
	"custdash/internal/dataset"
	"custdash/internal/session"
	"custdash/ui/middleware"
	"custdash/ui/services"
)

// ShutdownTimeout bounds how long Start waits for in-flight requests after its context ends.
const ShutdownTimeout = 10 * time.Second

//go:embed templates/*.html static/css/*.css
var embeddedFiles embed.FS

// Server represents the dashboard web server
type Server struct {
	router    *gin.Engine
	config    *config.Config
	sessions  *session.Manager
	processor *dataset.Processor
	render    *services.RenderService
	templates *template.Template
	logger    *internal.Logger
}

// NewServer creates a server with its templates parsed and routes registered
func NewServer(cfg *config.Config, sessions *session.Manager, processor *dataset.Processor, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:    gin.Default(),
		config:    cfg,
		sessions:  sessions,
		processor: processor,
		render:    services.NewRenderService(),
		logger:    logger.With("UI"),
	}
	// multipart parts beyond this stay on disk
	s.router.MaxMultipartMemory = 8 << 20

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) parseTemplates() error {
	funcMap := template.FuncMap{
		"cell":      services.FormatCell,
		"dateInput": func(t time.Time) string { return t.Format(time.DateOnly) },
		"kindTitle": func(k analysis.Kind) string {
			if k == "" {
				return ""
			}
			return strings.ToUpper(string(k)[:1]) + string(k)[1:]
		},
		"selected": func(values []string, v string) bool {
			for _, x := range values {
				if x == v {
					return true
				}
			}
			return false
		},
		"allBrands":    func() string { return purchase.AllBrands },
		"allCustomers": func() string { return purchase.AllCustomers },
	}

	templatesFS, err := fs.Sub(embeddedFiles, "templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}
	s.templates, err = template.New("").Funcs(funcMap).ParseFS(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	log.Printf("[TemplateInit] Parsed templates: %s", s.templates.DefinedTemplates())
	return nil
}

// setupMiddleware configures static files and the session cookie
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}

	s.router.Use(middleware.Sessions(s.sessions, middleware.CookieConfig{
		Name:   s.config.Session.CookieName,
		MaxAge: s.config.Session.TTL,
		Secure: s.config.Session.Secure,
	}))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	s.router.GET("/login", s.handleLoginPage)
	s.router.POST("/login", s.handleLogin)
	s.router.POST("/logout", s.handleLogout)

	pages := s.router.Group("/", middleware.RequireAuth())
	pages.GET("/", s.handleDashboard)
	pages.POST("/upload", s.handleUpload)

	api := s.router.Group("/api", middleware.RequireAuthAPI())
	api.GET("/options", s.handleOptions)
	api.GET("/analysis/:kind", s.handleAnalysis)
	api.GET("/export/:kind", s.handleExport)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is done, then drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting customer dashboard on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
