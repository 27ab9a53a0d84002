// Package server is the composition root: it wires config, storage, the
// state stores, services, and handlers into a chi router, and owns the
// HTTP serve loop with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB → session/prefs stores (hydrated once at startup)
//	       → ledger → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handlers knows
// about HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ltoupin/nexus-console/internal/auth"
	"github.com/ltoupin/nexus-console/internal/config"
	"github.com/ltoupin/nexus-console/internal/handler"
	"github.com/ltoupin/nexus-console/internal/ledger"
	"github.com/ltoupin/nexus-console/internal/middleware"
	"github.com/ltoupin/nexus-console/internal/nexus"
	"github.com/ltoupin/nexus-console/internal/prefs"
	sqliteRepo "github.com/ltoupin/nexus-console/internal/repository/sqlite"
	"github.com/ltoupin/nexus-console/internal/router"
	"github.com/ltoupin/nexus-console/internal/service"
	"github.com/ltoupin/nexus-console/internal/session"
)

// Server owns the HTTP router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph. The context covers startup work
// only (hydration reads, the Gemini client handshake), not request
// handling.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, state stores, services, and routes.
//
// ROUTE STRUCTURE:
//
//	GET  /auth/github/login     → redirect to GitHub
//	GET  /auth/github/callback  → complete OAuth, set cookie
//	POST /api/auth/register     → create account, set cookie
//	POST /api/auth/login        → email/password login, set cookie
//	POST /api/auth/logout       → close session, clear cookie
//	(authenticated:)
//	GET  /api/me                → session profile
//	GET/PUT /api/module         → active module selector
//	GET/PUT /api/preferences    → theme + language
//	GET  /api/dashboard         → usage tiles
//	GET  /api/upgrade           → external checkout URL
//	POST /api/chat|lens|voice|canvas → credit-gated panels
//	POST /api/admin/tier        → creator-only tier switch
func (s *Server) setupRoutes(ctx context.Context) error {
	// Global middleware, in order: request ID, real IP, panic recovery,
	// then our request logger.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// --- State stores, hydrated from the persisted record ---
	sessions := session.NewStore(s.db, s.logger)
	if err := sessions.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrating session: %w", err)
	}
	preferences := prefs.NewStore(s.db, s.logger)
	if err := preferences.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrating preferences: %w", err)
	}

	modules := router.New(sessions)
	sessions.Subscribe(modules.OnSessionChange)

	credits := ledger.New(sessions, s.db, ledger.Costs{
		ledger.ActionChat:   s.cfg.CostChat,
		ledger.ActionLens:   s.cfg.CostLens,
		ledger.ActionVoice:  s.cfg.CostVoice,
		ledger.ActionCanvas: s.cfg.CostCanvas,
	}, s.logger)

	// --- Auth utilities ---
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.cfg.GitHubClientID != "" && s.cfg.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	} else {
		s.logger.Info("GitHub OAuth not configured, provider disabled")
	}

	// --- AI collaborator (optional: the shell runs without it) ---
	var ai nexus.Client
	if s.cfg.GeminiAPIKey != "" {
		gemini, err := nexus.NewGeminiClient(ctx, s.cfg.GeminiAPIKey, s.cfg.AITimeout)
		if err != nil {
			return fmt.Errorf("creating Gemini client: %w", err)
		}
		ai = gemini
	} else {
		s.logger.Warn("GEMINI_API_KEY not set, panel endpoints will refuse requests")
	}

	// --- Services ---
	authService := service.NewAuthService(s.db, tokens, passwords, sessions, s.logger)
	panelService := service.NewPanelService(credits, ai, s.logger)
	shellService := service.NewShellService(sessions, modules, preferences, credits, &s.cfg, s.logger)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	panelHandler := handler.NewPanelHandler(panelService, shellService, s.logger)
	shellHandler := handler.NewShellHandler(shellService, s.logger)

	// --- Routes ---
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Everything below requires a valid session cookie.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", shellHandler.HandleMe)
			r.Get("/module", shellHandler.HandleGetModule)
			r.Put("/module", shellHandler.HandleSetModule)
			r.Get("/preferences", shellHandler.HandleGetPreferences)
			r.Put("/preferences", shellHandler.HandleSetPreferences)
			r.Get("/dashboard", shellHandler.HandleDashboard)
			r.Get("/upgrade", shellHandler.HandleUpgrade)

			r.Post("/chat", panelHandler.HandleChat)
			r.Post("/lens", panelHandler.HandleLens)
			r.Post("/voice", panelHandler.HandleVoice)
			r.Post("/canvas", panelHandler.HandleCanvas)

			r.Post("/admin/tier", shellHandler.HandleSetTier)
		})
	})

	return nil
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the database (flushes the WAL, releases
// the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // panel calls wait on the model
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
