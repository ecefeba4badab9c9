// Package server is the composition root: it opens the database, wires
// repositories into services and services into handlers, mounts the routes
// and owns startup and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/careerdeck/internal/auth"
	"github.com/sakif/careerdeck/internal/feedback"
	"github.com/sakif/careerdeck/internal/handler"
	"github.com/sakif/careerdeck/internal/middleware"
	"github.com/sakif/careerdeck/internal/notify"
	sqliteRepo "github.com/sakif/careerdeck/internal/repository/sqlite"
	"github.com/sakif/careerdeck/internal/seed"
	"github.com/sakif/careerdeck/internal/service"
)

// Config holds everything main reads from the environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret    string
	TokenTTL     time.Duration
	SecureCookie bool

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// ServiceToken guards the ingest endpoint. Empty disables it.
	ServiceToken string

	NotifyMinScore int
	NotifySchedule string
	// RedisURL selects the Redis publisher; empty logs events instead.
	RedisURL     string
	RedisChannel string

	// QuestionsFile optionally replaces the embedded question bank.
	QuestionsFile string

	AuthRateLimit float64
	AuthBurst     int
}

// Server represents the HTTP server and the resources it owns. The database
// and the Redis client are closed on shutdown.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	rdb       *redis.Client
	scheduler *notify.Scheduler
}

// New opens the database, seeds reference data and builds the router.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.init(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) init(ctx context.Context) error {
	data, err := seed.Load(s.config.QuestionsFile)
	if err != nil {
		return fmt.Errorf("loading seed data: %w", err)
	}
	if err := seed.Apply(ctx, s.db, data, s.logger); err != nil {
		return fmt.Errorf("applying seed data: %w", err)
	}

	publisher, err := s.publisher(ctx)
	if err != nil {
		return err
	}
	return s.setupRoutes(publisher)
}

func (s *Server) publisher(ctx context.Context) (notify.Publisher, error) {
	if s.config.RedisURL == "" {
		s.logger.Info("REDIS_URL not set, match notifications go to the log")
		return notify.NewLogPublisher(s.logger), nil
	}
	rdb, err := notify.NewRedisClient(ctx, s.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.rdb = rdb
	return notify.NewRedisPublisher(rdb, s.config.RedisChannel), nil
}

// setupRoutes wires the dependency graph and mounts every route.
//
//	GET  /health
//	/auth/*                        rate limited per IP
//	/api/internal/*                service token
//	/api/*                         member token (cookie or bearer)
//	/api/admin/*                   member token + admin role
func (s *Server) setupRoutes(publisher notify.Publisher) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	} else {
		s.logger.Warn("GitHub OAuth not configured, only password login is available")
	}

	// Services take the repository interfaces; *sqlite.DB implements all of them.
	matchSvc := service.NewMatchService(s.db, publisher, s.config.NotifyMinScore, s.logger)
	interviewSvc := service.NewInterviewService(s.db, feedback.New(), s.logger)
	coachingSvc := service.NewCoachingService(s.db, s.logger)
	goalSvc := service.NewGoalService(s.db, s.logger)
	refSvc := service.NewReferenceService(s.db, s.logger)
	flagSvc := service.NewFeatureFlagService(s.db, s.logger)
	authSvc := service.NewAuthService(s.db, s.db, tokens, auth.NewPasswordService(), s.logger)

	s.scheduler = notify.NewScheduler(s.config.NotifySchedule, matchSvc.NotifyPending, s.logger)

	authH := handler.NewAuthHandler(github, authSvc, tokens, s.config.SecureCookie, s.logger)
	matchH := handler.NewMatchHandler(matchSvc, s.logger)
	interviewH := handler.NewInterviewHandler(interviewSvc, s.logger)
	coachingH := handler.NewCoachingHandler(coachingSvc, s.logger)
	careerH := handler.NewCareerHandler(goalSvc, refSvc, s.logger)
	flagH := handler.NewFeatureFlagHandler(flagSvc, s.logger)
	healthH := handler.NewHealthHandler(s.db, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/health", healthH.HandleHealth)

	limiter := auth.NewIPLimiter(s.config.AuthRateLimit, s.config.AuthBurst)
	s.router.Route("/auth", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Get("/github/login", authH.HandleGitHubLogin)
		r.Get("/github/callback", authH.HandleGitHubCallback)
		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.RequireServiceToken(s.config.ServiceToken)).
			Post("/internal/matches", matchH.HandleIngest)

		// Readable without an account; bookmarks and rollout need one.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/interview/questions", interviewH.HandleQuestions)
			r.Get("/coaching/coaches", coachingH.HandleCoaches)
			r.Get("/coaching/coaches/{id}", coachingH.HandleCoach)
			r.Get("/coaching/coaches/{id}/availability", coachingH.HandleAvailability)
			r.Get("/feature-flags", flagH.HandleEvaluate)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authH.HandleMe)

			r.Get("/pre-apply/matches", matchH.HandleList)
			r.Post("/pre-apply/{jobId}/dismiss", matchH.HandleDismiss)
			r.Post("/pre-apply/{jobId}/applied", matchH.HandleApplied)

			r.Post("/interview/questions/{id}/bookmark", interviewH.HandleBookmark)
			r.Get("/interview/sessions", interviewH.HandleList)
			r.Post("/interview/sessions", interviewH.HandleStart)
			r.Get("/interview/sessions/{id}", interviewH.HandleGet)
			r.Post("/interview/sessions/{id}/answers", interviewH.HandleAnswer)
			r.Delete("/interview/sessions/{id}/answers/{questionId}", interviewH.HandleClearAnswer)
			r.Post("/interview/sessions/{id}/complete", interviewH.HandleComplete)

			r.Get("/coaching/sessions", coachingH.HandleMySessions)
			r.Post("/coaching/sessions", coachingH.HandleBook)
			r.Post("/coaching/sessions/{id}/cancel", coachingH.HandleCancel)

			r.Get("/goals", careerH.HandleListGoals)
			r.Post("/goals", careerH.HandleCreateGoal)
			r.Patch("/goals/{id}", careerH.HandleUpdateGoal)
			r.Delete("/goals/{id}", careerH.HandleDeleteGoal)

			r.Get("/references", careerH.HandleListReferences)
			r.Post("/references", careerH.HandleCreateReference)
			r.Patch("/references/{id}", careerH.HandleUpdateReference)
			r.Delete("/references/{id}", careerH.HandleDeleteReference)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/coaching/sessions/{id}/complete", coachingH.HandleComplete)
				r.Get("/admin/feature-flags", flagH.HandleList)
				r.Put("/admin/feature-flags/{key}", flagH.HandleSave)
				r.Delete("/admin/feature-flags/{key}", flagH.HandleDelete)
			})
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests, stops
// the notification sweep and closes the database.
func (s *Server) Start() error {
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting notification sweep: %w", err)
	}
	defer s.scheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close releases the database and Redis client without serving.
func (s *Server) Close() {
	s.close()
}

func (s *Server) close() {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
		s.rdb = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database", slog.String("error", err.Error()))
		}
		s.db = nil
	}
}
