package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/fkhayef/splitdraft/docs"
	"github.com/fkhayef/splitdraft/internal/config"
	"github.com/fkhayef/splitdraft/internal/database"
	"github.com/fkhayef/splitdraft/internal/directory"
	"github.com/fkhayef/splitdraft/internal/expense"
	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/metrics"
	"github.com/fkhayef/splitdraft/internal/notification"
	"github.com/fkhayef/splitdraft/pkg/logging"
	mw "github.com/fkhayef/splitdraft/pkg/middleware"
)

// @title           Split Draft API
// @version         1.0
// @description     Draft shared expenses and submit them once the split reconciles.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dialect := cfg.Dialect()
	db, err := database.Open(ctx, dialect, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(dialect, cfg.DSN()); err != nil {
		return err
	}
	logger.Info("Connected to database", "backend", dialect)

	// Event publisher, optional
	var publisher notification.Publisher = notification.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := notification.NewAMQPPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, 5)
		if err != nil {
			return err
		}
		publisher = p
		logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange)
	}
	defer publisher.Close()

	// Directory feature (users + groups)
	directoryRepo := directory.NewRepository(db)
	directoryService := directory.NewService(directoryRepo)
	directoryHandler := directory.NewHandler(directoryService)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, publisher, cfg.Currency())
	notificationHandler := notification.NewHandler(notificationService)

	// Expense feature (drafts in memory, expenses in the database)
	var recorder expense.Recorder
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m := metrics.NewRecorder()
		recorder, metricsHandler = m, m.Handler()
	}
	engine := split.NewEngine(cfg.Currency())
	drafts := expense.NewRegistry(cfg.MaxDrafts, cfg.DraftTTL)
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, directoryService, notificationService, drafts, engine, recorder)
	expenseHandler := expense.NewHandler(expenseService)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		switch cfg.AuthMode {
		case config.AuthModeDev:
			logger.Warn("AUTH_MODE=dev: trusting the X-User-ID header")
			r.Use(mw.DevUserMiddleware)
		default:
			jwtManager := mw.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
			r.Use(mw.AuthMiddleware(jwtManager))
		}

		r.Mount("/users", directoryHandler.UserRoutes())
		r.Mount("/groups", directoryHandler.GroupRoutes())
		r.Mount("/drafts", expenseHandler.DraftRoutes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Post("/splits/preview", expenseHandler.Preview)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", "port", cfg.Port, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Janitor: drop drafts nobody touched within the TTL
	g.Go(func() error {
		ticker := time.NewTicker(janitorInterval(cfg.DraftTTL))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				expenseService.CleanExpired()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		return time.Second
	}
	if interval > 5*time.Minute {
		return 5 * time.Minute
	}
	return interval
}
