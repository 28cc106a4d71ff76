package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/nexus-vita/session-service/internal/api/http"
	"github.com/nexus-vita/session-service/internal/api/http/handlers"
	"github.com/nexus-vita/session-service/internal/api/http/session"
	"github.com/nexus-vita/session-service/internal/audit"
	"github.com/nexus-vita/session-service/internal/auth"
	"github.com/nexus-vita/session-service/internal/config"
	"github.com/nexus-vita/session-service/internal/events"
	"github.com/nexus-vita/session-service/internal/observability"
	"github.com/nexus-vita/session-service/internal/persistence"
	"github.com/nexus-vita/session-service/internal/repository"
	"github.com/nexus-vita/session-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Auth.SessionSecret == config.DevSessionSecret {
		logger.Warn("AUTH_SESSION_SECRET not set; using insecure development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	recorder := audit.NewRecorder(redis.Client, cfg.Audit, logger)
	recorder.RegisterHandlers(dispatcher)

	codec := auth.NewCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL())
	guard := auth.NewGuard(codec)

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	accountService := service.NewAccountService(cfg.Auth, accountRepo, codec, dispatcher, logger)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts: handlers.NewAccountsHandler(accountService, cfg.App.IsProduction()),
		Session:  session.NewMiddleware(guard, dispatcher, metrics),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
