// Command server runs the auth service HTTP API.
//
// @title                       Auth Service API
// @version                     1.0
// @description                 Credential issuance and token lifecycle: register, login, refresh rotation and revocation.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/core/token"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	mongodb "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/pkg/logger"
)

const (
	serviceName     = "auth-service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.Init(logger.Options{Service: serviceName})
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.IsDevelopment(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Repositories ---
	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	if err := roles.EnsureRoles(ctx, domain.DefaultRoles...); err != nil {
		return err
	}
	log.Info().Strs("roles", domain.DefaultRoles).Msg("roles seeded")

	var sessions ports.SessionStore
	switch cfg.Session.Backend {
	case config.BackendRedis:
		sessions = redisdb.NewSessionStore(rdb)
	default:
		sessions = mongodb.NewSessionRepository(db)
	}

	// --- Audit trail ---
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	audit := service.NewAuditService(mongodb.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, audit, log)
	dispatcher.Start(auditCtx)

	// --- Core services ---
	codec, err := token.NewCodec(token.Config{
		Secret:           []byte(cfg.JWT.Secret),
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		AccessTTL:        cfg.JWT.AccessTTL,
		Leeway:           cfg.JWT.Leeway,
		ValidateIssuer:   cfg.JWT.ValidateIssuer,
		ValidateAudience: cfg.JWT.ValidateAudience,
	}, time.Now)
	if err != nil {
		return err
	}

	identity, err := service.NewIdentityService(users, roles, cfg.Identity.BcryptCost)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(identity, sessions, codec, cfg.Session.RefreshTTL, log,
		service.WithLoginThrottle(redisdb.NewLoginThrottle(rdb, cfg.Login.MaxFailures, cfg.Login.LockoutWindow)),
		service.WithAuditSink(dispatcher),
	)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Log:    log,
		Auth:   authService,
		Tokens: codec,
		Checks: map[string]handler.Check{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("session_backend", cfg.Session.Backend).
			Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
