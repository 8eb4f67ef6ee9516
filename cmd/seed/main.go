// Command seed creates the default roles and, optionally, an initial Admin user.
//
// Usage:
//
//	seed [-admin-username name -admin-password pass]
//
// It reads the same MONGO_* and JWT_* environment as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	mongodb "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/pkg/logger"
)

func main() {
	adminUser := flag.String("admin-username", "", "create an Admin user with this name")
	adminPass := flag.String("admin-password", "", "password for the Admin user")
	flag.Parse()

	log := logger.Init(logger.Options{Level: "info", Pretty: true, Service: "auth-seed", Output: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	if err := roles.EnsureRoles(ctx, domain.DefaultRoles...); err != nil {
		log.Fatal().Err(err).Msg("seed roles")
	}
	log.Info().Strs("roles", domain.DefaultRoles).Msg("roles ensured")

	if *adminUser == "" {
		return
	}
	if len(*adminPass) < 8 {
		log.Fatal().Msg("admin-password must be at least 8 characters")
	}

	identity, err := service.NewIdentityService(users, roles, cfg.Identity.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("identity service")
	}

	user, err := identity.Create(ctx, &domain.User{Username: *adminUser, Roles: []string{domain.RoleAdmin}}, *adminPass)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		user, err = identity.FindByUsername(ctx, *adminUser)
		if err != nil {
			log.Fatal().Err(err).Msg("load existing admin")
		}
	case err != nil:
		log.Fatal().Err(err).Msg("create admin")
	}

	if err := identity.AssignRole(ctx, user, domain.RoleAdmin); err != nil {
		log.Fatal().Err(err).Msg("assign admin role")
	}
	if err := mongodb.NewSessionRepository(db).Create(ctx, &domain.Session{UserID: user.ID, JoinDate: time.Now()}); err != nil {
		log.Fatal().Err(err).Msg("create admin session")
	}
	log.Info().Str("username", user.Username).Msg("admin user ready")
}
