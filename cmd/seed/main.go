package main

import (
	"context"
	"log"
	"os"
	"time"

	"authcore/internal/cache"
	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/logger"
	"authcore/internal/repository"
	"authcore/internal/seed"
	"authcore/internal/service"
)

func main() {
	cfg := config.Load()

	logCfg := logger.ConfigFromEnv()
	if os.Getenv("SERVICE_NAME") == "" {
		logCfg.Service = logger.DefaultService + "-seed"
	}
	zl, err := logger.Init(logCfg)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	gormDB, err := db.Open(db.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, MaxConns: cfg.DBMaxConns})
	if err != nil {
		sugar.Fatalw("database init", "error", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		sugar.Fatalw("migrate", "error", err)
	}

	// Writes invalidate cached roles, so the seeder shares the server's cache.
	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()

	store := repository.NewStore(gormDB)
	bindings := service.NewBindingService(store, store.Repositories, nil)
	seeder := seed.New(
		service.NewIdentityService(store, store.Users, cacheClient),
		service.NewRoleService(store, store.Roles, cacheClient, nil),
		bindings,
		sugar,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := seeder.Run(ctx, cfg.Seed)
	if err != nil {
		sugar.Fatalw("seed", "error", err)
	}
	sugar.Infow("seed complete",
		"roles_created", res.RolesCreated,
		"admin_created", res.AdminCreated,
		"admin_bound", res.AdminBound,
		"admin_configured", cfg.Seed.Enabled(),
	)
}
