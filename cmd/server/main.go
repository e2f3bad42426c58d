package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"authcore/docs"
	"authcore/internal/auth"
	"authcore/internal/cache"
	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/handler"
	"authcore/internal/logger"
	"authcore/internal/repository"
	"authcore/internal/router"
	"authcore/internal/service"
)

// @title Identity and Access API
// @version 1.0
// @description Users, roles, service bindings and the login audit trail.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zl, err := logger.Init(logger.ConfigFromEnv())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	gormLevel := gormlogger.Warn
	if zl.Core().Enabled(zapcore.DebugLevel) {
		gormLevel = gormlogger.Info
	}
	gormDB, err := db.Open(db.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.DBMaxConns,
		Logger: gormlogger.New(zap.NewStdLog(zl.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		sugar.Fatalw("database init", "driver", cfg.DBDriver, "error", err)
	}

	if cfg.ResetDB {
		sugar.Warnw("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			sugar.Fatalw("reset", "error", err)
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		sugar.Fatalw("migrate", "error", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()

	// Initialize services
	store := repository.NewStore(gormDB)
	identity := service.NewIdentityService(store, store.Users, cacheClient)
	roles := service.NewRoleService(store, store.Roles, cacheClient, nil)
	bindings := service.NewBindingService(store, store.Repositories, nil)
	audit := service.NewAuditService(store, store.Users, store.Logins, nil)

	// Initialize auth components
	revocations := auth.NewRevocations(cacheClient)
	guard := auth.NewAccessGuard(cfg.JWTSecret, bindings, revocations, sugar.Named("auth"))

	e := echo.New()
	e.HideBanner = true
	router.Register(e, sugar.Named("http"), guard, router.Handlers{
		Users:    handler.NewUserHandler(identity, sugar),
		Roles:    handler.NewRoleHandler(roles, bindings, sugar),
		Bindings: handler.NewBindingHandler(bindings, sugar),
		Logins:   handler.NewLoginHandler(audit, sugar),
		Sessions: handler.NewSessionHandler(revocations, sugar),
	})

	if cfg.SwaggerHost != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
		docs.SwaggerInfo.Host = host
	}
	sugar.Infow("swagger documentation available", "path", "/swagger/index.html", "host", docs.SwaggerInfo.Host)

	addr := ":" + cfg.ServerPort
	go func() {
		sugar.Infow("server starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		sugar.Errorw("server shutdown", "error", err)
	}
	sugar.Infow("server stopped")
}
