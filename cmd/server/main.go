package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-spinning/auth"
	"github.com/diewo77/go-spinning/internal/config"
	"github.com/diewo77/go-spinning/internal/db"
	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/policy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag   = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	backfillUnitsFlag = flag.Bool("backfill-units", false, "Assign units to legacy rows from LEGACY_UNIT_RANGES and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Log)
	log := logger.For("main")

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations completed successfully")
		return
	}

	if *backfillUnitsFlag {
		ranges, err := config.ParseUnitRanges(cfg.App.LegacyUnitRanges)
		if err != nil {
			log.WithError(err).Fatal("invalid LEGACY_UNIT_RANGES")
		}
		res, err := db.BackfillUnits(dbConn, ranges)
		if err != nil {
			log.WithError(err).Fatal("unit backfill failed")
		}
		log.WithFields(logrus.Fields{
			"machines":  res.Machines,
			"entries":   res.Entries,
			"unmatched": res.Unmatched,
		}).Info("unit backfill completed")
		return
	}

	if cfg.App.Migrations {
		if err := migrate(cfg, dbConn); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations completed")
	}

	routerCfg := policy.NewRouterConfig(dbConn, cfg.App.RequireAuth)
	appHandler := NewApp(dbConn, routerCfg, auth.NewSessions(cfg.App.SessionSecret))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":         cfg.Server.Port,
			"dev":          cfg.App.Dev,
			"require_auth": cfg.App.RequireAuth,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("server stopped gracefully")
}

// migrate applies the versioned SQL migrations on Postgres and falls back to
// gorm AutoMigrate on sqlite.
func migrate(cfg *config.Config, conn *gorm.DB) error {
	if cfg.Database.Driver == "postgres" {
		return db.RunSQLMigrations(cfg.Database.URL(), cfg.App.MigrationsDir)
	}
	return db.Migrate(conn)
}
