package db

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/go-spinning/internal/config"
	"github.com/diewo77/go-spinning/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// Open connects to the configured database, retrying while Postgres starts.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logger.For("db")
	gcfg := gormConfig(cfg.Debug)

	if cfg.Driver == "sqlite" {
		log.WithField("path", cfg.SQLitePath).Info("opening sqlite database")
		return OpenSQLite(cfg.SQLitePath, cfg.Debug)
	}

	dsn := NormalizeDSN(cfg.DSN())
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty, check DB_* / DATABASE_DSN")
	}
	log.WithField("dsn", maskDSN(dsn)).Info("connecting to database")

	var conn *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.WithError(err).Warnf("connection attempt %d/5 failed, retrying", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return conn, nil
}

// OpenSQLite opens a sqlite database with the same gorm settings as Postgres.
func OpenSQLite(dsn string, debug bool) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return conn, nil
}

// gormConfig enables error translation so unique-index violations surface as
// gorm.ErrDuplicatedKey on every driver.
func gormConfig(debug bool) *gorm.Config {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HealthCheck runs a trivial query.
func HealthCheck(conn *gorm.DB) error {
	return conn.Exec("SELECT 1").Error
}

func maskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		return passwordRegex.ReplaceAllString(dsn, `${1}***`)
	}
	if i := strings.Index(dsn, "://"); i >= 0 {
		if at := strings.Index(dsn[i+3:], "@"); at >= 0 {
			creds := dsn[i+3 : i+3+at]
			if user, _, ok := strings.Cut(creds, ":"); ok {
				return dsn[:i+3] + user + ":***" + dsn[i+3+at:]
			}
		}
	}
	return dsn
}
