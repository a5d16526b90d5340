// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `env:"PORT" envDefault:"8080"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT" envDefault:"15"`  // seconds
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"` // seconds
	IdleTimeout  int    `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`  // seconds
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" envDefault:"postgres"`
	DSNOverride string `env:"DATABASE_DSN"`
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        int    `env:"DB_PORT" envDefault:"5432"`
	User        string `env:"DB_USER" envDefault:"spinning"`
	Password    string `env:"DB_PASSWORD" envDefault:"spinning123"`
	DBName      string `env:"DB_NAME" envDefault:"spinning"`
	SSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"spinning.db"`
	Debug       bool   `env:"DB_DEBUG" envDefault:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev              bool   `env:"DEV" envDefault:"true"`
	Migrations       bool   `env:"MIGRATIONS" envDefault:"false"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	RequireAuth      bool   `env:"REQUIRE_AUTH" envDefault:"false"`
	SessionSecret    string `env:"SESSION_SECRET" envDefault:"devsessionsecret"`
	LegacyUnitRanges string `env:"LEGACY_UNIT_RANGES" envDefault:"1:1-9,2:10-21"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"` // text | json
	File       string `env:"LOG_FILE"`                     // empty = stdout only
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"50"` // MB
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"` // days
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.DSNOverride != "" {
		return d.DSNOverride
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSNOverride, "postgres://") || strings.HasPrefix(d.DSNOverride, "postgresql://") {
		return d.DSNOverride
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if _, err := ParseUnitRanges(cfg.App.LegacyUnitRanges); err != nil {
		return nil, fmt.Errorf("LEGACY_UNIT_RANGES: %w", err)
	}
	return cfg, nil
}

// UnitRange maps an inclusive machine-number range to a unit. It only exists
// to classify legacy rows imported without a unit.
type UnitRange struct {
	Unit int
	From int
	To   int
}

// ParseUnitRanges parses "1:1-9,2:10-21".
func ParseUnitRanges(s string) ([]UnitRange, error) {
	var out []UnitRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		unitStr, rangeStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("missing ':' in %q", part)
		}
		fromStr, toStr, ok := strings.Cut(rangeStr, "-")
		if !ok {
			return nil, fmt.Errorf("missing '-' in %q", part)
		}
		unit, err := strconv.Atoi(strings.TrimSpace(unitStr))
		if err != nil {
			return nil, fmt.Errorf("unit in %q: %w", part, err)
		}
		from, err := strconv.Atoi(strings.TrimSpace(fromStr))
		if err != nil {
			return nil, fmt.Errorf("range start in %q: %w", part, err)
		}
		to, err := strconv.Atoi(strings.TrimSpace(toStr))
		if err != nil {
			return nil, fmt.Errorf("range end in %q: %w", part, err)
		}
		if from > to {
			return nil, fmt.Errorf("empty range in %q", part)
		}
		out = append(out, UnitRange{Unit: unit, From: from, To: to})
	}
	return out, nil
}
