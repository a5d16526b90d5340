package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.App.RequireAuth)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/mill.db")
	t.Setenv("REQUIRE_AUTH", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/mill.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.App.RequireAuth)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "mill", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=mill sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p@db:5433/mill?sslmode=disable", d.URL())

	d.DSNOverride = "postgres://x:y@z:1/w"
	assert.Equal(t, "postgres://x:y@z:1/w", d.DSN())
	assert.Equal(t, "postgres://x:y@z:1/w", d.URL())
}

func TestParseUnitRanges(t *testing.T) {
	got, err := ParseUnitRanges("1:1-9, 2:10-21")
	require.NoError(t, err)
	assert.Equal(t, []UnitRange{{Unit: 1, From: 1, To: 9}, {Unit: 2, From: 10, To: 21}}, got)

	for _, bad := range []string{"1-9", "1:9", "x:1-2", "1:5-2"} {
		_, err := ParseUnitRanges(bad)
		assert.Error(t, err, bad)
	}
}
