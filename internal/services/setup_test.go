package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/diewo77/go-spinning/internal/db"
	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)
	conn, err := db.OpenSQLite("file:"+t.Name()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

type testServices struct {
	machines   *MachineService
	history    *HistoryService
	production *ProductionService
	stats      *StatsService
}

func newTestServices(conn *gorm.DB) testServices {
	h := NewHistoryService(conn)
	return testServices{
		machines:   NewMachineService(conn, h),
		history:    h,
		production: NewProductionService(conn),
		stats:      NewStatsService(conn),
	}
}

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

func day(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func seedMachine(t *testing.T, svc testServices, unit, number int, rated *float64) *models.Machine {
	t.Helper()
	m, err := svc.machines.Create(context.Background(), MachineInput{
		Unit:               unit,
		MachineNumber:      number,
		YarnType:           "30s PC",
		SpindleCount:       1008,
		Speed:              15000,
		RatedProduction100: rated,
	})
	require.NoError(t, err)
	return m
}
