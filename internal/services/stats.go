package services

import (
	"context"
	"time"

	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/validation"
	"gorm.io/gorm"
)

// StatsFilter selects the committed entries fed to the aggregation engine.
type StatsFilter struct {
	Unit          int
	MachineNumber *int
	From          *time.Time
	To            *time.Time
}

// StatsService reads entries for dashboards.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Entries loads the entries matching f, oldest first.
func (s *StatsService) Entries(ctx context.Context, f StatsFilter) ([]models.ProductionEntry, error) {
	if f.Unit <= 0 {
		return nil, &ValidationError{Violations: validation.Violations{"unit": "required"}}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, &ValidationError{Violations: validation.Violations{"to": "before_from"}}
	}
	q := applyEntryFilter(s.db.WithContext(ctx).Model(&models.ProductionEntry{}), EntryFilter{
		Unit:          f.Unit,
		MachineNumber: f.MachineNumber,
		From:          f.From,
		To:            f.To,
	})
	var entries []models.ProductionEntry
	if err := q.Order("date ASC, machine_number ASC, shift ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats returns totals, weighted efficiency and the top performer.
func (s *StatsService) Stats(ctx context.Context, f StatsFilter) (*Summary, error) {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	sum := Summarize(entries)
	return &sum, nil
}

// Daily returns one summary per date.
func (s *StatsService) Daily(ctx context.Context, f StatsFilter) ([]DailySummary, error) {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	return DailyByYarn(entries), nil
}

// Weekly returns one summary per ISO week.
func (s *StatsService) Weekly(ctx context.Context, f StatsFilter) ([]WeeklySummary, error) {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	return WeeklyByYarn(entries), nil
}

// Machines returns one summary per machine.
func (s *StatsService) Machines(ctx context.Context, f StatsFilter) ([]MachineSummary, error) {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	return ByMachine(entries), nil
}
