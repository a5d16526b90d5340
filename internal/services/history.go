package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HistoryKindCurrent marks the synthesized entry for the live configuration.
const HistoryKindCurrent = "current"

// HistoryEntry is one row of a machine's configuration history.
type HistoryEntry struct {
	SnapshotID    *uint                `json:"snapshot_id"`
	Kind          string               `json:"kind"`
	CapturedAt    time.Time            `json:"captured_at"`
	Config        models.MachineConfig `json:"config"`
	ChangedFields []string             `json:"changed_fields"`
}

// HistoryService maintains the append-only configuration history.
type HistoryService struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{
		db:  db,
		log: logger.For("history"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func latestSnapshot(tx *gorm.DB, machineID uint) (*models.ConfigSnapshot, error) {
	var s models.ConfigSnapshot
	err := tx.Where("machine_id = ?", machineID).Order("captured_at DESC, id DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordChange applies a configuration change to m inside tx and records it.
// The proposal is compared with the newest snapshot, or with the live row when
// the machine has no history yet. When a tracked field differs, a "before"
// snapshot of the live row is appended (unless the newest snapshot already
// holds it), apply runs, and an "after" snapshot is appended. apply must
// persist m. Without a difference only apply runs.
func (s *HistoryService) RecordChange(tx *gorm.DB, m *models.Machine, proposed models.MachineConfig, apply func(tx *gorm.DB) error) ([]models.ConfigSnapshot, error) {
	latest, err := latestSnapshot(tx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	live := m.Config()
	baseline := live
	if latest != nil {
		baseline = latest.Config()
	}
	if baseline.Equal(proposed) && live.Equal(proposed) {
		return nil, apply(tx)
	}

	at := s.now()
	var written []models.ConfigSnapshot
	prev := live
	if latest == nil || !latest.Config().Equal(live) {
		var changed []string
		if latest != nil {
			changed = latest.Config().Diff(live)
		}
		before := models.NewConfigSnapshot(m, live, models.SnapshotBefore, changed, at)
		if err := tx.Create(&before).Error; err != nil {
			return nil, fmt.Errorf("write before snapshot: %w", err)
		}
		written = append(written, before)
	}

	if err := apply(tx); err != nil {
		return nil, err
	}

	current := m.Config()
	if changed := prev.Diff(current); len(changed) > 0 {
		after := models.NewConfigSnapshot(m, current, models.SnapshotAfter, changed, at)
		if err := tx.Create(&after).Error; err != nil {
			return nil, fmt.Errorf("write after snapshot: %w", err)
		}
		written = append(written, after)
		s.log.WithFields(logrus.Fields{
			"machine_id": m.ID,
			"changed":    changed,
		}).Info("machine configuration changed")
	}
	return written, nil
}

// ListHistory returns the machine's snapshots newest first. A synthesized
// "current" entry leads the list when the live configuration differs from the
// newest snapshot or no snapshot exists.
func (s *HistoryService) ListHistory(ctx context.Context, machineID uint) ([]HistoryEntry, error) {
	conn := s.db.WithContext(ctx)
	var m models.Machine
	if err := conn.First(&m, machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	var snaps []models.ConfigSnapshot
	if err := conn.Where("machine_id = ?", machineID).Order("captured_at DESC, id DESC").Find(&snaps).Error; err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(snaps)+1)
	live := m.Config()
	if len(snaps) == 0 || !snaps[0].Config().Equal(live) {
		var changed []string
		if len(snaps) > 0 {
			changed = snaps[0].Config().Diff(live)
		}
		out = append(out, HistoryEntry{
			Kind:          HistoryKindCurrent,
			CapturedAt:    m.UpdatedAt,
			Config:        live,
			ChangedFields: changed,
		})
	}
	for i := range snaps {
		id := snaps[i].ID
		out = append(out, HistoryEntry{
			SnapshotID:    &id,
			Kind:          string(snaps[i].Kind),
			CapturedAt:    snaps[i].CapturedAt,
			Config:        snaps[i].Config(),
			ChangedFields: snaps[i].Changed(),
		})
	}
	return out, nil
}

// ConfigAt returns the configuration in effect at the given instant: the
// newest snapshot captured at or before it, else the oldest snapshot (which
// describes the state before the first recorded change), else the live row.
func (s *HistoryService) ConfigAt(ctx context.Context, machineID uint, at time.Time) (models.MachineConfig, error) {
	conn := s.db.WithContext(ctx)
	var m models.Machine
	if err := conn.First(&m, machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MachineConfig{}, ErrMachineNotFound
		}
		return models.MachineConfig{}, err
	}
	var snap models.ConfigSnapshot
	err := conn.Where("machine_id = ? AND captured_at <= ?", machineID, at.UTC()).
		Order("captured_at DESC, id DESC").First(&snap).Error
	if err == nil {
		return snap.Config(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MachineConfig{}, err
	}
	err = conn.Where("machine_id = ?", machineID).Order("captured_at ASC, id ASC").First(&snap).Error
	if err == nil {
		return snap.Config(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MachineConfig{}, err
	}
	return m.Config(), nil
}
