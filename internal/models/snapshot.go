package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SnapshotKind tells whether a snapshot captured the configuration before or
// after a change event.
type SnapshotKind string

const (
	SnapshotBefore SnapshotKind = "before"
	SnapshotAfter  SnapshotKind = "after"
)

// ConfigSnapshot is an immutable record of a machine's configuration at a
// point in time. Rows are only ever inserted.
type ConfigSnapshot struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MachineID  uint      `gorm:"not null;index:idx_snapshot_machine_captured,priority:1" json:"machine_id"`
	Machine    *Machine  `gorm:"foreignKey:MachineID" json:"-"`
	Unit       int       `gorm:"not null" json:"unit"`
	CapturedAt time.Time `gorm:"not null;index:idx_snapshot_machine_captured,priority:2" json:"captured_at"`

	MachineNumber      int      `gorm:"not null" json:"machine_number"`
	Name               string   `gorm:"size:100" json:"name"`
	YarnType           string   `gorm:"size:100" json:"yarn_type"`
	SpindleCount       int      `gorm:"not null;default:0" json:"spindle_count"`
	Speed              float64  `gorm:"not null;default:0" json:"speed"`
	RatedProduction100 *float64 `gorm:"column:rated_production_100" json:"rated_production_100"`

	Kind          SnapshotKind   `gorm:"size:10;not null" json:"kind"`
	ChangedFields datatypes.JSON `json:"changed_fields,omitempty"`
}

// TableName keeps snapshots next to the machines table.
func (ConfigSnapshot) TableName() string { return "machine_config_snapshots" }

// NewConfigSnapshot captures cfg for machine m.
func NewConfigSnapshot(m *Machine, cfg MachineConfig, kind SnapshotKind, changed []string, at time.Time) ConfigSnapshot {
	s := ConfigSnapshot{
		MachineID:          m.ID,
		Unit:               m.Unit,
		CapturedAt:         at,
		MachineNumber:      cfg.MachineNumber,
		Name:               cfg.Name,
		YarnType:           cfg.YarnType,
		SpindleCount:       cfg.SpindleCount,
		Speed:              cfg.Speed,
		RatedProduction100: cloneFloat(cfg.RatedProduction100),
		Kind:               kind,
	}
	if len(changed) > 0 {
		if raw, err := json.Marshal(changed); err == nil {
			s.ChangedFields = datatypes.JSON(raw)
		}
	}
	return s
}

// Config returns the configuration captured by the snapshot.
func (s *ConfigSnapshot) Config() MachineConfig {
	return MachineConfig{
		MachineNumber:      s.MachineNumber,
		Name:               s.Name,
		YarnType:           s.YarnType,
		SpindleCount:       s.SpindleCount,
		Speed:              s.Speed,
		RatedProduction100: cloneFloat(s.RatedProduction100),
	}
}

// Changed decodes ChangedFields.
func (s *ConfigSnapshot) Changed() []string {
	if len(s.ChangedFields) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(s.ChangedFields, &out); err != nil {
		return nil
	}
	return out
}
