package models

import (
	"strconv"
	"strings"
	"time"
)

// Machine is a spinning machine within a production unit. Machine numbers are
// scoped per unit; (Unit, MachineNumber) is unique.
// Machines are never deleted, only deactivated.
type Machine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Unit          int    `gorm:"not null;index:idx_machine_unit_number,unique,priority:1" json:"unit"`
	MachineNumber int    `gorm:"not null;index:idx_machine_unit_number,unique,priority:2" json:"machine_number"`
	Name          string `gorm:"size:100" json:"name"`

	// Live configuration
	YarnType     string  `gorm:"size:100" json:"yarn_type"`
	SpindleCount int     `gorm:"not null;default:0" json:"spindle_count"`
	Speed        float64 `gorm:"not null;default:0" json:"speed"`
	// RatedProduction100 is the output at 100% efficiency. Nil means unrated.
	RatedProduction100 *float64 `gorm:"column:rated_production_100" json:"rated_production_100"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`
}

// DisplayName returns Name, or a generated label when no name was set.
func (m *Machine) DisplayName() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return "Machine " + strconv.Itoa(m.MachineNumber)
}

// Config returns the machine's live tracked configuration.
func (m *Machine) Config() MachineConfig {
	return MachineConfig{
		MachineNumber:      m.MachineNumber,
		Name:               m.Name,
		YarnType:           m.YarnType,
		SpindleCount:       m.SpindleCount,
		Speed:              m.Speed,
		RatedProduction100: cloneFloat(m.RatedProduction100),
	}
}

// ApplyConfig overwrites the tracked configuration fields.
func (m *Machine) ApplyConfig(c MachineConfig) {
	m.MachineNumber = c.MachineNumber
	m.Name = c.Name
	m.YarnType = c.YarnType
	m.SpindleCount = c.SpindleCount
	m.Speed = c.Speed
	m.RatedProduction100 = cloneFloat(c.RatedProduction100)
}

// MachineConfig is the set of fields whose changes are recorded in the
// configuration history.
type MachineConfig struct {
	MachineNumber      int      `json:"machine_number"`
	Name               string   `json:"name"`
	YarnType           string   `json:"yarn_type"`
	SpindleCount       int      `json:"spindle_count"`
	Speed              float64  `json:"speed"`
	RatedProduction100 *float64 `json:"rated_production_100"`
}

// Tracked field names, as stored in ConfigSnapshot.ChangedFields.
const (
	FieldMachineNumber = "machine_number"
	FieldName          = "name"
	FieldYarnType      = "yarn_type"
	FieldSpindleCount  = "spindle_count"
	FieldSpeed         = "speed"
	FieldRated         = "rated_production_100"
)

// Diff lists the tracked fields that differ between c and other. Yarn types
// are compared case- and whitespace-insensitively.
func (c MachineConfig) Diff(other MachineConfig) []string {
	var changed []string
	if c.MachineNumber != other.MachineNumber {
		changed = append(changed, FieldMachineNumber)
	}
	if strings.TrimSpace(c.Name) != strings.TrimSpace(other.Name) {
		changed = append(changed, FieldName)
	}
	if foldYarn(c.YarnType) != foldYarn(other.YarnType) {
		changed = append(changed, FieldYarnType)
	}
	if c.SpindleCount != other.SpindleCount {
		changed = append(changed, FieldSpindleCount)
	}
	if c.Speed != other.Speed {
		changed = append(changed, FieldSpeed)
	}
	if !equalFloatPtr(c.RatedProduction100, other.RatedProduction100) {
		changed = append(changed, FieldRated)
	}
	return changed
}

// Equal reports whether no tracked field differs.
func (c MachineConfig) Equal(other MachineConfig) bool {
	return len(c.Diff(other)) == 0
}

func foldYarn(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
