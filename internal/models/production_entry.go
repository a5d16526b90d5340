package models

import (
	"fmt"
	"strings"
	"time"
)

// Shift is one of the two daily production windows.
type Shift string

const (
	ShiftDay   Shift = "day"
	ShiftNight Shift = "night"
)

// Shifts lists both shifts in reporting order.
var Shifts = []Shift{ShiftDay, ShiftNight}

// ParseShift accepts "day"/"night" in any case.
func ParseShift(s string) (Shift, error) {
	switch Shift(strings.ToLower(strings.TrimSpace(s))) {
	case ShiftDay:
		return ShiftDay, nil
	case ShiftNight:
		return ShiftNight, nil
	default:
		return "", fmt.Errorf("invalid shift %q", s)
	}
}

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftNight
}

// ProductionEntry is one shift reading for one machine on one date.
// (Unit, MachineNumber, Date, Shift) is unique at the storage layer.
type ProductionEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Unit          int       `gorm:"not null;index:idx_entry_machine_date_shift,unique,priority:1;index:idx_entry_unit_date,priority:1" json:"unit"`
	MachineNumber int       `gorm:"not null;index:idx_entry_machine_date_shift,unique,priority:2" json:"machine_number"`
	Date          time.Time `gorm:"type:date;not null;index:idx_entry_machine_date_shift,unique,priority:3;index:idx_entry_unit_date,priority:2" json:"date"`
	Shift         Shift     `gorm:"size:10;not null;index:idx_entry_machine_date_shift,unique,priority:4" json:"shift"`

	// MachineID links the machine the entry was resolved against.
	MachineID uint     `gorm:"index" json:"machine_id"`
	Machine   *Machine `gorm:"foreignKey:MachineID" json:"-"`

	ActualProduction float64 `gorm:"not null" json:"actual_production"`
	// TheoreticalProduction is the machine rating captured at write time so
	// later reconfiguration does not rewrite historical efficiency.
	TheoreticalProduction *float64 `json:"theoretical_production"`
	// Efficiency is stored, not computed on read. Nil when no rating exists.
	Efficiency *float64 `json:"efficiency"`

	YarnType     string   `gorm:"size:100" json:"yarn_type"`
	Remarks      string   `gorm:"type:text" json:"remarks,omitempty"`
	WorkerName   string   `gorm:"size:100" json:"worker_name,omitempty"`
	MainsReading *float64 `json:"mains_reading,omitempty"`
	RecordedBy   *uint    `json:"recorded_by,omitempty"`
}

// DateKey returns the entry date as YYYY-MM-DD.
func (e *ProductionEntry) DateKey() string {
	return e.Date.UTC().Format("2006-01-02")
}

// NormalizeDate truncates t to its calendar date at UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
