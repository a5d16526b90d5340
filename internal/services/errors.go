package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/validation"
	"gorm.io/gorm"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrEntryNotFound   = errors.New("production entry not found")
	ErrDuplicateEntry  = errors.New("production entry already exists")
	ErrEmptySubmission = errors.New("at least one shift must have positive production")
	ErrInvalidShift    = errors.New("invalid shift")
	ErrMachineExists   = errors.New("machine number already used in this unit")
	ErrMachineInactive = errors.New("machine is inactive")
)

// DuplicateEntryError names the tuple that already has an entry.
type DuplicateEntryError struct {
	Unit          int
	MachineNumber int
	Date          string
	Shift         models.Shift
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("entry for unit %d machine %d on %s (%s shift) already exists",
		e.Unit, e.MachineNumber, e.Date, e.Shift)
}

func (e *DuplicateEntryError) Unwrap() error { return ErrDuplicateEntry }

func duplicateOf(e *models.ProductionEntry) error {
	return &DuplicateEntryError{Unit: e.Unit, MachineNumber: e.MachineNumber, Date: e.DateKey(), Shift: e.Shift}
}

// ValidationError carries field-level violations found before any write.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, msg := range e.Violations {
		fields = append(fields, f+": "+msg)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// isUniqueViolation detects unique-index failures from either driver, with or
// without gorm error translation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
