package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// EntryKey locates a machine's readings for one date.
type EntryKey struct {
	Unit          int       `json:"unit" validate:"required,gte=1"`
	MachineNumber int       `json:"machine_number" validate:"required,gte=1"`
	Date          time.Time `json:"date" validate:"required"`
}

// ShiftFields are the writable values of one shift reading. Nil means "not
// provided".
type ShiftFields struct {
	ActualProduction      *float64 `json:"actual_production" validate:"omitempty,gte=0"`
	TheoreticalProduction *float64 `json:"theoretical_production" validate:"omitempty,gt=0"`
	Remarks               *string  `json:"remarks" validate:"omitempty,max=2000"`
	WorkerName            *string  `json:"worker_name" validate:"omitempty,max=100"`
	MainsReading          *float64 `json:"mains_reading" validate:"omitempty,gte=0"`
}

// CreateEntryInput records a single shift.
type CreateEntryInput struct {
	EntryKey
	Shift models.Shift `json:"shift"`
	ShiftFields
	RecordedBy *uint `json:"-"`
}

// PairInput carries both shifts of one machine/date. Used by the paired create
// and the batch upsert.
type PairInput struct {
	EntryKey
	Day        *ShiftFields `json:"day"`
	Night      *ShiftFields `json:"night"`
	RecordedBy *uint        `json:"-"`
}

func (p PairInput) fields(s models.Shift) *ShiftFields {
	if s == models.ShiftDay {
		return p.Day
	}
	return p.Night
}

// ShiftPair holds the entries written for a machine/date.
type ShiftPair struct {
	Day   *models.ProductionEntry `json:"day"`
	Night *models.ProductionEntry `json:"night"`
}

func (p *ShiftPair) set(s models.Shift, e *models.ProductionEntry) {
	if s == models.ShiftDay {
		p.Day = e
	} else {
		p.Night = e
	}
}

// EntryFilter narrows ListEntries. Unit is required.
type EntryFilter struct {
	Unit          int
	MachineNumber *int
	Shift         *models.Shift
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

// EntryPage is one page of entries.
type EntryPage struct {
	Entries []models.ProductionEntry `json:"entries"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Limit   int                      `json:"limit"`
}

// ProductionService stores shift production entries.
type ProductionService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewProductionService(db *gorm.DB) *ProductionService {
	return &ProductionService{db: db, log: logger.For("production")}
}

func checkKey(k EntryKey, v validation.Violations) error {
	return validation.Struct(k, v)
}

// checkFields validates f, prefixing violation keys ("day.actual_production").
func checkFields(prefix string, f *ShiftFields, v validation.Violations) error {
	if f == nil {
		return nil
	}
	local := make(validation.Violations)
	if err := validation.Struct(f, local); err != nil {
		return err
	}
	for field, msg := range local {
		if prefix != "" {
			field = prefix + "." + field
		}
		if _, ok := v[field]; !ok {
			v[field] = msg
		}
	}
	return nil
}

func findEntry(tx *gorm.DB, unit, number int, date time.Time, shift models.Shift) (*models.ProductionEntry, error) {
	var e models.ProductionEntry
	err := tx.Where("unit = ? AND machine_number = ? AND date = ? AND shift = ?", unit, number, date, shift).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// createInTx writes a new entry for m. The rating comes from f when given,
// otherwise from the machine's current configuration.
func createInTx(tx *gorm.DB, m *models.Machine, date time.Time, shift models.Shift, f ShiftFields, by *uint) (*models.ProductionEntry, error) {
	if !m.IsActive {
		return nil, fmt.Errorf("%w: unit %d machine %d", ErrMachineInactive, m.Unit, m.MachineNumber)
	}
	e := models.ProductionEntry{
		Unit:          m.Unit,
		MachineNumber: m.MachineNumber,
		Date:          date,
		Shift:         shift,
		MachineID:     m.ID,
		YarnType:      m.YarnType,
		RecordedBy:    by,
	}
	if f.ActualProduction != nil {
		e.ActualProduction = *f.ActualProduction
	}
	e.TheoreticalProduction = cloneFloat(f.TheoreticalProduction)
	if e.TheoreticalProduction == nil {
		e.TheoreticalProduction = cloneFloat(m.RatedProduction100)
	}
	e.Efficiency = Efficiency(e.ActualProduction, e.TheoreticalProduction)
	if f.Remarks != nil {
		e.Remarks = strings.TrimSpace(*f.Remarks)
	}
	if f.WorkerName != nil {
		e.WorkerName = strings.TrimSpace(*f.WorkerName)
	}
	e.MainsReading = cloneFloat(f.MainsReading)

	existing, err := findEntry(tx, e.Unit, e.MachineNumber, e.Date, e.Shift)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateOf(&e)
	}
	if err := tx.Create(&e).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateOf(&e)
		}
		return nil, err
	}
	return &e, nil
}

// updateInTx applies f to e and recomputes efficiency. A missing rating is
// backfilled from the machine's current configuration when available.
func updateInTx(tx *gorm.DB, e *models.ProductionEntry, f ShiftFields) error {
	if f.ActualProduction != nil {
		e.ActualProduction = *f.ActualProduction
	}
	if f.TheoreticalProduction != nil {
		e.TheoreticalProduction = cloneFloat(f.TheoreticalProduction)
	}
	if f.Remarks != nil {
		e.Remarks = strings.TrimSpace(*f.Remarks)
	}
	if f.WorkerName != nil {
		e.WorkerName = strings.TrimSpace(*f.WorkerName)
	}
	if f.MainsReading != nil {
		e.MainsReading = cloneFloat(f.MainsReading)
	}
	if e.TheoreticalProduction == nil {
		m, err := resolveMachine(tx, e.Unit, e.MachineNumber)
		switch {
		case err == nil:
			e.TheoreticalProduction = cloneFloat(m.RatedProduction100)
		case !errors.Is(err, ErrMachineNotFound):
			return err
		}
	}
	e.Efficiency = Efficiency(e.ActualProduction, e.TheoreticalProduction)
	return tx.Save(e).Error
}

// CreateEntry records one shift reading. It fails with ErrDuplicateEntry when
// the machine already has a reading for that date and shift.
func (s *ProductionService) CreateEntry(ctx context.Context, in CreateEntryInput) (*models.ProductionEntry, error) {
	if !in.Shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShift, in.Shift)
	}
	in.Date = models.NormalizeDate(in.Date)
	v := make(validation.Violations)
	if err := checkKey(in.EntryKey, v); err != nil {
		return nil, err
	}
	if err := checkFields("", &in.ShiftFields, v); err != nil {
		return nil, err
	}
	if in.ActualProduction == nil {
		v["actual_production"] = "required"
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	var created *models.ProductionEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := resolveMachine(tx, in.Unit, in.MachineNumber)
		if err != nil {
			return err
		}
		created, err = createInTx(tx, m, in.Date, in.Shift, in.ShiftFields, in.RecordedBy)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) && !errors.Is(err, ErrDuplicateEntry) {
			return nil, &DuplicateEntryError{Unit: in.Unit, MachineNumber: in.MachineNumber, Date: in.Date.Format(validation.DateLayout), Shift: in.Shift}
		}
		return nil, err
	}
	s.logEntry(created, "entry created")
	return created, nil
}

func (s *ProductionService) checkPair(in *PairInput) error {
	in.Date = models.NormalizeDate(in.Date)
	v := make(validation.Violations)
	if err := checkKey(in.EntryKey, v); err != nil {
		return err
	}
	for _, shift := range models.Shifts {
		if err := checkFields(string(shift), in.fields(shift), v); err != nil {
			return err
		}
	}
	return invalid(v)
}

func positive(f *ShiftFields) bool {
	return f != nil && f.ActualProduction != nil && *f.ActualProduction > 0
}

// hasDetails reports whether f carries anything besides the production value.
func (f *ShiftFields) hasDetails() bool {
	blank := func(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }
	return f.TheoreticalProduction != nil || f.MainsReading != nil || !blank(f.Remarks) || !blank(f.WorkerName)
}

// CreatePairedEntry writes the day and night readings in one transaction.
// Every shift with a production value is written, zero included, but at least
// one must be positive. A shift with details but no production value is a
// violation. If either shift already exists nothing is written.
func (s *ProductionService) CreatePairedEntry(ctx context.Context, in PairInput) (*ShiftPair, error) {
	if err := s.checkPair(&in); err != nil {
		return nil, err
	}
	if !positive(in.Day) && !positive(in.Night) {
		return nil, ErrEmptySubmission
	}
	v := make(validation.Violations)
	for _, shift := range models.Shifts {
		if f := in.fields(shift); f != nil && f.ActualProduction == nil && f.hasDetails() {
			v[string(shift)+".actual_production"] = "required"
		}
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	pair := &ShiftPair{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := resolveMachine(tx, in.Unit, in.MachineNumber)
		if err != nil {
			return err
		}
		for _, shift := range models.Shifts {
			f := in.fields(shift)
			if f == nil || f.ActualProduction == nil {
				continue
			}
			e, err := createInTx(tx, m, in.Date, shift, *f, in.RecordedBy)
			if err != nil {
				return err
			}
			pair.set(shift, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logEntry(pair.Day, "entry created")
	s.logEntry(pair.Night, "entry created")
	return pair, nil
}

// BatchUpsertShiftPair updates existing shift readings and creates missing
// ones with positive production, all in one transaction. Shifts that are
// neither present nor positive are skipped.
func (s *ProductionService) BatchUpsertShiftPair(ctx context.Context, in PairInput) (*ShiftPair, error) {
	if err := s.checkPair(&in); err != nil {
		return nil, err
	}

	pair := &ShiftPair{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := resolveMachine(tx, in.Unit, in.MachineNumber)
		if err != nil {
			return err
		}
		for _, shift := range models.Shifts {
			f := in.fields(shift)
			if f == nil {
				continue
			}
			existing, err := findEntry(tx, in.Unit, in.MachineNumber, in.Date, shift)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := updateInTx(tx, existing, *f); err != nil {
					return err
				}
				pair.set(shift, existing)
				continue
			}
			if !positive(f) {
				continue
			}
			e, err := createInTx(tx, m, in.Date, shift, *f, in.RecordedBy)
			if err != nil {
				return err
			}
			pair.set(shift, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logEntry(pair.Day, "entry upserted")
	s.logEntry(pair.Night, "entry upserted")
	return pair, nil
}

// GetEntry loads an entry by id.
func (s *ProductionService) GetEntry(ctx context.Context, id uint) (*models.ProductionEntry, error) {
	var e models.ProductionEntry
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// UpdateEntry changes an entry's values and recomputes its efficiency. The
// identity (unit, machine, date, shift) cannot change.
func (s *ProductionService) UpdateEntry(ctx context.Context, id uint, f ShiftFields) (*models.ProductionEntry, error) {
	v := make(validation.Violations)
	if err := checkFields("", &f, v); err != nil {
		return nil, err
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	var e models.ProductionEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return updateInTx(tx, &e, f)
	})
	if err != nil {
		return nil, err
	}
	s.logEntry(&e, "entry updated")
	return &e, nil
}

// DeleteEntry removes an entry permanently.
func (s *ProductionService) DeleteEntry(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ProductionEntry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	s.log.WithField("entry_id", id).Info("entry deleted")
	return nil
}

// DeletePair removes both shift readings of a machine/date and reports how
// many were deleted.
func (s *ProductionService) DeletePair(ctx context.Context, unit, number int, date time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("unit = ? AND machine_number = ? AND date = ?", unit, number, models.NormalizeDate(date)).
		Delete(&models.ProductionEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	s.log.WithFields(logrus.Fields{
		"unit":           unit,
		"machine_number": number,
		"date":           date.Format(validation.DateLayout),
		"deleted":        res.RowsAffected,
	}).Info("entry pair deleted")
	return res.RowsAffected, nil
}

func applyEntryFilter(q *gorm.DB, f EntryFilter) *gorm.DB {
	q = q.Where("unit = ?", f.Unit)
	if f.MachineNumber != nil {
		q = q.Where("machine_number = ?", *f.MachineNumber)
	}
	if f.Shift != nil {
		q = q.Where("shift = ?", *f.Shift)
	}
	if f.From != nil {
		q = q.Where("date >= ?", models.NormalizeDate(*f.From))
	}
	if f.To != nil {
		q = q.Where("date <= ?", models.NormalizeDate(*f.To))
	}
	return q
}

// ListEntries returns a page of entries for a unit, newest date first, then by
// machine number with the day shift before the night shift.
func (s *ProductionService) ListEntries(ctx context.Context, f EntryFilter) (*EntryPage, error) {
	if f.Unit <= 0 {
		return nil, &ValidationError{Violations: validation.Violations{"unit": "required"}}
	}
	if f.Shift != nil && !f.Shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShift, *f.Shift)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, &ValidationError{Violations: validation.Violations{"to": "before_from"}}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}

	q := applyEntryFilter(s.db.WithContext(ctx).Model(&models.ProductionEntry{}), f).Session(&gorm.Session{})
	page := &EntryPage{Page: f.Page, Limit: f.Limit, Entries: []models.ProductionEntry{}}
	if err := q.Count(&page.Total).Error; err != nil {
		return nil, err
	}
	err := q.Order("date DESC, machine_number ASC, shift ASC").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&page.Entries).Error
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *ProductionService) logEntry(e *models.ProductionEntry, msg string) {
	if e == nil {
		return
	}
	s.log.WithFields(logrus.Fields{
		"entry_id":       e.ID,
		"unit":           e.Unit,
		"machine_number": e.MachineNumber,
		"date":           e.DateKey(),
		"shift":          e.Shift,
	}).Info(msg)
}
