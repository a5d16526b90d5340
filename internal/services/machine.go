package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MachineInput registers a new machine.
type MachineInput struct {
	Unit               int      `json:"unit" validate:"required,oneof=1 2"`
	MachineNumber      int      `json:"machine_number" validate:"required,gte=1"`
	Name               string   `json:"name" validate:"max=100"`
	YarnType           string   `json:"yarn_type" validate:"max=100"`
	SpindleCount       int      `json:"spindle_count" validate:"gte=0"`
	Speed              float64  `json:"speed" validate:"gte=0"`
	RatedProduction100 *float64 `json:"rated_production_100" validate:"omitempty,gt=0"`
}

// MachineUpdate changes tracked configuration. Nil fields are left alone;
// ClearRating removes the rating so new entries get no efficiency.
type MachineUpdate struct {
	MachineNumber      *int     `json:"machine_number" validate:"omitempty,gte=1"`
	Name               *string  `json:"name" validate:"omitempty,max=100"`
	YarnType           *string  `json:"yarn_type" validate:"omitempty,max=100"`
	SpindleCount       *int     `json:"spindle_count" validate:"omitempty,gte=0"`
	Speed              *float64 `json:"speed" validate:"omitempty,gte=0"`
	RatedProduction100 *float64 `json:"rated_production_100" validate:"omitempty,gt=0"`
	ClearRating        bool     `json:"clear_rating"`
}

// MachineFilter narrows List.
type MachineFilter struct {
	Unit            int
	IncludeInactive bool
}

// MachineService is the machine registry.
type MachineService struct {
	db      *gorm.DB
	history *HistoryService
	log     logrus.FieldLogger
}

func NewMachineService(db *gorm.DB, history *HistoryService) *MachineService {
	return &MachineService{db: db, history: history, log: logger.For("machines")}
}

// List returns machines ordered by unit and number. Unit 0 means all units.
func (s *MachineService) List(ctx context.Context, f MachineFilter) ([]models.Machine, error) {
	q := s.db.WithContext(ctx).Model(&models.Machine{})
	if f.Unit > 0 {
		q = q.Where("unit = ?", f.Unit)
	}
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	var machines []models.Machine
	if err := q.Order("unit, machine_number").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

// Get loads a machine by id.
func (s *MachineService) Get(ctx context.Context, id uint) (*models.Machine, error) {
	var m models.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return &m, nil
}

// resolveMachine finds a machine by its unit-scoped number.
func resolveMachine(tx *gorm.DB, unit, number int) (*models.Machine, error) {
	var m models.Machine
	err := tx.Where("unit = ? AND machine_number = ?", unit, number).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: unit %d machine %d", ErrMachineNotFound, unit, number)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create registers a machine. New machines start active.
func (s *MachineService) Create(ctx context.Context, in MachineInput) (*models.Machine, error) {
	v := make(validation.Violations)
	if err := validation.Struct(in, v); err != nil {
		return nil, err
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	m := models.Machine{
		Unit:               in.Unit,
		MachineNumber:      in.MachineNumber,
		Name:               strings.TrimSpace(in.Name),
		YarnType:           strings.TrimSpace(in.YarnType),
		SpindleCount:       in.SpindleCount,
		Speed:              in.Speed,
		RatedProduction100: in.RatedProduction100,
		IsActive:           true,
	}
	conn := s.db.WithContext(ctx)
	var count int64
	if err := conn.Model(&models.Machine{}).Where("unit = ? AND machine_number = ?", m.Unit, m.MachineNumber).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrMachineExists
	}
	if err := conn.Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrMachineExists
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"unit": m.Unit, "machine": m.DisplayName()}).Info("machine registered")
	return &m, nil
}

// Update applies a configuration change and records it in the history within
// one transaction. It returns the updated machine and the snapshots written.
func (s *MachineService) Update(ctx context.Context, id uint, in MachineUpdate) (*models.Machine, []models.ConfigSnapshot, error) {
	v := make(validation.Violations)
	if err := validation.Struct(in, v); err != nil {
		return nil, nil, err
	}
	if err := invalid(v); err != nil {
		return nil, nil, err
	}

	var m models.Machine
	var written []models.ConfigSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMachineNotFound
			}
			return err
		}
		proposed := m.Config()
		if in.MachineNumber != nil {
			proposed.MachineNumber = *in.MachineNumber
		}
		if in.Name != nil {
			proposed.Name = strings.TrimSpace(*in.Name)
		}
		if in.YarnType != nil {
			proposed.YarnType = strings.TrimSpace(*in.YarnType)
		}
		if in.SpindleCount != nil {
			proposed.SpindleCount = *in.SpindleCount
		}
		if in.Speed != nil {
			proposed.Speed = *in.Speed
		}
		if in.RatedProduction100 != nil {
			rated := *in.RatedProduction100
			proposed.RatedProduction100 = &rated
		}
		if in.ClearRating {
			proposed.RatedProduction100 = nil
		}

		if proposed.MachineNumber != m.MachineNumber {
			var count int64
			if err := tx.Model(&models.Machine{}).
				Where("unit = ? AND machine_number = ? AND id <> ?", m.Unit, proposed.MachineNumber, m.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrMachineExists
			}
		}

		var err error
		written, err = s.history.RecordChange(tx, &m, proposed, func(tx *gorm.DB) error {
			m.ApplyConfig(proposed)
			return tx.Save(&m).Error
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrMachineExists
		}
		return nil, nil, err
	}
	if len(written) > 0 {
		s.log.WithFields(logrus.Fields{"unit": m.Unit, "machine": m.DisplayName(), "snapshots": len(written)}).Info("machine reconfigured")
	}
	return &m, written, nil
}

// SetActive activates or deactivates a machine. Machines are never deleted.
func (s *MachineService) SetActive(ctx context.Context, id uint, active bool) (*models.Machine, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(m).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	m.IsActive = active
	s.log.WithFields(logrus.Fields{"unit": m.Unit, "machine": m.DisplayName(), "active": active}).Info("machine activation changed")
	return m, nil
}
