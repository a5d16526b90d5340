package db

import (
	"fmt"

	"github.com/diewo77/go-spinning/internal/config"
	"github.com/diewo77/go-spinning/internal/models"
	"gorm.io/gorm"
)

// BackfillResult counts rows touched by BackfillUnits.
type BackfillResult struct {
	Machines  int64
	Entries   int64
	Unmatched int64
}

// BackfillUnits assigns a unit to machines and entries imported with unit 0,
// using the legacy machine-number ranges. It is a one-off migration helper;
// nothing at runtime derives a unit from a machine number.
func BackfillUnits(conn *gorm.DB, ranges []config.UnitRange) (BackfillResult, error) {
	var res BackfillResult
	err := conn.Transaction(func(tx *gorm.DB) error {
		for _, r := range ranges {
			q := tx.Model(&models.Machine{}).
				Where("unit = 0 AND machine_number BETWEEN ? AND ?", r.From, r.To).
				Update("unit", r.Unit)
			if q.Error != nil {
				return fmt.Errorf("backfill machines %d-%d: %w", r.From, r.To, q.Error)
			}
			res.Machines += q.RowsAffected

			q = tx.Model(&models.ProductionEntry{}).
				Where("unit = 0 AND machine_number BETWEEN ? AND ?", r.From, r.To).
				Update("unit", r.Unit)
			if q.Error != nil {
				return fmt.Errorf("backfill entries %d-%d: %w", r.From, r.To, q.Error)
			}
			res.Entries += q.RowsAffected
		}
		return tx.Model(&models.Machine{}).Where("unit = 0").Count(&res.Unmatched).Error
	})
	return res, err
}
