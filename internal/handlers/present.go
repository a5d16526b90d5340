package handlers

import (
	"time"

	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/internal/services"
	"github.com/diewo77/go-spinning/validation"
)

// entryView is the JSON shape of an entry. Efficiency is rounded for display;
// the stored value keeps full precision.
type entryView struct {
	ID                    uint         `json:"id"`
	Unit                  int          `json:"unit"`
	MachineNumber         int          `json:"machine_number"`
	Date                  string       `json:"date"`
	Shift                 models.Shift `json:"shift"`
	ActualProduction      float64      `json:"actual_production"`
	TheoreticalProduction *float64     `json:"theoretical_production"`
	Efficiency            *float64     `json:"efficiency"`
	YarnType              string       `json:"yarn_type"`
	Remarks               string       `json:"remarks,omitempty"`
	WorkerName            string       `json:"worker_name,omitempty"`
	MainsReading          *float64     `json:"mains_reading,omitempty"`
	RecordedBy            *uint        `json:"recorded_by,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

func presentEntry(e *models.ProductionEntry) *entryView {
	if e == nil {
		return nil
	}
	return &entryView{
		ID:                    e.ID,
		Unit:                  e.Unit,
		MachineNumber:         e.MachineNumber,
		Date:                  e.Date.UTC().Format(validation.DateLayout),
		Shift:                 e.Shift,
		ActualProduction:      e.ActualProduction,
		TheoreticalProduction: e.TheoreticalProduction,
		Efficiency:            services.RoundPtrForDisplay(e.Efficiency),
		YarnType:              e.YarnType,
		Remarks:               e.Remarks,
		WorkerName:            e.WorkerName,
		MainsReading:          e.MainsReading,
		RecordedBy:            e.RecordedBy,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func presentEntries(entries []models.ProductionEntry) []*entryView {
	out := make([]*entryView, 0, len(entries))
	for i := range entries {
		out = append(out, presentEntry(&entries[i]))
	}
	return out
}

type pairView struct {
	Day   *entryView `json:"day"`
	Night *entryView `json:"night"`
}

func presentPair(p *services.ShiftPair) pairView {
	return pairView{Day: presentEntry(p.Day), Night: presentEntry(p.Night)}
}

func roundYarns(yarns []services.YarnTotal) {
	for i := range yarns {
		yarns[i].Production = services.RoundForDisplay(yarns[i].Production)
		yarns[i].Efficiency = services.RoundForDisplay(yarns[i].Efficiency)
	}
}

func roundDaily(days []services.DailySummary) {
	for i := range days {
		days[i].Production = services.RoundForDisplay(days[i].Production)
		days[i].Efficiency = services.RoundForDisplay(days[i].Efficiency)
		roundYarns(days[i].Yarns)
	}
}

func roundWeekly(weeks []services.WeeklySummary) {
	for i := range weeks {
		weeks[i].Production = services.RoundForDisplay(weeks[i].Production)
		weeks[i].Efficiency = services.RoundForDisplay(weeks[i].Efficiency)
		roundYarns(weeks[i].Yarns)
	}
}

func roundMachines(machines []services.MachineSummary) {
	for i := range machines {
		machines[i].Production = services.RoundForDisplay(machines[i].Production)
		machines[i].Efficiency = services.RoundForDisplay(machines[i].Efficiency)
	}
}

func roundSummary(s *services.Summary) {
	s.TotalProduction = services.RoundForDisplay(s.TotalProduction)
	s.Efficiency = services.RoundForDisplay(s.Efficiency)
	if s.TopPerformer != nil {
		s.TopPerformer.Production = services.RoundForDisplay(s.TopPerformer.Production)
		s.TopPerformer.Efficiency = services.RoundForDisplay(s.TopPerformer.Efficiency)
	}
	roundDaily(s.Daily)
	roundYarns(s.ByYarn)
}
