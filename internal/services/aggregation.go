package services

import (
	"sort"
	"time"

	"github.com/diewo77/go-spinning/internal/models"
)

// YarnTotal is the production recorded for one yarn type within a period.
type YarnTotal struct {
	YarnType   string  `json:"yarn_type"`
	Display    string  `json:"display"`
	Production float64 `json:"production"`
	Entries    int     `json:"entries"`
	Efficiency float64 `json:"efficiency"`
}

// DailySummary groups one date's entries by recorded yarn type.
type DailySummary struct {
	Date       string         `json:"date"`
	Production float64        `json:"production"`
	Efficiency float64        `json:"efficiency"`
	Entries    int            `json:"entries"`
	Machines   int            `json:"machines"`
	Shifts     []models.Shift `json:"shifts"`
	Yarns      []YarnTotal    `json:"yarns"`
}

// WeeklySummary groups one ISO week's entries by recorded yarn type.
type WeeklySummary struct {
	Year       int         `json:"year"`
	Week       int         `json:"week"`
	WeekStart  string      `json:"week_start"`
	Production float64     `json:"production"`
	Efficiency float64     `json:"efficiency"`
	Entries    int         `json:"entries"`
	Machines   int         `json:"machines"`
	Days       int         `json:"days"`
	Yarns      []YarnTotal `json:"yarns"`
}

// MachineSummary is one machine's contribution within a period.
type MachineSummary struct {
	Unit          int     `json:"unit"`
	MachineNumber int     `json:"machine_number"`
	Production    float64 `json:"production"`
	Efficiency    float64 `json:"efficiency"`
	Shifts        int     `json:"shifts"`
	DayShifts     int     `json:"day_shifts"`
	NightShifts   int     `json:"night_shifts"`
}

// Summary is the dashboard view of a set of entries.
type Summary struct {
	TotalProduction float64         `json:"total_production"`
	Efficiency      float64         `json:"efficiency"`
	Entries         int             `json:"entries"`
	Machines        int             `json:"machines"`
	TopPerformer    *MachineSummary `json:"top_performer"`
	Daily           []DailySummary  `json:"daily"`
	ByYarn          []YarnTotal     `json:"by_yarn"`
}

type machineKey struct {
	unit   int
	number int
}

// WeightedEfficiency is Σ(eff·actual)/Σ(actual) over entries with an
// efficiency and positive production. Without such entries it falls back to
// the plain mean of known efficiencies, and to 0 when there are none.
func WeightedEfficiency(entries []models.ProductionEntry) float64 {
	var weighted, weight, plain float64
	var known int
	for i := range entries {
		e := &entries[i]
		if e.Efficiency == nil {
			continue
		}
		plain += *e.Efficiency
		known++
		if e.ActualProduction > 0 {
			weighted += *e.Efficiency * e.ActualProduction
			weight += e.ActualProduction
		}
	}
	switch {
	case weight > 0:
		return weighted / weight
	case known > 0:
		return plain / float64(known)
	default:
		return 0
	}
}

func totalProduction(entries []models.ProductionEntry) float64 {
	var sum float64
	for i := range entries {
		sum += entries[i].ActualProduction
	}
	return sum
}

func distinctMachines(entries []models.ProductionEntry) int {
	seen := make(map[machineKey]struct{})
	for i := range entries {
		seen[machineKey{entries[i].Unit, entries[i].MachineNumber}] = struct{}{}
	}
	return len(seen)
}

// byYarn groups entries by normalized recorded yarn type, largest first.
func byYarn(entries []models.ProductionEntry) []YarnTotal {
	groups := make(map[string][]models.ProductionEntry)
	for _, e := range entries {
		key := NormalizeYarnType(e.YarnType)
		groups[key] = append(groups[key], e)
	}
	out := make([]YarnTotal, 0, len(groups))
	for key, group := range groups {
		out = append(out, YarnTotal{
			YarnType:   key,
			Display:    DisplayYarnType(key),
			Production: totalProduction(group),
			Entries:    len(group),
			Efficiency: WeightedEfficiency(group),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Production != out[j].Production {
			return out[i].Production > out[j].Production
		}
		return out[i].YarnType < out[j].YarnType
	})
	return out
}

// DailyByYarn builds one summary per date, oldest first.
func DailyByYarn(entries []models.ProductionEntry) []DailySummary {
	groups := make(map[string][]models.ProductionEntry)
	for _, e := range entries {
		groups[e.DateKey()] = append(groups[e.DateKey()], e)
	}
	out := make([]DailySummary, 0, len(groups))
	for date, group := range groups {
		seenShift := make(map[models.Shift]bool)
		for _, e := range group {
			seenShift[e.Shift] = true
		}
		shifts := make([]models.Shift, 0, len(models.Shifts))
		for _, s := range models.Shifts {
			if seenShift[s] {
				shifts = append(shifts, s)
			}
		}
		out = append(out, DailySummary{
			Date:       date,
			Production: totalProduction(group),
			Efficiency: WeightedEfficiency(group),
			Entries:    len(group),
			Machines:   distinctMachines(group),
			Shifts:     shifts,
			Yarns:      byYarn(group),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// WeekStart returns the Monday of t's ISO week.
func WeekStart(t time.Time) time.Time {
	d := models.NormalizeDate(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeklyByYarn builds one summary per ISO week, oldest first.
func WeeklyByYarn(entries []models.ProductionEntry) []WeeklySummary {
	groups := make(map[string][]models.ProductionEntry)
	for _, e := range entries {
		key := WeekStart(e.Date).Format("2006-01-02")
		groups[key] = append(groups[key], e)
	}
	out := make([]WeeklySummary, 0, len(groups))
	for start, group := range groups {
		year, week := group[0].Date.UTC().ISOWeek()
		days := make(map[string]struct{})
		for _, e := range group {
			days[e.DateKey()] = struct{}{}
		}
		out = append(out, WeeklySummary{
			Year:       year,
			Week:       week,
			WeekStart:  start,
			Production: totalProduction(group),
			Efficiency: WeightedEfficiency(group),
			Entries:    len(group),
			Machines:   distinctMachines(group),
			Days:       len(days),
			Yarns:      byYarn(group),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart < out[j].WeekStart })
	return out
}

// ByMachine summarizes each machine, ordered by unit then machine number.
func ByMachine(entries []models.ProductionEntry) []MachineSummary {
	groups := make(map[machineKey][]models.ProductionEntry)
	for _, e := range entries {
		k := machineKey{e.Unit, e.MachineNumber}
		groups[k] = append(groups[k], e)
	}
	out := make([]MachineSummary, 0, len(groups))
	for k, group := range groups {
		ms := MachineSummary{
			Unit:          k.unit,
			MachineNumber: k.number,
			Production:    totalProduction(group),
			Efficiency:    WeightedEfficiency(group),
			Shifts:        len(group),
		}
		for _, e := range group {
			switch e.Shift {
			case models.ShiftDay:
				ms.DayShifts++
			case models.ShiftNight:
				ms.NightShifts++
			}
		}
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		return out[i].MachineNumber < out[j].MachineNumber
	})
	return out
}

// TopPerformer picks the machine with the highest weighted efficiency. Ties go
// to higher production, then to the lower machine number.
func TopPerformer(machines []MachineSummary) *MachineSummary {
	var best *MachineSummary
	for i := range machines {
		m := &machines[i]
		if best == nil || betterPerformer(m, best) {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	top := *best
	return &top
}

func betterPerformer(a, b *MachineSummary) bool {
	if a.Efficiency != b.Efficiency {
		return a.Efficiency > b.Efficiency
	}
	if a.Production != b.Production {
		return a.Production > b.Production
	}
	if a.MachineNumber != b.MachineNumber {
		return a.MachineNumber < b.MachineNumber
	}
	return a.Unit < b.Unit
}

// Summarize computes grand totals, daily and per-yarn tables, and the top
// performer for entries.
func Summarize(entries []models.ProductionEntry) Summary {
	return Summary{
		TotalProduction: totalProduction(entries),
		Efficiency:      WeightedEfficiency(entries),
		Entries:         len(entries),
		Machines:        distinctMachines(entries),
		TopPerformer:    TopPerformer(ByMachine(entries)),
		Daily:           DailyByYarn(entries),
		ByYarn:          byYarn(entries),
	}
}
