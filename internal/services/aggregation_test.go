package services

import (
	"testing"
	"unicode/utf8"

	"github.com/diewo77/go-spinning/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(number int, date string, shift models.Shift, actual float64, eff *float64, yarn string) models.ProductionEntry {
	return models.ProductionEntry{
		Unit:             1,
		MachineNumber:    number,
		Date:             day(date),
		Shift:            shift,
		ActualProduction: actual,
		Efficiency:       eff,
		YarnType:         yarn,
	}
}

func TestEfficiency(t *testing.T) {
	got := Efficiency(350, f64(400))
	require.NotNil(t, got)
	assert.InDelta(t, 87.5, *got, 1e-6)

	over := Efficiency(500, f64(400))
	require.NotNil(t, over)
	assert.InDelta(t, 125.0, *over, 1e-6, "values above 100 are kept")

	assert.Nil(t, Efficiency(350, nil))
	assert.Nil(t, Efficiency(350, f64(0)))
	assert.Nil(t, Efficiency(350, f64(-10)))

	zero := Efficiency(0, f64(400))
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, *zero)
}

func TestRoundForDisplay(t *testing.T) {
	assert.Equal(t, 91.4, RoundForDisplay(66725.0/730.0))
	assert.Equal(t, 33.33, RoundForDisplay(100.0/3.0))
	assert.Nil(t, RoundPtrForDisplay(nil))
	assert.Equal(t, 87.5, *RoundPtrForDisplay(f64(87.5)))
}

func TestWeightedEfficiency(t *testing.T) {
	entries := []models.ProductionEntry{
		entry(1, "2024-01-10", models.ShiftDay, 100, f64(80), "pc"),
		entry(2, "2024-01-10", models.ShiftDay, 300, f64(90), "pc"),
	}
	assert.InDelta(t, 87.5, WeightedEfficiency(entries), 1e-9)

	t.Run("null efficiencies are ignored", func(t *testing.T) {
		withNull := append(entries, entry(3, "2024-01-10", models.ShiftDay, 1000, nil, "pc"))
		assert.InDelta(t, 87.5, WeightedEfficiency(withNull), 1e-9)
	})
	t.Run("falls back to plain mean without positive production", func(t *testing.T) {
		idle := []models.ProductionEntry{
			entry(1, "2024-01-10", models.ShiftDay, 0, f64(0), "pc"),
			entry(2, "2024-01-10", models.ShiftDay, 0, f64(10), "pc"),
		}
		assert.InDelta(t, 5.0, WeightedEfficiency(idle), 1e-9)
	})
	t.Run("zero when nothing is known", func(t *testing.T) {
		assert.Equal(t, 0.0, WeightedEfficiency(nil))
		assert.Equal(t, 0.0, WeightedEfficiency([]models.ProductionEntry{entry(1, "2024-01-10", models.ShiftDay, 300, nil, "pc")}))
	})
}

func TestNormalizeYarnType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"30s PC", "30s pc"},
		{"  30S   pc ", "30s pc"},
		{"40s\tCVC", "40s cvc"},
		{"", ""},
		{"Combed Cotton", "combed cotton"},
	}
	for _, tt := range tests {
		got := NormalizeYarnType(tt.in)
		assert.Equal(t, tt.want, got, "normalize %q", tt.in)
		assert.Equal(t, got, NormalizeYarnType(got), "normalize must be idempotent for %q", tt.in)
	}
}

func TestDisplayYarnType(t *testing.T) {
	assert.Equal(t, "30s PC", DisplayYarnType("30s pc"))
	assert.Equal(t, "40s CVC Combed", DisplayYarnType("40s cvc combed"))
	assert.Equal(t, "Unspecified", DisplayYarnType("  "))
	assert.Equal(t, "30s pc", NormalizeYarnType(DisplayYarnType("30s pc")))

	for _, in := range []string{"éco blend", "सूती 30s", "ñandú PC"} {
		got := DisplayYarnType(NormalizeYarnType(in))
		assert.True(t, utf8.ValidString(got), "display of %q is not valid UTF-8: %q", in, got)
		assert.Equal(t, NormalizeYarnType(in), NormalizeYarnType(got))
	}
	assert.Equal(t, "Éco Blend", DisplayYarnType("éco blend"))
	assert.Equal(t, "Ñandú PC", DisplayYarnType("ñandú pc"))
}

func sampleEntries() []models.ProductionEntry {
	return []models.ProductionEntry{
		entry(5, "2024-01-10", models.ShiftDay, 350, f64(87.5), "30s PC"),
		entry(5, "2024-01-10", models.ShiftNight, 380, f64(95), "30s pc"),
		entry(6, "2024-01-10", models.ShiftDay, 200, f64(50), "40s CVC"),
		entry(6, "2024-01-11", models.ShiftNight, 410.25, nil, "40s  cvc"),
		entry(7, "2024-01-14", models.ShiftDay, 120.5, f64(60.25), ""),
		entry(5, "2024-01-15", models.ShiftDay, 390, f64(97.5), "30s PC"),
	}
}

func TestDailyByYarn(t *testing.T) {
	daily := DailyByYarn(sampleEntries())
	require.Len(t, daily, 4)

	first := daily[0]
	assert.Equal(t, "2024-01-10", first.Date)
	assert.InDelta(t, 930.0, first.Production, 1e-9)
	assert.Equal(t, 3, first.Entries)
	assert.Equal(t, 2, first.Machines)
	assert.Equal(t, []models.Shift{models.ShiftDay, models.ShiftNight}, first.Shifts)
	require.Len(t, first.Yarns, 2)
	assert.Equal(t, "30s pc", first.Yarns[0].YarnType, "recorded yarn types are grouped case-insensitively")
	assert.Equal(t, "30s PC", first.Yarns[0].Display)
	assert.InDelta(t, 730.0, first.Yarns[0].Production, 1e-9)
	assert.InDelta(t, 66725.0/730.0, first.Yarns[0].Efficiency, 1e-9)

	assert.Equal(t, []models.Shift{models.ShiftNight}, daily[1].Shifts)
	assert.Equal(t, 0.0, daily[1].Efficiency, "null-only day reports the 0 floor")
}

func TestWeeklyByYarn(t *testing.T) {
	weekly := WeeklyByYarn(sampleEntries())
	require.Len(t, weekly, 2)
	assert.Equal(t, "2024-01-08", weekly[0].WeekStart)
	assert.Equal(t, 2024, weekly[0].Year)
	assert.Equal(t, 2, weekly[0].Week)
	assert.Equal(t, 3, weekly[0].Days, "Sunday 14th belongs to the week starting Monday 8th")
	assert.Equal(t, "2024-01-15", weekly[1].WeekStart)
	assert.Equal(t, 1, weekly[1].Days)
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, day("2024-01-08"), WeekStart(day("2024-01-08")))
	assert.Equal(t, day("2024-01-08"), WeekStart(day("2024-01-14")))
	assert.Equal(t, day("2024-12-30"), WeekStart(day("2025-01-01")))
}

func TestByMachineAndTopPerformer(t *testing.T) {
	machines := ByMachine(sampleEntries())
	require.Len(t, machines, 3)
	assert.Equal(t, 5, machines[0].MachineNumber)
	assert.Equal(t, 3, machines[0].Shifts)
	assert.Equal(t, 2, machines[0].DayShifts)
	assert.Equal(t, 1, machines[0].NightShifts)

	top := TopPerformer(machines)
	require.NotNil(t, top)
	assert.Equal(t, 5, top.MachineNumber)
}

func TestTopPerformerTieBreak(t *testing.T) {
	machines := []MachineSummary{
		{Unit: 1, MachineNumber: 9, Production: 500, Efficiency: 90},
		{Unit: 1, MachineNumber: 4, Production: 700, Efficiency: 90},
		{Unit: 1, MachineNumber: 2, Production: 700, Efficiency: 90},
		{Unit: 1, MachineNumber: 1, Production: 900, Efficiency: 80},
	}
	top := TopPerformer(machines)
	require.NotNil(t, top)
	assert.Equal(t, 2, top.MachineNumber)
	assert.Nil(t, TopPerformer(nil))
}

func TestSummarizeConservesTotals(t *testing.T) {
	entries := sampleEntries()
	sum := Summarize(entries)

	var want float64
	for _, e := range entries {
		want += e.ActualProduction
	}
	assert.InDelta(t, want, sum.TotalProduction, 1e-6)
	assert.Equal(t, len(entries), sum.Entries)
	assert.Equal(t, 3, sum.Machines)

	var daily, yarn, machine, weekly float64
	for _, d := range sum.Daily {
		daily += d.Production
		var inner float64
		for _, y := range d.Yarns {
			inner += y.Production
		}
		assert.InDelta(t, d.Production, inner, 1e-6, "yarn groups of %s", d.Date)
	}
	for _, y := range sum.ByYarn {
		yarn += y.Production
	}
	for _, m := range ByMachine(entries) {
		machine += m.Production
	}
	for _, w := range WeeklyByYarn(entries) {
		weekly += w.Production
	}
	assert.InDelta(t, sum.TotalProduction, daily, 1e-6)
	assert.InDelta(t, sum.TotalProduction, yarn, 1e-6)
	assert.InDelta(t, sum.TotalProduction, machine, 1e-6)
	assert.InDelta(t, sum.TotalProduction, weekly, 1e-6)

	empty := Summarize(nil)
	assert.Equal(t, 0.0, empty.TotalProduction)
	assert.Nil(t, empty.TopPerformer)
	assert.Empty(t, empty.Daily)
}
