package models

import (
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestParseShift(t *testing.T) {
	tests := []struct {
		in      string
		want    Shift
		wantErr bool
	}{
		{"day", ShiftDay, false},
		{" Night ", ShiftNight, false},
		{"DAY", ShiftDay, false},
		{"evening", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShift(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseShift(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseShift(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMachineConfigDiff(t *testing.T) {
	base := MachineConfig{MachineNumber: 5, Name: "Ring 5", YarnType: "PC 30s", SpindleCount: 1200, Speed: 16500, RatedProduction100: ptr(400)}

	tests := []struct {
		name   string
		mutate func(c *MachineConfig)
		want   []string
	}{
		{"identical", func(c *MachineConfig) {}, nil},
		{"yarn case and spacing ignored", func(c *MachineConfig) { c.YarnType = "  pc   30S " }, nil},
		{"yarn changed", func(c *MachineConfig) { c.YarnType = "CVC 40s" }, []string{FieldYarnType}},
		{"rating removed", func(c *MachineConfig) { c.RatedProduction100 = nil }, []string{FieldRated}},
		{"rating changed", func(c *MachineConfig) { c.RatedProduction100 = ptr(420) }, []string{FieldRated}},
		{"number and speed", func(c *MachineConfig) { c.MachineNumber = 6; c.Speed = 17000 }, []string{FieldMachineNumber, FieldSpeed}},
		{"name and spindles", func(c *MachineConfig) { c.Name = "Ring V"; c.SpindleCount = 1008 }, []string{FieldName, FieldSpindleCount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			other.RatedProduction100 = ptr(400)
			tt.mutate(&other)
			got := base.Diff(other)
			if len(got) != len(tt.want) {
				t.Fatalf("Diff() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Diff() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMachineConfigRoundTrip(t *testing.T) {
	m := &Machine{ID: 9, Unit: 1, MachineNumber: 5, YarnType: "PC 30s", SpindleCount: 1200, Speed: 16500, RatedProduction100: ptr(400)}
	cfg := m.Config()
	*cfg.RatedProduction100 = 999
	if *m.RatedProduction100 != 400 {
		t.Fatalf("Config() must copy the rating pointer")
	}

	at := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s := NewConfigSnapshot(m, m.Config(), SnapshotBefore, []string{FieldYarnType}, at)
	if s.MachineID != 9 || s.Unit != 1 || !s.CapturedAt.Equal(at) {
		t.Fatalf("unexpected snapshot identity: %+v", s)
	}
	if !s.Config().Equal(m.Config()) {
		t.Fatalf("snapshot config differs from machine config")
	}
	if got := s.Changed(); len(got) != 1 || got[0] != FieldYarnType {
		t.Fatalf("Changed() = %v", got)
	}
}

func TestDisplayName(t *testing.T) {
	if got := (&Machine{MachineNumber: 12}).DisplayName(); got != "Machine 12" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (&Machine{MachineNumber: 12, Name: "Ring XII"}).DisplayName(); got != "Ring XII" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	in := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	got := NormalizeDate(in)
	if !got.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("NormalizeDate() = %v", got)
	}
	e := ProductionEntry{Date: got}
	if e.DateKey() != "2024-01-10" {
		t.Fatalf("DateKey() = %s", e.DateKey())
	}
}
