package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Configs(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 20 {
		t.Fatalf("tick_rate_hz: got %d want 20", tu.TickRateHz)
	}
	if tu.SettleDelay != 0.1 {
		t.Fatalf("settle_delay: got %v want 0.1", tu.SettleDelay)
	}
	if tu.Fatigue.Max != 100 || tu.Fatigue.DragDepletionRate != 10 {
		t.Fatalf("fatigue: got %+v", tu.Fatigue)
	}
	if len(tu.RevenueTiers) != 3 {
		t.Fatalf("revenue_tiers: got %d want 3", len(tu.RevenueTiers))
	}
}

func TestMultiplier_Monotonic(t *testing.T) {
	tu := Defaults()
	prev := tu.Multiplier(100)
	for p := 99; p >= 0; p-- {
		m := tu.Multiplier(float64(p))
		if m > prev {
			t.Fatalf("multiplier grew at %d%%: %v > %v", p, m, prev)
		}
		prev = m
	}
	if tu.Multiplier(0) >= tu.Multiplier(100) {
		t.Fatalf("expected 0%% tier below 100%% tier")
	}
	if got := tu.Multiplier(-5); got != 1 {
		t.Fatalf("below all tiers: got %v want 1", got)
	}
}

func TestNormalize_SortsTables(t *testing.T) {
	tu := Tuning{
		RevenueTiers: []RevenueTier{
			{MinTimeLeftPercent: 0, Multiplier: 1},
			{MinTimeLeftPercent: 50, Multiplier: 2},
		},
		Fatigue: Fatigue{CarryOver: []CarryOverRow{
			{ThresholdPercent: 0, RecoveredPercent: 100},
			{ThresholdPercent: 80, RecoveredPercent: 10},
		}},
	}
	tu.Normalize()
	if tu.RevenueTiers[0].MinTimeLeftPercent != 50 {
		t.Fatalf("revenue tiers not sorted: %+v", tu.RevenueTiers)
	}
	if got := tu.Fatigue.RecoveredPercent(90); got != 10 {
		t.Fatalf("recovered at 90%%: got %d want 10", got)
	}
	if got := tu.Fatigue.RecoveredPercent(20); got != 100 {
		t.Fatalf("recovered at 20%%: got %d want 100", got)
	}
}

func TestLoad_RejectsGrowingMultiplier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `
revenue_tiers:
  - { min_time_left_percent: 50, multiplier: 1.0 }
  - { min_time_left_percent: 0, multiplier: 2.0 }
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for multiplier growing as time left shrinks")
	}
}

func TestDigest_TracksValues(t *testing.T) {
	a, b := Defaults(), Defaults()
	if a.Digest() != b.Digest() {
		t.Fatalf("equal tunings: digests differ")
	}
	b.SettleDelay = 0.2
	if a.Digest() == b.Digest() {
		t.Fatalf("changed tuning: digest unchanged")
	}
}

func TestLoad_RejectsFlatTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `
revenue_tiers:
  - { min_time_left_percent: 50, multiplier: 1.2 }
  - { min_time_left_percent: 0, multiplier: 1.2 }
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for a table that pays slow delivery the same as fast")
	}

	tu := Defaults()
	tu.RevenueTiers = []RevenueTier{{MinTimeLeftPercent: 0, Multiplier: 1}}
	if err := tu.Validate(); err == nil {
		t.Fatalf("expected error for a single-tier table")
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
