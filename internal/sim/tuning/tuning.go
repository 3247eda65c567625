package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	// Seconds between a production timer reaching its target and the result becoming actionable.
	SettleDelay float64 `yaml:"settle_delay"`

	// Presentation hints carried by level lifecycle events.
	StartDelay      float64 `yaml:"start_delay"`
	ResumeDelay     float64 `yaml:"resume_delay"`
	GameBeatenDelay float64 `yaml:"game_beaten_delay"`

	Fatigue      Fatigue       `yaml:"fatigue"`
	RevenueTiers []RevenueTier `yaml:"revenue_tiers"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type Fatigue struct {
	Max               float64 `yaml:"max"`
	DragDepletionRate float64 `yaml:"drag_depletion_rate"`
	IdleGrace         float64 `yaml:"idle_grace"`
	RecoveryRate      float64 `yaml:"recovery_rate"`

	// CarryOver is consulted when advancing after a win: the first row whose threshold the current
	// fatigue percent reaches decides how much of the fatigue is recovered.
	CarryOver []CarryOverRow `yaml:"carry_over"`
}

type CarryOverRow struct {
	ThresholdPercent int `yaml:"threshold_percent"`
	RecoveredPercent int `yaml:"recovered_percent"`
}

// RevenueTier applies Multiplier when at least MinTimeLeftPercent of a client's patience remains.
type RevenueTier struct {
	MinTimeLeftPercent int     `yaml:"min_time_left_percent"`
	Multiplier         float64 `yaml:"multiplier"`
}

type RateLimits struct {
	InputsPerSecond float64 `yaml:"inputs_per_second"`
	InputBurst      int     `yaml:"input_burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		SettleDelay:     0.1,
		StartDelay:      1.5,
		ResumeDelay:     2,
		GameBeatenDelay: 3,
		Fatigue: Fatigue{
			Max:               100,
			DragDepletionRate: 10,
			IdleGrace:         1,
			RecoveryRate:      5,
			CarryOver: []CarryOverRow{
				{ThresholdPercent: 75, RecoveredPercent: 25},
				{ThresholdPercent: 50, RecoveredPercent: 50},
				{ThresholdPercent: 0, RecoveredPercent: 75},
			},
		},
		RevenueTiers: []RevenueTier{
			{MinTimeLeftPercent: 66, Multiplier: 1.5},
			{MinTimeLeftPercent: 33, Multiplier: 1.2},
			{MinTimeLeftPercent: 0, Multiplier: 1},
		},
		RateLimits: RateLimits{
			InputsPerSecond: 60,
			InputBurst:      30,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize sorts the tier tables so lookups can scan from the highest threshold down.
func (t *Tuning) Normalize() {
	sort.SliceStable(t.RevenueTiers, func(i, j int) bool {
		return t.RevenueTiers[i].MinTimeLeftPercent > t.RevenueTiers[j].MinTimeLeftPercent
	})
	sort.SliceStable(t.Fatigue.CarryOver, func(i, j int) bool {
		return t.Fatigue.CarryOver[i].ThresholdPercent > t.Fatigue.CarryOver[j].ThresholdPercent
	})
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must be >= 0")
	}
	if t.Fatigue.Max <= 0 {
		return fmt.Errorf("fatigue.max must be > 0")
	}
	if len(t.RevenueTiers) == 0 {
		return fmt.Errorf("revenue_tiers must not be empty")
	}
	for i := 1; i < len(t.RevenueTiers); i++ {
		if t.RevenueTiers[i].Multiplier > t.RevenueTiers[i-1].Multiplier {
			return fmt.Errorf("revenue_tiers: multiplier must not grow as time left shrinks")
		}
	}
	if last := len(t.RevenueTiers) - 1; t.RevenueTiers[0].Multiplier <= t.RevenueTiers[last].Multiplier {
		return fmt.Errorf("revenue_tiers: fast delivery must pay more than slow delivery")
	}
	return nil
}

// Multiplier returns the revenue multiplier for the given remaining patience percent.
func (t Tuning) Multiplier(timeLeftPercent float64) float64 {
	for _, tier := range t.RevenueTiers {
		if timeLeftPercent >= float64(tier.MinTimeLeftPercent) {
			return tier.Multiplier
		}
	}
	if n := len(t.RevenueTiers); n > 0 {
		return t.RevenueTiers[n-1].Multiplier
	}
	return 1
}

// RecoveredPercent returns how much of the current fatigue is restored between levels.
func (f Fatigue) RecoveredPercent(fatiguePercent int) int {
	for _, row := range f.CarryOver {
		if fatiguePercent >= row.ThresholdPercent {
			return row.RecoveredPercent
		}
	}
	return 0
}

// Digest hashes the applied values, so equal tunings loaded from differently formatted files match.
func (t Tuning) Digest() string {
	b, err := json.Marshal(t)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
