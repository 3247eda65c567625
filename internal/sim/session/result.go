package session

import (
	"fmt"

	"overburnt.game/internal/sim/levels"
)

type Result int

const (
	Running Result = iota
	LostExhaustion
	LostEarnings
	WonBase
	WonGood
	WonGreat
)

var resultNames = [...]string{"RUNNING", "LOST_EXHAUSTION", "LOST_EARNINGS", "WON_BASE", "WON_GOOD", "WON_GREAT"}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return resultNames[r]
}

func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Result) UnmarshalText(b []byte) error {
	for i, n := range resultNames {
		if n == string(b) {
			*r = Result(i)
			return nil
		}
	}
	return fmt.Errorf("unknown result %q", b)
}

func (r Result) Won() bool { return r >= WonBase }

func (r Result) Finished() bool { return r != Running }

// evaluate maps end-of-level revenue onto the ascending thresholds.
func evaluate(revenue int, lv levels.Level) Result {
	switch {
	case revenue < lv.MinRevenue:
		return LostEarnings
	case revenue < lv.GoodRevenue:
		return WonBase
	case revenue < lv.GreatRevenue:
		return WonGood
	default:
		return WonGreat
	}
}
