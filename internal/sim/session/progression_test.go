package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overburnt.game/internal/sim/tuning"
)

// Three short levels: A and C are always won, B needs revenue nobody earns.
const ladder = `
levels:
  - id: A
    duration: 5
    min_revenue: 0
    good_revenue: 0
    great_revenue: 0
    resource_buildings: { lumberyard: ["1"] }
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
  - id: B
    duration: 5
    min_revenue: 50
    good_revenue: 60
    great_revenue: 70
    resource_buildings: { lumberyard: ["1"] }
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
  - id: C
    duration: 5
    min_revenue: 0
    good_revenue: 0
    great_revenue: 0
    ignore_fatigue: true
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
`

func dragFor(t *testing.T, f *fixture, ticks int) {
	t.Helper()
	require.True(t, f.c.DragStart("lumberyard/1", f.slotCenter(t, "lumberyard/1")))
	f.tickN(ticks, 1.0)
}

func TestProgression_WinCarriesFatigue(t *testing.T) {
	f := newFixture(t, ladder, tuning.Defaults())
	assert.False(t, f.c.Continue(), "running levels cannot continue")

	dragFor(t, f, 5)
	require.Equal(t, WonGreat, f.c.Result())
	require.Equal(t, 40.0, f.c.Fatigue())
	fin := lastOf[LevelFinished](t, f.rec)
	assert.Nil(t, fin.NextThreshold, "top tier has no next threshold")

	require.True(t, f.c.Continue())
	assert.Equal(t, 1, f.c.LevelIndex())
	assert.Equal(t, Running, f.c.Result())
	assert.Equal(t, 10.0, f.c.Fatigue(), "a quarter of the fatigue carries over")

	started := lastOf[LevelStarted](t, f.rec)
	assert.Equal(t, 1, started.LevelIndex)
	assert.Equal(t, "B", started.Config.ID)
	assert.Equal(t, tuning.Defaults().StartDelay, started.StartDelay)
	assert.Zero(t, lastOf[EarningsChanged](t, f.rec).Total)
}

func TestProgression_LossRestartsWithBaseline(t *testing.T) {
	f := newFixture(t, ladder, tuning.Defaults())
	dragFor(t, f, 5)
	require.True(t, f.c.Continue())
	require.Equal(t, 10.0, f.c.Fatigue())

	dragFor(t, f, 5)
	require.Equal(t, LostEarnings, f.c.Result())
	require.Greater(t, f.c.Fatigue(), 10.0)

	resets := f.rec.count(KindLevelReset)
	require.True(t, f.c.Continue())
	assert.Equal(t, resets+1, f.rec.count(KindLevelReset))
	assert.Equal(t, 1, f.c.LevelIndex(), "same level again")
	assert.Equal(t, 10.0, f.c.Fatigue(), "baseline is unchanged by the lost attempt")
}

func TestProgression_IgnoreFatigueLevelStartsFresh(t *testing.T) {
	f := newFixture(t, ladder, tuning.Defaults())
	dragFor(t, f, 5)
	require.True(t, f.c.Continue())
	f.c.revenue = 80
	f.tickN(5, 1.0)
	require.Equal(t, WonGreat, f.c.Result())

	require.True(t, f.c.Continue())
	assert.Equal(t, "C", f.c.Level().ID)
	assert.Zero(t, f.c.Fatigue())
}

// A tracked level, a rest level that ignores fatigue, then a tracked level again.
const restStop = `
levels:
  - id: A
    duration: 5
    min_revenue: 0
    good_revenue: 0
    great_revenue: 0
    resource_buildings: { lumberyard: ["1"] }
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
  - id: REST
    duration: 5
    min_revenue: 0
    good_revenue: 0
    great_revenue: 0
    ignore_fatigue: true
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
  - id: D
    duration: 5
    min_revenue: 0
    good_revenue: 0
    great_revenue: 0
    resource_buildings: { lumberyard: ["1"] }
    client_slots: [c1]
    num_clients: 0
    pool_item1: [WOOD]
    patience_min: 10
    patience_max: 10
`

func TestProgression_BaselineSurvivesIgnoredLevel(t *testing.T) {
	f := newFixture(t, restStop, tuning.Defaults())
	dragFor(t, f, 5)
	require.Equal(t, WonGreat, f.c.Result())
	require.Equal(t, 40.0, f.c.Fatigue())

	require.True(t, f.c.Continue())
	require.Equal(t, "REST", f.c.Level().ID)
	assert.Zero(t, f.c.Fatigue(), "rest level runs without fatigue")
	f.tickN(5, 1.0)
	require.Equal(t, WonGreat, f.c.Result())
	assert.Zero(t, f.c.Fatigue())

	require.True(t, f.c.Continue())
	require.Equal(t, "D", f.c.Level().ID)
	assert.Equal(t, 10.0, f.c.Fatigue(), "the baseline carried out of A resumes after the rest level")
	assert.Equal(t, 10.0, lastOf[FatigueChanged](t, f.rec).Fatigue)
}

func TestProgression_LastWinBeatsGame(t *testing.T) {
	f := newFixture(t, ladder, tuning.Defaults())
	f.tickN(5, 1.0)
	require.True(t, f.c.Continue())
	f.c.revenue = 80
	f.tickN(5, 1.0)
	require.True(t, f.c.Continue())
	f.tickN(5, 1.0)
	require.Equal(t, WonGreat, f.c.Result())

	require.True(t, f.c.Continue())
	assert.True(t, f.c.Beaten())
	assert.Equal(t, tuning.Defaults().GameBeatenDelay, lastOf[GameBeaten](t, f.rec).Delay)
	assert.False(t, f.c.Continue(), "nothing after the last level")
	assert.Equal(t, 1, f.rec.count(KindGameBeaten))
}
