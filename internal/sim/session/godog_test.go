package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/levels"
	"overburnt.game/internal/sim/production"
	"overburnt.game/internal/sim/tuning"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeLevelScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type levelScenario struct {
	cat    *catalogs.Catalogs
	layout *levels.Layout
	set    *levels.Set
	tun    tuning.Tuning
	c      *Controller
	rec    *recorder
}

func initializeLevelScenario(sc *godog.ScenarioContext) {
	s := &levelScenario{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*s = levelScenario{tun: tuning.Defaults()}
		return ctx, nil
	})

	sc.Step(`^the shipped catalogs and layout$`, s.shippedConfigs)
	sc.Step(`^the levels:$`, s.theLevels)
	sc.Step(`^a flat revenue table$`, s.flatRevenue)
	sc.Step(`^the session starts$`, s.start)
	sc.Step(`^the player serves every "([^"]*)" request from "([^"]*)" until the level ends$`, s.serveEvery)
	sc.Step(`^the level runs out untouched$`, s.runOut)
	sc.Step(`^the player continues$`, s.continueGame)
	sc.Step(`^the result is "([^"]*)"$`, s.resultIs)
	sc.Step(`^the revenue is (\d+)$`, s.revenueIs)
	sc.Step(`^the next threshold is (\d+)$`, s.nextThresholdIs)
	sc.Step(`^(\d+) client revenue deltas were published$`, s.deltaCount)
	sc.Step(`^a "([^"]*)" event was published$`, s.eventPublished)
	sc.Step(`^level (\d+) is running$`, s.levelRunning)
}

func (s *levelScenario) shippedConfigs() error {
	cat, err := catalogs.Load(configDir)
	if err != nil {
		return err
	}
	layout, err := levels.LoadLayout(configDir+"/layout.yaml", cat)
	if err != nil {
		return err
	}
	s.cat, s.layout = cat, layout
	return nil
}

func (s *levelScenario) theLevels(doc *godog.DocString) error {
	set, err := levels.ParseLevels([]byte(doc.Content), s.layout, s.cat)
	if err != nil {
		return err
	}
	s.set = set
	return nil
}

func (s *levelScenario) flatRevenue() error {
	s.tun = flatTuning()
	return nil
}

func (s *levelScenario) start() error {
	c, err := New(Config{Catalogs: s.cat, Tuning: s.tun, Layout: s.layout, Levels: s.set, Seed: 7})
	if err != nil {
		return err
	}
	s.rec = &recorder{}
	c.Subscribe(s.rec)
	c.Start()
	s.c = c
	return nil
}

func (s *levelScenario) serveEvery(item, ref string) error {
	src := s.c.Slot(ref)
	if src == nil {
		return fmt.Errorf("unknown slot %s", ref)
	}
	for i := 0; i < 10000 && s.c.Result() == Running; i++ {
		if src.Status() == production.ItemReady && src.Item() == item {
			for _, cl := range s.c.ClientSlots() {
				if !cl.IsRequested(item) {
					continue
				}
				if !s.c.DragStart(ref, src.Rect().Center()) {
					return fmt.Errorf("drag start %s refused", ref)
				}
				if !s.c.DragEnd(cl.Rect().Center()) {
					return fmt.Errorf("delivery to %s refused", cl.ID())
				}
				break
			}
		}
		s.c.Tick(0.1)
	}
	if s.c.Result() == Running {
		return fmt.Errorf("level still running")
	}
	return nil
}

func (s *levelScenario) runOut() error {
	for i := 0; i < 10000 && s.c.Result() == Running; i++ {
		s.c.Tick(0.5)
	}
	if s.c.Result() == Running {
		return fmt.Errorf("level still running")
	}
	return nil
}

func (s *levelScenario) continueGame() error {
	if !s.c.Continue() {
		return fmt.Errorf("continue refused in %s", s.c.Result())
	}
	return nil
}

func (s *levelScenario) resultIs(want string) error {
	if got := s.c.Result().String(); got != want {
		return fmt.Errorf("result: got %s want %s", got, want)
	}
	return nil
}

func (s *levelScenario) revenueIs(want int) error {
	if got := s.c.Revenue(); got != want {
		return fmt.Errorf("revenue: got %d want %d", got, want)
	}
	return nil
}

func (s *levelScenario) nextThresholdIs(want int) error {
	evs := eventsOf[LevelFinished](s.rec)
	if len(evs) == 0 {
		return fmt.Errorf("no LEVEL_FINISHED published")
	}
	next := evs[len(evs)-1].NextThreshold
	if next == nil || *next != want {
		return fmt.Errorf("next threshold: got %v want %d", next, want)
	}
	return nil
}

func (s *levelScenario) deltaCount(want int) error {
	if got := s.rec.count(KindClientRevenueDelta); got != want {
		return fmt.Errorf("revenue deltas: got %d want %d", got, want)
	}
	return nil
}

func (s *levelScenario) eventPublished(kind string) error {
	if s.rec.count(EventKind(kind)) == 0 {
		return fmt.Errorf("no %s published", kind)
	}
	return nil
}

func (s *levelScenario) levelRunning(idx int) error {
	if s.c.LevelIndex() != idx || s.c.Result() != Running {
		return fmt.Errorf("level: got %d (%s) want %d running", s.c.LevelIndex(), s.c.Result(), idx)
	}
	return nil
}
