package levels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Level is the immutable configuration of one attempt.
type Level struct {
	ID          string  `yaml:"id" json:"id"`
	Description string  `yaml:"description" json:"description"`
	Duration    float64 `yaml:"duration" json:"duration"`

	MinRevenue   int `yaml:"min_revenue" json:"min_revenue"`
	GoodRevenue  int `yaml:"good_revenue" json:"good_revenue"`
	GreatRevenue int `yaml:"great_revenue" json:"great_revenue"`

	// Building id -> active slot ids.
	ResourceBuildings map[string][]string `yaml:"resource_buildings" json:"resource_buildings"`
	// Building id -> slot id -> obtainable recipes. A null list keeps the slot's full set.
	RecipeBuildings map[string]map[string][]string `yaml:"recipe_buildings" json:"recipe_buildings"`
	ClientSlots     []string                       `yaml:"client_slots" json:"client_slots"`
	Disposals       []string                       `yaml:"disposals" json:"disposals"`

	NumClients        int      `yaml:"num_clients" json:"num_clients"`
	DistributionNoise float64  `yaml:"distribution_noise" json:"distribution_noise"`
	PoolItem1         []string `yaml:"pool_item1" json:"pool_item1"`
	PoolItem2         []string `yaml:"pool_item2" json:"pool_item2"`
	SecondItemChance  float64  `yaml:"second_item_chance" json:"second_item_chance"`
	PatienceMin       float64  `yaml:"patience_min" json:"patience_min"`
	PatienceMax       float64  `yaml:"patience_max" json:"patience_max"`

	IgnoreFatigue bool `yaml:"ignore_fatigue" json:"ignore_fatigue"`
}

// Set is the ordered level list of a game.
type Set struct {
	Levels []Level `yaml:"levels"`

	Digest string `yaml:"-"`
}

func (s *Set) Len() int { return len(s.Levels) }

func (s *Set) Level(i int) (Level, bool) {
	if i < 0 || i >= len(s.Levels) {
		return Level{}, false
	}
	return s.Levels[i], true
}

func LoadLevels(path string, layout *Layout, cat Catalog) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := ParseLevels(raw, layout, cat)
	if err != nil {
		return nil, fmt.Errorf("levels.yaml: %w", err)
	}
	return set, nil
}

func ParseLevels(raw []byte, layout *Layout, cat Catalog) (*Set, error) {
	if err := validateYAML(raw, "levels.schema.json"); err != nil {
		return nil, err
	}
	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, lv := range set.Levels {
		if seen[lv.ID] {
			return nil, fmt.Errorf("duplicate level %s", lv.ID)
		}
		seen[lv.ID] = true
		if err := lv.check(layout, cat); err != nil {
			return nil, fmt.Errorf("%s: %w", lv.ID, err)
		}
	}
	set.Digest = sha256Hex(raw)
	return &set, nil
}

func (lv Level) check(layout *Layout, cat Catalog) error {
	if lv.MinRevenue > lv.GoodRevenue || lv.GoodRevenue > lv.GreatRevenue {
		return fmt.Errorf("revenue thresholds must ascend: %d/%d/%d", lv.MinRevenue, lv.GoodRevenue, lv.GreatRevenue)
	}
	if lv.PatienceMin > lv.PatienceMax {
		return fmt.Errorf("patience_min %v > patience_max %v", lv.PatienceMin, lv.PatienceMax)
	}
	for bid, slots := range lv.ResourceBuildings {
		b, ok := layout.ResourceBuilding(bid)
		if !ok {
			return fmt.Errorf("unknown resource building %q", bid)
		}
		for _, sid := range slots {
			if !b.HasSlot(sid) {
				return fmt.Errorf("unknown slot %s/%s", bid, sid)
			}
		}
	}
	for bid, slots := range lv.RecipeBuildings {
		b, ok := layout.RecipeBuilding(bid)
		if !ok {
			return fmt.Errorf("unknown recipe building %q", bid)
		}
		for sid, recipes := range slots {
			s, ok := b.Slot(sid)
			if !ok {
				return fmt.Errorf("unknown slot %s/%s", bid, sid)
			}
			for _, r := range recipes {
				if !s.Allows(r) {
					return fmt.Errorf("%s/%s: recipe %q not allowed by layout", bid, sid, r)
				}
			}
		}
	}
	for _, id := range lv.ClientSlots {
		if !hasArea(layout.ClientSlots, id) {
			return fmt.Errorf("unknown client slot %q", id)
		}
	}
	for _, id := range lv.Disposals {
		if !hasArea(layout.Disposals, id) {
			return fmt.Errorf("unknown disposal %q", id)
		}
	}
	for _, pool := range [][]string{lv.PoolItem1, lv.PoolItem2} {
		for _, id := range pool {
			if _, ok := cat.Item(id); !ok {
				return fmt.Errorf("unknown pool item %q", id)
			}
		}
	}
	return nil
}

// NextThreshold is the lowest revenue threshold not yet reached.
func (lv Level) NextThreshold(revenue int) (int, bool) {
	for _, t := range []int{lv.MinRevenue, lv.GoodRevenue, lv.GreatRevenue} {
		if revenue < t {
			return t, true
		}
	}
	return 0, false
}
