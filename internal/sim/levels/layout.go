package levels

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/geom"
)

// Catalog is what level and layout validation needs from the catalogs.
type Catalog interface {
	Item(id string) (catalogs.ItemDef, bool)
	Recipe(id string) (catalogs.RecipeDef, bool)
}

// Layout is the static board every level draws its active subsets from.
type Layout struct {
	ResourceBuildings []ResourceBuildingLayout `yaml:"resource_buildings"`
	RecipeBuildings   []RecipeBuildingLayout   `yaml:"recipe_buildings"`
	ClientSlots       []Area                   `yaml:"client_slots"`
	Disposals         []Area                   `yaml:"disposals"`

	Digest string `yaml:"-"`
}

type ResourceBuildingLayout struct {
	ID    string               `yaml:"id"`
	Slots []ResourceSlotLayout `yaml:"slots"`
}

type ResourceSlotLayout struct {
	ID         string    `yaml:"id"`
	Item       string    `yaml:"item"`
	SpawnTime  float64   `yaml:"spawn_time"`
	BeginReady bool      `yaml:"begin_ready"`
	Rect       geom.Rect `yaml:"rect"`
}

type RecipeBuildingLayout struct {
	ID    string             `yaml:"id"`
	Slots []RecipeSlotLayout `yaml:"slots"`
}

type RecipeSlotLayout struct {
	ID      string       `yaml:"id"`
	Recipes []RecipeTime `yaml:"recipes"`
	Rect    geom.Rect    `yaml:"rect"`
}

type RecipeTime struct {
	Recipe string  `yaml:"recipe"`
	Time   float64 `yaml:"time"`
}

// Area is a plain hit area: client slots and disposal facilities.
type Area struct {
	ID   string    `yaml:"id"`
	Rect geom.Rect `yaml:"rect"`
}

func LoadLayout(path string, cat Catalog) (*Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := ParseLayout(raw, cat)
	if err != nil {
		return nil, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

func ParseLayout(raw []byte, cat Catalog) (*Layout, error) {
	if err := validateYAML(raw, "layout.schema.json"); err != nil {
		return nil, err
	}
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	if err := l.check(cat); err != nil {
		return nil, err
	}
	l.Digest = sha256Hex(raw)
	return &l, nil
}

func (l *Layout) check(cat Catalog) error {
	seen := map[string]bool{}
	for _, b := range l.ResourceBuildings {
		if seen[b.ID] {
			return fmt.Errorf("duplicate building %s", b.ID)
		}
		seen[b.ID] = true
		slots := map[string]bool{}
		for _, s := range b.Slots {
			if slots[s.ID] {
				return fmt.Errorf("%s: duplicate slot %s", b.ID, s.ID)
			}
			slots[s.ID] = true
			if _, ok := cat.Item(s.Item); !ok {
				return fmt.Errorf("%s/%s: unknown item %q", b.ID, s.ID, s.Item)
			}
		}
	}
	for _, b := range l.RecipeBuildings {
		if seen[b.ID] {
			return fmt.Errorf("duplicate building %s", b.ID)
		}
		seen[b.ID] = true
		slots := map[string]bool{}
		for _, s := range b.Slots {
			if slots[s.ID] {
				return fmt.Errorf("%s: duplicate slot %s", b.ID, s.ID)
			}
			slots[s.ID] = true
			for _, r := range s.Recipes {
				if _, ok := cat.Recipe(r.Recipe); !ok {
					return fmt.Errorf("%s/%s: unknown recipe %q", b.ID, s.ID, r.Recipe)
				}
			}
		}
	}
	if err := uniqueAreas("client slot", l.ClientSlots); err != nil {
		return err
	}
	return uniqueAreas("disposal", l.Disposals)
}

func (l *Layout) ResourceBuilding(id string) (ResourceBuildingLayout, bool) {
	for _, b := range l.ResourceBuildings {
		if b.ID == id {
			return b, true
		}
	}
	return ResourceBuildingLayout{}, false
}

func (l *Layout) RecipeBuilding(id string) (RecipeBuildingLayout, bool) {
	for _, b := range l.RecipeBuildings {
		if b.ID == id {
			return b, true
		}
	}
	return RecipeBuildingLayout{}, false
}

func (b RecipeBuildingLayout) Slot(id string) (RecipeSlotLayout, bool) {
	for _, s := range b.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return RecipeSlotLayout{}, false
}

func (b ResourceBuildingLayout) HasSlot(id string) bool {
	for _, s := range b.Slots {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (s RecipeSlotLayout) Allows(recipeID string) bool {
	for _, r := range s.Recipes {
		if r.Recipe == recipeID {
			return true
		}
	}
	return false
}

func uniqueAreas(kind string, areas []Area) error {
	seen := map[string]bool{}
	for _, a := range areas {
		if seen[a.ID] {
			return fmt.Errorf("duplicate %s %s", kind, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

func hasArea(areas []Area, id string) bool {
	for _, a := range areas {
		if a.ID == id {
			return true
		}
	}
	return false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
