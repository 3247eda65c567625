package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Items   ItemCatalog
	Recipes RecipeCatalog
}

type Interaction string

const (
	InteractionClick Interaction = "CLICK"
	InteractionDrag  Interaction = "DRAG"
)

type ItemCatalog struct {
	Palette       []string
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Icon        string      `json:"icon,omitempty"`
	Category    string      `json:"category"` // "IRON","WOOD","BREAD","STICK","SPEAR","SWORD"
	Nature      string      `json:"nature"`   // "RAW","INTERMEDIATE","PREPARED"
	Interaction Interaction `json:"interaction"`
	BaseRevenue int         `json:"base_revenue"`

	// Percent of a client's total patience given back when this item is delivered.
	ClientWaitTimePercentRestored int `json:"client_wait_time_percent_restored,omitempty"`
}

type RecipeCatalog struct {
	// Order is the declaration order of recipes.json; ties in recipe selection fall back to it.
	Order  []string
	ByID   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon,omitempty"`
	Requirements []string `json:"requirements"`
	Output       string   `json:"output"`
}

// ShorterThan reports whether r needs fewer ingredients than other.
func (r RecipeDef) ShorterThan(other RecipeDef) bool {
	return len(r.Requirements) < len(other.Requirements)
}

// Requires reports whether itemID is one of r's ingredients.
func (r RecipeDef) Requires(itemID string) bool {
	for _, req := range r.Requirements {
		if req == itemID {
			return true
		}
	}
	return false
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := c.checkRecipeItems(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Item returns the definition for id.
func (c *Catalogs) Item(id string) (ItemDef, bool) {
	d, ok := c.Items.Defs[id]
	return d, ok
}

// MustItem is Item for ids that come from already-validated configuration.
// A miss is an authoring bug and panics.
func (c *Catalogs) MustItem(id string) ItemDef {
	d, ok := c.Items.Defs[id]
	if !ok {
		panic(fmt.Sprintf("catalogs: unknown item id %q", id))
	}
	return d
}

func (c *Catalogs) Recipe(id string) (RecipeDef, bool) {
	r, ok := c.Recipes.ByID[id]
	return r, ok
}

func (c *Catalogs) MustRecipe(id string) RecipeDef {
	r, ok := c.Recipes.ByID[id]
	if !ok {
		panic(fmt.Sprintf("catalogs: unknown recipe id %q", id))
	}
	return r
}

func (c *Catalogs) checkRecipeItems() error {
	for _, id := range c.Recipes.Order {
		r := c.Recipes.ByID[id]
		if _, ok := c.Items.Defs[r.Output]; !ok {
			return fmt.Errorf("recipes.json: %s: unknown output item %q", id, r.Output)
		}
		for _, req := range r.Requirements {
			if _, ok := c.Items.Defs[req]; !ok {
				return fmt.Errorf("recipes.json: %s: unknown requirement %q", id, req)
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		d.Interaction = Interaction(strings.ToUpper(string(d.Interaction)))
		switch d.Interaction {
		case InteractionClick, InteractionDrag:
		default:
			return fmt.Errorf("items.json: %s: bad interaction %q", d.ID, d.Interaction)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.Order = out.Order[:0]
	for _, r := range defs {
		if r.ID == "" {
			return fmt.Errorf("recipes.json: empty id")
		}
		if _, dup := out.ByID[r.ID]; dup {
			return fmt.Errorf("recipes.json: duplicate id %s", r.ID)
		}
		if len(r.Requirements) == 0 {
			return fmt.Errorf("recipes.json: %s: no requirements", r.ID)
		}
		out.ByID[r.ID] = r
		out.Order = append(out.Order, r.ID)
	}
	return nil
}
