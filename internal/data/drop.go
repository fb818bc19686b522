package data

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// DropEntry is one possible item drop. Chance is the absolute per-kill
// probability of this entry; a group's chances may sum to less than 1, and
// the leftover mass means no drop.
type DropEntry struct {
	ItemID string  `yaml:"item_id"`
	Name   string  `yaml:"name"`
	Min    int     `yaml:"min"`
	Max    int     `yaml:"max"`
	Chance float64 `yaml:"chance"`
}

type dropGroup struct {
	TableID string      `yaml:"table_id"`
	Entries []DropEntry `yaml:"entries"`
}

type dropListFile struct {
	Tables []dropGroup `yaml:"tables"`
}

// DropTable holds drop groups indexed by table ID.
type DropTable struct {
	groups map[string][]DropEntry
}

// LoadDropTable loads drop groups from a YAML file.
func LoadDropTable(path string) (*DropTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drop_list: %w", err)
	}
	var f dropListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse drop_list: %w", err)
	}
	t := &DropTable{groups: make(map[string][]DropEntry, len(f.Tables))}
	for _, g := range f.Tables {
		t.groups[g.TableID] = g.Entries
	}
	return t, nil
}

// Count returns the number of drop groups loaded.
func (t *DropTable) Count() int {
	return len(t.groups)
}

// Roll selects at most one entry from the named group. Candidates with a
// positive chance are shuffled so equal-chance items do not favor declaration
// order, then a single roll in [0,1) walks their cumulative windows. When the
// roll lands past the last window there is no drop and Roll returns nil.
func (t *DropTable) Roll(tableID string, rng *rand.Rand) (*DropEntry, int) {
	entries := t.groups[tableID]
	if len(entries) == 0 {
		return nil, 0
	}
	candidates := make([]DropEntry, 0, len(entries))
	for _, e := range entries {
		if e.Chance > 0 {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	r := rng.Float64()
	for i := range candidates {
		r -= candidates[i].Chance
		if r < 0 {
			e := candidates[i]
			qty := e.Min
			if e.Max > e.Min {
				qty += rng.Intn(e.Max - e.Min + 1)
			}
			if qty < 1 {
				qty = 1
			}
			return &e, qty
		}
	}
	return nil, 0
}
