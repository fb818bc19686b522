package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
// Maps are square regions centered on the origin; HalfExtent is the distance
// from center to each edge.
type MapInfo struct {
	MapID      string  `yaml:"map_id"`
	Name       string  `yaml:"name"`
	HalfExtent float64 `yaml:"half_extent"`
	NpcBudget  int     `yaml:"npc_budget"`
	NpcTypes   []string `yaml:"npc_types"`
	Hazards    []HazardInfo `yaml:"hazards"`
}

// HazardInfo defines a static damage-over-time region on a map.
type HazardInfo struct {
	X            float64 `yaml:"x"`
	Y            float64 `yaml:"y"`
	Radius       float64 `yaml:"radius"`
	DamagePerSec int     `yaml:"damage_per_sec"`
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// MapTable holds map metadata indexed by map ID.
type MapTable struct {
	maps  map[string]*MapInfo
	order []string
}

// LoadMapTable loads map metadata from a YAML file.
func LoadMapTable(path string) (*MapTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map_list: %w", err)
	}
	var f mapListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map_list: %w", err)
	}
	if len(f.Maps) == 0 {
		return nil, fmt.Errorf("map_list %s: no maps defined", path)
	}
	t := &MapTable{maps: make(map[string]*MapInfo, len(f.Maps))}
	for i := range f.Maps {
		m := &f.Maps[i]
		if m.HalfExtent <= 0 {
			return nil, fmt.Errorf("map %s: half_extent must be positive", m.MapID)
		}
		t.maps[m.MapID] = m
		t.order = append(t.order, m.MapID)
	}
	return t, nil
}

// Get returns map metadata by ID, or nil if not found.
func (t *MapTable) Get(mapID string) *MapInfo {
	return t.maps[mapID]
}

// IDs returns map IDs in file order.
func (t *MapTable) IDs() []string {
	return t.order
}

// Count returns the number of loaded maps.
func (t *MapTable) Count() int {
	return len(t.maps)
}

// Contains reports whether (x, y) lies within the map bounds.
func (m *MapInfo) Contains(x, y float64) bool {
	return x >= -m.HalfExtent && x <= m.HalfExtent &&
		y >= -m.HalfExtent && y <= m.HalfExtent
}
