package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShipTemplate holds static data for a ship hull loaded from YAML.
type ShipTemplate struct {
	ShipID       string  `yaml:"ship_id"`
	Name         string  `yaml:"name"`
	BaseHealth   int     `yaml:"base_health"`
	BaseShield   int     `yaml:"base_shield"`
	BaseDamage   int     `yaml:"base_damage"`
	BaseSpeed    float64 `yaml:"base_speed"`
	// Multiplier added per upgrade level: damage = base * (1 + level*DamagePerLevel).
	DamagePerLevel float64 `yaml:"damage_per_level"`
	HealthPerLevel float64 `yaml:"health_per_level"`
	ShieldPerLevel float64 `yaml:"shield_per_level"`
}

type shipListFile struct {
	Ships []ShipTemplate `yaml:"ships"`
}

// ShipTable holds all ship templates indexed by ShipID.
type ShipTable struct {
	templates map[string]*ShipTemplate
	defaultID string
}

// LoadShipTable loads ship templates from a YAML file. The first entry is
// the default hull for new players.
func LoadShipTable(path string) (*ShipTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ship_list: %w", err)
	}
	var f shipListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse ship_list: %w", err)
	}
	if len(f.Ships) == 0 {
		return nil, fmt.Errorf("ship_list %s: no ships defined", path)
	}
	t := &ShipTable{
		templates: make(map[string]*ShipTemplate, len(f.Ships)),
		defaultID: f.Ships[0].ShipID,
	}
	for i := range f.Ships {
		s := &f.Ships[i]
		t.templates[s.ShipID] = s
	}
	return t, nil
}

// Get returns a ship template by ID, or nil if not found.
func (t *ShipTable) Get(shipID string) *ShipTemplate {
	return t.templates[shipID]
}

// Default returns the starting hull for new players.
func (t *ShipTable) Default() *ShipTemplate {
	return t.templates[t.defaultID]
}

// Count returns the number of loaded templates.
func (t *ShipTable) Count() int {
	return len(t.templates)
}

// DerivedStats are the effective combat numbers for a hull at the given
// upgrade levels.
type DerivedStats struct {
	MaxHealth int
	MaxShield int
	Damage    int
	Speed     float64
}

// Derive computes effective stats from upgrade levels. Negative levels are
// treated as zero.
func (s *ShipTemplate) Derive(damageLvl, healthLvl, shieldLvl int) DerivedStats {
	if damageLvl < 0 {
		damageLvl = 0
	}
	if healthLvl < 0 {
		healthLvl = 0
	}
	if shieldLvl < 0 {
		shieldLvl = 0
	}
	return DerivedStats{
		MaxHealth: int(float64(s.BaseHealth) * (1 + float64(healthLvl)*s.HealthPerLevel)),
		MaxShield: int(float64(s.BaseShield) * (1 + float64(shieldLvl)*s.ShieldPerLevel)),
		Damage:    int(float64(s.BaseDamage) * (1 + float64(damageLvl)*s.DamagePerLevel)),
		Speed:     s.BaseSpeed,
	}
}
