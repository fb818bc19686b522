package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NpcTemplate holds static data for an NPC type loaded from YAML.
type NpcTemplate struct {
	TypeID       string  `yaml:"type_id"`
	Name         string  `yaml:"name"`
	MaxHealth    int     `yaml:"max_health"`
	MaxShield    int     `yaml:"max_shield"`
	Damage       int     `yaml:"damage"`
	CruiseSpeed  float64 `yaml:"cruise_speed"`
	ChaseSpeed   float64 `yaml:"chase_speed"`
	FleeSpeed    float64 `yaml:"flee_speed"`
	AggroRadius  float64 `yaml:"aggro_radius"`
	AttackRange  float64 `yaml:"attack_range"`
	// Fraction of max health below which the NPC breaks off and flees.
	FleeThreshold float64 `yaml:"flee_threshold"`
	Aggressive    bool    `yaml:"aggressive"`
	RewardCredits int64   `yaml:"reward_credits"`
	RewardExp     int64   `yaml:"reward_exp"`
	RewardHonor   int64   `yaml:"reward_honor"`
	// Probability [0,1] that a cargo box spawns on death.
	DropChance float64 `yaml:"drop_chance"`
	DropTable  string  `yaml:"drop_table"`
	// Resource pool for spawned cargo boxes.
	CargoResources []string `yaml:"cargo_resources"`
	CargoMin       int64    `yaml:"cargo_min"`
	CargoMax       int64    `yaml:"cargo_max"`
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

// NpcTable holds all NPC templates indexed by TypeID.
type NpcTable struct {
	templates map[string]*NpcTemplate
}

// LoadNpcTable loads NPC templates from a YAML file.
func LoadNpcTable(path string) (*NpcTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	t := &NpcTable{templates: make(map[string]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		n := &f.Npcs[i]
		t.templates[n.TypeID] = n
	}
	return t, nil
}

// Get returns an NPC template by type ID, or nil if not found.
func (t *NpcTable) Get(typeID string) *NpcTemplate {
	return t.templates[typeID]
}

// Count returns the number of loaded templates.
func (t *NpcTable) Count() int {
	return len(t.templates)
}
