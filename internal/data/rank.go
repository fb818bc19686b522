package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RankStep is one rung of the experience ladder.
type RankStep struct {
	Rank  int    `yaml:"rank"`
	Title string `yaml:"title"`
	MinXP int64  `yaml:"min_xp"`
}

type rankListFile struct {
	Ranks []RankStep `yaml:"ranks"`
}

// RankLadder maps accumulated experience to a rank.
type RankLadder struct {
	steps []RankStep // sorted ascending by MinXP
}

// LoadRankLadder loads the rank ladder from a YAML file.
func LoadRankLadder(path string) (*RankLadder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rank_list: %w", err)
	}
	var f rankListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rank_list: %w", err)
	}
	if len(f.Ranks) == 0 {
		return nil, fmt.Errorf("rank_list %s: no ranks defined", path)
	}
	steps := make([]RankStep, len(f.Ranks))
	copy(steps, f.Ranks)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinXP < steps[j].MinXP })
	return &RankLadder{steps: steps}, nil
}

// RankFor returns the highest rank whose threshold the experience meets.
func (l *RankLadder) RankFor(xp int64) RankStep {
	best := l.steps[0]
	for _, s := range l.steps {
		if xp >= s.MinXP {
			best = s
		} else {
			break
		}
	}
	return best
}

// Count returns the number of ladder steps.
func (l *RankLadder) Count() int {
	return len(l.steps)
}
