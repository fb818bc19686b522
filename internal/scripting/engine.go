package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for balance formulas. The VM itself is
// not goroutine-safe; one engine is shared by every map loop, so calls
// serialize on mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory tree. Missing subdirectories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"combat", "economy"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// ProjectileDamageContext holds pre-packed data for a projectile damage
// calculation.
type ProjectileDamageContext struct {
	BaseDamage     int
	DamageUpgrades int
	DamagePerLevel float64
	TargetShield   int
	TargetIsNpc    bool
}

// CalcProjectileDamage calls the Lua calc_projectile_damage function. Falls
// back to the linear upgrade formula when the script is absent.
func (e *Engine) CalcProjectileDamage(ctx ProjectileDamageContext) int {
	fallback := int(float64(ctx.BaseDamage) * (1 + float64(ctx.DamageUpgrades)*ctx.DamagePerLevel))
	if e == nil {
		return fallback
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn := e.vm.GetGlobal("calc_projectile_damage")
	if fn == lua.LNil {
		return fallback
	}

	t := e.vm.NewTable()
	t.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))
	t.RawSetString("damage_upgrades", lua.LNumber(ctx.DamageUpgrades))
	t.RawSetString("damage_per_level", lua.LNumber(ctx.DamagePerLevel))
	t.RawSetString("target_shield", lua.LNumber(ctx.TargetShield))
	t.RawSetString("target_is_npc", lua.LBool(ctx.TargetIsNpc))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_projectile_damage error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	dmg := int(lua.LVAsNumber(result))
	if dmg < 0 {
		return fallback
	}
	return dmg
}

// KillRewards holds per-currency multipliers applied to an NPC's base
// rewards.
type KillRewards struct {
	Credits    float64
	Experience float64
	Honor      float64
}

// CalcKillRewards calls the Lua calc_kill_rewards function. Returns unit
// multipliers when the script is absent.
func (e *Engine) CalcKillRewards(npcType string, killerRank int) KillRewards {
	unit := KillRewards{Credits: 1, Experience: 1, Honor: 1}
	if e == nil {
		return unit
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn := e.vm.GetGlobal("calc_kill_rewards")
	if fn == lua.LNil {
		return unit
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(npcType), lua.LNumber(killerRank)); err != nil {
		e.log.Error("lua calc_kill_rewards error", zap.Error(err))
		return unit
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return unit
	}
	out := KillRewards{
		Credits:    lFloat(rt, "credits"),
		Experience: lFloat(rt, "experience"),
		Honor:      lFloat(rt, "honor"),
	}
	if out.Credits <= 0 {
		out.Credits = 1
	}
	if out.Experience <= 0 {
		out.Experience = 1
	}
	if out.Honor <= 0 {
		out.Honor = 1
	}
	return out
}

// lFloat reads a float field from a Lua table.
func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
