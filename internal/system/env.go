package system

import (
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/crash"
	"github.com/starfall/server/internal/data"
	"github.com/starfall/server/internal/metrics"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/scripting"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// Env bundles the shared, read-mostly collaborators every system needs.
// Built once at startup and shared across maps; the mutable per-map state
// lives in world.Map and in the per-map system instances.
type Env struct {
	Cfg      *config.Config
	Ships    *data.ShipTable
	NpcTypes *data.NpcTable
	Drops    *data.DropTable
	Ranks    *data.RankLadder
	Lua      *scripting.Engine
	Bc       *world.Broadcaster
	Spatial  world.SpatialQuery
	Saves    *persist.Queue
	Crash    *crash.Reporter
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}
