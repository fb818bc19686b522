package handler

import (
	"context"
	"fmt"

	"github.com/starfall/server/internal/auth"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// Session is the connection surface handlers need beyond the router's
// Sender: raw sends, the current map runner, and the join lifecycle.
type Session interface {
	wire.Sender
	SendRaw(b []byte)
	Closed() bool
	// Context is the connection-scoped context; cancelled on disconnect.
	Context() context.Context

	// Runner returns the runner of the map the session currently lives on;
	// nil before join completes.
	Runner() *system.Runner
	AttachRunner(r *system.Runner)
	// MarkAuthenticated flips the session into the post-join state.
	MarkAuthenticated(identity auth.Identity)
}

// Deps bundles the collaborators shared by every handler.
type Deps struct {
	Cfg      *config.Config
	Env      *system.Env
	Verifier auth.TokenVerifier
	Store    persist.PlayerStore
	Maps     *system.Registry
	Log      *zap.Logger
}

// sessionOf narrows the router's Sender back to the full session. The only
// Sender implementations are net.Session and test fakes implementing Session.
func sessionOf(s wire.Sender) (Session, error) {
	sess, ok := s.(Session)
	if !ok {
		return nil, fmt.Errorf("sender %T is not a session", s)
	}
	return sess, nil
}

// playerOf resolves the sender's player on its current map. Handlers run on
// the map's tick goroutine, so the lookup needs no locking.
func playerOf(s wire.Sender) (Session, *system.Runner, *world.Player, error) {
	sess, err := sessionOf(s)
	if err != nil {
		return nil, nil, nil, err
	}
	run := sess.Runner()
	if run == nil {
		return nil, nil, nil, wire.Errorf(wire.CodeAuthInvalid, "join first")
	}
	p := run.Map.Player(sess.ClientID())
	if p == nil {
		return nil, nil, nil, wire.Errorf(wire.CodeAuthInvalid, "player not on map")
	}
	return sess, run, p, nil
}

// RegisterAll binds every message handler on the router.
func RegisterAll(r *wire.Router, deps *Deps) {
	r.RegisterPreAuth(wire.TypeJoin, Join(deps))
	r.Register(wire.TypePositionUpdate, PositionUpdate(deps))
	r.Register(wire.TypeHeartbeat, Heartbeat(deps))
	r.Register(wire.TypeProjectileFired, ProjectileFired(deps))
	r.Register(wire.TypeStartCombat, StartCombat(deps))
	r.Register(wire.TypeStopCombat, StopCombat(deps))
	r.Register(wire.TypeSkillUpgradeRequest, SkillUpgrade(deps))
	r.Register(wire.TypeExplosionCreated, ExplosionCreated(deps))
	r.Register(wire.TypeChatMessage, Chat(deps))
	r.Register(wire.TypeCargoBoxCollect, CargoCollect(deps))
	r.Register(wire.TypeRequestPlayerData, RequestPlayerData(deps))
	r.Register(wire.TypeSaveRequest, Save(deps))
	r.Register(wire.TypeRespawnRequest, Respawn(deps))
}
