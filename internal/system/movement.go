package system

import (
	"time"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// Movement integrates queued client position inputs. The client simulates
// optimistically; the server accepts reported positions after clamping and
// re-broadcasts them as the authoritative truth.
type Movement struct {
	env *Env
}

func NewMovement(env *Env) *Movement {
	return &Movement{env: env}
}

// Update drains each player's queued inputs in order and broadcasts the
// resulting state to the rest of the map.
func (mv *Movement) Update(m *world.Map, now time.Time) {
	serverNow := now.UnixMilli()
	for _, p := range m.Players {
		inputs := m.DrainPositions(p.ClientID)
		if len(inputs) == 0 || p.IsDead {
			continue
		}
		for _, in := range inputs {
			p.X, p.Y = m.ClampIntoBounds(in.X, in.Y)
			p.Rotation = in.Rotation
			p.VX, p.VY = in.VX, in.VY
			p.LastInputTick = in.Tick
		}
		p.LastInputAt = now

		raw, err := wire.EncodeRemotePlayerUpdate(&wire.RemotePlayerState{
			ClientID:   p.ClientID,
			X:          p.X,
			Y:          p.Y,
			VX:         p.VX,
			VY:         p.VY,
			Rotation:   p.Rotation,
			Tick:       p.LastInputTick,
			Nickname:   p.Nickname,
			Rank:       p.Rank,
			Health:     p.Health,
			MaxHealth:  p.MaxHealth,
			Shield:     p.Shield,
			MaxShield:  p.MaxShield,
			PodiumRank: p.PodiumRank,
			ShipSkinID: p.SelectedSkinID,
		}, serverNow)
		if err != nil {
			m.Log.Error("encode remote player update", zap.Error(err))
			continue
		}
		mv.env.Bc.RawToMap(m, raw, p.ClientID)

		if p.Conn != nil && !p.Conn.Closed() {
			p.Conn.Send(&wire.PositionAck{Type: wire.TypePositionAck, Tick: p.LastInputTick})
		}
	}
}
