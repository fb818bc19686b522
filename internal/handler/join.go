package handler

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

const recentHonorDays = 7

// Join runs the handshake on the session's reader goroutine: this is the
// one handler allowed to block on the store. The player is attached to the
// map through a command so the tick loop stays the only mutator.
func Join(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		sess, err := sessionOf(s)
		if err != nil {
			return err
		}
		if sess.Runner() != nil {
			return wire.Errorf(wire.CodeValidationFailed, "already joined")
		}

		var msg wire.Join
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed join")
		}
		token := msg.AuthToken
		if token == "" {
			token = msg.UserID
		}
		identity, err := deps.Verifier.Verify(token)
		if err != nil {
			return wire.Errorf(wire.CodeAuthInvalid, "token rejected")
		}

		ctx := sess.Context()
		rec, err := deps.Store.Load(ctx, identity.UserID)
		switch {
		case errors.Is(err, persist.ErrNotFound):
			rec = newPlayerRecord(deps, identity.UserID, msg.Nickname)
			if err := deps.Store.Create(ctx, rec); err != nil {
				deps.Log.Error("create player", zap.String("user", identity.UserID), zap.Error(err))
				return wire.Errorf(wire.CodeDBTransient, "player creation failed, retry")
			}
		case err != nil:
			deps.Log.Error("load player", zap.String("user", identity.UserID), zap.Error(err))
			return wire.Errorf(wire.CodeDBTransient, "player load failed, retry")
		}

		recentHonor, err := deps.Store.RecentHonorAverage(ctx, identity.UserID, recentHonorDays)
		if err != nil {
			deps.Log.Warn("recent honor lookup", zap.String("user", identity.UserID), zap.Error(err))
			recentHonor = 0
		}

		run := deps.Maps.Get(deps.Cfg.Game.DefaultMap)
		if run == nil {
			return wire.Errorf(wire.CodeInternal, "default map unavailable")
		}

		p := buildPlayer(deps, sess, rec, recentHonor)
		if wire.FinitePosition(msg.Position.X, msg.Position.Y) {
			p.X, p.Y = run.Map.ClampIntoBounds(msg.Position.X, msg.Position.Y)
			p.Rotation = msg.Position.Rotation
		}

		sess.MarkAuthenticated(identity)
		sess.AttachRunner(run)

		run.Map.PostCommand(func(m *world.Map) {
			m.AddPlayer(p)
			sendWelcome(deps, sess, p, m.ID)
			sendInitialNpcs(sess, m)
			deps.Env.Bc.ToMap(m, &wire.PlayerJoined{
				Type:     wire.TypePlayerJoined,
				ClientID: p.ClientID,
				Nickname: p.Nickname,
				Position: wire.Position{X: p.X, Y: p.Y, Rotation: p.Rotation},
			}, p.ClientID)
			m.Log.Info("player joined",
				zap.String("client", p.ClientID),
				zap.String("user", p.UserID),
				zap.String("nickname", p.Nickname))
		})
		return nil
	}
}

func newPlayerRecord(deps *Deps, userID, nickname string) *persist.PlayerRecord {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = "Pilot"
	}
	ship := deps.Env.Ships.Default()
	return &persist.PlayerRecord{
		UserID:    userID,
		Nickname:  nickname,
		ShipID:    ship.ShipID,
		Resources: make(map[string]int64),
	}
}

func buildPlayer(deps *Deps, sess Session, rec *persist.PlayerRecord, recentHonor float64) *world.Player {
	p := &world.Player{
		ClientID:      sess.ClientID(),
		Conn:          sess,
		RecentHonor:   recentHonor,
		RecentKillOps: world.NewOpRing(300),
	}
	p.FromRecord(rec)

	ship := deps.Env.Ships.Get(p.ShipID)
	if ship == nil {
		ship = deps.Env.Ships.Default()
		p.ShipID = ship.ShipID
	}
	stats := ship.Derive(p.Upgrades.Damage, p.Upgrades.HP, p.Upgrades.Shield)
	p.MaxHealth = stats.MaxHealth
	p.MaxShield = stats.MaxShield
	p.Damage = stats.Damage
	p.Speed = stats.Speed
	p.Health = p.MaxHealth
	p.Shield = p.MaxShield
	p.Rank = deps.Env.Ranks.RankFor(p.Inventory.Experience).Rank
	return p
}

func sendWelcome(deps *Deps, sess Session, p *world.Player, mapID string) {
	sess.Send(&wire.Welcome{
		Type:       wire.TypeWelcome,
		ClientID:   p.ClientID,
		PlayerID:   p.UserID,
		PlayerDbID: p.PlayerDbID,
		MapID:      mapID,
		Message:    "welcome to " + deps.Cfg.Server.Name,
		InitialState: wire.InitialState{
			Position:        wire.Position{X: p.X, Y: p.Y, Rotation: p.Rotation},
			Health:          p.Health,
			MaxHealth:       p.MaxHealth,
			Shield:          p.Shield,
			MaxShield:       p.MaxShield,
			IsAdministrator: p.IsAdministrator,
			Rank:            p.Rank,
			PodiumRank:      p.PodiumRank,
			ShipSkins: wire.ShipSkins{
				SelectedSkinID:  p.SelectedSkinID,
				UnlockedSkinIDs: p.UnlockedSkinIDs,
			},
			RecentHonor: p.RecentHonor,
		},
	})
}

func sendInitialNpcs(sess Session, m *world.Map) {
	states := make([]wire.NpcState, 0, len(m.Npcs))
	for _, n := range m.Npcs {
		states = append(states, wire.NpcState{
			ID:        n.ID,
			NpcType:   n.Template.TypeID,
			X:         n.X,
			Y:         n.Y,
			Rotation:  n.Rotation,
			Health:    n.Health,
			MaxHealth: n.MaxHealth,
			Shield:    n.Shield,
			MaxShield: n.MaxShield,
			Behavior:  n.Behavior,
		})
	}
	raw, err := wire.EncodeInitialNpcs(states, time.Now().UnixMilli())
	if err != nil {
		m.Log.Error("encode initial npcs", zap.Error(err))
		return
	}
	sess.SendRaw(raw)
}
