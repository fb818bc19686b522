package handler

import (
	"encoding/json"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
)

// RequestPlayerData returns the caller's persisted profile snapshot.
func RequestPlayerData(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		sess, _, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.RequestPlayerData
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed request_player_data")
		}
		if !wire.ValidatePlayerID(msg.PlayerID, p.PlayerDbID, p.UserID) {
			return wire.Errorf(wire.CodeValidationFailed, "playerId mismatch")
		}
		sess.Send(&wire.PlayerDataResponse{
			Type:     wire.TypePlayerDataResponse,
			PlayerID: p.UserID,
			Nickname: p.Nickname,
			Inventory: wire.Inventory{
				Credits:          p.Inventory.Credits,
				Cosmos:           p.Inventory.Cosmos,
				Experience:       p.Inventory.Experience,
				Honor:            p.Inventory.Honor,
				SkillPoints:      p.Inventory.SkillPoints,
				SkillPointsTotal: p.Inventory.SkillPointsTotal,
				Resources:        p.Inventory.Resources,
			},
			Upgrades: wire.Upgrades{
				HP:     p.Upgrades.HP,
				Shield: p.Upgrades.Shield,
				Speed:  p.Upgrades.Speed,
				Damage: p.Upgrades.Damage,
			},
			Rank: p.Rank,
		})
		return nil
	}
}

// Save enqueues an explicit save. The ack only confirms the enqueue; the
// write itself is asynchronous.
func Save(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		sess, _, p, err := playerOf(s)
		if err != nil {
			return err
		}
		ok := deps.Env.Saves.Enqueue(persist.SaveRequest{
			Record: p.ToRecord(),
			Reason: "client_request",
		})
		sess.Send(&wire.SaveResponse{Type: wire.TypeSaveResponse, OK: ok})
		return nil
	}
}
