package wire

import (
	"encoding/json"
	"fmt"
)

// Compact encodings for the hot broadcast channels. Each frame keeps the
// "type" discriminator and packs the payload into positional arrays to cut
// bytes on channels sent every tick.

// RemotePlayerState is the logical tuple behind a remote_player_update frame.
type RemotePlayerState struct {
	ClientID   string
	X, Y       float64
	VX, VY     float64
	Rotation   float64
	Tick       int64
	Nickname   string
	Rank       int
	Health     int
	MaxHealth  int
	Shield     int
	MaxShield  int
	PodiumRank int
	ShipSkinID string
}

type remotePlayerFrame struct {
	Type string `json:"type"`
	T    int64  `json:"t"`
	P    []any  `json:"p"`
}

// EncodeRemotePlayerUpdate packs one player's state into the compact frame.
// Field order: [clientId,x,y,vx,vy,rotation,tick,nickname,rank,hp,maxHp,sh,
// maxSh,podium,shipSkinId].
func EncodeRemotePlayerUpdate(s *RemotePlayerState, serverNow int64) ([]byte, error) {
	f := remotePlayerFrame{
		Type: TypeRemotePlayerUpdate,
		T:    serverNow,
		P: []any{
			s.ClientID, s.X, s.Y, s.VX, s.VY, s.Rotation, s.Tick,
			s.Nickname, s.Rank, s.Health, s.MaxHealth, s.Shield,
			s.MaxShield, s.PodiumRank, s.ShipSkinID,
		},
	}
	return json.Marshal(&f)
}

// DecodeRemotePlayerUpdate unpacks the compact frame back to the logical
// tuple. Used by tests and by tooling that replays captures.
func DecodeRemotePlayerUpdate(raw []byte) (*RemotePlayerState, int64, error) {
	var f remotePlayerFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, 0, err
	}
	if f.Type != TypeRemotePlayerUpdate {
		return nil, 0, fmt.Errorf("unexpected type %q", f.Type)
	}
	if len(f.P) != 15 {
		return nil, 0, fmt.Errorf("remote_player_update: want 15 fields, got %d", len(f.P))
	}
	s := &RemotePlayerState{
		ClientID:   asString(f.P[0]),
		X:          asFloat(f.P[1]),
		Y:          asFloat(f.P[2]),
		VX:         asFloat(f.P[3]),
		VY:         asFloat(f.P[4]),
		Rotation:   asFloat(f.P[5]),
		Tick:       int64(asFloat(f.P[6])),
		Nickname:   asString(f.P[7]),
		Rank:       int(asFloat(f.P[8])),
		Health:     int(asFloat(f.P[9])),
		MaxHealth:  int(asFloat(f.P[10])),
		Shield:     int(asFloat(f.P[11])),
		MaxShield:  int(asFloat(f.P[12])),
		PodiumRank: int(asFloat(f.P[13])),
		ShipSkinID: asString(f.P[14]),
	}
	return s, f.T, nil
}

// NpcState is the logical tuple behind the compact NPC channels.
type NpcState struct {
	ID        string
	NpcType   string
	X, Y      float64
	Rotation  float64
	Health    int
	MaxHealth int
	Shield    int
	MaxShield int
	Behavior  string
}

type npcListFrame struct {
	Type string  `json:"type"`
	T    int64   `json:"t"`
	N    [][]any `json:"n"`
}

// EncodeInitialNpcs packs the full NPC set for a joining client. Tuple order:
// [id,type,x,y,rot,hp,maxHp,sh,maxSh,behaviorInitial].
func EncodeInitialNpcs(npcs []NpcState, serverNow int64) ([]byte, error) {
	f := npcListFrame{Type: TypeInitialNpcs, T: serverNow, N: make([][]any, 0, len(npcs))}
	for i := range npcs {
		n := &npcs[i]
		f.N = append(f.N, []any{
			n.ID, n.NpcType, n.X, n.Y, n.Rotation,
			n.Health, n.MaxHealth, n.Shield, n.MaxShield,
			behaviorInitial(n.Behavior),
		})
	}
	return json.Marshal(&f)
}

// EncodeNpcBulkUpdate packs the per-tick NPC delta. Shorter tuple than
// initial_npcs: [id,x,y,rot,hp,sh,behaviorInitial] — type and maxima are
// static and already known to the client.
func EncodeNpcBulkUpdate(npcs []NpcState, serverNow int64) ([]byte, error) {
	f := npcListFrame{Type: TypeNpcBulkUpdate, T: serverNow, N: make([][]any, 0, len(npcs))}
	for i := range npcs {
		n := &npcs[i]
		f.N = append(f.N, []any{
			n.ID, n.X, n.Y, n.Rotation, n.Health, n.Shield,
			behaviorInitial(n.Behavior),
		})
	}
	return json.Marshal(&f)
}

// DecodeInitialNpcs unpacks the initial_npcs frame.
func DecodeInitialNpcs(raw []byte) ([]NpcState, int64, error) {
	var f npcListFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, 0, err
	}
	if f.Type != TypeInitialNpcs {
		return nil, 0, fmt.Errorf("unexpected type %q", f.Type)
	}
	out := make([]NpcState, 0, len(f.N))
	for _, tup := range f.N {
		if len(tup) != 10 {
			return nil, 0, fmt.Errorf("initial_npcs: want 10 fields, got %d", len(tup))
		}
		out = append(out, NpcState{
			ID:        asString(tup[0]),
			NpcType:   asString(tup[1]),
			X:         asFloat(tup[2]),
			Y:         asFloat(tup[3]),
			Rotation:  asFloat(tup[4]),
			Health:    int(asFloat(tup[5])),
			MaxHealth: int(asFloat(tup[6])),
			Shield:    int(asFloat(tup[7])),
			MaxShield: int(asFloat(tup[8])),
			Behavior:  behaviorFromInitial(asString(tup[9])),
		})
	}
	return out, f.T, nil
}

// ProjectileState is the logical tuple behind projectile_updates.
type ProjectileState struct {
	ID     string
	X, Y   float64
	VX, VY float64
}

type projectileFrame struct {
	Type string  `json:"type"`
	P    [][]any `json:"p"`
}

// EncodeProjectileUpdates packs homing projectile positions: [id,x,y,vx,vy].
func EncodeProjectileUpdates(ps []ProjectileState) ([]byte, error) {
	f := projectileFrame{Type: TypeProjectileUpdates, P: make([][]any, 0, len(ps))}
	for i := range ps {
		p := &ps[i]
		f.P = append(f.P, []any{p.ID, p.X, p.Y, p.VX, p.VY})
	}
	return json.Marshal(&f)
}

// DecodeProjectileUpdates unpacks a projectile_updates frame.
func DecodeProjectileUpdates(raw []byte) ([]ProjectileState, error) {
	var f projectileFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Type != TypeProjectileUpdates {
		return nil, fmt.Errorf("unexpected type %q", f.Type)
	}
	out := make([]ProjectileState, 0, len(f.P))
	for _, tup := range f.P {
		if len(tup) != 5 {
			return nil, fmt.Errorf("projectile_updates: want 5 fields, got %d", len(tup))
		}
		out = append(out, ProjectileState{
			ID: asString(tup[0]),
			X:  asFloat(tup[1]),
			Y:  asFloat(tup[2]),
			VX: asFloat(tup[3]),
			VY: asFloat(tup[4]),
		})
	}
	return out, nil
}

// behaviorInitial compresses a behavior name to its first letter on the wire.
func behaviorInitial(b string) string {
	if b == "" {
		return "c"
	}
	return b[:1]
}

func behaviorFromInitial(s string) string {
	switch s {
	case "a":
		return "aggressive"
	case "f":
		return "flee"
	default:
		return "cruise"
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
