package world

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Interest radii for scoped broadcasts.
const (
	GlobalInterestRadius = 50000 // NPC spawns and other map-wide events
	LocalInterestRadius  = 2000  // explosions and local effects
)

// Broadcaster fans frames to a map's players. Messages are serialized once
// per call; closed sockets are skipped. Runs on the map's tick goroutine.
type Broadcaster struct {
	log *zap.Logger
}

func NewBroadcaster(log *zap.Logger) *Broadcaster {
	return &Broadcaster{log: log}
}

// ToMap sends to every player on the map except excludeClientID (empty
// means nobody is excluded).
func (b *Broadcaster) ToMap(m *Map, msg any, excludeClientID string) {
	raw, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("marshal broadcast", zap.Error(err))
		return
	}
	b.RawToMap(m, raw, excludeClientID)
}

// RawToMap sends a pre-marshaled frame to every player on the map.
func (b *Broadcaster) RawToMap(m *Map, raw []byte, excludeClientID string) {
	for id, p := range m.Players {
		if id == excludeClientID || p.Conn == nil || p.Conn.Closed() {
			continue
		}
		p.Conn.SendRaw(raw)
	}
}

// Near sends to players within radius r of (x, y), comparing squared
// distances.
func (b *Broadcaster) Near(m *Map, x, y, r float64, msg any, excludeClientID string) {
	raw, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("marshal broadcast", zap.Error(err))
		return
	}
	b.RawNear(m, x, y, r, raw, excludeClientID)
}

// RawNear sends a pre-marshaled frame to players within radius r.
func (b *Broadcaster) RawNear(m *Map, x, y, r float64, raw []byte, excludeClientID string) {
	r2 := r * r
	for id, p := range m.Players {
		if id == excludeClientID || p.Conn == nil || p.Conn.Closed() {
			continue
		}
		if DistSq(x, y, p.X, p.Y) <= r2 {
			p.Conn.SendRaw(raw)
		}
	}
}
