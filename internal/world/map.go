package world

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/starfall/server/internal/data"
	"go.uber.org/zap"
)

// InboundFrame is one raw client frame queued for the owning map's tick
// loop. Frames are drained in arrival order, preserving per-connection FIFO.
type InboundFrame struct {
	Client Client
	Raw    []byte
}

// Command is a deferred mutation executed on the map's tick goroutine.
type Command func(m *Map)

// PositionInput is a decoded movement intent awaiting integration.
type PositionInput struct {
	X, Y     float64
	Rotation float64
	VX, VY   float64
	Tick     int64
}

// maxQueuedPositions bounds the per-player movement queue; older inputs are
// dropped first since a newer position supersedes them.
const maxQueuedPositions = 5

// Map is one simulation shard: its entities, its inbox, and its tick
// counter. Single-goroutine access only (the map's tick loop); no locks.
// The Inbox channel is the only concurrency boundary.
type Map struct {
	ID   string
	Info *data.MapInfo

	Tick int64

	Players     map[string]*Player     // by clientId
	Npcs        map[string]*Npc        // by npc id
	Projectiles map[string]*Projectile // by projectile id
	Boxes       map[string]*CargoBox   // by box id

	Inbox chan InboundFrame
	// Commands carries cross-goroutine mutations (join attach, disconnect
	// cleanup) that must run on the tick loop.
	Commands chan Command

	posQueue map[string][]PositionInput

	npcSeq  int64
	projSeq int64
	boxSeq  int64

	Rng *rand.Rand
	Log *zap.Logger
}

// NewMap builds an empty shard for the given map metadata.
func NewMap(info *data.MapInfo, inboxSize int, log *zap.Logger) *Map {
	if inboxSize < 1 {
		inboxSize = 1
	}
	return &Map{
		ID:          info.MapID,
		Info:        info,
		Players:     make(map[string]*Player),
		Npcs:        make(map[string]*Npc),
		Projectiles: make(map[string]*Projectile),
		Boxes:       make(map[string]*CargoBox),
		Inbox:       make(chan InboundFrame, inboxSize),
		Commands:    make(chan Command, 64),
		posQueue:    make(map[string][]PositionInput),
		Rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:         log.With(zap.String("map", info.MapID)),
	}
}

// Post queues a frame for the next tick. Non-blocking: when the inbox is
// full the frame is dropped and the caller learns via the return value.
func (m *Map) Post(f InboundFrame) bool {
	select {
	case m.Inbox <- f:
		return true
	default:
		return false
	}
}

// PostCommand queues a deferred mutation; blocks briefly when the command
// channel is full rather than losing a join or a disconnect cleanup.
func (m *Map) PostCommand(cmd Command) {
	m.Commands <- cmd
}

// AddPlayer inserts a player into the shard.
func (m *Map) AddPlayer(p *Player) {
	m.Players[p.ClientID] = p
}

// RemovePlayer removes a player and any queued inputs.
func (m *Map) RemovePlayer(clientID string) *Player {
	p := m.Players[clientID]
	if p == nil {
		return nil
	}
	delete(m.Players, clientID)
	delete(m.posQueue, clientID)
	return p
}

// Player returns a player by clientId, or nil.
func (m *Map) Player(clientID string) *Player {
	return m.Players[clientID]
}

// PushPosition queues a movement intent, dropping the oldest beyond the
// bound.
func (m *Map) PushPosition(clientID string, in PositionInput) {
	q := m.posQueue[clientID]
	if len(q) >= maxQueuedPositions {
		copy(q, q[1:])
		q = q[:len(q)-1]
	}
	m.posQueue[clientID] = append(q, in)
}

// DrainPositions returns and clears the queued inputs for a player.
func (m *Map) DrainPositions(clientID string) []PositionInput {
	q := m.posQueue[clientID]
	if len(q) == 0 {
		return nil
	}
	delete(m.posQueue, clientID)
	return q
}

// SpawnNpc creates an NPC from a template with a fresh stable id.
func (m *Map) SpawnNpc(tpl *data.NpcTemplate, x, y float64) *Npc {
	m.npcSeq++
	n := NewNpc(fmt.Sprintf("npc_%d", m.npcSeq), tpl, x, y)
	m.Npcs[n.ID] = n
	return n
}

// RemoveNpc deletes an NPC by id, returning it when present.
func (m *Map) RemoveNpc(id string) *Npc {
	n := m.Npcs[id]
	if n == nil {
		return nil
	}
	delete(m.Npcs, id)
	return n
}

// SpawnProjectile inserts a projectile with a fresh stable id.
func (m *Map) SpawnProjectile(p *Projectile) *Projectile {
	m.projSeq++
	p.ID = fmt.Sprintf("proj_%d", m.projSeq)
	m.Projectiles[p.ID] = p
	return p
}

// RemoveProjectile deletes a projectile by id.
func (m *Map) RemoveProjectile(id string) *Projectile {
	p := m.Projectiles[id]
	if p == nil {
		return nil
	}
	delete(m.Projectiles, id)
	return p
}

// SpawnBox inserts a cargo box with a fresh stable id.
func (m *Map) SpawnBox(b *CargoBox) *CargoBox {
	m.boxSeq++
	b.ID = fmt.Sprintf("box_%d", m.boxSeq)
	m.Boxes[b.ID] = b
	return b
}

// RemoveBox deletes a cargo box by id.
func (m *Map) RemoveBox(id string) *CargoBox {
	b := m.Boxes[id]
	if b == nil {
		return nil
	}
	delete(m.Boxes, id)
	return b
}

// ReflectIntoBounds clamps a coordinate pair to the map bounds, negating the
// velocity component that crossed the edge. Returns the corrected values.
func (m *Map) ReflectIntoBounds(x, y, vx, vy float64) (float64, float64, float64, float64) {
	h := m.Info.HalfExtent
	if x > h {
		x = h
		if vx > 0 {
			vx = -vx
		}
	} else if x < -h {
		x = -h
		if vx < 0 {
			vx = -vx
		}
	}
	if y > h {
		y = h
		if vy > 0 {
			vy = -vy
		}
	} else if y < -h {
		y = -h
		if vy < 0 {
			vy = -vy
		}
	}
	return x, y, vx, vy
}

// ClampIntoBounds clamps a coordinate pair without touching velocity.
func (m *Map) ClampIntoBounds(x, y float64) (float64, float64) {
	h := m.Info.HalfExtent
	if x > h {
		x = h
	} else if x < -h {
		x = -h
	}
	if y > h {
		y = h
	} else if y < -h {
		y = -h
	}
	return x, y
}
