package system

import (
	"time"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
)

// CargoManager spawns loot boxes on NPC death and runs the channelled
// pickup state machine.
type CargoManager struct {
	env *Env
}

func NewCargoManager(env *Env) *CargoManager {
	return &CargoManager{env: env}
}

// SpawnOnDeath rolls the template's drop chance and, on success, drops a
// box at the corpse with the killer's exclusivity window.
func (c *CargoManager) SpawnOnDeath(m *world.Map, n *world.Npc, killerClientID string, now time.Time) *world.CargoBox {
	tpl := n.Template
	if tpl.DropChance <= 0 || len(tpl.CargoResources) == 0 {
		return nil
	}
	if m.Rng.Float64() >= tpl.DropChance {
		return nil
	}

	cfg := c.env.Cfg.Game.Cargo
	qty := tpl.CargoMin
	if tpl.CargoMax > tpl.CargoMin {
		qty += m.Rng.Int63n(tpl.CargoMax - tpl.CargoMin + 1)
	}
	if qty < 1 {
		qty = 1
	}

	box := &world.CargoBox{
		X:              n.X,
		Y:              n.Y,
		ResourceType:   tpl.CargoResources[m.Rng.Intn(len(tpl.CargoResources))],
		Quantity:       qty,
		NpcType:        tpl.TypeID,
		KillerID:       killerClientID,
		SpawnedAt:      now,
		ExpiresAt:      now.Add(cfg.Lifetime),
		ExclusiveUntil: now.Add(cfg.ExclusivityWindow),
	}
	m.SpawnBox(box)

	c.env.Bc.ToMap(m, &wire.CargoBoxSpawned{
		Type:           wire.TypeCargoBoxSpawned,
		BoxID:          box.ID,
		X:              box.X,
		Y:              box.Y,
		ResourceType:   box.ResourceType,
		NpcType:        box.NpcType,
		KillerID:       box.KillerID,
		ExpiresAt:      box.ExpiresAt.UnixMilli(),
		ExclusiveUntil: box.ExclusiveUntil.UnixMilli(),
	}, "")
	return box
}

// Collect validates a pickup request and starts the channel. Every failure
// returns a reason-coded error for the client.
func (c *CargoManager) Collect(m *world.Map, p *world.Player, boxID string, now time.Time) *wire.Error {
	box := m.Boxes[boxID]
	if box == nil {
		return wire.Errorf(wire.CodeBoxNotFound, "cargo box %s not found", boxID)
	}
	if box.Expired(now) {
		return wire.Errorf(wire.CodeBoxExpired, "cargo box %s has expired", boxID)
	}
	if box.ExclusiveTo(now) && box.KillerID != "" && box.KillerID != p.ClientID {
		return wire.Errorf(wire.CodeBoxExclusive, "cargo box %s is reserved for its killer", boxID)
	}
	if box.CollectorID != "" && box.CollectorID != p.ClientID {
		return wire.Errorf(wire.CodeBoxBusy, "cargo box %s is being collected", boxID)
	}
	if p.IsDead || !wire.FinitePosition(p.X, p.Y) {
		return wire.Errorf(wire.CodeInvalidPlayerPosition, "cannot collect in current state")
	}
	cfg := c.env.Cfg.Game.Cargo
	if world.DistSq(p.X, p.Y, box.X, box.Y) > cfg.CollectDistance*cfg.CollectDistance {
		return wire.Errorf(wire.CodeBoxTooFar, "cargo box %s is out of reach", boxID)
	}

	box.CollectorID = p.ClientID
	p.Collecting = &world.CollectState{BoxID: boxID, StartedAt: now}
	p.Conn.Send(&wire.CargoBoxCollectStatus{
		Type:   wire.TypeCargoBoxCollectStatus,
		BoxID:  boxID,
		Status: "started",
	})
	return nil
}

// Update expires boxes and advances every open channel. The anchor is set
// on the first tick after the channel starts; drifting past the tolerance
// cancels the pickup.
func (c *CargoManager) Update(m *world.Map, now time.Time) {
	for id, box := range m.Boxes {
		if box.Expired(now) {
			c.releaseCollector(m, box, "expired")
			m.RemoveBox(id)
			c.env.Bc.ToMap(m, &wire.CargoBoxRemoved{Type: wire.TypeCargoBoxRemoved, BoxID: id}, "")
		}
	}

	cfg := c.env.Cfg.Game.Cargo
	for _, p := range m.Players {
		st := p.Collecting
		if st == nil {
			continue
		}
		box := m.Boxes[st.BoxID]
		if box == nil {
			c.cancel(p, st.BoxID, wire.CodeBoxNotFound)
			continue
		}
		if p.IsDead {
			c.releaseBox(box, p)
			c.cancel(p, st.BoxID, wire.CodeInvalidPlayerPosition)
			continue
		}
		if world.DistSq(p.X, p.Y, box.X, box.Y) > cfg.CollectDistance*cfg.CollectDistance {
			c.releaseBox(box, p)
			c.cancel(p, st.BoxID, wire.CodeBoxTooFar)
			continue
		}
		if !st.Anchored {
			st.AnchorX, st.AnchorY = p.X, p.Y
			st.Anchored = true
		} else if world.DistSq(p.X, p.Y, st.AnchorX, st.AnchorY) > cfg.DriftTolerance*cfg.DriftTolerance {
			c.releaseBox(box, p)
			c.cancel(p, st.BoxID, wire.CodeInvalidPlayerPosition)
			continue
		}

		if now.Sub(st.StartedAt) >= cfg.ChannelDuration {
			c.complete(m, p, box, now)
		}
	}
}

// CancelFor aborts any open channel for the player (disconnect, death,
// explicit cancel).
func (c *CargoManager) CancelFor(m *world.Map, p *world.Player, reason string) {
	st := p.Collecting
	if st == nil {
		return
	}
	if box := m.Boxes[st.BoxID]; box != nil {
		c.releaseBox(box, p)
	}
	c.cancel(p, st.BoxID, reason)
}

func (c *CargoManager) complete(m *world.Map, p *world.Player, box *world.CargoBox, now time.Time) {
	p.Collecting = nil
	m.RemoveBox(box.ID)

	if p.Inventory.Resources == nil {
		p.Inventory.Resources = make(map[string]int64)
	}
	p.Inventory.Resources[box.ResourceType] += box.Quantity
	p.Inventory.Clamp()

	p.Conn.Send(&wire.CargoBoxCollectStatus{
		Type:     wire.TypeCargoBoxCollectStatus,
		BoxID:    box.ID,
		Status:   "completed",
		Resource: box.ResourceType,
		Quantity: box.Quantity,
	})
	SendStateUpdate(p, "cargo_collect", nil)
	c.env.Bc.ToMap(m, &wire.CargoBoxRemoved{Type: wire.TypeCargoBoxRemoved, BoxID: box.ID}, "")

	c.env.Saves.Enqueue(persist.SaveRequest{
		Record: p.ToRecord(),
		Reason: "cargo_collect",
	})
}

func (c *CargoManager) cancel(p *world.Player, boxID, reason string) {
	p.Collecting = nil
	if p.Conn == nil || p.Conn.Closed() {
		return
	}
	p.Conn.Send(&wire.CargoBoxCollectStatus{
		Type:   wire.TypeCargoBoxCollectStatus,
		BoxID:  boxID,
		Status: "failed",
		Reason: reason,
	})
}

func (c *CargoManager) releaseBox(box *world.CargoBox, p *world.Player) {
	if box.CollectorID == p.ClientID {
		box.CollectorID = ""
	}
}

func (c *CargoManager) releaseCollector(m *world.Map, box *world.CargoBox, reason string) {
	if box.CollectorID == "" {
		return
	}
	if p := m.Player(box.CollectorID); p != nil && p.Collecting != nil && p.Collecting.BoxID == box.ID {
		c.cancel(p, box.ID, wire.CodeBoxExpired)
	}
	box.CollectorID = ""
}
