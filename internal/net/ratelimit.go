package net

import (
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/wire"
	"golang.org/x/time/rate"
)

// frameCategory buckets message types for rate limiting.
func frameCategory(msgType string) string {
	switch msgType {
	case wire.TypeHeartbeat:
		return "heartbeat"
	case wire.TypePositionUpdate:
		return "position_update"
	case wire.TypeChatMessage:
		return "chat_message"
	case wire.TypeStartCombat, wire.TypeStopCombat, wire.TypeProjectileFired,
		wire.TypeSkillUpgradeRequest, wire.TypeCargoBoxCollect:
		return "combat_action"
	default:
		return ""
	}
}

// limiterSet holds one token bucket per category for a session.
type limiterSet struct {
	heartbeat *rate.Limiter
	position  *rate.Limiter
	chat      *rate.Limiter
	combat    *rate.Limiter
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{
		heartbeat: rate.NewLimiter(rate.Limit(cfg.Heartbeat), burst),
		position:  rate.NewLimiter(rate.Limit(cfg.PositionUpdate), burst),
		chat:      rate.NewLimiter(rate.Limit(cfg.ChatMessage), burst),
		combat:    rate.NewLimiter(rate.Limit(cfg.CombatAction), burst),
	}
}

// allow consumes one token for the type's category. Uncategorized types are
// never limited.
func (l *limiterSet) allow(category string) bool {
	switch category {
	case "heartbeat":
		return l.heartbeat.Allow()
	case "position_update":
		return l.position.Allow()
	case "chat_message":
		return l.chat.Allow()
	case "combat_action":
		return l.combat.Allow()
	default:
		return true
	}
}
