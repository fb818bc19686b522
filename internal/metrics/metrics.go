package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the server's Prometheus collectors. One instance is
// created at startup and shared by reference.
type Metrics struct {
	TickDuration   *prometheus.HistogramVec
	TickOverruns   *prometheus.CounterVec
	FramesIn       prometheus.Counter
	FramesOut      prometheus.Counter
	UnknownFrames  prometheus.Counter
	RateLimited    *prometheus.CounterVec
	Players        *prometheus.GaugeVec
	Npcs           *prometheus.GaugeVec
	Projectiles    *prometheus.GaugeVec
	CargoBoxes     *prometheus.GaugeVec
	SavesQueued    prometheus.Counter
	SavesDropped   prometheus.Counter
	SaveErrors     prometheus.Counter
	RewardsGranted prometheus.Counter
	RewardsDuped   prometheus.Counter
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "starfall",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one map simulation tick.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1},
		}, []string{"map"}),
		TickOverruns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "tick_overruns_total",
			Help:      "Ticks that exceeded the tick interval.",
		}, []string{"map"}),
		FramesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "frames_in_total",
			Help:      "Inbound WebSocket frames accepted.",
		}),
		FramesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "frames_out_total",
			Help:      "Outbound WebSocket frames written.",
		}),
		UnknownFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "frames_unknown_total",
			Help:      "Frames dropped for an unknown type discriminator.",
		}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "rate_limited_total",
			Help:      "Frames dropped by the per-session rate limiter.",
		}, []string{"category"}),
		Players: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "starfall",
			Name:      "players",
			Help:      "Connected players per map.",
		}, []string{"map"}),
		Npcs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "starfall",
			Name:      "npcs",
			Help:      "Live NPCs per map.",
		}, []string{"map"}),
		Projectiles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "starfall",
			Name:      "projectiles",
			Help:      "Live projectiles per map.",
		}, []string{"map"}),
		CargoBoxes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "starfall",
			Name:      "cargo_boxes",
			Help:      "Live cargo boxes per map.",
		}, []string{"map"}),
		SavesQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "saves_queued_total",
			Help:      "Player save requests enqueued.",
		}),
		SavesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "saves_dropped_total",
			Help:      "Save requests dropped because the queue was full.",
		}),
		SaveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "save_errors_total",
			Help:      "Save attempts that returned an error.",
		}),
		RewardsGranted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "rewards_granted_total",
			Help:      "Kill rewards applied.",
		}),
		RewardsDuped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "starfall",
			Name:      "rewards_duplicate_total",
			Help:      "Kill rewards suppressed as duplicate killOpIds.",
		}),
	}
}
