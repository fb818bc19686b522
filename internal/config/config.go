package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Game     GameConfig     `toml:"game"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	ID        int    `toml:"id"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress     string        `toml:"bind_address"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	InQueueSize     int           `toml:"in_queue_size"`
	OutQueueSize    int           `toml:"out_queue_size"`
	MaxFrameBytes   int           `toml:"max_frame_bytes"`
	MaxFramesPerTick int          `toml:"max_frames_per_tick"`
	WriteTimeout    time.Duration `toml:"-"`
	ReadTimeout     time.Duration `toml:"-"`
}

type DatabaseConfig struct {
	// Empty DSN runs the server against the in-memory store.
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"-"`
}

type AuthConfig struct {
	// Mode "hmac" verifies signed tokens with Secret; "static" accepts any
	// token whose value parses as "<uuid>" (development only).
	Mode   string `toml:"mode"`
	Secret string `toml:"secret"`
}

type GameConfig struct {
	TickRate       time.Duration `toml:"-"`
	SaveInterval   time.Duration `toml:"-"`
	DefaultMap     string        `toml:"default_map"`

	Combat    CombatConfig    `toml:"combat"`
	Cargo     CargoConfig     `toml:"cargo"`
	Repair    RepairConfig    `toml:"repair"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Persist   PersistConfig   `toml:"persist"`

	// Reserved: coalesce player_state_update frames across kills.
	CoalesceRewards bool `toml:"coalesce_rewards"`
}

type CombatConfig struct {
	FireInterval      time.Duration `toml:"-"`
	AutoStartCooldown time.Duration `toml:"-"`
	DamageTimeout     time.Duration `toml:"-"`
	ProjectileSpeed   float64       `toml:"projectile_speed"`
	TurnRate          float64       `toml:"turn_rate"` // rad/s for homing steering
}

type CargoConfig struct {
	CollectDistance   float64       `toml:"collect_distance"`
	ChannelDuration   time.Duration `toml:"-"`
	DriftTolerance    float64       `toml:"drift_tolerance"`
	ExclusivityWindow time.Duration `toml:"-"`
	Lifetime          time.Duration `toml:"-"`
}

type RepairConfig struct {
	OutOfCombatDelay time.Duration `toml:"-"`
	ChannelDuration  time.Duration `toml:"-"`
	HealthPerTick    int           `toml:"health_per_tick"`
	ShieldPerTick    int           `toml:"shield_per_tick"`
}

// RateLimitConfig is a token-bucket budget per message category,
// expressed as events per second with a small burst.
type RateLimitConfig struct {
	Heartbeat      float64 `toml:"heartbeat"`
	PositionUpdate float64 `toml:"position_update"`
	ChatMessage    float64 `toml:"chat_message"`
	CombatAction   float64 `toml:"combat_action"`
	Burst          int     `toml:"burst"`
}

type PersistConfig struct {
	QueueSize int `toml:"queue_size"`
	Workers   int `toml:"workers"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// duration parses TOML strings like "50ms" through time.ParseDuration.
// Plain time.Duration fields cannot decode those, so the duration-valued
// keys are tagged toml:"-" above and handled in a second pass.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// durationKeys mirrors only the duration-valued keys of the config file.
// Pointers distinguish "absent, keep the default" from an explicit value.
type durationKeys struct {
	Network struct {
		WriteTimeout *duration `toml:"write_timeout"`
		ReadTimeout  *duration `toml:"read_timeout"`
	} `toml:"network"`
	Database struct {
		ConnMaxLifetime *duration `toml:"conn_max_lifetime"`
	} `toml:"database"`
	Game struct {
		TickRate     *duration `toml:"tick_rate"`
		SaveInterval *duration `toml:"save_interval"`
		Combat       struct {
			FireInterval      *duration `toml:"fire_interval"`
			AutoStartCooldown *duration `toml:"auto_start_cooldown"`
			DamageTimeout     *duration `toml:"damage_timeout"`
		} `toml:"combat"`
		Cargo struct {
			ChannelDuration   *duration `toml:"channel_duration"`
			ExclusivityWindow *duration `toml:"exclusivity_window"`
			Lifetime          *duration `toml:"lifetime"`
		} `toml:"cargo"`
		Repair struct {
			OutOfCombatDelay *duration `toml:"out_of_combat_delay"`
			ChannelDuration  *duration `toml:"channel_duration"`
		} `toml:"repair"`
	} `toml:"game"`
}

func (k *durationKeys) apply(cfg *Config) {
	set := func(dst *time.Duration, src *duration) {
		if src != nil {
			*dst = time.Duration(*src)
		}
	}
	set(&cfg.Network.WriteTimeout, k.Network.WriteTimeout)
	set(&cfg.Network.ReadTimeout, k.Network.ReadTimeout)
	set(&cfg.Database.ConnMaxLifetime, k.Database.ConnMaxLifetime)
	set(&cfg.Game.TickRate, k.Game.TickRate)
	set(&cfg.Game.SaveInterval, k.Game.SaveInterval)
	set(&cfg.Game.Combat.FireInterval, k.Game.Combat.FireInterval)
	set(&cfg.Game.Combat.AutoStartCooldown, k.Game.Combat.AutoStartCooldown)
	set(&cfg.Game.Combat.DamageTimeout, k.Game.Combat.DamageTimeout)
	set(&cfg.Game.Cargo.ChannelDuration, k.Game.Cargo.ChannelDuration)
	set(&cfg.Game.Cargo.ExclusivityWindow, k.Game.Cargo.ExclusivityWindow)
	set(&cfg.Game.Cargo.Lifetime, k.Game.Cargo.Lifetime)
	set(&cfg.Game.Repair.OutOfCombatDelay, k.Game.Repair.OutOfCombatDelay)
	set(&cfg.Game.Repair.ChannelDuration, k.Game.Repair.ChannelDuration)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	var durs durationKeys
	if err := toml.Unmarshal(data, &durs); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	durs.apply(cfg)
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Defaults returns the configuration used when a field is absent from the
// TOML file. Tests build on top of this.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "Starfall",
			ID:   1,
		},
		Network: NetworkConfig{
			BindAddress:      "0.0.0.0:8080",
			InQueueSize:      128,
			OutQueueSize:     256,
			MaxFrameBytes:    16 * 1024,
			MaxFramesPerTick: 64,
			WriteTimeout:     10 * time.Second,
			ReadTimeout:      90 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: "static",
		},
		Game: GameConfig{
			TickRate:     50 * time.Millisecond,
			SaveInterval: 5 * time.Minute,
			DefaultMap:   "nexus",
			Combat: CombatConfig{
				FireInterval:      1000 * time.Millisecond,
				AutoStartCooldown: 3 * time.Second,
				DamageTimeout:     8 * time.Second,
				ProjectileSpeed:   900,
				TurnRate:          4,
			},
			Cargo: CargoConfig{
				CollectDistance:   520,
				ChannelDuration:   1800 * time.Millisecond,
				DriftTolerance:    26,
				ExclusivityWindow: 10 * time.Second,
				Lifetime:          60 * time.Second,
			},
			Repair: RepairConfig{
				OutOfCombatDelay: 6 * time.Second,
				ChannelDuration:  4 * time.Second,
				HealthPerTick:    400,
				ShieldPerTick:    600,
			},
			RateLimit: RateLimitConfig{
				Heartbeat:      2,
				PositionUpdate: 30,
				ChatMessage:    3,
				CombatAction:   10,
				Burst:          5,
			},
			Persist: PersistConfig{
				QueueSize: 1024,
				Workers:   4,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
