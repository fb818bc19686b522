package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
name = "Starfall EU"

[network]
bind_address = "127.0.0.1:9090"

[game]
default_map = "frontier"
tick_rate = "25ms"

[game.repair]
channel_duration = "2s"
health_per_tick = 900

[game.rate_limit]
chat_message = 1.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Starfall EU", cfg.Server.Name)
	assert.Equal(t, "127.0.0.1:9090", cfg.Network.BindAddress)
	assert.Equal(t, "frontier", cfg.Game.DefaultMap)
	assert.Equal(t, 25*time.Millisecond, cfg.Game.TickRate)
	assert.Equal(t, 2*time.Second, cfg.Game.Repair.ChannelDuration)
	assert.Equal(t, 900, cfg.Game.Repair.HealthPerTick)
	assert.Equal(t, 1.5, cfg.Game.RateLimit.ChatMessage)

	// Anything the file does not mention keeps its default.
	assert.Equal(t, 5*time.Minute, cfg.Game.SaveInterval)
	assert.Equal(t, 64, cfg.Network.MaxFramesPerTick)
	assert.Equal(t, 3*time.Second, cfg.Game.Combat.AutoStartCooldown)
	assert.Equal(t, 6*time.Second, cfg.Game.Repair.OutOfCombatDelay)
	assert.Equal(t, "static", cfg.Auth.Mode)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[game]
tick_rate = "fast"
`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nname = "), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultsAreSane(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickRate)
	assert.Equal(t, "nexus", cfg.Game.DefaultMap)
	assert.Positive(t, cfg.Game.Persist.QueueSize)
	assert.Positive(t, cfg.Game.Persist.Workers)
	assert.Positive(t, cfg.Network.MaxFrameBytes)
}
