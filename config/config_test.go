package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("RELAY_SESSION", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RECORDING_ENABLED", "")
	t.Setenv("RECORDING_IN_PROCESS_WORKER", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("default", cfg.Relay.SessionName)
	req.Equal(64, cfg.Relay.OutboundBuffer)
	req.Equal(16, cfg.Relay.MaxConsecutiveDrops)
	req.Equal(30*time.Second, cfg.Relay.PingInterval)
	req.Equal(60*time.Second, cfg.Relay.PongWait)
	req.Equal(2000, cfg.Chat.MaxLength)
	req.False(cfg.RedisEnabled())
	req.False(cfg.DatabaseEnabled())
	req.NoError(cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	req := require.New(t)
	t.Setenv("RELAY_SESSION", "townhall")
	t.Setenv("RELAY_PING_INTERVAL", "5s")
	t.Setenv("RELAY_PONG_WAIT", "12")
	t.Setenv("CHAT_BANNED_WORDS", " spam, scam ,,")
	t.Setenv("RELAY_REQUIRE_TOKEN", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("townhall", cfg.Relay.SessionName)
	t.Setenv("RELAY_SESSION", "town-hall_2")
	cfg2, err := Load()
	req.NoError(err)
	req.NoError(cfg2.Validate())
	req.Equal(5*time.Second, cfg.Relay.PingInterval)
	req.Equal(12*time.Second, cfg.Relay.PongWait)
	req.Equal([]string{"spam", "scam"}, cfg.Chat.BannedWords)
	req.True(cfg.Relay.RequireToken)
	req.True(cfg.RedisEnabled())
	req.NoError(cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Setenv("REDIS_ADDR", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("RECORDING_ENABLED", "")
		t.Setenv("RECORDING_IN_PROCESS_WORKER", "")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("LOG_LEVEL", "")
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"pong shorter than ping", func(c *Config) { c.Relay.PongWait = c.Relay.PingInterval / 2 }, "PongWait"},
		{"empty session", func(c *Config) { c.Relay.SessionName = "" }, "SessionName"},
		{"session with separator", func(c *Config) { c.Relay.SessionName = "a:b" }, "session_name"},
		{"session with space", func(c *Config) { c.Relay.SessionName = "town hall" }, "session_name"},
		{"zero buffer", func(c *Config) { c.Relay.OutboundBuffer = 0 }, "OutboundBuffer"},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "Secret"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "Level"},
		{"bad redis addr", func(c *Config) { c.Redis.Addr = "no-port" }, "Addr"},
		{"recording without database", func(c *Config) { c.Recording.Enabled = true }, "DATABASE_URL"},
		{"worker without redis", func(c *Config) { c.Recording.InProcessWorker = true }, "REDIS_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
