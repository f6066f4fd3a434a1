package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
rate_limit:
  interval_ms: 500
  exclude_updates: ["Callback", " inline_query "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 30*time.Second, cfg.Telegram.HandlerTimeout)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.Equal(t, []string{UpdateCallback, UpdateInlineQuery}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:env")
	path := writeConfig(t, "telegram:\n  run_mode: polling\n  handler_timeout: 5s\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 5*time.Second, cfg.Telegram.HandlerTimeout)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"missing token": {},
		"bad mode":      {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook without url": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
		},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}},
		},
		"negative timeout": {
			Telegram: TelegramConfig{Token: "t", HandlerTimeout: -time.Second},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			assert.Error(t, Normalize(&cfg))
		})
	}
}
