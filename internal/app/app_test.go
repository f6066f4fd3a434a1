package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/moviebot/core/bootstrap"
	coretelegram "github.com/m3rciful/moviebot/core/telegram"
	"github.com/m3rciful/moviebot/internal/bot"
	"github.com/m3rciful/moviebot/internal/storage/memstore"
)

const sampleConfig = `
telegram:
  token: "123:abc"
  run_mode: polling
logging:
  level: info
database:
  host: localhost
  port: "5432"
  name: movies
redis:
  url: redis://localhost:6379/0
access:
  super_admin_ids: [1, 2]
session:
  serialize_per_user: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, []int64{1, 2}, cfg.Access.SuperAdminIDs)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.Serialize())
	assert.Equal(t, time.Hour, cfg.Cache.Channels)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Categories)
	assert.Equal(t, 30*time.Minute, cfg.Cache.Trending)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("SUPERADMIN_IDS", "7,8,9")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, cfg.Access.SuperAdminIDs)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		return cfg
	}
	cases := map[string]func(*Config){
		"no redis":      func(c *Config) { c.Redis.URL = "" },
		"no database":   func(c *Config) { c.Database.Host = "" },
		"bad admin id":  func(c *Config) { c.Access.SuperAdminIDs = []int64{0} },
		"negative ttl":  func(c *Config) { c.Session.TTL = -time.Second },
		"missing token": func(c *Config) { c.Telegram.Token = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestSerializeDefaultsToTrue(t *testing.T) {
	assert.True(t, SessionConfig{}.Serialize())
}

type members struct{}

func (members) ChatMemberOf(_, _ tele.Recipient) (*tele.ChatMember, error) {
	return &tele.ChatMember{Role: tele.Member}, nil
}

func newTestApp(t *testing.T) (*App, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	a, err := New(cfg, &bootstrap.Result{Redis: rdb}, memstore.New().Services())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, srv
}

func TestWireBuildsGateAndRoutes(t *testing.T) {
	a, _ := newTestApp(t)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts.Middlewares)
	assert.Equal(t, &a.cfg.Config, opts.Config)

	reg := coretelegram.NewRegistry()
	h := bot.New(bot.Deps{Services: a.svc, Machine: a.machine, Authority: a.auth})
	w, err := a.wire(context.Background(), reg, h, members{})
	require.NoError(t, err)
	require.Len(t, w.Middlewares, 1)
	assert.Equal(t, "access_gate", w.Middlewares[0].Name)
	assert.Len(t, w.Routes, 4)
	assert.NotEmpty(t, reg.ListCallbacks())
}

func TestSessionStateLivesInRedis(t *testing.T) {
	a, srv := newTestApp(t)

	require.NoError(t, a.machine.Set(context.Background(), 42, bot.WaitingFeedback))
	raw, err := srv.Get("state:42")
	require.NoError(t, err)
	assert.Equal(t, string(bot.WaitingFeedback), raw)
	assert.Equal(t, time.Hour, srv.TTL("state:42"))
}

func TestNewRequiresRedis(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	_, err = New(cfg, &bootstrap.Result{}, memstore.New().Services())
	assert.Error(t, err)
}
