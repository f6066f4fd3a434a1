// Package app assembles the movie bot from configuration: storage, the
// session store, the access gate and the router.
package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/moviebot/core/config"
	coredatabase "github.com/m3rciful/moviebot/core/database"
	"github.com/m3rciful/moviebot/core/kv"
	coretelegram "github.com/m3rciful/moviebot/core/telegram"
	tgsender "github.com/m3rciful/moviebot/core/telegram/sender"
	"github.com/m3rciful/moviebot/internal/storage/cached"
)

const defaultSessionTTL = time.Hour

// AccessConfig lists who bypasses the subscription gate.
type AccessConfig struct {
	SuperAdminIDs []int64 `yaml:"super_admin_ids" envconfig:"SUPERADMIN_IDS"`
	// RoleCacheTTL bounds how long a stored role change takes to apply.
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl" envconfig:"ACCESS_ROLE_CACHE_TTL"`
}

// SessionConfig tunes the conversation state kept in Redis.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	// SerializePerUser runs one update per user at a time. Defaults to true.
	SerializePerUser *bool `yaml:"serialize_per_user" envconfig:"SESSION_SERIALIZE_PER_USER"`
}

// Serialize reports the effective SerializePerUser value.
func (s SessionConfig) Serialize() bool {
	return s.SerializePerUser == nil || *s.SerializePerUser
}

// Config is the complete bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config      `yaml:"database"`
	Redis    kv.Config                `yaml:"redis"`
	Access   AccessConfig             `yaml:"access"`
	Session  SessionConfig            `yaml:"session"`
	Cache    cached.TTLs              `yaml:"cache"`
	Sender   tgsender.Options         `yaml:"sender"`
	HTTP     coretelegram.HTTPOptions `yaml:"http"`
}

// CoreConfig exposes the shared core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		return fmt.Errorf("redis.url is required")
	}
	for _, id := range cfg.Access.SuperAdminIDs {
		if id <= 0 {
			return fmt.Errorf("access.super_admin_ids: invalid id %d", id)
		}
	}
	if cfg.Access.RoleCacheTTL < 0 {
		return fmt.Errorf("access.role_cache_ttl must be >= 0")
	}
	switch {
	case cfg.Session.TTL < 0:
		return fmt.Errorf("session.ttl must be >= 0")
	case cfg.Session.TTL == 0:
		cfg.Session.TTL = defaultSessionTTL
	}
	cfg.Cache = cfg.Cache.WithDefaults()
	return nil
}
