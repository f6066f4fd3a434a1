package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/moviebot/core/bootstrap"
	"github.com/m3rciful/moviebot/core/logger"
	coretelegram "github.com/m3rciful/moviebot/core/telegram"
	"github.com/m3rciful/moviebot/core/telegram/access"
	"github.com/m3rciful/moviebot/core/telegram/router"
	"github.com/m3rciful/moviebot/core/telegram/state"
	"github.com/m3rciful/moviebot/internal/bot"
	"github.com/m3rciful/moviebot/internal/domain"
	"github.com/m3rciful/moviebot/internal/storage/cached"
	"github.com/m3rciful/moviebot/internal/storage/postgres"
)

// App owns the long-lived collaborators of the bot.
type App struct {
	cfg     *Config
	infra   *bootstrap.Result
	svc     domain.Services
	machine *state.Machine
	auth    *bot.Authority
}

// Bootstrap connects Postgres and Redis, migrates the schema and builds the App.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: postgres.Migrations(),
		Redis:      cfg.Redis,
		Seeders:    []bootstrap.Seeder{postgres.SuperAdmins(cfg.Access.SuperAdminIDs)},
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, infra, postgres.New(infra.DB))
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// New builds the App over connected infrastructure. Lists read on every
// update are served through the Redis cache; conversation state lives in
// Redis under the session TTL.
func New(cfg *Config, infra *bootstrap.Result, stores domain.Services) (*App, error) {
	if infra == nil || infra.Redis == nil {
		return nil, errors.New("app: redis is required")
	}
	svc := cached.Wrap(stores, cached.NewCache(infra.Redis), cfg.Cache)
	auth, err := bot.NewAuthority(svc.Users, cfg.Access.SuperAdminIDs, cfg.Access.RoleCacheTTL)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		infra:   infra,
		svc:     svc,
		machine: newMachine(infra.Redis, cfg.Session),
		auth:    auth,
	}, nil
}

func newMachine(rdb redis.Cmdable, s SessionConfig) *state.Machine {
	return state.NewMachine(state.NewRedisStore(rdb), state.Options{TTL: s.TTL, Table: bot.Table})
}

// TelegramRunOptions describes how the runner starts the bot.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if err := bot.Table.Validate(bot.States); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
	}
	return coretelegram.RunOptions{
		Config:            &a.cfg.Config,
		Registry:          coretelegram.NewRegistry(),
		DispatcherOptions: a.cfg.Sender,
		HTTP:              a.cfg.HTTP,
		Setup:             a.setup,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, coretelegram.ChainOptions{
			SerializePerUser: a.cfg.Session.Serialize(),
		}),
	}, nil
}

// setup registers every route once the bot exists and returns the access
// gate, which runs after the shared middleware chain and before the router.
func (a *App) setup(ctx context.Context, rt coretelegram.Runtime) (coretelegram.Wiring, error) {
	var notifier *bot.Notifier
	if rt.Dispatcher != nil {
		notifier = bot.NewNotifier(rt.Dispatcher, rt.Bot, a.auth.SuperAdmins)
	}
	var username string
	if rt.Bot != nil && rt.Bot.Me != nil {
		username = rt.Bot.Me.Username
	}

	h := bot.New(bot.Deps{
		Services:  a.svc,
		Machine:   a.machine,
		Authority: a.auth,
		Notifier:  notifier,
		Platform:  rt.Bot,
		Username:  username,
	})
	return a.wire(ctx, rt.Registry, h, rt.Bot)
}

func (a *App) wire(ctx context.Context, reg *coretelegram.Registry, h *bot.Handlers, members access.MembershipChecker) (coretelegram.Wiring, error) {
	if err := h.Register(reg); err != nil {
		return coretelegram.Wiring{}, fmt.Errorf("app: register: %w", err)
	}
	r := router.New(reg, a.machine, router.Options{Admin: a.auth.Admin()})
	if err := r.Validate(); err != nil {
		return coretelegram.Wiring{}, err
	}

	gate := access.New(access.Options{
		AllowList: a.cfg.Access.SuperAdminIDs,
		Roles:     a.auth,
		Channels:  h,
		Members:   members,
	})
	logger.Info(ctx, "tg.wire", "gate.ready",
		slog.Int("allow_list", len(a.cfg.Access.SuperAdminIDs)),
		slog.Duration("session_ttl", a.cfg.Session.TTL),
		slog.Bool("serialize_per_user", a.cfg.Session.Serialize()),
	)
	return coretelegram.Wiring{
		Middlewares: []coretelegram.Middleware{{Name: "access_gate", Use: gate.Middleware(bot.GateOptions())}},
		Routes:      r.Routes(),
	}, nil
}

// Close releases the role cache and every connection.
func (a *App) Close() error {
	a.auth.Close()
	return a.infra.Close()
}
