// Package router dispatches updates that passed the access gate to the
// handler registered for them. The first match wins, in a fixed order:
// commands, exact callback data, callback patterns, then content kinds
// (inline query, text, video) where text and video consult the sender's
// conversation state. Anything else is dropped.
package router

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/moviebot/core/logger"
	tg "github.com/m3rciful/moviebot/core/telegram"
	"github.com/m3rciful/moviebot/core/telegram/callbacks"
	"github.com/m3rciful/moviebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/middleware"
	"github.com/m3rciful/moviebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Options configures a Router.
type Options struct {
	// Admin guards admin-only commands. Nil leaves them unguarded.
	Admin tele.MiddlewareFunc
}

// Router is stateless apart from its collaborators and safe for concurrent use.
type Router struct {
	reg     *tg.Registry
	machine *state.Machine
	admin   tele.MiddlewareFunc
}

// New builds a Router over reg and machine.
func New(reg *tg.Registry, machine *state.Machine, opts Options) *Router {
	return &Router{reg: reg, machine: machine, admin: opts.Admin}
}

// Routes binds Dispatch to every endpoint the router serves.
func (r *Router) Routes() []tg.Route {
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: r.Dispatch},
		{Endpoint: tele.OnVideo, Handler: r.Dispatch},
		{Endpoint: tele.OnCallback, Handler: r.Dispatch},
		{Endpoint: tele.OnQuery, Handler: r.Dispatch},
	}
}

// Dispatch routes one update.
func (r *Router) Dispatch(c tele.Context) error {
	start := time.Now()
	switch {
	case c.Callback() != nil:
		return r.callback(c, start)
	case c.Query() != nil:
		return r.query(c, start)
	case c.Message() != nil:
		return r.message(c, start)
	}
	logSkip(c, "unsupported_update", start)
	return nil
}

func (r *Router) message(c tele.Context, start time.Time) error {
	msg := c.Message()
	if name, _ := commands.Split(msg.Text); name != "" {
		if key, cmd, ok := r.reg.LookupCommand(name); ok {
			h := r.guard(cmd.Handler, cmd.AdminOnly)
			return handleWithSummary(c, "command."+normalizeHandlerName(key), start, func() error {
				return h(c)
			})
		}
		if pattern, bound, adminOnly, ok := r.reg.LookupCommandPattern(name); ok {
			h := r.guard(tele.HandlerFunc(bound), adminOnly)
			return handleWithSummary(c, "command."+normalizeHandlerName(pattern), start, func() error {
				return h(c)
			})
		}
	}

	var kind state.Kind
	switch {
	case msg.Text != "":
		kind = state.KindText
	case msg.Video != nil:
		kind = state.KindVideo
	default:
		logSkip(c, "unsupported_content", start)
		return nil
	}
	return r.stateful(c, kind, start)
}

func (r *Router) stateful(c tele.Context, kind state.Kind, start time.Time) error {
	user := c.Sender()
	if user == nil || r.machine == nil {
		logSkip(c, "no_sender", start)
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	st, err := r.machine.Get(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("router: read state: %w", err)
	}
	tghelpers.WithState(c, string(st))
	if !r.machine.Accepts(st, kind) {
		logSkip(c, "unexpected_content", start,
			slog.String("state", string(st)),
			slog.String("content", string(kind)),
		)
		return nil
	}
	h, ok := r.reg.StateHandler(st, kind)
	if !ok {
		logSkip(c, "no_state_handler", start, slog.String("state", string(st)))
		return nil
	}
	return handleWithSummary(c, "state."+strings.ToLower(string(st)), start, func() error {
		return h(c)
	}, slog.String("state", string(st)))
}

func (r *Router) callback(c tele.Context, start time.Time) error {
	data := callbacks.Data(c.Callback())
	defer acknowledge(c)

	if h, ok := r.reg.GetCallback(data); ok {
		return handleWithSummary(c, "callback."+normalizeHandlerName(data), start, func() error {
			return h(c)
		}, slog.String("cb_key", data))
	}
	if name, bound, ok := r.reg.ResolveCallback(data); ok {
		return handleWithSummary(c, "callback."+normalizeHandlerName(name), start, func() error {
			return bound(c)
		}, slog.String("cb_key", data))
	}
	logSkip(c, "not_found", start, slog.String("cb_key", logger.SanitizeLimit(data, 64)))
	return nil
}

func (r *Router) query(c tele.Context, start time.Time) error {
	h := r.reg.QueryHandler()
	if h == nil {
		logSkip(c, "no_query_handler", start)
		return nil
	}
	return handleWithSummary(c, "inline_query", start, func() error { return h(c) })
}

func (r *Router) guard(h tele.HandlerFunc, adminOnly bool) tele.HandlerFunc {
	if !adminOnly || r.admin == nil {
		return h
	}
	return r.admin(h)
}

// acknowledge stops the client spinner when the handler did not answer the callback itself.
func acknowledge(c tele.Context) {
	if middleware.Responded(c) {
		return
	}
	_ = c.Respond()
}

// Validate reports wiring mistakes: ambiguous patterns, exact keys shadowed by
// patterns, and state handlers that disagree with the transition table.
func (r *Router) Validate() error {
	var problems []string

	patterns := r.reg.CallbackPatterns()
	problems = append(problems, patterns.Ambiguities()...)
	for _, key := range r.reg.ListCallbacks() {
		if name, _, ok := patterns.Resolve(key); ok {
			problems = append(problems, fmt.Sprintf("callback %q also matches pattern %s", key, name))
		}
	}
	for name := range r.reg.Commands() {
		if pattern, _, _, ok := r.reg.LookupCommandPattern(name); ok {
			problems = append(problems, fmt.Sprintf("command %s also matches pattern %s", name, pattern))
		}
	}

	if r.machine != nil {
		table := r.machine.Table()
		for st, step := range table {
			// Callback steps are routed by their data, not by state.
			if step.Accepts == "" || step.Accepts == state.KindCallback {
				continue
			}
			if _, ok := r.reg.StateHandler(st, step.Accepts); !ok {
				problems = append(problems, fmt.Sprintf("%s/%s: no handler", st, step.Accepts))
			}
		}
		for _, route := range r.reg.StateRoutes() {
			if !table.Accepts(route.State, route.Kind) {
				problems = append(problems, fmt.Sprintf("%s/%s: handler for content the state never accepts", route.State, route.Kind))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("router: %s", strings.Join(problems, "; "))
}
