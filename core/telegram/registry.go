package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/callbacks"
	"github.com/m3rciful/moviebot/core/telegram/commands"
	"github.com/m3rciful/moviebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// CommandPattern is a parametric command such as "/fulfill_<n>".
type CommandPattern struct {
	Matcher   callbacks.Matcher
	AdminOnly bool
}

// StateRoute names a state handler slot.
type StateRoute struct {
	State state.State
	Kind  state.Kind
}

// Registry holds bot commands, callbacks and state handlers.
// Registration happens during wiring; lookups are safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	commands        map[string]commands.Command
	commandPatterns []CommandPattern

	callbacks        map[string]tele.HandlerFunc
	callbackPatterns callbacks.List

	states map[StateRoute]tele.HandlerFunc
	query  tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		states:    make(map[StateRoute]tele.HandlerFunc),
	}
}

// RegisterCommand adds a new command.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// RegisterCommandPattern adds a parametric command. Patterns are tried in
// registration order after exact commands.
func (r *Registry) RegisterCommandPattern(p CommandPattern) {
	if r == nil || p.Matcher.Name == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command_pattern.skip",
			slog.String("reason", "invalid"),
		)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commandPatterns = append(r.commandPatterns, p)
}

// ListCommands returns a slice of tele.Command, optionally filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(cmd, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand searches for a command by name or its aliases and returns the canonical key with metadata if found.
// Matching is case-sensitive.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// LookupCommandPattern returns the first parametric command accepting name.
func (r *Registry) LookupCommandPattern(name string) (string, callbacks.Bound, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.commandPatterns {
		if bound, ok := p.Matcher.Bind(name); ok {
			return p.Matcher.Name, bound, p.AdminOnly, true
		}
	}
	return "", nil, false, false
}

// Commands returns a copy of all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback adds a callback handler for exact callback data.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// RegisterCallbackPattern appends a typed matcher tried after exact callbacks.
func (r *Registry) RegisterCallbackPattern(m callbacks.Matcher) error {
	if r == nil || m.Name == "" {
		return errors.New("invalid callback pattern registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.callbackPatterns {
		if existing.Name == m.Name {
			return fmt.Errorf("callback pattern already registered: %s", m.Name)
		}
	}
	r.callbackPatterns = append(r.callbackPatterns, m)
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ResolveCallback runs data through the pattern list.
func (r *Registry) ResolveCallback(data string) (string, callbacks.Bound, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackPatterns.Resolve(data)
}

// CallbackPatterns returns the registered pattern list in order.
func (r *Registry) CallbackPatterns() callbacks.List {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(callbacks.List(nil), r.callbackPatterns...)
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RegisterStateHandler binds the handler run when a sender in st sends content of kind.
func (r *Registry) RegisterStateHandler(st state.State, kind state.Kind, h tele.HandlerFunc) error {
	if r == nil || st == "" || h == nil {
		return errors.New("invalid state handler registration")
	}
	key := StateRoute{State: st, Kind: kind}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.states[key]; exists {
		return fmt.Errorf("state handler already registered: %s/%s", st, kind)
	}
	r.states[key] = h
	return nil
}

// StateHandler returns the handler for st and kind.
func (r *Registry) StateHandler(st state.State, kind state.Kind) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.states[StateRoute{State: st, Kind: kind}]
	return h, ok
}

// StateRoutes lists registered state handler slots sorted by state then kind.
func (r *Registry) StateRoutes() []StateRoute {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StateRoute, 0, len(r.states))
	for k := range r.states {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// SetQueryHandler sets the inline query handler.
func (r *Registry) SetQueryHandler(h tele.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = h
}

// QueryHandler returns the inline query handler, if any.
func (r *Registry) QueryHandler() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.query
}

// CommandSetter publishes the bot command menu; *tele.Bot satisfies it.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot CommandSetter, reg *Registry) {
	cmds := reg.ListCommands(true)
	if err := bot.SetCommands(cmds); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.published",
		slog.Int("count", len(cmds)),
	)
}
