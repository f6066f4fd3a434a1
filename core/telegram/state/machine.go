package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/moviebot/core/logger"
)

const stateKeyPrefix = "state"

// Options configures a Machine.
type Options struct {
	// TTL bounds every state and scratch key. Zero keeps keys until deleted.
	TTL   time.Duration
	Table Table
}

// Machine maps a user id to its current State and a bag of scratch values.
// It is safe for concurrent use; consistency between updates of the same user
// is left to the caller.
type Machine struct {
	store Store
	ttl   time.Duration
	table Table
}

// NewMachine builds a Machine over store.
func NewMachine(store Store, opts Options) *Machine {
	table := opts.Table
	if table == nil {
		table = Table{}
	}
	return &Machine{store: store, ttl: opts.TTL, table: table}
}

// Key returns the store key holding name for userID.
func Key(name string, userID int64) string {
	return name + ":" + strconv.FormatInt(userID, 10)
}

// Table returns the transition table.
func (m *Machine) Table() Table { return m.table }

// Accepts reports whether st expects content of kind.
func (m *Machine) Accepts(st State, kind Kind) bool { return m.table.Accepts(st, kind) }

// Get returns the user's state. Absent and unrecognised values read as Idle.
func (m *Machine) Get(ctx context.Context, userID int64) (State, error) {
	raw, ok, err := m.store.Get(ctx, Key(stateKeyPrefix, userID))
	if err != nil {
		return StateIdle, fmt.Errorf("state get: %w", err)
	}
	if !ok || raw == "" {
		return StateIdle, nil
	}
	st := State(raw)
	if !m.table.Known(st) {
		logger.Warn(ctx, "tg.fsm", "fsm.unknown_state",
			slog.Int64("user_id", userID),
			slog.String("state", raw),
		)
		return StateIdle, nil
	}
	return st, nil
}

// Set moves the user into st. Setting Idle deletes the state key.
func (m *Machine) Set(ctx context.Context, userID int64, st State) error {
	if st == StateIdle {
		return m.Reset(ctx, userID)
	}
	if !m.table.Known(st) {
		return fmt.Errorf("%w: %s", ErrUnknownState, st)
	}
	if err := m.store.Set(ctx, Key(stateKeyPrefix, userID), string(st), m.ttl); err != nil {
		return fmt.Errorf("state set: %w", err)
	}
	logger.Debug(ctx, "tg.fsm", "fsm.transition",
		slog.Int64("user_id", userID),
		slog.String("next_state", string(st)),
	)
	return nil
}

// Reset returns the user to Idle. Scratch values are left untouched.
func (m *Machine) Reset(ctx context.Context, userID int64) error {
	if err := m.store.Delete(ctx, Key(stateKeyPrefix, userID)); err != nil {
		return fmt.Errorf("state reset: %w", err)
	}
	logger.Debug(ctx, "tg.fsm", "fsm.transition",
		slog.Int64("user_id", userID),
		slog.String("next_state", string(StateIdle)),
	)
	return nil
}

// Scratch reads one scratch value.
func (m *Machine) Scratch(ctx context.Context, userID int64, key string) (string, bool, error) {
	val, ok, err := m.store.Get(ctx, Key(key, userID))
	if err != nil {
		return "", false, fmt.Errorf("scratch get %s: %w", key, err)
	}
	return val, ok, nil
}

// ScratchInt reads a scratch value holding a decimal integer. A malformed value reads as absent.
func (m *Machine) ScratchInt(ctx context.Context, userID int64, key string) (int64, bool, error) {
	raw, ok, err := m.Scratch(ctx, userID, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetScratch stores one scratch value under the session TTL.
func (m *Machine) SetScratch(ctx context.Context, userID int64, key, value string) error {
	if err := m.store.Set(ctx, Key(key, userID), value, m.ttl); err != nil {
		return fmt.Errorf("scratch set %s: %w", key, err)
	}
	return nil
}

// ClearScratch deletes the listed scratch values.
func (m *Machine) ClearScratch(ctx context.Context, userID int64, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = Key(k, userID)
	}
	if err := m.store.Delete(ctx, full...); err != nil {
		return fmt.Errorf("scratch clear: %w", err)
	}
	return nil
}

// Collect reads every key st requires. missing lists the keys that were absent;
// a non-empty missing means the chain is broken and must restart.
func (m *Machine) Collect(ctx context.Context, userID int64, st State) (values map[string]string, missing []string, err error) {
	required := m.table.Requires(st)
	values = make(map[string]string, len(required))
	for _, key := range required {
		val, ok, err := m.Scratch(ctx, userID, key)
		if err != nil {
			return nil, nil, err
		}
		if !ok || val == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = val
	}
	if len(missing) > 0 {
		logger.Info(ctx, "tg.fsm", "fsm.chain_broken",
			slog.Int64("user_id", userID),
			slog.String("state", string(st)),
			slog.Any("missing", missing),
		)
	}
	return values, missing, nil
}
