package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/m3rciful/moviebot/core/telegram/middleware"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

const (
	roleCacheCapacity = 10_000
	defaultRoleTTL    = 30 * time.Second
)

// Authority answers who may do what. Super admins come from configuration;
// everyone else is judged by the role stored with the user, cached briefly
// because the gate asks on every update.
type Authority struct {
	users domain.UserStore
	super map[int64]struct{}
	roles otter.Cache[int64, domain.Role]
}

// NewAuthority builds an Authority. A non-positive ttl uses 30s.
func NewAuthority(users domain.UserStore, superAdmins []int64, ttl time.Duration) (*Authority, error) {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	roles, err := otter.MustBuilder[int64, domain.Role](roleCacheCapacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("role cache: %w", err)
	}
	super := make(map[int64]struct{}, len(superAdmins))
	for _, id := range superAdmins {
		super[id] = struct{}{}
	}
	return &Authority{users: users, super: super, roles: roles}, nil
}

// IsSuperAdmin reports whether id is on the configured super admin list.
func (a *Authority) IsSuperAdmin(id int64) bool {
	_, ok := a.super[id]
	return ok
}

// SuperAdmins returns the configured super admin ids.
func (a *Authority) SuperAdmins() []int64 {
	out := make([]int64, 0, len(a.super))
	for id := range a.super {
		out = append(out, id)
	}
	return out
}

// Role returns the stored role of id. Unknown users are plain users.
func (a *Authority) Role(ctx context.Context, id int64) (domain.Role, error) {
	if role, ok := a.roles.Get(id); ok {
		return role, nil
	}
	role := domain.RoleUser
	u, err := a.users.Get(ctx, id)
	switch {
	case err == nil:
		role = u.Role
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}
	a.roles.Set(id, role)
	return role, nil
}

// Privileged reports whether id may open the admin panel and skip the
// subscription check.
func (a *Authority) Privileged(ctx context.Context, id int64) (bool, error) {
	if a.IsSuperAdmin(id) {
		return true, nil
	}
	role, err := a.Role(ctx, id)
	if err != nil {
		return false, err
	}
	return role.Privileged(), nil
}

// Forget drops the cached role of id after it changed.
func (a *Authority) Forget(id int64) {
	a.roles.Delete(id)
}

// Close releases the role cache.
func (a *Authority) Close() {
	a.roles.Close()
}

// Admin guards handlers reserved for admins and super admins.
func (a *Authority) Admin() tele.MiddlewareFunc {
	return middleware.RequireAuthority(middleware.AuthorityOptions{
		Name:     "admin",
		Check:    a.Privileged,
		OnReject: rejectUnauthorized,
	})
}

// Super guards handlers reserved for configured super admins.
func (a *Authority) Super() tele.MiddlewareFunc {
	return middleware.RequireAuthority(middleware.AuthorityOptions{
		Name: "super_admin",
		Check: func(_ context.Context, id int64) (bool, error) {
			return a.IsSuperAdmin(id), nil
		},
		OnReject: rejectUnauthorized,
	})
}

// rejectUnauthorized answers a pressed button; rejected messages get no reply.
func rejectUnauthorized(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: txtUnauthorized})
}
