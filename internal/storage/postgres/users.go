package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

const userColumns = `id, username, first_name, role, referral_source, created_at, updated_at`

type Users struct {
	db *sqlx.DB
}

func (s *Users) Get(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return u, wrap("users.get", err)
}

// Upsert creates the user or refreshes the profile fields of an existing one.
// Role and referral source are never overwritten.
func (s *Users) Upsert(ctx context.Context, p domain.Profile) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `
		INSERT INTO users (id, username, first_name, referral_source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, updated_at = now()
		RETURNING `+userColumns,
		p.ID, p.Username, p.FirstName, p.ReferralSource,
	)
	if err != nil {
		return u, wrap("users.upsert", err)
	}
	logger.LogEvent(ctx, logger.SVCUsers, slog.LevelDebug, "user.upsert",
		slog.Int64("user_id", u.ID),
		slog.Bool("created", u.CreatedAt.Equal(u.UpdatedAt)),
	)
	return u, nil
}

func (s *Users) SetRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err := affected("users.set_role", res, err); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, "user.role",
		slog.Int64("target_id", id),
		slog.String("role", string(role)),
	)
	return nil
}

func (s *Users) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM users`)
	return n, wrap("users.count", err)
}

func (s *Users) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	return out, wrap("users.list", err)
}

func (s *Users) ListAdmins(ctx context.Context, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+userColumns+` FROM users
		WHERE role IN ($1, $2)
		ORDER BY created_at DESC, id
		OFFSET $3 LIMIT $4`,
		domain.RoleAdmin, domain.RoleSuperAdmin, offset, limit,
	)
	return out, wrap("users.list_admins", err)
}

func (s *Users) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM users WHERE role IN ($1, $2)`,
		domain.RoleAdmin, domain.RoleSuperAdmin)
	return n, wrap("users.count_admins", err)
}
