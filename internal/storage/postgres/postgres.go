// Package postgres implements the domain stores on top of sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/moviebot/core/bootstrap"
	coredatabase "github.com/m3rciful/moviebot/core/database"
	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the schema migrations compiled into the binary.
func Migrations() coredatabase.Migrations {
	return coredatabase.Migrations{FS: migrationsFS, Dir: "migrations"}
}

const uniqueViolation = "23505"

// New builds every store over db.
func New(db *sqlx.DB) domain.Services {
	return domain.Services{
		Users:      &Users{db: db},
		Movies:     &Movies{db: db},
		Categories: &Categories{db: db},
		Channels:   &Channels{db: db},
		Feedback:   &Feedback{db: db},
		Requests:   &Requests{db: db},
	}
}

// wrap tags err with op and maps driver errors onto the domain sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrConflict, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected turns a write that touched no rows into ErrNotFound.
func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

// likePattern escapes the ILIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// SuperAdmins promotes the configured ids that already have a user row.
// Ids that never started the bot are promoted by the allow-list alone.
func SuperAdmins(ids []int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		if len(ids) == 0 {
			return nil
		}
		res, err := db.ExecContext(ctx,
			`UPDATE users SET role = $1, updated_at = now() WHERE id = ANY($2) AND role <> $1`,
			domain.RoleSuperAdmin, pq.Array(ids),
		)
		if err != nil {
			return wrap("seed superadmins", err)
		}
		n, _ := res.RowsAffected()
		logger.LogEvent(ctx, logger.SVCUsers, slog.LevelInfo, "seed.superadmins",
			slog.Int("configured", len(ids)),
			slog.Int64("promoted", n),
		)
		return nil
	})
}
