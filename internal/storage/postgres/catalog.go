package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

type Categories struct {
	db *sqlx.DB
}

func (s *Categories) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := s.db.SelectContext(ctx, &out, `SELECT id, name, created_at FROM categories ORDER BY name`)
	return out, wrap("categories.list", err)
}

func (s *Categories) Add(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	err := s.db.GetContext(ctx, &c,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id, name, created_at`, name)
	if err != nil {
		return c, wrap("categories.add", err)
	}
	logger.LogEvent(ctx, logger.SVCMovies, slog.LevelInfo, "category.added", slog.Int64("category_id", c.ID))
	return c, nil
}

func (s *Categories) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return affected("categories.delete", res, err)
}

const channelColumns = `id, channel_id, title, invite_link, created_at`

type Channels struct {
	db *sqlx.DB
}

func (s *Channels) List(ctx context.Context) ([]domain.Channel, error) {
	var out []domain.Channel
	err := s.db.SelectContext(ctx, &out, `SELECT `+channelColumns+` FROM channels ORDER BY id`)
	return out, wrap("channels.list", err)
}

func (s *Channels) ByID(ctx context.Context, id int64) (domain.Channel, error) {
	var ch domain.Channel
	err := s.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	return ch, wrap("channels.by_id", err)
}

func (s *Channels) Add(ctx context.Context, channelID int64, title, inviteLink string) (domain.Channel, error) {
	var ch domain.Channel
	err := s.db.GetContext(ctx, &ch, `
		INSERT INTO channels (channel_id, title, invite_link) VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE SET title = EXCLUDED.title, invite_link = EXCLUDED.invite_link
		RETURNING `+channelColumns,
		channelID, title, inviteLink,
	)
	if err != nil {
		return ch, wrap("channels.add", err)
	}
	logger.LogEvent(ctx, logger.SVCChannels, slog.LevelInfo, "channel.added",
		slog.Int64("channel_id", ch.ChannelID),
		slog.Bool("has_link", ch.InviteLink != ""),
	)
	return ch, nil
}

func (s *Channels) Update(ctx context.Context, id int64, patch domain.ChannelPatch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE channels
		SET title = COALESCE($2, title), invite_link = COALESCE($3, invite_link)
		WHERE id = $1`,
		id, patch.Title, patch.InviteLink,
	)
	return affected("channels.update", res, err)
}

func (s *Channels) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err := affected("channels.delete", res, err); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCChannels, slog.LevelInfo, "channel.deleted", slog.Int64("id", id))
	return nil
}
