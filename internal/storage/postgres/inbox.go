package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

type Feedback struct {
	db *sqlx.DB
}

func (s *Feedback) Create(ctx context.Context, userID int64, message string) (domain.Feedback, error) {
	var f domain.Feedback
	err := s.db.GetContext(ctx, &f, `
		INSERT INTO feedback (user_id, message) VALUES ($1, $2)
		RETURNING id, user_id, message, resolved, created_at`,
		userID, message,
	)
	if err != nil {
		return f, wrap("feedback.create", err)
	}
	logger.LogEvent(ctx, logger.SVCFeedback, slog.LevelInfo, "feedback.created", slog.Int64("feedback_id", f.ID))
	return f, nil
}

func (s *Feedback) Unresolved(ctx context.Context, limit int) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := s.db.SelectContext(ctx, &out, `
		SELECT f.id, f.user_id, f.message, f.resolved, f.created_at, u.username, u.first_name
		FROM feedback f
		JOIN users u ON u.id = f.user_id
		WHERE NOT f.resolved
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $1`, limit)
	return out, wrap("feedback.unresolved", err)
}

func (s *Feedback) Resolve(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE feedback SET resolved = true WHERE id = $1`, id)
	return affected("feedback.resolve", res, err)
}

func (s *Feedback) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	return affected("feedback.delete", res, err)
}

type Requests struct {
	db *sqlx.DB
}

func (s *Requests) Create(ctx context.Context, userID int64, title string) (domain.MovieRequest, error) {
	var r domain.MovieRequest
	err := s.db.GetContext(ctx, &r, `
		INSERT INTO movie_requests (user_id, title) VALUES ($1, $2)
		RETURNING id, user_id, title, status, created_at`,
		userID, title,
	)
	if err != nil {
		return r, wrap("requests.create", err)
	}
	logger.LogEvent(ctx, logger.SVCRequests, slog.LevelInfo, "request.created", slog.Int64("request_id", r.ID))
	return r, nil
}

func (s *Requests) Pending(ctx context.Context) ([]domain.MovieRequest, error) {
	var out []domain.MovieRequest
	err := s.db.SelectContext(ctx, &out, `
		SELECT r.id, r.user_id, r.title, r.status, r.created_at, u.username
		FROM movie_requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.status = $1
		ORDER BY r.created_at, r.id`, domain.RequestPending)
	return out, wrap("requests.pending", err)
}

func (s *Requests) SetStatus(ctx context.Context, id int64, status domain.RequestStatus) (domain.MovieRequest, error) {
	var r domain.MovieRequest
	err := s.db.GetContext(ctx, &r, `
		UPDATE movie_requests SET status = $2, updated_at = now() WHERE id = $1
		RETURNING id, user_id, title, status, created_at`,
		id, status,
	)
	if err != nil {
		return r, wrap("requests.set_status", err)
	}
	logger.LogEvent(ctx, logger.SVCRequests, slog.LevelInfo, "request.status",
		slog.Int64("request_id", id),
		slog.String("status", string(status)),
	)
	return r, nil
}

func (s *Requests) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM movie_requests WHERE status = $1`, domain.RequestPending)
	return n, wrap("requests.count_pending", err)
}
