package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

const movieColumns = `id, code, title, file_id, category_id, created_at, updated_at`

type Movies struct {
	db *sqlx.DB
}

func (s *Movies) ByCode(ctx context.Context, code int64) (domain.Movie, error) {
	var m domain.Movie
	err := s.db.GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE code = $1`, code)
	return m, wrap("movies.by_code", err)
}

func (s *Movies) ByID(ctx context.Context, id int64) (domain.Movie, error) {
	var m domain.Movie
	err := s.db.GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	return m, wrap("movies.by_id", err)
}

func (s *Movies) ByCategory(ctx context.Context, categoryID int64) ([]domain.Movie, error) {
	var out []domain.Movie
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+movieColumns+` FROM movies WHERE category_id = $1 ORDER BY created_at DESC`, categoryID)
	return out, wrap("movies.by_category", err)
}

func (s *Movies) SearchTitle(ctx context.Context, query string, limit int) ([]domain.Movie, error) {
	var out []domain.Movie
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+movieColumns+` FROM movies WHERE title ILIKE $1 ORDER BY created_at DESC LIMIT $2`,
		likePattern(query), limit)
	return out, wrap("movies.search_title", err)
}

func (s *Movies) Random(ctx context.Context) (domain.Movie, error) {
	var m domain.Movie
	err := s.db.GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies ORDER BY random() LIMIT 1`)
	return m, wrap("movies.random", err)
}

func (s *Movies) Top(ctx context.Context, limit int) ([]domain.Movie, error) {
	var out []domain.Movie
	err := s.db.SelectContext(ctx, &out, `
		SELECT m.id, m.code, m.title, m.file_id, m.category_id, m.created_at, m.updated_at
		FROM movies m
		LEFT JOIN movie_views v ON v.movie_id = m.id
		GROUP BY m.id
		ORDER BY count(v.movie_id) DESC, m.id
		LIMIT $1`, limit)
	return out, wrap("movies.top", err)
}

func (s *Movies) Create(ctx context.Context, nm domain.NewMovie) (domain.Movie, error) {
	var m domain.Movie
	err := s.db.GetContext(ctx, &m, `
		INSERT INTO movies (code, title, file_id, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+movieColumns,
		nm.Code, nm.Title, nm.FileID, nm.CategoryID,
	)
	if err != nil {
		return m, wrap("movies.create", err)
	}
	logger.LogEvent(ctx, logger.SVCMovies, slog.LevelInfo, "movie.created",
		slog.Int64("movie_id", m.ID),
		slog.Int64("code", m.Code),
	)
	return m, nil
}

func (s *Movies) UpdateTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE movies SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	return affected("movies.update_title", res, err)
}

func (s *Movies) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err := affected("movies.delete", res, err); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCMovies, slog.LevelInfo, "movie.deleted", slog.Int64("movie_id", id))
	return nil
}

func (s *Movies) AddView(ctx context.Context, userID, movieID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO movie_views (user_id, movie_id) VALUES ($1, $2)`, userID, movieID)
	return wrap("movies.add_view", err)
}

func (s *Movies) Rate(ctx context.Context, userID, movieID int64, score int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (user_id, movie_id, score) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET score = EXCLUDED.score, updated_at = now()`,
		userID, movieID, score)
	return wrap("movies.rate", err)
}

func (s *Movies) AverageRating(ctx context.Context, movieID int64) (float64, error) {
	var avg float64
	err := s.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(score), 0)::float8 FROM ratings WHERE movie_id = $1`, movieID)
	return avg, wrap("movies.average_rating", err)
}

func (s *Movies) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM movies`)
	return n, wrap("movies.count", err)
}

func (s *Movies) CountViews(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM movie_views`)
	return n, wrap("movies.count_views", err)
}
