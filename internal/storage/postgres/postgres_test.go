package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/moviebot/internal/domain"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = raw.Close()
	})
	return sqlx.NewDb(raw, "postgres"), mock
}

var userCols = []string{"id", "username", "first_name", "role", "referral_source", "created_at", "updated_at"}

func TestUsersUpsert(t *testing.T) {
	db, mock := mockDB(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(int64(42), "neo", "Thomas", "movie_1234").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(42, "neo", "Thomas", "USER", "movie_1234", now, now))

	u, err := New(db).Users.Upsert(context.Background(), domain.Profile{
		ID: 42, Username: "neo", FirstName: "Thomas", ReferralSource: "movie_1234",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, "movie_1234", u.ReferralSource)
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("FROM users WHERE id").WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows(userCols))

	_, err := New(db).Users.Get(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRoleOnMissingUser(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("UPDATE users SET role").
		WithArgs(int64(9), domain.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := New(db).Users.SetRole(context.Background(), 9, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateMovieCodeConflict(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("INSERT INTO movies").
		WithArgs(int64(1234), "Heat", "file-1", nil).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "movies_code_key"})

	_, err := New(db).Movies.Create(context.Background(), domain.NewMovie{Code: 1234, Title: "Heat", FileID: "file-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "movies_code_key")
}

func TestAddViewDuplicateIsConflict(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("INSERT INTO movie_views").
		WithArgs(int64(42), int64(3)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := New(db).Movies.AddView(context.Background(), 42, 3)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAverageRating(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("FROM ratings").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(4.5))

	avg, err := New(db).Movies.AverageRating(context.Background(), 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, avg, 1e-9)
}

func TestOtherDriverErrorsAreWrapped(t *testing.T) {
	db, mock := mockDB(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM movies").WillReturnError(boom)

	_, err := New(db).Movies.Count(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "movies.count")
}

func TestChannelUpdateLeavesNilFields(t *testing.T) {
	db, mock := mockDB(t)
	title := "Premieres"
	mock.ExpectExec("UPDATE channels").
		WithArgs(int64(5), "Premieres", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := New(db).Channels.Update(context.Background(), 5, domain.ChannelPatch{Title: &title})
	require.NoError(t, err)
}

func TestDeletesReportMissingRows(t *testing.T) {
	db, mock := mockDB(t)
	s := New(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM channels").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM categories").WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE feedback SET resolved").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Channels.Delete(ctx, 1), domain.ErrNotFound)
	assert.NoError(t, s.Categories.Delete(ctx, 2))
	assert.ErrorIs(t, s.Feedback.Resolve(ctx, 3), domain.ErrNotFound)
}

func TestPendingRequestsJoinAuthor(t *testing.T) {
	db, mock := mockDB(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM movie_requests").WithArgs(domain.RequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "status", "created_at", "username"}).
			AddRow(1, 42, "Alien", "PENDING", created, "ripley"))

	reqs, err := New(db).Requests.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "ripley", reqs[0].Username)
	assert.Equal(t, domain.RequestPending, reqs[0].Status)
}

func TestSuperAdminsSeeder(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("UPDATE users SET role").
		WithArgs(domain.RoleSuperAdmin, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, SuperAdmins([]int64{1, 2}).Seed(context.Background(), db))
	require.NoError(t, SuperAdmins(nil).Seed(context.Background(), db), "no ids means no query")
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%matrix%`, likePattern("matrix"))
	assert.Equal(t, `%100\% pure\_gold%`, likePattern("100% pure_gold"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	m := Migrations()
	up, err := m.FS.Open("migrations/0001_init.up.sql")
	require.NoError(t, err)
	_ = up.Close()
}
