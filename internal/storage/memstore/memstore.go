// Package memstore is an in-memory implementation of every domain store.
// It backs handler and cache tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/moviebot/internal/domain"
)

type viewKey struct{ user, movie int64 }

// DB holds all tables behind one mutex.
type DB struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	users      map[int64]domain.User
	movies     map[int64]domain.Movie
	categories map[int64]domain.Category
	channels   map[int64]domain.Channel
	feedback   map[int64]domain.Feedback
	requests   map[int64]domain.MovieRequest
	views      map[viewKey]time.Time
	ratings    map[viewKey]int

	// Calls counts store calls by method name, e.g. "channels.list".
	Calls map[string]int
}

func New() *DB {
	return &DB{
		now:        time.Now,
		users:      make(map[int64]domain.User),
		movies:     make(map[int64]domain.Movie),
		categories: make(map[int64]domain.Category),
		channels:   make(map[int64]domain.Channel),
		feedback:   make(map[int64]domain.Feedback),
		requests:   make(map[int64]domain.MovieRequest),
		views:      make(map[viewKey]time.Time),
		ratings:    make(map[viewKey]int),
		Calls:      make(map[string]int),
	}
}

// Services exposes the tables through the domain interfaces.
func (db *DB) Services() domain.Services {
	return domain.Services{
		Users:      users{db},
		Movies:     movies{db},
		Categories: categories{db},
		Channels:   channels{db},
		Feedback:   feedbacks{db},
		Requests:   requests{db},
	}
}

// CallCount reads Calls under the lock.
func (db *DB) CallCount(name string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.Calls[name]
}

// lock takes the mutex and records the call; callers defer db.mu.Unlock.
func (db *DB) lock(name string) {
	db.mu.Lock()
	db.Calls[name]++
}

// tick returns a strictly increasing timestamp so orderings by time are stable.
func (db *DB) tick() time.Time {
	db.seq++
	return db.now().Add(time.Duration(db.seq) * time.Microsecond)
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func notFound(op string) error { return fmt.Errorf("%s: %w", op, domain.ErrNotFound) }

type users struct{ db *DB }

func (s users) Get(_ context.Context, id int64) (domain.User, error) {
	s.db.lock("users.get")
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return domain.User{}, notFound("users.get")
	}
	return u, nil
}

func (s users) Upsert(_ context.Context, p domain.Profile) (domain.User, error) {
	s.db.lock("users.upsert")
	defer s.db.mu.Unlock()
	now := s.db.tick()
	u, ok := s.db.users[p.ID]
	if !ok {
		u = domain.User{ID: p.ID, Role: domain.RoleUser, ReferralSource: p.ReferralSource, CreatedAt: now}
	}
	u.Username, u.FirstName, u.UpdatedAt = p.Username, p.FirstName, now
	s.db.users[p.ID] = u
	return u, nil
}

func (s users) SetRole(_ context.Context, id int64, role domain.Role) error {
	s.db.lock("users.set_role")
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return notFound("users.set_role")
	}
	u.Role = role
	s.db.users[id] = u
	return nil
}

func (s users) Count(context.Context) (int, error) {
	s.db.lock("users.count")
	defer s.db.mu.Unlock()
	return len(s.db.users), nil
}

func (s users) List(context.Context) ([]domain.User, error) {
	s.db.lock("users.list")
	defer s.db.mu.Unlock()
	out := make([]domain.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s users) admins() []domain.User {
	var out []domain.User
	for _, u := range s.db.users {
		if u.Role.Privileged() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s users) ListAdmins(_ context.Context, offset, limit int) ([]domain.User, error) {
	s.db.lock("users.list_admins")
	defer s.db.mu.Unlock()
	all := s.admins()
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s users) CountAdmins(context.Context) (int, error) {
	s.db.lock("users.count_admins")
	defer s.db.mu.Unlock()
	return len(s.admins()), nil
}

type movies struct{ db *DB }

func (s movies) ByCode(_ context.Context, code int64) (domain.Movie, error) {
	s.db.lock("movies.by_code")
	defer s.db.mu.Unlock()
	for _, m := range s.db.movies {
		if m.Code == code {
			return m, nil
		}
	}
	return domain.Movie{}, notFound("movies.by_code")
}

func (s movies) ByID(_ context.Context, id int64) (domain.Movie, error) {
	s.db.lock("movies.by_id")
	defer s.db.mu.Unlock()
	m, ok := s.db.movies[id]
	if !ok {
		return domain.Movie{}, notFound("movies.by_id")
	}
	return m, nil
}

func (s movies) filter(keep func(domain.Movie) bool) []domain.Movie {
	var out []domain.Movie
	for _, m := range s.db.movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s movies) ByCategory(_ context.Context, categoryID int64) ([]domain.Movie, error) {
	s.db.lock("movies.by_category")
	defer s.db.mu.Unlock()
	return s.filter(func(m domain.Movie) bool {
		return m.CategoryID != nil && *m.CategoryID == categoryID
	}), nil
}

func (s movies) SearchTitle(_ context.Context, query string, limit int) ([]domain.Movie, error) {
	s.db.lock("movies.search_title")
	defer s.db.mu.Unlock()
	q := strings.ToLower(query)
	out := s.filter(func(m domain.Movie) bool { return strings.Contains(strings.ToLower(m.Title), q) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Random returns the oldest movie; tests need determinism more than variety.
func (s movies) Random(context.Context) (domain.Movie, error) {
	s.db.lock("movies.random")
	defer s.db.mu.Unlock()
	all := s.filter(func(domain.Movie) bool { return true })
	if len(all) == 0 {
		return domain.Movie{}, notFound("movies.random")
	}
	return all[len(all)-1], nil
}

func (s movies) Top(_ context.Context, limit int) ([]domain.Movie, error) {
	s.db.lock("movies.top")
	defer s.db.mu.Unlock()
	counts := make(map[int64]int)
	for k := range s.db.views {
		counts[k.movie]++
	}
	all := s.filter(func(domain.Movie) bool { return true })
	sort.SliceStable(all, func(i, j int) bool {
		if counts[all[i].ID] != counts[all[j].ID] {
			return counts[all[i].ID] > counts[all[j].ID]
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s movies) Create(_ context.Context, nm domain.NewMovie) (domain.Movie, error) {
	s.db.lock("movies.create")
	defer s.db.mu.Unlock()
	for _, m := range s.db.movies {
		if m.Code == nm.Code {
			return domain.Movie{}, fmt.Errorf("movies.create: %w", domain.ErrConflict)
		}
	}
	now := s.db.tick()
	m := domain.Movie{
		ID:         s.db.nextID(),
		Code:       nm.Code,
		Title:      nm.Title,
		FileID:     nm.FileID,
		CategoryID: nm.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.db.movies[m.ID] = m
	return m, nil
}

func (s movies) UpdateTitle(_ context.Context, id int64, title string) error {
	s.db.lock("movies.update_title")
	defer s.db.mu.Unlock()
	m, ok := s.db.movies[id]
	if !ok {
		return notFound("movies.update_title")
	}
	m.Title = title
	s.db.movies[id] = m
	return nil
}

func (s movies) Delete(_ context.Context, id int64) error {
	s.db.lock("movies.delete")
	defer s.db.mu.Unlock()
	if _, ok := s.db.movies[id]; !ok {
		return notFound("movies.delete")
	}
	delete(s.db.movies, id)
	return nil
}

func (s movies) AddView(_ context.Context, userID, movieID int64) error {
	s.db.lock("movies.add_view")
	defer s.db.mu.Unlock()
	k := viewKey{userID, movieID}
	if _, ok := s.db.views[k]; ok {
		return fmt.Errorf("movies.add_view: %w", domain.ErrConflict)
	}
	s.db.views[k] = s.db.tick()
	return nil
}

func (s movies) Rate(_ context.Context, userID, movieID int64, score int) error {
	s.db.lock("movies.rate")
	defer s.db.mu.Unlock()
	s.db.ratings[viewKey{userID, movieID}] = score
	return nil
}

func (s movies) AverageRating(_ context.Context, movieID int64) (float64, error) {
	s.db.lock("movies.average_rating")
	defer s.db.mu.Unlock()
	var sum, n int
	for k, score := range s.db.ratings {
		if k.movie == movieID {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func (s movies) Count(context.Context) (int, error) {
	s.db.lock("movies.count")
	defer s.db.mu.Unlock()
	return len(s.db.movies), nil
}

func (s movies) CountViews(context.Context) (int, error) {
	s.db.lock("movies.count_views")
	defer s.db.mu.Unlock()
	return len(s.db.views), nil
}

type categories struct{ db *DB }

func (s categories) List(context.Context) ([]domain.Category, error) {
	s.db.lock("categories.list")
	defer s.db.mu.Unlock()
	out := make([]domain.Category, 0, len(s.db.categories))
	for _, c := range s.db.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s categories) Add(_ context.Context, name string) (domain.Category, error) {
	s.db.lock("categories.add")
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if c.Name == name {
			return domain.Category{}, fmt.Errorf("categories.add: %w", domain.ErrConflict)
		}
	}
	c := domain.Category{ID: s.db.nextID(), Name: name, CreatedAt: s.db.tick()}
	s.db.categories[c.ID] = c
	return c, nil
}

func (s categories) Delete(_ context.Context, id int64) error {
	s.db.lock("categories.delete")
	defer s.db.mu.Unlock()
	if _, ok := s.db.categories[id]; !ok {
		return notFound("categories.delete")
	}
	delete(s.db.categories, id)
	for mid, m := range s.db.movies {
		if m.CategoryID != nil && *m.CategoryID == id {
			m.CategoryID = nil
			s.db.movies[mid] = m
		}
	}
	return nil
}

type channels struct{ db *DB }

func (s channels) List(context.Context) ([]domain.Channel, error) {
	s.db.lock("channels.list")
	defer s.db.mu.Unlock()
	out := make([]domain.Channel, 0, len(s.db.channels))
	for _, ch := range s.db.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s channels) ByID(_ context.Context, id int64) (domain.Channel, error) {
	s.db.lock("channels.by_id")
	defer s.db.mu.Unlock()
	ch, ok := s.db.channels[id]
	if !ok {
		return domain.Channel{}, notFound("channels.by_id")
	}
	return ch, nil
}

func (s channels) Add(_ context.Context, channelID int64, title, inviteLink string) (domain.Channel, error) {
	s.db.lock("channels.add")
	defer s.db.mu.Unlock()
	for id, ch := range s.db.channels {
		if ch.ChannelID == channelID {
			ch.Title, ch.InviteLink = title, inviteLink
			s.db.channels[id] = ch
			return ch, nil
		}
	}
	ch := domain.Channel{ID: s.db.nextID(), ChannelID: channelID, Title: title, InviteLink: inviteLink, CreatedAt: s.db.tick()}
	s.db.channels[ch.ID] = ch
	return ch, nil
}

func (s channels) Update(_ context.Context, id int64, patch domain.ChannelPatch) error {
	s.db.lock("channels.update")
	defer s.db.mu.Unlock()
	ch, ok := s.db.channels[id]
	if !ok {
		return notFound("channels.update")
	}
	if patch.Title != nil {
		ch.Title = *patch.Title
	}
	if patch.InviteLink != nil {
		ch.InviteLink = *patch.InviteLink
	}
	s.db.channels[id] = ch
	return nil
}

func (s channels) Delete(_ context.Context, id int64) error {
	s.db.lock("channels.delete")
	defer s.db.mu.Unlock()
	if _, ok := s.db.channels[id]; !ok {
		return notFound("channels.delete")
	}
	delete(s.db.channels, id)
	return nil
}

type feedbacks struct{ db *DB }

func (s feedbacks) Create(_ context.Context, userID int64, message string) (domain.Feedback, error) {
	s.db.lock("feedback.create")
	defer s.db.mu.Unlock()
	f := domain.Feedback{ID: s.db.nextID(), UserID: userID, Message: message, CreatedAt: s.db.tick()}
	s.db.feedback[f.ID] = f
	return f, nil
}

func (s feedbacks) Unresolved(_ context.Context, limit int) ([]domain.Feedback, error) {
	s.db.lock("feedback.unresolved")
	defer s.db.mu.Unlock()
	var out []domain.Feedback
	for _, f := range s.db.feedback {
		if f.Resolved {
			continue
		}
		u := s.db.users[f.UserID]
		f.Username, f.FirstName = u.Username, u.FirstName
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s feedbacks) Resolve(_ context.Context, id int64) error {
	s.db.lock("feedback.resolve")
	defer s.db.mu.Unlock()
	f, ok := s.db.feedback[id]
	if !ok {
		return notFound("feedback.resolve")
	}
	f.Resolved = true
	s.db.feedback[id] = f
	return nil
}

func (s feedbacks) Delete(_ context.Context, id int64) error {
	s.db.lock("feedback.delete")
	defer s.db.mu.Unlock()
	if _, ok := s.db.feedback[id]; !ok {
		return notFound("feedback.delete")
	}
	delete(s.db.feedback, id)
	return nil
}

type requests struct{ db *DB }

func (s requests) Create(_ context.Context, userID int64, title string) (domain.MovieRequest, error) {
	s.db.lock("requests.create")
	defer s.db.mu.Unlock()
	r := domain.MovieRequest{ID: s.db.nextID(), UserID: userID, Title: title, Status: domain.RequestPending, CreatedAt: s.db.tick()}
	s.db.requests[r.ID] = r
	return r, nil
}

func (s requests) pending() []domain.MovieRequest {
	var out []domain.MovieRequest
	for _, r := range s.db.requests {
		if r.Status == domain.RequestPending {
			r.Username = s.db.users[r.UserID].Username
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s requests) Pending(context.Context) ([]domain.MovieRequest, error) {
	s.db.lock("requests.pending")
	defer s.db.mu.Unlock()
	return s.pending(), nil
}

func (s requests) SetStatus(_ context.Context, id int64, status domain.RequestStatus) (domain.MovieRequest, error) {
	s.db.lock("requests.set_status")
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok {
		return domain.MovieRequest{}, notFound("requests.set_status")
	}
	r.Status = status
	s.db.requests[id] = r
	return r, nil
}

func (s requests) CountPending(context.Context) (int, error) {
	s.db.lock("requests.count_pending")
	defer s.db.mu.Unlock()
	return len(s.pending()), nil
}
