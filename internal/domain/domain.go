// Package domain holds the movie catalogue entities and the storage contracts
// the bot handlers depend on.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

// Role is the stored authority level of a user.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Privileged reports whether the role bypasses the subscription gate and may
// open the admin panel.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// RequestStatus tracks a movie request through its lifecycle.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestFulfilled RequestStatus = "FULFILLED"
	RequestRejected  RequestStatus = "REJECTED"
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	FirstName      string    `db:"first_name" json:"first_name"`
	Role           Role      `db:"role" json:"role"`
	ReferralSource string    `db:"referral_source" json:"referral_source"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Profile is what the platform tells us about a user on every /start.
// ReferralSource is recorded only when the user is first created.
type Profile struct {
	ID             int64
	Username       string
	FirstName      string
	ReferralSource string
}

type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Movie struct {
	ID         int64     `db:"id" json:"id"`
	Code       int64     `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	FileID     string    `db:"file_id" json:"file_id"`
	CategoryID *int64    `db:"category_id" json:"category_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// NewMovie carries the fields collected by the upload conversation.
type NewMovie struct {
	Code       int64
	Title      string
	FileID     string
	CategoryID *int64
}

// Channel is a chat users must join before using the bot.
type Channel struct {
	ID         int64     `db:"id" json:"id"`
	ChannelID  int64     `db:"channel_id" json:"channel_id"`
	Title      string    `db:"title" json:"title"`
	InviteLink string    `db:"invite_link" json:"invite_link"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ChannelPatch updates the non-nil fields only.
type ChannelPatch struct {
	Title      *string
	InviteLink *string
}

type Feedback struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	Resolved  bool      `db:"resolved"`
	CreatedAt time.Time `db:"created_at"`

	// Username and FirstName come from the author's user row.
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
}

type MovieRequest struct {
	ID        int64         `db:"id"`
	UserID    int64         `db:"user_id"`
	Title     string        `db:"title"`
	Status    RequestStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	Username  string        `db:"username"`
}

type UserStore interface {
	Get(ctx context.Context, id int64) (User, error)
	Upsert(ctx context.Context, p Profile) (User, error)
	SetRole(ctx context.Context, id int64, role Role) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]User, error)
	// ListAdmins pages through ADMIN and SUPERADMIN users, newest first.
	ListAdmins(ctx context.Context, offset, limit int) ([]User, error)
	CountAdmins(ctx context.Context) (int, error)
}

type MovieStore interface {
	ByCode(ctx context.Context, code int64) (Movie, error)
	ByID(ctx context.Context, id int64) (Movie, error)
	ByCategory(ctx context.Context, categoryID int64) ([]Movie, error)
	SearchTitle(ctx context.Context, query string, limit int) ([]Movie, error)
	// Random returns ErrNotFound when the catalogue is empty.
	Random(ctx context.Context) (Movie, error)
	// Top orders movies by view count.
	Top(ctx context.Context, limit int) ([]Movie, error)
	// Create returns ErrConflict when the code is taken.
	Create(ctx context.Context, m NewMovie) (Movie, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	Delete(ctx context.Context, id int64) error
	// AddView returns ErrConflict when the user already watched the movie.
	AddView(ctx context.Context, userID, movieID int64) error
	Rate(ctx context.Context, userID, movieID int64, score int) error
	// AverageRating is zero for a movie nobody rated.
	AverageRating(ctx context.Context, movieID int64) (float64, error)
	Count(ctx context.Context) (int, error)
	CountViews(ctx context.Context) (int, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]Category, error)
	Add(ctx context.Context, name string) (Category, error)
	Delete(ctx context.Context, id int64) error
}

type ChannelStore interface {
	List(ctx context.Context) ([]Channel, error)
	ByID(ctx context.Context, id int64) (Channel, error)
	// Add inserts or refreshes the channel keyed by its platform id.
	Add(ctx context.Context, channelID int64, title, inviteLink string) (Channel, error)
	Update(ctx context.Context, id int64, patch ChannelPatch) error
	Delete(ctx context.Context, id int64) error
}

type FeedbackStore interface {
	Create(ctx context.Context, userID int64, message string) (Feedback, error)
	// Unresolved returns the newest unresolved entries first.
	Unresolved(ctx context.Context, limit int) ([]Feedback, error)
	Resolve(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type RequestStore interface {
	Create(ctx context.Context, userID int64, title string) (MovieRequest, error)
	Pending(ctx context.Context) ([]MovieRequest, error)
	SetStatus(ctx context.Context, id int64, status RequestStatus) (MovieRequest, error)
	CountPending(ctx context.Context) (int, error)
}

// Services bundles every store the handlers use.
type Services struct {
	Users      UserStore
	Movies     MovieStore
	Categories CategoryStore
	Channels   ChannelStore
	Feedback   FeedbackStore
	Requests   RequestStore
}
