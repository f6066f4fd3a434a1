package bot

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/moviebot/core/telegram/sender"
	"github.com/m3rciful/moviebot/internal/domain"
	"github.com/m3rciful/moviebot/internal/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestAuthorityCachesRoles(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	users := db.Services().Users
	_, err := users.Upsert(ctx, domain.Profile{ID: 5})
	require.NoError(t, err)

	auth, err := NewAuthority(users, []int64{1}, time.Minute)
	require.NoError(t, err)
	defer auth.Close()

	role, err := auth.Role(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	require.NoError(t, users.SetRole(ctx, 5, domain.RoleAdmin))
	role, err = auth.Role(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role, "served from cache")
	assert.Equal(t, 1, db.CallCount("users.get"))

	auth.Forget(5)
	ok, err := auth.Privileged(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, db.CallCount("users.get"))
}

func TestAuthorityUnknownUserIsPlainUser(t *testing.T) {
	auth, err := NewAuthority(memstore.New().Services().Users, []int64{1}, 0)
	require.NoError(t, err)
	defer auth.Close()

	role, err := auth.Role(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	ok, err := auth.Privileged(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok, "configured super admins need no stored row")
	assert.Equal(t, []int64{1}, auth.SuperAdmins())
}

type recordingPlatform struct {
	mu   sync.Mutex
	sent map[string]any
	done chan struct{}
}

func (p *recordingPlatform) ChatByID(int64) (*tele.Chat, error) { return &tele.Chat{}, nil }

func (p *recordingPlatform) Send(to tele.Recipient, what any, _ ...any) (*tele.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[to.Recipient()] = what
	p.done <- struct{}{}
	return &tele.Message{}, nil
}

func TestNotifierDeliversThroughDispatcher(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	defer d.Close()
	p := &recordingPlatform{sent: map[string]any{}, done: make(chan struct{}, 4)}
	n := NewNotifier(d, p, func() []int64 { return []int64{1, 2} })

	n.NotifyAdmins(context.Background(), "new feedback")
	for i := 0; i < 2; i++ {
		select {
		case <-p.done:
		case <-time.After(2 * time.Second):
			t.Fatal("notification not delivered")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, map[string]any{"1": "new feedback", "2": "new feedback"}, p.sent)
}

func TestNilNotifierIsSilent(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), 1, "x")
		n.NotifyAdmins(context.Background(), "x")
	})
}

func TestUsersCSV(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := usersCSV([]domain.User{
		{ID: 5, Username: "ann", FirstName: "Ann, Jr.", Role: domain.RoleAdmin, CreatedAt: created},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ID", "Username", "FirstName", "Role", "CreatedAt"}, rows[0])
	assert.Equal(t, []string{"5", "ann", "Ann, Jr.", "ADMIN", "2024-03-01T12:00:00Z"}, rows[1])
}
