package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeRoles map[int64]bool

func (f fakeRoles) Privileged(_ context.Context, id int64) (bool, error) {
	if id == 666 {
		return false, errors.New("db down")
	}
	return f[id], nil
}

type fakeChannels []Channel

func (f fakeChannels) RequiredChannels(context.Context) ([]Channel, error) { return f, nil }

// fakeMembers maps channel id -> user id -> status; a missing channel errors.
type fakeMembers struct {
	status map[int64]map[int64]tele.MemberStatus
	calls  int
}

func (f *fakeMembers) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	f.calls++
	var chatID int64
	switch v := chat.(type) {
	case tele.ChatID:
		chatID = int64(v)
	}
	users, ok := f.status[chatID]
	if !ok {
		return nil, errors.New("telegram: Bad Request: chat not found (400)")
	}
	uid := user.(*tele.User).ID
	st, ok := users[uid]
	if !ok {
		st = tele.Left
	}
	return &tele.ChatMember{Role: st, User: &tele.User{ID: uid}}, nil
}

var (
	news   = Channel{ChatID: -1001, Title: "News", InviteLink: "https://t.me/news"}
	promos = Channel{ChatID: -1002, Title: "Promos", InviteLink: "https://t.me/promos"}
	broken = Channel{ChatID: -1003, Title: "Broken"}
)

func newGate(members *fakeMembers) *Gate {
	return New(Options{
		AllowList: []int64{1},
		Roles:     fakeRoles{2: true},
		Channels:  fakeChannels{news, promos, broken},
		Members:   members,
	})
}

func TestEvaluateDeniesUnsubscribed(t *testing.T) {
	members := &fakeMembers{status: map[int64]map[int64]tele.MemberStatus{
		news.ChatID:   {10: tele.Member, 11: tele.Kicked},
		promos.ChatID: {10: tele.Administrator},
	}}
	g := newGate(members)

	for _, id := range []int64{11, 12} {
		d, err := g.Evaluate(context.Background(), id, false)
		require.NoError(t, err)
		assert.Equal(t, Challenge, d.Verdict, "user %d", id)
		assert.Equal(t, ReasonNotSubscribed, d.Reason)
	}

	d, err := g.Evaluate(context.Background(), 11, false)
	require.NoError(t, err)
	assert.Equal(t, []Channel{news, promos}, d.Missing)
}

func TestEvaluateAllowsSubscribedAndFailsOpenPerChannel(t *testing.T) {
	members := &fakeMembers{status: map[int64]map[int64]tele.MemberStatus{
		news.ChatID:   {10: tele.Member},
		promos.ChatID: {10: tele.Creator},
	}}
	d, err := newGate(members).Evaluate(context.Background(), 10, false)
	require.NoError(t, err)
	assert.Equal(t, Allow, d.Verdict)
	assert.Equal(t, ReasonSubscribed, d.Reason)
	assert.Equal(t, 3, members.calls, "lookups run for every channel")
}

func TestEvaluatePrivilegedBypass(t *testing.T) {
	members := &fakeMembers{status: map[int64]map[int64]tele.MemberStatus{
		news.ChatID: {},
	}}
	g := newGate(members)

	d, err := g.Evaluate(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, Decision{Verdict: Allow, Reason: ReasonAllowList}, d)

	d, err = g.Evaluate(context.Background(), 2, true)
	require.NoError(t, err)
	assert.Equal(t, Decision{Verdict: Allow, Reason: ReasonRole}, d)

	assert.Zero(t, members.calls)
}

func TestEvaluateNoSender(t *testing.T) {
	d, err := newGate(&fakeMembers{}).Evaluate(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoSender, d.Reason)
}

func TestEvaluateConfirm(t *testing.T) {
	members := &fakeMembers{status: map[int64]map[int64]tele.MemberStatus{
		news.ChatID:   {10: tele.Member},
		promos.ChatID: {10: tele.Member},
	}}
	g := newGate(members)

	d, err := g.Evaluate(context.Background(), 10, true)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, d.Verdict)

	d, err = g.Evaluate(context.Background(), 11, true)
	require.NoError(t, err)
	assert.Equal(t, Challenge, d.Verdict)
}

func TestEvaluateRoleErrorPropagates(t *testing.T) {
	_, err := newGate(&fakeMembers{}).Evaluate(context.Background(), 666, false)
	assert.Error(t, err)
}

func TestEvaluateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newGate(&fakeMembers{}).Evaluate(ctx, 10, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromptMarkup(t *testing.T) {
	rm := PromptMarkup([]Channel{news, broken}, "I joined", "check_subscription")
	require.Len(t, rm.InlineKeyboard, 2)
	assert.Equal(t, "https://t.me/news", rm.InlineKeyboard[0][0].URL)
	assert.Equal(t, "check_subscription", rm.InlineKeyboard[1][0].Data)
}
