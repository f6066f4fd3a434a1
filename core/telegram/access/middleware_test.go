package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context

	upd       tele.Update
	store     map[string]any
	sent      []any
	responses []*tele.CallbackResponse
	answers   []*tele.QueryResponse
	deleted   int
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Query() *tele.Query { return f.upd.Query }
func (f *fakeContext) Chat() *tele.Chat { return nil }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.upd.Callback != nil:
		return f.upd.Callback.Sender
	case f.upd.Query != nil:
		return f.upd.Query.Sender
	case f.upd.Message != nil:
		return f.upd.Message.Sender
	}
	return nil
}
func (f *fakeContext) Message() *tele.Message {
	if f.upd.Callback != nil {
		return f.upd.Callback.Message
	}
	return f.upd.Message
}
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}
func (f *fakeContext) Respond(r ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, r...)
	return nil
}
func (f *fakeContext) Answer(r *tele.QueryResponse) error {
	f.answers = append(f.answers, r)
	return nil
}
func (f *fakeContext) Delete() error {
	f.deleted++
	return nil
}

func messageFrom(id int64, text string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{ID: 1, Message: &tele.Message{
		Text: text, Sender: &tele.User{ID: id},
	}}}
}

func callbackFrom(id int64, data string) *fakeContext {
	return &fakeContext{store: map[string]any{}, upd: tele.Update{ID: 2, Callback: &tele.Callback{
		Data: data, Sender: &tele.User{ID: id}, Message: &tele.Message{ID: 9},
	}}}
}

var testPrompt = Prompt{
	MustSubscribe:    "subscribe please",
	SubscribeFirst:   "subscribe first",
	NotSubscribedAll: "not yet",
	CheckButton:      "I joined",
	AccessGranted:    "granted",
	WelcomeBack:      "welcome",
}

func gatedHandler(members *fakeMembers, calls *int) tele.HandlerFunc {
	g := New(Options{Channels: fakeChannels{news}, Members: members})
	return g.Middleware(MiddlewareOptions{Prompt: testPrompt, ConfirmData: "check_subscription"})(
		func(tele.Context) error { *calls++; return nil },
	)
}

func subscribed(ids ...int64) *fakeMembers {
	users := map[int64]tele.MemberStatus{}
	for _, id := range ids {
		users[id] = tele.Member
	}
	return &fakeMembers{status: map[int64]map[int64]tele.MemberStatus{news.ChatID: users}}
}

func TestMiddlewareChallengesMessage(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(), &calls)

	c := messageFrom(5, "/start")
	require.NoError(t, h(c))
	assert.Zero(t, calls, "router must not run for unsubscribed senders")
	assert.Equal(t, []any{"subscribe please"}, c.sent)
}

func TestMiddlewareChallengesCallback(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(), &calls)

	c := callbackFrom(5, "trending")
	require.NoError(t, h(c))
	assert.Zero(t, calls)
	require.Len(t, c.responses, 1)
	assert.True(t, c.responses[0].ShowAlert)
	assert.Equal(t, "subscribe first", c.responses[0].Text)
	assert.Equal(t, []any{"subscribe please"}, c.sent)
}

func TestMiddlewareConfirmNotSubscribed(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(), &calls)

	c := callbackFrom(5, "check_subscription")
	require.NoError(t, h(c))
	assert.Zero(t, calls)
	require.Len(t, c.responses, 1)
	assert.Equal(t, "not yet", c.responses[0].Text)
	assert.Empty(t, c.sent)
}

func TestMiddlewareConfirmSubscribed(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(5), &calls)

	c := callbackFrom(5, "check_subscription")
	require.NoError(t, h(c))
	assert.Zero(t, calls, "confirmation is consumed by the gate")
	require.Len(t, c.responses, 1)
	assert.Equal(t, "granted", c.responses[0].Text)
	assert.Equal(t, 1, c.deleted)
	assert.Equal(t, []any{"welcome"}, c.sent)
}

func TestMiddlewareChallengesInlineQuery(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(), &calls)

	c := &fakeContext{store: map[string]any{}, upd: tele.Update{ID: 3, Query: &tele.Query{
		Text: "matrix", Sender: &tele.User{ID: 5},
	}}}
	require.NoError(t, h(c))
	assert.Zero(t, calls)
	require.Len(t, c.answers, 1)
	assert.True(t, c.answers[0].IsPersonal)
	assert.Empty(t, c.answers[0].Results)
}

func TestMiddlewarePassesSubscribed(t *testing.T) {
	var calls int
	h := gatedHandler(subscribed(5), &calls)

	require.NoError(t, h(messageFrom(5, "hello")))
	require.NoError(t, h(callbackFrom(5, "trending")))
	assert.Equal(t, 2, calls)
}

func TestMiddlewareReturnsLookupErrors(t *testing.T) {
	g := New(Options{Roles: fakeRoles{}, Members: subscribed()})
	h := g.Middleware(MiddlewareOptions{Prompt: testPrompt})(func(tele.Context) error { return nil })
	assert.Error(t, h(messageFrom(666, "hi")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{Channels: fakeChannels{news}, Members: subscribed()}).Evaluate(ctx, 5, false)
	assert.Error(t, err)
}
