// Package access decides, per update, whether a sender may reach the router:
// privileged identities pass, everyone else must be subscribed to every
// required channel.
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Verdict is the outcome of Evaluate.
type Verdict int

const (
	// Allow lets the update through to the router.
	Allow Verdict = iota
	// Challenge asks the sender to subscribe first.
	Challenge
	// Confirmed consumes a successful subscription check; the router is not invoked.
	Confirmed
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Challenge:
		return "challenge"
	case Confirmed:
		return "confirmed"
	}
	return "unknown"
}

// Reasons attached to a Decision.
const (
	ReasonNoSender      = "no_sender"
	ReasonAllowList     = "allow_list"
	ReasonRole          = "role"
	ReasonSubscribed    = "subscribed"
	ReasonNotSubscribed = "not_subscribed"
	ReasonConfirmed     = "confirmed"
)

// Channel is one channel the sender must be a member of.
type Channel struct {
	ChatID     int64
	Title      string
	InviteLink string
}

// Decision is computed per update and never stored.
type Decision struct {
	Verdict Verdict
	Reason  string
	// Missing lists the channels the sender has not joined, in required order.
	Missing []Channel
}

// RoleChecker reports whether the stored role of userID bypasses the gate.
type RoleChecker interface {
	Privileged(ctx context.Context, userID int64) (bool, error)
}

// ChannelSource returns the required channels in display order.
type ChannelSource interface {
	RequiredChannels(ctx context.Context) ([]Channel, error)
}

// MembershipChecker queries the platform for a chat member; *tele.Bot satisfies it.
type MembershipChecker interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Options configures a Gate.
type Options struct {
	// AllowList holds identities that always pass.
	AllowList []int64
	Roles     RoleChecker
	Channels  ChannelSource
	Members   MembershipChecker
}

// Gate evaluates access. It holds no mutable state and is safe for concurrent use.
type Gate struct {
	allow    map[int64]struct{}
	roles    RoleChecker
	channels ChannelSource
	members  MembershipChecker
}

// New builds a Gate. The allow-list is copied.
func New(opts Options) *Gate {
	allow := make(map[int64]struct{}, len(opts.AllowList))
	for _, id := range opts.AllowList {
		allow[id] = struct{}{}
	}
	return &Gate{
		allow:    allow,
		roles:    opts.Roles,
		channels: opts.Channels,
		members:  opts.Members,
	}
}

// Evaluate decides for userID. confirm marks the explicit "check subscription"
// interaction. Role and channel lookups that fail return an error; a failed
// membership lookup for one channel does not count against the user.
func (g *Gate) Evaluate(ctx context.Context, userID int64, confirm bool) (Decision, error) {
	if userID == 0 {
		return Decision{Verdict: Allow, Reason: ReasonNoSender}, nil
	}
	if _, ok := g.allow[userID]; ok {
		return Decision{Verdict: Allow, Reason: ReasonAllowList}, nil
	}
	if g.roles != nil {
		ok, err := g.roles.Privileged(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("access: role lookup: %w", err)
		}
		if ok {
			return Decision{Verdict: Allow, Reason: ReasonRole}, nil
		}
	}

	var required []Channel
	if g.channels != nil {
		var err error
		required, err = g.channels.RequiredChannels(ctx)
		if err != nil {
			return Decision{}, fmt.Errorf("access: required channels: %w", err)
		}
	}

	missing, err := g.missing(ctx, userID, required)
	if err != nil {
		return Decision{}, err
	}
	switch {
	case len(missing) > 0:
		return Decision{Verdict: Challenge, Reason: ReasonNotSubscribed, Missing: missing}, nil
	case confirm:
		return Decision{Verdict: Confirmed, Reason: ReasonConfirmed}, nil
	}
	return Decision{Verdict: Allow, Reason: ReasonSubscribed}, nil
}

func (g *Gate) missing(ctx context.Context, userID int64, required []Channel) ([]Channel, error) {
	if g.members == nil || len(required) == 0 {
		return nil, nil
	}
	user := &tele.User{ID: userID}
	var out []Channel
	for _, ch := range required {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("access: membership: %w", err)
		}
		member, err := g.members.ChatMemberOf(tele.ChatID(ch.ChatID), user)
		if err != nil {
			logger.Warn(ctx, "tg.gate", "gate.membership_lookup_failed",
				slog.Int64("channel_id", ch.ChatID),
				slog.Int64("user_id", userID),
				slog.String("error", netutil.Redact(err)),
				slog.String("error_kind", netutil.Classify(err)),
			)
			continue
		}
		if member == nil || member.Role == tele.Left || member.Role == tele.Kicked {
			out = append(out, ch)
		}
	}
	return out, nil
}
