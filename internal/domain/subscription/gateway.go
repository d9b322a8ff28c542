package subscription

import (
	"context"
	"time"
)

// MemberStatus is the live channel membership state reported by the messaging platform.
type MemberStatus string

const (
	MemberStatusMember  MemberStatus = "member"
	MemberStatusLeft    MemberStatus = "left"
	MemberStatusKicked  MemberStatus = "kicked"
	MemberStatusUnknown MemberStatus = "unknown"
)

// IsPresent reports whether the user can still read the channel.
func (s MemberStatus) IsPresent() bool {
	return s != MemberStatusLeft && s != MemberStatusKicked
}

// Invite is a join-request-gated channel link issued for one grant.
type Invite struct {
	Link      string
	ExpiresAt time.Time
}

// MembershipGateway wraps the channel membership primitives of the messaging platform.
// Implementations retry transient failures and classify the platform's errors, so
// "already gone" answers come back as nil rather than as errors.
type MembershipGateway interface {
	CreateInvite(ctx context.Context, channelID, telegramUserID string) (*Invite, error)
	RevokeInvite(ctx context.Context, channelID, link string) error
	// RevokeMembership removes the member without leaving them banned.
	RevokeMembership(ctx context.Context, channelID, telegramUserID string) error
	MembershipStatus(ctx context.Context, channelID, telegramUserID string) (MemberStatus, error)
	ApproveJoin(ctx context.Context, channelID, telegramUserID string) error
	DeclineJoin(ctx context.Context, channelID, telegramUserID string) error
}

// SendResult classifies the outcome of a notification.
type SendResult int

const (
	SendSent SendResult = iota
	// SendPermanentFailure means the recipient can never be reached (blocked bot, deleted account).
	SendPermanentFailure
	// SendTransientFailure means the message may go through on a later attempt.
	SendTransientFailure
)

func (r SendResult) String() string {
	switch r {
	case SendSent:
		return "sent"
	case SendPermanentFailure:
		return "permanent_failure"
	case SendTransientFailure:
		return "transient_failure"
	}
	return "unknown"
}

// Settled reports whether the notification flag may be set: either the message went
// out or the recipient will never be reachable.
func (r SendResult) Settled() bool {
	return r == SendSent || r == SendPermanentFailure
}

// Action is an optional call-to-action attached to a notification.
type Action struct {
	Text    string
	Payload string
	URL     string
}

// Notifier delivers user-facing messages.
type Notifier interface {
	Send(ctx context.Context, telegramUserID, text string, actions ...Action) SendResult
}
