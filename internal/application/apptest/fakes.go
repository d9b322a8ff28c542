package apptest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
)

// GatewayCall is one recorded membership operation.
type GatewayCall struct {
	Op      string
	Channel string
	Target  string
}

// FakeGateway records calls and answers from per-operation hooks.
// Unset hooks succeed.
type FakeGateway struct {
	mu    sync.Mutex
	calls []GatewayCall
	seq   int

	CreateInviteErr     error
	RevokeInviteErr     error
	RevokeMembershipErr error
	ApproveErr          error
	DeclineErr          error
	// Status answers MembershipStatus; defaults to member.
	Status    map[string]subscription.MemberStatus
	StatusErr error
}

var _ subscription.MembershipGateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Status: map[string]subscription.MemberStatus{}}
}

func (g *FakeGateway) record(op, channel, target string) {
	g.calls = append(g.calls, GatewayCall{Op: op, Channel: channel, Target: target})
}

func (g *FakeGateway) CreateInvite(_ context.Context, channelID, telegramUserID string) (*subscription.Invite, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("create_invite", channelID, telegramUserID)
	if g.CreateInviteErr != nil {
		return nil, g.CreateInviteErr
	}
	g.seq++
	return &subscription.Invite{
		Link:      fmt.Sprintf("https://t.me/+%s-%d", telegramUserID, g.seq),
		ExpiresAt: T0.Add(7 * 24 * time.Hour),
	}, nil
}

func (g *FakeGateway) RevokeInvite(_ context.Context, channelID, link string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("revoke_invite", channelID, link)
	return g.RevokeInviteErr
}

func (g *FakeGateway) RevokeMembership(_ context.Context, channelID, telegramUserID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("revoke_membership", channelID, telegramUserID)
	return g.RevokeMembershipErr
}

func (g *FakeGateway) MembershipStatus(_ context.Context, channelID, telegramUserID string) (subscription.MemberStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("membership_status", channelID, telegramUserID)
	if g.StatusErr != nil {
		return subscription.MemberStatusUnknown, g.StatusErr
	}
	if st, ok := g.Status[telegramUserID]; ok {
		return st, nil
	}
	return subscription.MemberStatusMember, nil
}

func (g *FakeGateway) ApproveJoin(_ context.Context, channelID, telegramUserID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("approve_join", channelID, telegramUserID)
	return g.ApproveErr
}

func (g *FakeGateway) DeclineJoin(_ context.Context, channelID, telegramUserID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("decline_join", channelID, telegramUserID)
	return g.DeclineErr
}

// Calls returns the recorded calls for op, or all calls when op is empty.
func (g *FakeGateway) Calls(op string) []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []GatewayCall
	for _, c := range g.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *FakeGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

// SentMessage is one recorded notification.
type SentMessage struct {
	To      string
	Text    string
	Actions []subscription.Action
}

// FakeNotifier records messages. Results maps a recipient to a forced outcome.
type FakeNotifier struct {
	mu      sync.Mutex
	sent    []SentMessage
	Results map[string]subscription.SendResult
}

var _ subscription.Notifier = (*FakeNotifier)(nil)

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{Results: map[string]subscription.SendResult{}}
}

func (n *FakeNotifier) Send(_ context.Context, telegramUserID, text string, actions ...subscription.Action) subscription.SendResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentMessage{To: telegramUserID, Text: text, Actions: actions})
	if r, ok := n.Results[telegramUserID]; ok {
		return r
	}
	return subscription.SendSent
}

// Sent returns messages addressed to recipient, or all messages when recipient is empty.
func (n *FakeNotifier) Sent(recipient string) []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []SentMessage
	for _, m := range n.sent {
		if recipient == "" || m.To == recipient {
			out = append(out, m)
		}
	}
	return out
}
