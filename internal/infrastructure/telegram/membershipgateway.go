package telegram

import (
	"context"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
	"github.com/channelgate/channelgate/internal/shared/constants"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

const defaultInviteTTL = 7 * 24 * time.Hour

// MembershipGateway drives channel membership through the Bot API.
type MembershipGateway struct {
	bot       *BotService
	policy    RetryPolicy
	inviteTTL time.Duration
	logger    logger.Interface
	now       func() time.Time
}

var _ subscription.MembershipGateway = (*MembershipGateway)(nil)

func NewMembershipGateway(bot *BotService, cfg sharedConfig.GatewayConfig, log logger.Interface) *MembershipGateway {
	ttl := cfg.InviteTTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	return &MembershipGateway{
		bot:       bot,
		policy:    NewRetryPolicy(cfg),
		inviteTTL: ttl,
		logger:    log.Named("membership_gateway"),
		now:       time.Now,
	}
}

// CreateInvite issues a single-purpose join-request link named after the recipient.
func (g *MembershipGateway) CreateInvite(ctx context.Context, channelID, telegramUserID string) (*subscription.Invite, error) {
	expiresAt := g.now().Add(g.inviteTTL).UTC()
	name := constants.InviteNamePrefix + telegramUserID

	link, err := withRetry(ctx, g.policy, g.logger, "create_invite", func(ctx context.Context) (*ChatInviteLink, error) {
		return g.bot.CreateChatInviteLink(ctx, channelID, name, expiresAt, true)
	})
	g.record("create_invite", err)
	if err != nil {
		return nil, g.gatewayError("failed to create invite link", err)
	}

	return &subscription.Invite{Link: link.InviteLink, ExpiresAt: expiresAt}, nil
}

// RevokeInvite revokes link. An expired or unknown link counts as revoked.
func (g *MembershipGateway) RevokeInvite(ctx context.Context, channelID, link string) error {
	_, err := withRetry(ctx, g.policy, g.logger, "revoke_invite", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.bot.RevokeChatInviteLink(ctx, channelID, link)
	})
	if err != nil && IsInviteGone(err) {
		g.logger.Debugw("invite link already gone", "channel_id", channelID, "error", err)
		err = nil
	}
	g.record("revoke_invite", err)
	if err != nil {
		return g.gatewayError("failed to revoke invite link", err)
	}
	return nil
}

// RevokeMembership removes the user from the channel without leaving a ban behind,
// so a future grant can let them back in. A user already gone counts as removed.
func (g *MembershipGateway) RevokeMembership(ctx context.Context, channelID, telegramUserID string) error {
	userID, err := ParseUserID(telegramUserID)
	if err != nil {
		g.record("revoke_membership", err)
		return g.gatewayError("cannot revoke membership", err)
	}

	_, err = withRetry(ctx, g.policy, g.logger, "ban_member", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.bot.BanChatMember(ctx, channelID, userID)
	})
	if err != nil {
		if IsNotParticipant(err) {
			g.record("revoke_membership", nil)
			return nil
		}
		g.record("revoke_membership", err)
		return g.gatewayError("failed to remove member", err)
	}

	_, err = withRetry(ctx, g.policy, g.logger, "unban_member", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.bot.UnbanChatMember(ctx, channelID, userID, true)
	})
	if err != nil && IsNotParticipant(err) {
		err = nil
	}
	g.record("revoke_membership", err)
	if err != nil {
		// The member is out; the lingering ban only blocks re-entry until the next grant succeeds.
		g.logger.Warnw("member removed but unban failed",
			"channel_id", channelID,
			"telegram_user_id", telegramUserID,
			"error", err,
		)
		return g.gatewayError("failed to lift ban after removal", err)
	}
	return nil
}

// MembershipStatus reports whether the user currently sits in the channel.
func (g *MembershipGateway) MembershipStatus(ctx context.Context, channelID, telegramUserID string) (subscription.MemberStatus, error) {
	userID, err := ParseUserID(telegramUserID)
	if err != nil {
		g.record("membership_status", err)
		return subscription.MemberStatusUnknown, g.gatewayError("cannot query membership", err)
	}

	member, err := withRetry(ctx, g.policy, g.logger, "membership_status", func(ctx context.Context) (*ChatMember, error) {
		return g.bot.GetChatMember(ctx, channelID, userID)
	})
	if err != nil {
		if IsNotParticipant(err) {
			g.record("membership_status", nil)
			return subscription.MemberStatusLeft, nil
		}
		g.record("membership_status", err)
		return subscription.MemberStatusUnknown, g.gatewayError("failed to query membership", err)
	}
	g.record("membership_status", nil)

	return memberStatusOf(member.Status), nil
}

func memberStatusOf(status string) subscription.MemberStatus {
	switch status {
	case "creator", "administrator", "member", "restricted":
		return subscription.MemberStatusMember
	case "left":
		return subscription.MemberStatusLeft
	case "kicked":
		return subscription.MemberStatusKicked
	}
	return subscription.MemberStatusUnknown
}

func (g *MembershipGateway) ApproveJoin(ctx context.Context, channelID, telegramUserID string) error {
	return g.answerJoin(ctx, "approve_join", channelID, telegramUserID, g.bot.ApproveChatJoinRequest)
}

func (g *MembershipGateway) DeclineJoin(ctx context.Context, channelID, telegramUserID string) error {
	return g.answerJoin(ctx, "decline_join", channelID, telegramUserID, g.bot.DeclineChatJoinRequest)
}

func (g *MembershipGateway) answerJoin(ctx context.Context, op, channelID, telegramUserID string, fn func(context.Context, string, int64) error) error {
	userID, err := ParseUserID(telegramUserID)
	if err == nil {
		_, err = withRetry(ctx, g.policy, g.logger, op, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx, channelID, userID)
		})
	}
	g.record(op, err)
	if err != nil {
		return g.gatewayError("failed to answer join request", err)
	}
	return nil
}

func (g *MembershipGateway) record(op string, err error) {
	metrics.GatewayCall(op, ClassifyError(err).String())
}

func (g *MembershipGateway) gatewayError(msg string, err error) error {
	if ClassifyError(err) == OutcomePermanent {
		return apperrors.NewGatewayPermanentError(msg, err)
	}
	return apperrors.NewGatewayTransientError(msg, err)
}
