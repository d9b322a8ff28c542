package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// Join rejection reasons.
const (
	JoinReasonNoLink       = "no invite link"
	JoinReasonUnknownLink  = "unknown invite link"
	JoinReasonNotCurrent   = "subscription is not current"
	JoinReasonForeignOwner = "link belongs to another user"
)

// JoinDecision is the verdict on a channel join request.
type JoinDecision struct {
	Valid bool
	// Reason explains a rejection for the logs.
	Reason string
	// Subscription owns the link, nil when no row does.
	Subscription *subscription.Subscription
}

// ValidateJoinUseCase decides join requests purely from stored state: a link is honoured
// while the row owning it is current and belongs to the claimant.
type ValidateJoinUseCase struct {
	userRepo         subscription.UserRepository
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
	now              func() time.Time
}

func NewValidateJoinUseCase(
	userRepo subscription.UserRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	logger logger.Interface,
) *ValidateJoinUseCase {
	return &ValidateJoinUseCase{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ValidateJoinUseCase) Execute(ctx context.Context, link, claimantTelegramID string) (*JoinDecision, error) {
	if link == "" {
		return &JoinDecision{Reason: JoinReasonNoLink}, nil
	}

	sub, err := uc.subscriptionRepo.GetByInviteLink(ctx, link)
	if err != nil {
		uc.logger.Errorw("failed to look up invite link", "error", err)
		return nil, fmt.Errorf("failed to get subscription by invite link: %w", err)
	}
	if sub == nil {
		return &JoinDecision{Reason: JoinReasonUnknownLink}, nil
	}

	decision := &JoinDecision{Subscription: sub}
	if !sub.IsCurrent(uc.now()) {
		decision.Reason = JoinReasonNotCurrent
		return decision, nil
	}

	owner, err := uc.userRepo.GetByID(ctx, sub.UserID())
	if err != nil {
		uc.logger.Errorw("failed to get link owner", "error", err, "user_id", sub.UserID())
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if owner == nil || owner.TelegramUserID() != claimantTelegramID {
		decision.Reason = JoinReasonForeignOwner
		return decision, nil
	}

	decision.Valid = true
	return decision, nil
}
