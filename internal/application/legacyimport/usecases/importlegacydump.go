package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type ImportLegacyDumpCommand struct {
	Volumes []LegacyVolume
	// PlanName selects the catalog plan every imported subscription is bound to; the most
	// recently created plan with that name wins.
	PlanName string
	// DryRun rolls the transaction back after counting.
	DryRun bool
}

// ImportLegacyDumpResult counts what the import did.
type ImportLegacyDumpResult struct {
	PlanID          uint
	UsersCreated    int
	UsersExisting   int
	UsersSkipped    int // rows without a Telegram id
	SubsCreated     int
	SubsDuplicate   int
	SubsOrphaned    int // legacy user not in the same volume
	SubsDeactivated int // imported inactive, the user already held an active grant
}

// ImportLegacyDumpUseCase merges legacy users and subscriptions into the store in a single
// transaction. Users are matched by Telegram id and subscriptions by (user, start, end), so
// a repeated run is a no-op.
type ImportLegacyDumpUseCase struct {
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
	now              func() time.Time
}

func NewImportLegacyDumpUseCase(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	logger logger.Interface,
) *ImportLegacyDumpUseCase {
	return &ImportLegacyDumpUseCase{
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ImportLegacyDumpUseCase) SetClock(now func() time.Time) { uc.now = now }

// errDryRun unwinds the transaction of a dry run.
var errDryRun = errors.New("dry run")

func (uc *ImportLegacyDumpUseCase) Execute(ctx context.Context, cmd ImportLegacyDumpCommand) (*ImportLegacyDumpResult, error) {
	planName := strings.TrimSpace(cmd.PlanName)
	if planName == "" {
		return nil, apperrors.NewValidationError("target plan name is required")
	}

	plan, err := uc.planRepo.FindLatestByName(ctx, planName)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewValidationError(subscription.ErrPlanNotFound.Error(), planName)
	}

	result := &ImportLegacyDumpResult{}
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		*result = ImportLegacyDumpResult{PlanID: plan.ID()}
		for _, vol := range cmd.Volumes {
			if err := uc.importVolume(txCtx, vol, plan.ID(), result); err != nil {
				return fmt.Errorf("volume %s: %w", vol.Label, err)
			}
		}
		if cmd.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		uc.logger.Errorw("legacy import rolled back", "error", err)
		return nil, err
	}

	uc.logger.Infow("legacy import finished",
		"dry_run", cmd.DryRun,
		"plan_id", result.PlanID,
		"users_created", result.UsersCreated,
		"users_existing", result.UsersExisting,
		"subs_created", result.SubsCreated,
		"subs_duplicate", result.SubsDuplicate,
		"subs_orphaned", result.SubsOrphaned,
		"subs_deactivated", result.SubsDeactivated,
	)
	return result, nil
}

func (uc *ImportLegacyDumpUseCase) importVolume(ctx context.Context, vol LegacyVolume, planID uint, result *ImportLegacyDumpResult) error {
	now := uc.now()

	// Legacy id to current user id, scoped to this volume.
	ids := make(map[string]uint, len(vol.Users))
	for _, row := range vol.Users {
		if row.TelegramUserID == "" {
			result.UsersSkipped++
			continue
		}

		user, err := uc.userRepo.GetByTelegramID(ctx, row.TelegramUserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			ids[row.LegacyID] = user.ID()
			result.UsersExisting++
			continue
		}

		createdAt := row.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		user, err = subscription.ImportUser(subscription.ImportedUserParams{
			TelegramUserID:     row.TelegramUserID,
			FirstName:          row.FirstName,
			Active:             row.Active,
			RegistrationNudged: row.RegistrationNudged,
			CreatedAt:          createdAt,
		})
		if err != nil {
			return apperrors.NewValidationError("invalid legacy user", err.Error())
		}
		if err := uc.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", row.TelegramUserID, err)
		}
		ids[row.LegacyID] = user.ID()
		result.UsersCreated++
	}

	for _, row := range vol.Subscriptions {
		userID, ok := ids[row.LegacyUserID]
		if !ok {
			uc.logger.Warnw("legacy subscription without a user skipped", "volume", vol.Label, "legacy_user_id", row.LegacyUserID)
			result.SubsOrphaned++
			continue
		}
		if err := uc.importSubscription(ctx, userID, planID, row, now, result); err != nil {
			return err
		}
	}
	return nil
}

func (uc *ImportLegacyDumpUseCase) importSubscription(ctx context.Context, userID, planID uint, row LegacySubscriptionRow, now time.Time, result *ImportLegacyDumpResult) error {
	existing, err := uc.subscriptionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	hasActive := false
	for _, s := range existing {
		if s.StartDate().Equal(row.StartDate) && s.EndDate().Equal(row.EndDate) {
			result.SubsDuplicate++
			return nil
		}
		hasActive = hasActive || s.IsActive()
	}

	if row.PaymentChargeID != "" {
		owner, err := uc.subscriptionRepo.GetByPaymentChargeID(ctx, row.PaymentChargeID)
		if err != nil {
			return fmt.Errorf("failed to look up payment charge: %w", err)
		}
		if owner != nil {
			result.SubsDuplicate++
			return nil
		}
	}

	// At most one active row per user; the grant already in the store keeps it.
	active := row.Active
	if active && hasActive {
		active = false
		result.SubsDeactivated++
	}

	sub, err := subscription.ImportSubscription(subscription.ImportedSubscriptionParams{
		UserID:              userID,
		PlanID:              planID,
		StartDate:           row.StartDate,
		EndDate:             row.EndDate,
		Active:              active,
		InviteLink:          row.InviteLink,
		ReminderSent:        row.ReminderSent,
		LastDayReminderSent: row.LastDayReminderSent,
		ExpiredReminderSent: row.ExpiredReminderSent,
		PaymentChargeID:     row.PaymentChargeID,
	}, now)
	if err != nil {
		return apperrors.NewValidationError("invalid legacy subscription", err.Error())
	}
	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	result.SubsCreated++
	return nil
}
