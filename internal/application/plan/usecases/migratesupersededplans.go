package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type MigrateSupersededPlansCommand struct {
	// CatalogPlanIDs are the plans that stay on sale.
	CatalogPlanIDs []uint
	TargetPlanID   uint
	// TargetPlanName resolves the target to the newest plan of that name when TargetPlanID is zero.
	TargetPlanName string
}

// MigrateSupersededPlansUseCase moves every active grant on a retired plan to a successor.
// Dates and the active flag are preserved so nobody loses access.
type MigrateSupersededPlansUseCase struct {
	txMgr            *db.TransactionManager
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
	now              func() time.Time
}

func NewMigrateSupersededPlansUseCase(
	txMgr *db.TransactionManager,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	logger logger.Interface,
) *MigrateSupersededPlansUseCase {
	return &MigrateSupersededPlansUseCase{
		txMgr:            txMgr,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (uc *MigrateSupersededPlansUseCase) Execute(ctx context.Context, cmd MigrateSupersededPlansCommand) (int64, error) {
	if len(cmd.CatalogPlanIDs) == 0 {
		return 0, apperrors.NewValidationError("catalog plan ids are required")
	}

	var moved int64
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		target, err := uc.resolveTarget(txCtx, cmd)
		if err != nil {
			return err
		}

		moved, err = uc.subscriptionRepo.ReassignPlans(txCtx, cmd.CatalogPlanIDs, target.ID(), uc.now())
		if err != nil {
			return fmt.Errorf("failed to reassign subscriptions: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to migrate superseded plans", "error", err, "target_plan_id", cmd.TargetPlanID)
		return 0, err
	}

	uc.logger.Infow("superseded plans migrated", "subscriptions_moved", moved)
	return moved, nil
}

func (uc *MigrateSupersededPlansUseCase) resolveTarget(ctx context.Context, cmd MigrateSupersededPlansCommand) (*subscription.Plan, error) {
	var (
		plan *subscription.Plan
		err  error
	)
	switch {
	case cmd.TargetPlanID != 0:
		plan, err = uc.planRepo.GetByID(ctx, cmd.TargetPlanID)
	case cmd.TargetPlanName != "":
		plan, err = uc.planRepo.FindLatestByName(ctx, cmd.TargetPlanName)
	default:
		return nil, apperrors.NewValidationError("migration target plan is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewValidationError("migration target plan not found",
			fmt.Sprintf("id=%d name=%q", cmd.TargetPlanID, cmd.TargetPlanName))
	}
	return plan, nil
}

func (uc *MigrateSupersededPlansUseCase) SetClock(now func() time.Time) { uc.now = now }
