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

// SyncCatalogResult reports what a sync changed.
type SyncCatalogResult struct {
	// PlanIDs holds the ids of the catalog plans in catalog order.
	PlanIDs []uint
	Created int
	Updated int
	// Retired counts plans withdrawn from sale because the catalog no longer lists them.
	Retired int
}

// SyncCatalogUseCase makes the stored plans match the catalog. Plans are matched by
// (name, price, duration_days); description and channel are updated in place because they
// are not part of a plan's identity. Plans missing from the catalog are retired: existing
// grants keep them, but they are no longer listed or sold. A plan that returns to the
// catalog is reinstated.
type SyncCatalogUseCase struct {
	txMgr    *db.TransactionManager
	planRepo subscription.PlanRepository
	logger   logger.Interface
	now      func() time.Time
}

func NewSyncCatalogUseCase(txMgr *db.TransactionManager, planRepo subscription.PlanRepository, logger logger.Interface) *SyncCatalogUseCase {
	return &SyncCatalogUseCase{
		txMgr:    txMgr,
		planRepo: planRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *SyncCatalogUseCase) SetClock(now func() time.Time) { uc.now = now }

func (uc *SyncCatalogUseCase) Execute(ctx context.Context, catalog *Catalog) (*SyncCatalogResult, error) {
	if catalog == nil || len(catalog.Plans) == 0 {
		return nil, apperrors.NewValidationError("catalog is empty")
	}

	result := &SyncCatalogResult{}
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		result.PlanIDs = result.PlanIDs[:0]
		result.Created, result.Updated, result.Retired = 0, 0, 0

		for _, def := range catalog.Plans {
			plan, err := uc.planRepo.FindByIdentity(txCtx, def.Name, def.Price, def.DurationDays)
			if err != nil {
				return fmt.Errorf("failed to find plan %q: %w", def.Name, err)
			}

			if plan == nil {
				plan, err = subscription.NewPlan(def.Name, def.Description, def.Price, def.DurationDays, def.ChannelID)
				if err != nil {
					return apperrors.NewValidationError("invalid catalog plan", err.Error())
				}
				if err := uc.planRepo.Create(txCtx, plan); err != nil {
					return fmt.Errorf("failed to create plan %q: %w", def.Name, err)
				}
				result.Created++
			} else if plan.Description() != def.Description || plan.ChannelID() != def.ChannelID || plan.IsRetired() {
				plan.SetDescription(def.Description)
				plan.SetChannel(def.ChannelID)
				plan.Reinstate()
				if err := uc.planRepo.Update(txCtx, plan); err != nil {
					return fmt.Errorf("failed to update plan %q: %w", def.Name, err)
				}
				result.Updated++
			}
			result.PlanIDs = append(result.PlanIDs, plan.ID())
		}

		retired, err := uc.retireMissing(txCtx, result.PlanIDs)
		if err != nil {
			return err
		}
		result.Retired = retired
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to sync plan catalog", "error", err)
		return nil, err
	}

	uc.logger.Infow("plan catalog synced",
		"plans", len(result.PlanIDs),
		"created", result.Created,
		"updated", result.Updated,
		"retired", result.Retired,
	)
	return result, nil
}

func (uc *SyncCatalogUseCase) retireMissing(ctx context.Context, keep []uint) (int, error) {
	current, err := uc.planRepo.ListCurrent(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list plans: %w", err)
	}

	inCatalog := make(map[uint]struct{}, len(keep))
	for _, id := range keep {
		inCatalog[id] = struct{}{}
	}

	retired := 0
	for _, plan := range current {
		if _, ok := inCatalog[plan.ID()]; ok {
			continue
		}
		if !plan.Retire(uc.now()) {
			continue
		}
		if err := uc.planRepo.Update(ctx, plan); err != nil {
			return 0, fmt.Errorf("failed to retire plan %q: %w", plan.Name(), err)
		}
		uc.logger.Infow("plan retired", "plan_id", plan.ID(), "name", plan.Name())
		retired++
	}
	return retired, nil
}
