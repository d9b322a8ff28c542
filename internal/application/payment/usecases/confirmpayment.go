package usecases

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/channelgate/channelgate/internal/application/subscription/dto"
	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/cache"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/goroutine"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// DefaultPaymentLockTTL bounds how long one delivery may hold a charge.
const DefaultPaymentLockTTL = 2 * time.Minute

// redactedPaymentInfoKeys never reach the payment_errors table.
var redactedPaymentInfoKeys = []string{"order_info"}

type ConfirmPaymentCommand struct {
	TelegramUserID string
	FirstName      string
	Username       string
	InvoicePayload string
	// ChargeID is the provider transaction reference used for deduplication.
	ChargeID    string
	Amount      int64
	Currency    string
	PaymentInfo map[string]any
	PaidAt      time.Time
}

type ConfirmPaymentResult struct {
	SubscriptionID uint
	PlanName       string
	EndDate        time.Time
	InviteLink     string
	// Extended is set when the payment prolonged the current grant.
	Extended bool
	// Duplicate is set when this charge was already handled or is being handled.
	Duplicate bool
	// PaymentErrorID points to the remediation record of a failed activation.
	PaymentErrorID uint
}

// ConfirmPaymentUseCase turns a captured payment into access. It is safe against duplicate
// deliveries of the same charge, and an activation failure is never dropped: it becomes a
// PaymentError and an operator alert.
type ConfirmPaymentUseCase struct {
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	paymentErrorRepo subscription.PaymentErrorRepository
	chargeRepo       subscription.PaymentChargeRepository
	grantUC          *subscriptionUsecases.GrantSubscriptionUseCase
	extendUC         *subscriptionUsecases.ExtendSubscriptionUseCase
	issueInviteUC    *subscriptionUsecases.IssueInviteUseCase
	alertUC          *AlertPaymentErrorUseCase // Optional
	paymentLock      *cache.PaymentLock        // Optional
	lockTTL          time.Duration
	logger           logger.Interface
	now              func() time.Time
}

func NewConfirmPaymentUseCase(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	paymentErrorRepo subscription.PaymentErrorRepository,
	chargeRepo subscription.PaymentChargeRepository,
	grantUC *subscriptionUsecases.GrantSubscriptionUseCase,
	extendUC *subscriptionUsecases.ExtendSubscriptionUseCase,
	issueInviteUC *subscriptionUsecases.IssueInviteUseCase,
	logger logger.Interface,
) *ConfirmPaymentUseCase {
	return &ConfirmPaymentUseCase{
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		paymentErrorRepo: paymentErrorRepo,
		chargeRepo:       chargeRepo,
		grantUC:          grantUC,
		extendUC:         extendUC,
		issueInviteUC:    issueInviteUC,
		lockTTL:          DefaultPaymentLockTTL,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SetAlerter sets the operator alerter (optional dependency injection)
func (uc *ConfirmPaymentUseCase) SetAlerter(alertUC *AlertPaymentErrorUseCase) {
	uc.alertUC = alertUC
}

// SetPaymentLock enables the cross-instance duplicate delivery lock.
func (uc *ConfirmPaymentUseCase) SetPaymentLock(lock *cache.PaymentLock, ttl time.Duration) {
	uc.paymentLock = lock
	if ttl > 0 {
		uc.lockTTL = ttl
	}
}

func (uc *ConfirmPaymentUseCase) SetClock(now func() time.Time) { uc.now = now }

func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, cmd ConfirmPaymentCommand) (*ConfirmPaymentResult, error) {
	log := uc.logger.With("correlation_id", uuid.NewString(), "charge_id", cmd.ChargeID, "telegram_user_id", cmd.TelegramUserID)

	payload, err := ParseInvoicePayload(cmd.InvoicePayload)
	if err != nil {
		log.Errorw("payment with unknown invoice payload", "payload", cmd.InvoicePayload)
		metrics.LifecycleOp("confirm_payment", err)
		return uc.recordFailure(ctx, log, cmd, nil, err)
	}

	if dup, err := uc.findDuplicate(ctx, cmd.ChargeID); err != nil {
		metrics.LifecycleOp("confirm_payment", err)
		return nil, err
	} else if dup != nil {
		log.Infow("duplicate payment delivery ignored", "subscription_id", dup.SubscriptionID)
		metrics.LifecycleOp("confirm_payment", nil, "duplicate")
		return dup, nil
	}

	if uc.paymentLock != nil && cmd.ChargeID != "" {
		token, acquired, err := uc.paymentLock.Acquire(ctx, cmd.ChargeID, uc.lockTTL)
		switch {
		case err != nil:
			// The unique charge index still rejects a second grant.
			log.Warnw("payment lock unavailable, continuing without it", "error", err)
		case !acquired:
			log.Infow("payment is being confirmed by another delivery")
			metrics.LifecycleOp("confirm_payment", nil, "duplicate")
			return &ConfirmPaymentResult{Duplicate: true}, nil
		default:
			defer func() {
				if err := uc.paymentLock.Release(context.WithoutCancel(ctx), cmd.ChargeID, token); err != nil {
					log.Warnw("failed to release payment lock", "error", err)
				}
			}()
			if dup, err := uc.findDuplicate(ctx, cmd.ChargeID); err != nil {
				metrics.LifecycleOp("confirm_payment", err)
				return nil, err
			} else if dup != nil {
				metrics.LifecycleOp("confirm_payment", nil, "duplicate")
				return dup, nil
			}
		}
	}

	var result *ConfirmPaymentResult
	if payload.Kind == PayloadExtend {
		result, err = uc.extendOrGrant(ctx, cmd, payload.PlanID)
	} else {
		result, err = uc.grant(ctx, cmd, payload.PlanID)
	}
	metrics.LifecycleOp("confirm_payment", err)
	if err != nil {
		if apperrors.IsConflictError(err) || apperrors.IsDuplicateError(err) {
			log.Infow("payment already recorded by a concurrent delivery", "error", err)
			return &ConfirmPaymentResult{Duplicate: true}, nil
		}
		planID := payload.PlanID
		return uc.recordFailure(ctx, log, cmd, &planID, err)
	}

	log.Infow("payment confirmed",
		"subscription_id", result.SubscriptionID,
		"payload", payload.String(),
		"extended", result.Extended,
	)
	return result, nil
}

func (uc *ConfirmPaymentUseCase) findDuplicate(ctx context.Context, chargeID string) (*ConfirmPaymentResult, error) {
	if chargeID == "" {
		return nil, nil
	}
	var sub *subscription.Subscription
	charge, err := uc.chargeRepo.GetByChargeID(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment charge: %w", err)
	}
	if charge != nil {
		sub, err = uc.subscriptionRepo.GetByID(ctx, charge.SubscriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get charged subscription: %w", err)
		}
		if sub == nil {
			return &ConfirmPaymentResult{SubscriptionID: charge.SubscriptionID, Duplicate: true}, nil
		}
	} else {
		// Rows imported before the charge ledger existed only carry the charge on the grant.
		sub, err = uc.subscriptionRepo.GetByPaymentChargeID(ctx, chargeID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up payment charge: %w", err)
		}
	}
	if sub != nil {
		return &ConfirmPaymentResult{
			SubscriptionID: sub.ID(),
			EndDate:        sub.EndDate(),
			InviteLink:     sub.InviteLink(),
			Duplicate:      true,
		}, nil
	}

	pe, err := uc.paymentErrorRepo.GetByChargeID(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment error: %w", err)
	}
	if pe != nil {
		return &ConfirmPaymentResult{Duplicate: true, PaymentErrorID: pe.ID()}, nil
	}
	return nil, nil
}

// grant opens a new subscription and records the charge against it in the same transaction.
func (uc *ConfirmPaymentUseCase) grant(ctx context.Context, cmd ConfirmPaymentCommand, planID uint) (*ConfirmPaymentResult, error) {
	var res *dto.GrantResultDTO
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		res, err = uc.grantUC.Execute(txCtx, subscriptionUsecases.GrantSubscriptionCommand{
			TelegramUserID: cmd.TelegramUserID,
			FirstName:      cmd.FirstName,
			PlanID:         planID,
			ChargeID:       cmd.ChargeID,
		})
		if err != nil {
			return err
		}
		return uc.recordCharge(txCtx, cmd.ChargeID, res.SubscriptionID)
	})
	if err != nil {
		return nil, err
	}
	return &ConfirmPaymentResult{
		SubscriptionID: res.SubscriptionID,
		PlanName:       res.PlanName,
		EndDate:        res.EndDate,
		InviteLink:     res.InviteLink,
	}, nil
}

// extendOrGrant prolongs the current grant by the plan's duration and hands out a fresh
// invite. A user without a current grant gets a new one instead.
func (uc *ConfirmPaymentUseCase) extendOrGrant(ctx context.Context, cmd ConfirmPaymentCommand, planID uint) (*ConfirmPaymentResult, error) {
	user, err := uc.userRepo.GetByTelegramID(ctx, cmd.TelegramUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var current *subscription.Subscription
	if user != nil {
		current, err = uc.subscriptionRepo.GetCurrentByUserID(ctx, user.ID(), uc.now())
		if err != nil {
			return nil, fmt.Errorf("failed to get current subscription: %w", err)
		}
	}
	if current == nil {
		return uc.grant(ctx, cmd, planID)
	}

	plan, err := uc.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewValidationError(subscription.ErrPlanNotFound.Error(), fmt.Sprintf("plan_id=%d", planID))
	}

	result := &ConfirmPaymentResult{SubscriptionID: current.ID(), Extended: true}
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.extendUC.Execute(txCtx, subscriptionUsecases.ExtendSubscriptionCommand{
			SubscriptionID: current.ID(),
			Duration:       plan.Duration(),
			ResetReminder:  true,
		})
		if err != nil {
			return err
		}
		// The grant keeps the charge that opened it. Later charges live in the ledger only.
		if err := uc.recordCharge(txCtx, cmd.ChargeID, sub.ID()); err != nil {
			return err
		}
		link, err := uc.issueInviteUC.Execute(txCtx, sub.ID())
		if err != nil {
			return err
		}
		result.EndDate = sub.EndDate()
		result.InviteLink = link
		return nil
	})
	if err != nil {
		return nil, err
	}

	if current.PlanID() == plan.ID() {
		result.PlanName = plan.Name()
	} else if p, err := uc.planRepo.GetByID(ctx, current.PlanID()); err == nil && p != nil {
		result.PlanName = p.Name()
	}
	return result, nil
}

func (uc *ConfirmPaymentUseCase) recordCharge(ctx context.Context, chargeID string, subscriptionID uint) error {
	if chargeID == "" {
		return nil
	}
	return uc.chargeRepo.Record(ctx, &subscription.PaymentCharge{
		ChargeID:       chargeID,
		SubscriptionID: subscriptionID,
		RecordedAt:     uc.now(),
	})
}

// recordFailure persists the remediation record and pages operators. The returned error
// always wraps cause.
func (uc *ConfirmPaymentUseCase) recordFailure(ctx context.Context, log logger.Interface, cmd ConfirmPaymentCommand, planID *uint, cause error) (*ConfirmPaymentResult, error) {
	paidAt := cmd.PaidAt
	if paidAt.IsZero() {
		paidAt = uc.now()
	}

	pe, err := subscription.NewPaymentError(subscription.PaymentErrorParams{
		TelegramUserID: cmd.TelegramUserID,
		PlanID:         planID,
		ChargeID:       cmd.ChargeID,
		Amount:         cmd.Amount,
		Currency:       cmd.Currency,
		ErrorMessage:   cause.Error(),
		InvoicePayload: cmd.InvoicePayload,
		PaymentInfo:    sanitizePaymentInfo(cmd.PaymentInfo),
		StackTrace:     string(debug.Stack()),
		PaymentTime:    paidAt,
	})
	if err != nil {
		log.Errorw("failed to build payment error record", "error", err, "cause", cause)
		return nil, fmt.Errorf("payment activation failed: %w", cause)
	}

	storeCtx := context.WithoutCancel(ctx)
	if err := uc.paymentErrorRepo.Create(storeCtx, pe); err != nil {
		// Logged in full so the payment can still be reconstructed from the logs.
		log.Errorw("failed to persist payment error",
			"error", err,
			"cause", cause,
			"amount", cmd.Amount,
			"currency", cmd.Currency,
			"payload", cmd.InvoicePayload,
		)
	} else {
		log.Errorw("payment activation failed", "error", cause, "payment_error_id", pe.ID())
	}

	if uc.alertUC != nil {
		username := cmd.Username
		goroutine.SafeGo(uc.logger, "payment-error-alert", func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			uc.alertUC.Execute(alertCtx, pe, username)
		})
	}

	return &ConfirmPaymentResult{PaymentErrorID: pe.ID()}, fmt.Errorf("payment activation failed: %w", cause)
}

func sanitizePaymentInfo(info map[string]any) map[string]any {
	out := make(map[string]any, len(info))
	for k, v := range info {
		out[k] = v
	}
	for _, k := range redactedPaymentInfoKeys {
		if _, ok := out[k]; ok {
			out[k] = "[redacted]"
		}
	}
	return out
}
