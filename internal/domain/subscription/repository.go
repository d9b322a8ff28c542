package subscription

import (
	"context"
	"time"
)

// Repositories return (nil, nil) when a single-row lookup finds nothing.
// Every write honours a transaction carried in ctx.

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByTelegramID(ctx context.Context, telegramUserID string) (*User, error)

	// MarkRegistrationNudged flips the one-shot nudge flag without rewriting the row.
	MarkRegistrationNudged(ctx context.Context, id uint) error
	// FindNudgeCandidates returns users created at or before createdBefore whose nudge
	// flag is unset and who hold no active subscription.
	FindNudgeCandidates(ctx context.Context, createdBefore time.Time, limit int) ([]*User, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	Update(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	// FindByIdentity matches the catalog identity tuple (name, price, duration).
	FindByIdentity(ctx context.Context, name string, price int64, durationDays float64) (*Plan, error)
	// FindLatestByName returns the most recently created plan carrying name.
	FindLatestByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	// ListCurrent returns the plans that are not retired.
	ListCurrent(ctx context.Context) ([]*Plan, error)
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	// GetByIDForUpdate re-reads the row and, inside a transaction, locks it until commit.
	GetByIDForUpdate(ctx context.Context, id uint) (*Subscription, error)
	GetByInviteLink(ctx context.Context, link string) (*Subscription, error)
	GetByPaymentChargeID(ctx context.Context, chargeID string) (*Subscription, error)
	ListByUserID(ctx context.Context, userID uint) ([]*Subscription, error)

	// GetCurrentByUserID returns the user's active, unexpired subscription with the latest end.
	GetCurrentByUserID(ctx context.Context, userID uint, now time.Time) (*Subscription, error)
	// HasOtherCurrent reports whether the user holds an active, unexpired subscription other than excludeID.
	HasOtherCurrent(ctx context.Context, userID, excludeID uint, now time.Time) (bool, error)
	// DeactivateAllByUserID flips every row of the user to inactive and clears invite links.
	DeactivateAllByUserID(ctx context.Context, userID uint, now time.Time) (int64, error)
	// SetReminderFlag sets a single notification flag. Last write wins.
	SetReminderFlag(ctx context.Context, id uint, kind ReminderKind) error
	// ReassignPlans moves every active subscription whose plan is not in keepPlanIDs to targetPlanID.
	ReassignPlans(ctx context.Context, keepPlanIDs []uint, targetPlanID uint, now time.Time) (int64, error)

	// FindActiveEndingBetween selects active rows with from < end_date <= to and kind unset.
	FindActiveEndingBetween(ctx context.Context, from, to time.Time, kind ReminderKind, limit int) ([]*Subscription, error)
	// FindEndedInactive selects inactive rows with end_date <= now and kind unset.
	FindEndedInactive(ctx context.Context, now time.Time, kind ReminderKind, limit int) ([]*Subscription, error)
	// FindExpiredActive selects active rows with end_date <= now.
	FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
	// FindEndedBefore pages through rows with end_date < cutoff regardless of the active flag,
	// ordered by id and starting after afterID.
	FindEndedBefore(ctx context.Context, cutoff time.Time, afterID uint, limit int) ([]*Subscription, error)
}

type PaymentErrorRepository interface {
	Create(ctx context.Context, pe *PaymentError) error
	Update(ctx context.Context, pe *PaymentError) error
	GetByID(ctx context.Context, id uint) (*PaymentError, error)
	GetByChargeID(ctx context.Context, chargeID string) (*PaymentError, error)
	ListUnresolved(ctx context.Context, limit int) ([]*PaymentError, error)
}

type PaymentChargeRepository interface {
	// Record stores a processed charge. Recording the same charge twice fails with a conflict error.
	Record(ctx context.Context, charge *PaymentCharge) error
	GetByChargeID(ctx context.Context, chargeID string) (*PaymentCharge, error)
}
