package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
	"github.com/channelgate/channelgate/internal/shared/testutil"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type repos struct {
	db      *gorm.DB
	users   subscription.UserRepository
	plans   subscription.PlanRepository
	subs    subscription.SubscriptionRepository
	errors  subscription.PaymentErrorRepository
	charges subscription.PaymentChargeRepository
}

func setupTestDB(t *testing.T) *repos {
	t.Helper()
	gdb := testutil.NewSQLiteDB(t, models.All()...)
	log := logger.NewNop()
	return &repos{
		db:      gdb,
		users:   NewUserRepository(gdb, log),
		plans:   NewPlanRepository(gdb, log),
		subs:    NewSubscriptionRepository(gdb, log),
		errors:  NewPaymentErrorRepository(gdb, log),
		charges: NewPaymentChargeRepository(gdb, log),
	}
}

func (r *repos) user(t *testing.T, tgID string, created time.Time) *subscription.User {
	t.Helper()
	u, err := subscription.NewUser(tgID, "User "+tgID, created)
	require.NoError(t, err)
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

func (r *repos) plan(t *testing.T, name string, price int64, days float64) *subscription.Plan {
	t.Helper()
	p, err := subscription.NewPlan(name, "", price, days, "-100500")
	require.NoError(t, err)
	require.NoError(t, r.plans.Create(context.Background(), p))
	return p
}

func (r *repos) sub(t *testing.T, userID, planID uint, start time.Time, d time.Duration, active bool) *subscription.Subscription {
	t.Helper()
	s, err := subscription.NewSubscription(userID, planID, start, d)
	require.NoError(t, err)
	if !active {
		s.Deactivate(start)
	}
	require.NoError(t, r.subs.Create(context.Background(), s))
	return s
}

func ids(list []*subscription.Subscription) []uint {
	out := make([]uint, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID())
	}
	return out
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and lookup by telegram id", func(t *testing.T) {
		r := setupTestDB(t)
		u := r.user(t, "42", now)
		assert.NotZero(t, u.ID())

		got, err := r.users.GetByTelegramID(ctx, "42")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID(), got.ID())
		assert.Equal(t, "User 42", got.FirstName())

		missing, err := r.users.GetByTelegramID(ctx, "43")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("duplicate telegram id is a conflict", func(t *testing.T) {
		r := setupTestDB(t)
		r.user(t, "42", now)

		dup, err := subscription.NewUser("42", "", now)
		require.NoError(t, err)
		assert.Error(t, r.users.Create(ctx, dup))
	})

	t.Run("nudge candidates skip recent, nudged and subscribed users", func(t *testing.T) {
		r := setupTestDB(t)
		p := r.plan(t, "Monthly", 100, 30)

		old := r.user(t, "1", now.Add(-5*time.Hour))
		recent := r.user(t, "2", now.Add(-time.Hour))
		nudged := r.user(t, "3", now.Add(-5*time.Hour))
		subscribed := r.user(t, "4", now.Add(-5*time.Hour))
		lapsed := r.user(t, "5", now.Add(-5*time.Hour))

		require.NoError(t, r.users.MarkRegistrationNudged(ctx, nudged.ID()))
		r.sub(t, subscribed.ID(), p.ID(), now, time.Hour, true)
		r.sub(t, lapsed.ID(), p.ID(), now.Add(-48*time.Hour), time.Hour, false)

		got, err := r.users.FindNudgeCandidates(ctx, now.Add(-3*time.Hour), 10)
		require.NoError(t, err)

		var tgIDs []string
		for _, u := range got {
			tgIDs = append(tgIDs, u.TelegramUserID())
		}
		assert.ElementsMatch(t, []string{old.TelegramUserID(), lapsed.TelegramUserID()}, tgIDs)
		assert.NotContains(t, tgIDs, recent.TelegramUserID())
	})
}

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)

	old := r.plan(t, "Monthly", 100, 30)
	repriced := r.plan(t, "Monthly", 120, 30)
	short := r.plan(t, "Test", 1, 5.0/(24*60))

	got, err := r.plans.FindByIdentity(ctx, "Monthly", 100, 30)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, old.ID(), got.ID())

	got, err = r.plans.FindByIdentity(ctx, "Test", 1, 5.0/(24*60))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, short.ID(), got.ID())

	got, err = r.plans.FindByIdentity(ctx, "Monthly", 100, 31)
	require.NoError(t, err)
	assert.Nil(t, got)

	latest, err := r.plans.FindLatestByName(ctx, "Monthly")
	require.NoError(t, err)
	assert.Equal(t, repriced.ID(), latest.ID())

	old.SetChannel("")
	old.SetDescription("retired")
	old.Retire(now)
	require.NoError(t, r.plans.Update(ctx, old))
	reloaded, err := r.plans.GetByID(ctx, old.ID())
	require.NoError(t, err)
	assert.False(t, reloaded.HasChannel())
	assert.Equal(t, "retired", reloaded.Description())
	assert.True(t, reloaded.IsRetired())

	all, err := r.plans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	current, err := r.plans.ListCurrent(ctx)
	require.NoError(t, err)
	require.Len(t, current, 2)
	assert.Equal(t, []uint{repriced.ID(), short.ID()}, []uint{current[0].ID(), current[1].ID()})
}

func TestSubscriptionRepository_CurrentAndOverlap(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)
	u := r.user(t, "7", now)
	p := r.plan(t, "Monthly", 100, 30)

	expired := r.sub(t, u.ID(), p.ID(), now.Add(-48*time.Hour), 24*time.Hour, true)
	current := r.sub(t, u.ID(), p.ID(), now, 24*time.Hour, true)

	got, err := r.subs.GetCurrentByUserID(ctx, u.ID(), now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, current.ID(), got.ID())

	other, err := r.subs.HasOtherCurrent(ctx, u.ID(), expired.ID(), now)
	require.NoError(t, err)
	assert.True(t, other)

	other, err = r.subs.HasOtherCurrent(ctx, u.ID(), current.ID(), now)
	require.NoError(t, err)
	assert.False(t, other, "an expired-but-active row is not current")

	n, err := r.subs.DeactivateAllByUserID(ctx, u.ID(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = r.subs.GetCurrentByUserID(ctx, u.ID(), now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubscriptionRepository_UpdateAndLookups(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)
	u := r.user(t, "7", now)
	p := r.plan(t, "Monthly", 100, 30)
	s := r.sub(t, u.ID(), p.ID(), now, time.Hour, true)

	s.AttachInviteLink("https://t.me/+tok1", now)
	s.RecordPayment("charge-1")
	require.NoError(t, r.subs.Update(ctx, s))

	byLink, err := r.subs.GetByInviteLink(ctx, "https://t.me/+tok1")
	require.NoError(t, err)
	require.NotNil(t, byLink)
	assert.Equal(t, s.ID(), byLink.ID())

	byCharge, err := r.subs.GetByPaymentChargeID(ctx, "charge-1")
	require.NoError(t, err)
	require.NotNil(t, byCharge)
	assert.Equal(t, s.ID(), byCharge.ID())

	s.Deactivate(now)
	require.NoError(t, r.subs.Update(ctx, s))

	reloaded, err := r.subs.GetByID(ctx, s.ID())
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive())
	assert.False(t, reloaded.HasInviteLink())

	byLink, err = r.subs.GetByInviteLink(ctx, "https://t.me/+tok1")
	require.NoError(t, err)
	assert.Nil(t, byLink)

	ghost, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{ID: 999, UserID: 1, PlanID: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, r.subs.Update(ctx, ghost), subscription.ErrSubscriptionNotFound)
}

func TestSubscriptionRepository_DuplicateChargeIsConflict(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)
	u := r.user(t, "7", now)
	p := r.plan(t, "Monthly", 100, 30)

	first, err := subscription.NewSubscription(u.ID(), p.ID(), now, time.Hour)
	require.NoError(t, err)
	first.RecordPayment("charge-1")
	require.NoError(t, r.subs.Create(ctx, first))

	second, err := subscription.NewSubscription(u.ID(), p.ID(), now, time.Hour)
	require.NoError(t, err)
	second.RecordPayment("charge-1")
	assert.Error(t, r.subs.Create(ctx, second))
}

func TestPaymentChargeRepository_RecordOnce(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)

	missing, err := r.charges.GetByChargeID(ctx, "charge-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, r.charges.Record(ctx, &subscription.PaymentCharge{ChargeID: "charge-1", SubscriptionID: 3, RecordedAt: now}))
	require.NoError(t, r.charges.Record(ctx, &subscription.PaymentCharge{ChargeID: "charge-2", SubscriptionID: 3, RecordedAt: now}))

	err = r.charges.Record(ctx, &subscription.PaymentCharge{ChargeID: "charge-1", SubscriptionID: 4, RecordedAt: now})
	assert.True(t, apperrors.IsConflictError(err))

	got, err := r.charges.GetByChargeID(ctx, "charge-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(3), got.SubscriptionID)

	assert.Error(t, r.charges.Record(ctx, &subscription.PaymentCharge{SubscriptionID: 3}))
}

func TestSubscriptionRepository_SweepQueries(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)
	u := r.user(t, "7", now)
	p := r.plan(t, "Monthly", 100, 30)

	endingSoon := r.sub(t, u.ID(), p.ID(), now.Add(-time.Hour), 2*time.Hour, true)
	endingLater := r.sub(t, u.ID(), p.ID(), now, 72*time.Hour, true)
	expiredActive := r.sub(t, u.ID(), p.ID(), now.Add(-4*time.Hour), time.Hour, true)
	expiredInactive := r.sub(t, u.ID(), p.ID(), now.Add(-10*time.Hour), time.Hour, false)

	t.Run("ending between", func(t *testing.T) {
		got, err := r.subs.FindActiveEndingBetween(ctx, now, now.Add(24*time.Hour), subscription.ReminderPreExpiry, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint{endingSoon.ID()}, ids(got))

		require.NoError(t, r.subs.SetReminderFlag(ctx, endingSoon.ID(), subscription.ReminderPreExpiry))
		got, err = r.subs.FindActiveEndingBetween(ctx, now, now.Add(24*time.Hour), subscription.ReminderPreExpiry, 10)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = r.subs.FindActiveEndingBetween(ctx, now, now.Add(24*time.Hour), subscription.ReminderLastDay, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint{endingSoon.ID()}, ids(got), "flags are independent")
	})

	t.Run("expired active", func(t *testing.T) {
		got, err := r.subs.FindExpiredActive(ctx, now, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint{expiredActive.ID()}, ids(got))
	})

	t.Run("ended inactive", func(t *testing.T) {
		got, err := r.subs.FindEndedInactive(ctx, now, subscription.ReminderPostExpiry, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint{expiredInactive.ID()}, ids(got))
	})

	t.Run("ended before pages by id", func(t *testing.T) {
		cutoff := now.Add(-2 * time.Hour)
		first, err := r.subs.FindEndedBefore(ctx, cutoff, 0, 1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, expiredActive.ID(), first[0].ID())

		next, err := r.subs.FindEndedBefore(ctx, cutoff, first[0].ID(), 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{expiredInactive.ID()}, ids(next))

		done, err := r.subs.FindEndedBefore(ctx, cutoff, next[0].ID(), 1)
		require.NoError(t, err)
		assert.Empty(t, done)
	})

	t.Run("unknown reminder kind is rejected", func(t *testing.T) {
		assert.Error(t, r.subs.SetReminderFlag(ctx, endingLater.ID(), subscription.ReminderKind("is_active")))
	})
}

func TestSubscriptionRepository_ReassignPlans(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)
	u1 := r.user(t, "1", now)
	u2 := r.user(t, "2", now)

	retired := r.plan(t, "Old", 100, 30)
	kept := r.plan(t, "Kept", 200, 30)
	successor := r.plan(t, "New-Monthly", 120, 30)

	onRetired := r.sub(t, u1.ID(), retired.ID(), now, 24*time.Hour, true)
	onKept := r.sub(t, u2.ID(), kept.ID(), now, 24*time.Hour, true)
	history := r.sub(t, u1.ID(), retired.ID(), now.Add(-72*time.Hour), time.Hour, false)

	tm := db.NewTransactionManager(r.db)
	var moved int64
	require.NoError(t, tm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		moved, err = r.subs.ReassignPlans(ctx, []uint{kept.ID(), successor.ID()}, successor.ID(), now)
		return err
	}))
	assert.Equal(t, int64(1), moved)

	got, err := r.subs.GetByID(ctx, onRetired.ID())
	require.NoError(t, err)
	assert.Equal(t, successor.ID(), got.PlanID())
	assert.True(t, got.IsActive())
	assert.True(t, got.EndDate().Equal(onRetired.EndDate()))

	got, err = r.subs.GetByID(ctx, onKept.ID())
	require.NoError(t, err)
	assert.Equal(t, kept.ID(), got.PlanID())

	got, err = r.subs.GetByID(ctx, history.ID())
	require.NoError(t, err)
	assert.Equal(t, retired.ID(), got.PlanID(), "inactive history keeps its original plan")
}

func TestPaymentErrorRepository(t *testing.T) {
	ctx := context.Background()
	r := setupTestDB(t)

	planID := uint(3)
	pe, err := subscription.NewPaymentError(subscription.PaymentErrorParams{
		TelegramUserID: "42",
		PlanID:         &planID,
		ChargeID:       "charge-9",
		Amount:         10000,
		Currency:       "RUB",
		ErrorMessage:   "invite failed",
		PaymentInfo:    map[string]any{"total_amount": float64(10000)},
		PaymentTime:    now,
	})
	require.NoError(t, err)
	require.NoError(t, r.errors.Create(ctx, pe))

	byCharge, err := r.errors.GetByChargeID(ctx, "charge-9")
	require.NoError(t, err)
	require.NotNil(t, byCharge)
	assert.Equal(t, pe.ID(), byCharge.ID())
	assert.Equal(t, float64(10000), byCharge.PaymentInfo()["total_amount"])

	open, err := r.errors.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	require.NoError(t, byCharge.Resolve("granted by hand", now))
	require.NoError(t, r.errors.Update(ctx, byCharge))

	open, err = r.errors.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, open)

	resolved, err := r.errors.GetByID(ctx, pe.ID())
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())
	assert.Equal(t, "granted by hand", resolved.ResolutionNotes())
}
