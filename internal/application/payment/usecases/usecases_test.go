package usecases

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelgate/channelgate/internal/application/apptest"
	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/cache"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type fixture struct {
	store    *apptest.Store
	clock    *apptest.Clock
	gateway  *apptest.FakeGateway
	notifier *apptest.FakeNotifier
	redis    *redis.Client
	mr       *miniredis.Miniredis
	confirm  *ConfirmPaymentUseCase
	alert    *AlertPaymentErrorUseCase
	resolve  *ResolvePaymentErrorUseCase
	list     *ListPaymentErrorsUseCase
	plan     *subscription.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := apptest.NewStore(t)
	clock := apptest.NewClock(apptest.T0)
	gw := apptest.NewFakeGateway()
	notifier := apptest.NewFakeNotifier()
	log := logger.NewNop()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	grant := subscriptionUsecases.NewGrantSubscriptionUseCase(s.Tx, s.Users, s.Plans, s.Subscriptions, gw, log)
	extend := subscriptionUsecases.NewExtendSubscriptionUseCase(s.Tx, s.Subscriptions, log)
	invite := subscriptionUsecases.NewIssueInviteUseCase(s.Tx, s.Users, s.Plans, s.Subscriptions, gw, log)
	grant.SetClock(clock.Func())
	extend.SetClock(clock.Func())
	invite.SetClock(clock.Func())

	alert := NewAlertPaymentErrorUseCase(notifier, []int64{1001, 1002}, log)
	alert.SetDeduplicator(cache.NewAlertDeduplicator(client), time.Hour)

	confirm := NewConfirmPaymentUseCase(s.Tx, s.Users, s.Plans, s.Subscriptions, s.PaymentErrors, s.Charges, grant, extend, invite, log)
	confirm.SetClock(clock.Func())
	confirm.SetAlerter(alert)
	confirm.SetPaymentLock(cache.NewPaymentLock(client), time.Minute)

	resolve := NewResolvePaymentErrorUseCase(s.PaymentErrors, s.Users, notifier, log)
	resolve.SetClock(clock.Func())
	resolve.SetDeduplicator(cache.NewAlertDeduplicator(client))

	return &fixture{
		store:    s,
		clock:    clock,
		gateway:  gw,
		notifier: notifier,
		redis:    client,
		mr:       mr,
		confirm:  confirm,
		alert:    alert,
		resolve:  resolve,
		list:     NewListPaymentErrorsUseCase(s.PaymentErrors, log),
		plan:     s.SeedPlan(t, "Monthly", 50000, 30, apptest.TestChannel),
	}
}

func (f *fixture) payment(payload, charge string) ConfirmPaymentCommand {
	return ConfirmPaymentCommand{
		TelegramUserID: "7",
		FirstName:      "Anna",
		Username:       "anna",
		InvoicePayload: payload,
		ChargeID:       charge,
		Amount:         50000,
		Currency:       "RUB",
		PaymentInfo: map[string]any{
			"total_amount": 50000,
			"order_info":   map[string]any{"phone_number": "+70000000000"},
		},
		PaidAt: apptest.T0,
	}
}

func TestParseInvoicePayload(t *testing.T) {
	p, err := ParseInvoicePayload("plan_12")
	require.NoError(t, err)
	assert.Equal(t, InvoicePayload{Kind: PayloadPlan, PlanID: 12}, p)

	p, err = ParseInvoicePayload("extend_3")
	require.NoError(t, err)
	assert.Equal(t, PayloadExtend, p.Kind)
	assert.Equal(t, "extend_3", p.String())

	for _, raw := range []string{"", "plan_", "plan_0", "plan_x", "gift_1", "extend_-1"} {
		_, err := ParseInvoicePayload(raw)
		assert.ErrorIs(t, err, subscription.ErrInvalidPaymentPayload, raw)
	}
}

func TestConfirmPayment_GrantsPlan(t *testing.T) {
	f := newFixture(t)

	res, err := f.confirm.Execute(context.Background(), f.payment("plan_"+uintStr(f.plan.ID()), "ch_1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.False(t, res.Extended)
	assert.Equal(t, "Monthly", res.PlanName)
	assert.NotEmpty(t, res.InviteLink)

	sub := f.store.Reload(t, res.SubscriptionID)
	assert.Equal(t, "ch_1", sub.PaymentChargeID())
	assert.True(t, sub.IsActive())
	assert.False(t, f.mr.Exists("channelgate:payment:lock:ch_1"), "lock released")
}

func TestConfirmPayment_DuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := f.payment("plan_"+uintStr(f.plan.ID()), "ch_1")

	first, err := f.confirm.Execute(ctx, cmd)
	require.NoError(t, err)

	second, err := f.confirm.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)

	user, err := f.store.Users.GetByTelegramID(ctx, "7")
	require.NoError(t, err)
	subs, err := f.store.Subscriptions.ListByUserID(ctx, user.ID())
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Len(t, f.gateway.Calls("create_invite"), 1)
}

func TestConfirmPayment_InFlightDeliveryIsCollapsed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mr.Set("channelgate:payment:lock:ch_1", "other-delivery"))

	res, err := f.confirm.Execute(context.Background(), f.payment("plan_"+uintStr(f.plan.ID()), "ch_1"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Zero(t, res.SubscriptionID)
	assert.Empty(t, f.gateway.Calls("create_invite"))
}

func TestConfirmPayment_RedisOutageDoesNotBlockPayment(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	res, err := f.confirm.Execute(context.Background(), f.payment("plan_"+uintStr(f.plan.ID()), "ch_1"))
	require.NoError(t, err)
	assert.NotZero(t, res.SubscriptionID)
}

func TestConfirmPayment_ExtendsCurrentGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.SeedUser(t, "7", apptest.T0.Add(-time.Hour))
	sub := f.store.SeedSubscription(t, user.ID(), f.plan.ID(), apptest.T0.Add(-29*24*time.Hour), 30*24*time.Hour, true, "https://t.me/+old")
	require.NoError(t, f.store.Subscriptions.SetReminderFlag(ctx, sub.ID(), subscription.ReminderPreExpiry))

	res, err := f.confirm.Execute(ctx, f.payment("extend_"+uintStr(f.plan.ID()), "ch_2"))
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, sub.ID(), res.SubscriptionID)
	assert.Equal(t, "Monthly", res.PlanName)

	got := f.store.Reload(t, sub.ID())
	assert.Equal(t, sub.EndDate().Add(30*24*time.Hour), got.EndDate())
	assert.False(t, got.ReminderSent(), "a fresh reminder cycle starts")
	assert.Empty(t, got.PaymentChargeID(), "the grant keeps the charge that opened it")
	charge, err := f.store.Charges.GetByChargeID(ctx, "ch_2")
	require.NoError(t, err)
	require.NotNil(t, charge)
	assert.Equal(t, sub.ID(), charge.SubscriptionID)
	assert.Equal(t, res.InviteLink, got.InviteLink())
	assert.NotEqual(t, "https://t.me/+old", got.InviteLink())

	revoked := f.gateway.Calls("revoke_invite")
	require.Len(t, revoked, 1)
	assert.Equal(t, "https://t.me/+old", revoked[0].Target)
}

func TestConfirmPayment_RedeliveredGrantChargeAfterExtension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	granted, err := f.confirm.Execute(ctx, f.payment("plan_"+uintStr(f.plan.ID()), "ch_A"))
	require.NoError(t, err)

	f.clock.Advance(10 * 24 * time.Hour)
	extended, err := f.confirm.Execute(ctx, f.payment("extend_"+uintStr(f.plan.ID()), "ch_B"))
	require.NoError(t, err)
	require.True(t, extended.Extended)
	require.Equal(t, granted.SubscriptionID, extended.SubscriptionID)
	assert.Equal(t, granted.EndDate.Add(30*24*time.Hour), extended.EndDate)

	again, err := f.confirm.Execute(ctx, f.payment("plan_"+uintStr(f.plan.ID()), "ch_A"))
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, granted.SubscriptionID, again.SubscriptionID)
	assert.Equal(t, extended.EndDate, again.EndDate)

	got := f.store.Reload(t, granted.SubscriptionID)
	assert.True(t, got.IsActive())
	assert.Equal(t, extended.EndDate, got.EndDate())

	user, err := f.store.Users.GetByTelegramID(ctx, "7")
	require.NoError(t, err)
	subs, err := f.store.Subscriptions.ListByUserID(ctx, user.ID())
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	// The extension charge is just as final.
	againB, err := f.confirm.Execute(ctx, f.payment("extend_"+uintStr(f.plan.ID()), "ch_B"))
	require.NoError(t, err)
	assert.True(t, againB.Duplicate)
	assert.Equal(t, extended.EndDate, f.store.Reload(t, granted.SubscriptionID).EndDate())
}

func TestConfirmPayment_LegacyChargeOnGrantIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.store.SeedUser(t, "7", apptest.T0.Add(-time.Hour))
	sub, err := subscription.NewSubscription(user.ID(), f.plan.ID(), apptest.T0.Add(-time.Hour), 30*24*time.Hour)
	require.NoError(t, err)
	sub.RecordPayment("ch_legacy")
	require.NoError(t, f.store.Subscriptions.Create(ctx, sub))

	res, err := f.confirm.Execute(ctx, f.payment("plan_"+uintStr(f.plan.ID()), "ch_legacy"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, sub.ID(), res.SubscriptionID)
}

func TestConfirmPayment_ExtendWithoutCurrentGrantFallsBackToGrant(t *testing.T) {
	f := newFixture(t)

	res, err := f.confirm.Execute(context.Background(), f.payment("extend_"+uintStr(f.plan.ID()), "ch_3"))
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.True(t, f.store.Reload(t, res.SubscriptionID).IsActive())
}

func TestConfirmPayment_ActivationFailureIsRecordedAndAlerted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.CreateInviteErr = apperrors.NewGatewayPermanentError("createChatInviteLink", errors.New("not enough rights"))

	res, err := f.confirm.Execute(ctx, f.payment("plan_"+uintStr(f.plan.ID()), "ch_9"))
	require.Error(t, err)
	require.NotNil(t, res)
	require.NotZero(t, res.PaymentErrorID)

	pe, err := f.store.PaymentErrors.GetByID(ctx, res.PaymentErrorID)
	require.NoError(t, err)
	assert.Equal(t, "ch_9", pe.ChargeID())
	assert.Equal(t, int64(50000), pe.Amount())
	require.NotNil(t, pe.PlanID())
	assert.Equal(t, f.plan.ID(), *pe.PlanID())
	assert.Contains(t, pe.ErrorMessage(), "not enough rights")
	assert.NotEmpty(t, pe.StackTrace())
	assert.Equal(t, "[redacted]", pe.PaymentInfo()["order_info"])
	assert.False(t, pe.IsResolved())

	assert.Eventually(t, func() bool {
		return len(f.notifier.Sent("1001")) == 1 && len(f.notifier.Sent("1002")) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, f.notifier.Sent("1001")[0].Text, "anna")

	// A redelivery of the failed charge does not create a second record.
	again, err := f.confirm.Execute(ctx, f.payment("plan_"+uintStr(f.plan.ID()), "ch_9"))
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, res.PaymentErrorID, again.PaymentErrorID)
}

func TestConfirmPayment_UnknownPayloadIsRecorded(t *testing.T) {
	f := newFixture(t)

	res, err := f.confirm.Execute(context.Background(), f.payment("gift_1", "ch_4"))
	require.ErrorIs(t, err, subscription.ErrInvalidPaymentPayload)
	require.NotZero(t, res.PaymentErrorID)

	pe, err := f.store.PaymentErrors.GetByID(context.Background(), res.PaymentErrorID)
	require.NoError(t, err)
	assert.Nil(t, pe.PlanID())
}

func TestAlertPaymentError_DeduplicatesPerCharge(t *testing.T) {
	f := newFixture(t)
	pe, err := subscription.NewPaymentError(subscription.PaymentErrorParams{TelegramUserID: "7", ChargeID: "ch_1", PaymentTime: apptest.T0})
	require.NoError(t, err)

	assert.Equal(t, 2, f.alert.Execute(context.Background(), pe, ""))
	assert.Zero(t, f.alert.Execute(context.Background(), pe, ""), "muted during cooldown")
}

type capturedEmail struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturedEmail) SendAlert(_ context.Context, subject, _, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

func TestAlertPaymentError_EmailChannel(t *testing.T) {
	notifier := apptest.NewFakeNotifier()
	notifier.Results["1001"] = subscription.SendPermanentFailure
	email := &capturedEmail{}
	uc := NewAlertPaymentErrorUseCase(notifier, []int64{1001}, logger.NewNop())
	uc.SetEmailSender(email)

	pe, err := subscription.NewPaymentError(subscription.PaymentErrorParams{TelegramUserID: "7", ChargeID: "ch_1", PaymentTime: apptest.T0})
	require.NoError(t, err)

	assert.Zero(t, uc.Execute(context.Background(), pe, ""))
	require.Len(t, email.subjects, 1)
	assert.True(t, strings.HasPrefix(email.subjects[0], "[channelgate]"))
}

func TestResolvePaymentError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SeedUser(t, "7", apptest.T0)
	pe, err := subscription.NewPaymentError(subscription.PaymentErrorParams{TelegramUserID: "7", ChargeID: "ch_1", PaymentTime: apptest.T0})
	require.NoError(t, err)
	require.NoError(t, f.store.PaymentErrors.Create(ctx, pe))
	require.NoError(t, f.mr.Set("channelgate:admin_alert:payment_error:ch_1", "1"))

	open, err := f.list.Execute(ctx, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)

	got, err := f.resolve.Execute(ctx, ResolvePaymentErrorCommand{PaymentErrorID: pe.ID(), Notes: "  refunded  "})
	require.NoError(t, err)
	assert.True(t, got.IsResolved())
	assert.Equal(t, "refunded", got.ResolutionNotes())
	require.NotNil(t, got.ResolvedAt())
	assert.True(t, apptest.T0.Equal(*got.ResolvedAt()))

	require.Len(t, f.notifier.Sent("7"), 1)
	assert.False(t, f.mr.Exists("channelgate:admin_alert:payment_error:ch_1"))

	open, err = f.list.Execute(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.resolve.Execute(ctx, ResolvePaymentErrorCommand{PaymentErrorID: pe.ID()})
	assert.ErrorIs(t, err, subscription.ErrPaymentErrorResolved)

	_, err = f.resolve.Execute(ctx, ResolvePaymentErrorCommand{PaymentErrorID: 404})
	assert.ErrorIs(t, err, subscription.ErrPaymentErrorNotFound)
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
