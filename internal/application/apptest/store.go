// Package apptest wires real SQLite-backed repositories and in-memory platform
// fakes for use case tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/infrastructure/repository"
	"github.com/channelgate/channelgate/internal/shared/db"
	"github.com/channelgate/channelgate/internal/shared/logger"
	"github.com/channelgate/channelgate/internal/shared/testutil"
)

// T0 is the reference instant most scenarios start from.
var T0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const TestChannel = "-1001234567890"

// Store bundles the repositories over one private in-memory database.
type Store struct {
	DB            *gorm.DB
	Tx            *db.TransactionManager
	Users         subscription.UserRepository
	Plans         subscription.PlanRepository
	Subscriptions subscription.SubscriptionRepository
	PaymentErrors subscription.PaymentErrorRepository
	Charges       subscription.PaymentChargeRepository
}

func NewStore(t *testing.T) *Store {
	t.Helper()
	gdb := testutil.NewSQLiteDB(t, models.All()...)
	log := logger.NewNop()
	return &Store{
		DB:            gdb,
		Tx:            db.NewTransactionManager(gdb),
		Users:         repository.NewUserRepository(gdb, log),
		Plans:         repository.NewPlanRepository(gdb, log),
		Subscriptions: repository.NewSubscriptionRepository(gdb, log),
		PaymentErrors: repository.NewPaymentErrorRepository(gdb, log),
		Charges:       repository.NewPaymentChargeRepository(gdb, log),
	}
}

// Clock is a settable time source.
type Clock struct {
	Now time.Time
}

func NewClock(at time.Time) *Clock { return &Clock{Now: at} }

func (c *Clock) Func() func() time.Time {
	return func() time.Time { return c.Now }
}

func (c *Clock) Advance(d time.Duration) { c.Now = c.Now.Add(d) }

func (s *Store) SeedUser(t *testing.T, telegramUserID string, createdAt time.Time) *subscription.User {
	t.Helper()
	u, err := subscription.NewUser(telegramUserID, "User"+telegramUserID, createdAt)
	require.NoError(t, err)
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func (s *Store) SeedPlan(t *testing.T, name string, price int64, days float64, channelID string) *subscription.Plan {
	t.Helper()
	p, err := subscription.NewPlan(name, "", price, days, channelID)
	require.NoError(t, err)
	require.NoError(t, s.Plans.Create(context.Background(), p))
	return p
}

// SeedSubscription inserts a grant over [start, start+d) and applies the active flag and link.
func (s *Store) SeedSubscription(t *testing.T, userID, planID uint, start time.Time, d time.Duration, active bool, link string) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.NewSubscription(userID, planID, start, d)
	require.NoError(t, err)
	if link != "" {
		sub.AttachInviteLink(link, start)
	}
	if !active {
		sub.Deactivate(start)
		if link != "" {
			sub.AttachInviteLink(link, start)
		}
	}
	require.NoError(t, s.Subscriptions.Create(context.Background(), sub))
	return sub
}

// Reload re-reads a subscription, failing the test if it disappeared.
func (s *Store) Reload(t *testing.T, id uint) *subscription.Subscription {
	t.Helper()
	sub, err := s.Subscriptions.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}
