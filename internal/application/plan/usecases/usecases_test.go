package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelgate/channelgate/internal/application/apptest"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

const catalogYAML = `
channel_id: "-1001234567890"
plans:
  - name: Monthly
    description: 30 days of access
    price: 50000
    duration_days: 30
  - name: Trial
    price: 0
    duration_days: 0.5
    channel_id: "-100999"
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Len(t, c.Plans, 2)
	assert.Equal(t, "-1001234567890", c.Plans[0].ChannelID, "inherits the catalog channel")
	assert.Equal(t, "-100999", c.Plans[1].ChannelID)
	assert.Equal(t, 0.5, c.Plans[1].DurationDays)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := map[string]string{
		"no plans":       "plans: []\n",
		"zero duration":  "plans:\n  - name: A\n    price: 1\n    duration_days: 0\n",
		"missing name":   "plans:\n  - price: 1\n    duration_days: 1\n",
		"unknown field":  "plans:\n  - name: A\n    price: 1\n    duration_days: 1\n    colour: red\n",
		"duplicate plan": "plans:\n  - name: A\n    price: 1\n    duration_days: 1\n  - name: A\n    price: 1\n    duration_days: 1\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}
}

func TestSyncCatalog_Idempotent(t *testing.T) {
	s := apptest.NewStore(t)
	uc := NewSyncCatalogUseCase(s.Tx, s.Plans, logger.NewNop())
	ctx := context.Background()

	catalog, err := ParseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	first, err := uc.Execute(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	require.Len(t, first.PlanIDs, 2)

	second, err := uc.Execute(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, first.PlanIDs, second.PlanIDs)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	assert.Zero(t, second.Retired)

	plans, err := s.Plans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestSyncCatalog_UpdatesNonIdentityFieldsInPlace(t *testing.T) {
	s := apptest.NewStore(t)
	uc := NewSyncCatalogUseCase(s.Tx, s.Plans, logger.NewNop())
	ctx := context.Background()
	existing := s.SeedPlan(t, "Monthly", 50000, 30, "-100old")

	res, err := uc.Execute(ctx, &Catalog{Plans: []PlanDefinition{
		{Name: "Monthly", Description: "new text", Price: 50000, DurationDays: 30, ChannelID: "-100new"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []uint{existing.ID()}, res.PlanIDs)
	assert.Equal(t, 1, res.Updated)

	plan, err := s.Plans.GetByID(ctx, existing.ID())
	require.NoError(t, err)
	assert.Equal(t, "new text", plan.Description())
	assert.Equal(t, "-100new", plan.ChannelID())
}

func TestSyncCatalog_RetiresPlansMissingFromCatalog(t *testing.T) {
	s := apptest.NewStore(t)
	uc := NewSyncCatalogUseCase(s.Tx, s.Plans, logger.NewNop())
	uc.SetClock(func() time.Time { return apptest.T0 })
	ctx := context.Background()
	old := s.SeedPlan(t, "Old", 100, 30, apptest.TestChannel)
	oldDef := PlanDefinition{Name: "Old", Price: 100, DurationDays: 30, ChannelID: apptest.TestChannel}
	monthlyDef := PlanDefinition{Name: "Monthly", Price: 120, DurationDays: 30, ChannelID: apptest.TestChannel}

	res, err := uc.Execute(ctx, &Catalog{Plans: []PlanDefinition{monthlyDef}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Retired)

	retired, err := s.Plans.GetByID(ctx, old.ID())
	require.NoError(t, err)
	assert.True(t, retired.IsRetired())
	assert.False(t, retired.Purchasable())
	require.NotNil(t, retired.RetiredAt())
	assert.True(t, apptest.T0.Equal(*retired.RetiredAt()))

	current, err := s.Plans.ListCurrent(ctx)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, res.PlanIDs[0], current[0].ID())

	all, err := s.Plans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "retired plans stay for historical grants")

	again, err := uc.Execute(ctx, &Catalog{Plans: []PlanDefinition{monthlyDef}})
	require.NoError(t, err)
	assert.Zero(t, again.Retired)

	back, err := uc.Execute(ctx, &Catalog{Plans: []PlanDefinition{oldDef, monthlyDef}})
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID(), res.PlanIDs[0]}, back.PlanIDs)
	assert.Equal(t, 1, back.Updated)
	assert.Zero(t, back.Retired)

	reinstated, err := s.Plans.GetByID(ctx, old.ID())
	require.NoError(t, err)
	assert.False(t, reinstated.IsRetired())
}

func TestMigrateSupersededPlans_PreservesAccess(t *testing.T) {
	s := apptest.NewStore(t)
	ctx := context.Background()
	log := logger.NewNop()

	old := s.SeedPlan(t, "Old", 100, 30, apptest.TestChannel)
	user := s.SeedUser(t, "7", apptest.T0.Add(-time.Hour))
	active := s.SeedSubscription(t, user.ID(), old.ID(), apptest.T0.Add(-time.Hour), 30*24*time.Hour, true, "https://t.me/+x")
	ended := s.SeedSubscription(t, user.ID(), old.ID(), apptest.T0.Add(-90*24*time.Hour), 30*24*time.Hour, false, "")

	synced, err := NewSyncCatalogUseCase(s.Tx, s.Plans, log).Execute(ctx, &Catalog{Plans: []PlanDefinition{
		{Name: "New-Monthly", Price: 120, DurationDays: 30, ChannelID: apptest.TestChannel},
	}})
	require.NoError(t, err)
	successor := synced.PlanIDs[0]

	migrate := NewMigrateSupersededPlansUseCase(s.Tx, s.Plans, s.Subscriptions, log)
	migrate.SetClock(func() time.Time { return apptest.T0 })
	moved, err := migrate.Execute(ctx, MigrateSupersededPlansCommand{CatalogPlanIDs: synced.PlanIDs, TargetPlanID: successor})
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	got := s.Reload(t, active.ID())
	assert.Equal(t, successor, got.PlanID())
	assert.True(t, got.IsActive())
	assert.Equal(t, active.EndDate(), got.EndDate())
	assert.Equal(t, "https://t.me/+x", got.InviteLink())

	assert.Equal(t, old.ID(), s.Reload(t, ended.ID()).PlanID(), "ended grants keep their history")
}

func TestMigrateSupersededPlans_TargetByName(t *testing.T) {
	s := apptest.NewStore(t)
	ctx := context.Background()
	old := s.SeedPlan(t, "Old", 100, 30, "")
	target := s.SeedPlan(t, "Monthly", 120, 30, "")
	user := s.SeedUser(t, "7", apptest.T0)
	sub := s.SeedSubscription(t, user.ID(), old.ID(), apptest.T0, 24*time.Hour, true, "")

	uc := NewMigrateSupersededPlansUseCase(s.Tx, s.Plans, s.Subscriptions, logger.NewNop())
	_, err := uc.Execute(ctx, MigrateSupersededPlansCommand{CatalogPlanIDs: []uint{target.ID()}, TargetPlanName: "Monthly"})
	require.NoError(t, err)
	assert.Equal(t, target.ID(), s.Reload(t, sub.ID()).PlanID())
}

func TestMigrateSupersededPlans_MissingTargetIsValidationFailure(t *testing.T) {
	s := apptest.NewStore(t)
	uc := NewMigrateSupersededPlansUseCase(s.Tx, s.Plans, s.Subscriptions, logger.NewNop())

	_, err := uc.Execute(context.Background(), MigrateSupersededPlansCommand{CatalogPlanIDs: []uint{1}, TargetPlanID: 404})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = uc.Execute(context.Background(), MigrateSupersededPlansCommand{CatalogPlanIDs: []uint{1}})
	assert.True(t, apperrors.IsValidationError(err))
}
