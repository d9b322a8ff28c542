package usecases

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelgate/channelgate/internal/application/apptest"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

const (
	usersVol1 = `id,telegram_user_id,first_name,is_active,email,created_at,first_start_reminder_sent
1,100,Anna,t,,2024-01-10 08:00:00.123456+00,t
2,200,,t,,2024-02-01 09:30:00+00,f
3,,Ghost,t,,,f
`
	subsVol1 = `id,user_id,plan_id,start_date,end_date,is_active,invite_link,reminder_sent,last_day_reminder_sent,expired_reminder_sent,provider_payment_charge_id
10,1,4,2024-04-20 12:00:00+00,2024-05-20 12:00:00+00,t,https://t.me/+old1,t,f,f,ch_1
11,2,4,2024-01-01 00:00:00+00,2024-02-01 00:00:00+00,f,https://t.me/+stale,t,t,t,
12,9,4,2024-01-01 00:00:00+00,2024-02-01 00:00:00+00,t,,f,f,f,
`
	usersVol2 = `id,telegram_user_id,first_name,is_active,created_at,first_start_reminder_sent
1,300,Boris,f,2024-03-03 10:00:00,f
2,100,Anna,t,2024-01-10 08:00:00+00,t
`
	subsVol2 = `user_id,start_date,end_date,is_active,invite_link,reminder_sent,last_day_reminder_sent,expired_reminder_sent,provider_payment_charge_id
2,2024-04-25 12:00:00+00,2024-05-25 12:00:00+00,t,,f,f,f,ch_2
1,2024-04-01 00:00:00+03,2024-06-01 00:00:00+03,t,,f,f,f,
`
)

func writeDump(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func newImport(t *testing.T) (*apptest.Store, *ImportLegacyDumpUseCase) {
	t.Helper()
	s := apptest.NewStore(t)
	uc := NewImportLegacyDumpUseCase(s.Tx, s.Users, s.Plans, s.Subscriptions, logger.NewNop())
	uc.SetClock(apptest.NewClock(apptest.T0).Func())
	return s, uc
}

func TestReadLegacyDump(t *testing.T) {
	dir := writeDump(t, map[string]string{
		"users_vol2.csv": usersVol2,
		"users_vol1.csv": usersVol1,
		"subs_vol1.csv":  subsVol1,
	})

	volumes, err := ReadLegacyDump(dir)
	require.NoError(t, err)
	require.Len(t, volumes, 2)

	assert.Equal(t, "vol1", volumes[0].Label)
	assert.Len(t, volumes[0].Users, 3)
	assert.Len(t, volumes[0].Subscriptions, 3)
	assert.Equal(t, "vol2", volumes[1].Label)
	assert.Empty(t, volumes[1].Subscriptions, "a missing subs file is not an error")

	anna := volumes[0].Users[0]
	assert.Equal(t, "100", anna.TelegramUserID)
	assert.True(t, anna.RegistrationNudged)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 0, 0, 123456000, time.UTC), anna.CreatedAt)
	assert.True(t, volumes[0].Users[2].CreatedAt.IsZero())

	_, err = ReadLegacyDump(t.TempDir())
	assert.True(t, apperrors.IsValidationError(err))
}

func TestParsePGTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-12-18 07:12:00.123456+00", time.Date(2025, 12, 18, 7, 12, 0, 123456000, time.UTC)},
		{"2025-12-18 10:12:00+03", time.Date(2025, 12, 18, 7, 12, 0, 0, time.UTC)},
		{"2025-12-18 07:12:00+00:00", time.Date(2025, 12, 18, 7, 12, 0, 0, time.UTC)},
		{"2025-12-18 07:12:00", time.Date(2025, 12, 18, 7, 12, 0, 0, time.UTC)},
		{"2025-12-18T07:12:00Z", time.Date(2025, 12, 18, 7, 12, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePGTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := parsePGTime("yesterday")
	assert.Error(t, err)
	_, err = parsePGTime(" ")
	assert.Error(t, err)
}

func TestParsePGBool(t *testing.T) {
	for _, v := range []string{"t", "T", "true", "1", "yes"} {
		assert.True(t, parsePGBool(v), v)
	}
	for _, v := range []string{"f", "false", "0", "", "no"} {
		assert.False(t, parsePGBool(v), v)
	}
}

func TestParseLegacySubscriptions_Errors(t *testing.T) {
	_, err := ParseLegacySubscriptions(strings.NewReader("user_id,start_date\n1,2024-01-01\n"))
	assert.True(t, apperrors.IsValidationError(err), "end_date column is required")

	_, err = ParseLegacySubscriptions(strings.NewReader("user_id,start_date,end_date\n1,2024-01-01,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_date")
}

func TestImportLegacyDump(t *testing.T) {
	s, uc := newImport(t)
	ctx := context.Background()
	s.SeedPlan(t, "Legacy", 30000, 30, apptest.TestChannel)
	plan := s.SeedPlan(t, "Legacy", 50000, 30, apptest.TestChannel)

	volumes, err := ReadLegacyDump(writeDump(t, map[string]string{
		"users_vol1.csv": usersVol1,
		"subs_vol1.csv":  subsVol1,
		"users_vol2.csv": usersVol2,
		"subs_vol2.csv":  subsVol2,
	}))
	require.NoError(t, err)

	res, err := uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes, PlanName: "Legacy"})
	require.NoError(t, err)
	assert.Equal(t, &ImportLegacyDumpResult{
		PlanID:          plan.ID(),
		UsersCreated:    3,
		UsersExisting:   1,
		UsersSkipped:    1,
		SubsCreated:     4,
		SubsOrphaned:    1,
		SubsDeactivated: 1,
	}, res)

	anna, err := s.Users.GetByTelegramID(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, anna)
	assert.True(t, anna.RegistrationNudged())

	subs, err := s.Subscriptions.ListByUserID(ctx, anna.ID())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	active := 0
	for _, sub := range subs {
		assert.Equal(t, plan.ID(), sub.PlanID(), "bound to the newest plan of that name")
		if sub.IsActive() {
			active++
			assert.Equal(t, "ch_1", sub.PaymentChargeID())
			assert.Equal(t, "https://t.me/+old1", sub.InviteLink())
			assert.True(t, sub.ReminderSent())
		} else {
			assert.False(t, sub.HasInviteLink())
		}
	}
	assert.Equal(t, 1, active, "one active row per user")

	second, err := s.Users.GetByTelegramID(ctx, "200")
	require.NoError(t, err)
	stale, err := s.Subscriptions.ListByUserID(ctx, second.ID())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.False(t, stale[0].HasInviteLink(), "an inactive grant never keeps its link")
	assert.True(t, stale[0].ExpiredReminderSent())

	boris, err := s.Users.GetByTelegramID(ctx, "300")
	require.NoError(t, err)
	assert.False(t, boris.IsActive())

	// A repeated run changes nothing.
	again, err := uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes, PlanName: "Legacy"})
	require.NoError(t, err)
	assert.Zero(t, again.UsersCreated)
	assert.Zero(t, again.SubsCreated)
	assert.Equal(t, 4, again.SubsDuplicate)
}

func TestImportLegacyDump_DryRunAndValidation(t *testing.T) {
	s, uc := newImport(t)
	ctx := context.Background()

	volumes, err := ReadLegacyDump(writeDump(t, map[string]string{
		"users_vol1.csv": usersVol1,
		"subs_vol1.csv":  subsVol1,
	}))
	require.NoError(t, err)

	_, err = uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes, PlanName: "Legacy"})
	assert.True(t, apperrors.IsValidationError(err), "unknown plan")
	_, err = uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes})
	assert.True(t, apperrors.IsValidationError(err), "plan name required")

	s.SeedPlan(t, "Legacy", 50000, 30, apptest.TestChannel)
	res, err := uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes, PlanName: "Legacy", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UsersCreated)
	assert.Equal(t, 2, res.SubsCreated)

	user, err := s.Users.GetByTelegramID(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, user, "dry run rolls back")
}

func TestImportLegacyDump_RollsBackOnBadRow(t *testing.T) {
	s, uc := newImport(t)
	ctx := context.Background()
	s.SeedPlan(t, "Legacy", 50000, 30, apptest.TestChannel)

	volumes := []LegacyVolume{{
		Label: "vol1",
		Users: []LegacyUserRow{{LegacyID: "1", TelegramUserID: "100", Active: true}},
		Subscriptions: []LegacySubscriptionRow{{
			LegacyUserID: "1",
			StartDate:    apptest.T0,
			EndDate:      apptest.T0.Add(-time.Hour),
		}},
	}}

	_, err := uc.Execute(ctx, ImportLegacyDumpCommand{Volumes: volumes, PlanName: "Legacy"})
	assert.True(t, apperrors.IsValidationError(err))

	user, err := s.Users.GetByTelegramID(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, user)
}
