package telegram

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

func newTestGateway(api *fakeAPI) *MembershipGateway {
	g := NewMembershipGateway(api.bot(), fastGatewayConfig(), logger.NewNop())
	g.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return g
}

func TestMembershipGateway_CreateInvite(t *testing.T) {
	api := newFakeAPI(t)
	api.ok("createChatInviteLink", map[string]any{"invite_link": "https://t.me/+abc", "creates_join_request": true})
	g := newTestGateway(api)

	invite, err := g.CreateInvite(context.Background(), "-100123", "42")
	require.NoError(t, err)

	assert.Equal(t, "https://t.me/+abc", invite.Link)
	assert.Equal(t, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), invite.ExpiresAt)

	call := api.lastCall("createChatInviteLink")
	assert.Equal(t, "-100123", call["chat_id"])
	assert.Equal(t, "Subscription_42", call["name"])
	assert.Equal(t, true, call["creates_join_request"])
	assert.Equal(t, float64(invite.ExpiresAt.Unix()), call["expire_date"])
}

func TestMembershipGateway_RetriesTransientFailures(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("createChatInviteLink", http.StatusBadGateway, "Bad Gateway")
	api.fail("createChatInviteLink", http.StatusInternalServerError, "Internal Server Error")
	api.ok("createChatInviteLink", map[string]any{"invite_link": "https://t.me/+retry"})
	g := newTestGateway(api)

	invite, err := g.CreateInvite(context.Background(), "-100123", "42")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+retry", invite.Link)
	assert.Equal(t, 3, api.callCount("createChatInviteLink"))
}

func TestMembershipGateway_GivesUpAfterMaxAttempts(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("createChatInviteLink", http.StatusBadGateway, "Bad Gateway")
	g := newTestGateway(api)

	_, err := g.CreateInvite(context.Background(), "-100123", "42")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.Equal(t, 3, api.callCount("createChatInviteLink"))
}

func TestMembershipGateway_PermanentFailureIsNotRetried(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("createChatInviteLink", http.StatusBadRequest, "Bad Request: not enough rights to manage chat invite link")
	g := newTestGateway(api)

	_, err := g.CreateInvite(context.Background(), "-100123", "42")
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Equal(t, 1, api.callCount("createChatInviteLink"))
}

func TestMembershipGateway_RevokeInviteToleratesGoneLinks(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("revokeChatInviteLink", http.StatusBadRequest, "Bad Request: INVITE_HASH_EXPIRED")
	g := newTestGateway(api)

	require.NoError(t, g.RevokeInvite(context.Background(), "-100123", "https://t.me/+old"))
	assert.Equal(t, "https://t.me/+old", api.lastCall("revokeChatInviteLink")["invite_link"])
}

func TestMembershipGateway_RevokeMembershipBansThenUnbans(t *testing.T) {
	api := newFakeAPI(t)
	g := newTestGateway(api)

	require.NoError(t, g.RevokeMembership(context.Background(), "-100123", "42"))

	assert.Equal(t, 1, api.callCount("banChatMember"))
	unban := api.lastCall("unbanChatMember")
	assert.Equal(t, float64(42), unban["user_id"])
	assert.Equal(t, true, unban["only_if_banned"])
}

func TestMembershipGateway_RevokeMembershipOfAbsentUser(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("banChatMember", http.StatusBadRequest, "Bad Request: USER_NOT_PARTICIPANT")
	g := newTestGateway(api)

	require.NoError(t, g.RevokeMembership(context.Background(), "-100123", "42"))
	assert.Zero(t, api.callCount("unbanChatMember"))
}

func TestMembershipGateway_RevokeMembershipRejectsMalformedID(t *testing.T) {
	api := newFakeAPI(t)
	g := newTestGateway(api)

	err := g.RevokeMembership(context.Background(), "-100123", "not-a-number")
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Zero(t, api.callCount("banChatMember"))
}

func TestMembershipGateway_MembershipStatus(t *testing.T) {
	tests := []struct {
		status string
		want   subscription.MemberStatus
	}{
		{"creator", subscription.MemberStatusMember},
		{"administrator", subscription.MemberStatusMember},
		{"member", subscription.MemberStatusMember},
		{"restricted", subscription.MemberStatusMember},
		{"left", subscription.MemberStatusLeft},
		{"kicked", subscription.MemberStatusKicked},
		{"something_new", subscription.MemberStatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			api := newFakeAPI(t)
			api.ok("getChatMember", map[string]any{"status": tt.status})
			g := newTestGateway(api)

			got, err := g.MembershipStatus(context.Background(), "-100123", "42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMembershipGateway_MembershipStatusOfUnknownUser(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("getChatMember", http.StatusBadRequest, "Bad Request: user not found")
	g := newTestGateway(api)

	got, err := g.MembershipStatus(context.Background(), "-100123", "42")
	require.NoError(t, err)
	assert.Equal(t, subscription.MemberStatusLeft, got)
}

func TestMembershipGateway_AnswerJoin(t *testing.T) {
	api := newFakeAPI(t)
	g := newTestGateway(api)

	require.NoError(t, g.ApproveJoin(context.Background(), "-100123", "42"))
	require.NoError(t, g.DeclineJoin(context.Background(), "-100123", "43"))

	assert.Equal(t, float64(42), api.lastCall("approveChatJoinRequest")["user_id"])
	assert.Equal(t, float64(43), api.lastCall("declineChatJoinRequest")["user_id"])
}
