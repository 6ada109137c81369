package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/devauth"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeam_InviteAndList(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	b, ownerSt := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, ownerSt)

	m, err := e.team.Invite(ctx, owner, &domain.InviteMemberRequest{PhoneNumber: agentPhone, Name: "Ravi"})
	require.NoError(t, err)
	assert.True(t, m.Pending)
	assert.Equal(t, domain.StatusInvited, m.Status)
	assert.Equal(t, domain.RoleDefaults(domain.RoleAgent), m.Permissions)
	assert.Equal(t, b.ID, m.TenantID)

	_, err = e.team.Invite(ctx, owner, &domain.InviteMemberRequest{PhoneNumber: agentPhone})
	var ce *domain.ErrConflict
	require.True(t, errors.As(err, &ce), "duplicate invite")

	_, err = e.team.Invite(ctx, owner, &domain.InviteMemberRequest{PhoneNumber: ownerPhone})
	var ve *domain.ErrValidation
	require.True(t, errors.As(err, &ve), "self invite")

	members, err := e.team.ListMembers(ctx, owner)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.False(t, members[0].Pending)
	assert.Equal(t, owner.UID, members[0].UID)
	assert.True(t, members[1].Pending)
	assert.Equal(t, agentPhone, members[1].PhoneNumber)
}

func TestTeam_UpdatePermissions(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	b, ownerSt := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, ownerSt)

	_, agentSt := e.signIn(t, agentPhone)
	require.NoError(t, e.profiles.JoinTeam(ctx, agentSt, &domain.JoinTeamRequest{TeamCode: b.ID, Name: "Ravi"}))
	agentID := devauth.UserID(agentPhone)

	granted := domain.Permissions{CanViewLeads: true, CanViewRoi: true}
	m, err := e.team.UpdatePermissions(ctx, owner, agentID, &domain.UpdatePermissionsRequest{Permissions: granted})
	require.NoError(t, err)
	assert.Equal(t, granted, m.Permissions)

	// the agent's live session re-resolves without signing in again
	assert.Equal(t, granted, profileOf(t, agentSt).Permissions)
	assert.Equal(t, domain.RoleDefaults(domain.RoleBusinessOwner), profileOf(t, ownerSt).Permissions)

	_, err = e.team.UpdatePermissions(ctx, owner, owner.UID, &domain.UpdatePermissionsRequest{})
	var fe *domain.ErrForbidden
	assert.True(t, errors.As(err, &fe), "self edit")

	_, err = e.team.UpdatePermissions(ctx, owner, "uid-unknown", &domain.UpdatePermissionsRequest{})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestTeam_InviteRegisteredNumber(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	_, ownerSt := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, ownerSt)
	e.newOwner(t, agentPhone, "Other Realty")

	_, err := e.team.Invite(ctx, owner, &domain.InviteMemberRequest{PhoneNumber: agentPhone, Name: "Ravi"})
	var ce *domain.ErrConflict
	require.True(t, errors.As(err, &ce), "got %v", err)

	raw, err := e.store.Get(ctx, port.CollectionUsers, agentPhone)
	require.NoError(t, err)
	assert.Nil(t, raw, "no invite may be stored")

	members, err := e.team.ListMembers(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestTeam_InviteRefreshesSignedInInvitee(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	_, ownerSt := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, ownerSt)

	_, agentSt := e.signIn(t, agentPhone)
	require.Equal(t, domain.StatusNewUser, agentSt.Current().Status)

	_, err := e.team.Invite(ctx, owner, &domain.InviteMemberRequest{PhoneNumber: agentPhone, Name: "Ravi"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvited, awaitSettled(t, agentSt).Status)
}

func TestTeam_OtherTenantIsHidden(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	_, aSt := e.newOwner(t, ownerPhone, "A Realty")
	_, bSt := e.newOwner(t, agentPhone, "B Realty")
	ownerA, ownerB := profileOf(t, aSt), profileOf(t, bSt)

	_, err := e.team.UpdatePermissions(ctx, ownerA, ownerB.UID, &domain.UpdatePermissionsRequest{})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	members, err := e.team.ListMembers(ctx, ownerA)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestTeam_RequiresTenant(t *testing.T) {
	e := newEnv(t, testAuthConfig())

	_, err := e.team.ListMembers(context.Background(), domain.Profile{UID: "u", Role: domain.RoleBusinessOwner})
	var fe *domain.ErrForbidden
	assert.True(t, errors.As(err, &fe))
}
