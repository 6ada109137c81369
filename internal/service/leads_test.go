package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeads_CreateAndPipeline(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	_, st := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, st)

	l, err := e.leads.Create(ctx, owner, &domain.CreateLeadRequest{
		Name:   "Priya <i>Mehta</i>",
		Phone:  "9000000001",
		Source: "instagram",
		Tags:   []string{"2BHK", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Priya Mehta", l.Name)
	assert.Equal(t, "+919000000001", l.Phone)
	assert.Equal(t, domain.LeadNew, l.Status)
	assert.Equal(t, domain.SourceInstagram, l.Source)
	assert.Equal(t, []string{"2BHK"}, l.Tags)
	assert.True(t, l.Unread)

	moved, err := e.leads.UpdateStatus(ctx, owner, l.ID, &domain.UpdateLeadStatusRequest{Status: "visit scheduled"})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadVisitScheduled, moved.Status)
	assert.False(t, moved.Unread)

	cols, err := e.leads.Pipeline(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cols, len(domain.PipelineColumns))
	assert.Equal(t, domain.LeadVisitScheduled, cols[2].Status)
	assert.Equal(t, 1, cols[2].Count)
	assert.Equal(t, 0, cols[0].Count)

	filtered, err := e.leads.List(ctx, owner, service.LeadFilter{Status: "Visit Scheduled"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestLeads_AgentSeesOwnAndUnassigned(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	b, st := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, st)

	_, agentSt := e.signIn(t, agentPhone)
	require.NoError(t, e.profiles.JoinTeam(ctx, agentSt, &domain.JoinTeamRequest{TeamCode: b.ID, Name: "Ravi"}))
	agent := profileOf(t, agentSt)

	_, err := e.leads.Create(ctx, owner, &domain.CreateLeadRequest{Name: "Open", Phone: "9000000001"})
	require.NoError(t, err)
	hidden, err := e.leads.Create(ctx, owner, &domain.CreateLeadRequest{Name: "Other", Phone: "9000000002", AssignedTo: "uid-someone"})
	require.NoError(t, err)
	mine, err := e.leads.Create(ctx, agent, &domain.CreateLeadRequest{Name: "Mine", Phone: "9000000003", AssignedTo: "uid-someone"})
	require.NoError(t, err)
	assert.Equal(t, agent.UID, mine.AssignedTo, "agents can only assign to themselves")

	visible, err := e.leads.List(ctx, agent, service.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	all, err := e.leads.List(ctx, owner, service.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = e.leads.UpdateStatus(ctx, agent, hidden.ID, &domain.UpdateLeadStatusRequest{Status: "Closed"})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestLeads_TenantIsolation(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	_, aSt := e.newOwner(t, ownerPhone, "A Realty")
	_, bSt := e.newOwner(t, agentPhone, "B Realty")
	a, b := profileOf(t, aSt), profileOf(t, bSt)

	l, err := e.leads.Create(ctx, a, &domain.CreateLeadRequest{Name: "Lead", Phone: "9000000001"})
	require.NoError(t, err)

	_, err = e.leads.UpdateStatus(ctx, b, l.ID, &domain.UpdateLeadStatusRequest{Status: "Closed"})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	listed, err := e.leads.List(ctx, b, service.LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestLeads_Validation(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	actor := domain.Profile{UID: "u", TenantID: "t", Role: domain.RoleBusinessOwner}

	_, err := e.leads.Create(ctx, actor, &domain.CreateLeadRequest{Phone: "9000000001"})
	var ve *domain.ErrValidation
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	_, err = e.leads.List(ctx, actor, service.LeadFilter{Status: "Lost"})
	require.True(t, errors.As(err, &ve))

	_, err = e.leads.UpdateStatus(ctx, actor, "x", &domain.UpdateLeadStatusRequest{Status: "Lost"})
	require.True(t, errors.As(err, &ve))
}

func TestBuildPipeline(t *testing.T) {
	cols := service.BuildPipeline([]domain.Lead{
		{ID: "1", Status: domain.LeadClosed},
		{ID: "2", Status: domain.LeadNew},
		{ID: "3", Status: "Archived"},
	})

	require.Len(t, cols, 5)
	for i, c := range cols {
		assert.Equal(t, domain.PipelineColumns[i], c.Status)
		assert.NotNil(t, c.Leads)
	}
	assert.Equal(t, 2, cols[0].Count, "unknown statuses fall into the first column")
	assert.Equal(t, 1, cols[4].Count)
}

func TestVoiceLogs(t *testing.T) {
	e := newEnv(t, testAuthConfig())
	ctx := context.Background()
	b, st := e.newOwner(t, ownerPhone, "Sharma Realty")
	owner := profileOf(t, st)

	_, agentSt := e.signIn(t, agentPhone)
	require.NoError(t, e.profiles.JoinTeam(ctx, agentSt, &domain.JoinTeamRequest{TeamCode: b.ID, Name: "Ravi"}))
	agent := profileOf(t, agentSt)

	queued, err := e.voice.Record(ctx, agent, &domain.CreateVoiceLogRequest{DurationSeconds: 12})
	require.NoError(t, err)
	assert.Equal(t, domain.VoiceQueued, queued.Status)

	done, err := e.voice.Record(ctx, owner, &domain.CreateVoiceLogRequest{DurationSeconds: 30, Transcript: "add lead Priya", Intent: "add_lead"})
	require.NoError(t, err)
	assert.Equal(t, domain.VoiceProcessed, done.Status)
	assert.Equal(t, domain.IntentAddLead, done.Intent)

	_, err = e.voice.Record(ctx, agent, &domain.CreateVoiceLogRequest{DurationSeconds: 0})
	var ve *domain.ErrValidation
	require.True(t, errors.As(err, &ve))
	_, err = e.voice.Record(ctx, agent, &domain.CreateVoiceLogRequest{DurationSeconds: 5, Intent: "dance"})
	require.True(t, errors.As(err, &ve))

	mine, err := e.voice.List(ctx, agent)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := e.voice.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
