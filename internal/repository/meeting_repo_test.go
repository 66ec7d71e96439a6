package repository

import (
	"context"
	"testing"

	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingCreateStartsUpcoming(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	assert.Equal(t, domain.MeetingStatusUpcoming, meeting.Status)
	assert.Nil(t, meeting.StartedAt)
	assert.Nil(t, meeting.EndedAt)
	assert.Nil(t, meeting.AgentConnectedAt)
	require.NotNil(t, meeting.Agent)
	assert.Equal(t, agent.ID, meeting.Agent.ID)

	// a foreign agent cannot be attached to my meeting
	_, err := NewGormMeetingRepository(db).Create(ctx, "intruder", &domain.CreateMeetingRequest{
		Name:    "sneaky",
		AgentID: agent.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMeetingGetByIDScoped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	got, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got.Agent)
	assert.Equal(t, "Scribe", got.Agent.Name)
	assert.Zero(t, got.DurationMinutes)

	_, err = repo.GetByID(ctx, meeting.ID, "intruder")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMeetingListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	scribe := seedAgent(t, db, "user-1", "Scribe")
	coach := seedAgent(t, db, "user-1", "Coach")
	m1 := seedMeeting(t, db, "user-1", scribe.ID, "Weekly Standup")
	seedMeeting(t, db, "user-1", coach.ID, "1:1 Coaching")
	setStatus(t, db, m1.ID, domain.MeetingStatusCompleted)

	byAgent, err := repo.List(ctx, "user-1", domain.ListMeetingsParams{AgentID: coach.ID})
	require.NoError(t, err)
	require.Len(t, byAgent.Items, 1)
	assert.Equal(t, "1:1 Coaching", byAgent.Items[0].Name)

	completed := domain.MeetingStatusCompleted
	byStatus, err := repo.List(ctx, "user-1", domain.ListMeetingsParams{Status: &completed})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, m1.ID, byStatus.Items[0].ID)

	bySearch, err := repo.List(ctx, "user-1", domain.ListMeetingsParams{Search: "standUP"})
	require.NoError(t, err)
	require.Len(t, bySearch.Items, 1)
	assert.Equal(t, m1.ID, bySearch.Items[0].ID)

	none, err := repo.List(ctx, "user-1", domain.ListMeetingsParams{Search: "retro"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.Zero(t, none.TotalPages)

	foreign, err := repo.List(ctx, "intruder", domain.ListMeetingsParams{})
	require.NoError(t, err)
	assert.Empty(t, foreign.Items)
}

func TestMeetingTransitionLegalEdges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	active, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusActive, active.Status)
	require.NotNil(t, active.StartedAt)

	completed, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusCompleted, completed.Status)
	require.NotNil(t, completed.EndedAt)
	assert.Equal(t, active.StartedAt.Unix(), completed.StartedAt.Unix(), "startedAt is set exactly once")
}

func TestMeetingTransitionIllegalEdge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	// upcoming -> completed skips active
	_, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusUpcoming, got.Status, "failed transition must not change the row")
}

func TestMeetingTransitionSameStatusNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	first, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusActive)
	require.NoError(t, err)

	again, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusActive, again.Status)
	assert.Equal(t, first.StartedAt.Unix(), again.StartedAt.Unix())
}

func TestMeetingTransitionCancelledReactivation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	_, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusCancelled)
	require.NoError(t, err)

	reopened, err := repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusUpcoming)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusUpcoming, reopened.Status)

	// completed stays closed
	_, err = repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusActive)
	require.NoError(t, err)
	_, err = repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusCompleted)
	require.NoError(t, err)
	_, err = repo.Transition(ctx, meeting.ID, "user-1", domain.MeetingStatusUpcoming)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMeetingTransitionScoped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	_, err := repo.Transition(ctx, meeting.ID, "intruder", domain.MeetingStatusActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Transition(ctx, "missing-id", "user-1", domain.MeetingStatusActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkCompletedIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")
	setStatus(t, db, meeting.ID, domain.MeetingStatusActive)

	changed, err := repo.MarkCompleted(ctx, meeting.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	first, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, first.EndedAt)

	// replayed delivery: no state change, endedAt untouched
	changed, err = repo.MarkCompleted(ctx, meeting.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	second, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.EndedAt.Unix(), second.EndedAt.Unix())
}

func TestMarkCompletedSkipsCancelled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")
	setStatus(t, db, meeting.ID, domain.MeetingStatusCancelled)

	changed, err := repo.MarkCompleted(ctx, meeting.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusCancelled, got.Status)
}

func TestMarkProcessingPersistsRecording(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")
	setStatus(t, db, meeting.ID, domain.MeetingStatusActive)

	changed, err := repo.MarkProcessing(ctx, meeting.ID, "https://recordings.example.com/m1.mp4")
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusProcessing, got.Status)
	require.NotNil(t, got.RecordingURL)
	assert.Equal(t, "https://recordings.example.com/m1.mp4", *got.RecordingURL)
}

func TestMarkProcessingKeepsLateRecordingForCompletedMeeting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")
	setStatus(t, db, meeting.ID, domain.MeetingStatusCompleted)

	changed, err := repo.MarkProcessing(ctx, meeting.ID, "https://recordings.example.com/late.mp4")
	require.NoError(t, err)
	assert.False(t, changed, "terminal status must not move back to processing")

	got, err := repo.GetByID(ctx, meeting.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingStatusCompleted, got.Status)
	require.NotNil(t, got.RecordingURL)
	assert.Equal(t, "https://recordings.example.com/late.mp4", *got.RecordingURL)
}

func TestClaimAgentAttachment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	claimed, err := repo.ClaimAgentAttachment(ctx, meeting.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// duplicate delivery loses the claim
	claimed, err = repo.ClaimAgentAttachment(ctx, meeting.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	// release reopens it for a later retry
	require.NoError(t, repo.ReleaseAgentAttachment(ctx, meeting.ID))
	claimed, err = repo.ClaimAgentAttachment(ctx, meeting.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimAgentAttachmentRejectsTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")
	setStatus(t, db, meeting.ID, domain.MeetingStatusCompleted)

	claimed, err := repo.ClaimAgentAttachment(ctx, meeting.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestGetForAttachmentIgnoresOwnership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormMeetingRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "user-1", "Scribe")
	meeting := seedMeeting(t, db, "user-1", agent.ID, "standup")

	got, err := repo.GetForAttachment(ctx, meeting.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Agent)
	assert.Equal(t, agent.ID, got.Agent.ID)

	_, err = repo.GetForAttachment(ctx, "missing-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
