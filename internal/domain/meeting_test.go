package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeetingStatusValid(t *testing.T) {
	for _, s := range []MeetingStatus{
		MeetingStatusUpcoming, MeetingStatusActive, MeetingStatusCompleted,
		MeetingStatusCancelled, MeetingStatusProcessing,
	} {
		assert.True(t, s.Valid(), "status %q should be valid", s)
	}

	assert.False(t, MeetingStatus("").Valid())
	assert.False(t, MeetingStatus("paused").Valid())
	assert.False(t, MeetingStatus("Upcoming").Valid(), "statuses are case sensitive")
}

func TestMeetingStatusTerminal(t *testing.T) {
	assert.True(t, MeetingStatusCompleted.Terminal())
	assert.True(t, MeetingStatusCancelled.Terminal())
	assert.False(t, MeetingStatusUpcoming.Terminal())
	assert.False(t, MeetingStatusActive.Terminal())
	assert.False(t, MeetingStatusProcessing.Terminal())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to MeetingStatus
		ok       bool
	}{
		{MeetingStatusUpcoming, MeetingStatusActive, true},
		{MeetingStatusUpcoming, MeetingStatusCancelled, true},
		{MeetingStatusActive, MeetingStatusCompleted, true},
		{MeetingStatusActive, MeetingStatusProcessing, true},
		{MeetingStatusProcessing, MeetingStatusCompleted, true},
		{MeetingStatusCancelled, MeetingStatusUpcoming, true},

		// illegal edges
		{MeetingStatusUpcoming, MeetingStatusCompleted, false},
		{MeetingStatusUpcoming, MeetingStatusProcessing, false},
		{MeetingStatusActive, MeetingStatusUpcoming, false},
		{MeetingStatusActive, MeetingStatusCancelled, false},
		{MeetingStatusCompleted, MeetingStatusActive, false},
		{MeetingStatusCompleted, MeetingStatusUpcoming, false},
		{MeetingStatusCancelled, MeetingStatusActive, false},
		{MeetingStatusProcessing, MeetingStatusActive, false},
		{MeetingStatusProcessing, MeetingStatusCancelled, false},

		// same-status is not an edge; callers treat it as a no-op
		{MeetingStatusActive, MeetingStatusActive, false},
		{MeetingStatusUpcoming, MeetingStatusUpcoming, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to),
			"transition %s -> %s", tt.from, tt.to)
	}
}

func TestTransitionSourcesCoversEveryStatus(t *testing.T) {
	// completed and cancelled are terminal but still reachable targets
	for _, to := range []MeetingStatus{
		MeetingStatusUpcoming, MeetingStatusActive, MeetingStatusCompleted,
		MeetingStatusCancelled, MeetingStatusProcessing,
	} {
		assert.NotEmpty(t, TransitionSources(to), "status %q should be reachable", to)
	}
}

func TestMeetingDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(42*time.Minute + 30*time.Second)

	m := &Meeting{StartedAt: &start, EndedAt: &end}
	assert.InDelta(t, 42.5, m.DurationMinutes(), 0.001)

	assert.Zero(t, (&Meeting{StartedAt: &start}).DurationMinutes())
	assert.Zero(t, (&Meeting{EndedAt: &end}).DurationMinutes())
	assert.Zero(t, (&Meeting{}).DurationMinutes())
}

func TestUpdateMeetingRequestValidate(t *testing.T) {
	name := "standup"
	empty := "  "
	badStatus := MeetingStatus("paused")
	goodStatus := MeetingStatusCancelled

	assert.NoError(t, (&UpdateMeetingRequest{}).Validate())
	assert.NoError(t, (&UpdateMeetingRequest{Name: &name, Status: &goodStatus}).Validate())
	assert.Error(t, (&UpdateMeetingRequest{Name: &empty}).Validate())
	assert.Error(t, (&UpdateMeetingRequest{AgentID: &empty}).Validate())
	assert.Error(t, (&UpdateMeetingRequest{Status: &badStatus}).Validate())
}
