package domain

import (
	"fmt"
	"strings"
	"time"
)

// MeetingStatus is the durable lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingStatusUpcoming   MeetingStatus = "upcoming"
	MeetingStatusActive     MeetingStatus = "active"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
	MeetingStatusProcessing MeetingStatus = "processing"
)

// Valid reports whether s is a known status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusUpcoming, MeetingStatusActive, MeetingStatusCompleted,
		MeetingStatusCancelled, MeetingStatusProcessing:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions other than the
// explicit cancelled->upcoming reactivation.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

// transitionSources maps each target status to the statuses a meeting may
// legally transition from. The only backward edge is cancelled->upcoming.
var transitionSources = map[MeetingStatus][]MeetingStatus{
	MeetingStatusActive:     {MeetingStatusUpcoming},
	MeetingStatusCompleted:  {MeetingStatusActive, MeetingStatusProcessing},
	MeetingStatusCancelled:  {MeetingStatusUpcoming},
	MeetingStatusProcessing: {MeetingStatusActive},
	MeetingStatusUpcoming:   {MeetingStatusCancelled},
}

// CanTransition reports whether from -> to is on the transition graph.
// A same-status "transition" is not on the graph; callers treat it as a
// no-op rather than an error.
func CanTransition(from, to MeetingStatus) bool {
	for _, src := range TransitionSources(to) {
		if src == from {
			return true
		}
	}
	return false
}

// TransitionSources returns the statuses a meeting must currently be in for
// a transition to the given status to be legal. Repositories use this as
// the predicate of a single conditional write, never a read-modify-write.
func TransitionSources(to MeetingStatus) []MeetingStatus {
	return transitionSources[to]
}

// Meeting pairs one user with one agent and tracks the session through its
// status lifecycle.
type Meeting struct {
	ID            string        `json:"id" gorm:"type:uuid;primary_key"`
	UserID        string        `json:"user_id" gorm:"type:varchar(255);not null;index"`
	AgentID       string        `json:"agent_id" gorm:"type:uuid;not null;index"`
	Agent         *Agent        `json:"agent,omitempty" gorm:"foreignKey:AgentID"`
	Name          string        `json:"name" gorm:"type:varchar(255);not null"`
	Status        MeetingStatus `json:"status" gorm:"type:varchar(32);not null;default:'upcoming';index"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	RecordingURL  *string       `json:"recording_url,omitempty" gorm:"type:text"`
	TranscriptURL *string       `json:"transcript_url,omitempty" gorm:"type:text"`
	Summary       *string       `json:"summary,omitempty" gorm:"type:text"`
	// AgentConnectedAt is the local idempotency ledger for agent attachment:
	// set atomically when the orchestrator claims the attach, cleared when the
	// provider bridge fails so a later delivery can retry.
	AgentConnectedAt *time.Time `json:"agent_connected_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// DurationMinutes returns the call duration in minutes, or 0 when the
// meeting has not both started and ended.
func (m *Meeting) DurationMinutes() float64 {
	if m.StartedAt == nil || m.EndedAt == nil {
		return 0
	}
	return m.EndedAt.Sub(*m.StartedAt).Minutes()
}

// MeetingWithAgent is a Meeting joined with its agent and derived duration.
type MeetingWithAgent struct {
	Meeting
	DurationMinutes float64 `json:"duration_minutes"`
}

// CreateMeetingRequest represents the request to create a new meeting.
type CreateMeetingRequest struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
}

// Validate checks the request shape before it reaches the store.
func (r *CreateMeetingRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.AgentID) == "" {
		return fmt.Errorf("agent is required")
	}
	return nil
}

// UpdateMeetingRequest represents a partial update to a meeting. A status
// change goes through the transition rules, never a blind overwrite.
type UpdateMeetingRequest struct {
	Name    *string        `json:"name,omitempty"`
	AgentID *string        `json:"agent_id,omitempty"`
	Status  *MeetingStatus `json:"status,omitempty"`
}

// Validate checks the request shape before it reaches the store.
func (r *UpdateMeetingRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.AgentID != nil && strings.TrimSpace(*r.AgentID) == "" {
		return fmt.Errorf("agent cannot be empty")
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", *r.Status)
	}
	return nil
}

// ListMeetingsParams are the filters for listing a user's meetings.
type ListMeetingsParams struct {
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Search   string         `json:"search,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	Status   *MeetingStatus `json:"status,omitempty"`
}
