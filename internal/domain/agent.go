package domain

import (
	"fmt"
	"strings"
	"time"
)

// Agent represents a user-configured AI persona attachable to meetings.
type Agent struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key"`
	UserID        string    `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Description   string    `json:"description" gorm:"type:text"`
	Instructions  string    `json:"instructions" gorm:"type:text;not null"`
	Model         string    `json:"model" gorm:"type:varchar(255);not null;default:'gpt-4o-realtime-preview'"`
	ChatEnabled   bool      `json:"chat_enabled" gorm:"default:true"`
	VoiceEnabled  bool      `json:"voice_enabled" gorm:"default:true"`
	VisionEnabled bool      `json:"vision_enabled" gorm:"default:false"`
	Temperature   float64   `json:"temperature" gorm:"default:0.7"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

// AgentWithMeetingCount is an Agent joined with the number of meetings
// referencing it.
type AgentWithMeetingCount struct {
	Agent
	MeetingCount int64 `json:"meeting_count"`
}

// CreateAgentRequest represents the request to create a new agent.
type CreateAgentRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Instructions  string   `json:"instructions"`
	Model         string   `json:"model,omitempty"`
	ChatEnabled   *bool    `json:"chat_enabled,omitempty"`
	VoiceEnabled  *bool    `json:"voice_enabled,omitempty"`
	VisionEnabled *bool    `json:"vision_enabled,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Validate checks the request shape before it reaches the store.
func (r *CreateAgentRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Instructions) == "" {
		return fmt.Errorf("instructions are required")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0.0 and 1.0")
	}
	return nil
}

// UpdateAgentRequest represents a partial update to an agent.
type UpdateAgentRequest struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Instructions  *string  `json:"instructions,omitempty"`
	Model         *string  `json:"model,omitempty"`
	ChatEnabled   *bool    `json:"chat_enabled,omitempty"`
	VoiceEnabled  *bool    `json:"voice_enabled,omitempty"`
	VisionEnabled *bool    `json:"vision_enabled,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Validate checks the request shape before it reaches the store.
func (r *UpdateAgentRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.Instructions != nil && strings.TrimSpace(*r.Instructions) == "" {
		return fmt.Errorf("instructions cannot be empty")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0.0 and 1.0")
	}
	return nil
}

// ListAgentsParams are the filters for listing a user's agents.
type ListAgentsParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search,omitempty"`
}
