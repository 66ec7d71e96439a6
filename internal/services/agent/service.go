// Package agent implements the user-facing agent operations: configurable
// AI personas that meetings attach to.
package agent

import (
	"context"
	"fmt"

	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/internal/repository"
)

// Service exposes ownership-scoped agent operations.
type Service struct {
	repos repository.RepositoryManager
}

// NewService creates a new agent service.
func NewService(repos repository.RepositoryManager) *Service {
	return &Service{repos: repos}
}

// Create creates an agent owned by the caller.
func (s *Service) Create(ctx context.Context, user domain.AuthUser, req *domain.CreateAgentRequest) (*domain.AgentWithMeetingCount, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent: %w", err)
	}
	return s.repos.Agents().Create(ctx, user.ID, req)
}

// GetOne retrieves one of the caller's agents.
func (s *Service) GetOne(ctx context.Context, user domain.AuthUser, id string) (*domain.AgentWithMeetingCount, error) {
	return s.repos.Agents().GetByID(ctx, id, user.ID)
}

// GetMany lists the caller's agents.
func (s *Service) GetMany(ctx context.Context, user domain.AuthUser, params domain.ListAgentsParams) (*domain.Page[domain.AgentWithMeetingCount], error) {
	return s.repos.Agents().List(ctx, user.ID, params)
}

// Update applies a partial update to one of the caller's agents.
func (s *Service) Update(ctx context.Context, user domain.AuthUser, id string, req *domain.UpdateAgentRequest) (*domain.AgentWithMeetingCount, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent update: %w", err)
	}
	return s.repos.Agents().Update(ctx, id, user.ID, req)
}

// Remove deletes one of the caller's agents. Agents still referenced by
// meetings are protected by the repository with ErrAgentInUse.
func (s *Service) Remove(ctx context.Context, user domain.AuthUser, id string) error {
	return s.repos.Agents().Delete(ctx, id, user.ID)
}
