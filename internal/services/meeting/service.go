// Package meeting implements the user-facing meeting operations and the
// transition rules they must obey.
package meeting

import (
	"context"
	"fmt"
	"time"

	"github.com/novameet/meeting-agent-service/internal/adapters/realtime"
	"github.com/novameet/meeting-agent-service/internal/config"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/internal/repository"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"github.com/novameet/meeting-agent-service/pkg/redis"
	"go.uber.org/zap"
)

// Service exposes ownership-scoped meeting operations.
type Service struct {
	repos    repository.RepositoryManager
	provider realtime.Client
	cfg      *config.Config
	cache    *redis.Service // optional; nil means no token caching
}

// NewService creates a new meeting service. cache may be nil.
func NewService(repos repository.RepositoryManager, provider realtime.Client, cfg *config.Config, cache *redis.Service) *Service {
	return &Service{repos: repos, provider: provider, cfg: cfg, cache: cache}
}

// Create creates a meeting in the upcoming state, registers the owner with
// the realtime provider, and creates the call resource keyed by the meeting
// id. Provider errors propagate to the caller; the meeting row survives so
// a retried create does not duplicate it on the provider side either.
func (s *Service) Create(ctx context.Context, user domain.AuthUser, req *domain.CreateMeetingRequest) (*domain.Meeting, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meeting: %w", err)
	}

	meeting, err := s.repos.Meetings().Create(ctx, user.ID, req)
	if err != nil {
		return nil, err
	}

	image := user.Image
	if image == "" {
		image = realtime.AvatarURL(user.ID, user.Name)
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	if err := s.provider.UpsertUsers(ctx, []realtime.UpsertUser{{
		ID:    user.ID,
		Name:  name,
		Image: image,
	}}); err != nil {
		return nil, fmt.Errorf("meeting created but provider user registration failed: %w", err)
	}

	if err := s.provider.GetOrCreateCall(ctx, config.DefaultCallType, meeting.ID, realtime.CallData{
		CreatedByID: user.ID,
		Name:        meeting.Name,
	}); err != nil {
		return nil, fmt.Errorf("meeting created but call resource creation failed: %w", err)
	}

	return meeting, nil
}

// GetOne retrieves one of the caller's meetings with its agent and derived
// duration.
func (s *Service) GetOne(ctx context.Context, user domain.AuthUser, id string) (*domain.MeetingWithAgent, error) {
	return s.repos.Meetings().GetByID(ctx, id, user.ID)
}

// GetMany lists the caller's meetings.
func (s *Service) GetMany(ctx context.Context, user domain.AuthUser, params domain.ListMeetingsParams) (*domain.Page[domain.MeetingWithAgent], error) {
	return s.repos.Meetings().List(ctx, user.ID, params)
}

// Update applies a partial update. A requested status change goes through
// the transition rules; ending or cancelling a meeting also tears down the
// provider call resource, best-effort.
func (s *Service) Update(ctx context.Context, user domain.AuthUser, id string, req *domain.UpdateMeetingRequest) (*domain.Meeting, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meeting update: %w", err)
	}

	if req.Name == nil && req.AgentID == nil && req.Status == nil {
		existing, err := s.repos.Meetings().GetByID(ctx, id, user.ID)
		if err != nil {
			return nil, err
		}
		return &existing.Meeting, nil
	}

	var meeting *domain.Meeting
	var err error

	if req.Name != nil || req.AgentID != nil {
		meeting, err = s.repos.Meetings().Update(ctx, id, user.ID, req)
		if err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		meeting, err = s.repos.Meetings().Transition(ctx, id, user.ID, *req.Status)
		if err != nil {
			return nil, err
		}
		if req.Status.Terminal() {
			s.teardownCall(ctx, id)
		}
	}

	return meeting, nil
}

// Remove hard-deletes one of the caller's meetings and tears down the
// provider call resource, best-effort.
func (s *Service) Remove(ctx context.Context, user domain.AuthUser, id string) error {
	if err := s.repos.Meetings().Delete(ctx, id, user.ID); err != nil {
		return err
	}
	s.teardownCall(ctx, id)
	return nil
}

// GenerateToken issues a short-lived provider join credential for the
// caller. Tokens are cached in Redis for slightly less than their lifetime
// when a cache is configured.
func (s *Service) GenerateToken(ctx context.Context, user domain.AuthUser) (string, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey(redis.ProviderToken, user.ID)
		if cached, err := s.cache.GetValue(ctx, key); err == nil && cached != "" {
			return cached, nil
		}
	}

	token, err := s.provider.GenerateUserToken(user.ID, s.cfg.TokenTTL, s.cfg.TokenIATSkew)
	if err != nil {
		return "", fmt.Errorf("failed to generate provider token: %w", err)
	}

	if s.cache != nil {
		key := s.cache.GenerateKey(redis.ProviderToken, user.ID)
		cacheTTL := s.cfg.TokenTTL - 5*time.Minute
		if cacheTTL > 0 {
			if err := s.cache.SetValue(ctx, key, token, cacheTTL); err != nil {
				logger.Base().Warn("failed to cache provider token", zap.Error(err), zap.String("user_id", user.ID))
			}
		}
	}

	return token, nil
}

func (s *Service) teardownCall(ctx context.Context, meetingID string) {
	if err := s.provider.EndCall(ctx, config.DefaultCallType, meetingID); err != nil {
		logger.Base().Warn("failed to tear down provider call",
			zap.Error(err),
			zap.String("meeting_id", meetingID))
	}
}
