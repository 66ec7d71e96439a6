// Package call keeps the durable meeting record synchronized with the
// realtime provider's view of the call, and attaches the configured AI
// agent to a started call exactly once.
package call

import (
	"context"
	"errors"
	"fmt"

	"github.com/novameet/meeting-agent-service/internal/adapters/realtime"
	"github.com/novameet/meeting-agent-service/internal/config"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/internal/repository"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"github.com/novameet/meeting-agent-service/pkg/retry"
	"go.uber.org/zap"
)

// Service reacts to provider call-lifecycle signals. Nothing here is
// user-initiated: lookups are scoped by existence, and every method is safe
// to invoke more than once for the same call.
type Service struct {
	repos    repository.RepositoryManager
	provider realtime.Client
	cfg      *config.Config
}

// NewService creates a new call service.
func NewService(repos repository.RepositoryManager, provider realtime.Client, cfg *config.Config) *Service {
	return &Service{repos: repos, provider: provider, cfg: cfg}
}

// Provider exposes the realtime client for webhook verification.
func (s *Service) Provider() realtime.Client {
	return s.provider
}

// EnsureAgentConnected resolves the meeting behind a started call and
// bridges its AI agent into the call exactly once.
//
// The meeting row may not be visible yet when the provider's event arrives
// (the create commit and the webhook race across systems), so the lookup is
// retried a bounded number of times. Guard conditions short-circuit without
// error: a missing meeting, a meeting without an agent, and a meeting that
// already finished are all legitimate reasons to do nothing. The
// agentConnectedAt claim makes repeated deliveries for the same call
// no-ops without leaning solely on the provider's own upsert idempotency.
func (s *Service) EnsureAgentConnected(ctx context.Context, rawCID string) error {
	cid, err := domain.ParseCallCID(rawCID, config.DefaultCallType)
	if err != nil {
		return fmt.Errorf("unusable call identifier: %w", err)
	}

	var meeting *domain.Meeting
	err = retry.Do(ctx, s.cfg.AttachRetryAttempts, s.cfg.AttachRetryBackoff, func(ctx context.Context) error {
		m, lookupErr := s.repos.Meetings().GetForAttachment(ctx, cid.MeetingID)
		if lookupErr != nil {
			return lookupErr
		}
		meeting = m
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Base().Warn("meeting not found after retries, skipping agent attachment",
				zap.String("meeting_id", cid.MeetingID),
				zap.Int("attempts", s.cfg.AttachRetryAttempts))
			return nil
		}
		return fmt.Errorf("meeting lookup failed: %w", err)
	}

	if meeting.Agent == nil {
		logger.Base().Warn("meeting has no agent assigned, skipping attachment",
			zap.String("meeting_id", meeting.ID))
		return nil
	}
	if meeting.Status.Terminal() {
		logger.Base().Info("meeting already finished, ignoring stale call-started event",
			zap.String("meeting_id", meeting.ID),
			zap.String("status", string(meeting.Status)))
		return nil
	}
	if meeting.AgentConnectedAt != nil {
		logger.Base().Debug("agent already connected, nothing to do",
			zap.String("meeting_id", meeting.ID))
		return nil
	}

	claimed, err := s.repos.Meetings().ClaimAgentAttachment(ctx, meeting.ID)
	if err != nil {
		return fmt.Errorf("failed to claim attachment: %w", err)
	}
	if !claimed {
		logger.Base().Debug("attachment already claimed by a concurrent delivery",
			zap.String("meeting_id", meeting.ID))
		return nil
	}

	if err := s.attachAgent(ctx, cid, meeting); err != nil {
		// Release the claim so the provider's next delivery can retry the
		// bridge; the claim only protects against concurrent duplicates.
		if relErr := s.repos.Meetings().ReleaseAgentAttachment(ctx, meeting.ID); relErr != nil {
			logger.Base().Error("failed to release attachment claim",
				zap.Error(relErr), zap.String("meeting_id", meeting.ID))
		}
		return err
	}

	logger.Base().Info("agent connected to call",
		zap.String("meeting_id", meeting.ID),
		zap.String("agent_id", meeting.Agent.ID))
	return nil
}

func (s *Service) attachAgent(ctx context.Context, cid domain.CallID, meeting *domain.Meeting) error {
	agent := meeting.Agent
	botID := realtime.BotUserID(agent.ID)
	botName := agent.Name + " (AI)"

	if err := s.provider.UpsertUsers(ctx, []realtime.UpsertUser{{
		ID:    botID,
		Name:  botName,
		Role:  "bot",
		Image: realtime.AvatarURL(botID, botName),
	}}); err != nil {
		return fmt.Errorf("failed to register agent identity: %w", err)
	}

	if err := s.provider.GetOrCreateCall(ctx, cid.Type, cid.MeetingID, realtime.CallData{
		CreatedByID: meeting.UserID,
		Name:        meeting.Name,
	}); err != nil {
		return fmt.Errorf("failed to resolve call resource: %w", err)
	}

	instructions := agent.Instructions
	if instructions == "" {
		instructions = config.DefaultAgentInstructions
	}

	if err := s.provider.ConnectAgent(ctx, cid.Type, cid.MeetingID, realtime.AgentSession{
		AgentUserID:  botID,
		Instructions: instructions,
		Session:      s.cfg.Realtime,
	}); err != nil {
		return fmt.Errorf("failed to bridge agent into call: %w", err)
	}

	return nil
}

// HandleCallEnded marks the meeting completed. Terminal meetings are left
// untouched; endedAt is stamped exactly once by the conditional write.
func (s *Service) HandleCallEnded(ctx context.Context, rawCID string) error {
	cid, err := domain.ParseCallCID(rawCID, config.DefaultCallType)
	if err != nil {
		return fmt.Errorf("unusable call identifier: %w", err)
	}

	changed, err := s.repos.Meetings().MarkCompleted(ctx, cid.MeetingID)
	if err != nil {
		return fmt.Errorf("failed to complete meeting: %w", err)
	}
	if !changed {
		logger.Base().Debug("call-ended event for meeting already terminal",
			zap.String("meeting_id", cid.MeetingID))
		return nil
	}

	logger.Base().Info("meeting completed", zap.String("meeting_id", cid.MeetingID))
	return nil
}

// HandleRecordingReady persists the recording URL and moves the meeting to
// processing to await summary generation.
func (s *Service) HandleRecordingReady(ctx context.Context, rawCID, recordingURL string) error {
	cid, err := domain.ParseCallCID(rawCID, config.DefaultCallType)
	if err != nil {
		return fmt.Errorf("unusable call identifier: %w", err)
	}
	if recordingURL == "" {
		return fmt.Errorf("recording-ready event without a url for meeting %s", cid.MeetingID)
	}

	transitioned, err := s.repos.Meetings().MarkProcessing(ctx, cid.MeetingID, recordingURL)
	if err != nil {
		return fmt.Errorf("failed to mark meeting processing: %w", err)
	}

	logger.Base().Info("recording persisted",
		zap.String("meeting_id", cid.MeetingID),
		zap.Bool("transitioned_to_processing", transitioned))
	return nil
}

// HandleParticipantLeft is an observer hook. It currently records the
// departure only; auto-disconnecting the agent when no humans remain would
// hang off this method.
func (s *Service) HandleParticipantLeft(ctx context.Context, rawCID, participantID string) error {
	cid, err := domain.ParseCallCID(rawCID, config.DefaultCallType)
	if err != nil {
		return fmt.Errorf("unusable call identifier: %w", err)
	}

	logger.Base().Info("participant left call",
		zap.String("meeting_id", cid.MeetingID),
		zap.String("participant_id", participantID))
	return nil
}
