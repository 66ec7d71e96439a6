package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"gorm.io/gorm"
)

// GormMeetingRepository implements MeetingRepository using GORM.
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewGormMeetingRepository creates a new GORM meeting repository.
func NewGormMeetingRepository(db *gorm.DB) *GormMeetingRepository {
	return &GormMeetingRepository{db: db}
}

// Create creates a new meeting in the upcoming state. The referenced agent
// must exist and belong to the same user.
func (r *GormMeetingRepository) Create(ctx context.Context, userID string, req *domain.CreateMeetingRequest) (*domain.Meeting, error) {
	var agent domain.Agent
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", req.AgentID, userID).
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve agent: %w", err)
	}

	meeting := &domain.Meeting{
		ID:      uuid.NewString(),
		UserID:  userID,
		AgentID: agent.ID,
		Name:    req.Name,
		Status:  domain.MeetingStatusUpcoming,
	}
	if err := r.db.WithContext(ctx).Create(meeting).Error; err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	meeting.Agent = &agent
	return meeting, nil
}

// GetByID retrieves a meeting with its agent, scoped to the owner.
func (r *GormMeetingRepository) GetByID(ctx context.Context, id, userID string) (*domain.MeetingWithAgent, error) {
	var meeting domain.Meeting
	err := r.db.WithContext(ctx).
		Preload("Agent").
		Where("id = ? AND user_id = ?", id, userID).
		First(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return &domain.MeetingWithAgent{Meeting: meeting, DurationMinutes: meeting.DurationMinutes()}, nil
}

// List returns one page of the user's meetings with their agents. Total is
// computed from the same predicate as the page of results.
func (r *GormMeetingRepository) List(ctx context.Context, userID string, params domain.ListMeetingsParams) (*domain.Page[domain.MeetingWithAgent], error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Meeting{}).Where("user_id = ?", userID)
		q = searchByName(q, params.Search)
		if params.AgentID != "" {
			q = q.Where("agent_id = ?", params.AgentID)
		}
		if params.Status != nil {
			q = q.Where("status = ?", *params.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count meetings: %w", err)
	}

	var meetings []domain.Meeting
	err := paginate(orderNewestFirst(base().Preload("Agent")), page, pageSize).
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	items := make([]domain.MeetingWithAgent, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, domain.MeetingWithAgent{Meeting: m, DurationMinutes: m.DurationMinutes()})
	}

	return &domain.Page[domain.MeetingWithAgent]{
		Items:      items,
		Total:      total,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}

// Update applies non-status fields, scoped to the owner. Status changes go
// through Transition.
func (r *GormMeetingRepository) Update(ctx context.Context, id, userID string, req *domain.UpdateMeetingRequest) (*domain.Meeting, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.AgentID != nil {
		var agent domain.Agent
		err := r.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *req.AgentID, userID).
			First(&agent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("failed to resolve agent: %w", err)
		}
		updates["agent_id"] = agent.ID
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).
			Model(&domain.Meeting{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update meeting: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, domain.ErrNotFound
		}
	}

	return r.getOwned(ctx, id, userID)
}

// Delete hard-deletes a meeting, scoped to the owner.
func (r *GormMeetingRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Meeting{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete meeting: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transition applies a user-initiated status change as a single conditional
// write: UPDATE ... WHERE status IN (legal sources). startedAt is stamped on
// entry to active and endedAt on entry to completed, each at most once.
func (r *GormMeetingRepository) Transition(ctx context.Context, id, userID string, to domain.MeetingStatus) (*domain.Meeting, error) {
	sources := domain.TransitionSources(to)
	if len(sources) == 0 {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": to}
	switch to {
	case domain.MeetingStatusActive:
		updates["started_at"] = gorm.Expr("COALESCE(started_at, ?)", now)
	case domain.MeetingStatusCompleted:
		updates["ended_at"] = gorm.Expr("COALESCE(ended_at, ?)", now)
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, userID, sources).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to transition meeting: %w", result.Error)
	}

	meeting, err := r.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		// The conditional write matched nothing: either the meeting already
		// carries the requested status (idempotent no-op) or the edge is not
		// on the graph.
		if meeting.Status == to {
			return meeting, nil
		}
		return nil, domain.ErrInvalidTransition
	}
	return meeting, nil
}

// GetForAttachment resolves a meeting with its agent by existence only.
func (r *GormMeetingRepository) GetForAttachment(ctx context.Context, id string) (*domain.Meeting, error) {
	var meeting domain.Meeting
	err := r.db.WithContext(ctx).
		Preload("Agent").
		Where("id = ?", id).
		First(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting for attachment: %w", err)
	}
	return &meeting, nil
}

// MarkCompleted transitions to completed from any non-terminal status.
// A meeting already completed or cancelled is left untouched, so a replayed
// call-ended event can never reopen or re-stamp a finished meeting.
func (r *GormMeetingRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(map[string]interface{}{
			"status":   domain.MeetingStatusCompleted,
			"ended_at": gorm.Expr("COALESCE(ended_at, ?)", now),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark meeting completed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkProcessing persists the recording URL and moves a non-terminal
// meeting into processing to await summary generation. The recording URL is
// persisted even when the status transition is skipped, so a late recording
// for an already-completed meeting is not lost.
func (r *GormMeetingRepository) MarkProcessing(ctx context.Context, id, recordingURL string) (bool, error) {
	urlResult := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ?", id).
		Update("recording_url", recordingURL)
	if urlResult.Error != nil {
		return false, fmt.Errorf("failed to persist recording url: %w", urlResult.Error)
	}
	if urlResult.RowsAffected == 0 {
		return false, domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Update("status", domain.MeetingStatusProcessing)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark meeting processing: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClaimAgentAttachment stamps agent_connected_at atomically. The WHERE
// clause is the whole idempotency story: only one delivery can move the
// column from NULL, and terminal meetings can never be claimed.
func (r *GormMeetingRepository) ClaimAgentAttachment(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ? AND agent_connected_at IS NULL AND status NOT IN ?", id, terminalStatuses()).
		Update("agent_connected_at", now)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim agent attachment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReleaseAgentAttachment clears the claim after a failed provider bridge.
func (r *GormMeetingRepository) ReleaseAgentAttachment(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("id = ?", id).
		Update("agent_connected_at", nil).Error
	if err != nil {
		return fmt.Errorf("failed to release agent attachment: %w", err)
	}
	return nil
}

func (r *GormMeetingRepository) getOwned(ctx context.Context, id, userID string) (*domain.Meeting, error) {
	var meeting domain.Meeting
	err := r.db.WithContext(ctx).
		Preload("Agent").
		Where("id = ? AND user_id = ?", id, userID).
		First(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &meeting, nil
}

func terminalStatuses() []domain.MeetingStatus {
	return []domain.MeetingStatus{domain.MeetingStatusCompleted, domain.MeetingStatusCancelled}
}
