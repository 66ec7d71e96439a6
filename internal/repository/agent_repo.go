package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"gorm.io/gorm"
)

// GormAgentRepository implements AgentRepository using GORM.
type GormAgentRepository struct {
	db *gorm.DB
}

// NewGormAgentRepository creates a new GORM agent repository.
func NewGormAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

// Create creates a new agent owned by userID.
func (r *GormAgentRepository) Create(ctx context.Context, userID string, req *domain.CreateAgentRequest) (*domain.AgentWithMeetingCount, error) {
	agent := &domain.Agent{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		Model:        req.Model,
		ChatEnabled:  true,
		VoiceEnabled: true,
		Temperature:  0.7,
	}
	if agent.Model == "" {
		agent.Model = "gpt-4o-realtime-preview"
	}
	if req.ChatEnabled != nil {
		agent.ChatEnabled = *req.ChatEnabled
	}
	if req.VoiceEnabled != nil {
		agent.VoiceEnabled = *req.VoiceEnabled
	}
	if req.VisionEnabled != nil {
		agent.VisionEnabled = *req.VisionEnabled
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}

	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &domain.AgentWithMeetingCount{Agent: *agent, MeetingCount: 0}, nil
}

// GetByID retrieves an agent by id, scoped to its owner. A missing row and
// a row owned by someone else are both ErrNotFound.
func (r *GormAgentRepository) GetByID(ctx context.Context, id, userID string) (*domain.AgentWithMeetingCount, error) {
	var agent domain.Agent
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	count, err := r.meetingCount(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	return &domain.AgentWithMeetingCount{Agent: agent, MeetingCount: count}, nil
}

// List returns one page of the user's agents with per-agent meeting counts.
// The total is computed from the same predicate as the page of results.
func (r *GormAgentRepository) List(ctx context.Context, userID string, params domain.ListAgentsParams) (*domain.Page[domain.AgentWithMeetingCount], error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Agent{}).Where("user_id = ?", userID)
		return searchByName(q, params.Search)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count agents: %w", err)
	}

	var agents []domain.Agent
	if err := paginate(orderNewestFirst(base()), page, pageSize).Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	counts, err := r.meetingCounts(ctx, agents)
	if err != nil {
		return nil, err
	}

	items := make([]domain.AgentWithMeetingCount, 0, len(agents))
	for _, a := range agents {
		items = append(items, domain.AgentWithMeetingCount{Agent: a, MeetingCount: counts[a.ID]})
	}

	return &domain.Page[domain.AgentWithMeetingCount]{
		Items:      items,
		Total:      total,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}

// Update applies a partial update, scoped to the owner.
func (r *GormAgentRepository) Update(ctx context.Context, id, userID string, req *domain.UpdateAgentRequest) (*domain.AgentWithMeetingCount, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Instructions != nil {
		updates["instructions"] = *req.Instructions
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.ChatEnabled != nil {
		updates["chat_enabled"] = *req.ChatEnabled
	}
	if req.VoiceEnabled != nil {
		updates["voice_enabled"] = *req.VoiceEnabled
	}
	if req.VisionEnabled != nil {
		updates["vision_enabled"] = *req.VisionEnabled
	}
	if req.Temperature != nil {
		updates["temperature"] = *req.Temperature
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).
			Model(&domain.Agent{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update agent: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, domain.ErrNotFound
		}
	}

	return r.GetByID(ctx, id, userID)
}

// Delete removes an agent. Deletion is rejected while meetings reference
// the agent so a meeting can never silently lose its persona.
func (r *GormAgentRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agent domain.Agent
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&agent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to find agent: %w", err)
		}

		var refs int64
		if err := tx.Model(&domain.Meeting{}).Where("agent_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count meetings for agent: %w", err)
		}
		if refs > 0 {
			return domain.ErrAgentInUse
		}

		if err := tx.Delete(&agent).Error; err != nil {
			return fmt.Errorf("failed to delete agent: %w", err)
		}
		return nil
	})
}

func (r *GormAgentRepository) meetingCount(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count meetings for agent: %w", err)
	}
	return count, nil
}

func (r *GormAgentRepository) meetingCounts(ctx context.Context, agents []domain.Agent) (map[string]int64, error) {
	counts := make(map[string]int64, len(agents))
	if len(agents) == 0 {
		return counts, nil
	}

	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}

	type agentCount struct {
		AgentID string
		Count   int64
	}
	var rows []agentCount
	err := r.db.WithContext(ctx).
		Model(&domain.Meeting{}).
		Select("agent_id, COUNT(*) as count").
		Where("agent_id IN ?", ids).
		Group("agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count meetings per agent: %w", err)
	}

	for _, row := range rows {
		counts[row.AgentID] = row.Count
	}
	return counts, nil
}
