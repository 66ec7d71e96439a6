package repository

import (
	"context"

	"github.com/novameet/meeting-agent-service/internal/domain"
	"gorm.io/gorm"
)

// AgentRepository defines the store operations for agents. Every read and
// write is scoped by the owning user; ownership is enforced here, never
// trusted from client input.
type AgentRepository interface {
	Create(ctx context.Context, userID string, req *domain.CreateAgentRequest) (*domain.AgentWithMeetingCount, error)
	GetByID(ctx context.Context, id, userID string) (*domain.AgentWithMeetingCount, error)
	List(ctx context.Context, userID string, params domain.ListAgentsParams) (*domain.Page[domain.AgentWithMeetingCount], error)
	Update(ctx context.Context, id, userID string, req *domain.UpdateAgentRequest) (*domain.AgentWithMeetingCount, error)

	// Delete removes an agent. Deletion is rejected with ErrAgentInUse while
	// any meeting still references the agent.
	Delete(ctx context.Context, id, userID string) error
}

// MeetingRepository defines the store operations for meetings. Status
// changes are single conditional writes keyed by id, owner, and current
// status, never a read-modify-write across two round trips.
type MeetingRepository interface {
	Create(ctx context.Context, userID string, req *domain.CreateMeetingRequest) (*domain.Meeting, error)
	GetByID(ctx context.Context, id, userID string) (*domain.MeetingWithAgent, error)
	List(ctx context.Context, userID string, params domain.ListMeetingsParams) (*domain.Page[domain.MeetingWithAgent], error)
	Update(ctx context.Context, id, userID string, req *domain.UpdateMeetingRequest) (*domain.Meeting, error)
	Delete(ctx context.Context, id, userID string) error

	// Transition applies a user-initiated status change under the transition
	// graph. Requesting the current status is a no-op, an illegal edge is
	// ErrInvalidTransition, an unknown or unowned id is ErrNotFound.
	Transition(ctx context.Context, id, userID string, to domain.MeetingStatus) (*domain.Meeting, error)

	// GetForAttachment resolves a meeting with its agent by existence only.
	// This is the server-to-server webhook path and is deliberately not
	// scoped by a requesting user.
	GetForAttachment(ctx context.Context, id string) (*domain.Meeting, error)

	// MarkCompleted transitions to completed unless the meeting is already
	// terminal. endedAt is set exactly once. Returns whether a row changed.
	MarkCompleted(ctx context.Context, id string) (bool, error)

	// MarkProcessing persists the recording URL and transitions to
	// processing unless the meeting is already terminal.
	MarkProcessing(ctx context.Context, id, recordingURL string) (bool, error)

	// ClaimAgentAttachment atomically stamps agentConnectedAt. A false
	// return means another delivery already holds the claim or the meeting
	// is terminal.
	ClaimAgentAttachment(ctx context.Context, id string) (bool, error)

	// ReleaseAgentAttachment clears the claim after a failed provider
	// bridge so a later delivery can retry.
	ReleaseAgentAttachment(ctx context.Context, id string) error
}

// RepositoryManager combines all repositories.
type RepositoryManager interface {
	Agents() AgentRepository
	Meetings() MeetingRepository

	Ping(ctx context.Context) error
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM.
type GormRepositoryManager struct {
	db          *gorm.DB
	agentRepo   *GormAgentRepository
	meetingRepo *GormMeetingRepository
}

// NewGormRepositoryManager creates a new GORM repository manager.
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:          db,
		agentRepo:   NewGormAgentRepository(db),
		meetingRepo: NewGormMeetingRepository(db),
	}
}

// Agents returns the agent repository.
func (m *GormRepositoryManager) Agents() AgentRepository {
	return m.agentRepo
}

// Meetings returns the meeting repository.
func (m *GormRepositoryManager) Meetings() MeetingRepository {
	return m.meetingRepo
}

// Ping checks the database connection.
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
