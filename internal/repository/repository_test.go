package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database per test. The shared
// cache keeps the schema visible across GORM's pooled connections.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedAgent(t *testing.T, db *gorm.DB, userID, name string) *domain.AgentWithMeetingCount {
	t.Helper()

	agent, err := NewGormAgentRepository(db).Create(context.Background(), userID, &domain.CreateAgentRequest{
		Name:         name,
		Instructions: "You are a helpful meeting assistant.",
	})
	require.NoError(t, err)
	return agent
}

func seedMeeting(t *testing.T, db *gorm.DB, userID, agentID, name string) *domain.Meeting {
	t.Helper()

	meeting, err := NewGormMeetingRepository(db).Create(context.Background(), userID, &domain.CreateMeetingRequest{
		Name:    name,
		AgentID: agentID,
	})
	require.NoError(t, err)
	return meeting
}

func setStatus(t *testing.T, db *gorm.DB, meetingID string, status domain.MeetingStatus) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Meeting{}).
		Where("id = ?", meetingID).
		Update("status", status).Error)
}
