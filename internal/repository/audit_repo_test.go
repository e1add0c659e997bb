package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"idle_tapper/internal/db"
	"idle_tapper/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	_, err = db.Migrate(ctx, pool)
	require.NoError(t, err)

	playerID := time.Now().UnixNano()
	defer pool.Exec(context.Background(), `DELETE FROM save_audit WHERE player_id = $1`, playerID)

	repo := NewAuditRepository(pool)

	imp := &domain.AuditLog{
		PlayerID:  playerID,
		Action:    domain.AuditActionImport,
		Details:   map[string]any{"fixes": 2},
		IP:        "10.0.0.1",
		UserAgent: "test",
	}
	require.NoError(t, repo.Create(ctx, imp))
	assert.NotZero(t, imp.ID)
	assert.False(t, imp.CreatedAt.IsZero())

	require.NoError(t, repo.Create(ctx, &domain.AuditLog{PlayerID: playerID, Action: domain.AuditActionReset}))

	logs, err := repo.ListByPlayer(ctx, playerID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditActionReset, logs[0].Action)
	assert.Empty(t, logs[0].Details)
	assert.Equal(t, domain.AuditActionImport, logs[1].Action)
	assert.Equal(t, float64(2), logs[1].Details["fixes"])

	logs, err = repo.ListByPlayer(ctx, playerID, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
