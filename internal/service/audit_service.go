package service

import (
	"context"
	"time"

	"idle_tapper/internal/domain"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/repository"
)

// AuditService records save imports and resets. A nil service, or one
// without a repository, drops entries.
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Enabled reports whether entries are stored anywhere.
func (s *AuditService) Enabled() bool {
	return s != nil && s.repo != nil
}

// LogWithRequest creates an audit log with request info (IP, User-Agent).
// Failures are logged, never returned: the audited operation already happened.
func (s *AuditService) LogWithRequest(ctx context.Context, playerID int64, action, ip, userAgent string, details map[string]any) {
	if !s.Enabled() {
		return
	}
	entry := &domain.AuditLog{
		PlayerID:  playerID,
		Action:    action,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	// detach from the request so a client hang-up does not lose the entry
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "player_id", playerID)
	}
}

// History returns a player's most recent entries.
func (s *AuditService) History(ctx context.Context, playerID int64, limit int) ([]*domain.AuditLog, error) {
	if !s.Enabled() {
		return []*domain.AuditLog{}, nil
	}
	return s.repo.ListByPlayer(ctx, playerID, limit)
}
