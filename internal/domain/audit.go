package domain

import "time"

// AuditLog records an operation that replaced a player's save wholesale.
type AuditLog struct {
	ID        int64          `json:"id"`
	PlayerID  int64          `json:"player_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	AuditActionImport = "save_import"
	AuditActionReset  = "save_reset"
)
