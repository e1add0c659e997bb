package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"idle_tapper/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRepository is the remote copy of each player's save, one row per
// player, overwritten wholesale.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// PutSnapshot upserts the row unless the stored revision is already at or
// past the incoming one. An ignored stale write is not an error.
func (r *SnapshotRepository) PutSnapshot(ctx context.Context, playerID int64, s domain.SaveState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO save_snapshots (player_id, revision, total_earnings, data, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (player_id) DO UPDATE
		 SET revision = EXCLUDED.revision,
		     total_earnings = EXCLUDED.total_earnings,
		     data = EXCLUDED.data,
		     updated_at = now()
		 WHERE save_snapshots.revision < EXCLUDED.revision`,
		playerID,
		s.Revision,
		s.TotalEarnings,
		data,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot decodes over a default snapshot so rows written by older
// builds still yield every field.
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, playerID int64) (domain.SaveState, bool, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT data FROM save_snapshots WHERE player_id = $1`,
		playerID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SaveState{}, false, nil
	}
	if err != nil {
		return domain.SaveState{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	s := domain.DefaultSaveState()
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.SaveState{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, true, nil
}

// LeaderEntry is one row of the earnings leaderboard.
type LeaderEntry struct {
	PlayerID      int64 `json:"playerId"`
	TotalEarnings int64 `json:"totalEarnings"`
}

// TopEarners lists players by lifetime earnings.
func (r *SnapshotRepository) TopEarners(ctx context.Context, limit int) ([]LeaderEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT player_id, total_earnings
		 FROM save_snapshots
		 ORDER BY total_earnings DESC, player_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderEntry
	for rows.Next() {
		var e LeaderEntry
		if err := rows.Scan(&e.PlayerID, &e.TotalEarnings); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
