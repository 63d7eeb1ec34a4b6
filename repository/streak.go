package repository

import (
	"context"

	"github.com/dreamloop/backend/domain"
)

type StreakRepository interface {
	// GetOrCreate returns the user's streak record, lazily inserting a zeroed
	// row on first completion.
	GetOrCreate(ctx context.Context, userID string) (*domain.StreakRecord, error)
	// Update writes the record guarded by the version the caller read; a
	// stale version yields domain.ErrStreakConflict so the caller can
	// re-read and re-fold. On success the version is bumped in place.
	Update(ctx context.Context, record *domain.StreakRecord) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}
