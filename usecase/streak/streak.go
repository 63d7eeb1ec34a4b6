package streak

import (
	"context"

	"go.uber.org/zap"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

const defaultLeaderboardSize = 10

type UseCase struct {
	streaks repository.StreakRepository
	logger  *zap.Logger
}

func New(streaks repository.StreakRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		streaks: streaks,
		logger:  logger,
	}
}

// GetStreak returns the user's record, creating the zeroed row on first read
// so new users see 0/0 rather than an error.
func (uc *UseCase) GetStreak(ctx context.Context, userID string) (*domain.StreakRecord, error) {
	return uc.streaks.GetOrCreate(ctx, userID)
}

func (uc *UseCase) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	return uc.streaks.Leaderboard(ctx, limit)
}
