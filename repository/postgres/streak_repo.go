package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

type streakRepository struct {
	pool *pgxpool.Pool
}

// NewStreakRepository returns a Postgres-backed implementation of StreakRepository.
func NewStreakRepository(pool *pgxpool.Pool) repository.StreakRepository {
	return &streakRepository{pool: pool}
}

// GetOrCreate inserts a zeroed record on first use so callers always fold
// against a persisted row.
func (r *streakRepository) GetOrCreate(ctx context.Context, userID string) (*domain.StreakRecord, error) {
	if userID == "" {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO streaks (user_id, current_streak, longest_streak)
	VALUES ($1, 0, 0)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING user_id, current_streak, longest_streak, last_completed_date, version, updated_at
	`
	return r.scanRecord(r.pool.QueryRow(ctx, query, userID))
}

// Update writes the folded record guarded by the version the caller read.
// Zero rows affected means a concurrent fold for the same user won; the
// caller re-reads and re-folds.
func (r *streakRepository) Update(ctx context.Context, record *domain.StreakRecord) error {
	if record == nil || record.UserID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE streaks
	SET current_streak = $2,
		longest_streak = $3,
		last_completed_date = $4,
		version = version + 1,
		updated_at = NOW()
	WHERE user_id = $1 AND version = $5
	RETURNING version, updated_at
	`

	var lastCompleted interface{}
	if record.LastCompletedDate != "" {
		lastCompleted = record.LastCompletedDate
	}

	if err := r.pool.QueryRow(ctx, query,
		record.UserID,
		record.CurrentStreak,
		record.LongestStreak,
		lastCompleted,
		record.Version,
	).Scan(&record.Version, &record.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrStreakConflict
		}
		return err
	}

	return nil
}

func (r *streakRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	const query = `
	SELECT s.user_id, COALESCE(u.display_name, ''), s.current_streak, s.longest_streak
	FROM streaks s
	LEFT JOIN users u ON u.id = s.user_id
	WHERE s.current_streak > 0
	ORDER BY s.current_streak DESC, s.longest_streak DESC
	LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.CurrentStreak, &entry.LongestStreak); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *streakRepository) scanRecord(row pgx.Row) (*domain.StreakRecord, error) {
	var record domain.StreakRecord
	var lastCompleted *time.Time

	if err := row.Scan(
		&record.UserID,
		&record.CurrentStreak,
		&record.LongestStreak,
		&lastCompleted,
		&record.Version,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStreakNotFound
		}
		return nil, err
	}

	if lastCompleted != nil {
		record.LastCompletedDate = domain.DateOf(*lastCompleted)
	}
	return &record, nil
}
