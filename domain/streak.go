package domain

import "time"

// DateLayout is the calendar-date format used for streak bookkeeping.
// Streaks operate on whole days, never on timestamps.
const DateLayout = "2006-01-02"

// DateOf collapses a timestamp to its calendar date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// StreakRecord tracks consecutive qualifying completion days for one user.
type StreakRecord struct {
	UserID            string `json:"user_id"`
	CurrentStreak     int    `json:"current_streak"`
	LongestStreak     int    `json:"longest_streak"`
	LastCompletedDate string `json:"last_completed_date,omitempty"`

	// Version backs the optimistic read-modify-write cycle in the streak
	// repository; concurrent folds for the same user retry on mismatch.
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Advance folds a completion on the given calendar date into the record.
// A second completion on an already-recorded day is a no-op, which makes
// retried or duplicate approvals idempotent. There is no reset on gap days:
// a day without a completion simply fails to move the counter.
func (s StreakRecord) Advance(date string) StreakRecord {
	if date == "" || s.LastCompletedDate == date {
		return s
	}
	next := s
	next.CurrentStreak++
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastCompletedDate = date
	return next
}

// LeaderboardEntry is a ranked row for the public streak leaderboard.
type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}
