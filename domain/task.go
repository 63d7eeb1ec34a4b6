package domain

import "time"

// TaskKind selects which verification path applies to a task.
type TaskKind string

const (
	TaskKindProof TaskKind = "proof"
	TaskKindQuiz  TaskKind = "quiz"
)

// VerificationStatus tracks where a task sits in the verification lifecycle.
type VerificationStatus string

const (
	StatusPending   VerificationStatus = "pending"
	StatusVerifying VerificationStatus = "verifying"
	StatusApproved  VerificationStatus = "approved"
	StatusRejected  VerificationStatus = "rejected"
)

// Task represents a user-owned daily task whose completion must be proven.
//
// Completed is true exactly when VerificationStatus is StatusApproved; all
// mutations go through Approve/Reject/Reset so the pair cannot drift apart.
type Task struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	Kind               TaskKind           `json:"kind"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Completed          bool               `json:"completed"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	ProofURL           string             `json:"proof_url,omitempty"`
	QuizQuestions      []QuizQuestion     `json:"quiz_questions,omitempty"`
	QuizScore          *int               `json:"quiz_score,omitempty"`
	QuizAttempts       int                `json:"quiz_attempts"`
	Notes              string             `json:"notes,omitempty"`

	// SubmissionVersion guards verdict application: every write presents the
	// version it read and the store rejects stale writers.
	SubmissionVersion int `json:"submission_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Completed
}

// Approve marks the task completed at the given time.
func (t *Task) Approve(at time.Time, notes string) {
	if t == nil {
		return
	}
	t.VerificationStatus = StatusApproved
	t.Completed = true
	completedAt := at
	t.CompletedAt = &completedAt
	t.Notes = notes
}

// Reject returns the task to an incomplete state. It re-asserts
// Completed=false and clears CompletedAt even when a stale approved row is
// being overridden.
func (t *Task) Reject(notes string) {
	if t == nil {
		return
	}
	t.VerificationStatus = StatusRejected
	t.Completed = false
	t.CompletedAt = nil
	t.Notes = notes
}

// Reset clears completion state, used by the manual un-complete path.
func (t *Task) Reset() {
	if t == nil {
		return
	}
	t.VerificationStatus = StatusPending
	t.Completed = false
	t.CompletedAt = nil
}
