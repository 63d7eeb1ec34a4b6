package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `
	id, user_id, title, description, kind, verification_status, completed,
	completed_at, proof_url, quiz_questions, quiz_score, quiz_attempts, notes,
	submission_version, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `SELECT` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR user_id = $1)
	  AND ($2 = '' OR verification_status = $2)
	  AND ($3 = '' OR kind = $3)
	ORDER BY created_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.Status, filter.Kind, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.VerificationStatus == "" {
		task.VerificationStatus = domain.StatusPending
	}

	const query = `
	INSERT INTO tasks (id, user_id, title, description, kind, verification_status, completed, quiz_questions, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING submission_version, created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		string(task.Kind),
		string(task.VerificationStatus),
		task.Completed,
		marshalQuestions(task.QuizQuestions),
		task.Notes,
	).Scan(&task.SubmissionVersion, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

// Update applies the full verification-bearing state of the task, guarded by
// the submission version the caller read. Zero rows affected means a
// concurrent writer got there first and the caller's verdict loses.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		verification_status = $4,
		completed = $5,
		completed_at = $6,
		proof_url = $7,
		quiz_score = $8,
		quiz_attempts = $9,
		notes = $10,
		submission_version = submission_version + 1,
		updated_at = NOW()
	WHERE id = $1 AND submission_version = $11
	RETURNING submission_version, updated_at
	`

	var completedAt interface{}
	if task.CompletedAt != nil {
		completedAt = *task.CompletedAt
	}
	var score interface{}
	if task.QuizScore != nil {
		score = *task.QuizScore
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.VerificationStatus),
		task.Completed,
		completedAt,
		nullString(task.ProofURL),
		score,
		task.QuizAttempts,
		task.Notes,
		task.SubmissionVersion,
	).Scan(&task.SubmissionVersion, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyUpdateMiss(ctx, task.ID)
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// IncompleteByOwner lists owners with open tasks for the reminder sweep.
func (r *taskRepository) IncompleteByOwner(ctx context.Context) ([]repository.ReminderTarget, error) {
	const query = `
	SELECT t.user_id, COALESCE(u.email, ''), COUNT(*)
	FROM tasks t
	LEFT JOIN users u ON u.id = t.user_id
	WHERE t.completed = FALSE
	GROUP BY t.user_id, u.email
	ORDER BY t.user_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []repository.ReminderTarget
	for rows.Next() {
		var target repository.ReminderTarget
		if err := rows.Scan(&target.UserID, &target.Email, &target.OpenTasks); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// classifyUpdateMiss distinguishes a missing row from a version mismatch.
func (r *taskRepository) classifyUpdateMiss(ctx context.Context, id string) error {
	const query = `SELECT 1 FROM tasks WHERE id = $1`
	var one int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return domain.ErrTaskConflict
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		kind        string
		status      string
		completedAt *time.Time
		proofURL    *string
		questions   []byte
		score       *int
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&kind,
		&status,
		&task.Completed,
		&completedAt,
		&proofURL,
		&questions,
		&score,
		&task.QuizAttempts,
		&task.Notes,
		&task.SubmissionVersion,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Kind = domain.TaskKind(kind)
	task.VerificationStatus = domain.VerificationStatus(status)
	task.CompletedAt = completedAt
	if proofURL != nil {
		task.ProofURL = *proofURL
	}
	task.QuizScore = score
	if len(questions) > 0 {
		_ = json.Unmarshal(questions, &task.QuizQuestions)
	}

	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
