package verification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

// streakRetries bounds the re-read/re-fold loop when concurrent completions
// for the same user collide on the streak version.
const streakRetries = 3

// Engine produces a verdict for a submitted proof. Implementations must be
// fail-safe: an unreliable decision comes back as a rejection, never as an
// approval or a hang.
type Engine interface {
	Verify(ctx context.Context, taskTitle, proofURL string) (domain.Verdict, error)
}

// UseCase is the state machine that turns verdicts and quiz results into
// authoritative task state. It is the only writer of verification status and
// the only caller of the streak fold.
type UseCase struct {
	tasks   repository.TaskRepository
	streaks repository.StreakRepository
	locks   repository.VerificationLock
	engine  Engine
	logger  *zap.Logger

	lockTTL time.Duration
	now     func() time.Time
}

func New(
	tasks repository.TaskRepository,
	streaks repository.StreakRepository,
	locks repository.VerificationLock,
	engine Engine,
	lockTTL time.Duration,
	logger *zap.Logger,
) *UseCase {
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		streaks: streaks,
		locks:   locks,
		engine:  engine,
		logger:  logger,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// SubmitProof runs the full proof path: mark the task verifying, obtain a
// verdict from the engine, and commit the outcome. Approval folds the streak;
// rejection re-asserts the incomplete state. Resubmission after rejection
// goes through the same path.
func (uc *UseCase) SubmitProof(ctx context.Context, userID, taskID, proofURL string) (*domain.Task, error) {
	if proofURL == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "missing proof url", nil)
	}

	task, err := uc.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Kind != domain.TaskKindProof {
		return nil, domain.ErrKindMismatch
	}

	if uc.locks != nil {
		acquired, err := uc.locks.Acquire(ctx, taskID, uc.lockTTL)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "verification lock unavailable", err)
		}
		if !acquired {
			return nil, domain.ErrVerificationInFlight
		}
		defer func() {
			if err := uc.locks.Release(context.WithoutCancel(ctx), taskID); err != nil {
				uc.logger.Warn("failed to release verification lock", zap.String("task_id", taskID), zap.Error(err))
			}
		}()
	}

	task.VerificationStatus = domain.StatusVerifying
	task.ProofURL = proofURL
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	verdict, err := uc.engine.Verify(ctx, task.Title, proofURL)
	if err != nil {
		// The engine is contractually fail-safe, but an unexpected error
		// still resolves to rejection: a stuck "verifying" row is a defect.
		uc.logger.Error("verification engine error", zap.String("task_id", taskID), zap.Error(err))
		verdict = domain.RejectedVerdict(domain.FeedbackTransient)
	}

	return uc.applyVerdict(ctx, task, verdict)
}

// SubmitQuiz scores the submitted answers synchronously. There is no
// verifying intermediate state: the result commits in a single transition.
// Attempts increment only on failure.
func (uc *UseCase) SubmitQuiz(ctx context.Context, userID, taskID string, answers []int) (*domain.Task, *domain.QuizResult, error) {
	task, err := uc.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task.Kind != domain.TaskKindQuiz {
		return nil, nil, domain.ErrKindMismatch
	}
	if len(task.QuizQuestions) == 0 {
		return nil, nil, domain.ErrQuizWithoutQuestions
	}
	if len(answers) > len(task.QuizQuestions) {
		return nil, nil, domain.ErrInvalidPayload
	}
	for i, answer := range answers {
		if answer < 0 || answer >= len(task.QuizQuestions[i].Options) {
			return nil, nil, domain.ErrAnswerOutOfRange
		}
	}

	result := domain.ScoreQuiz(task.QuizQuestions, answers)
	score := result.Score
	task.QuizScore = &score

	if result.Passed {
		task.Approve(uc.now(), quizNotes(result))
	} else {
		task.QuizAttempts++
		task.Reject(quizNotes(result))
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, nil, err
	}

	if result.Passed {
		uc.foldStreak(ctx, task.UserID)
	}
	return task, &result, nil
}

// ToggleCompletion is the manual override. Marking a task complete is an
// equivalent completion event to an approved verification, so it folds the
// streak identically; un-completing returns the task to pending. Both
// directions preserve completed iff approved.
func (uc *UseCase) ToggleCompletion(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := uc.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		task.Reset()
	} else {
		task.Approve(uc.now(), "Marked complete manually")
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if task.Completed {
		uc.foldStreak(ctx, task.UserID)
	}
	return task, nil
}

// applyVerdict commits a verdict to the task. The submission-version guard in
// the repository serializes concurrent applications: a writer holding a stale
// version loses and its verdict is discarded rather than retried.
func (uc *UseCase) applyVerdict(ctx context.Context, task *domain.Task, verdict domain.Verdict) (*domain.Task, error) {
	if verdict.Verified {
		task.Approve(uc.now(), verdict.Notes())
	} else {
		task.Reject(verdict.Notes())
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			uc.logger.Info("discarding verdict, concurrent submission won",
				zap.String("task_id", task.ID),
				zap.Bool("verified", verdict.Verified))
			return nil, err
		}
		// Never leave the row in "verifying": a best-effort rejection write
		// resolves the state even when the verdict write itself failed.
		uc.failSafeReject(ctx, task)
		return nil, err
	}

	if verdict.Verified {
		uc.foldStreak(ctx, task.UserID)
	}
	return task, nil
}

// foldStreak applies a completion for today to the user's streak record
// under an optimistic read-modify-write. The same-day check inside Advance
// makes duplicate approvals idempotent; the version CAS plus re-read closes
// the race between concurrent completions.
func (uc *UseCase) foldStreak(ctx context.Context, userID string) {
	today := domain.DateOf(uc.now())

	for attempt := 0; attempt < streakRetries; attempt++ {
		record, err := uc.streaks.GetOrCreate(ctx, userID)
		if err != nil {
			uc.logger.Error("streak read failed", zap.String("user_id", userID), zap.Error(err))
			return
		}

		next := record.Advance(today)
		if next == *record {
			return
		}

		if err := uc.streaks.Update(ctx, &next); err != nil {
			if domain.IsDomainError(err, domain.ErrCodeConflict) {
				continue
			}
			uc.logger.Error("streak write failed", zap.String("user_id", userID), zap.Error(err))
			return
		}

		uc.logger.Info("streak advanced",
			zap.String("user_id", userID),
			zap.Int("current_streak", next.CurrentStreak),
			zap.Int("longest_streak", next.LongestStreak))
		return
	}

	uc.logger.Warn("streak fold saturated retries", zap.String("user_id", userID))
}

func (uc *UseCase) failSafeReject(ctx context.Context, task *domain.Task) {
	task.Reject(domain.FeedbackTransient)
	if err := uc.tasks.Update(context.WithoutCancel(ctx), task); err != nil {
		uc.logger.Error("fail-safe rejection write failed",
			zap.String("task_id", task.ID),
			zap.Error(err))
	}
}

func (uc *UseCase) ownedTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func quizNotes(result domain.QuizResult) string {
	if result.Passed {
		return fmt.Sprintf("Quiz passed with %d%% (%d/%d correct)", result.Score, result.Correct, result.Total)
	}
	return fmt.Sprintf("Quiz failed with %d%% (%d/%d correct), %d%% required to pass",
		result.Score, result.Correct, result.Total, domain.QuizPassScore)
}
