package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task

	// conflictAfter forces ErrTaskConflict once the given number of
	// successful updates has happened.
	conflictAfter int
	updateErr     error
	updates       int
}

func newFakeTaskRepo(tasks ...*domain.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[string]*domain.Task), conflictAfter: -1}
	for _, task := range tasks {
		copied := *task
		repo.tasks[task.ID] = &copied
	}
	return repo
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) List(_ context.Context, _ repository.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks[task.ID] = &copied
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.conflictAfter >= 0 && r.updates >= r.conflictAfter {
		return domain.ErrTaskConflict
	}
	stored, ok := r.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if stored.SubmissionVersion != task.SubmissionVersion {
		return domain.ErrTaskConflict
	}
	task.SubmissionVersion++
	copied := *task
	r.tasks[task.ID] = &copied
	r.updates++
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) IncompleteByOwner(_ context.Context) ([]repository.ReminderTarget, error) {
	return nil, nil
}

func (r *fakeTaskRepo) stored(id string) domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.tasks[id]
}

type fakeStreakRepo struct {
	mu      sync.Mutex
	records map[string]*domain.StreakRecord

	// conflicts forces that many ErrStreakConflict results before updates
	// succeed, to exercise the re-read/re-fold loop.
	conflicts int
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{records: make(map[string]*domain.StreakRecord)}
}

func (r *fakeStreakRepo) GetOrCreate(_ context.Context, userID string) (*domain.StreakRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[userID]
	if !ok {
		record = &domain.StreakRecord{UserID: userID}
		r.records[userID] = record
	}
	copied := *record
	return &copied, nil
}

func (r *fakeStreakRepo) Update(_ context.Context, record *domain.StreakRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrStreakConflict
	}
	stored, ok := r.records[record.UserID]
	if !ok || stored.Version != record.Version {
		return domain.ErrStreakConflict
	}
	record.Version++
	copied := *record
	r.records[record.UserID] = &copied
	return nil
}

func (r *fakeStreakRepo) Leaderboard(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (r *fakeStreakRepo) current(userID string) domain.StreakRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[userID]
	if !ok {
		return domain.StreakRecord{UserID: userID}
	}
	return *record
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
	busy bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]bool)}
}

func (l *fakeLock) Acquire(_ context.Context, taskID string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy || l.held[taskID] {
		return false, nil
	}
	l.held[taskID] = true
	return true, nil
}

func (l *fakeLock) Release(_ context.Context, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, taskID)
	return nil
}

type fakeEngine struct {
	verdict domain.Verdict
	err     error
	calls   int
}

func (e *fakeEngine) Verify(_ context.Context, _, _ string) (domain.Verdict, error) {
	e.calls++
	return e.verdict, e.err
}

func proofTask(id, userID string) *domain.Task {
	return &domain.Task{
		ID:                 id,
		UserID:             userID,
		Title:              "Run 5km",
		Kind:               domain.TaskKindProof,
		VerificationStatus: domain.StatusPending,
	}
}

func quizTask(id, userID string) *domain.Task {
	return &domain.Task{
		ID:     id,
		UserID: userID,
		Title:  "Spanish basics",
		Kind:   domain.TaskKindQuiz,
		QuizQuestions: []domain.QuizQuestion{
			{Prompt: "q1", Options: []string{"a", "b", "c"}, CorrectOption: 0},
			{Prompt: "q2", Options: []string{"a", "b", "c"}, CorrectOption: 1},
			{Prompt: "q3", Options: []string{"a", "b", "c"}, CorrectOption: 2},
		},
		VerificationStatus: domain.StatusPending,
	}
}

func newUseCase(tasks *fakeTaskRepo, streaks *fakeStreakRepo, lock *fakeLock, engine Engine) *UseCase {
	return New(tasks, streaks, lock, engine, time.Minute, zap.NewNop())
}

func TestSubmitProof_ApprovedCompletesTaskAndAdvancesStreak(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	engine := &fakeEngine{verdict: domain.Verdict{Verified: true, Confidence: 92, Feedback: "clear evidence"}}
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	task, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, task.VerificationStatus)
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	assert.Contains(t, task.Notes, "92% confidence")
	assert.Contains(t, task.Notes, "clear evidence")
	assert.Equal(t, "https://cdn.example.com/p.jpg", task.ProofURL)

	record := streaks.current("u1")
	assert.Equal(t, 1, record.CurrentStreak)
	assert.Equal(t, 1, record.LongestStreak)
}

func TestSubmitProof_RejectedLeavesTaskIncomplete(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	engine := &fakeEngine{verdict: domain.RejectedVerdict("image is unrelated to the task")}
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	task, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, task.VerificationStatus)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, 0, streaks.current("u1").CurrentStreak)
}

func TestSubmitProof_RejectionOverridesStaleApproval(t *testing.T) {
	approved := proofTask("t1", "u1")
	completedAt := time.Now()
	approved.VerificationStatus = domain.StatusApproved
	approved.Completed = true
	approved.CompletedAt = &completedAt

	tasks := newFakeTaskRepo(approved)
	engine := &fakeEngine{verdict: domain.RejectedVerdict("previous proof was retracted")}
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), engine)

	task, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p2.jpg")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, task.VerificationStatus)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)

	stored := tasks.stored("t1")
	assert.False(t, stored.Completed)
	assert.Nil(t, stored.CompletedAt)
}

func TestSubmitProof_EngineErrorResolvesToRejected(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	engine := &fakeEngine{err: errors.New("inference exploded")}
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), engine)

	task, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, task.VerificationStatus)
	assert.False(t, task.Completed)
	assert.Contains(t, task.Notes, domain.FeedbackTransient)
}

func TestSubmitProof_KindMismatch(t *testing.T) {
	tasks := newFakeTaskRepo(quizTask("t1", "u1"))
	engine := &fakeEngine{}
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), engine)

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")

	assert.ErrorIs(t, err, domain.ErrKindMismatch)
	assert.Zero(t, engine.calls, "no engine call on validation failure")
	assert.Equal(t, domain.StatusPending, tasks.stored("t1").VerificationStatus)
}

func TestSubmitProof_MissingURL(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), &fakeEngine{})

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestSubmitProof_OtherUsersTaskLooksMissing(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), &fakeEngine{})

	_, err := uc.SubmitProof(context.Background(), "u2", "t1", "https://cdn.example.com/p.jpg")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestSubmitProof_InFlightSubmissionIsBounced(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	lock := newFakeLock()
	lock.busy = true
	uc := newUseCase(tasks, newFakeStreakRepo(), lock, &fakeEngine{})

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")
	assert.ErrorIs(t, err, domain.ErrVerificationInFlight)
}

func TestSubmitProof_ConcurrentVerdictLosesOnVersion(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	// First update (verifying) succeeds, the verdict write hits a conflict.
	tasks.conflictAfter = 1
	engine := &fakeEngine{verdict: domain.Verdict{Verified: true, Confidence: 90, Feedback: "ok"}}
	streaks := newFakeStreakRepo()
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/p.jpg")

	assert.ErrorIs(t, err, domain.ErrTaskConflict)
	assert.Equal(t, 0, streaks.current("u1").CurrentStreak, "discarded verdict must not touch the streak")
}

func TestSubmitQuiz_FailedAttempt(t *testing.T) {
	tasks := newFakeTaskRepo(quizTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	uc := newUseCase(tasks, streaks, newFakeLock(), &fakeEngine{})

	task, result, err := uc.SubmitQuiz(context.Background(), "u1", "t1", []int{0, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, 67, result.Score)
	assert.False(t, result.Passed)
	assert.Equal(t, domain.StatusRejected, task.VerificationStatus)
	assert.False(t, task.Completed)
	assert.Equal(t, 1, task.QuizAttempts)
	require.NotNil(t, task.QuizScore)
	assert.Equal(t, 67, *task.QuizScore)
	assert.Equal(t, 0, streaks.current("u1").CurrentStreak)
}

func TestSubmitQuiz_PassAfterFailureKeepsAttempts(t *testing.T) {
	tasks := newFakeTaskRepo(quizTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	uc := newUseCase(tasks, streaks, newFakeLock(), &fakeEngine{})

	_, _, err := uc.SubmitQuiz(context.Background(), "u1", "t1", []int{0, 1, 0})
	require.NoError(t, err)

	task, result, err := uc.SubmitQuiz(context.Background(), "u1", "t1", []int{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, domain.StatusApproved, task.VerificationStatus)
	assert.True(t, task.Completed)
	assert.Equal(t, 1, task.QuizAttempts, "attempts increment only on failure")
	assert.Equal(t, 1, streaks.current("u1").CurrentStreak)
}

func TestSubmitQuiz_Validation(t *testing.T) {
	empty := quizTask("t1", "u1")
	empty.QuizQuestions = nil
	tasks := newFakeTaskRepo(empty, quizTask("t2", "u1"), proofTask("t3", "u1"))
	uc := newUseCase(tasks, newFakeStreakRepo(), newFakeLock(), &fakeEngine{})

	_, _, err := uc.SubmitQuiz(context.Background(), "u1", "t1", []int{0})
	assert.ErrorIs(t, err, domain.ErrQuizWithoutQuestions)

	_, _, err = uc.SubmitQuiz(context.Background(), "u1", "t2", []int{0, 5, 0})
	assert.ErrorIs(t, err, domain.ErrAnswerOutOfRange)

	_, _, err = uc.SubmitQuiz(context.Background(), "u1", "t2", []int{0, 1, 2, 0})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, _, err = uc.SubmitQuiz(context.Background(), "u1", "t3", []int{0})
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	assert.Equal(t, domain.StatusPending, tasks.stored("t2").VerificationStatus, "validation failures never mutate state")
}

func TestToggleCompletion_OnAndOff(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	uc := newUseCase(tasks, streaks, newFakeLock(), &fakeEngine{})

	task, err := uc.ToggleCompletion(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, domain.StatusApproved, task.VerificationStatus)
	assert.Equal(t, 1, streaks.current("u1").CurrentStreak, "manual completion folds the streak like an approval")

	task, err = uc.ToggleCompletion(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, domain.StatusPending, task.VerificationStatus)
	assert.Equal(t, 1, streaks.current("u1").CurrentStreak, "un-completing does not rewind the streak")
}

func TestStreak_SameDayCompletionsCountOnce(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"), proofTask("t2", "u1"))
	streaks := newFakeStreakRepo()
	engine := &fakeEngine{verdict: domain.Verdict{Verified: true, Confidence: 80, Feedback: "ok"}}
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	_, err = uc.SubmitProof(context.Background(), "u1", "t2", "https://cdn.example.com/b.jpg")
	require.NoError(t, err)

	record := streaks.current("u1")
	assert.Equal(t, 1, record.CurrentStreak, "two approvals on one day advance the streak once")
}

func TestStreak_ConsecutiveDays(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"), proofTask("t2", "u1"))
	streaks := newFakeStreakRepo()
	engine := &fakeEngine{verdict: domain.Verdict{Verified: true, Confidence: 80, Feedback: "ok"}}
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return day }

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, streaks.current("u1").CurrentStreak)

	day = day.Add(24 * time.Hour)
	_, err = uc.SubmitProof(context.Background(), "u1", "t2", "https://cdn.example.com/b.jpg")
	require.NoError(t, err)

	record := streaks.current("u1")
	assert.Equal(t, 2, record.CurrentStreak)
	assert.Equal(t, 2, record.LongestStreak)
}

func TestStreak_FoldRetriesOnVersionConflict(t *testing.T) {
	tasks := newFakeTaskRepo(proofTask("t1", "u1"))
	streaks := newFakeStreakRepo()
	streaks.conflicts = 1
	engine := &fakeEngine{verdict: domain.Verdict{Verified: true, Confidence: 80, Feedback: "ok"}}
	uc := newUseCase(tasks, streaks, newFakeLock(), engine)

	_, err := uc.SubmitProof(context.Background(), "u1", "t1", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)

	assert.Equal(t, 1, streaks.current("u1").CurrentStreak, "fold retries after losing the version race")
}
