package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/repository"
)

type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.Title == "" {
		return nil, domain.ErrInvalidPayload
	}
	switch task.Kind {
	case domain.TaskKindProof:
	case domain.TaskKindQuiz:
		if len(task.QuizQuestions) == 0 {
			return nil, domain.ErrQuizWithoutQuestions
		}
	default:
		return nil, domain.WrapError(domain.ErrCodeInvalid, "unknown task kind", nil)
	}

	task.VerificationStatus = domain.StatusPending
	task.Completed = false
	task.CompletedAt = nil

	return uc.tasks.Create(ctx, task)
}

func (uc *UseCase) DeleteTask(ctx context.Context, userID, id string) error {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task.UserID != userID {
		return domain.ErrTaskNotFound
	}
	return uc.tasks.Delete(ctx, id)
}
