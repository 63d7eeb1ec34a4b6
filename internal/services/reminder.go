package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dreamloop/backend/internal/infrastructure/outbox"
	"github.com/dreamloop/backend/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Dispatcher hands a reminder to the delivery channel. The shipped
// implementation only logs; actual email mechanics live outside this service.
type Dispatcher interface {
	Dispatch(ctx context.Context, reminder outbox.Reminder) error
}

// LogDispatcher records dispatched reminders without sending anything.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, reminder outbox.Reminder) error {
	d.logger.Info("reminder dispatched",
		zap.String("user_id", reminder.UserID),
		zap.Int("open_tasks", reminder.OpenTasks))
	return nil
}

// ReminderConfig controls the sweep schedule and drain cadence.
type ReminderConfig struct {
	SweepSchedule string
	DrainInterval time.Duration
	BatchSize     int
	MaxRetries    int
	Retention     time.Duration
}

// ReminderService periodically finds owners with open tasks, queues a
// reminder per owner into the outbox, and drains the outbox to the
// dispatcher with bounded retries.
type ReminderService struct {
	store      *outbox.Store
	monitor    ConnectionHealth
	tasks      repository.TaskRepository
	dispatcher Dispatcher
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        ReminderConfig
}

func NewReminderService(
	store *outbox.Store,
	monitor ConnectionHealth,
	tasks repository.TaskRepository,
	dispatcher Dispatcher,
	logger *zap.Logger,
	cfg ReminderConfig,
) *ReminderService {
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "0 0 18 * * *"
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rs := &ReminderService{
		store:      store,
		monitor:    monitor,
		tasks:      tasks,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(cron.WithSeconds()),
	}

	_, _ = rs.cron.AddFunc(cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := rs.Sweep(ctx); err != nil {
			rs.logger.Error("reminder sweep failed", zap.Error(err))
		}
	})

	drainSchedule := fmt.Sprintf("@every %ds", int(cfg.DrainInterval.Seconds()))
	_, _ = rs.cron.AddFunc(drainSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DrainInterval)
		defer cancel()
		if err := rs.Drain(ctx); err != nil {
			rs.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return rs
}

// Start launches the cron scheduler.
func (rs *ReminderService) Start() {
	if rs == nil || rs.cron == nil {
		return
	}
	rs.cron.Start()
	rs.logger.Info("reminder service started", zap.String("sweep", rs.cfg.SweepSchedule))
}

// Stop gracefully stops the scheduler.
func (rs *ReminderService) Stop(ctx context.Context) {
	if rs == nil || rs.cron == nil {
		return
	}
	stopCtx := rs.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	rs.logger.Info("reminder service stopped")
}

// Sweep queues a reminder for every owner with at least one open task.
func (rs *ReminderService) Sweep(ctx context.Context) error {
	if rs == nil || rs.store == nil {
		return nil
	}
	if rs.monitor != nil && !rs.monitor.IsOnline() {
		rs.logger.Debug("skipping reminder sweep (offline)")
		return nil
	}

	targets, err := rs.tasks.IncompleteByOwner(ctx)
	if err != nil {
		return err
	}

	for _, target := range targets {
		reminder := outbox.Reminder{
			UserID:    target.UserID,
			Email:     target.Email,
			Subject:   "You still have tasks waiting today",
			Body:      fmt.Sprintf("You have %d task(s) left. Finish one to keep your streak going.", target.OpenTasks),
			OpenTasks: target.OpenTasks,
		}
		if err := rs.store.Enqueue(reminder); err != nil {
			rs.logger.Error("failed to enqueue reminder",
				zap.String("user_id", target.UserID),
				zap.Error(err))
		}
	}

	if err := rs.store.Cleanup(time.Now().Add(-rs.cfg.Retention)); err != nil {
		rs.logger.Warn("outbox cleanup failed", zap.Error(err))
	}

	rs.logger.Info("reminder sweep complete", zap.Int("targets", len(targets)))
	return nil
}

// Drain hands queued reminders to the dispatcher, requeueing failures until
// their retry budget runs out.
func (rs *ReminderService) Drain(ctx context.Context) error {
	if rs == nil || rs.store == nil {
		return nil
	}

	reminders, err := rs.store.GetBatch(rs.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, reminder := range reminders {
		if err := rs.dispatcher.Dispatch(ctx, reminder); err != nil {
			rs.logger.Error("failed to dispatch reminder",
				zap.String("reminder_id", reminder.ID),
				zap.Error(err))

			reminder.Retries++
			if err := rs.store.Remove(reminder); err != nil {
				rs.logger.Warn("failed to remove reminder", zap.Error(err))
				continue
			}
			if reminder.Retries >= rs.cfg.MaxRetries {
				rs.logger.Warn("dropping reminder (max retries reached)", zap.String("reminder_id", reminder.ID))
				continue
			}
			if err := rs.store.Requeue(reminder); err != nil {
				rs.logger.Error("failed to requeue reminder", zap.Error(err))
			}
			continue
		}

		if err := rs.store.Remove(reminder); err != nil {
			rs.logger.Warn("failed to purge dispatched reminder", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of pending reminders.
func (rs *ReminderService) Size() int {
	if rs == nil || rs.store == nil {
		return 0
	}
	size, err := rs.store.Size()
	if err != nil {
		return 0
	}
	return size
}
