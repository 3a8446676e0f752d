// Package scheduler runs the periodic tournament jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// RegistrationCloser records the closing of registrations whose deadline has passed.
// It returns how many tournaments were closed by this run.
type RegistrationCloser interface {
	CloseExpiredRegistrations(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	sched  gocron.Scheduler
	closer RegistrationCloser
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New регистрирует задачу закрытия регистрации; задача выполняется сразу после Start
// и далее каждые interval. Параллельные запуски не допускаются.
func New(closer RegistrationCloser, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sched:  sched,
		closer: closer,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.CloseExpiredRegistrations(s.ctx)
		}),
		gocron.WithName("close-expired-registrations"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register registration job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.sched.Jobs())))
}

// Shutdown cancels the running job and waits for it to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// CloseExpiredRegistrations is one run of the job. Ошибки логируются, следующий запуск повторит попытку.
func (s *Scheduler) CloseExpiredRegistrations(ctx context.Context) int {
	closed, err := s.closer.CloseExpiredRegistrations(ctx, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduler: closing expired registrations failed", slog.Any("error", err), slog.Int("closed", closed))
		return closed
	}
	if closed > 0 {
		s.logger.InfoContext(ctx, "Scheduler: registrations closed after deadline", slog.Int("count", closed))
	}
	return closed
}
