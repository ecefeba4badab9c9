package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the notification sweep every five minutes.
const DefaultSchedule = "@every 5m"

// Job is one sweep. It reports how many matches it announced.
type Job func(ctx context.Context) (int, error)

// Scheduler runs a Job on a cron spec and once immediately on Start.
// Overlapping runs are skipped, so a slow sweep never doubles up.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	logger *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewScheduler accepts standard five-field specs and descriptors such as
// "@every 5m" or "@hourly". An empty spec selects DefaultSchedule.
func NewScheduler(spec string, job Job, logger *slog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLog)),
		spec:   spec,
		job:    job,
		logger: logger,
	}
}

// Start registers the sweep and starts the cron loop. The context bounds
// every run; Stop cancels it.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("notify: invalid schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("notification sweep scheduled", slog.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return nil
}

// Stop halts the cron loop and waits for an in-flight sweep to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("notification sweep stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("notification sweep still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	if ctx.Err() != nil {
		return
	}
	n, err := s.job(ctx)
	if err != nil {
		s.logger.Error("notification sweep failed", slog.String("error", err.Error()), slog.Int("published", n))
		return
	}
	if n > 0 {
		s.logger.Info("notification sweep complete", slog.Int("published", n))
	}
}
