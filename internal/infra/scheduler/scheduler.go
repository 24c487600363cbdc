package scheduler

import (
	"context"
	"time"

	"obligation_engine/internal/app"
	"obligation_engine/internal/domain/report"
	"obligation_engine/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	generationJobTimeout = 30 * time.Minute
	sweepJobTimeout      = 5 * time.Minute
)

// EngineScheduler runs the engine's periodic jobs: generation for the next
// calendar month ahead of time, and the daily sweep that flags open
// obligations past their deadline.
type EngineScheduler struct {
	cronEngine *cron.Cron
	generator  app.GenerationService
	lifecycle  *app.LifecycleService
	sender     report.Sender // nil disables report delivery
	logger     *logrus.Logger

	cronSpecGeneration string
	cronSpecSweep      string
}

func NewEngineScheduler(
	generator app.GenerationService,
	lifecycle *app.LifecycleService,
	sender report.Sender,
	logger *logrus.Logger,
	cronSpecGeneration string, // e.g. "0 6 25 * *" (06:00 on the 25th)
	cronSpecSweep string, // e.g. "0 2 * * *" (02:00 daily)
) *EngineScheduler {
	return &EngineScheduler{
		cronEngine:         cron.New(cron.WithLocation(time.Local)), // cron specs follow the server's local time
		generator:          generator,
		lifecycle:          lifecycle,
		sender:             sender,
		logger:             logger,
		cronSpecGeneration: cronSpecGeneration,
		cronSpecSweep:      cronSpecSweep,
	}
}

func (s *EngineScheduler) Start() {
	s.logger.Info("Starting engine scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecGeneration, s.runGeneration)
	if err != nil {
		s.logger.Fatalf("Could not add generation cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecSweep, s.runOverdueSweep)
	if err != nil {
		s.logger.Fatalf("Could not add overdue sweep cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"generation_spec": s.cronSpecGeneration,
		"sweep_spec":      s.cronSpecSweep,
	}).Info("Engine scheduler started with jobs")
}

// runGeneration materializes the next calendar month. The target is derived
// at fire time, so a job configured for the 25th always prepares the month
// about to begin.
func (s *EngineScheduler) runGeneration() {
	ctx, cancel := context.WithTimeout(context.Background(), generationJobTimeout)
	defer cancel()

	year, month := app.NextPeriod(time.Now())
	s.logger.WithField("period", time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")).
		Info("Cron job triggered: obligation generation for next month")

	summary, err := s.generator.Generate(ctx, app.GenerateOptions{Year: year, Month: month})
	metrics.ObserveRun(summary, err)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled generation run failed")
		if summary == nil {
			return
		}
	}

	if s.sender == nil {
		return
	}
	// Report delivery is best-effort: a mailer outage must not taint the
	// run that produced the report.
	if sendErr := s.sender.SendRunReport(ctx, summary); sendErr != nil {
		s.logger.WithError(sendErr).Warn("Run report delivery failed; generation result unaffected")
	}
}

func (s *EngineScheduler) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
	defer cancel()

	s.logger.Info("Cron job triggered: overdue sweep")
	flagged, err := s.lifecycle.SweepOverdue(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled overdue sweep failed")
		return
	}
	metrics.ObserveSweep(flagged)
}

func (s *EngineScheduler) Stop() {
	s.logger.Info("Stopping engine scheduler...")
	ctx := s.cronEngine.Stop() // no new runs; wait for jobs in flight
	<-ctx.Done()
	s.logger.Info("Engine scheduler gracefully stopped")
}
