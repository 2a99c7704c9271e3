package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_schedule/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Jobs фоновые операции, которые запускает планировщик
type Jobs interface {
	DailySweep(ctx context.Context) (*service.SweepReport, error)
	AutoScheduleAll(ctx context.Context) (*service.AutoScheduleReport, error)
}

// Scheduler управляет фоновыми задачами по cron-расписанию
type Scheduler struct {
	jobs   Jobs
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewScheduler регистрирует ежедневную проверку и автосоздание занятий
func NewScheduler(jobs Jobs, sweepSpec, autoScheduleSpec string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		jobs:   jobs,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(sweepSpec, s.runSweep); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", sweepSpec, err)
	}
	if _, err := s.cron.AddFunc(autoScheduleSpec, s.runAutoSchedule); err != nil {
		return nil, fmt.Errorf("schedule auto schedule %q: %w", autoScheduleSpec, err)
	}

	return s, nil
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения запущенных задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSweep() {
	s.logger.Info("Starting daily sweep")

	report, err := s.jobs.DailySweep(s.ctx)
	if err != nil {
		s.logger.Error("Daily sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Daily sweep completed",
		zap.Int("checked", report.Checked),
		zap.Int("failed", len(report.Failed)))
}

func (s *Scheduler) runAutoSchedule() {
	s.logger.Info("Starting automatic booking generation")

	report, err := s.jobs.AutoScheduleAll(s.ctx)
	if err != nil {
		s.logger.Error("Failed to auto schedule bookings", zap.Error(err))
		return
	}

	s.logger.Info("Automatic booking generation completed",
		zap.Int("created", len(report.Created)),
		zap.Int("failed", len(report.Failed)))
}
