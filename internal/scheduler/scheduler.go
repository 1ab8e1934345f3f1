package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/vhvplatform/go-outreach-service/internal/service"
	"github.com/vhvplatform/go-outreach-service/internal/shared/config"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

// OutreachScheduler runs the periodic background jobs: the campaign sweep
// that plans newly added prospects, and the dispatch tick that pushes due
// work items onto the send exchange
type OutreachScheduler struct {
	cron       *cron.Cron
	scheduler  *service.SchedulerService
	dispatcher *service.Dispatcher
	cfg        config.SchedulingDefaults
	log        *logger.Logger
}

// NewOutreachScheduler creates a new outreach scheduler
func NewOutreachScheduler(scheduler *service.SchedulerService, dispatcher *service.Dispatcher, cfg config.SchedulingDefaults, log *logger.Logger) *OutreachScheduler {
	return &OutreachScheduler{
		cron:       cron.New(),
		scheduler:  scheduler,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// Start registers the sweep and dispatch jobs and starts the cron runner
func (s *OutreachScheduler) Start() error {
	s.log.Info("Starting outreach scheduler",
		"sweep_spec", s.cfg.SweepSpec, "dispatch_spec", s.cfg.DispatchSpec)

	if _, err := s.cron.AddFunc(s.cfg.SweepSpec, s.runSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.DispatchSpec, s.runDispatch); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Outreach scheduler started")
	return nil
}

// Stop stops the scheduler
func (s *OutreachScheduler) Stop() {
	s.log.Info("Stopping outreach scheduler")
	s.cron.Stop()
}

func (s *OutreachScheduler) runSweep() {
	s.scheduler.RunSweep(context.Background())
}

func (s *OutreachScheduler) runDispatch() {
	published, err := s.dispatcher.DispatchDue(context.Background())
	if err != nil {
		s.log.Error("Dispatch tick failed", "error", err)
		return
	}
	if published > 0 {
		s.log.Info("Dispatched due work items", "published", published)
	}
}
