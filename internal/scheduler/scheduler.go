package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/service"
)

// Scheduler drives the polling cycle on a fixed interval. One cycle at
// a time: the client itself serializes snapshot replacement, and cron
// job runs are skipped while a slow cycle still blocks on retries.
type Scheduler struct {
	ctx      context.Context
	svc      *service.Service
	logger   *logrus.Logger
	cron     *cron.Cron
	schedule string
}

func NewScheduler(ctx context.Context, svc *service.Service, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		ctx:      ctx,
		svc:      svc,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.refresh)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// refresh runs one polling cycle against the vendor cloud.
func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	if _, err := s.svc.Refresh(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to refresh alarm state")
	}
}

// Stop the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
