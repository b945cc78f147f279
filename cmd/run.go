package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/config"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/exporter"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/scheduler"
	svcpkg "github.com/dynasticorpheus/gigasetelements-ha/internal/service"
)

var serviceAction string

// program implements the kardianos/service interface around the
// polling daemon.
type program struct {
	cfg    *config.Config
	logger *logrus.Logger
	svc    *svcpkg.Service
	sched  *scheduler.Scheduler
	server *http.Server
	cancel context.CancelFunc
}

func (p *program) Start(s service.Service) error {
	// Start must not block; the daemon work runs async.
	go p.run()
	return nil
}

func (p *program) run() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.svc.Enable()

	// Bootstrap cycle so state is available before the first tick.
	bootCtx, bootCancel := context.WithTimeout(ctx, 2*time.Minute)
	if _, err := p.svc.Refresh(bootCtx); err != nil {
		p.logger.WithError(err).Warn("Initial refresh failed, scheduler will retry")
	}
	bootCancel()

	p.sched = scheduler.NewScheduler(ctx, p.svc, p.cfg.Poll.Schedule, p.logger)
	if err := p.sched.Start(); err != nil {
		p.logger.WithError(err).Error("Failed to start scheduler")
		return
	}

	if p.cfg.Exporter.Enabled {
		collector := exporter.NewCollector(p.svc, p.logger)
		p.server = exporter.NewServer(collector, p.cfg.Exporter.Port)

		p.logger.WithFields(logrus.Fields{
			"port": p.cfg.Exporter.Port,
		}).Info("Starting metrics exporter")

		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.logger.WithError(err).Error("Metrics server error")
		}
		return
	}

	<-ctx.Done()
}

func (p *program) Stop(s service.Service) error {
	p.logger.Info("Stopping daemon")

	// Gate network calls off first so in-flight pollers fall back to
	// cached state during shutdown.
	p.svc.Disable()

	if p.sched != nil {
		p.sched.Stop()
	}
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.server.Shutdown(ctx); err != nil {
			p.logger.WithError(err).Warn("Metrics server forced to shut down")
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling daemon",
	Long: `Runs the polling loop that keeps the alarm state synchronized and,
when enabled, serves Prometheus metrics. Can be installed as a system
service via --service install.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, svc, logger, err := setup()
		if err != nil {
			return err
		}

		prg := &program{cfg: cfg, logger: logger, svc: svc}

		svcConfig := &service.Config{
			Name:        "gigasetelements",
			DisplayName: "Gigaset Elements Client",
			Description: "Polls the Gigaset Elements cloud and exposes alarm state",
			Arguments:   []string{"run", "--config", cfgFile},
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			return err
		}

		if serviceAction != "" {
			if err := service.Control(s, serviceAction); err != nil {
				return fmt.Errorf("failed to %s service: %w", serviceAction, err)
			}
			fmt.Printf("Service action %q completed\n", serviceAction)
			return nil
		}

		logger.WithFields(logrus.Fields{
			"schedule": cfg.Poll.Schedule,
		}).Info("Starting daemon")

		return s.Run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
