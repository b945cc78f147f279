package exporter

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/service"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/state"
)

var (
	upDesc = prometheus.NewDesc(
		"gigaset_up", "Was the last refresh cycle successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"gigaset_scrape_duration_seconds", "Time taken to refresh from the cloud API.", nil, nil,
	)
	alarmStateDesc = prometheus.NewDesc(
		"gigaset_alarm_state", "Reported alarm state (1 for the active one).", []string{"state"}, nil,
	)
	targetStateDesc = prometheus.NewDesc(
		"gigaset_alarm_target_state", "Requested alarm state (1 for the active one).", []string{"state"}, nil,
	)
	systemHealthDesc = prometheus.NewDesc(
		"gigaset_system_health", "System health (1.0=green, 0.5=orange, 0.0=red).", nil, nil,
	)
	cloudMaintenanceDesc = prometheus.NewDesc(
		"gigaset_cloud_maintenance", "Vendor cloud maintenance flag.", nil, nil,
	)
	todayEventsDesc = prometheus.NewDesc(
		"gigaset_today_events", "Number of events seen today.", nil, nil,
	)
	todayRecordingsDesc = prometheus.NewDesc(
		"gigaset_today_recordings", "Number of camera recordings today.", nil, nil,
	)
	panicDesc = prometheus.NewDesc(
		"gigaset_panic_alarm", "User panic alarm raised.", nil, nil,
	)
)

var reportableStates = []state.AlarmState{
	state.StateDisarmed,
	state.StateArmedHome,
	state.StateArmedNight,
	state.StateArmedAway,
	state.StateTriggered,
	state.StateArming,
	state.StateDisarming,
	state.StatePending,
	state.StateUnknown,
}

// Collector refreshes the client on scrape and exposes the reconciled
// state as Prometheus metrics.
type Collector struct {
	svc    *service.Service
	logger *logrus.Logger
	mu     sync.Mutex
}

func NewCollector(svc *service.Service, logger *logrus.Logger) *Collector {
	return &Collector{svc: svc, logger: logger}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- alarmStateDesc
	ch <- targetStateDesc
	ch <- systemHealthDesc
	ch <- cloudMaintenanceDesc
	ch <- todayEventsDesc
	ch <- todayRecordingsDesc
	ch <- panicDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	success := 1.0

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reported, err := c.svc.Refresh(ctx)
	if err != nil {
		success = 0.0
		c.logger.WithError(err).Warn("Scrape refresh failed, exposing cached state")
	}

	for _, st := range reportableStates {
		val := 0.0
		if st == reported {
			val = 1.0
		}
		ch <- prometheus.MustNewConstMetric(alarmStateDesc, prometheus.GaugeValue, val, string(st))
	}
	target := c.svc.Target()
	for _, st := range reportableStates {
		val := 0.0
		if st == target {
			val = 1.0
		}
		ch <- prometheus.MustNewConstMetric(targetStateDesc, prometheus.GaugeValue, val, string(st))
	}

	health, attr := c.svc.Health()
	healthVal := 0.0
	switch health {
	case state.HealthGreen:
		healthVal = 1.0
	case state.HealthOrange:
		healthVal = 0.5
	}
	ch <- prometheus.MustNewConstMetric(systemHealthDesc, prometheus.GaugeValue, healthVal)

	if v, ok := attr["cloud_maintenance"].(bool); ok && v {
		ch <- prometheus.MustNewConstMetric(cloudMaintenanceDesc, prometheus.GaugeValue, 1.0)
	} else {
		ch <- prometheus.MustNewConstMetric(cloudMaintenanceDesc, prometheus.GaugeValue, 0.0)
	}
	if v, ok := attr["today_events"].(int); ok {
		ch <- prometheus.MustNewConstMetric(todayEventsDesc, prometheus.GaugeValue, float64(v))
	}
	if v, ok := attr["today_recordings"].(int); ok {
		ch <- prometheus.MustNewConstMetric(todayRecordingsDesc, prometheus.GaugeValue, float64(v))
	}

	panicVal := 0.0
	if c.svc.PanicState() {
		panicVal = 1.0
	}
	ch <- prometheus.MustNewConstMetric(panicDesc, prometheus.GaugeValue, panicVal)

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

// NewServer builds the HTTP server exposing /metrics on the port.
func NewServer(collector *Collector, port int) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
