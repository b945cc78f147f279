package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/api"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/service"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// A disabled service scrapes without any network exchange and exposes
// the cached (here: initial) state.
func newIdleService(t *testing.T) *service.Service {
	t.Helper()
	client := api.New(api.Config{Email: "user@example.com", Password: "secret"}, testLogger())
	svc, err := service.New(client, time.UTC, testLogger())
	require.NoError(t, err)
	svc.Disable()
	return svc
}

func TestCollectWithoutSnapshot(t *testing.T) {
	c := NewCollector(newIdleService(t), testLogger())

	// 9 alarm states + 9 target states + health, maintenance, panic,
	// up and scrape duration. The dashboard counters need a snapshot.
	assert.Equal(t, 23, testutil.CollectAndCount(c))

	expected := `
# HELP gigaset_up Was the last refresh cycle successful.
# TYPE gigaset_up gauge
gigaset_up 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "gigaset_up"))
}

func TestCollectOneHotAlarmState(t *testing.T) {
	c := NewCollector(newIdleService(t), testLogger())

	expected := `
# HELP gigaset_alarm_state Reported alarm state (1 for the active one).
# TYPE gigaset_alarm_state gauge
gigaset_alarm_state{state="armed_away"} 0
gigaset_alarm_state{state="armed_home"} 0
gigaset_alarm_state{state="armed_night"} 0
gigaset_alarm_state{state="arming"} 0
gigaset_alarm_state{state="disarmed"} 0
gigaset_alarm_state{state="disarming"} 0
gigaset_alarm_state{state="pending"} 0
gigaset_alarm_state{state="triggered"} 0
gigaset_alarm_state{state="unknown"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "gigaset_alarm_state"))
}

func TestNewServerAddr(t *testing.T) {
	srv := NewServer(NewCollector(newIdleService(t), testLogger()), 9435)
	assert.Equal(t, ":9435", srv.Addr)
}
