package state

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/models"
)

// Event types that flip a sensor's detected state. Everything else is
// ignored even when it matches the sensor.
var triggerEvents = map[string]struct{}{
	"button1":        {},
	"button2":        {},
	"button3":        {},
	"button4":        {},
	"movement":       {},
	"open":           {},
	"sirenon":        {},
	"smoke_detected": {},
	"test":           {},
	"tilt":           {},
	"water_detected": {},
	"yc01.motion":    {},
}

// Press kind per button event type.
var buttonPress = map[string]string{
	"button":  "idle",
	"button1": "short",
	"button2": "double",
	"button3": "long",
	"button4": "very_long",
}

// Match describes the newest event that triggered a poll.
type Match struct {
	Type      string
	Press     string // button press kind, empty for other events
	Timestamp int64  // epoch milliseconds
}

// Cursor delivers each relevant remote event exactly once per client
// lifetime. It tracks a monotonically advancing watermark in epoch
// milliseconds; events below the watermark are never re-delivered, and
// the watermark doubles as the server-side lower bound for the next
// events query.
type Cursor struct {
	mu        sync.Mutex
	watermark int64
	logger    *logrus.Logger
}

// NewCursor seeds the watermark at the given time, so events predating
// the client are never delivered.
func NewCursor(start time.Time, logger *logrus.Logger) *Cursor {
	return &Cursor{watermark: start.UnixMilli(), logger: logger}
}

// Watermark returns the current cursor position.
func (c *Cursor) Watermark() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark
}

// Poll scans one cycle's events for trigger-worthy entries matching
// sensorID, either by source identifier or by the nested object
// identifier. Events arrive newest first; the scan walks them oldest
// to newest so the watermark lands one past the newest match.
//
// Re-polling with an unchanged watermark and unchanged event list
// yields no trigger: every matched event advances the watermark past
// itself, and events below the watermark are skipped.
func (c *Cursor) Poll(doc models.EventsDocument, sensorID string) (bool, *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	triggered := false
	var match *Match

	for i := len(doc.Events) - 1; i >= 0; i-- {
		ev := doc.Events[i]
		if _, ok := triggerEvents[ev.Type]; !ok {
			continue
		}
		if !eventMatches(ev, sensorID) {
			continue
		}
		ts, err := strconv.ParseInt(ev.Timestamp, 10, 64)
		if err != nil || ts < c.watermark {
			continue
		}
		c.watermark = ts + 1
		triggered = true
		m := Match{Type: ev.Type, Timestamp: ts}
		if press, ok := buttonPress[ev.Type]; ok {
			m.Press = press
		}
		match = &m
	}

	if triggered {
		c.logger.WithFields(logrus.Fields{
			"sensor_id": sensorID,
			"type":      match.Type,
			"watermark": c.watermark,
		}).Debug("Sensor event detected")
	}

	return triggered, match
}

func eventMatches(ev models.Event, sensorID string) bool {
	if ev.SourceID != "" && strings.EqualFold(ev.SourceID, sensorID) {
		return true
	}
	return ev.Object != nil && strings.EqualFold(ev.Object.ID, sensorID)
}
