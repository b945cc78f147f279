package state

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/models"
)

// AlarmState is the externally visible arming state of the system.
type AlarmState string

const (
	StateDisarmed   AlarmState = "disarmed"
	StateArmedHome  AlarmState = "armed_home"
	StateArmedNight AlarmState = "armed_night"
	StateArmedAway  AlarmState = "armed_away"
	StateTriggered  AlarmState = "triggered"
	StateArming     AlarmState = "arming"
	StateDisarming  AlarmState = "disarming"
	StatePending    AlarmState = "pending"
	StateUnknown    AlarmState = "unknown"
)

// HealthLevel is the system health reported alongside the alarm state.
type HealthLevel string

const (
	HealthGreen   HealthLevel = "green"
	HealthOrange  HealthLevel = "orange"
	HealthRed     HealthLevel = "red"
	HealthUnknown HealthLevel = "unknown"
)

// PendingStateThreshold is the legacy resync timeout used when the
// backend does not report a transition-in-progress flag: once current
// and target disagree for longer than this, the discrepancy is treated
// as stale rather than in flight and the target resyncs to current.
const PendingStateThreshold = 180 * time.Second

// Mode codes on the wire. The vendor calls the disarmed mode "home"
// and the armed-home mode "custom". The two maps are an explicit
// bidirectional table so the inverse is always well defined.
var modeToCode = map[AlarmState]string{
	StateDisarmed:   "home",
	StateArmedAway:  "away",
	StateArmedHome:  "custom",
	StateArmedNight: "night",
}

var codeToMode = func() map[string]AlarmState {
	m := make(map[string]AlarmState, len(modeToCode))
	for mode, code := range modeToCode {
		m[code] = mode
	}
	return m
}()

// EncodeMode returns the wire code for a settable mode. Derived states
// (arming, disarming, pending, triggered, unknown) have no code.
func EncodeMode(mode AlarmState) (string, bool) {
	code, ok := modeToCode[mode]
	return code, ok
}

// DecodeMode maps a wire code to an alarm state. Unrecognized codes
// map to StateUnknown.
func DecodeMode(code string) AlarmState {
	if mode, ok := codeToMode[code]; ok {
		return mode
	}
	return StateUnknown
}

// DecodeHealth maps the system_health field to a health level.
func DecodeHealth(s string) HealthLevel {
	switch s {
	case "green":
		return HealthGreen
	case "orange":
		return HealthOrange
	case "red":
		return HealthRed
	}
	return HealthUnknown
}

// Trigger-class health status codes. Either overrides every other
// reconciliation branch.
func triggerStatus(statusMsgID string) bool {
	return statusMsgID == "alarm.user" || statusMsgID == "system_intrusion"
}

// Reconciler resolves the ambiguity between the state the system is
// currently in and the state the user most recently requested while
// that transition is in flight.
//
// Two states are tracked: current, recomputed from every snapshot, and
// target, set once at first observation and thereafter only by an
// explicit SetTarget. Arming, disarming and pending are derived,
// presentation-only values and are never stored as ground truth.
type Reconciler struct {
	mu           sync.Mutex
	current      AlarmState
	target       AlarmState
	targetSet    bool
	pendingSince time.Time
	threshold    time.Duration
	logger       *logrus.Logger
	clock        func() time.Time
}

func NewReconciler(logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		current:   StateUnknown,
		target:    StateUnknown,
		threshold: PendingStateThreshold,
		logger:    logger,
		clock:     time.Now,
	}
}

// Reconcile consumes one snapshot and returns the state to report.
//
// When the basestation document carries the transition-in-progress
// flag, that flag is the authoritative signal and the legacy
// pending-threshold policy is not consulted. Older backends omit the
// flag entirely; for those the threshold fallback applies.
func (r *Reconciler) Reconcile(snap *models.Snapshot) AlarmState {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()

	var settings *models.IntrusionSettings
	if base := snap.Basestation(); base != nil {
		settings = base.IntrusionSettings
	}

	if settings != nil {
		r.current = DecodeMode(settings.ActiveMode)
	} else {
		r.current = StateUnknown
	}

	// A trigger-class health status wins over everything, including a
	// mode transition in flight. It clears only when the remote stops
	// reporting it.
	if triggerStatus(snap.Health.StatusMsgID) {
		r.current = StateTriggered
		r.logger.WithField("status", snap.Health.StatusMsgID).Debug("Alarm triggered")
		return StateTriggered
	}

	if !r.targetSet {
		r.target = r.current
		r.targetSet = true
		r.pendingSince = now
	}

	if settings != nil && settings.ModeTransitionInProgress != nil {
		if !*settings.ModeTransitionInProgress {
			return r.current
		}
		if remote := DecodeMode(settings.RequestedMode); remote != r.target {
			r.logger.WithFields(logrus.Fields{
				"remote_target": remote,
				"target":        r.target,
			}).Debug("Remote requested mode differs from local target")
		}
		if r.target != StateDisarmed {
			return StateArming
		}
		return StateDisarming
	}

	// Legacy backend: no transition flag. Report pending while the
	// discrepancy is younger than the threshold, then resync.
	if r.current == r.target {
		r.pendingSince = now
		return r.current
	}
	if now.Sub(r.pendingSince) > r.threshold {
		r.target = r.current
		r.logger.WithField("target", r.target).Debug("Pending threshold exceeded, resynced target state")
		return r.current
	}
	return StatePending
}

// SetTarget records an explicit user-initiated mode request. The
// current state is left untouched until the next refresh confirms the
// change, so a failed write is never masked.
func (r *Reconciler) SetTarget(mode AlarmState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = mode
	r.targetSet = true
	r.pendingSince = r.clock()
}

// Target returns the mode most recently requested by the user, or the
// first observed state when none has been requested yet.
func (r *Reconciler) Target() AlarmState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Current returns the last reconciled ground-truth state.
func (r *Reconciler) Current() AlarmState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
