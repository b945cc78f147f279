package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/api"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/models"
	"github.com/dynasticorpheus/gigasetelements-ha/internal/state"
)

// Normalized attribute lookups repeat heavily within one cycle (every
// entity asks for its own), so results are cached keyed by snapshot
// sequence plus element id. Superseded snapshots age out via LRU.
const attrCacheSize = 256

// Camera identifiers are bare 12-character MACs; every other sensor id
// is scoped under the basestation id in the device tree.
const cameraIDLength = 12

// Plug relay states.
const (
	PlugOn      = "on"
	PlugOff     = "off"
	PlugUnknown = "unknown"
)

// Service is the stateful client tying the API, the reconciler, the
// event cursor and the attribute normalizer together. One snapshot is
// shared per cycle; it is replaced atomically as a whole, never
// patched, so concurrent readers are safe against a concurrent
// refresh.
type Service struct {
	api        *api.Client
	reconciler *state.Reconciler
	cursor     *state.Cursor
	attrCache  *lru.Cache
	logger     *logrus.Logger
	loc        *time.Location
	clock      func() time.Time

	mu         sync.Mutex
	snapshot   *models.Snapshot
	seq        uint64
	enabled    bool
	reported   state.AlarmState
	health     state.HealthLevel
	propertyID string
}

func New(client *api.Client, loc *time.Location, logger *logrus.Logger) (*Service, error) {
	cache, err := lru.New(attrCacheSize)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		api:        client,
		reconciler: state.NewReconciler(logger),
		cursor:     state.NewCursor(time.Now(), logger),
		attrCache:  cache,
		logger:     logger,
		loc:        loc,
		clock:      time.Now,
		enabled:    true,
		reported:   state.StateUnknown,
		health:     state.HealthUnknown,
	}, nil
}

// Enable allows refresh cycles to reach the network again.
func (s *Service) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// Disable short-circuits all refresh attempts; Refresh returns the
// last known cached state instead of issuing network calls. Used
// around host shutdown and startup transitions.
func (s *Service) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Refresh runs one polling cycle and returns the reconciled alarm
// state. On failure the previously cached state is returned alongside
// the error, so callers keep stale-but-available data; only the very
// first cycle, lacking any cache, reports unknown.
func (s *Service) Refresh(ctx context.Context) (state.AlarmState, error) {
	s.mu.Lock()
	enabled := s.enabled
	cached := s.reported
	s.mu.Unlock()

	if !enabled {
		s.logger.Debug("API calls disabled, returning cached state")
		return cached, nil
	}

	log := s.logger.WithField("cycle_id", uuid.NewString())
	now := s.clock()

	snap, err := s.api.FetchSnapshot(ctx, now, s.cursor.Watermark())
	if err != nil {
		log.WithError(err).Warn("Refresh cycle failed")
		return cached, err
	}

	s.mu.Lock()
	s.seq++
	snap.Seq = s.seq
	s.snapshot = snap
	if s.propertyID == "" {
		if base := snap.Basestation(); base != nil {
			s.propertyID = base.ID
		}
	}
	s.mu.Unlock()

	reported := s.reconciler.Reconcile(snap)

	s.mu.Lock()
	s.reported = reported
	s.health = state.DecodeHealth(snap.Health.SystemHealth)
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"state":  reported,
		"target": s.reconciler.Target(),
		"health": snap.Health.SystemHealth,
	}).Debug("Alarm state reconciled")

	return reported, nil
}

// SetMode requests a new alarm mode. The target is recorded
// immediately; the current state is only updated once a later refresh
// confirms the remote applied it.
func (s *Service) SetMode(ctx context.Context, mode state.AlarmState) error {
	code, ok := state.EncodeMode(mode)
	if !ok {
		return fmt.Errorf("alarm mode %q cannot be requested", mode)
	}

	pid, err := s.propertyIDOrRefresh(ctx)
	if err != nil {
		return err
	}

	s.logger.WithField("mode", mode).Debug("Setting alarm mode")
	s.reconciler.SetTarget(mode)
	return s.api.SetMode(ctx, pid, code)
}

// State returns the last reconciled alarm state without touching the
// network.
func (s *Service) State() state.AlarmState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported
}

// Target returns the mode most recently requested by the user.
func (s *Service) Target() state.AlarmState {
	return s.reconciler.Target()
}

// PollSensor reports whether a new trigger-worthy event arrived for
// the sensor since the last poll, plus its normalized attributes.
// Button events add a press-kind attribute.
func (s *Service) PollSensor(sensorID string) (bool, state.Attributes) {
	snap := s.currentSnapshot()
	if snap == nil {
		return false, nil
	}

	triggered, match := s.cursor.Poll(snap.Events, sensorID)
	attr := s.attributesFor(snap, sensorID)
	if match != nil && match.Press != "" {
		attr = attr.Clone()
		attr["press"] = match.Press
	}
	return triggered, attr
}

// SensorState projects the steady-state position of contact-type
// sensors: door/window/universal position and the smoke flag. Used as
// fallback when no event fired in the current cycle.
func (s *Service) SensorState(sensorID string) (bool, state.Attributes) {
	snap := s.currentSnapshot()
	if snap == nil {
		return false, nil
	}

	attr := s.attributesFor(snap, sensorID)
	item := s.findElement(snap, sensorID)
	if item == nil {
		return false, attr
	}
	if item.PositionStatus != nil {
		switch *item.PositionStatus {
		case "open", "tilted":
			return true, attr
		}
		return false, attr
	}
	if item.SmokeDetected != nil {
		return *item.SmokeDetected, attr
	}
	return false, attr
}

// Attributes returns the normalized attribute set for a device.
func (s *Service) Attributes(sensorID string) state.Attributes {
	snap := s.currentSnapshot()
	if snap == nil {
		return nil
	}
	return s.attributesFor(snap, sensorID)
}

// Health returns the system health level plus system-wide attributes:
// basestation status, the reported alarm mode, cloud maintenance and
// the dashboard counters for today.
func (s *Service) Health() (state.HealthLevel, state.Attributes) {
	s.mu.Lock()
	snap := s.snapshot
	health := s.health
	reported := s.reported
	s.mu.Unlock()

	if snap == nil {
		return state.HealthUnknown, nil
	}

	attr := state.Normalize(nil, snap.Basestation(), s.loc)
	attr["alarm_mode"] = string(reported)
	attr["cloud_maintenance"] = snap.Cloud.IsMaintenance
	attr["today_events"] = snap.Dashboard.Result.RecentEventsNumber
	if n, ok := snap.Dashboard.Result.RecentEventCounts["yc01.recording"]; ok {
		attr["today_recordings"] = n
	}
	if ts := snap.Dashboard.Result.LatestHomecoming; ts != nil {
		attr["last_homecoming"] = time.UnixMilli(*ts).In(s.loc).Format(time.RFC3339)
	}
	if ts := snap.Dashboard.Result.LatestLeaving; ts != nil {
		attr["last_leaving"] = time.UnixMilli(*ts).In(s.loc).Format(time.RFC3339)
	}
	return health, attr
}

// PlugState returns the relay state of a smart plug.
func (s *Service) PlugState(sensorID string) (string, state.Attributes) {
	snap := s.currentSnapshot()
	if snap == nil {
		return PlugUnknown, nil
	}

	attr := s.attributesFor(snap, sensorID)
	item := s.findElement(snap, sensorID)
	if item == nil || item.States == nil || item.States.Relay == nil {
		return PlugUnknown, attr
	}
	switch *item.States.Relay {
	case "on":
		return PlugOn, attr
	case "off":
		return PlugOff, attr
	}
	return PlugUnknown, attr
}

// SetPlug switches a smart plug relay. The cached state is not
// updated optimistically; the next refresh confirms the outcome.
func (s *Service) SetPlug(ctx context.Context, sensorID string, on bool) error {
	pid, err := s.propertyIDOrRefresh(ctx)
	if err != nil {
		return err
	}
	action := PlugOff
	if on {
		action = PlugOn
	}
	s.logger.WithFields(logrus.Fields{"sensor_id": sensorID, "action": action}).Debug("Setting plug")
	return s.api.SendPlugCommand(ctx, pid, sensorID, action)
}

// ClimateState returns the temperature reading of a climate or
// thermostat sensor, rounded to one decimal. Humidity and setpoint,
// when present, arrive through the attributes.
func (s *Service) ClimateState(sensorID string) (float64, state.Attributes, bool) {
	snap := s.currentSnapshot()
	if snap == nil {
		return 0, nil, false
	}

	attr := s.attributesFor(snap, sensorID)
	item := s.findElement(snap, sensorID)
	if item == nil || item.States == nil || item.States.Temperature == nil {
		return 0, attr, false
	}
	return math.Round(*item.States.Temperature*10) / 10, attr, true
}

// SetThermostatSetpoint writes a new target temperature.
func (s *Service) SetThermostatSetpoint(ctx context.Context, sensorID string, setpoint float64) error {
	pid, err := s.propertyIDOrRefresh(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"sensor_id": sensorID, "setpoint": setpoint}).Debug("Setting thermostat")
	return s.api.SetThermostatSetpoint(ctx, pid, sensorID, setpoint)
}

// PanicState reports whether the user panic alarm is raised, derived
// from the last fetched health document.
func (s *Service) PanicState() bool {
	snap := s.currentSnapshot()
	return snap != nil && snap.Health.StatusMsgID == "alarm.user"
}

// SetPanic raises or clears the user panic alarm.
func (s *Service) SetPanic(ctx context.Context, on bool) error {
	if on {
		return s.api.StartPanic(ctx)
	}
	return s.api.StopPanic(ctx)
}

// SensorIDs lists the device identifiers of one family. The base
// family resolves to the basestation itself and cameras come from the
// element tree; everything else comes from the sensor list.
func (s *Service) SensorIDs(family string) []string {
	snap := s.currentSnapshot()
	if snap == nil {
		return nil
	}

	var ids []string
	switch family {
	case "base":
		if base := snap.Basestation(); base != nil {
			ids = append(ids, strings.ToLower(base.ID))
		}
	case "camera":
		for _, cam := range snap.Elements.Cameras {
			ids = append(ids, strings.ToLower(cam.ID))
		}
	default:
		base := snap.Basestation()
		if base == nil {
			return nil
		}
		for _, ref := range base.Sensors {
			if familyByCode[ref.Type] == family {
				ids = append(ids, ref.ID)
			}
		}
	}
	return ids
}

func (s *Service) currentSnapshot() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Service) propertyIDOrRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	pid := s.propertyID
	s.mu.Unlock()
	if pid != "" {
		return pid, nil
	}

	if _, err := s.Refresh(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	pid = s.propertyID
	s.mu.Unlock()
	if pid == "" {
		return "", errors.New("no basestation discovered")
	}
	return pid, nil
}

func (s *Service) attributesFor(snap *models.Snapshot, sensorID string) state.Attributes {
	key := fmt.Sprintf("%d:%s", snap.Seq, strings.ToLower(sensorID))
	if v, ok := s.attrCache.Get(key); ok {
		return v.(state.Attributes)
	}

	attr := state.Normalize(s.findElement(snap, sensorID), snap.Basestation(), s.loc)
	s.attrCache.Add(key, attr)
	return attr
}

func (s *Service) findElement(snap *models.Snapshot, sensorID string) *models.Element {
	if len(sensorID) == cameraIDLength {
		for i := range snap.Elements.Cameras {
			if strings.EqualFold(snap.Elements.Cameras[i].ID, sensorID) {
				return &snap.Elements.Cameras[i]
			}
		}
		return nil
	}

	base := snap.Basestation()
	if base == nil || len(snap.Elements.Basestations) == 0 {
		return nil
	}
	want := base.ID + "." + sensorID
	subs := snap.Elements.Basestations[0].Subelements
	for i := range subs {
		if strings.EqualFold(subs[i].ID, want) {
			return &subs[i]
		}
	}
	return nil
}
