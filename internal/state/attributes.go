package state

import (
	"time"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/models"
)

// Attributes is the canonical flat attribute set shared by every
// sensor-like consumer. Keys with absent or empty values are omitted
// entirely; consumers only ever see populated attributes.
type Attributes map[string]interface{}

// Clone returns a shallow copy, for callers that add derived keys.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Normalize flattens one device record into attributes. Connection,
// firmware and name fall back to the owning basestation when the
// record omits them, which also covers system-wide attributes where
// item is nil. Pure function of its input: no network, no state.
func Normalize(item *models.Element, base *models.Basestation, loc *time.Location) Attributes {
	attr := Attributes{}

	if item != nil {
		putString(attr, "battery_status", item.BatteryStatus)
		putBool(attr, "battery_low", item.PermanentBatteryLow)
		putString(attr, "calibration_status", item.CalibrationStatus)
		putBool(attr, "chamber_fail", item.SmokeChamberFail)
		putBool(attr, "unmounted", item.Unmounted)
		putBool(attr, "test_required", item.TestRequired)

		if st := item.States; st != nil {
			putString(attr, "relay", st.Relay)
			putFloat(attr, "temperature", st.Temperature)
			putFloat(attr, "humidity", st.Humidity)
			putFloat(attr, "pressure", st.Pressure)
			putFloat(attr, "setpoint", st.SetPoint)
		}

		if rc := item.RuntimeConfiguration; rc != nil {
			if rc.Duration != nil {
				attr["duration"] = *rc.Duration
			}
			if rc.StartTimestamp != nil {
				if loc == nil {
					loc = time.Local
				}
				attr["start_time"] = time.Unix(*rc.StartTimestamp, 0).In(loc).Format(time.RFC3339)
			}
		}
	}

	attr.fallback("connection_status", stringOrNil(item, func(e *models.Element) *string { return e.ConnectionStatus }), baseField(base, func(b *models.Basestation) string { return b.Status }))
	attr.fallback("custom_name", stringOrNil(item, func(e *models.Element) *string { return e.FriendlyName }), baseField(base, func(b *models.Basestation) string { return b.FriendlyName }))
	attr.fallback("firmware_status", stringOrNil(item, func(e *models.Element) *string { return e.FirmwareStatus }), baseField(base, func(b *models.Basestation) string { return b.FirmwareStatus }))

	return attr
}

func (a Attributes) fallback(key string, own *string, base string) {
	switch {
	case own != nil && *own != "":
		a[key] = *own
	case base != "":
		a[key] = base
	}
}

func stringOrNil(item *models.Element, get func(*models.Element) *string) *string {
	if item == nil {
		return nil
	}
	return get(item)
}

func baseField(base *models.Basestation, get func(*models.Basestation) string) string {
	if base == nil {
		return ""
	}
	return get(base)
}

func putString(a Attributes, key string, v *string) {
	if v != nil && *v != "" {
		a[key] = *v
	}
}

func putBool(a Attributes, key string, v *bool) {
	if v != nil {
		a[key] = *v
	}
}

func putFloat(a Attributes, key string, v *float64) {
	if v != nil {
		a[key] = *v
	}
}
