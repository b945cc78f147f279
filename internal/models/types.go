package models

import "time"

// Documents returned by the Gigaset Elements cloud API. Field presence
// varies per device family and per API revision, so optional fields are
// decoded into pointers and projected with explicit absence handling
// instead of assuming a rigid schema.

// Basestation is one entry of the GET /v1/me/basestations document.
type Basestation struct {
	ID                string             `json:"id"`
	FriendlyName      string             `json:"friendly_name"`
	Status            string             `json:"status"`
	FirmwareStatus    string             `json:"firmware_status"`
	IntrusionSettings *IntrusionSettings `json:"intrusion_settings"`
	Sensors           []SensorRef        `json:"sensors"`
}

// IntrusionSettings carries the remote arming state. RequestedMode and
// ModeTransitionInProgress only exist on newer backend revisions;
// older ones report ActiveMode alone.
type IntrusionSettings struct {
	ActiveMode               string `json:"active_mode"`
	RequestedMode            string `json:"requested_mode"`
	ModeTransitionInProgress *bool  `json:"mode_transition_in_progress"`
}

// SensorRef is the per-device entry of the basestation sensor list.
type SensorRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ElementsDocument is the device tree from GET /v2/me/elements,
// keyed by device family. Basestation entries (bs01) nest the
// physical sensors as subelements; cameras (yc01) are top level.
type ElementsDocument struct {
	Basestations []BaseElement `json:"bs01"`
	Cameras      []Element     `json:"yc01"`
}

type BaseElement struct {
	ID          string    `json:"id"`
	Subelements []Element `json:"subelements"`
}

// Element is one device record. Which fields are populated depends on
// the device family (door/window position, smoke flags, relay state,
// climate readings), so everything beyond the identifier is optional.
type Element struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	FriendlyName        *string `json:"friendlyName"`
	BatteryStatus       *string `json:"batteryStatus"`
	PermanentBatteryLow *bool   `json:"permanentBatteryLow"`
	CalibrationStatus   *string `json:"calibrationStatus"`
	SmokeChamberFail    *bool   `json:"smokeChamberFail"`
	ConnectionStatus    *string `json:"connectionStatus"`
	FirmwareStatus      *string `json:"firmwareStatus"`
	Unmounted           *bool   `json:"unmounted"`
	TestRequired        *bool   `json:"testRequired"`
	PositionStatus      *string `json:"positionStatus"`
	SmokeDetected       *bool   `json:"smokeDetected"`

	States               *ElementStates        `json:"states"`
	RuntimeConfiguration *RuntimeConfiguration `json:"runtimeConfiguration"`
}

// ElementStates is the loosely typed states sub-document.
type ElementStates struct {
	Relay       *string  `json:"relay"`
	Temperature *float64 `json:"temperature"`
	SetPoint    *float64 `json:"setPoint"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
}

// RuntimeConfiguration describes a timed device program: a duration in
// seconds and the epoch second it was started.
type RuntimeConfiguration struct {
	Duration       *int64 `json:"duration"`
	StartTimestamp *int64 `json:"ts"`
}

// EventsDocument is the GET /v2/me/events response, newest event first.
type EventsDocument struct {
	Events []Event `json:"events"`
}

// Event is one remote event record. The timestamp is epoch
// milliseconds encoded as a string on the wire. The originating device
// is reported either directly via SourceID or via the nested object.
type Event struct {
	Type      string       `json:"type"`
	Timestamp string       `json:"ts"`
	SourceID  string       `json:"source_id"`
	Object    *EventObject `json:"o"`
}

type EventObject struct {
	ID string `json:"id"`
}

// HealthDocument is the GET /v2/me/health response.
type HealthDocument struct {
	SystemHealth string `json:"system_health"`
	StatusMsgID  string `json:"status_msg_id"`
}

// DashboardDocument carries aggregate counters for the current day.
type DashboardDocument struct {
	Result DashboardResult `json:"result"`
}

type DashboardResult struct {
	RecentEventsNumber int            `json:"recentEventsNumber"`
	RecentEventCounts  map[string]int `json:"recentEventCounts"`
	LatestHomecoming   *int64         `json:"latestHomecomingTimestamp"`
	LatestLeaving      *int64         `json:"latestLeavingTimestamp"`
}

// CloudStatus is the vendor status page document, served from a
// different host than the API proper.
type CloudStatus struct {
	IsMaintenance bool `json:"isMaintenance"`
}

// Snapshot bundles everything fetched in one polling cycle. A snapshot
// is immutable once built and is superseded wholesale by the next
// cycle, never patched field by field.
type Snapshot struct {
	Seq       uint64
	FetchedAt time.Time

	Basestations []Basestation
	Elements     ElementsDocument
	Events       EventsDocument
	Health       HealthDocument
	Dashboard    DashboardDocument
	Cloud        CloudStatus
}

// Basestation returns the primary basestation record, or nil when the
// topology document was empty.
func (s *Snapshot) Basestation() *Basestation {
	if s == nil || len(s.Basestations) == 0 {
		return nil
	}
	return &s.Basestations[0]
}
