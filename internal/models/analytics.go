package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies the variant of an analytics event
type EventKind string

const (
	EventFeatureUsed       EventKind = "feature_used"
	EventScreenTimeTracked EventKind = "screen_time_tracked"
	EventRewardRedeemed    EventKind = "reward_redeemed"
	EventAppLaunched       EventKind = "app_launched"
	EventMemorySampled     EventKind = "memory_sampled"
	EventBatterySampled    EventKind = "battery_sampled"
	EventCrashReported     EventKind = "crash_reported"
	EventSessionStarted    EventKind = "session_started"
	EventSessionEnded      EventKind = "session_ended"
)

// EventPayload is the closed set of analytics event variants. Each variant
// carries only the fields relevant to its kind.
type EventPayload interface {
	EventKind() EventKind
}

// FeatureUsed records one use of a named app feature
type FeatureUsed struct {
	Feature string `json:"feature"`
}

func (FeatureUsed) EventKind() EventKind { return EventFeatureUsed }

// ScreenTimeTracked records a measured usage interval by category
type ScreenTimeTracked struct {
	Category        AppCategory `json:"category"`
	DurationSeconds int         `json:"duration_seconds"`
}

func (ScreenTimeTracked) EventKind() EventKind { return EventScreenTimeTracked }

// RewardRedeemed records a redemption and its snapshotted cost
type RewardRedeemed struct {
	PointCost int `json:"point_cost"`
}

func (RewardRedeemed) EventKind() EventKind { return EventRewardRedeemed }

// AppLaunched records a cold launch and its duration
type AppLaunched struct {
	LaunchTimeMs float64 `json:"launch_time_ms"`
}

func (AppLaunched) EventKind() EventKind { return EventAppLaunched }

// MemorySampled records a periodic memory reading
type MemorySampled struct {
	AverageMB float64 `json:"average_mb"`
	PeakMB    float64 `json:"peak_mb"`
}

func (MemorySampled) EventKind() EventKind { return EventMemorySampled }

// BatterySampled records a battery impact reading (0-100 scale)
type BatterySampled struct {
	Impact float64 `json:"impact"`
}

func (BatterySampled) EventKind() EventKind { return EventBatterySampled }

// CrashReported records that the app terminated abnormally
type CrashReported struct{}

func (CrashReported) EventKind() EventKind { return EventCrashReported }

// SessionStarted marks the beginning of a logical usage session
type SessionStarted struct{}

func (SessionStarted) EventKind() EventKind { return EventSessionStarted }

// SessionEnded marks the end of a logical usage session
type SessionEnded struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (SessionEnded) EventKind() EventKind { return EventSessionEnded }

// EncodePayload serializes a payload for storage
func EncodePayload(p EventPayload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// DecodePayload reconstructs a payload from its kind and stored form
func DecodePayload(kind EventKind, data []byte) (EventPayload, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	var p EventPayload
	switch kind {
	case EventFeatureUsed:
		p = &FeatureUsed{}
	case EventScreenTimeTracked:
		p = &ScreenTimeTracked{}
	case EventRewardRedeemed:
		p = &RewardRedeemed{}
	case EventAppLaunched:
		p = &AppLaunched{}
	case EventMemorySampled:
		p = &MemorySampled{}
	case EventBatterySampled:
		p = &BatterySampled{}
	case EventCrashReported:
		p = &CrashReported{}
	case EventSessionStarted:
		p = &SessionStarted{}
	case EventSessionEnded:
		p = &SessionEnded{}
	default:
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return deref(p), nil
}

// deref returns the value form so payloads compare and type-switch uniformly
func deref(p EventPayload) EventPayload {
	switch v := p.(type) {
	case *FeatureUsed:
		return *v
	case *ScreenTimeTracked:
		return *v
	case *RewardRedeemed:
		return *v
	case *AppLaunched:
		return *v
	case *MemorySampled:
		return *v
	case *BatterySampled:
		return *v
	case *CrashReported:
		return *v
	case *SessionStarted:
		return *v
	case *SessionEnded:
		return *v
	}
	return p
}

// DeviceClass is the coarsened device model allowed to leave the device.
// Exact model and build strings are never forwarded.
type DeviceClass string

const (
	DeviceIPhone DeviceClass = "iPhone"
	DeviceIPad   DeviceClass = "iPad"
	DeviceOther  DeviceClass = "Other"
)

// RawEvent is a telemetry event as produced on-device, before anonymization.
// It must never be persisted or forwarded in this form.
type RawEvent struct {
	ID          string
	UserID      string
	SessionID   string
	Payload     EventPayload
	OccurredAt  time.Time
	AppVersion  string
	OSVersion   string
	DeviceModel string
	Metadata    map[string]string
}

// AnonymizedEvent is the only form of a telemetry event that may be stored.
// The pseudonym and session token are one-way derivations; the device model
// is coarsened to a DeviceClass.
type AnonymizedEvent struct {
	ID           string
	Pseudonym    string
	SessionToken string
	Payload      EventPayload
	OccurredAt   time.Time
	AppVersion   string
	OSVersion    string
	DeviceClass  DeviceClass
	Metadata     map[string]string
}
