// Package logic contains pure business logic for irrigation telemetry state tracking.
// This package has NO external dependencies (no MQTT, files, or OS access).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Flag is a boolean telemetry value that may also be unknown (absent from the payload).
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts an optional boolean into a Flag. A nil pointer is FlagUnknown.
func FlagOf(b *bool) Flag {
	if b == nil {
		return FlagUnknown
	}
	if *b {
		return FlagTrue
	}
	return FlagFalse
}

// String returns "true", "false", or "" for unknown. This is the form written to CSV rows.
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	}
	return ""
}

// Record is a single decoded telemetry message.
// Numeric readings keep the textual form they were transmitted in; empty means absent.
type Record struct {
	Temperature   string
	Humidity      string
	SoilMoisture  string
	EvaporationML string
	WaterPoured   string
	Irrigation    Flag
	ManualMode    Flag
}

// Fields returns the seven telemetry values in log column order.
func (r Record) Fields() []string {
	return []string{
		r.Temperature,
		r.Humidity,
		r.SoilMoisture,
		r.EvaporationML,
		r.WaterPoured,
		r.Irrigation.String(),
		r.ManualMode.String(),
	}
}

// EventType represents a detected state transition.
type EventType string

const (
	EventIrrigationOn  EventType = "IRRIGATION_ON"
	EventManualEntered EventType = "ENTERED_MANUAL"
	EventManualResumed EventType = "RESUMED_AUTO"
)

// Event represents a transition detected while processing a record.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Record    Record
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	IrrigationOn  int
	ManualEntered int
	ManualResumed int
}
