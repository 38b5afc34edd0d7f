package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/agri-logger/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Irrigation    string      `json:"irrigation"`
	ManualMode    string      `json:"manual_mode"`
	Messages      int         `json:"messages"`
	DecodeErrors  int         `json:"decode_errors"`
	WriteErrors   int         `json:"write_errors"`
	LastMessage   string      `json:"last_message,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Recent        []EventJSON `json:"recent_events"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	IrrigationOn  int `json:"irrigation_on"`
	ManualEntered int `json:"manual_entered"`
	ManualResumed int `json:"manual_resumed"`
}

// EventJSON is the JSON representation of a recent transition.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LogDir        string `json:"log_dir"`
	GeneralLog    string `json:"general_log"`
	IrrigationLog string `json:"irrigation_log"`
	ManualLog     string `json:"manual_log"`
	HTTPAddr      string `json:"http_addr"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
}

// IrrigationState renders the tracked irrigation flag as ON, OFF or UNKNOWN.
func IrrigationState(f logic.Flag) string {
	switch f {
	case logic.FlagTrue:
		return "ON"
	case logic.FlagFalse:
		return "OFF"
	}
	return "UNKNOWN"
}

// ManualModeState renders the tracked manual-mode flag as MANUAL, AUTO or UNKNOWN.
func ManualModeState(f logic.Flag) string {
	switch f {
	case logic.FlagTrue:
		return "MANUAL"
	case logic.FlagFalse:
		return "AUTO"
	}
	return "UNKNOWN"
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	inner := StatusInner{
		Irrigation:    IrrigationState(snap.Irrigation),
		ManualMode:    ManualModeState(snap.ManualMode),
		Messages:      snap.Messages,
		DecodeErrors:  snap.DecodeErrors,
		WriteErrors:   snap.WriteErrors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.Topic,
		},
		Counts: CountsJSON{
			IrrigationOn:  snap.Counts.IrrigationOn,
			ManualEntered: snap.Counts.ManualEntered,
			ManualResumed: snap.Counts.ManualResumed,
		},
		Recent: make([]EventJSON, 0, len(snap.Recent)),
		Config: ConfigJSON{
			LogDir:        snap.Config.LogDir,
			GeneralLog:    snap.Config.GeneralLog,
			IrrigationLog: snap.Config.IrrigationLog,
			ManualLog:     snap.Config.ManualLog,
			HTTPAddr:      snap.Config.HTTPAddr,
			HeartbeatMs:   snap.Config.HeartbeatMs,
		},
	}
	if !snap.LastMessage.IsZero() {
		inner.LastMessage = snap.LastMessage.UTC().Format(time.RFC3339)
	}
	for _, e := range snap.Recent {
		inner.Recent = append(inner.Recent, EventJSON{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(e.Type),
		})
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
