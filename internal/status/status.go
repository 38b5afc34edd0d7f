// Package status provides a thread-safe status tracker for the agri-logger daemon.
// It is read by the HTTP handlers and the heartbeat summary.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/agri-logger/internal/logic"
)

// RecentEvents is how many transitions the tracker remembers.
const RecentEvents = 20

// Config contains daemon configuration for display.
type Config struct {
	Broker        string
	Topic         string
	LogDir        string
	GeneralLog    string
	IrrigationLog string
	ManualLog     string
	HTTPAddr      string
	HeartbeatMs   int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Irrigation    logic.Flag
	ManualMode    logic.Flag
	Counts        logic.EventCounts
	Messages      int
	DecodeErrors  int
	WriteErrors   int
	LastMessage   time.Time
	Recent        []logic.Event // oldest first
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	recent *eventRing
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		recent: newEventRing(RecentEvents),
	}
}

// Update sets the tracked flags and transition counts.
// Called by the message handler after each decoded record.
func (t *Tracker) Update(irrigation, manualMode logic.Flag, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Irrigation = irrigation
	t.snap.ManualMode = manualMode
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordMessage counts a received message.
func (t *Tracker) RecordMessage(at time.Time) {
	t.mu.Lock()
	t.snap.Messages++
	t.snap.LastMessage = at
	t.mu.Unlock()
}

// RecordDecodeError counts a dropped message.
func (t *Tracker) RecordDecodeError() {
	t.mu.Lock()
	t.snap.DecodeErrors++
	t.mu.Unlock()
}

// RecordWriteError counts a failed append.
func (t *Tracker) RecordWriteError() {
	t.mu.Lock()
	t.snap.WriteErrors++
	t.mu.Unlock()
}

// RecordEvents adds transitions to the recent history.
func (t *Tracker) RecordEvents(events []logic.Event) {
	t.mu.Lock()
	for _, e := range events {
		t.recent.push(e)
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = t.recent.items()
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
