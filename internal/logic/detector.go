package logic

import "time"

// Detector tracks the previous irrigation and manual-mode flags and detects
// the transitions worth logging.
type Detector struct {
	irrigation  Flag
	manualMode  Flag
	eventCounts EventCounts
}

// NewDetector creates a detector with both tracked flags unknown.
func NewDetector() *Detector {
	return &Detector{}
}

// Process evaluates a record against the previously seen flags and returns any
// transitions, in order: irrigation first, then manual mode.
//
// The stored flags are replaced with the record's flags after the checks, even
// when the record does not carry them. A partial record therefore resets the
// tracked flag to unknown.
func (d *Detector) Process(rec Record, now time.Time) []Event {
	var events []Event

	// Rising edge only; turning off is silent.
	if rec.Irrigation == FlagTrue && d.irrigation != FlagTrue {
		events = append(events, Event{Timestamp: now, Type: EventIrrigationOn, Record: rec})
	}

	if rec.ManualMode == FlagTrue && d.manualMode != FlagTrue {
		events = append(events, Event{Timestamp: now, Type: EventManualEntered, Record: rec})
	}
	// unknown -> false has nothing to resume from
	if rec.ManualMode == FlagFalse && d.manualMode == FlagTrue {
		events = append(events, Event{Timestamp: now, Type: EventManualResumed, Record: rec})
	}

	d.irrigation = rec.Irrigation
	d.manualMode = rec.ManualMode

	for _, e := range events {
		switch e.Type {
		case EventIrrigationOn:
			d.eventCounts.IrrigationOn++
		case EventManualEntered:
			d.eventCounts.ManualEntered++
		case EventManualResumed:
			d.eventCounts.ManualResumed++
		}
	}

	return events
}

// Previous returns the stored flags that the next record is compared against.
func (d *Detector) Previous() (irrigation Flag, manualMode Flag) {
	return d.irrigation, d.manualMode
}

// EventCountsSnapshot returns a copy of the current event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}
