// Package ingest turns received telemetry messages into log rows.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/agri-logger/internal/csvlog"
	"github.com/sweeney/agri-logger/internal/logic"
	"github.com/sweeney/agri-logger/internal/metrics"
	"github.com/sweeney/agri-logger/internal/mqtt"
	"github.com/sweeney/agri-logger/internal/status"
)

// Handler decodes messages, appends rows and tracks transitions.
// Handle is safe for concurrent use; calls are serialized.
type Handler struct {
	mu       sync.Mutex
	detector *logic.Detector
	writer   csvlog.Writer
	tracker  *status.Tracker  // optional
	metrics  *metrics.Metrics // optional
	now      func() time.Time
}

// NewHandler creates a handler with both tracked flags unknown.
// tracker and m may be nil.
func NewHandler(writer csvlog.Writer, tracker *status.Tracker, m *metrics.Metrics, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		detector: logic.NewDetector(),
		writer:   writer,
		tracker:  tracker,
		metrics:  m,
		now:      now,
	}
}

// Handle processes one message.
//
// A payload that cannot be decoded is reported and dropped: the returned
// error is a *mqtt.DecodeError and neither state nor logs are touched.
// Append failures do not stop the remaining steps; they are returned joined.
func (h *Handler) Handle(msg mqtt.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Messages.Inc()
	}

	rec, err := mqtt.DecodePayload(msg.Payload)
	if err != nil {
		log.Printf("error parsing message on %s: %v", msg.Topic, err)
		if h.metrics != nil {
			h.metrics.DecodeErrors.Inc()
		}
		if h.tracker != nil {
			h.tracker.RecordDecodeError()
		}
		return err
	}

	ts := msg.Received
	if ts.IsZero() {
		ts = h.now()
	}
	if h.tracker != nil {
		h.tracker.RecordMessage(ts)
	}

	row := csvlog.FormatRecord(ts, rec)
	var errs []error
	errs = append(errs, h.append(csvlog.General, row))

	events := h.detector.Process(rec, ts)
	for _, e := range events {
		stamp := e.Timestamp.Format(csvlog.TimestampLayout)
		switch e.Type {
		case logic.EventIrrigationOn:
			log.Printf("irrigation started at %s", stamp)
			errs = append(errs, h.append(csvlog.Irrigation, row))
		case logic.EventManualEntered:
			log.Printf("manual mode entered at %s", stamp)
			errs = append(errs, h.append(csvlog.ManualMode, csvlog.FormatMarker(ts, string(e.Type))))
		case logic.EventManualResumed:
			log.Printf("returned to auto mode at %s", stamp)
			errs = append(errs, h.append(csvlog.ManualMode, csvlog.FormatMarker(ts, string(e.Type))))
		}
		if h.metrics != nil {
			h.metrics.Transitions.WithLabelValues(string(e.Type)).Inc()
		}
	}

	if h.tracker != nil {
		irrigation, manual := h.detector.Previous()
		h.tracker.Update(irrigation, manual, h.detector.EventCountsSnapshot())
		h.tracker.RecordEvents(events)
	}

	return errors.Join(errs...)
}

func (h *Handler) append(l csvlog.Log, row string) error {
	if err := h.writer.Append(l, row); err != nil {
		log.Printf("append %s log: %v", l, err)
		if h.metrics != nil {
			h.metrics.WriteErrors.WithLabelValues(string(l)).Inc()
		}
		if h.tracker != nil {
			h.tracker.RecordWriteError()
		}
		return fmt.Errorf("append %s log: %w", l, err)
	}
	if h.metrics != nil {
		h.metrics.Rows.WithLabelValues(string(l)).Inc()
	}
	return nil
}

// Previous returns the tracked irrigation and manual-mode flags.
func (h *Handler) Previous() (irrigation, manualMode logic.Flag) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detector.Previous()
}
