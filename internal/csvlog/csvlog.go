// Package csvlog formats telemetry rows and appends them to the general,
// irrigation and manual-mode log files.
package csvlog

import (
	"strings"
	"time"

	"github.com/sweeney/agri-logger/internal/logic"
)

// TimestampLayout is the row timestamp format: local wall clock, second precision.
const TimestampLayout = "2006-01-02 15:04:05"

// Log identifies one of the three log files.
type Log string

const (
	General    Log = "general"
	Irrigation Log = "irrigation"
	ManualMode Log = "manual_mode"
)

// Logs lists every log in a fixed order.
var Logs = []Log{General, Irrigation, ManualMode}

// Default file names.
const (
	DefaultGeneralFile    = "mqtt_log.csv"
	DefaultIrrigationFile = "irrigation_log.csv"
	DefaultManualFile     = "manual_mode_log.csv"
)

// Writer appends rows to logs.
type Writer interface {
	// Append writes row followed by a newline to the given log.
	Append(l Log, row string) error
}

// FormatRecord builds a general (and irrigation) row: timestamp followed by
// the seven telemetry fields. Absent fields are empty.
func FormatRecord(t time.Time, rec logic.Record) string {
	fields := append([]string{t.Format(TimestampLayout)}, rec.Fields()...)
	return strings.Join(fields, ",")
}

// FormatMarker builds a manual-mode row: timestamp followed by a marker such as ENTERED_MANUAL.
func FormatMarker(t time.Time, marker string) string {
	return t.Format(TimestampLayout) + "," + marker
}
