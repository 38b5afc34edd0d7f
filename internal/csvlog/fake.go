package csvlog

import "sync"

// FakeWriter records appended rows for test assertions.
type FakeWriter struct {
	mu sync.Mutex

	// Rows contains the rows appended to each log, in order.
	Rows map[Log][]string

	// AppendErrors, if set for a log, is returned by Append for that log
	// and the row is not recorded.
	AppendErrors map[Log]error
}

// NewFakeWriter creates a FakeWriter for testing.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{
		Rows:         make(map[Log][]string),
		AppendErrors: make(map[Log]error),
	}
}

// Append records the row.
func (f *FakeWriter) Append(l Log, row string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.AppendErrors[l]; err != nil {
		return err
	}
	f.Rows[l] = append(f.Rows[l], row)
	return nil
}

// Lines returns a copy of the rows appended to a log.
func (f *FakeWriter) Lines(l Log) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.Rows[l]...)
}

// Reset clears recorded rows and errors.
func (f *FakeWriter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Rows = make(map[Log][]string)
	f.AppendErrors = make(map[Log]error)
}
