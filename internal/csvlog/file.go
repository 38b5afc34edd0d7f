package csvlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Files names the three log files.
type Files struct {
	General    string
	Irrigation string
	ManualMode string
}

// DefaultFiles returns the standard log file names.
func DefaultFiles() Files {
	return Files{
		General:    DefaultGeneralFile,
		Irrigation: DefaultIrrigationFile,
		ManualMode: DefaultManualFile,
	}
}

// FileWriter appends rows to files inside a directory. Each append opens,
// writes and closes the file, so nothing is held open between messages.
type FileWriter struct {
	paths map[Log]string
	locks map[Log]*sync.Mutex
}

// NewFileWriter creates dir if needed and returns a writer for the given files.
func NewFileWriter(dir string, files Files) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	w := &FileWriter{
		paths: map[Log]string{
			General:    filepath.Join(dir, files.General),
			Irrigation: filepath.Join(dir, files.Irrigation),
			ManualMode: filepath.Join(dir, files.ManualMode),
		},
		locks: make(map[Log]*sync.Mutex, len(Logs)),
	}
	for _, l := range Logs {
		w.locks[l] = &sync.Mutex{}
	}
	return w, nil
}

// Path returns the file path of a log.
func (w *FileWriter) Path(l Log) string {
	return w.paths[l]
}

// Append writes row and a newline to the log's file.
func (w *FileWriter) Append(l Log, row string) error {
	path, ok := w.paths[l]
	if !ok {
		return fmt.Errorf("unknown log %q", l)
	}

	mu := w.locks[l]
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(row + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
