// Package auditlog implements A3: a JSONL audit trail of verification
// runs, rotated by size. Adapted from the teacher's internal/logger:
// same append-only file, same rotate-at-threshold policy, same
// lock-protected single file handle, retargeted from shell-command
// decisions to layout verification outcomes.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gzhole/intoto-verify/internal/redact"
)

const defaultMaxLogBytes = 10 * 1024 * 1024

// Event is one verification run's outcome.
type Event struct {
	Timestamp    string `json:"timestamp"`
	RunID        string `json:"run_id"`
	Layout       string `json:"layout"`
	Outcome      string `json:"outcome"` // "accept" or "reject"
	FailedStage  string `json:"failed_stage,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorDetail  string `json:"error_detail,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// Logger is the audit trail writer.
type Logger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens (creating if needed) the audit log at path.
func Open(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, file: file}, nil
}

// rotateIfNeeded must be called with l.mu held.
func (l *Logger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("auditlog: stat: %w", err)
	}
	if info.Size() < defaultMaxLogBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("auditlog: close before rotation: %w", err)
	}

	rotated := l.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("auditlog: rotate: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("auditlog: reopen after rotation: %w", err)
	}
	l.file = f
	return nil
}

// Record appends one event. A logging failure is reported to stderr,
// not returned: a verification run's pass/fail outcome must never
// depend on whether the audit trail could be written.
func (l *Logger) Record(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "auditlog: warning: rotation failed: %v\n", err)
	}

	event.ErrorDetail = redact.Redact(event.ErrorDetail)

	data, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auditlog: warning: marshal failed: %v\n", err)
		return
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "auditlog: warning: write failed: %v\n", err)
	}
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Now is exposed so callers can stamp Event.Timestamp with a single,
// consistent clock read at the call site.
func Now() time.Time { return time.Now().UTC() }
