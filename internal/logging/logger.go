package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/hiremind/internal/config"
)

// DefaultMaxSize is the size at which http.log is rotated on open.
const DefaultMaxSize = 4 << 20

// FileName is the trace log inside .hiremind/logs.
const FileName = "http.log"

// Logger appends timestamped lines to .hiremind/logs/http.log. The API client
// writes one line per request so failures can be inspected after the TUI exits.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	maxSize int64
	clock   func() time.Time
}

// Option customizes a Logger.
type Option func(*Logger)

// WithMaxSize sets the rotation threshold. Zero or less disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(l *Logger) {
		l.maxSize = bytes
	}
}

// WithClock pins timestamps in tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Logger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New opens the HTTP trace log for the given project directory. A log that
// already exceeds the size limit is moved to http.log.1 first, replacing any
// older rotation.
func New(projectDir string, opts ...Option) (*Logger, error) {
	l := &Logger{
		path:    filepath.Join(projectDir, config.HiremindDir, "logs", FileName),
		maxSize: DefaultMaxSize,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	if err := l.rotate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l.file = f
	return l, nil
}

func (l *Logger) rotate() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("logging: stat log file: %w", err)
	}
	if info.Size() < l.maxSize {
		return nil
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return fmt.Errorf("logging: rotate log file: %w", err)
	}
	return nil
}

// Path returns the file being written.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the file handle. Closing twice is a no-op.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Printf writes a single timestamped line. Embedded newlines are folded so
// every request stays on one line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	line = strings.ReplaceAll(line, "\n", " ⏎ ")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	fmt.Fprintf(l.file, "[%s] %s\n", l.clock().Format(time.RFC3339), line)
}
