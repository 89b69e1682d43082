package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Scope   string
	Message string
}

// String renders the entry in the on-disk format:
//
//	2024-05-01T10:00:00Z WARN  [auth] Login rejected for ada
func (e Entry) String() string {
	message := e.Message
	if e.Scope != "" {
		message = "[" + e.Scope + "] " + message
	}
	return fmt.Sprintf("%s %-5s %s", e.Time.UTC().Format(time.RFC3339), e.Level, message)
}

// ParseEntry reads a line written by String. Lines that do not start with a
// timestamp and level come back as an INFO entry holding the raw text.
func ParseEntry(line string) Entry {
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 {
		return Entry{Level: LevelInfo, Message: line}
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{Level: LevelInfo, Message: line}
	}
	rest := strings.TrimLeft(fields[1], " ")
	levelText, message, _ := strings.Cut(rest, " ")
	entry := Entry{Time: ts, Level: Level(levelText), Message: strings.TrimLeft(message, " ")}
	if strings.HasPrefix(entry.Message, "[") {
		if end := strings.Index(entry.Message, "] "); end > 0 {
			entry.Scope = entry.Message[1:end]
			entry.Message = entry.Message[end+2:]
		}
	}
	return entry
}

// Logbook records user-visible client activity (logins, workflow progress,
// deletions) to a plain text journal that the TUI tails in its log panel.
// Scoped copies share the file and the lock.
type Logbook struct {
	path  string
	scope string
	mu    *sync.Mutex
	clock func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, mu: &sync.Mutex{}, clock: time.Now}, nil
}

// WithScope returns a logbook sharing the same file whose entries are tagged
// with the given scope, e.g. "auth" or "workflow".
func (l *Logbook) WithScope(scope string) *Logbook {
	if l == nil {
		return nil
	}
	clone := *l
	clone.scope = strings.TrimSpace(scope)
	return &clone
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Write failures are dropped; the journal is
// never allowed to break the caller.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	entry := Entry{
		Time:    l.clock(),
		Level:   level,
		Scope:   l.scope,
		Message: strings.Join(strings.Fields(message), " "),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry.String() + "\n")
}

// Tail returns up to maxLines of the most recent lines together with the
// total number of lines in the journal.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	ring := make([]string, maxLines)
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		ring[total%maxLines] = scanner.Text()
		total++
	}
	if total == 0 {
		return nil, 0
	}
	n := min(total, maxLines)
	lines := make([]string, 0, n)
	for i := total - n; i < total; i++ {
		lines = append(lines, ring[i%maxLines])
	}
	return lines, total
}

// Recent parses the last maxEntries lines.
func (l *Logbook) Recent(maxEntries int) []Entry {
	lines, _ := l.Tail(maxEntries)
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, ParseEntry(line))
	}
	return entries
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
