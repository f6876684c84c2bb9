package logbook

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/storefront/internal/logging"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook is the session journal shown in the log panel. Entries go through
// zap into a plain text file that Tail reads back.
type Logbook struct {
	logger *logging.Logger
	sugar  *zap.SugaredLogger
	mu     sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	logger, err := logging.NewAt(path)
	if err != nil {
		return nil, err
	}
	return FromLogger(logger), nil
}

// FromLogger wraps an already opened logger.
func FromLogger(logger *logging.Logger) *Logbook {
	if logger == nil {
		return nil
	}
	return &Logbook{logger: logger, sugar: logger.Sugar()}
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.logger.Path()
}

// Close flushes and closes the underlying file.
func (l *Logbook) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger.Close()
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message = strings.TrimSpace(message)
	switch level {
	case LevelWarn:
		l.sugar.Warn(message)
	case LevelError:
		l.sugar.Error(message)
	default:
		l.sugar.Info(message)
	}
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.logger.Sync()
	file, err := os.Open(l.logger.Path())
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
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

// Printf records an informational entry. It lets the logbook stand in for
// the Printf-style loggers the cart and catalog packages accept.
func (l *Logbook) Printf(format string, args ...any) {
	l.Info(format, args...)
}
