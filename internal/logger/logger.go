package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artefactory/smartparks/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled structured logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	info    zerolog.Logger
	warning zerolog.Logger
	error   zerolog.Logger
	logDir  string
	files   []*os.File
	mu      sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) (*Logger, error) {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: config.LogDirectory}
	if err := l.setupLoggers(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Nop returns a Logger that discards every event.
func Nop() *Logger {
	return &Logger{
		info:    zerolog.Nop(),
		warning: zerolog.Nop(),
		error:   zerolog.Nop(),
	}
}

// setupLoggers opens the per-level files and builds one zerolog.Logger per level.
func (l *Logger) setupLoggers() error {
	infoFile, err := l.openLogFile(InfoFile)
	if err != nil {
		return err
	}
	warningFile, err := l.openLogFile(WarningFile)
	if err != nil {
		return err
	}
	errorFile, err := l.openLogFile(ErrorFile)
	if err != nil {
		return err
	}

	stdout := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}

	l.info = newLevelLogger(zerolog.MultiLevelWriter(stdout, infoFile))
	l.warning = newLevelLogger(zerolog.MultiLevelWriter(stdout, warningFile))
	l.error = newLevelLogger(zerolog.MultiLevelWriter(stderr, errorFile))
	return nil
}

func newLevelLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	filename := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info starts an info-level event.
func (l *Logger) Info() *zerolog.Event {
	return l.info.Info()
}

// Warning starts a warning-level event.
func (l *Logger) Warning() *zerolog.Event {
	return l.warning.Warn()
}

// Error starts an error-level event.
func (l *Logger) Error() *zerolog.Event {
	return l.error.Error()
}

// Dir returns the directory the level files live in.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	defer file.Close()

	l.Info().Str("file", fileName).Msg("log file cleared")
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
