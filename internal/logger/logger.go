package logger

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the line layout.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	format       = FormatText
	logger       = stdlog.New(os.Stdout, "", 0)
	output       io.Closer
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetFormat switches between "text" and "json" lines. Unknown values keep
// the current format.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	switch Format(strings.ToLower(f)) {
	case FormatText:
		format = FormatText
	case FormatJSON:
		format = FormatJSON
	}
}

// SetOutput directs log lines to "stdout", "stderr" or a file path (opened
// for append). A previously opened log file is closed.
func SetOutput(dest string) error {
	var w io.Writer
	var closer io.Closer

	switch strings.ToLower(dest) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", dest, err)
		}
		w, closer = f, f
	}

	setWriter(w, closer)
	return nil
}

// SetWriter directs log lines to w. Used by tests to capture output.
func SetWriter(w io.Writer) {
	setWriter(w, nil)
}

func setWriter(w io.Writer, closer io.Closer) {
	mu.Lock()
	defer mu.Unlock()
	if output != nil {
		_ = output.Close()
	}
	logger = stdlog.New(w, "", 0)
	output = closer
}

// Configure applies level, format and output in one call.
func Configure(level, f, dest string) error {
	SetLevel(level)
	SetFormat(f)
	return SetOutput(dest)
}

// IsDebugEnabled reports whether DEBUG lines are written. Callers use it to
// skip building expensive debug arguments.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel <= LevelDebug
}

type jsonLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

func log(level Level, msgFormat string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	now := time.Now()
	message := fmt.Sprintf(msgFormat, v...)

	if format == FormatJSON {
		line, err := json.Marshal(jsonLine{
			Time:    now.Format(time.RFC3339Nano),
			Level:   level.String(),
			Message: message,
		})
		if err == nil {
			logger.Println(string(line))
			return
		}
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	logger.Println(prefix + message)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
