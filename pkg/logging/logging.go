// pkg/logging/logging.go - timestamped session logging for vpndeploy
//
// Each deployment run logs into its own timestamped directory
// (YYYY-MM-DD-HHMMss) under the ProgramData log root: a plain-text
// deploy.log plus a structured events.json mirror for external
// monitoring tools. Console output is mirrored unless logging is
// disabled, in which case only the console writer remains.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// parseLevel maps a configured level name onto a LogLevel.
func parseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	default:
		return LevelError
	}
}

// Entry is the structured record written to events.json.
type Entry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Phase      string                 `json:"phase,omitempty"`
	Hostname   string                 `json:"hostname"`
	PID        int                    `json:"pid"`
	SessionID  string                 `json:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Options controls logger initialization.
type Options struct {
	BaseDir  string // base logging directory; session dirs are created beneath it
	Level    string // minimum level name (ERROR, WARN, INFO, DEBUG)
	FileLogs bool   // write deploy.log and events.json in the session dir
	Console  bool   // mirror plain output to stdout
}

// Logger writes leveled output to the console and the session files.
type Logger struct {
	mu        sync.Mutex
	plain     *log.Logger
	level     LogLevel
	logFile   *os.File
	eventFile *os.File
	sessDir   string
	sessionID string
	hostname  string
	phase     string
}

var (
	instance *Logger
	initMu   sync.Mutex
)

// Init initializes the singleton logger. Safe to call once per process;
// subsequent calls replace the instance (used after config reload).
func Init(opts Options) error {
	initMu.Lock()
	defer initMu.Unlock()

	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	if instance != nil {
		instance.close()
	}
	instance = l
	return nil
}

// Close flushes and closes the session log files.
func Close() {
	initMu.Lock()
	defer initMu.Unlock()
	if instance != nil {
		instance.close()
	}
}

// SessionDir returns the current timestamped log directory, or "" when
// file logging is disabled. Installer steps place their msiexec logs here.
func SessionDir() string {
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		return ""
	}
	return instance.sessDir
}

// SetPhase tags subsequent entries with the named deployment phase.
func SetPhase(phase string) {
	initMu.Lock()
	defer initMu.Unlock()
	if instance != nil {
		instance.mu.Lock()
		instance.phase = phase
		instance.mu.Unlock()
	}
}

func newLogger(opts Options) (*Logger, error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	start := time.Now()
	l := &Logger{
		level:     parseLevel(opts.Level),
		hostname:  hostname,
		sessionID: fmt.Sprintf("vpndeploy-%d-%s", start.Unix(), start.Format("2006-01-02-150405")),
	}

	writers := []io.Writer{}
	if opts.Console {
		writers = append(writers, os.Stdout)
	}

	if opts.FileLogs {
		sessDir := filepath.Join(opts.BaseDir, start.Format("2006-01-02-150405"))
		if err := os.MkdirAll(sessDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", sessDir, err)
		}
		logFile, err := os.OpenFile(filepath.Join(sessDir, "deploy.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open deploy.log: %w", err)
		}
		eventFile, err := os.OpenFile(filepath.Join(sessDir, "events.json"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("failed to open events.json: %w", err)
		}
		l.sessDir = sessDir
		l.logFile = logFile
		l.eventFile = eventFile
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	l.plain = log.New(io.MultiWriter(writers...), "", 0)
	return l, nil
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	if l.eventFile != nil {
		l.eventFile.Close()
		l.eventFile = nil
	}
}

// write emits one plain line and one structured entry.
func (l *Logger) write(level LogLevel, msg string, kv []interface{}) {
	if level > l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	props := kvToMap(kv)

	line := fmt.Sprintf("%s [%s] %s", now.Format("2006-01-02 15:04:05"), level, msg)
	if len(props) > 0 {
		line += " " + formatProps(kv)
	}
	l.plain.Println(line)

	if l.eventFile != nil {
		entry := Entry{
			Time:       now.Unix(),
			Timestamp:  now.Format(time.RFC3339),
			Level:      level.String(),
			Message:    msg,
			Phase:      l.phase,
			Hostname:   l.hostname,
			PID:        os.Getpid(),
			SessionID:  l.sessionID,
			Properties: props,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.eventFile.Write(append(data, '\n'))
		}
	}
}

// kvToMap folds alternating key/value arguments into a property map.
func kvToMap(kv []interface{}) map[string]interface{} {
	if len(kv) == 0 {
		return nil
	}
	props := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		props[key] = kv[i+1]
	}
	if len(kv)%2 != 0 {
		props["EXTRA"] = kv[len(kv)-1]
	}
	return props
}

func formatProps(kv []interface{}) string {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 != 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "EXTRA=%v", kv[len(kv)-1])
	}
	return sb.String()
}

// Package-level structured logging functions.

func Debug(msg string, kv ...interface{}) { emit(LevelDebug, msg, kv) }
func Info(msg string, kv ...interface{})  { emit(LevelInfo, msg, kv) }
func Warn(msg string, kv ...interface{})  { emit(LevelWarn, msg, kv) }
func Error(msg string, kv ...interface{}) { emit(LevelError, msg, kv) }

func emit(level LogLevel, msg string, kv []interface{}) {
	initMu.Lock()
	l := instance
	initMu.Unlock()
	if l == nil {
		if level <= LevelWarn {
			fmt.Fprintf(os.Stderr, "%s [%s] %s %s\n",
				time.Now().Format("2006-01-02 15:04:05"), level, msg, formatProps(kv))
		}
		return
	}
	l.write(level, msg, kv)
}
