package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePath is the default log file, relative to the working directory.
const LogFilePath = "logs/petzy.log"

// timeLayout stamps lines shown in the terminal overlay.
const timeLayout = "2006-01-02 15:04:05"

// defaultMaxLines bounds how many lines the Recorder keeps.
const defaultMaxLines = 500

// Options selects where log output goes.
type Options struct {
	// FilePath receives JSON lines at Level and above. Empty disables the file.
	FilePath string
	// Level is the minimum level for the file and console. The overlay records Info and above.
	Level zapcore.Level
	// Console also writes human-readable output to stderr (CLI subcommands).
	Console bool
	// MaxLines caps the in-memory history; zero uses a default.
	MaxLines int
}

// Recorder keeps recent log lines in memory for the terminal overlay.
type Recorder struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewRecorder returns a recorder keeping at most max lines (a default when max <= 0).
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = defaultMaxLines
	}
	return &Recorder{max: max}
}

// Write implements zapcore.WriteSyncer; each newline-terminated entry becomes a line.
func (r *Recorder) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		r.append(line)
	}
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer.
func (r *Recorder) Sync() error { return nil }

func (r *Recorder) append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if over := len(r.lines) - r.max; over > 0 {
		r.lines = append(r.lines[:0:0], r.lines[over:]...)
	}
}

// Lines returns a copy of all stored lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// New builds the application logger: JSON to the log file, a compact console rendering
// into the returned Recorder, and optionally stderr.
func New(opts Options) (*zap.Logger, *Recorder, error) {
	rec := NewRecorder(opts.MaxLines)

	overlayCfg := zapcore.EncoderConfig{
		TimeKey:          "T",
		MessageKey:       "M",
		NameKey:          "N",
		EncodeTime:       zapcore.TimeEncoderOfLayout("[" + timeLayout + "]"),
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(overlayCfg), rec, zapcore.InfoLevel),
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(f), opts.Level))
	}

	if opts.Console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), opts.Level))
	}

	return zap.New(zapcore.NewTee(cores...)), rec, nil
}

// ParseLevel maps a config string ("debug", "info", ...) to a level, defaulting to Info.
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
