// Package output provides console and file logging, colors and prompts.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// simpleHandler writes messages without timestamps or level prefixes
type simpleHandler struct {
	writer    io.Writer
	debugMode bool
	quiet     *bool
}

func (h *simpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *simpleHandler) Handle(_ context.Context, record slog.Record) error {
	if *h.quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *simpleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *simpleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// envInt reads a positive integer override; zero is accepted when allowZero is set
func envInt(name string, allowZero bool) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, false
	}
	return n, true
}

// createLumberjackLogger creates a rotating file writer configured from the environment
func createLumberjackLogger(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    5,  // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   false,
	}

	if n, ok := envInt("DEPLOYIT_LOG_MAX_SIZE", false); ok {
		config.MaxSize = n
	}
	if n, ok := envInt("DEPLOYIT_LOG_MAX_BACKUPS", true); ok {
		config.MaxBackups = n
	}
	if n, ok := envInt("DEPLOYIT_LOG_MAX_AGE", false); ok {
		config.MaxAge = n
	}

	return config
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// Splog writes user-facing output to the console and, optionally, a
// timestamped copy of every line to a rotating log file
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	logWriter io.WriteCloser
	quiet     bool
}

// NewSplog creates a console-only splog on stdout.
// Debug messages are enabled when the DEBUG environment variable is set.
func NewSplog() *Splog {
	return NewSplogWithWriter(os.Stdout, os.Getenv("DEBUG") != "")
}

// NewSplogWithWriter creates a console-only splog writing to w
func NewSplogWithWriter(w io.Writer, debug bool) *Splog {
	splog := &Splog{writer: w}
	splog.logger = slog.New(&simpleHandler{writer: w, debugMode: debug, quiet: &splog.quiet})
	return splog
}

// NewSplogWithConfig creates a splog on stdout that also logs to logFilePath
// when it is non-empty
func NewSplogWithConfig(logFilePath string) (*Splog, error) {
	return newSplog(os.Stdout, os.Getenv("DEBUG") != "", logFilePath)
}

func newSplog(w io.Writer, debug bool, logFilePath string) (*Splog, error) {
	splog := &Splog{writer: w}

	handlers := []slog.Handler{
		&simpleHandler{writer: w, debugMode: debug, quiet: &splog.quiet},
	}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lumberjackLogger := createLumberjackLogger(logFilePath)
		splog.logWriter = lumberjackLogger

		fileHandler := slog.NewTextHandler(lumberjackLogger, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05.000"))}
				}
				return a
			},
		})
		handlers = append(handlers, fileHandler)
	}

	splog.logger = slog.New(&multiHandler{handlers: handlers})
	return splog, nil
}

// SetQuiet suppresses console output; the log file still receives every line
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

// Writer returns the console writer
func (s *Splog) Writer() io.Writer {
	return s.writer
}

func (s *Splog) log(level slog.Level, prefix, format string, args ...interface{}) {
	msg := prefix + format
	if len(args) > 0 {
		msg = fmt.Sprintf(prefix+format, args...)
	}
	s.logger.Log(context.Background(), level, msg)
}

// Info writes an info message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Info(format string, args ...interface{}) {
	s.log(slog.LevelInfo, "", format, args...)
}

// Warn writes a warning message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Warn(format string, args ...interface{}) {
	s.log(slog.LevelWarn, "⚠️  ", format, args...)
}

// Error writes an error message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Error(format string, args ...interface{}) {
	s.log(slog.LevelError, "❌ ", format, args...)
}

// Debug writes a debug message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Debug(format string, args ...interface{}) {
	s.log(slog.LevelDebug, "", format, args...)
}

// Tip writes a tip message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Tip(format string, args ...interface{}) {
	s.log(slog.LevelInfo, "💡 ", format, args...)
}

// Page writes raw content, such as command output, without a trailing newline
func (s *Splog) Page(content string) {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprint(s.writer, content)
}

// Newline writes an empty line
func (s *Splog) Newline() {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprintln(s.writer)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
