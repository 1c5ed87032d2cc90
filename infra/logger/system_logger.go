package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/signpay/infra/opensearch"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

var levelColors = map[LogLevel]string{
	LevelDebug: "\033[36m",
	LevelInfo:  "\033[32m",
	LevelWarn:  "\033[33m",
	LevelError: "\033[31m",
	LevelFatal: "\033[35m",
}

// callerSkip is the frame of the code calling a package level helper or a
// ContextLogger method, counted from newEntry
const callerSkip = 4

// ParseLevel converts a configured level name, defaulting to info
func ParseLevel(level string) LogLevel {
	l := LogLevel(strings.ToLower(strings.TrimSpace(level)))
	if _, ok := levelOrder[l]; ok {
		return l
	}
	return LevelInfo
}

// SystemLog is one structured log entry, also the document indexed in OpenSearch
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	SessionID   string         `json:"session_id,omitempty"`
	OrderID     string         `json:"order_id,omitempty"`
	QuoteID     string         `json:"quote_id,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLogger writes entries to the console and, when configured, OpenSearch
type SystemLogger struct {
	openSearchLogger *opensearch.Logger
	enableConsole    bool
	enableOpenSearch bool
	jsonConsole      bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string

	outMu sync.Mutex
	out   io.Writer
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole    bool
	EnableOpenSearch bool
	JSONConsole      bool // one JSON object per line instead of colored text
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string
	Output           io.Writer // console destination, stdout when nil
}

// NewSystemLogger creates a new system logger
func NewSystemLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	return &SystemLogger{
		openSearchLogger: openSearchLogger,
		enableConsole:    config.EnableConsole,
		enableOpenSearch: config.EnableOpenSearch && openSearchLogger != nil,
		jsonConsole:      config.JSONConsole,
		minLevel:         config.MinLevel,
		service:          config.Service,
		version:          config.Version,
		environment:      config.Environment,
		out:              out,
	}
}

// LogContext identifies the checkout an entry belongs to
type LogContext struct {
	SessionID string
	OrderID   string
	QuoteID   string
	Provider  string
	RequestID string
	Fields    map[string]any
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, first(ctx))
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, first(ctx))
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, first(ctx))
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(LevelError, message, withError(err, first(ctx)))
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(LevelFatal, message, withError(err, first(ctx)))
	os.Exit(1)
}

func first(ctx []LogContext) LogContext {
	if len(ctx) > 0 {
		return ctx[0]
	}
	return LogContext{}
}

// withError returns logCtx with err stored under "error". The caller's
// field map is copied, never mutated.
func withError(err error, logCtx LogContext) LogContext {
	fields := make(map[string]any, len(logCtx.Fields)+1)
	maps.Copy(fields, logCtx.Fields)
	if err != nil {
		fields["error"] = err.Error()
	}
	logCtx.Fields = fields
	return logCtx
}

func (sl *SystemLogger) log(level LogLevel, message string, logCtx LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	entry := sl.newEntry(level, message, logCtx)

	if sl.enableConsole {
		sl.writeConsole(entry)
	}
	if sl.enableOpenSearch {
		go sl.logToOpenSearch(entry)
	}
}

func (sl *SystemLogger) newEntry(level LogLevel, message string, logCtx LogContext) SystemLog {
	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Function:    "unknown",
		File:        "unknown",
		SessionID:   logCtx.SessionID,
		OrderID:     logCtx.OrderID,
		QuoteID:     logCtx.QuoteID,
		Provider:    logCtx.Provider,
		RequestID:   logCtx.RequestID,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if pc, file, line, ok := runtime.Caller(callerSkip); ok {
		entry.File, entry.Line = file, line
		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			entry.Function = name[strings.LastIndex(name, ".")+1:]
		}
	}
	entry.Component = sl.extractComponent(entry.File)

	if len(logCtx.Fields) > 0 {
		entry.Fields = make(map[string]any, len(logCtx.Fields))
		for key, value := range logCtx.Fields {
			if s, ok := value.(string); ok {
				value = opensearch.SanitizeForLog(s)
			}
			entry.Fields[key] = value
		}
		if errMsg, ok := entry.Fields["error"].(string); ok {
			entry.Error = errMsg
		}
	}

	return entry
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent turns a source path into a short component name,
// e.g. /src/signpay/provider/resurs/resurs.go -> provider/resurs
func (sl *SystemLogger) extractComponent(file string) string {
	parts := strings.Split(file, "/")

	if i := slices.Index(parts, "signpay"); i != -1 && i+1 < len(parts) {
		if i+2 < len(parts) {
			return parts[i+1] + "/" + parts[i+2]
		}
		return parts[i+1]
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return "unknown"
}

func (sl *SystemLogger) writeConsole(entry SystemLog) {
	var line string
	if sl.jsonConsole {
		encoded, err := json.Marshal(entry)
		if err != nil {
			log.Printf("Failed to encode log entry: %v", err)
			return
		}
		line = string(encoded) + "\n"
	} else {
		line = formatText(entry)
	}

	sl.outMu.Lock()
	defer sl.outMu.Unlock()
	_, _ = io.WriteString(sl.out, line)
}

// formatText renders
// TIMESTAMP [LEVEL] [COMPONENT] [CONTEXT] MESSAGE - Error: ERR
// followed by one indented line per field
func formatText(entry SystemLog) string {
	var b strings.Builder

	var scope []string
	if entry.SessionID != "" {
		scope = append(scope, "session="+shortID(entry.SessionID))
	}
	if entry.OrderID != "" {
		scope = append(scope, "order="+entry.OrderID)
	}
	if entry.QuoteID != "" {
		scope = append(scope, "quote="+entry.QuoteID)
	}
	if entry.Provider != "" {
		scope = append(scope, "provider="+entry.Provider)
	}
	if entry.RequestID != "" {
		scope = append(scope, "req_id="+shortID(entry.RequestID))
	}

	fmt.Fprintf(&b, "%s [%s%s\033[0m] [%s] ",
		entry.Timestamp.Format("2006-01-02 15:04:05"),
		levelColors[entry.Level], strings.ToUpper(string(entry.Level)),
		entry.Component,
	)
	if len(scope) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(scope, " "))
	}
	b.WriteString(entry.Message)
	if entry.Error != "" {
		b.WriteString(" - Error: " + entry.Error)
	}
	b.WriteByte('\n')

	for _, key := range slices.Sorted(maps.Keys(entry.Fields)) {
		if key != "error" {
			fmt.Fprintf(&b, "  %s: %v\n", key, entry.Fields[key])
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (sl *SystemLogger) logToOpenSearch(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.openSearchLogger.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to log to OpenSearch: %v", err)
	}
}

// WithContext returns a logger that stamps ctx on every entry
func (sl *SystemLogger) WithContext(ctx LogContext) *ContextLogger {
	ctx.Fields = maps.Clone(ctx.Fields)
	return &ContextLogger{systemLogger: sl, context: ctx}
}

// ContextLogger carries the identifiers of one checkout step. The With
// methods return a new logger and leave the receiver untouched.
type ContextLogger struct {
	systemLogger *SystemLogger
	context      LogContext
}

func (cl *ContextLogger) Debug(message string) {
	cl.systemLogger.Debug(message, cl.context)
}

func (cl *ContextLogger) Info(message string) {
	cl.systemLogger.Info(message, cl.context)
}

func (cl *ContextLogger) Warn(message string) {
	cl.systemLogger.Warn(message, cl.context)
}

func (cl *ContextLogger) Error(message string, err error) {
	cl.systemLogger.Error(message, err, cl.context)
}

func (cl *ContextLogger) derive(update func(*LogContext)) *ContextLogger {
	next := cl.systemLogger.WithContext(cl.context)
	update(&next.context)
	return next
}

// With adds a field
func (cl *ContextLogger) With(key string, value any) *ContextLogger {
	return cl.derive(func(c *LogContext) {
		if c.Fields == nil {
			c.Fields = make(map[string]any)
		}
		c.Fields[key] = value
	})
}

// WithOrder sets the order id
func (cl *ContextLogger) WithOrder(orderID string) *ContextLogger {
	return cl.derive(func(c *LogContext) { c.OrderID = orderID })
}

// WithQuote sets the quote id
func (cl *ContextLogger) WithQuote(quoteID string) *ContextLogger {
	return cl.derive(func(c *LogContext) { c.QuoteID = quoteID })
}

// WithProvider sets the provider name
func (cl *ContextLogger) WithProvider(provider string) *ContextLogger {
	return cl.derive(func(c *LogContext) { c.Provider = provider })
}

// WithRequestID sets the request id
func (cl *ContextLogger) WithRequestID(requestID string) *ContextLogger {
	return cl.derive(func(c *LogContext) { c.RequestID = requestID })
}
