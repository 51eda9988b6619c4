package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging for HTTP edges and the pipeline.
type Logger interface {
	// LogRequest logs an outgoing API request (credentials redacted).
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing info.
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error.
	LogError(ctx context.Context, err ErrorLog)

	// LogWarning logs a warning message with structured fields.
	LogWarning(ctx context.Context, message string, fields map[string]interface{})

	// LogInfo logs an informational message with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Service     string
	Operation   string
	Timestamp   time.Time
	PayloadSize int
	Credential  string // redacted to last 4 chars when redaction is on
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Service    string
	Operation  string
	Timestamp  time.Time
	Duration   time.Duration
	StatusCode int
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Service    string
	Operation  string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// DefaultLogger writes logs in structured format to the standard logger.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, format: format, redactKeys: redactKeys}
}

// LogRequest logs an API request at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}
	cred := l.RedactCredential(req.Credential)
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"debug","type":"request","service":"%s","operation":"%s","timestamp":"%s","payload_bytes":%d,"credential":"%s"}`,
			req.Service, req.Operation, req.Timestamp.Format(time.RFC3339), req.PayloadSize, cred)
		return
	}
	log.Printf("[DEBUG] %s %s: request sent (payload=%d bytes, key=%s)",
		req.Service, req.Operation, req.PayloadSize, cred)
}

// LogResponse logs an API response at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"info","type":"response","service":"%s","operation":"%s","timestamp":"%s","duration_ms":%d,"status_code":%d}`,
			resp.Service, resp.Operation, resp.Timestamp.Format(time.RFC3339),
			resp.Duration.Milliseconds(), resp.StatusCode)
		return
	}
	log.Printf("[INFO] %s %s: response received (duration=%.1fs, status=%d)",
		resp.Service, resp.Operation, resp.Duration.Seconds(), resp.StatusCode)
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, e ErrorLog) {
	if l.level > LogLevelError {
		return
	}
	retryableStr := "non-retryable"
	if e.Retryable {
		retryableStr = "retryable"
	}
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"error","type":"error","service":"%s","operation":"%s","timestamp":"%s","duration_ms":%d,"error":"%s","status_code":%d,"retryable":%t}`,
			e.Service, e.Operation, e.Timestamp.Format(time.RFC3339),
			e.Duration.Milliseconds(), e.Error.Error(), e.StatusCode, e.Retryable)
		return
	}
	log.Printf("[ERROR] %s %s: call failed (status=%d, %s): %v",
		e.Service, e.Operation, e.StatusCode, retryableStr, e.Error)
}

// LogWarning logs a warning with structured fields.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelError {
		return
	}
	l.logWithFields("warning", "[WARN]", message, fields)
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.logWithFields("info", "[INFO]", message, fields)
}

func (l *DefaultLogger) logWithFields(level, prefix, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		payload := map[string]interface{}{"level": level, "message": message}
		for k, v := range fields {
			payload[k] = v
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			log.Printf(`{"level":"%s","message":"%s"}`, level, message)
			return
		}
		log.Print(string(encoded))
		return
	}

	// Sort keys for deterministic human-readable output.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(" ")
	sb.WriteString(message)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
	}
	log.Print(sb.String())
}

// RedactCredential shows only the last 4 characters of a credential with
// explicit redaction markers.
func (l *DefaultLogger) RedactCredential(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}
