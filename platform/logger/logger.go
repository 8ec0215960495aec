// Package logger wraps slog with the handful of structured log shapes the
// service emits. Platform layer, no business logic.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger embeds slog.Logger so call sites keep the standard Info/Warn/Error
// surface alongside the domain helpers below.
type Logger struct {
	*slog.Logger
}

// New picks the handler by environment: development logs debug-level text,
// everything else logs info-level JSON.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// HTTPRequest logs one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DiagnosisOutcome logs the terminal outcome of a diagnosis attempt.
func (l *Logger) DiagnosisOutcome(userID int64, attemptID, outcome string) {
	l.Info("diagnosis_outcome",
		slog.Int64("user_id", userID),
		slog.String("attempt_id", attemptID),
		slog.String("outcome", outcome),
	)
}

// RateLimitExceeded logs a rejected webhook sender.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
