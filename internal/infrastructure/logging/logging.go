package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/asakaida/commerce-api/internal/infrastructure/config"
	charmLog "github.com/charmbracelet/log"
)

type contextKey int

const requestKey contextKey = iota

// RequestInfo identifies the HTTP request a log record belongs to
type RequestInfo struct {
	ID       string
	Method   string
	Path     string
	SourceIP string
}

// WithRequest returns a context carrying the request info
func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey, info)
}

// RequestFromContext returns the request info stored in ctx
func RequestFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestKey).(RequestInfo)
	return info, ok
}

// ContextHandler adds a "request" group to records logged with a request context
type ContextHandler struct {
	slog.Handler
}

// Handle implements slog.Handler
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	info, ok := RequestFromContext(ctx)
	if !ok {
		return h.Handler.Handle(ctx, r)
	}

	r.AddAttrs(slog.Group(
		"request",
		slog.String("requestId", info.ID),
		slog.String("sourceIp", info.SourceIP),
		slog.String("method", info.Method),
		slog.String("path", info.Path),
	))

	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// NewHandler builds the handler for the configured format.
// json writes slog JSON records; anything else uses the charm text handler.
func NewHandler(cfg config.LogConfig, w io.Writer) slog.Handler {
	level := ParseLevel(cfg.Level)

	if cfg.Format == "json" {
		return ContextHandler{Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})}
	}

	return ContextHandler{Handler: charmLog.NewWithOptions(w, charmLog.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Level:           charmLog.Level(level),
	})}
}

// Setup installs the configured logger as the slog default
func Setup(cfg config.LogConfig, w io.Writer) *slog.Logger {
	logger := slog.New(NewHandler(cfg, w))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
