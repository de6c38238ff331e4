package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldOpID is the field name for the operation ID.
	LogFieldOpID = "op_id"
	// LogFieldOp is the field name for the operation name.
	LogFieldOp = "op"
	// LogFieldKind is the field name for the inventory kind.
	LogFieldKind = "kind"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldQuery is the field name for a search query.
	LogFieldQuery = "query"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// OpContext carries structured logging state for one inventory operation
// (a search, a reconciliation pass, an upload).
type OpContext struct {
	OpID      string
	Op        string
	Kind      string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewOpContext creates an operation context with a generated ID.
func NewOpContext(logger *slog.Logger, op, kind string) *OpContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpContext{
		OpID:      uuid.New().String(),
		Op:        op,
		Kind:      kind,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a logger with the operation fields and additional ones.
func (o *OpContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	combined := o.baseAttrsAppended(attrs...)
	args := make([]any, 0, len(combined))
	for _, attr := range combined {
		args = append(args, attr)
	}
	return o.Logger.With(args...)
}

func (o *OpContext) Info(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, o.baseAttrsAppended(attrs...)...)
}

func (o *OpContext) Debug(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, o.baseAttrsAppended(attrs...)...)
}

func (o *OpContext) Warn(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, o.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (o *OpContext) Error(msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	o.Logger.LogAttrs(context.Background(), slog.LevelError, msg, o.baseAttrsAppended(attrs...)...)
}

// Done logs completion with the elapsed time.
func (o *OpContext) Done(msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Int64(LogFieldDuration, o.DurationMs()))
	o.Debug(msg, attrs...)
}

// Duration returns the elapsed time since the operation started.
func (o *OpContext) Duration() time.Duration {
	return time.Since(o.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (o *OpContext) DurationMs() int64 {
	return o.Duration().Milliseconds()
}

func (o *OpContext) baseAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(LogFieldOpID, o.OpID),
		slog.String(LogFieldOp, o.Op),
	}
	if o.Kind != "" {
		attrs = append(attrs, slog.String(LogFieldKind, o.Kind))
	}
	return attrs
}

func (o *OpContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(o.baseAttrs(), attrs...)
}

type ctxKey struct{}

// WithOpContext adds the operation context to the context.
func WithOpContext(ctx context.Context, op *OpContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, op)
}

// FromContext extracts the operation context from the context.
func FromContext(ctx context.Context) (*OpContext, bool) {
	op, ok := ctx.Value(ctxKey{}).(*OpContext)
	return op, ok
}
