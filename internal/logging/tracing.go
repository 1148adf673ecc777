package logging

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type googleCloudTracingLogHandler struct {
	base    slog.Handler
	project string
}

var _ slog.Handler = (*googleCloudTracingLogHandler)(nil)

// NewGoogleCloudTracingLogHandler wraps baseHandler so that log records made
// inside an active span carry the Google Cloud Logging trace fields, letting
// Cloud Logging group the lines under their trace.
//
// NOTE: Requires the use of the *Context slog methods to get the tracing info
func NewGoogleCloudTracingLogHandler(baseHandler slog.Handler, project string) *googleCloudTracingLogHandler {
	return &googleCloudTracingLogHandler{base: baseHandler, project: project}
}

func (h *googleCloudTracingLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *googleCloudTracingLogHandler) Handle(ctx context.Context, r slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return h.base.Handle(ctx, r)
	}

	// https://docs.cloud.google.com/logging/docs/agent/logging/configuration#special-fields
	r.AddAttrs(
		slog.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", h.project, spanContext.TraceID())),
		slog.String("logging.googleapis.com/spanId", spanContext.SpanID().String()),
		slog.Bool("logging.googleapis.com/trace_sampled", spanContext.TraceFlags().IsSampled()),
	)
	return h.base.Handle(ctx, r)
}

func (h *googleCloudTracingLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewGoogleCloudTracingLogHandler(h.base.WithAttrs(attrs), h.project)
}

func (h *googleCloudTracingLogHandler) WithGroup(name string) slog.Handler {
	return NewGoogleCloudTracingLogHandler(h.base.WithGroup(name), h.project)
}
