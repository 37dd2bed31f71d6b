package telemetry

import (
	"context"
	"errors"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/tfsync/pkg/engine"
)

// Telemetry combines logging, tracing, metrics and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return newTelemetry(cfg, logger)
}

// NewTelemetryTo creates a telemetry instance logging to w instead of
// cfg.Logging.Output.
func NewTelemetryTo(w io.Writer, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newTelemetry(cfg, NewLoggerTo(w, cfg.Logging))
}

func newTelemetry(cfg *Config, logger *Logger) (*Telemetry, error) {
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  NewEventPublisher(cfg.Events),
		Config:  cfg,
	}

	t.Events.Subscribe(func(_ context.Context, event Event) error {
		action, _ := event.Data["action"].(string)
		t.Metrics.RecordObject(event.Resource, action)
		return nil
	}, FilterByType(EventTypeObjectReconciled))

	return t, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown flushes pending spans and writes the metrics textfile.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.Tracer.Shutdown(ctx),
		t.Metrics.WriteTextfile(),
	)
}

// InstrumentedContext carries the span, logger and timer of one operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)

	logger := FromContext(ctx).WithField("operation", operation)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    logger.WithContext(spanCtx),
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span == nil {
		return
	}
	if err != nil {
		RecordError(ic.Span, err)
	} else {
		RecordSuccess(ic.Span)
	}
	ic.Span.End()
}

// runSpanKey is the context key for run spans.
type runSpanKey struct{}

// StartRun enriches ctx with a run span and a run-scoped logger and
// publishes the run start.
func StartRun(ctx context.Context, run *engine.Run) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartRunSpan(ctx, run.ID, string(run.Command))
	logger := tel.Logger.WithRunID(run.ID)
	spanCtx = logger.WithContext(spanCtx)

	if err := tel.Events.PublishRunStarted(spanCtx, run.ID, string(run.Command)); err != nil {
		logger.WithError(err).Warn("failed to publish run start")
	}

	return context.WithValue(spanCtx, runSpanKey{}, span)
}

// EndRun completes the run started with StartRun. run must already be
// completed.
func EndRun(ctx context.Context, run *engine.Run, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	if span, ok := ctx.Value(runSpanKey{}).(trace.Span); ok {
		span.SetAttributes(attribute.Int("run.objects", run.Summary.Objects))
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	tel.Metrics.RecordRunCompleted(string(run.Command), string(run.Status), run.Duration)
	if kind, ok := engine.KindOf(err); ok {
		tel.Metrics.RecordError(string(kind))
	}

	if perr := tel.Events.PublishRunCompleted(ctx, run.ID, run.Status, err); perr != nil {
		FromContext(ctx).WithError(perr).Warn("failed to publish run completion")
	}
}

// InstrumentStep wraps a scheduler step with a resource span, metrics and a
// failure event.
func InstrumentStep(runID string, operation engine.OperationType, step engine.Step) engine.Step {
	return func(ctx context.Context, name string) error {
		tel := FromTelemetryContext(ctx)
		if tel == nil {
			return step(ctx, name)
		}

		spanCtx, span := tel.Tracer.StartResourceSpan(ctx, name, string(operation))
		defer span.End()

		logger := FromContext(ctx).WithResource(name)
		err := step(logger.WithContext(spanCtx), name)

		status := "success"
		if err != nil {
			status = "failure"
			RecordError(span, err)
			if kind, ok := engine.KindOf(err); ok {
				span.SetAttributes(AttrErrorKind.String(string(kind)))
			}
			if perr := tel.Events.PublishResourceFailed(ctx, runID, name, err); perr != nil {
				logger.WithError(perr).Warn("failed to publish resource failure")
			}
		} else {
			RecordSuccess(span)
		}
		tel.Metrics.RecordResource(name, status)

		return err
	}
}
