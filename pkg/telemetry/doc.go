// Package telemetry provides the observability stack of tfsync: structured
// logging (zerolog), tracing (OpenTelemetry), metrics (Prometheus) and a
// synchronous event publisher.
//
// # Usage
//
// Initialize telemetry once per process and carry it in the context:
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	ctx = tel.WithContext(ctx)
//
// # Logging
//
// Engine components take a zerolog.Logger; use Logger.Zerolog to obtain
// one. Loggers travel in the context with WithContext and FromContext.
//
// # Metrics
//
// tfsync is a short-lived process, so metrics are not served over HTTP.
// When MetricsConfig.Textfile is set, Shutdown writes them in the node
// exporter textfile format.
//
// # Events
//
// EventPublisher.Recorder adapts the publisher to engine.Recorder. Every
// object written during a run becomes an object.reconciled event; the
// telemetry instance itself subscribes to count them, and the journal
// subscribes to persist them.
//
// # Instrumentation
//
// InstrumentRunner wraps a runner.Runner with a span and metrics per
// command; InstrumentStep does the same for scheduler steps.
package telemetry
