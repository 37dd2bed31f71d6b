package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/runner"
)

func newTestTelemetry(t *testing.T) (*Telemetry, *bytes.Buffer, string) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "tfsync.prom")
	cfg.Logging.Format = "json"

	var logs bytes.Buffer
	tel, err := newTelemetry(cfg, NewLoggerTo(&logs, cfg.Logging))
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}
	return tel, &logs, cfg.Metrics.Textfile
}

func readTextfile(t *testing.T, tel *Telemetry, path string) string {
	t.Helper()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Expected clean shutdown, got: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected metrics textfile, got: %v", err)
	}
	return string(data)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, true},
		{"otlp without endpoint", func(c *Config) { c.Tracing.Exporter = "otlp" }, true},
		{"otlp", func(c *Config) { c.Tracing.Exporter = "otlp"; c.Tracing.Endpoint = "localhost:4317" }, false},
		{"sampling", func(c *Config) { c.Tracing.SamplingRate = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "info", Format: "json"})

	ctx := logger.NewComponentLogger("sync").WithResource("network").WithContext(context.Background())
	FromContext(ctx).Warn("synced")

	out := buf.String()
	for _, want := range []string{`"component":"sync"`, `"resource":"network"`, `"message":"synced"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in log output, got %s", want, out)
		}
	}

	// No logger in the context discards silently.
	FromContext(context.Background()).Warn("dropped")
}

func TestEventPublisher(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})

	var all, objects []Event
	ep.Subscribe(func(_ context.Context, e Event) error {
		all = append(all, e)
		return nil
	}, nil)
	ep.Subscribe(func(_ context.Context, e Event) error {
		objects = append(objects, e)
		return nil
	}, FilterByType(EventTypeObjectReconciled))

	ctx := context.Background()
	if err := ep.PublishRunStarted(ctx, "run-1", "sync"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := ep.Recorder("run-1").Record(ctx, "widget", "widgets.yaml", "widget", engine.ActionCreated); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(all) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(all))
	}
	if len(objects) != 1 {
		t.Fatalf("Expected 1 object event, got %d", len(objects))
	}
	if objects[0].ID == "" || objects[0].RunID != "run-1" || objects[0].Data["address"] != "widget" {
		t.Errorf("Unexpected object event: %+v", objects[0])
	}
}

func TestEventPublisherSubscriberError(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})
	ep.Subscribe(func(context.Context, Event) error { return errors.New("disk full") }, nil)

	err := ep.PublishObject(context.Background(), "run-1", "widget", "widgets.yaml", "widget", engine.ActionUpdated)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected subscriber error, got %v", err)
	}

	disabled := NewEventPublisher(EventsConfig{})
	disabled.Subscribe(func(context.Context, Event) error { return errors.New("unreachable") }, nil)
	if err := disabled.PublishRunStarted(context.Background(), "run-2", "create"); err != nil {
		t.Errorf("Expected disabled publisher to drop events, got %v", err)
	}
}

func TestMetricsTextfile(t *testing.T) {
	tel, _, path := newTestTelemetry(t)
	ctx := tel.WithContext(context.Background())

	if err := tel.Events.Recorder("run-1").Record(ctx, "widget", "widgets.yaml", "widget", engine.ActionCreated); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	tel.Metrics.RecordCacheHit("widget")

	out := readTextfile(t, tel, path)
	for _, want := range []string{
		`tfsync_objects_reconciled_total{action="created",resource="widget"} 1`,
		`tfsync_discovery_cache_hits_total{resource="widget"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in textfile, got:\n%s", want, out)
		}
	}
}

func TestInstrumentStep(t *testing.T) {
	tel, _, path := newTestTelemetry(t)
	ctx := tel.WithContext(context.Background())

	var failures []Event
	tel.Events.Subscribe(func(_ context.Context, e Event) error {
		failures = append(failures, e)
		return nil
	}, FilterByType(EventTypeResourceFailed))

	step := InstrumentStep("run-1", engine.OperationSync, func(ctx context.Context, name string) error {
		if name == "subnet" {
			return engine.NewRequiredArgumentError([]string{"network"})
		}
		return nil
	})

	if err := step(ctx, "network"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := step(ctx, "subnet"); !engine.IsRequiredArgument(err) {
		t.Fatalf("Expected required argument error, got %v", err)
	}

	if len(failures) != 1 || failures[0].Resource != "subnet" {
		t.Errorf("Expected one failure event for subnet, got %+v", failures)
	}

	out := readTextfile(t, tel, path)
	if !strings.Contains(out, `tfsync_resources_processed_total{resource="subnet",status="failure"} 1`) {
		t.Errorf("Expected failed resource metric, got:\n%s", out)
	}
}

func TestInstrumentRunner(t *testing.T) {
	tel, _, path := newTestTelemetry(t)

	fake := runner.NewFake().On("[]", "/usr/bin/gcloud", "compute", "networks", "list")
	r := InstrumentRunner(fake, tel)

	result, err := r.Run(context.Background(), runner.Command{Args: []string{"/usr/bin/gcloud", "compute", "networks", "list"}})
	if err != nil || string(result.Stdout) != "[]" {
		t.Fatalf("Expected passthrough of the fake output, got %v, %v", result, err)
	}
	if _, err := r.Run(context.Background(), runner.Command{Args: []string{"terraform", "init"}}); err == nil {
		t.Fatal("Expected unknown command to fail")
	}

	out := readTextfile(t, tel, path)
	for _, want := range []string{
		`tfsync_commands_executed_total{program="gcloud",status="success"} 1`,
		`tfsync_commands_executed_total{program="terraform",status="failure"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in textfile, got:\n%s", want, out)
		}
	}
}

func TestRunLifecycle(t *testing.T) {
	tel, _, path := newTestTelemetry(t)
	ctx := tel.WithContext(context.Background())

	var types []string
	tel.Events.Subscribe(func(_ context.Context, e Event) error {
		types = append(types, e.Type)
		return nil
	}, FilterByType(EventTypeRunStarted, EventTypeRunCompleted, EventTypeRunFailed))

	run := &engine.Run{ID: "run-1", Command: engine.OperationCreate}
	runCtx := StartRun(ctx, run)
	err := engine.NewAlreadyExistsError("widget")
	run.Complete(err)
	EndRun(runCtx, run, err)

	if len(types) != 2 || types[0] != EventTypeRunStarted || types[1] != EventTypeRunFailed {
		t.Errorf("Expected started and failed events, got %v", types)
	}

	out := readTextfile(t, tel, path)
	if !strings.Contains(out, `tfsync_errors_total{kind="already_exists"} 1`) {
		t.Errorf("Expected error kind metric, got:\n%s", out)
	}
}
