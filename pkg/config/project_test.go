package config

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/openfroyo/tfsync/pkg/engine"
)

func newProjectFS(t *testing.T, dirs ...string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	return fs
}

func TestDiscover(t *testing.T) {
	fs := newProjectFS(t,
		"/work/.tfsync/resources",
		"/work/infra/.tfsync/resources",
		"/work/infra/prod/networks",
	)

	tests := []struct {
		name   string
		dir    string
		root   string
		search []string
	}{
		{
			name:   "nested project",
			dir:    "/work/infra/prod/networks",
			root:   "/work/infra",
			search: []string{"/work/infra/.tfsync/resources", "/work/.tfsync/resources"},
		},
		{
			name:   "project root",
			dir:    "/work",
			root:   "/work",
			search: []string{"/work/.tfsync/resources"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := Discover(fs, tt.dir)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if layout.Root != tt.root {
				t.Errorf("Expected root %s, got %s", tt.root, layout.Root)
			}
			if len(layout.SearchPaths) != len(tt.search) {
				t.Fatalf("Expected search paths %v, got %v", tt.search, layout.SearchPaths)
			}
			for i := range tt.search {
				if layout.SearchPaths[i] != tt.search[i] {
					t.Errorf("Expected search path %d to be %s, got %s", i, tt.search[i], layout.SearchPaths[i])
				}
			}
		})
	}
}

func TestDiscoverNotAProject(t *testing.T) {
	fs := newProjectFS(t, "/elsewhere", "/bare/.tfsync")

	for _, dir := range []string{"/elsewhere", "/bare"} {
		if _, err := Discover(fs, dir); !engine.IsNotFound(err) {
			t.Errorf("Expected not found error for %s, got %v", dir, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	fs := newProjectFS(t, "/p/.tfsync/resources")
	layout, err := Discover(fs, "/p")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	project, err := Load(fs, layout, NewSchemaRegistry())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if project.Terraform.Binary != "terraform" || project.Expressions != "expr" {
		t.Errorf("Expected defaults, got %+v", project)
	}
	if project.Journal.Enabled {
		t.Error("Expected the journal to be disabled by default")
	}
}

func TestLoadProject(t *testing.T) {
	fs := newProjectFS(t, "/p/.tfsync/resources")
	config := `
terraform:
  binary: tofu
  show_resources: "$.values..address"
expressions: starlark
timeout: 90s
journal:
  enabled: true
metrics:
  textfile: /var/lib/node_exporter/tfsync.prom
tracing:
  exporter: otlp
  endpoint: localhost:4317
logging:
  level: debug
`
	if err := util.WriteFile(fs, "/p/.tfsync/config.yaml", []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	project, err := Load(fs, &Layout{Root: "/p"}, NewSchemaRegistry())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if project.Terraform.Binary != "tofu" {
		t.Errorf("Expected binary tofu, got %s", project.Terraform.Binary)
	}
	if project.Timeout != 90*time.Second {
		t.Errorf("Expected timeout 90s, got %v", project.Timeout)
	}
	if !project.Journal.Enabled || project.Journal.Path != "journal.db" {
		t.Errorf("Expected enabled journal at the default path, got %+v", project.Journal)
	}
	if project.Logging.Format != "console" {
		t.Errorf("Expected default log format to be kept, got %s", project.Logging.Format)
	}

	tel := project.Telemetry("1.0.0")
	if tel.Tracing.Endpoint != "localhost:4317" || tel.Metrics.Textfile != project.Metrics.Textfile || tel.Logging.Level != "debug" {
		t.Errorf("Expected telemetry settings from the project, got %+v", tel)
	}
	if err := tel.Validate(); err != nil {
		t.Errorf("Expected valid telemetry configuration, got: %v", err)
	}
}

func TestLoadInvalidProject(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"unknown evaluator", "expressions: lua\n"},
		{"unknown key", "terraform:\n  bin: tofu\n"},
		{"otlp without endpoint", "tracing:\n  exporter: otlp\n"},
		{"empty binary", "terraform:\n  binary: \"\"\n"},
		{"bad timeout", "timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newProjectFS(t, "/p/.tfsync/resources")
			if err := util.WriteFile(fs, "/p/.tfsync/config.yaml", []byte(tt.config), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(fs, &Layout{Root: "/p"}, NewSchemaRegistry())
			if !engine.IsConfiguration(err) {
				t.Errorf("Expected configuration error, got %v", err)
			}
		})
	}
}
