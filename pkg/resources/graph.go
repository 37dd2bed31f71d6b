// Package resources loads resource definitions and executes their
// operations: create and update of stored objects, sync from remote
// discovery commands, and terraform init, show and import.
package resources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/runner"
	"github.com/openfroyo/tfsync/pkg/settings"
)

var extensions = []string{".yml", ".yaml"}

// Validator checks a resource definition after its extends chain is merged.
type Validator interface {
	Validate(name string, definition map[string]any) error
}

// CacheObserver is notified of discovery commands served from cache.
type CacheObserver interface {
	RecordCacheHit(resource string)
}

// TerraformOptions configure the terraform collaborator.
type TerraformOptions struct {
	// Binary is the terraform executable, "terraform" when empty.
	Binary string

	// ShowResources is the path of the managed addresses in the output of
	// `terraform show -json`, used when a resource does not set its own.
	ShowResources string
}

// Options configure a Graph.
type Options struct {
	// Definitions holds the resource search paths.
	Definitions billy.Filesystem

	// SearchPaths are the directories searched for definitions, nearest
	// first. New definitions are listed from the first one.
	SearchPaths []string

	// Storage holds the storage documents, rooted at the project directory.
	Storage billy.Filesystem

	// Evaluator runs when, expr and onbeforesaving expressions.
	Evaluator expr.Evaluator

	// Runner runs discovery commands and terraform.
	Runner runner.Runner

	Terraform TerraformOptions

	// Validator, when set, checks every loaded definition.
	Validator Validator

	// Recorder, when set, receives every object written.
	Recorder engine.Recorder

	// Cache, when set, is told about discovery cache hits.
	Cache CacheObserver

	// WrapStep, when set, wraps every scheduler step.
	WrapStep func(op engine.OperationType, step engine.Step) engine.Step

	// Out receives dry-run documents.
	Out io.Writer

	Logger zerolog.Logger
}

// Graph loads resource definitions on demand and memoizes them by name.
// A Graph is built once per run and is not safe for concurrent use.
type Graph struct {
	opts      Options
	logger    zerolog.Logger
	resources map[string]*Resource
	order     []string
	loading   map[string]bool
}

// NewGraph creates a graph.
func NewGraph(opts Options) *Graph {
	if opts.Evaluator == nil {
		opts.Evaluator = expr.NewExprEvaluator()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Terraform.Binary == "" {
		opts.Terraform.Binary = "terraform"
	}
	return &Graph{
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "resources").Logger(),
		resources: make(map[string]*Resource),
		loading:   make(map[string]bool),
	}
}

// Load returns the resource called name, loading its parent first. A
// trailing .yml or .yaml extension is ignored.
func (g *Graph) Load(name string) (*Resource, error) {
	for _, ext := range extensions {
		name = strings.TrimSuffix(name, ext)
	}

	if r, ok := g.resources[name]; ok {
		return r, nil
	}
	if g.loading[name] {
		return nil, engine.NewConfigurationError(name+"/parent", "circular parent or extends chain").
			WithResource(name)
	}
	g.loading[name] = true
	defer delete(g.loading, name)

	file, doc, err := g.loadDefinition(name, "")
	if err != nil {
		return nil, err
	}
	if doc, err = g.extend(doc, file); err != nil {
		return nil, err
	}

	if g.opts.Validator != nil {
		if err := g.opts.Validator.Validate(name, doc.Data); err != nil {
			return nil, engine.NewConfigurationError(file, err.Error()).WithResource(name)
		}
	}

	var parent *Resource
	if p, _ := doc.Data["parent"].(string); p != "" {
		if parent, err = g.Load(p); err != nil {
			return nil, err
		}
	}
	delete(doc.Data, "parent")

	r, err := newResource(g, name, doc, parent)
	if err != nil {
		return nil, err
	}

	g.resources[name] = r
	g.order = append(g.order, name)
	return r, nil
}

// LoadAll loads every definition of the first search path whose name does
// not start with a dot, and returns every resource loaded so far.
func (g *Graph) LoadAll() ([]*Resource, error) {
	if len(g.opts.SearchPaths) > 0 {
		entries, err := g.opts.Definitions.ReadDir(g.opts.SearchPaths[0])
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to list resources: %w", err)
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !hasExtension(entry.Name()) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			if _, err := g.Load(name); err != nil {
				return nil, err
			}
		}
	}

	out := make([]*Resource, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.resources[name])
	}
	return out, nil
}

// Level implements engine.Levels: the resources scheduled under parent,
// which are the resources whose sync parent (or, without one, whose
// parent) is parent.
func (g *Graph) Level(parent string) ([]engine.Unit, error) {
	all, err := g.LoadAll()
	if err != nil {
		return nil, err
	}

	var units []engine.Unit
	for _, r := range all {
		if r.levelParent() != parent {
			continue
		}
		for _, dep := range r.DependsOn {
			if _, err := g.Load(dep); err != nil {
				return nil, err
			}
		}
		units = append(units, engine.Unit{Name: r.Name, DependsOn: r.DependsOn})
	}
	return units, nil
}

// Step adapts fn to a scheduler step for op.
func (g *Graph) Step(op engine.OperationType, fn func(ctx context.Context, r *Resource) error) engine.Step {
	step := func(ctx context.Context, name string) error {
		r, err := g.Load(name)
		if err != nil {
			return err
		}
		g.logger.Info().Msg(strings.ToUpper(name))
		return fn(ctx, r)
	}
	if g.opts.WrapStep != nil {
		return g.opts.WrapStep(op, step)
	}
	return step
}

// Each runs fn for every resource scheduled under parent, in dependency
// order, and returns how many succeeded.
func (g *Graph) Each(ctx context.Context, parent string, op engine.OperationType, fn func(ctx context.Context, r *Resource) error) (int, error) {
	return engine.NewScheduler(g, g.opts.Logger).Run(ctx, parent, g.Step(op, fn))
}

// Units returns every loaded resource as a scheduler unit.
func (g *Graph) Units() []engine.Unit {
	units := make([]engine.Unit, 0, len(g.order))
	for _, name := range g.order {
		units = append(units, engine.Unit{Name: name, DependsOn: g.resources[name].DependsOn})
	}
	return units
}

// stateFor returns the terraform state view shared by the resources whose
// root is root.
func (g *Graph) stateFor(r *Resource) *State {
	for p := r.Parent(); p != nil; p = p.Parent() {
		if p.Root != r.Root {
			break
		}
		return p.state
	}
	return NewState()
}

// loadDefinition reads the first definition of name found in the search
// paths, skipping the file current.
func (g *Graph) loadDefinition(name, current string) (string, *settings.Document, error) {
	for _, dir := range g.opts.SearchPaths {
		for _, file := range candidates(path.Join(dir, name)) {
			if file == current {
				continue
			}
			doc, err := settings.LoadDocument(g.opts.Definitions, file)
			if err == nil {
				return file, doc, nil
			}
			if !os.IsNotExist(err) {
				return "", nil, engine.NewConfigurationError(file, err.Error()).WithResource(name)
			}
		}
	}

	missing := name + ".yml"
	if len(g.opts.SearchPaths) > 0 {
		missing = path.Join(g.opts.SearchPaths[0], missing)
	}
	return "", nil, engine.NewNotFoundError("no such file", os.ErrNotExist).
		WithResource(name).WithDetail("file", missing)
}

// extend merges the documents named by the extends key under doc, parent
// first, following their own extends keys.
func (g *Graph) extend(doc *settings.Document, current string) (*settings.Document, error) {
	extends := stringList(doc.Data["extends"])
	delete(doc.Data, "extends")

	for _, name := range extends {
		file, base, err := g.loadDefinition(name, current)
		if err != nil {
			return nil, err
		}
		if doc, err = g.extend(base.Merge(settings.Extend|settings.InPlace, doc), file); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func candidates(file string) []string {
	if hasExtension(file) {
		return []string{file}
	}
	out := make([]string, len(extensions))
	for i, ext := range extensions {
		out[i] = file + ext
	}
	return out
}

func hasExtension(name string) bool {
	ext := path.Ext(name)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// stringList accepts a string or a list of strings.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}
