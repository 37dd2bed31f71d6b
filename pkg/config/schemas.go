package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema("resource", "Resource", builtinResourceSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema("project", "Project", builtinProjectSchema); err != nil {
		panic(err)
	}
	return sr
}

// RegisterSchema compiles source and registers its definition #definition
// under name.
func (sr *SchemaRegistry) RegisterSchema(name, definition, source string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.MakePath(cue.Def(definition)))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not define #%s", name, definition)
	}
	if err := def.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// Validate checks a merged resource definition. It implements
// resources.Validator.
func (sr *SchemaRegistry) Validate(_ string, definition map[string]any) error {
	return sr.ValidateAgainstSchema(context.Background(), "resource", definition)
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in schema definitions. Both are open: keys unknown to the schema
// are accepted.

const builtinResourceSchema = `
#Names: string | [...string]

#Command: string | [...(string | number | bool)]

#Commands: #Command | [...#Command]

#Property: {
	alias?:          string | null
	use?:            string | null
	type?:           string | null
	description?:    string | null
	when?:           string | null
	expr?:           string | null
	format?:         string | null
	hash?:           string | null
	computed?:       string | null
	pattern?:        #Names | null
	translate?:      {...} | null
	primary_key?:    bool | null
	inherit?:        bool | null
	required?:       bool | null
	ignore?:         bool | null
	nullable?:       bool | null
	sync?:           bool | #Names | null
	conflicts_with?: #Names | null
	properties?:     {[string]: #Property | null} | null
	...
}

#Template: {
	data?:   {...}
	fields?: #Names
}

#Resource: {
	description?:    string
	parent?:         string
	extends?:        #Names
	depends_on?:     #Names
	path?:           #Names
	source?:         string
	address?:        string
	conflicts_with?: #Names
	onbeforesaving?: string
	template?:       #Template
	properties?:     {[string]: #Property | null}

	methods?: {
		sync?: {
			describe?: #Commands
			list?:     #Commands
			parent?:   string
			when?:     string | {...}
			...
		}
		terraform?: {
			import?: {
				address?: string
				id?:      string
			}
			show?: {
				resources?: string
			}
			...
		}
		...
	}

	events?: {[=~"^on"]: {[string]: {[string]: _}}}

	module?: {
		file?:     string
		name?:     string
		source?:   string
		args?:     #Names
		template?: #Template
	}
	...
}
`

const builtinProjectSchema = `
#Project: {
	terraform?: {
		binary?:         string & !=""
		show_resources?: string
	}
	expressions?: "expr" | "starlark"
	timeout?:     string | int
	journal?: {
		enabled?: bool
		path?:    string
	}
	metrics?: {
		textfile?: string
	}
	tracing?: {
		exporter?: "none" | "stdout" | "otlp"
		endpoint?: string
		insecure?: bool
	}
	logging?: {
		level?:  "trace" | "debug" | "info" | "warn" | "error"
		format?: "console" | "json"
	}
	...
}
`
