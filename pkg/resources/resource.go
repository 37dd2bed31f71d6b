package resources

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/properties"
	"github.com/openfroyo/tfsync/pkg/settings"
	"github.com/openfroyo/tfsync/pkg/vpath"
)

const (
	defaultSource   = "locals.tf.json"
	defaultAddress  = "locals"
	variableAddress = "variable"
	moduleSuffix    = ".tf.json"
)

// Resource is one loaded resource definition.
//
// Parent and sync parent links are kept as names and resolved through the
// graph that loaded the resource.
type Resource struct {
	Name        string
	Description string
	DependsOn   []string

	// Path maps positional path arguments to property aliases.
	Path *vpath.Template

	// Source is the storage document template, relative to the project.
	Source string

	// Address is the template of the object location within Source.
	Address string

	// Root is the template of the terraform working directory.
	Root string

	ConflictsWith  []string
	Template       *Template
	Properties     *properties.Schema
	Module         *Module
	OnBeforeSaving string

	// Definition is the merged definition document.
	Definition *settings.Document

	sync      syncConfig
	terraform terraformConfig
	events    *settings.Document

	graph      *Graph
	logger     zerolog.Logger
	parent     string
	syncParent string
	state      *State
	cache      Cache
}

type syncConfig struct {
	defined  bool
	describe [][]string
	list     [][]string
	when     any
	parent   string
}

type terraformConfig struct {
	importAddress string
	importID      string
	showResources string
}

func newResource(g *Graph, name string, doc *settings.Document, parent *Resource) (*Resource, error) {
	def := definition{name: name, doc: doc}
	r := &Resource{
		Name:           name,
		Description:    def.str("description", ""),
		DependsOn:      stringList(doc.Data["depends_on"]),
		Source:         def.str("source", defaultSource),
		Address:        def.str("address", defaultAddress),
		ConflictsWith:  stringList(doc.Data["conflicts_with"]),
		OnBeforeSaving: def.str("onbeforesaving", ""),
		Definition:     doc,
		events:         doc.Sub("events"),
		graph:          g,
		logger:         g.logger.With().Str("resource", name).Logger(),
	}
	if parent != nil {
		r.parent = parent.Name
	}

	var err error
	if r.Path, err = vpath.New(doc.Data["path"]); err != nil {
		return nil, engine.NewConfigurationError(name+"/path", err.Error()).WithResource(name)
	}
	r.Template = def.template("template")
	r.Module = def.module()
	r.sync = def.sync()
	r.terraform = terraformConfig{
		importAddress: def.str("methods/terraform/import/address", ""),
		importID:      def.str("methods/terraform/import/id", ""),
		showResources: def.str("methods/terraform/show/resources", ""),
	}
	if def.err != nil {
		return nil, def.err
	}

	if err := r.inherit(parent); err != nil {
		return nil, err
	}
	return r, nil
}

// Parent returns the structural parent, or nil.
func (r *Resource) Parent() *Resource {
	if r.parent == "" {
		return nil
	}
	return r.graph.resources[r.parent]
}

// SyncParent returns the ancestor whose discovery is used when the
// resource cannot list its own objects, or nil.
func (r *Resource) SyncParent() *Resource {
	if r.syncParent == "" {
		return nil
	}
	return r.graph.resources[r.syncParent]
}

// State returns the terraform state view of the resource root.
func (r *Resource) State() *State {
	return r.state
}

// levelParent names the resource under which r is scheduled.
func (r *Resource) levelParent() string {
	if r.syncParent != "" {
		return r.syncParent
	}
	return r.parent
}

func (r *Resource) inherit(parent *Resource) error {
	rawSource := r.Source

	// Path variables of the parent come first, in the parent's order.
	if parent != nil {
		var inherited []string
		for _, v := range parent.Path.Vars() {
			p := parent.Properties.Lookup(v)
			if p == nil {
				continue
			}
			if flag, ok := p.Raw("inherit").(bool); ok && !flag {
				continue
			}
			inherited = append(inherited, v)
		}
		r.Path.Inherit(inherited)
	}

	if err := r.inheritProperties(parent, rawSource); err != nil {
		return err
	}
	if err := r.inheritSync(parent); err != nil {
		return err
	}
	r.Module.inherit(parent, rawSource)

	if parent != nil {
		r.Source = path.Join(path.Dir(parent.Source), r.Source)
	}

	root := r.Source
	if strings.HasSuffix(r.Module.File, moduleSuffix) {
		root = r.Module.File
	}
	if r.Root = path.Dir(root); r.Root == "." {
		r.Root = ""
	}

	r.state = r.graph.stateFor(r)
	return nil
}

func (r *Resource) inheritProperties(parent *Resource, rawSource string) error {
	own := r.Definition.Sub("properties").Clone()
	merged := settings.NewDocument(nil)

	if parent != nil {
		merged = properties.Inheritable(parent.Properties.Document())
		if r.Address == variableAddress {
			properties.AsVariables(merged)
		}
	}
	merged.Merge(settings.Replace, own)

	properties.DropNulls(merged)
	properties.MarkInherited(merged, settings.Fields(rawSource), true)
	properties.MarkInherited(merged, r.Path.Vars(), false)

	schema, err := properties.Parse(merged, properties.Options{
		Evaluator: r.graph.opts.Evaluator,
		Variables: r.Address == variableAddress,
	})
	if err != nil {
		return r.schemaError(err)
	}
	r.Properties = schema
	return nil
}

// inheritSync resolves the sync parent: the nearest ancestor with a sync
// method, or the named one. Naming an ancestor further up makes the
// resource depend on the ancestor right below it.
func (r *Resource) inheritSync(parent *Resource) error {
	var below string
	for p := parent; p != nil; p = p.Parent() {
		if p.sync.defined && (r.sync.parent == "" || p.Name == r.sync.parent) {
			r.syncParent = p.Name
			break
		}
		below = p.Name
	}

	if r.sync.parent == "" {
		return nil
	}
	if r.syncParent == "" {
		return engine.NewConfigurationError(r.Name+"/methods/sync/parent", "no parent with the given name").
			WithResource(r.Name).WithDetail("parent", r.sync.parent)
	}
	if below != "" && !contains(r.DependsOn, below) {
		r.DependsOn = append(r.DependsOn, below)
	}
	return nil
}

// format renders spec, found at key in the definition, against args.
func (r *Resource) format(key string, spec any, args map[string]any) (any, error) {
	value, err := settings.FormatMap(spec, args)
	if err != nil {
		return nil, r.formatError(key, err)
	}
	return value, nil
}

func (r *Resource) formatString(key, spec string, args map[string]any) (string, error) {
	value, err := r.format(key, spec, args)
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (r *Resource) formatError(key string, err error) error {
	var ke *settings.KeyError
	if errors.As(err, &ke) && len(ke.Path) > 0 {
		segments := append([]string{r.Name, key}, ke.Path[:len(ke.Path)-1]...)
		p := strings.Join(append(segments, "{"+ke.Field()+"}"), "/")
		return engine.NewMissingPropertyError(p, err).WithResource(r.Name)
	}
	var fe *settings.FormatError
	if errors.As(err, &fe) {
		return engine.NewConfigurationError(r.Name+"/"+key, fe.Error()).WithResource(r.Name)
	}
	return err
}

// schemaError locates a property schema failure within the definition.
func (r *Resource) schemaError(err error) error {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return err
	}

	var ve *properties.ValidationError
	if errors.As(err, &ve) {
		return engine.NewValidationError(ve.Error(), err).WithResource(r.Name).WithDetail("property", ve.Alias)
	}

	at := r.Name + "/properties"
	var pe *properties.PathError
	if errors.As(err, &pe) {
		at += "/" + strings.Join(pe.Path, "/")
		var ke *settings.KeyError
		if errors.As(pe.Err, &ke) {
			return engine.NewMissingPropertyError(at+"/{"+ke.Field()+"}", err).WithResource(r.Name)
		}
		return engine.NewConfigurationError(at, pe.Err.Error()).WithResource(r.Name)
	}
	return engine.NewConfigurationError(at, err.Error()).WithResource(r.Name)
}

// definition reads typed fields out of a definition document. The first
// type mismatch is kept in err.
type definition struct {
	name string
	doc  *settings.Document
	err  error
}

func (d *definition) fail(key string, want string, got any) {
	if d.err == nil {
		d.err = engine.NewConfigurationError(d.name+"/"+key, fmt.Sprintf("expected %s, got %T", want, got)).
			WithResource(d.name)
	}
}

func (d *definition) str(key, def string) string {
	value := settings.Get(d.doc.Data, key, nil, false)
	if value == nil {
		return def
	}
	s, ok := value.(string)
	if !ok {
		d.fail(key, "a string", value)
		return def
	}
	return s
}

func (d *definition) mapping(key string) map[string]any {
	value := settings.Get(d.doc.Data, key, nil, false)
	if value == nil {
		return nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		d.fail(key, "a mapping", value)
	}
	return m
}

func (d *definition) template(key string) *Template {
	t := &Template{
		Data:   d.mapping(key + "/data"),
		Fields: stringList(settings.Get(d.doc.Data, key+"/fields", nil, false)),
	}
	if t.Data == nil {
		t.Data = make(map[string]any)
	}
	return t
}

func (d *definition) module() *Module {
	m := &Module{
		File:   d.str("module/file", ""),
		Name:   d.str("module/name", ""),
		Source: d.str("module/source", ""),
		Args:   stringList(settings.Get(d.doc.Data, "module/args", nil, false)),
	}
	if m.File != "" {
		m.Template = d.template("module/template")
	}
	return m
}

func (d *definition) sync() syncConfig {
	raw := d.mapping("methods/sync")
	s := syncConfig{
		defined: len(raw) > 0,
		when:    raw["when"],
		parent:  d.str("methods/sync/parent", ""),
	}
	s.describe = d.commands("methods/sync/describe")
	s.list = d.commands("methods/sync/list")
	return s
}

// commands reads one or more command templates. A string template is split
// with shell rules; a list template is used as the argument vector.
func (d *definition) commands(key string) [][]string {
	value := settings.Get(d.doc.Data, key, nil, false)
	var specs []any
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		specs = []any{v}
	case []any:
		specs = v
	default:
		d.fail(key, "a command or a list of commands", value)
		return nil
	}

	out := make([][]string, 0, len(specs))
	for i, spec := range specs {
		switch s := spec.(type) {
		case string:
			argv, err := shlex.Split(s)
			if err != nil {
				d.fail(fmt.Sprintf("%s/%d", key, i), "a shell command", s)
				return nil
			}
			out = append(out, argv)
		case []any:
			argv := make([]string, 0, len(s))
			for _, arg := range s {
				argv = append(argv, settings.String(arg))
			}
			out = append(out, argv)
		default:
			d.fail(fmt.Sprintf("%s/%d", key, i), "a command", spec)
			return nil
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
