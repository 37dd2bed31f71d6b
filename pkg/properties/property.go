package properties

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// Property is one declared schema node. A node with nested Properties is a
// group; any other node is a leaf.
type Property struct {
	Key         string
	Alias       string
	Use         string
	Type        string
	Description string

	When    string
	Default any
	Value   any

	Translate map[string]any
	Expr      string
	Pattern   []string
	Hash      string
	Format    string
	Computed  string

	PrimaryKey bool
	Inherit    *bool
	Required   *bool
	Ignore     bool
	Nullable   bool
	Sync       SyncKeys

	ConflictsWith []string
	Unset         []UnsetRule

	Properties *Schema

	raw map[string]any
}

// SyncKeys names the remote settings a property is extracted from.
type SyncKeys struct {
	Disabled bool
	Keys     []string
}

// UnsetRule removes Key from a mapping value when When holds.
type UnsetRule struct {
	Key  string
	When string
}

// IsGroup reports whether p has nested properties.
func (p *Property) IsGroup() bool {
	return p.Properties != nil
}

// SettingsKey returns the key p is persisted under.
func (p *Property) SettingsKey() string {
	if p.Use != "" {
		return p.Use
	}
	return p.Key
}

// Inherited reports whether p flows from a parent resource to its children.
// Unless set explicitly it follows PrimaryKey.
func (p *Property) Inherited() bool {
	if p.Inherit != nil {
		return *p.Inherit
	}
	return p.PrimaryKey
}

// IsList reports whether p holds a list value.
func (p *Property) IsList() bool {
	return p.Type == "list" || strings.HasPrefix(p.Type, "list(")
}

// Raw returns the declared field, or nil.
func (p *Property) Raw(field string) any {
	return p.raw[field]
}

var leafOnly = []string{"computed", "expr", "format", "hash", "pattern", "primary_key", "translate", "type"}

func parseProperty(key string, node any, doc *settings.Document, opts Options) (*Property, error) {
	raw, ok := node.(map[string]any)
	if node != nil && !ok {
		return nil, &PathError{Path: []string{key}, Err: fmt.Errorf("property must be a mapping, got %T", node)}
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	r := fieldReader{raw: raw}
	p := &Property{
		Key:         key,
		Alias:       r.str("alias"),
		Use:         r.str("use"),
		Type:        r.str("type"),
		Description: r.str("description"),
		When:        r.str("when"),
		Default:     raw["default"],
		Value:       raw["value"],
		Translate:   r.mapping("translate"),
		Expr:        r.str("expr"),
		Pattern:     r.strings("pattern"),
		Hash:        r.str("hash"),
		Format:      r.str("format"),
		Computed:    r.str("computed"),
		PrimaryKey:  r.boolean("primary_key"),
		Inherit:     r.optionalBool("inherit"),
		Required:    r.optionalBool("required"),
		Ignore:      r.boolean("ignore"),
		Nullable:    r.boolean("nullable"),
		Sync:        r.sync(key),
		Unset:       r.unset(),
		raw:         raw,
	}
	p.ConflictsWith = r.strings("conflicts_with")
	if p.Alias == "" {
		p.Alias = key
	}
	if r.err != nil {
		return nil, &PathError{Path: []string{key}, Err: r.err}
	}

	if nested, ok := raw["properties"]; ok && nested != nil {
		if _, ok := nested.(map[string]any); !ok {
			return nil, &PathError{Path: []string{key, "properties"}, Err: fmt.Errorf("expected a mapping, got %T", nested)}
		}
		for _, field := range leafOnly {
			if _, ok := raw[field]; ok {
				return nil, &PathError{Path: []string{key}, Err: fmt.Errorf("a group cannot declare %q", field)}
			}
		}
		sub, err := parse(doc.Sub(key+"/properties"), opts)
		if err != nil {
			return nil, annotate(err, key, "properties")
		}
		p.Properties = sub
	}

	return p, nil
}

// fieldReader decodes loosely typed declaration fields, remembering the
// first type error.
type fieldReader struct {
	raw map[string]any
	err error
}

func (r *fieldReader) fail(field string, want string, got any) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: expected %s, got %T", field, want, got)
	}
}

func (r *fieldReader) str(field string) string {
	switch v := r.raw[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, int, float64:
		return settings.String(v)
	default:
		r.fail(field, "a string", v)
		return ""
	}
}

func (r *fieldReader) boolean(field string) bool {
	b := r.optionalBool(field)
	return b != nil && *b
}

func (r *fieldReader) optionalBool(field string) *bool {
	switch v := r.raw[field].(type) {
	case nil:
		return nil
	case bool:
		return &v
	default:
		r.fail(field, "a boolean", v)
		return nil
	}
}

func (r *fieldReader) strings(field string) []string {
	switch v := r.raw[field].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				r.fail(field, "a list of strings", item)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		r.fail(field, "a string or a list of strings", v)
		return nil
	}
}

func (r *fieldReader) mapping(field string) map[string]any {
	switch v := r.raw[field].(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	default:
		r.fail(field, "a mapping", v)
		return nil
	}
}

func (r *fieldReader) sync(key string) SyncKeys {
	switch v := r.raw["sync"].(type) {
	case nil:
		return SyncKeys{Keys: []string{key}}
	case bool:
		if !v {
			return SyncKeys{Disabled: true}
		}
		return SyncKeys{Keys: []string{key}}
	case string:
		return SyncKeys{Keys: []string{v}}
	case []any:
		return SyncKeys{Keys: r.strings("sync")}
	default:
		r.fail("sync", "false, a string or a list of strings", v)
		return SyncKeys{}
	}
}

func (r *fieldReader) unset() []UnsetRule {
	list, ok := r.raw["unset"].([]any)
	if !ok {
		if r.raw["unset"] != nil {
			r.fail("unset", "a list", r.raw["unset"])
		}
		return nil
	}
	rules := make([]UnsetRule, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			rules = append(rules, UnsetRule{Key: v})
		case map[string]any:
			key, _ := v["key"].(string)
			when, _ := v["when"].(string)
			if key == "" {
				r.fail("unset", "items with a key", v)
				return nil
			}
			rules = append(rules, UnsetRule{Key: key, When: when})
		default:
			r.fail("unset", "strings or {key, when} mappings", v)
			return nil
		}
	}
	return rules
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
