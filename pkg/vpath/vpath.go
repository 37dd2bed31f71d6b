// Package vpath maps slash-delimited virtual paths to named variables and
// back. A template such as "{project}/{network[name]}" binds the first path
// segment to the project argument and the second to the nested argument
// network/name.
package vpath

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// Template is an ordered list of variable paths.
type Template struct {
	vars []string
}

// New builds a template from a slash-delimited string or a list of
// variable paths. Nil yields an empty template.
func New(spec any) (*Template, error) {
	t := &Template{}
	switch v := spec.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(path.Clean("/"+v), "/") {
			if part != "" {
				t.vars = append(t.vars, part)
			}
		}
	case []any:
		for _, item := range v {
			name, ok := item.(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("path variable must be a non-empty string, got %v", item)
			}
			t.vars = append(t.vars, name)
		}
	case []string:
		t.vars = append(t.vars, v...)
	default:
		return nil, fmt.Errorf("path must be a string or a list of strings, got %T", spec)
	}
	return t, nil
}

// Vars returns the variable paths in order.
func (t *Template) Vars() []string {
	return append([]string(nil), t.vars...)
}

// Len returns the number of variables.
func (t *Template) Len() int {
	return len(t.vars)
}

// Contains reports whether name is one of the template variables.
func (t *Template) Contains(name string) bool {
	for _, v := range t.vars {
		if v == name {
			return true
		}
	}
	return false
}

// Inherit prefixes the template with inherited, skipping variables the
// template already declares.
func (t *Template) Inherit(inherited []string) {
	if len(inherited) == 0 {
		return
	}
	vars := make([]string, 0, len(inherited)+len(t.vars))
	for _, v := range inherited {
		if !t.Contains(v) && !contains(vars, v) {
			vars = append(vars, v)
		}
	}
	t.vars = append(vars, t.vars...)
}

// Format renders args as a path. The first variable without a value is
// reported as a *settings.KeyError.
func (t *Template) Format(args map[string]any) (string, error) {
	parts := make([]string, 0, len(t.vars))
	for _, v := range t.vars {
		value := settings.Get(args, v, nil, true)
		if value == nil {
			return "", &settings.KeyError{Path: []string{v}}
		}
		parts = append(parts, settings.String(value))
	}
	return strings.Join(parts, "/"), nil
}

// Prefix returns the values of the leading variables that resolve,
// stopping at the first one that does not.
func (t *Template) Prefix(args map[string]any) []string {
	parts := make([]string, 0, len(t.vars))
	for _, v := range t.vars {
		value := settings.Get(args, v, nil, true)
		if value == nil {
			break
		}
		parts = append(parts, settings.String(value))
	}
	return parts
}

// Parse binds the segments of p to the template variables. When p has more
// segments than there are variables, the last variable receives the
// remaining segments joined with "/".
func (t *Template) Parse(p string) map[string]any {
	values := make(map[string]any)
	if len(t.vars) == 0 {
		return values
	}

	var parts []string
	for _, part := range strings.Split(path.Clean("/"+p), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	last := len(t.vars) - 1
	for i := range parts {
		if i >= last {
			values[t.vars[last]] = strings.Join(parts[i:], "/")
			break
		}
		values[t.vars[i]] = parts[i]
	}

	return settings.Update(make(map[string]any), values).(map[string]any)
}

// Args returns the subset of args bound to template variables.
func (t *Template) Args(args map[string]any) map[string]any {
	out := make(map[string]any)
	for _, v := range t.vars {
		if value := settings.Get(args, v, nil, true); value != nil {
			out[v] = value
		}
	}
	return out
}

var nested = regexp.MustCompile(`/([^/]+)`)

// String renders the template as "{a}/{b[c]}".
func (t *Template) String() string {
	if len(t.vars) == 0 {
		return ""
	}
	parts := make([]string, len(t.vars))
	for i, v := range t.vars {
		parts[i] = nested.ReplaceAllString(v, "[$1]")
	}
	return "{" + strings.Join(parts, "}/{") + "}"
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
