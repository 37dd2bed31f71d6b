// Package properties interprets declarative property schemas.
//
// A schema is an ordered list of property declarations. Materialize
// resolves raw call arguments into a full argument set, Serialize turns an
// argument set into persisted settings, Extract reads an argument set back
// out of remote or persisted settings, and PrimaryKey / Heritage / Remote
// select the subsets used to identify objects and to hand arguments down
// to child resources.
package properties

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/settings"
)

// Options configure a parsed schema.
type Options struct {
	// Evaluator runs `when`, `expr` and unset conditions. Defaults to expr.
	Evaluator expr.Evaluator

	// Variables serializes top-level properties as variable declarations.
	Variables bool
}

// Schema is an ordered set of property declarations.
type Schema struct {
	doc   *settings.Document
	props []*Property
	opts  Options
}

// Parse builds a schema from a document holding the property mapping.
func Parse(doc *settings.Document, opts Options) (*Schema, error) {
	if opts.Evaluator == nil {
		opts.Evaluator = expr.NewExprEvaluator()
	}
	if doc == nil {
		doc = settings.NewDocument(nil)
	}
	return parse(doc, opts)
}

func parse(doc *settings.Document, opts Options) (*Schema, error) {
	s := &Schema{doc: doc, opts: opts}
	for _, key := range doc.Keys("") {
		p, err := parseProperty(key, doc.Data[key], doc, opts)
		if err != nil {
			return nil, err
		}
		s.props = append(s.props, p)
	}
	return s, nil
}

// Properties returns the top-level declarations in order.
func (s *Schema) Properties() []*Property {
	return s.props
}

// Lookup returns the leaf or group declared at alias path.
func (s *Schema) Lookup(alias string) *Property {
	return lookup(s.props, "", alias)
}

func lookup(props []*Property, prefix, alias string) *Property {
	for _, p := range props {
		path := prefix + p.Alias
		if path == alias {
			return p
		}
		if p.IsGroup() && strings.HasPrefix(alias, path+"/") {
			if found := lookup(p.Properties.props, path+"/", alias); found != nil {
				return found
			}
		}
	}
	return nil
}

// Document returns the raw declarations the schema was parsed from.
func (s *Schema) Document() *settings.Document {
	return s.doc
}

// Walk calls fn for every leaf with its "/"-joined alias path.
func (s *Schema) Walk(fn func(alias string, p *Property)) {
	walk(s.props, "", fn)
}

func walk(props []*Property, prefix string, fn func(string, *Property)) {
	for _, p := range props {
		if p.IsGroup() {
			walk(p.Properties.props, prefix+p.Alias+"/", fn)
			continue
		}
		fn(prefix+p.Alias, p)
	}
}

func (s *Schema) test(condition string, scope map[string]any) (bool, error) {
	return expr.Test(s.opts.Evaluator, condition, scope)
}

// PathError locates a failure within a schema. Path lists the declared
// keys from the schema root down to the failing field.
type PathError struct {
	Path []string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Path, "/"), e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// annotate prefixes the location of err with segments.
func annotate(err error, segments ...string) error {
	if pe, ok := err.(*PathError); ok {
		path := make([]string, 0, len(segments)+len(pe.Path))
		path = append(path, segments...)
		return &PathError{Path: append(path, pe.Path...), Err: pe.Err}
	}
	return &PathError{Path: append([]string(nil), segments...), Err: err}
}

// ValidationError reports a required property without a value.
type ValidationError struct {
	Alias string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required property %s", e.Alias)
}

// scope returns the evaluation scope for args: a shallow copy with `_`
// bound to root.
func scope(root, args map[string]any) map[string]any {
	s := make(map[string]any, len(args)+1)
	s["_"] = root
	for k, v := range args {
		s[k] = v
	}
	return s
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
