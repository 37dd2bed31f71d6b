package properties

import (
	"github.com/openfroyo/tfsync/pkg/settings"
)

// MaterializeOptions control Materialize.
type MaterializeOptions struct {
	// Defaults applies `default` templates to absent leaves.
	Defaults bool
	// Slugs stores a slugified `<alias>_` companion for primary keys.
	Slugs bool
}

// Materialize resolves args into a full argument set. Properties are
// processed in declaration order against a growing scope, so later
// properties can reference earlier ones; `_` refers to the whole argument
// set. args is not modified.
func (s *Schema) Materialize(args map[string]any, opts MaterializeOptions) (map[string]any, error) {
	out := settings.CloneMap(args)
	return s.materialize(out, out, opts)
}

func (s *Schema) materialize(args, root map[string]any, opts MaterializeOptions) (map[string]any, error) {
	if args == nil {
		args = make(map[string]any)
	}
	sc := scope(root, args)

	for _, p := range s.props {
		if p.When != "" {
			ok, err := s.test(p.When, sc)
			if err != nil {
				return nil, annotate(err, p.Key, "when")
			}
			if !ok {
				continue
			}
		}

		value := sc[p.Alias]
		if value == nil && p.Value != nil {
			if v, err := settings.FormatMap(p.Value, sc); err == nil {
				value = v
			}
		}

		if p.IsGroup() {
			sub, _ := value.(map[string]any)
			result, err := p.Properties.materialize(sub, root, opts)
			if err != nil {
				return nil, annotate(err, p.Key, "properties")
			}
			if len(result) == 0 {
				continue
			}
			value = result
		} else {
			if opts.Defaults && value == nil && p.Default != nil {
				if v, err := settings.FormatMap(p.Default, sc); err == nil {
					value = v
				}
			}

			computed, err := s.compute(p, value, sc)
			if err != nil {
				return nil, annotate(err, p.Key)
			}
			if computed == nil {
				if value != nil {
					delete(args, p.Alias)
					delete(sc, p.Alias)
				}
				continue
			}
			value = computed

			if opts.Slugs && p.PrimaryKey {
				companion := p.Alias + "_"
				slugged := Slugify(value)
				args[companion] = slugged
				sc[companion] = slugged
			}
		}

		if m, ok := value.(map[string]any); ok {
			for i, rule := range p.Unset {
				if rule.When != "" {
					ok, err := s.test(rule.When, sc)
					if err != nil {
						return nil, annotate(err, p.Key, "unset", itoa(i), "when")
					}
					if !ok {
						continue
					}
				}
				_, rest := settings.Pop(m, rule.Key, nil, true)
				value = rest
			}
		}

		args[p.Alias] = value
		sc[p.Alias] = value
	}

	return args, nil
}
