package properties

import (
	"encoding/json"
	"strings"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// RootKey is the settings key that replaces the whole serialized mapping.
const RootKey = "."

// Serialize converts an argument set into persisted settings. Leaves marked
// ignore are skipped, list leaves are normalized and computed leaves are
// written as "${...}" references. With defaults set, absent leaves take
// their `default` template and a required leaf without a value fails with
// a *ValidationError.
func (s *Schema) Serialize(args map[string]any, defaults bool) (any, error) {
	args = settings.CloneMap(args)
	out, err := s.serialize(args, args, defaults)
	if err != nil {
		return nil, err
	}

	if s.opts.Variables {
		s.declareVariables(out)
	}

	if root, ok := out[RootKey]; ok {
		return root, nil
	}
	return out, nil
}

func (s *Schema) serialize(args, root map[string]any, defaults bool) (map[string]any, error) {
	if args == nil {
		args = make(map[string]any)
	}
	out := make(map[string]any)
	sc := scope(root, args)

	for _, p := range s.props {
		if p.Ignore {
			continue
		}

		if p.When != "" {
			ok, err := s.test(p.When, sc)
			if err != nil {
				return nil, annotate(err, p.Key, "when")
			}
			if !ok {
				continue
			}
		}

		value := args[p.Alias]
		var serialized any

		if p.IsGroup() {
			sub, _ := value.(map[string]any)
			result, err := p.Properties.serialize(sub, root, defaults)
			if err != nil {
				return nil, annotate(err, p.Key, "properties")
			}
			if len(result) == 0 {
				continue
			}
			serialized = result
		} else {
			if value == nil && defaults {
				if p.Default != nil {
					if v, err := settings.FormatMap(p.Default, sc); err == nil {
						value = v
					}
				}
				computed, err := s.compute(p, value, sc)
				if err != nil {
					return nil, annotate(err, p.Key)
				}
				value = computed
			}

			switch {
			case p.IsList():
				serialized = listValue(value)
			case p.Computed != "":
				ref, err := settings.Format(p.Computed, sc, value)
				if err != nil {
					return nil, annotate(err, p.Key, "computed")
				}
				serialized = "${" + ref + "}"
			default:
				serialized = value
			}

			if serialized == nil {
				if defaults && p.Required != nil && *p.Required {
					return nil, &ValidationError{Alias: p.Alias}
				}
				continue
			}
		}

		if value != nil && !p.IsGroup() {
			args[p.Alias] = value
			sc[p.Alias] = value
		}

		fragment := settings.Update(make(map[string]any), map[string]any{p.SettingsKey(): serialized})
		out = settings.MergeMaps(out, settings.InPlace, fragment.(map[string]any))
	}

	return out, nil
}

// listValue decodes JSON strings, boxes scalars and maps empty lists to nil.
func listValue(value any) any {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			value = decoded
		}
	}
	list, ok := value.([]any)
	if !ok {
		list = []any{value}
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

var variableFields = []string{"description", "type", "validation", "sensitive"}

// declareVariables rewrites top-level settings into variable declarations.
func (s *Schema) declareVariables(out map[string]any) {
	for _, p := range s.props {
		if p.Ignore {
			continue
		}
		key := p.SettingsKey()
		if strings.Contains(key, "/") {
			continue
		}
		value, ok := out[key]
		if (!ok || value == nil) && !p.Nullable {
			continue
		}
		declaration := map[string]any{"default": value}
		for _, field := range variableFields {
			if v, ok := p.raw[field]; ok {
				declaration[field] = v
			}
		}
		out[key] = declaration
	}
}
