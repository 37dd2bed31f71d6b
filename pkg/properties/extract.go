package properties

import (
	"github.com/openfroyo/tfsync/pkg/settings"
)

// Extract reads an argument set out of remote or persisted settings. Each
// leaf is read from its sync key, or the first of its sync keys holding a
// value; leaves with sync disabled are skipped.
func (s *Schema) Extract(remote any) (map[string]any, error) {
	out := make(map[string]any)
	return s.extract(remote, out, out)
}

func (s *Schema) extract(remote any, out, root map[string]any) (map[string]any, error) {
	for _, p := range s.props {
		if p.Sync.Disabled {
			continue
		}

		if p.When != "" {
			ok, err := s.test(p.When, scope(root, out))
			if err != nil {
				return nil, annotate(err, p.Key, "when")
			}
			if !ok {
				continue
			}
		}

		var value any
		for _, key := range p.Sync.Keys {
			if value = settings.Get(remote, key, nil, true); value != nil {
				break
			}
		}
		if value == nil {
			continue
		}

		if p.IsGroup() {
			sub, err := p.Properties.extract(value, make(map[string]any), root)
			if err != nil {
				return nil, annotate(err, p.Key, "properties")
			}
			if len(sub) == 0 {
				continue
			}
			value = sub
		}

		out[p.Alias] = settings.Clone(value)
	}

	return out, nil
}
