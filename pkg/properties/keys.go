package properties

import (
	"path"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// Key is the primary key of one object.
type Key struct {
	// Values maps alias paths to primary-key values, nested by path.
	Values map[string]any
	// Slugs holds the slugified `<alias>_` companions found in args.
	Slugs map[string]any
	// Missing lists required primary-key aliases without a value.
	Missing []string
}

// Complete reports whether every required component resolved.
func (k *Key) Complete() bool {
	return len(k.Missing) == 0
}

// Merged returns the key values with their slug companions.
func (k *Key) Merged() map[string]any {
	return settings.MergeMaps(settings.CloneMap(k.Slugs), settings.Replace, k.Values)
}

// PrimaryKey collects the primary-key leaves of args. A leaf whose `when`
// condition fails (evaluated against its enclosing group, with `_` bound to
// args) is not part of the key. Absent leaves are listed in Missing unless
// declared `required: false`.
func (s *Schema) PrimaryKey(args map[string]any) (*Key, error) {
	key := &Key{Values: make(map[string]any), Slugs: make(map[string]any)}
	var failure error

	s.Walk(func(alias string, p *Property) {
		if failure != nil || !p.PrimaryKey {
			return
		}

		if p.When != "" {
			group := args
			if dir := path.Dir(alias); dir != "." {
				group, _ = settings.Get(args, dir, nil, true).(map[string]any)
			}
			ok, err := s.test(p.When, scope(args, group))
			if err != nil {
				failure = annotate(err, append(aliasSegments(alias), "when")...)
				return
			}
			if !ok {
				return
			}
		}

		value := settings.Get(args, alias, nil, true)
		if value == nil {
			if p.Required == nil || *p.Required {
				key.Missing = append(key.Missing, alias)
			}
			return
		}
		settings.Update(key.Values, map[string]any{alias: value})

		if slugged := settings.Get(args, alias+"_", nil, true); slugged != nil {
			settings.Update(key.Slugs, map[string]any{alias + "_": slugged})
		}
	})

	if failure != nil {
		return nil, failure
	}
	return key, nil
}

// Heritage returns the subset of args a child resource inherits: every
// leaf flagged inherit, which defaults to primary_key.
func (s *Schema) Heritage(args map[string]any) map[string]any {
	return s.subset(args, (*Property).Inherited)
}

// Remote returns the subset of args that can be compared with remote
// objects: every leaf whose sync is not disabled.
func (s *Schema) Remote(args map[string]any) map[string]any {
	return s.subset(args, func(p *Property) bool { return !p.Sync.Disabled })
}

func (s *Schema) subset(args map[string]any, keep func(*Property) bool) map[string]any {
	out := make(map[string]any)
	s.Walk(func(alias string, p *Property) {
		if !keep(p) {
			return
		}
		if value := settings.Get(args, alias, nil, true); value != nil {
			settings.Update(out, map[string]any{alias: settings.Clone(value)})
		}
	})
	return out
}

func aliasSegments(alias string) []string {
	var segments []string
	for dir := alias; dir != "." && dir != "/"; dir = path.Dir(dir) {
		segments = append([]string{path.Base(dir)}, segments...)
	}
	return segments
}
