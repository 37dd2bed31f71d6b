package resources

import (
	"github.com/openfroyo/tfsync/pkg/settings"
)

// Template is a document fragment merged into storage on every update.
// Only the values listed in Fields are rendered; the rest of Data is
// copied verbatim.
type Template struct {
	Data   map[string]any
	Fields []string
}

// Render returns a copy of the template data with every field formatted
// against args. key locates the template within the definition.
func (t *Template) Render(r *Resource, key string, args map[string]any) (map[string]any, error) {
	out := settings.CloneMap(t.Data)
	for _, field := range t.Fields {
		value, err := settings.GetFormat(t.Data, field, args, nil)
		if err != nil {
			return nil, r.formatError(key+"/data", err)
		}
		settings.Update(out, map[string]any{field: value})
	}
	return out, nil
}
