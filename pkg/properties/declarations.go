package properties

import (
	"github.com/openfroyo/tfsync/pkg/settings"
)

// The helpers below operate on raw declaration documents, before parsing,
// so that inherited declarations merge field by field with the child's.

// WalkDeclarations calls fn for every leaf declaration of doc with its
// "/"-joined alias path. fn may modify the declaration in place.
func WalkDeclarations(doc *settings.Document, fn func(alias string, decl map[string]any)) {
	walkDeclarations(doc.Data, doc.Keys(""), doc, "", "", fn)
}

func walkDeclarations(props map[string]any, keys []string, doc *settings.Document, docPath, prefix string, fn func(string, map[string]any)) {
	for _, key := range keys {
		decl, ok := props[key].(map[string]any)
		if !ok {
			decl = make(map[string]any)
			props[key] = decl
		}
		alias, _ := decl["alias"].(string)
		if alias == "" {
			alias = key
		}
		if nested, ok := decl["properties"].(map[string]any); ok && nested != nil {
			subPath := join(join(docPath, key), "properties")
			walkDeclarations(nested, doc.Keys(subPath), doc, subPath, prefix+alias+"/", fn)
			continue
		}
		fn(prefix+alias, decl)
	}
}

// MarkInherited defaults `inherit` (and, with primaryKey set, `primary_key`)
// to true on the leaves whose alias path is listed.
func MarkInherited(doc *settings.Document, aliases []string, primaryKey bool) {
	if len(aliases) == 0 {
		return
	}
	wanted := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		wanted[a] = true
	}
	WalkDeclarations(doc, func(alias string, decl map[string]any) {
		if !wanted[alias] {
			return
		}
		setDefault(decl, "inherit", true)
		if primaryKey {
			setDefault(decl, "primary_key", true)
		}
	})
}

// DropNulls removes fields explicitly set to null, which lets a child
// declaration cancel a field it inherited.
func DropNulls(doc *settings.Document) {
	WalkDeclarations(doc, func(_ string, decl map[string]any) {
		for field, value := range decl {
			if value == nil {
				delete(decl, field)
			}
		}
	})
}

// Inheritable returns the declarations of doc that a child resource
// inherits: every property explicitly flagged inherit (groups only when
// some nested property is), marked ignore and sync: false so the child
// neither persists nor extracts them. Inherited properties are keyed by
// their alias and lose alias and use.
func Inheritable(doc *settings.Document) *settings.Document {
	return inheritable(doc, "")
}

func inheritable(doc *settings.Document, path string) *settings.Document {
	out := settings.NewDocument(nil)
	var props map[string]any
	if path == "" {
		props = doc.Data
	} else {
		props, _ = settings.Get(doc.Data, path, nil, false).(map[string]any)
	}

	for _, key := range doc.Keys(path) {
		decl, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		if inherit, _ := decl["inherit"].(bool); !inherit {
			continue
		}

		alias, _ := decl["alias"].(string)
		if alias == "" {
			alias = key
		}

		copied := settings.CloneMap(decl)
		delete(copied, "alias")
		delete(copied, "use")
		copied["ignore"] = true
		copied["sync"] = false

		if _, ok := decl["properties"].(map[string]any); ok {
			nested := inheritable(doc, join(join(path, key), "properties"))
			if len(nested.Data) == 0 {
				continue
			}
			delete(copied, "properties")
			out.Set(alias, copied)
			out.Graft(alias+"/properties", nested)
			continue
		}

		out.Set(alias, copied)
	}

	return out
}

// AsVariables adapts inherited declarations for a variables resource:
// they lose `computed`, default to string type and are persisted when
// they carry a description.
func AsVariables(doc *settings.Document) {
	for _, key := range doc.Keys("") {
		decl, ok := doc.Data[key].(map[string]any)
		if !ok {
			continue
		}
		delete(decl, "computed")
		setDefault(decl, "type", "string")
		if d, _ := decl["description"].(string); d != "" {
			delete(decl, "ignore")
		}
	}
}

func setDefault(decl map[string]any, field string, value any) {
	if _, ok := decl[field]; !ok {
		decl[field] = value
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}
