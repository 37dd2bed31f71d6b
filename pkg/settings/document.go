package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"
)

// Document is a mapping tree that remembers the declaration order of the
// keys of every mapping it contains.
type Document struct {
	Data  map[string]any
	order map[string][]string
}

// NewDocument wraps data. Keys of data without recorded order are reported
// in lexical order.
func NewDocument(data map[string]any) *Document {
	if data == nil {
		data = make(map[string]any)
	}
	return &Document{Data: data, order: make(map[string][]string)}
}

// Keys returns the keys of the mapping at path (the root for ""), in
// declaration order followed by any undeclared keys in lexical order.
func (d *Document) Keys(path string) []string {
	var node any = d.Data
	if path != "" {
		node = Get(d.Data, path, nil, false)
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range d.order[path] {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Set stores value under key at the root, after the keys already declared.
func (d *Document) Set(key string, value any) {
	if _, ok := d.Data[key]; !ok {
		d.order[""] = append(d.order[""], key)
	}
	d.Data[key] = value
}

// Graft stores sub at path, keeping the key order recorded in sub.
func (d *Document) Graft(path string, sub *Document) {
	head, _, _ := strings.Cut(path, "/")
	if _, ok := d.Data[head]; !ok {
		d.order[""] = append(d.order[""], head)
	}
	d.Data = Update(d.Data, map[string]any{path: sub.Data}).(map[string]any)
	for p, keys := range sub.order {
		d.order[join(path, p)] = append([]string(nil), keys...)
	}
}

// Sub returns a document rooted at the mapping stored at path. The result
// shares data with d. A path that does not hold a mapping yields an empty
// document.
func (d *Document) Sub(path string) *Document {
	m, _ := Get(d.Data, path, nil, false).(map[string]any)
	sub := NewDocument(m)
	prefix := path + "/"
	for p, keys := range d.order {
		switch {
		case p == path:
			sub.order[""] = keys
		case strings.HasPrefix(p, prefix):
			sub.order[p[len(prefix):]] = keys
		}
	}
	return sub
}

// Merge deep-merges others into d. Keys introduced by a later document are
// ordered after the keys d already declares.
func (d *Document) Merge(mode Mode, others ...*Document) *Document {
	for _, other := range others {
		if other == nil {
			continue
		}
		d.Data = MergeMaps(d.Data, mode, other.Data)
		for p, keys := range other.order {
			d.order[p] = appendMissing(d.order[p], keys)
		}
	}
	return d
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := NewDocument(CloneMap(d.Data))
	for p, keys := range d.order {
		c.order[p] = append([]string(nil), keys...)
	}
	return c
}

func appendMissing(dst, keys []string) []string {
	for _, k := range keys {
		found := false
		for _, existing := range dst {
			if existing == k {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, k)
		}
	}
	return dst
}

// DecodeDocument parses YAML (or JSON) text whose top level is a mapping.
// An empty input yields an empty document.
func DecodeDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	doc := NewDocument(nil)
	value, err := decodeNode(&root, "", doc.order)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case nil:
	case map[string]any:
		doc.Data = v
	default:
		return nil, fmt.Errorf("expected a mapping at the document root, got %T", value)
	}
	return doc, nil
}

// Unmarshal parses YAML (or JSON) text into a tree of map[string]any, []any
// and scalars.
func Unmarshal(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return decodeNode(&root, "", nil)
}

// UnmarshalAll parses every document of a YAML stream.
func UnmarshalAll(r io.Reader) ([]any, error) {
	dec := yaml.NewDecoder(r)
	var docs []any
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if err == io.EOF {
				return docs, nil
			}
			return nil, err
		}
		value, err := decodeNode(&node, "", nil)
		if err != nil {
			return nil, err
		}
		docs = append(docs, value)
	}
}

func decodeNode(node *yaml.Node, path string, order map[string][]string) (any, error) {
	switch node.Kind {
	case 0:
		return nil, nil

	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeNode(node.Content[0], path, order)

	case yaml.AliasNode:
		return decodeNode(node.Alias, path, order)

	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		keys := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Tag == "!!merge" {
				merged, err := decodeNode(valueNode, path, order)
				if err != nil {
					return nil, err
				}
				for _, item := range mergeSources(merged) {
					for k, v := range item {
						if _, ok := m[k]; !ok {
							m[k] = v
							keys = append(keys, k)
						}
					}
				}
				continue
			}
			key := keyNode.Value
			value, err := decodeNode(valueNode, join(path, key), order)
			if err != nil {
				return nil, err
			}
			if _, ok := m[key]; !ok {
				keys = append(keys, key)
			}
			m[key] = value
		}
		if order != nil {
			order[path] = keys
		}
		return m, nil

	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for i, item := range node.Content {
			value, err := decodeNode(item, join(path, strconv.Itoa(i)), order)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil, err
	}
	return normalize(value), nil
}

func mergeSources(value any) []map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// normalize converts the map[any]any and typed slices produced by generic
// decoders into the tree shapes the rest of the package understands.
func normalize(value any) any {
	switch v := value.(type) {
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case map[string]any:
		for k, item := range v {
			v[k] = normalize(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	case []map[string]any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = normalize(item)
		}
		return list
	case []string:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = item
		}
		return list
	}
	return value
}

// Normalize returns value converted to map[string]any, []any and scalars.
func Normalize(value any) any {
	return normalize(value)
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// LoadDocument reads filename from fs. A missing file is reported with an
// error matching os.ErrNotExist.
func LoadDocument(fs billy.Filesystem, filename string) (*Document, error) {
	f, err := fs.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return doc, nil
}

// Load reads filename from fs, returning an empty mapping when it does not
// exist.
func Load(fs billy.Filesystem, filename string) (map[string]any, error) {
	doc, err := LoadDocument(fs, filename)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}
	return doc.Data, nil
}

// Marshal encodes data as indented JSON when filename ends in .json and as
// YAML otherwise. Mapping keys are sorted.
func Marshal(filename string, data any) ([]byte, error) {
	if strings.HasSuffix(filename, ".json") {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump writes data to filename on fs, creating parent directories.
func Dump(fs billy.Filesystem, filename string, data any) error {
	out, err := Marshal(filename, data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}

	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := fs.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return f.Close()
}
