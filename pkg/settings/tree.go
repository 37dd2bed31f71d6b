package settings

import (
	"sort"
	"strconv"
	"strings"
)

// Get returns the value stored at path, or def when the path does not resolve.
//
// When a non-numeric segment meets a sequence, the remaining path is applied
// to every element. Non-nil results are collected; with flatten set, results
// that are themselves sequences are spliced into the collection.
func Get(tree any, path string, def any, flatten bool) any {
	switch node := tree.(type) {
	case map[string]any:
		if value, ok := node[path]; ok {
			return value
		}
		key := longestPrefixKey(node, path)
		if key == "" {
			return def
		}
		return Get(node[key], path[len(key)+1:], def, flatten)

	case []any:
		if i, ok := index(node, path); ok {
			return node[i]
		} else if isInt(path) {
			return def
		}

		if head, rest, found := strings.Cut(path, "/"); found && isInt(head) {
			i, ok := index(node, head)
			if !ok {
				return def
			}
			return Get(node[i], rest, def, flatten)
		}

		values := make([]any, 0, len(node))
		for _, item := range node {
			value := Get(item, path, nil, flatten)
			if value == nil {
				continue
			}
			if list, ok := value.([]any); ok && flatten {
				values = append(values, list...)
			} else {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			return def
		}
		return values
	}

	return def
}

// Pop removes the value stored at path and returns it together with the
// (possibly compacted) tree. Containers emptied by the removal are deleted
// from their parents, and empty sequence elements are dropped.
func Pop(tree any, path string, def any, flatten bool) (any, any) {
	switch node := tree.(type) {
	case nil:
		return def, nil

	case []any:
		values := make([]any, 0)
		kept := node[:0]
		for _, item := range node {
			value, rest := Pop(item, path, nil, flatten)
			if !IsEmpty(rest) {
				kept = append(kept, rest)
			}
			if value == nil {
				continue
			}
			if list, ok := value.([]any); ok && flatten {
				values = append(values, list...)
			} else {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			return def, kept
		}
		return values, kept

	case map[string]any:
		head, rest, found := strings.Cut(path, "/")
		if !found {
			value, ok := node[path]
			if !ok {
				return def, node
			}
			delete(node, path)
			return value, node
		}

		child, ok := node[head]
		if !ok {
			return def, node
		}
		value, child := Pop(child, rest, def, flatten)
		if IsEmpty(child) {
			delete(node, head)
		} else {
			node[head] = child
		}
		return value, node
	}

	return def, tree
}

// Update writes every path -> value pair of other into tree, creating
// intermediate mappings as needed, and returns the updated tree.
//
// Applied to a sequence, a key whose first segment is an in-range index
// updates that element; any other key is applied to every element.
func Update(tree any, other map[string]any) any {
	if list, ok := tree.([]any); ok {
		for _, key := range sortedKeys(other) {
			value := other[key]
			if head, rest, found := strings.Cut(key, "/"); found {
				if i, ok := index(list, head); ok {
					list[i] = Update(list[i], map[string]any{rest: value})
					continue
				}
			}
			for i, item := range list {
				list[i] = Update(item, map[string]any{key: value})
			}
		}
		return list
	}

	node, ok := tree.(map[string]any)
	if !ok {
		node = make(map[string]any)
	}

	for _, key := range sortedKeys(other) {
		value := other[key]
		head, rest, found := strings.Cut(key, "/")
		if !found {
			node[key] = value
			continue
		}
		node[head] = Update(node[head], map[string]any{rest: value})
	}

	return node
}

// Clone returns a deep copy of tree. Scalars are returned as is.
func Clone(tree any) any {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = Clone(v)
		}
		return out
	}
	return tree
}

// CloneMap is Clone for mappings; a nil map yields an empty one.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	return Clone(m).(map[string]any)
}

// IsEmpty reports whether value is nil, an empty container or an empty
// string, mirroring the falsiness used to prune trees.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	case bool:
		return !v
	}
	return false
}

// Mapping returns the subset of tree holding a non-nil value for each key.
func Mapping(tree any, keys ...string) map[string]any {
	out := make(map[string]any)
	for _, k := range keys {
		if value := Get(tree, k, nil, true); value != nil {
			out[k] = value
		}
	}
	return out
}

// Values returns the values of a mapping in key order, or the sequence itself.
func Values(tree any) []any {
	switch node := tree.(type) {
	case []any:
		return node
	case map[string]any:
		out := make([]any, 0, len(node))
		for _, k := range sortedKeys(node) {
			out = append(out, node[k])
		}
		return out
	}
	return nil
}

func longestPrefixKey(node map[string]any, path string) string {
	best := ""
	for key := range node {
		if len(key) > len(best) && strings.HasPrefix(path, key+"/") {
			best = key
		}
	}
	return best
}

func index(list []any, segment string) (int, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	if i < 0 {
		i += len(list)
	}
	if i < 0 || i >= len(list) {
		return 0, false
	}
	return i, true
}

func isInt(segment string) bool {
	_, err := strconv.Atoi(segment)
	return err == nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
