package settings

import "strconv"

// Mode selects how Merge combines values.
type Mode uint8

const (
	// Replace overwrites sequences and scalars and clones every source value.
	Replace Mode = 0

	// Extend appends source sequence elements that are not already present
	// in the destination sequence instead of replacing it.
	Extend Mode = 1 << iota

	// InPlace stores source values without cloning them first.
	InPlace
)

// Merge deep-merges each of others into dst and returns the result.
//
// Mappings merge key by key and dst mappings are updated in place; a nil
// value inside a source mapping overwrites (it is the deletion sentinel),
// while a nil source is skipped. A mapping merged into a sequence treats
// its keys as indices when all of them are valid, otherwise it replaces
// (or, with Extend, is appended to) the sequence. Sequences replace unless
// Extend is set, in which case they form a set-like union.
func Merge(dst any, mode Mode, others ...any) any {
	for _, other := range others {
		if other == nil {
			continue
		}
		dst = mergeOne(dst, other, mode)
	}
	return dst
}

// MergeMaps merges mappings into dst, allocating dst when nil.
func MergeMaps(dst map[string]any, mode Mode, others ...map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for _, other := range others {
		if other == nil {
			continue
		}
		dst = mergeOne(dst, other, mode).(map[string]any)
	}
	return dst
}

func mergeOne(dst, other any, mode Mode) any {
	clone := mode&InPlace == 0
	extend := mode&Extend != 0

	switch src := other.(type) {
	case map[string]any:
		switch target := dst.(type) {
		case map[string]any:
			if target == nil {
				target = make(map[string]any, len(src))
			}
			for key, value := range src {
				if value == nil {
					target[key] = nil
					continue
				}
				target[key] = mergeOne(target[key], value, mode)
			}
			return target

		case []any:
			if indices, ok := sequenceIndices(target, src); ok {
				for key, i := range indices {
					target[i] = mergeOne(target[i], src[key], mode)
				}
				return target
			}
			var value any = src
			if clone {
				value = Clone(src)
			}
			if extend {
				return append(target, value)
			}
			return value
		}

		if clone {
			return mergeOne(make(map[string]any, len(src)), src, mode)
		}
		return src

	case []any:
		values := src
		if clone {
			values = Clone(src).([]any)
		}
		target, ok := dst.([]any)
		if !extend || !ok {
			return values
		}
		for _, value := range values {
			if !contains(target, value) {
				target = append(target, value)
			}
		}
		return target
	}

	return other
}

// sequenceIndices maps every key of src to a valid index of list.
func sequenceIndices(list []any, src map[string]any) (map[string]int, bool) {
	if len(src) == 0 {
		return nil, false
	}
	indices := make(map[string]int, len(src))
	for key := range src {
		i, err := strconv.Atoi(key)
		if err != nil {
			return nil, false
		}
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return nil, false
		}
		indices[key] = i
	}
	return indices, true
}

func contains(list []any, value any) bool {
	for _, item := range list {
		if Equal(item, value) {
			return true
		}
	}
	return false
}
