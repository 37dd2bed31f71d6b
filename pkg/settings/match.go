package settings

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gobwas/glob"
)

// NotKey inverts the sub-pattern stored under it in a mapping pattern.
const NotKey = "$not"

// Match reports whether value satisfies patterns.
//
// Structural equality always matches. A nil value yields def. A mapping
// pattern requires every key to match the value found at that path; a
// sequence pattern matches when any element does. Unless literally is set,
// a string pattern is also tried as a shell-style wildcard against the
// stringified value.
func Match(value, patterns any, literally, def bool) bool {
	if Equal(value, patterns) {
		return true
	}
	if value == nil {
		return def
	}

	switch pattern := patterns.(type) {
	case map[string]any:
		for key, sub := range pattern {
			if key == NotKey {
				if Match(value, sub, literally, def) {
					return false
				}
				continue
			}
			if _, ok := value.(map[string]any); !ok {
				return false
			}
			if !Match(Get(value, key, nil, true), sub, literally, def) {
				return false
			}
		}
		return true

	case []any:
		for _, sub := range pattern {
			if Match(value, sub, literally, def) {
				return true
			}
		}
		return false

	case string:
		if literally {
			return false
		}
		g, err := compileGlob(pattern)
		if err != nil {
			return false
		}
		return g.Match(String(value))
	}

	return false
}

// String renders a scalar the way it appears in formatted output.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

var globs sync.Map

func compileGlob(pattern string) (glob.Glob, error) {
	if g, ok := globs.Load(pattern); ok {
		return g.(glob.Glob), nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	globs.Store(pattern, g)
	return g, nil
}
