// Package settings implements a small algebra over dynamically shaped,
// path-addressed trees: the values produced by decoding YAML or JSON into
// `any` (map[string]any, []any and scalars).
//
// # Paths
//
// A path is a string of "/"-separated segments. Mapping keys may themselves
// contain "/", in which case the longest matching key wins. A segment that
// parses as an integer indexes a sequence; any other segment applied to a
// sequence is broadcast over every element and the non-nil results are
// collected (optionally flattened).
//
// # Operations
//
//   - Get / Pop / Update: read, remove and write values by path
//   - Merge: deep merge with replace or extend (set-like union) semantics,
//     cloning the sources unless InPlace is requested
//   - Match: structural or wildcard matching against patterns, with `$not`
//   - Format / FormatMap: Python-style `{field}` substitution over trees
//
// # Documents
//
// Document couples a tree with the declaration order of its mapping keys so
// that order-sensitive consumers (property schemas) survive decoding and
// merging. LoadDocument and Dump read and write YAML or JSON files through a
// billy.Filesystem.
package settings
