package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// KeyError reports a replacement field that could not be resolved. Path
// starts with the location of the offending template inside the formatted
// tree and ends with the missing field name.
type KeyError struct {
	Path []string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("missing key %s", strings.Join(e.Path, "/"))
}

// Field returns the unresolved replacement field.
func (e *KeyError) Field() string {
	if len(e.Path) == 0 {
		return ""
	}
	return e.Path[len(e.Path)-1]
}

// Prepend returns a KeyError whose path starts with segments.
func (e *KeyError) Prepend(segments ...string) *KeyError {
	path := make([]string, 0, len(segments)+len(e.Path))
	path = append(path, segments...)
	return &KeyError{Path: append(path, e.Path...)}
}

// FormatError reports a syntactically broken template.
type FormatError struct {
	Template string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid template %q: %s", e.Template, e.Reason)
}

// Format substitutes `{field}` replacement fields in spec.
//
// A field is a name looked up in args, or an index into positional (`{0}`,
// or `{}` for automatic numbering), optionally followed by `.key` and
// `[key]` accessors and a `:spec` format specification. Doubled braces are
// literal braces. A field that does not resolve yields a *KeyError.
func Format(spec string, args map[string]any, positional ...any) (string, error) {
	var (
		out  strings.Builder
		auto int
	)

	for i := 0; i < len(spec); {
		c := spec[i]
		switch {
		case c == '{' && i+1 < len(spec) && spec[i+1] == '{':
			out.WriteByte('{')
			i += 2
			continue
		case c == '}' && i+1 < len(spec) && spec[i+1] == '}':
			out.WriteByte('}')
			i += 2
			continue
		case c == '}':
			return "", &FormatError{Template: spec, Reason: "single '}' encountered"}
		case c != '{':
			out.WriteByte(c)
			i++
			continue
		}

		end := closingBrace(spec, i+1)
		if end < 0 {
			return "", &FormatError{Template: spec, Reason: "expected '}' before end of string"}
		}
		field := spec[i+1 : end]
		i = end + 1

		name, conversion, fspec := splitField(field)
		if name == "" {
			name = strconv.Itoa(auto)
			auto++
		}

		value, err := resolveField(name, args, positional)
		if err != nil {
			return "", err
		}

		if strings.Contains(fspec, "{") {
			nested, err := Format(fspec, args, positional...)
			if err != nil {
				return "", err
			}
			fspec = nested
		}

		text, err := formatValue(value, conversion, fspec)
		if err != nil {
			return "", &FormatError{Template: spec, Reason: err.Error()}
		}
		out.WriteString(text)
	}

	return out.String(), nil
}

// Fields returns the named replacement fields of spec as "/"-joined
// paths, so "{network[name]}" yields "network/name". Positional fields and
// malformed templates are ignored.
func Fields(spec string) []string {
	var fields []string
	for i := 0; i < len(spec); i++ {
		switch {
		case spec[i] == '{' && i+1 < len(spec) && spec[i+1] == '{':
			i++
			continue
		case spec[i] != '{':
			continue
		}

		end := closingBrace(spec, i+1)
		if end < 0 {
			return fields
		}
		name, _, _ := splitField(spec[i+1 : end])
		i = end

		if name == "" {
			continue
		}
		if _, err := strconv.Atoi(name); err == nil {
			continue
		}
		name = strings.NewReplacer("[", "/", "]", "", ".", "/").Replace(name)
		fields = append(fields, name)
	}
	return fields
}

// FormatMap formats every string found in spec against args. Mapping keys
// are kept verbatim; a *KeyError raised below a mapping key or sequence
// index is prefixed with that key or index.
func FormatMap(spec any, args map[string]any) (any, error) {
	switch node := spec.(type) {
	case string:
		return Format(node, args)

	case map[string]any:
		out := make(map[string]any, len(node))
		for key, value := range node {
			formatted, err := FormatMap(value, args)
			if err != nil {
				return nil, prependKey(err, key)
			}
			out[key] = formatted
		}
		return out, nil

	case []any:
		out := make([]any, 0, len(node))
		for i, value := range node {
			formatted, err := FormatMap(value, args)
			if err != nil {
				return nil, prependKey(err, strconv.Itoa(i))
			}
			out = append(out, formatted)
		}
		return out, nil
	}

	return spec, nil
}

// GetFormat formats the value stored at path, returning def when the path
// is absent.
func GetFormat(tree any, path string, args map[string]any, def any) (any, error) {
	value, err := FormatMap(Get(tree, path, nil, true), args)
	if err != nil {
		return nil, prependKey(err, path)
	}
	if value == nil {
		return def, nil
	}
	return value, nil
}

func prependKey(err error, key string) error {
	if ke, ok := err.(*KeyError); ok {
		return ke.Prepend(key)
	}
	return err
}

func closingBrace(spec string, from int) int {
	depth := 0
	for i := from; i < len(spec); i++ {
		switch spec[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// splitField splits "name!conv:spec". Brackets protect ':' and '!' inside
// an index accessor.
func splitField(field string) (name string, conversion byte, spec string) {
	depth := 0
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '!':
			if depth == 0 {
				name = field[:i]
				rest := field[i+1:]
				if rest != "" {
					conversion = rest[0]
					rest = rest[1:]
				}
				spec = strings.TrimPrefix(rest, ":")
				return
			}
		case ':':
			if depth == 0 {
				return field[:i], 0, field[i+1:]
			}
		}
	}
	return field, 0, ""
}

func resolveField(name string, args map[string]any, positional []any) (any, error) {
	head := name
	rest := ""
	if i := strings.IndexAny(name, ".["); i >= 0 {
		head, rest = name[:i], name[i:]
	}

	var (
		value any
		ok    bool
	)
	if n, err := strconv.Atoi(head); err == nil {
		if n >= 0 && n < len(positional) {
			value, ok = positional[n], true
		}
	}
	if !ok {
		value, ok = args[head]
	}
	if !ok {
		return nil, &KeyError{Path: []string{head}}
	}

	for rest != "" {
		var key string
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			key, rest = rest[:end], rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, &FormatError{Template: name, Reason: "missing ']' in format string"}
			}
			key, rest = rest[1:end], rest[end+1:]
		default:
			return nil, &FormatError{Template: name, Reason: "only '.' or '[' may follow ']' in format field specifier"}
		}

		switch node := value.(type) {
		case map[string]any:
			value, ok = node[key]
		case []any:
			var i int
			i, ok = index(node, key)
			if ok {
				value = node[i]
			}
		default:
			ok = false
		}
		if !ok {
			return nil, &KeyError{Path: []string{key}}
		}
	}

	return value, nil
}

type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	zero      bool
	width     int
	precision int
	verb      byte
}

func parseFormatSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	if spec == "" {
		return fs, nil
	}

	if r, size := utf8.DecodeRuneInString(spec); size < len(spec) && isAlign(spec[size]) {
		fs.fill, fs.align = r, spec[size]
		spec = spec[size+1:]
	} else if isAlign(spec[0]) {
		fs.align = spec[0]
		spec = spec[1:]
	}

	if spec != "" && (spec[0] == '+' || spec[0] == '-' || spec[0] == ' ') {
		fs.sign = spec[0]
		spec = spec[1:]
	}
	if spec != "" && spec[0] == '0' {
		fs.zero = true
		spec = spec[1:]
	}

	i := 0
	for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
		i++
	}
	if i > 0 {
		fs.width, _ = strconv.Atoi(spec[:i])
		spec = spec[i:]
	}

	if spec != "" && spec[0] == '.' {
		i = 1
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		if i == 1 {
			return fs, fmt.Errorf("format specifier missing precision")
		}
		fs.precision, _ = strconv.Atoi(spec[1:i])
		spec = spec[i:]
	}

	switch len(spec) {
	case 0:
	case 1:
		fs.verb = spec[0]
	default:
		return fs, fmt.Errorf("invalid format specifier %q", spec)
	}

	return fs, nil
}

func isAlign(c byte) bool {
	return c == '<' || c == '>' || c == '^' || c == '='
}

func formatValue(value any, conversion byte, spec string) (string, error) {
	switch conversion {
	case 0, 's':
	case 'r', 'a':
		value = repr(value)
	default:
		return "", fmt.Errorf("unknown conversion specifier %c", conversion)
	}

	fs, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}

	text, numeric, err := applyVerb(value, fs)
	if err != nil {
		return "", err
	}

	if fs.zero && fs.align == 0 {
		fs.fill, fs.align = '0', '='
	}
	if fs.align == 0 {
		fs.align = '<'
		if numeric {
			fs.align = '>'
		}
	}

	pad := fs.width - utf8.RuneCountInString(text)
	if pad <= 0 {
		return text, nil
	}
	fill := strings.Repeat(string(fs.fill), pad)
	switch fs.align {
	case '>':
		return fill + text, nil
	case '^':
		left := strings.Repeat(string(fs.fill), pad/2)
		right := strings.Repeat(string(fs.fill), pad-pad/2)
		return left + text + right, nil
	case '=':
		if text != "" && (text[0] == '-' || text[0] == '+' || text[0] == ' ') {
			return text[:1] + fill + text[1:], nil
		}
		return fill + text, nil
	}
	return text + fill, nil
}

func applyVerb(value any, fs formatSpec) (string, bool, error) {
	switch fs.verb {
	case 0, 's':
		if fs.verb == 0 {
			if _, ok := number(value); ok {
				return formatNumber(value, fs)
			}
		}
		text := stringify(value)
		if fs.precision >= 0 && fs.precision < utf8.RuneCountInString(text) {
			text = string([]rune(text)[:fs.precision])
		}
		return text, false, nil
	}
	return formatNumber(value, fs)
}

func formatNumber(value any, fs formatSpec) (string, bool, error) {
	n, ok := number(value)
	if !ok {
		if s, isString := value.(string); isString {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return "", false, fmt.Errorf("unknown format code '%c' for value %q", fs.verb, s)
			}
			n = parsed
		} else {
			return "", false, fmt.Errorf("unknown format code '%c' for %T", fs.verb, value)
		}
	}

	var text string
	switch fs.verb {
	case 'd':
		text = strconv.FormatInt(int64(n), 10)
	case 'x':
		text = strconv.FormatInt(int64(n), 16)
	case 'X':
		text = strings.ToUpper(strconv.FormatInt(int64(n), 16))
	case 'o':
		text = strconv.FormatInt(int64(n), 8)
	case 'b':
		text = strconv.FormatInt(int64(n), 2)
	case 'f', 'F':
		precision := fs.precision
		if precision < 0 {
			precision = 6
		}
		text = strconv.FormatFloat(n, 'f', precision, 64)
	case 'e', 'E':
		precision := fs.precision
		if precision < 0 {
			precision = 6
		}
		text = strconv.FormatFloat(n, fs.verb, precision, 64)
	case 'g', 'G':
		text = strconv.FormatFloat(n, fs.verb, fs.precision, 64)
	case 0:
		switch {
		case fs.precision >= 0:
			text = strconv.FormatFloat(n, 'g', fs.precision, 64)
		case ok:
			text = String(value)
		default:
			text = String(n)
		}
	case '%':
		precision := fs.precision
		if precision < 0 {
			precision = 6
		}
		text = strconv.FormatFloat(n*100, 'f', precision, 64) + "%"
	default:
		return "", false, fmt.Errorf("unknown format code '%c'", fs.verb)
	}

	if n >= 0 {
		switch fs.sign {
		case '+':
			text = "+" + text
		case ' ':
			text = " " + text
		}
	}
	return text, true, nil
}

// stringify renders containers as JSON so templates interpolating a whole
// mapping or sequence produce something parseable.
func stringify(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
	return String(value)
}

func repr(value any) string {
	if s, ok := value.(string); ok {
		return strconv.Quote(s)
	}
	return stringify(value)
}
