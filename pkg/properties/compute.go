package properties

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"regexp"
	"sync"

	"github.com/gosimple/slug"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// compute runs the value pipeline of a leaf: type coercion, translation,
// expression, pattern capture, digest and final format. Named pattern
// groups are written into scope.
func (s *Schema) compute(p *Property, value any, scope map[string]any) (any, error) {
	if value != nil && (p.Type == "json" || p.Type == "string") {
		if _, ok := value.(string); !ok {
			data, err := json.Marshal(value)
			if err != nil {
				return nil, &PathError{Path: []string{"type"}, Err: err}
			}
			value = string(data)
		}
	}

	for from, to := range p.Translate {
		if settings.Equal(value, from) {
			value = to
			break
		}
	}

	if p.Expr != "" {
		env := make(map[string]any, len(scope)+1)
		for k, v := range scope {
			env[k] = v
		}
		env["this"] = value
		result, err := s.opts.Evaluator.Eval(p.Expr, env)
		if err != nil {
			return nil, &PathError{Path: []string{"expr"}, Err: err}
		}
		value = result
	}

	str, ok := value.(string)
	if !ok {
		return value, nil
	}

	for _, pattern := range p.Pattern {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, &PathError{Path: []string{"pattern"}, Err: err}
		}
		m := re.FindStringSubmatchIndex(str)
		if m == nil {
			continue
		}
		for i, name := range re.SubexpNames() {
			if name == "" || m[2*i] < 0 {
				continue
			}
			scope[name] = str[m[2*i]:m[2*i+1]]
		}
		break
	}

	if p.Hash != "" {
		digest, err := hashString(p.Hash, str)
		if err != nil {
			return nil, &PathError{Path: []string{"hash"}, Err: err}
		}
		str = digest
	}

	if p.Format != "" {
		formatted, err := settings.Format(p.Format, scope, str)
		if err != nil {
			return nil, &PathError{Path: []string{"format"}, Err: err}
		}
		str = formatted
	}

	return str, nil
}

var patterns sync.Map

// compilePattern anchors pattern at the start of the value.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}

func hashString(algorithm, value string) (string, error) {
	switch algorithm {
	case "adler32":
		return fmt.Sprintf("%x", adler32.Checksum([]byte(value))), nil
	case "crc32":
		return fmt.Sprintf("%x", crc32.ChecksumIEEE([]byte(value))), nil
	}

	var h hash.Hash
	switch algorithm {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha224":
		h = sha256.New224()
	case "sha256":
		h = sha256.New()
	case "sha384":
		h = sha512.New384()
	case "sha512":
		h = sha512.New()
	case "sha3_224":
		h = sha3.New224()
	case "sha3_256":
		h = sha3.New256()
	case "sha3_384":
		h = sha3.New384()
	case "sha3_512":
		h = sha3.New512()
	case "blake2b":
		h, _ = blake2b.New512(nil)
	case "blake2s":
		h, _ = blake2s.New256(nil)
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func init() {
	slug.Lowercase = false
}

// Slugify reduces value to letters, digits, '-' and '_', keeping case.
func Slugify(value any) string {
	return slug.Make(settings.String(value))
}
