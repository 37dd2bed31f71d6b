package commands

import (
	"fmt"
	"io"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/settings"
	"github.com/openfroyo/tfsync/pkg/vpath"
)

// readArgs turns PATH arguments into one argument mapping per object.
//
// Each PATH is parsed with the resource path template and merged over the
// previous mapping, so later paths inherit the values they do not set. A
// "-" reads a document from stdin and merges it over the current mapping;
// a lone "-" yields one mapping per document of the stream. Without paths
// a single empty mapping is returned.
func readArgs(template *vpath.Template, paths []string, stdin io.Reader) ([]map[string]any, error) {
	if len(paths) == 1 && paths[0] == "-" {
		return readDocuments(stdin)
	}

	var (
		args []map[string]any
		last map[string]any
		tail string
	)
	for _, p := range paths {
		last = settings.CloneMap(last)
		if last == nil {
			last = make(map[string]any)
		}
		tail = p

		if p == "-" {
			doc, err := readDocument(stdin)
			if err != nil {
				return nil, err
			}
			settings.MergeMaps(last, settings.InPlace, doc)
			continue
		}

		if template != nil {
			settings.MergeMaps(last, settings.InPlace, template.Parse(p))
		}
		args = append(args, last)
	}

	if tail == "-" {
		args = append(args, last)
	}
	if len(args) == 0 {
		args = append(args, make(map[string]any))
	}
	return args, nil
}

func readDocuments(r io.Reader) ([]map[string]any, error) {
	docs, err := settings.UnmarshalAll(r)
	if err != nil {
		return nil, engine.NewValidationError("failed to parse standard input", err)
	}

	args := make([]map[string]any, 0, len(docs))
	for i, doc := range docs {
		m, err := asArgs(doc)
		if err != nil {
			return nil, engine.NewValidationError(fmt.Sprintf("document %d of standard input", i), err)
		}
		args = append(args, m)
	}
	return args, nil
}

func readDocument(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	doc, err := settings.Unmarshal(data)
	if err != nil {
		return nil, engine.NewValidationError("failed to parse standard input", err)
	}
	m, err := asArgs(doc)
	if err != nil {
		return nil, engine.NewValidationError("standard input", err)
	}
	return m, nil
}

func asArgs(doc any) (map[string]any, error) {
	switch v := doc.(type) {
	case nil:
		return make(map[string]any), nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", doc)
	}
}
