package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/tfsync/pkg/engine"
)

const (
	// Dir is the name of the project directory.
	Dir = ".tfsync"

	// ResourcesDir holds the resource definitions inside Dir.
	ResourcesDir = "resources"

	// File is the project configuration inside Dir.
	File = "config.yaml"
)

// Layout locates a project on a filesystem.
type Layout struct {
	// Root is the directory holding the project directory. Storage paths
	// are relative to it.
	Root string

	// SearchPaths are the resource directories of Root and of every
	// ancestor that has one, nearest first.
	SearchPaths []string
}

// ConfigDir returns the project directory.
func (l *Layout) ConfigDir() string {
	return path.Join(l.Root, Dir)
}

// Discover finds the project enclosing dir, an absolute slash-separated
// path, by walking up to the first directory holding a project directory.
func Discover(fs billy.Filesystem, dir string) (*Layout, error) {
	dir = path.Clean("/" + dir)

	root := ""
	for current := dir; ; current = path.Dir(current) {
		if isDir(fs, path.Join(current, Dir)) {
			root = current
			break
		}
		if current == "/" {
			break
		}
	}
	if root == "" {
		return nil, engine.NewNotFoundError("not a tfsync project (or any of the parent directories)", os.ErrNotExist).
			WithDetail("dir", dir)
	}

	layout := &Layout{Root: root}
	for current := root; ; current = path.Dir(current) {
		if resources := path.Join(current, Dir, ResourcesDir); isDir(fs, resources) {
			layout.SearchPaths = append(layout.SearchPaths, resources)
		}
		if current == "/" {
			break
		}
	}
	if len(layout.SearchPaths) == 0 {
		return nil, engine.NewNotFoundError("not a tfsync project (or any of the parent directories)", os.ErrNotExist).
			WithDetail("dir", path.Join(root, Dir, ResourcesDir))
	}
	return layout, nil
}

func isDir(fs billy.Filesystem, name string) bool {
	info, err := fs.Stat(name)
	return err == nil && info.IsDir()
}

// Load reads the project configuration of layout, checking the document
// against the project schema of schemas when given. A missing file yields
// the defaults.
func Load(fs billy.Filesystem, layout *Layout, schemas *SchemaRegistry) (*Project, error) {
	project := DefaultProject()

	name := path.Join(layout.ConfigDir(), File)
	data, err := util.ReadFile(fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return project, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if schemas != nil {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, engine.NewConfigurationError(name, err.Error())
		}
		if raw != nil {
			if err := schemas.ValidateAgainstSchema(context.Background(), "project", raw); err != nil {
				return nil, engine.NewConfigurationError(name, err.Error())
			}
		}
	}

	if err := Decode(data, project); err != nil {
		return nil, engine.NewConfigurationError(name, err.Error())
	}
	return project, nil
}

// Decode decodes a configuration document over project and validates the
// result. Unknown keys are rejected.
func Decode(data []byte, project *Project) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(project); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}
	return project.Validate()
}

var validate = validator.New()

// Validate checks the configuration values.
func (p *Project) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
