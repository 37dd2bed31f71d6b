package resources

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"path"
	"strings"

	"github.com/openfroyo/tfsync/pkg/settings"
)

// Module describes the terraform module instance written for every object
// of a resource. A resource without File has no module.
type Module struct {
	// File is the template of the document holding the module blocks.
	File string

	// Name is the template of the instance name. Without one, instances
	// are named after a digest of the primary key.
	Name string

	// Source is the template of the module source.
	Source string

	// Args lists the argument aliases copied into the instance.
	Args []string

	Template *Template
}

func (m *Module) inherit(parent *Resource, rawSource string) {
	if m.File == "" {
		return
	}

	switch {
	case m.Source == "":
		m.Source = "./"
		if dir := path.Dir(rawSource); dir != "." {
			m.Source += dir
		}
	case !strings.HasPrefix(m.Source, "./"):
		m.Source = "./" + m.Source
	}

	if parent == nil {
		return
	}
	dir := path.Dir(parent.Source)
	if strings.HasSuffix(m.File, moduleSuffix) {
		m.File = path.Join(dir, m.File)
		return
	}
	if joined := path.Join(dir, m.Source); joined != "." {
		m.Source = "./" + joined
	} else {
		m.Source = "./"
	}
}

// instanceName renders the instance name for args.
func (m *Module) instanceName(r *Resource, args map[string]any) (string, error) {
	if m.Name != "" {
		return r.formatString("module/name", m.Name, args)
	}

	key, err := r.Properties.PrimaryKey(args)
	if err != nil {
		return "", r.schemaError(err)
	}
	data, err := json.Marshal(key.Values)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return "mod-" + hex.EncodeToString(sum[:]), nil
}

// Render returns the address and the content of the module instance for
// args.
func (m *Module) Render(r *Resource, args map[string]any) (string, map[string]any, error) {
	name, err := m.instanceName(r, args)
	if err != nil {
		return "", nil, err
	}
	source, err := r.formatString("module/source", m.Source, args)
	if err != nil {
		return "", nil, err
	}

	instance := map[string]any{"source": source}
	for _, key := range m.Args {
		settings.Update(instance, map[string]any{key: settings.Clone(settings.Get(args, key, nil, true))})
	}

	if m.Template != nil {
		rendered, err := m.Template.Render(r, "module/template", args)
		if err != nil {
			return "", nil, err
		}
		settings.MergeMaps(instance, settings.Replace, rendered)
	}
	return "module/" + name, instance, nil
}
