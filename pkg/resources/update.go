package resources

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/properties"
	"github.com/openfroyo/tfsync/pkg/settings"
)

// UpdateOptions control Update.
type UpdateOptions struct {
	// Defaults applies property defaults and refuses to touch an object
	// that already exists. Create sets it.
	Defaults bool

	// DryRun prints the resulting fragments instead of writing them.
	DryRun bool

	// Overwrite discards the settings of a matching object before merging.
	Overwrite bool
}

// Create stores a new object built from args. It fails with an
// AlreadyExists error when a matching object is stored.
func (r *Resource) Create(ctx context.Context, args map[string]any, opts UpdateOptions) (map[string]any, error) {
	opts.Defaults = true
	return r.Update(ctx, args, opts)
}

// Update merges the object described by args into its storage document
// and returns the materialized arguments.
//
// The storage document is chosen by the primary key, the object location
// by the address template. An object found there is merged into (or
// replaced, with Overwrite). The template fragment is merged into the
// document on every call.
func (r *Resource) Update(ctx context.Context, args map[string]any, opts UpdateOptions) (map[string]any, error) {
	props := r.Properties

	materialized, err := props.Materialize(args, properties.MaterializeOptions{Defaults: opts.Defaults, Slugs: true})
	if err != nil {
		return nil, r.schemaError(err)
	}

	key, err := props.PrimaryKey(materialized)
	if err != nil {
		return nil, r.schemaError(err)
	}
	if !key.Complete() {
		return nil, engine.NewRequiredArgumentError(key.Missing).WithResource(r.Name).WithOperation("update")
	}

	source, err := r.formatString("source", r.Source, key.Values)
	if err != nil {
		return nil, err
	}

	doc, err := settings.LoadDocument(r.graph.opts.Storage, source)
	initial := false
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", r.Name, err)
		}
		doc, initial = settings.NewDocument(nil), true
	}

	address, err := r.formatString("address", r.Address, materialized)
	if err != nil {
		return nil, err
	}

	target, err := r.locate(doc.Data, address, key)
	if err != nil {
		return nil, err
	}
	if m, ok := target.(map[string]any); ok && opts.Overwrite {
		clear(m)
	}

	exists := !settings.IsEmpty(target)
	if exists && opts.Defaults {
		return nil, engine.NewAlreadyExistsError(address).WithResource(r.Name).
			WithDetail("source", source).WithDetail("primary_key", key.Values)
	}

	fragment, err := r.Template.Render(r, "template", materialized)
	if err != nil {
		return nil, err
	}
	doc.Data = settings.MergeMaps(doc.Data, settings.Extend|settings.InPlace, settings.CloneMap(fragment))

	var (
		action engine.Action
		saved  any
	)
	if exists {
		serialized, err := props.Serialize(materialized, false)
		if err != nil {
			return nil, r.schemaError(err)
		}
		settings.Merge(target, settings.Extend|settings.InPlace, serialized)
		action, saved = engine.ActionUpdated, target
	} else {
		if !opts.Defaults {
			materialized, err = props.Materialize(args, properties.MaterializeOptions{Defaults: true, Slugs: true})
			if err != nil {
				return nil, r.schemaError(err)
			}
		}

		serialized, err := props.Serialize(materialized, true)
		if err != nil {
			return nil, r.schemaError(err)
		}

		if target == nil {
			placed := settings.Update(make(map[string]any), map[string]any{address: serialized}).(map[string]any)
			doc.Data = settings.MergeMaps(doc.Data, settings.Extend|settings.InPlace, placed)
			action, saved = engine.ActionCreated, settings.Get(doc.Data, address, serialized, false)
		} else {
			settings.Merge(target, settings.InPlace, serialized)
			action, saved = engine.ActionOverwritten, target
		}
	}

	for _, conflict := range r.ConflictsWith {
		settings.Pop(doc.Data, conflict, nil, false)
	}

	if err := r.beforeSaving(saved, materialized); err != nil {
		return nil, err
	}

	if len(doc.Data) > 0 {
		if opts.DryRun {
			preview := settings.MergeMaps(fragment, settings.Extend,
				settings.Update(make(map[string]any), map[string]any{address: saved}).(map[string]any))
			if err := r.print(preview); err != nil {
				return nil, err
			}
		} else {
			if err := settings.Dump(r.graph.opts.Storage, source, doc.Data); err != nil {
				return nil, fmt.Errorf("%s: %w", r.Name, err)
			}
			if err := r.record(ctx, source, address, action); err != nil {
				return nil, err
			}
		}
		r.logger.Info().Str("source", source).Str("address", address).Bool("dry_run", opts.DryRun).
			Msgf("%s %s %s", actionLabel(action), source, address)

		payload := settings.MergeMaps(settings.CloneMap(args), settings.Replace, props.Heritage(materialized))
		events := []engine.Event{engine.EventChange}
		if initial {
			events = append([]engine.Event{engine.EventInit}, events...)
		}
		if action == engine.ActionUpdated {
			events = append(events, engine.EventUpdate)
		} else {
			events = append(events, engine.EventCreate)
		}
		for _, event := range events {
			if err := r.trigger(ctx, event, payload, RunOptions{Overwrite: opts.Overwrite, DryRun: opts.DryRun}); err != nil {
				return nil, err
			}
		}
	}

	if r.Module.File != "" {
		if err := r.updateModule(ctx, key, materialized, opts); err != nil {
			return nil, err
		}
	}

	return materialized, nil
}

// locate finds the stored object addressed by address. When the address
// does not resolve, the collection holding it is searched for an object
// with the same primary key.
func (r *Resource) locate(data map[string]any, address string, key *properties.Key) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	items := settings.Get(data, address, nil, false)
	if items == nil && address != r.Address {
		if dir := path.Dir(address); dir != "." {
			items = settings.Get(data, dir, nil, false)
			if m, ok := items.(map[string]any); ok {
				items = settings.Values(m)
			}
		}
	}

	list, ok := items.([]any)
	if !ok {
		return items, nil
	}

	pattern, err := r.Properties.Serialize(key.Merged(), false)
	if err != nil {
		return nil, r.schemaError(err)
	}
	if settings.IsEmpty(pattern) {
		return nil, nil
	}
	for _, item := range list {
		if settings.Match(item, pattern, true, true) {
			return item, nil
		}
	}
	return nil, nil
}

// beforeSaving applies the onbeforesaving expression. A mapping result is
// merged into the saved settings.
func (r *Resource) beforeSaving(saved any, args map[string]any) error {
	if r.OnBeforeSaving == "" {
		return nil
	}
	value, err := r.graph.opts.Evaluator.Eval(r.OnBeforeSaving, map[string]any{"settings": saved, "args": args})
	if err != nil {
		return engine.NewConfigurationError(r.Name+"/onbeforesaving", err.Error()).WithResource(r.Name)
	}
	if m, ok := value.(map[string]any); ok {
		settings.Merge(saved, settings.InPlace, m)
	}
	return nil
}

func (r *Resource) updateModule(ctx context.Context, key *properties.Key, args map[string]any, opts UpdateOptions) error {
	filename, err := r.formatString("module/file", r.Module.File, key.Values)
	if err != nil {
		return err
	}
	address, instance, err := r.Module.Render(r, args)
	if err != nil {
		return err
	}

	data, err := settings.Load(r.graph.opts.Storage, filename)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Name, err)
	}

	action := engine.ActionCreated
	if existing := settings.Get(data, address, nil, false); !settings.IsEmpty(existing) {
		action = engine.ActionUpdated
		if m, ok := existing.(map[string]any); ok && opts.Overwrite {
			clear(m)
			action = engine.ActionOverwritten
		}
	}

	placed := settings.Update(make(map[string]any), map[string]any{address: instance}).(map[string]any)
	if opts.DryRun {
		if err := r.print(placed); err != nil {
			return err
		}
	} else {
		if err := settings.Dump(r.graph.opts.Storage, filename, settings.MergeMaps(data, settings.InPlace, placed)); err != nil {
			return fmt.Errorf("%s: %w", r.Name, err)
		}
		if err := r.record(ctx, filename, address, action); err != nil {
			return err
		}
	}
	r.logger.Info().Str("source", filename).Str("address", address).Bool("dry_run", opts.DryRun).
		Msgf("%s %s %s", actionLabel(action), filename, address)
	return nil
}

// print writes a dry-run fragment as a YAML document.
func (r *Resource) print(data any) error {
	out, err := settings.Marshal("-.yaml", data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.graph.opts.Out, "---\n%s", out)
	return err
}

func (r *Resource) record(ctx context.Context, source, address string, action engine.Action) error {
	if r.graph.opts.Recorder == nil {
		return nil
	}
	return r.graph.opts.Recorder.Record(ctx, r.Name, source, address, action)
}

func actionLabel(action engine.Action) string {
	switch action {
	case engine.ActionCreated:
		return "Created"
	case engine.ActionUpdated:
		return "Updated"
	case engine.ActionOverwritten:
		return "Overwritten"
	case engine.ActionImported:
		return "Imported"
	}
	return string(action)
}
