package resources

import (
	"context"
	"fmt"

	"github.com/openfroyo/tfsync/pkg/engine"
)

// RunOptions are the options shared by every operation. Each operation
// reads the ones it understands.
type RunOptions struct {
	DryRun    bool
	Overwrite bool
	Recursive bool
	Force     bool
	Import    bool
}

// With returns o updated with the options of a handler mapping. Unknown
// keys are an error.
func (o RunOptions) With(options any) (RunOptions, error) {
	if options == nil {
		return o, nil
	}
	m, ok := options.(map[string]any)
	if !ok {
		return o, fmt.Errorf("options must be a mapping, got %T", options)
	}

	fields := map[string]*bool{
		"dry_run":   &o.DryRun,
		"overwrite": &o.Overwrite,
		"recursive": &o.Recursive,
		"force":     &o.Force,
		"import":    &o.Import,
	}
	for key, value := range m {
		field, ok := fields[key]
		if !ok {
			return o, fmt.Errorf("unknown option %q", key)
		}
		b, ok := value.(bool)
		if !ok {
			return o, fmt.Errorf("option %q must be a boolean, got %T", key, value)
		}
		*field = b
	}
	return o, nil
}

// Run dispatches op on the resource.
func (r *Resource) Run(ctx context.Context, op engine.OperationType, args map[string]any, opts RunOptions) error {
	var err error
	switch op {
	case engine.OperationCreate:
		_, err = r.Create(ctx, args, UpdateOptions{DryRun: opts.DryRun, Overwrite: opts.Overwrite})

	case engine.OperationUpdate:
		_, err = r.Update(ctx, args, UpdateOptions{DryRun: opts.DryRun, Overwrite: opts.Overwrite})

	case engine.OperationSync:
		_, err = r.Sync(ctx, args, opts)

	case engine.OperationImport:
		_, materialized, rerr := r.rootFor(args)
		if rerr != nil {
			return rerr
		}
		err = r.importObject(ctx, materialized, opts)

	case engine.OperationInit:
		root, _, rerr := r.rootFor(args)
		if rerr != nil {
			return rerr
		}
		err = r.Init(ctx, root)

	case engine.OperationShow:
		root, _, rerr := r.rootFor(args)
		if rerr != nil {
			return rerr
		}
		var addresses []string
		if addresses, err = r.Show(ctx, root); err == nil {
			r.logger.Info().Str("root", root).Strs("addresses", addresses).Msg("Managed addresses")
		}

	default:
		return engine.NewConfigurationError(r.Name, fmt.Sprintf("no command named %q", op)).WithResource(r.Name)
	}
	return err
}
