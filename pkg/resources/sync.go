package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/properties"
	"github.com/openfroyo/tfsync/pkg/runner"
	"github.com/openfroyo/tfsync/pkg/settings"
)

const (
	actionDescribe = "describe"
	actionList     = "list"
)

// visitFunc receives the arguments of one discovered object.
type visitFunc func(ctx context.Context, args map[string]any) error

// Sync reconciles the remote objects matching filters into storage and
// returns how many were reconciled. Every object is stored with Update
// and Overwrite; opts.Import also imports it into the terraform state and
// opts.Recursive syncs the child resources with its heritage.
func (r *Resource) Sync(ctx context.Context, filters map[string]any, opts RunOptions) (int, error) {
	reconcile := func(ctx context.Context, args map[string]any) error {
		args, err := r.Update(ctx, args, UpdateOptions{Overwrite: true, DryRun: opts.DryRun})
		if err != nil {
			return err
		}

		if opts.Import {
			if err := r.importObject(ctx, args, opts); err != nil {
				return err
			}
		}

		if opts.Recursive {
			heritage := r.Properties.Heritage(args)
			_, err := r.graph.Each(ctx, r.Name, engine.OperationSync, func(ctx context.Context, child *Resource) error {
				_, err := child.Sync(ctx, settings.CloneMap(heritage), opts)
				return err
			})
			return err
		}
		return nil
	}

	return r.describe(ctx, filters, reconcile, opts.Force)
}

func (r *Resource) describe(ctx context.Context, filters map[string]any, visit visitFunc, force bool) (int, error) {
	return r.discover(ctx, actionDescribe, filters, visit, actionList, force)
}

func (r *Resource) list(ctx context.Context, filters map[string]any, visit visitFunc, force bool) (int, error) {
	return r.discover(ctx, actionList, filters, visit, actionDescribe, force)
}

func (r *Resource) commands(action string) [][]string {
	if action == actionDescribe {
		return r.sync.describe
	}
	return r.sync.list
}

// discover runs the first command of action whose arguments resolve and
// visits every object of its output that passes the filters.
//
// When no command resolves, the objects are discovered through the
// fallback action, then through the sync parent, and action is retried
// with the heritage of every object found.
func (r *Resource) discover(ctx context.Context, action string, filters map[string]any, visit visitFunc, fallback string, force bool) (int, error) {
	specs := r.commands(action)
	if len(specs) == 0 && fallback != "" {
		specs, action, fallback = r.commands(fallback), fallback, ""
	}

	parent := r.SyncParent()
	if len(specs) == 0 {
		if parent != nil {
			return parent.list(ctx, filters, visit, force)
		}
		return 0, nil
	}

	props := r.Properties
	args, err := props.Materialize(filters, properties.MaterializeOptions{})
	if err != nil {
		return 0, r.schemaError(err)
	}

	var (
		argv     []string
		unusable error
	)
	for i, spec := range specs {
		argv, unusable = r.formatCommand(fmt.Sprintf("methods/sync/%s/%d", action, i), spec, args)
		if unusable == nil {
			break
		}
		if !engine.IsMissingProperty(unusable) {
			return 0, unusable
		}
		r.logger.Debug().Err(unusable).Str("action", action).Msg("Command arguments unresolved")
	}

	if unusable != nil {
		var (
			count int
			err   error
		)
		retry := func(heritage func(map[string]any) map[string]any) visitFunc {
			return func(ctx context.Context, obj map[string]any) error {
				narrowed := settings.MergeMaps(settings.CloneMap(filters), settings.Replace, heritage(obj))
				_, err := r.discover(ctx, action, narrowed, visit, "", force)
				return err
			}
		}

		switch {
		case fallback != "" && len(r.commands(fallback)) > 0:
			count, err = r.discover(ctx, fallback, filters, retry(props.Heritage), "", force)
		case parent != nil:
			count, err = parent.list(ctx, filters, retry(parent.Properties.Heritage), force)
		}
		if err != nil || count > 0 {
			return count, err
		}
		return 0, unusable
	}

	output, err := r.run(ctx, argv)
	if err != nil {
		return 0, err
	}
	if settings.IsEmpty(output) {
		r.logger.Info().Str("action", action).Msg("No objects found")
		return 0, nil
	}

	remote := props.Remote(args)
	heritage := map[string]any{}
	if parent != nil {
		heritage = parent.Properties.Heritage(args)
	}

	count := 0
	for _, obj := range boxed(output) {
		extracted, err := props.Extract(obj)
		if err != nil {
			return count, r.schemaError(err)
		}
		candidate := settings.MergeMaps(settings.CloneMap(heritage), settings.InPlace, extracted)

		materialized, err := props.Materialize(candidate, properties.MaterializeOptions{})
		if err != nil {
			return count, r.schemaError(err)
		}

		if len(remote) > 0 && !settings.Match(materialized, remote, true, false) {
			continue
		}

		if !force {
			ok, err := r.accepts(candidate)
			if err != nil {
				return count, err
			}
			if !ok {
				continue
			}
		}

		if parent != nil {
			pprops := parent.Properties
			key, err := pprops.PrimaryKey(materialized)
			if err != nil {
				return count, parent.schemaError(err)
			}
			if !key.Complete() {
				r.logger.Info().Strs("missing", key.Missing).Str("parent", parent.Name).
					Msg("Missing argument, resolving through parent")

				n, err := parent.list(ctx, pprops.Heritage(candidate), func(ctx context.Context, p map[string]any) error {
					return visit(ctx, settings.MergeMaps(pprops.Heritage(p), settings.Replace, candidate))
				}, force)
				count += n
				if err != nil {
					return count, err
				}
				if n > 0 {
					continue
				}
				return count, r.unresolvedKey(materialized, key.Missing).WithDetail("parent", parent.Name)
			}
		}

		if err := visit(ctx, candidate); err != nil {
			return count, err
		}
		count++
	}

	if count == 0 {
		if len(remote) > 0 {
			filter, _ := json.Marshal(remote)
			r.logger.Info().Str("action", action).Msgf("No matches for the given filter: %s", filter)
		} else {
			r.logger.Info().Str("action", action).Msgf("No matches for the given expression: %v", r.sync.when)
		}
	}
	return count, nil
}

// unresolvedKey reports the primary-key components of the resource that
// args leaves unresolved, or the parent's when the resource's own key
// is complete.
func (r *Resource) unresolvedKey(args map[string]any, parentMissing []string) *engine.EngineError {
	missing := parentMissing
	if key, err := r.Properties.PrimaryKey(args); err == nil && !key.Complete() {
		missing = key.Missing
	}
	return engine.NewRequiredArgumentError(missing).WithResource(r.Name)
}

// accepts applies the sync when condition, an expression or a mapping
// pattern, to the arguments of a discovered object.
func (r *Resource) accepts(args map[string]any) (bool, error) {
	switch when := r.sync.when.(type) {
	case nil:
		return true, nil
	case string:
		if when == "" {
			return true, nil
		}
		ok, err := expr.Test(r.graph.opts.Evaluator, when, args)
		if err != nil {
			return false, engine.NewConfigurationError(r.Name+"/methods/sync/when", err.Error()).WithResource(r.Name)
		}
		return ok, nil
	default:
		return settings.Match(args, when, false, false), nil
	}
}

func (r *Resource) formatCommand(key string, spec []string, args map[string]any) ([]string, error) {
	argv := make([]string, 0, len(spec))
	for i, arg := range spec {
		value, err := r.formatString(fmt.Sprintf("%s/%d", key, i), arg, args)
		if err != nil {
			return nil, err
		}
		argv = append(argv, value)
	}
	return argv, nil
}

// run executes a discovery command, serving a repeated command line from
// the cache.
func (r *Resource) run(ctx context.Context, argv []string) (any, error) {
	line := runner.Join(argv)
	if output, ok := r.cache.Get(line); ok {
		r.logger.Info().Msgf("$ %s (cached)", line)
		if r.graph.opts.Cache != nil {
			r.graph.opts.Cache.RecordCacheHit(r.Name)
		}
		return output, nil
	}

	r.logger.Info().Msgf("$ %s", line)
	result, err := r.graph.opts.Runner.Run(ctx, runner.Command{Args: argv})
	if err != nil {
		return nil, err
	}

	output, err := settings.Unmarshal(result.Stdout)
	if err != nil {
		return nil, engine.NewExternalProcessError(line, fmt.Errorf("unparsable output: %w", err)).WithResource(r.Name)
	}
	r.cache.Put(line, output)
	return output, nil
}
