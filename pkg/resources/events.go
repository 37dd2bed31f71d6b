package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/settings"
)

// trigger runs the handlers of event. Handlers live under
// events.on<event>.<command>.<resource> as one item or a list of items
// with optional when, unset, args and options keys.
//
// A target starting with a dot receives the full arguments; any other
// target receives their heritage.
func (r *Resource) trigger(ctx context.Context, event engine.Event, args map[string]any, opts RunOptions) error {
	key := event.Key()
	handlers, _ := r.events.Data[key].(map[string]any)

	for _, command := range r.events.Keys(key) {
		op, err := engine.ParseOperation(command)
		if err != nil {
			return engine.NewConfigurationError(r.Name+"/events/"+key, fmt.Sprintf("no command named %q", command)).
				WithResource(r.Name)
		}

		targets, _ := handlers[command].(map[string]any)
		for _, name := range r.events.Keys(key + "/" + command) {
			scope := settings.CloneMap(args)
			items := boxed(targets[name])
			if len(items) == 0 {
				items = []any{nil}
			}

			for i, item := range items {
				at := fmt.Sprintf("%s/events/%s/%s/%s/%d", r.Name, key, command, name, i)
				handler, ok := item.(map[string]any)
				if !ok && item != nil {
					return engine.NewConfigurationError(at, fmt.Sprintf("expected a mapping, got %T", item)).WithResource(r.Name)
				}

				if when, _ := handler["when"].(string); when != "" {
					ok, err := expr.Test(r.graph.opts.Evaluator, when, args)
					if err != nil {
						return engine.NewConfigurationError(at+"/when", err.Error()).WithResource(r.Name)
					}
					if !ok {
						continue
					}
				}

				if err := r.unset(scope, handler["unset"], args, at); err != nil {
					return err
				}

				extra, _ := handler["args"].(map[string]any)
				if strings.HasPrefix(name, ".") {
					scope = settings.MergeMaps(scope, settings.Replace, extra)
				} else {
					scope = settings.MergeMaps(r.Properties.Heritage(scope), settings.Replace, extra)
				}

				target, err := r.graph.Load(name)
				if err != nil {
					return err
				}

				options, err := opts.With(handler["options"])
				if err != nil {
					return engine.NewConfigurationError(at+"/options", err.Error()).WithResource(r.Name)
				}

				r.logger.Debug().Str("event", string(event)).Str("target", name).Str("command", command).Msg("Triggering event handler")
				if err := target.Run(ctx, op, settings.CloneMap(scope), options); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// unset removes keys from scope. Each rule is a key or a {key, when}
// mapping whose condition is evaluated against args.
func (r *Resource) unset(scope map[string]any, rules any, args map[string]any, at string) error {
	for _, rule := range boxed(rules) {
		switch v := rule.(type) {
		case string:
			settings.Pop(scope, v, nil, false)
		case map[string]any:
			key, _ := v["key"].(string)
			if when, _ := v["when"].(string); when != "" {
				ok, err := expr.Test(r.graph.opts.Evaluator, when, args)
				if err != nil {
					return engine.NewConfigurationError(at+"/unset", err.Error()).WithResource(r.Name)
				}
				if !ok {
					continue
				}
			}
			settings.Pop(scope, key, nil, false)
		}
	}
	return nil
}

// boxed wraps a single value in a list.
func boxed(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	}
	return []any{value}
}
