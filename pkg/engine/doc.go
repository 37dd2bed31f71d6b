// Package engine provides the error taxonomy, run bookkeeping types and the
// dependency-ordered scheduler shared by the tfsync components.
//
// # Errors
//
// Every failure surfaced to the user is an *EngineError classified by
// ErrorKind. Callers test the kind with the Is* predicates, which see
// through wrapping and errors.Join:
//
//	if engine.IsRequiredArgument(err) {
//	    // fall back to the parent resource
//	}
//
// Configuration errors and cancellation are fatal for a whole run (IsFatal);
// any other error only fails the resource it occurred in.
//
// # Scheduling
//
// Scheduler walks the resources of one nesting level in dependency order:
//
//	s := engine.NewScheduler(graph, logger)
//	count, err := s.Run(ctx, "", func(ctx context.Context, name string) error {
//	    return graph.Sync(ctx, name)
//	})
//
// Resources whose name starts with "." are internal groups; the scheduler
// recurses into the resources nested under them. DependencyGraph renders
// the same depends_on edges as levels or DOT and names cycles in errors.
package engine
