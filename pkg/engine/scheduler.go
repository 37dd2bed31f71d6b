package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Levels supplies the units nested directly under a parent resource. The
// top level is requested with an empty parent.
type Levels interface {
	Level(parent string) ([]Unit, error)
}

// Step executes one resource.
type Step func(ctx context.Context, name string) error

// IsInternal reports whether name designates an internal group, a
// resource that only nests other resources.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Scheduler executes resources in dependency order.
//
// The units of one level are held in a queue. The head runs once every
// dependency already ran, otherwise it goes back to the tail. A full pass
// over the queue without progress is a configuration error. Execution is
// sequential.
type Scheduler struct {
	levels Levels
	logger zerolog.Logger
}

// NewScheduler creates a scheduler over levels.
func NewScheduler(levels Levels, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		levels: levels,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run executes step for every resource nested under parent, recursing into
// internal groups, and returns how many resources succeeded.
//
// A failing resource does not stop its siblings; resources depending on it
// are skipped and every failure is returned joined. Configuration errors and
// cancellation stop the run immediately.
func (s *Scheduler) Run(ctx context.Context, parent string, step Step) (int, error) {
	units, err := s.levels.Level(parent)
	if err != nil {
		return 0, err
	}

	var (
		queue   = append([]Unit(nil), units...)
		done    = make(map[string]bool, len(units))
		failed  = make(map[string]bool)
		errs    []error
		count   int
		skipped int
	)

	fail := func(err error) (int, error) {
		return count, errors.Join(append(errs, err)...)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return fail(NewCancelledError(err))
		}

		unit := queue[0]
		queue = queue[1:]

		ready := true
		blockedBy := ""
		for _, dep := range unit.DependsOn {
			switch {
			case dep == unit.Name:
			case failed[dep]:
				blockedBy = dep
			case !done[dep]:
				ready = false
			}
			if !ready {
				break
			}
		}

		if !ready {
			if skipped < len(queue) {
				queue = append(queue, unit)
				skipped++
				continue
			}
			return fail(s.unsatisfiable(units, unit))
		}
		skipped = 0

		if blockedBy != "" {
			s.logger.Warn().
				Str("resource", unit.Name).
				Str("dependency", blockedBy).
				Msg("Skipping resource with failed dependency")
			failed[unit.Name] = true
			errs = append(errs, fmt.Errorf("%s: skipped, dependency %s failed", unit.Name, blockedBy))
			continue
		}

		if IsInternal(unit.Name) {
			n, err := s.Run(ctx, unit.Name, step)
			count += n
			if err != nil {
				if IsFatal(err) {
					return fail(err)
				}
				errs = append(errs, err)
			}
			done[unit.Name] = true
			continue
		}

		s.logger.Debug().Str("resource", unit.Name).Msg("Executing resource")
		if err := step(ctx, unit.Name); err != nil {
			if IsFatal(err) {
				return fail(err)
			}
			s.logger.Error().Err(err).Str("resource", unit.Name).Msg("Resource failed")
			failed[unit.Name] = true
			errs = append(errs, fmt.Errorf("%s: %w", unit.Name, err))
			continue
		}

		done[unit.Name] = true
		count++
	}

	return count, errors.Join(errs...)
}

func (s *Scheduler) unsatisfiable(units []Unit, unit Unit) error {
	err := NewConfigurationError(
		unit.Name+"/depends_on",
		fmt.Sprintf("unsatisfiable dependencies %v", unit.DependsOn),
	).WithResource(unit.Name).WithDetail("depends_on", unit.DependsOn)

	if graph, gerr := NewDependencyGraph(units); gerr == nil {
		if cycle := graph.Cycle(unit.Name); cycle != nil {
			err.Message = fmt.Sprintf("circular dependency detected: %s", formatCycle(cycle))
			err.WithDetail("cycle", cycle)
		}
	}
	return err
}
