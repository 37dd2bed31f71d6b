package telemetry

import (
	"context"
	"path/filepath"

	"github.com/openfroyo/tfsync/pkg/runner"
)

// InstrumentedRunner records a span and metrics around every command run
// by the wrapped runner.
type InstrumentedRunner struct {
	next runner.Runner
	tel  *Telemetry
}

// InstrumentRunner wraps r.
func InstrumentRunner(r runner.Runner, tel *Telemetry) *InstrumentedRunner {
	return &InstrumentedRunner{next: r, tel: tel}
}

// Run implements runner.Runner.
func (ir *InstrumentedRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	program := "unknown"
	if len(cmd.Args) > 0 {
		program = filepath.Base(cmd.Args[0])
	}

	ctx, span := ir.tel.Tracer.StartCommandSpan(ctx, program, cmd.String())
	defer span.End()

	timer := NewTimer()
	result, err := ir.next.Run(ctx, cmd)
	ir.tel.Metrics.RecordCommand(program, timer.Duration(), err)

	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	return result, err
}
