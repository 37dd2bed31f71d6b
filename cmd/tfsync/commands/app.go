package commands

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openfroyo/tfsync/pkg/config"
	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/resources"
	"github.com/openfroyo/tfsync/pkg/runner"
	"github.com/openfroyo/tfsync/pkg/stores"
	"github.com/openfroyo/tfsync/pkg/telemetry"
)

// app is the state of one invocation: the project, its telemetry, the
// resource graph and the run being executed.
type app struct {
	env     *Env
	layout  *config.Layout
	project *config.Project
	tel     *telemetry.Telemetry
	graph   *resources.Graph
	journal *stores.SQLiteStore
	run     *engine.Run
	logger  zerolog.Logger
}

// newApp discovers the project enclosing the working directory and wires
// the resource graph to it.
func newApp(env *Env, flags *globalFlags, version string) (*app, error) {
	layout, err := config.Discover(env.FS, env.Dir)
	if err != nil {
		return nil, err
	}

	schemas := config.NewSchemaRegistry()
	project, err := config.Load(env.FS, layout, schemas)
	if err != nil {
		return nil, err
	}

	if version == "" {
		version = "dev"
	}
	cfg := project.Telemetry(version)
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if flags.verbose {
		cfg.Logging.Level = "debug"
	}
	tel, err := telemetry.NewTelemetryTo(env.Stderr, cfg)
	if err != nil {
		return nil, err
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}

	evaluator, err := expr.New(expr.Engine(project.Expressions))
	if err != nil {
		return nil, engine.NewConfigurationError("expressions", err.Error())
	}

	a := &app{
		env:     env,
		layout:  layout,
		project: project,
		tel:     tel,
		logger:  tel.Logger.Zerolog(),
		run: &engine.Run{
			ID:        uuid.New().String(),
			Status:    engine.RunStatusRunning,
			StartedAt: time.Now(),
		},
	}

	var exec runner.Runner = env.Runner
	if exec == nil {
		exec = runner.New(runner.Options{
			Timeout: project.Timeout,
			Stdout:  env.Stdout,
			Stderr:  env.Stderr,
			Logger:  tel.Logger.NewComponentLogger("runner").Zerolog(),
		})
	}

	storage, err := env.FS.Chroot(layout.Root)
	if err != nil {
		return nil, err
	}

	events := tel.Events.Recorder(a.run.ID)
	a.graph = resources.NewGraph(resources.Options{
		Definitions: env.FS,
		SearchPaths: layout.SearchPaths,
		Storage:     storage,
		Evaluator:   evaluator,
		Runner:      telemetry.InstrumentRunner(exec, tel),
		Terraform: resources.TerraformOptions{
			Binary:        project.Terraform.Binary,
			ShowResources: project.Terraform.ShowResources,
		},
		Validator: schemas,
		Recorder: engine.RecorderFunc(func(ctx context.Context, resource, source, address string, action engine.Action) error {
			a.run.Summary.Record(action)
			return events.Record(ctx, resource, source, address, action)
		}),
		Cache: tel.Metrics,
		WrapStep: func(op engine.OperationType, step engine.Step) engine.Step {
			return telemetry.InstrumentStep(a.run.ID, op, step)
		},
		Out:    env.Stdout,
		Logger: a.logger,
	})

	return a, nil
}

// journalPath returns the location of the journal database.
func (a *app) journalPath() string {
	if path.IsAbs(a.project.Journal.Path) {
		return a.project.Journal.Path
	}
	return path.Join(a.layout.ConfigDir(), a.project.Journal.Path)
}

func (a *app) openJournal(ctx context.Context) (*stores.SQLiteStore, error) {
	return stores.Open(ctx, stores.Config{Path: a.journalPath()})
}

// begin starts the run of op on resource, journaling it when enabled.
func (a *app) begin(ctx context.Context, op engine.OperationType, resource string) (context.Context, error) {
	a.run.Command = op
	a.run.Resource = resource

	if a.project.Journal.Enabled {
		journal, err := a.openJournal(ctx)
		if err != nil {
			return ctx, err
		}
		if err := journal.SaveRun(ctx, a.run); err != nil {
			_ = journal.Close()
			return ctx, err
		}
		a.tel.Events.Subscribe(journal.Subscriber(), telemetry.FilterByType(telemetry.EventTypeObjectReconciled))
		a.journal = journal
	}

	ctx = a.tel.WithContext(ctx)
	return telemetry.StartRun(ctx, a.run), nil
}

// finish completes the run with err and flushes telemetry. It returns err.
func (a *app) finish(ctx context.Context, err error) error {
	if err == nil && ctx.Err() != nil {
		err = engine.NewCancelledError(ctx.Err())
	}

	a.run.Complete(err)
	telemetry.EndRun(ctx, a.run, err)

	// The run is saved even when the command was interrupted.
	ctx = context.WithoutCancel(ctx)
	if a.journal != nil {
		if serr := a.journal.SaveRun(ctx, a.run); serr != nil {
			a.logger.Warn().Err(serr).Msg("Failed to journal run")
		}
		if cerr := a.journal.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("Failed to close journal")
		}
	}
	if serr := a.tel.Shutdown(ctx); serr != nil {
		a.logger.Warn().Err(serr).Msg("Failed to flush telemetry")
	}

	a.tel.Logger.WithRunID(a.run.ID).WithFields(map[string]interface{}{
		"status":    string(a.run.Status),
		"resources": a.run.Summary.Resources,
		"objects":   a.run.Summary.Objects,
		"duration":  a.run.Duration.String(),
	}).Debug("Run completed")

	return err
}
