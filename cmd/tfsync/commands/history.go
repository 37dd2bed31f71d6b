package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/tfsync/pkg/engine"
)

type historyFlags struct {
	limit      int
	jsonOutput bool
}

func newHistoryCommand(env *Env, flags *globalFlags, version string) *cobra.Command {
	opts := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history [RUN]",
		Short: "Show the journal of past runs",
		Long: `List the most recent runs recorded in the journal, newest first.

With RUN, list the objects the run created, updated, overwrote or imported.
The journal is enabled with journal.enabled in .tfsync/config.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, flags, version)
			if err != nil {
				return err
			}
			if !a.project.Journal.Enabled {
				return engine.NewConfigurationError("journal/enabled", "the journal is disabled")
			}

			journal, err := a.openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer journal.Close()

			if len(args) == 1 {
				return showRun(cmd.Context(), cmd.OutOrStdout(), journal, args[0], opts.jsonOutput)
			}
			return listRuns(cmd.Context(), cmd.OutOrStdout(), journal, opts.limit, opts.jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "number of runs to list, 0 for all")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func listRuns(ctx context.Context, w io.Writer, journal engine.Journal, limit int, jsonOutput bool) error {
	runs, err := journal.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, runs)
	}

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %-7s %-10s %-24s %d objects\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Command,
			run.Status,
			displayResource(run.Resource),
			run.Summary.Objects,
		)
	}
	return nil
}

func showRun(ctx context.Context, w io.Writer, journal engine.Journal, id string, jsonOutput bool) error {
	run, err := journal.GetRun(ctx, id)
	if err != nil {
		return err
	}
	changes, err := journal.ListChanges(ctx, run.ID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, map[string]any{"run": run, "changes": changes})
	}

	fmt.Fprintf(w, "run %s\n", run.ID)
	fmt.Fprintf(w, "command:  %s %s\n", run.Command, run.Resource)
	fmt.Fprintf(w, "status:   %s\n", run.Status)
	fmt.Fprintf(w, "started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "duration: %s\n", run.Duration.Round(time.Millisecond))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "error:    %s\n", run.Error)
	}
	fmt.Fprintln(w)

	for _, change := range changes {
		fmt.Fprintf(w, "%-11s %s %s:%s\n", change.Action, change.Resource, change.Source, change.Address)
	}
	return nil
}

func displayResource(name string) string {
	if name == "" {
		return "*"
	}
	return name
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
