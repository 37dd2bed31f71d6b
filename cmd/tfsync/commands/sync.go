package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/resources"
	"github.com/openfroyo/tfsync/pkg/settings"
)

type syncFlags struct {
	recursive bool
	force     bool
	imports   bool
	dryRun    bool
}

func newSyncCommand(env *Env, flags *globalFlags, version string) *cobra.Command {
	opts := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync [RESOURCE|-] [PATH...|-]",
		Short: "Copy the live infrastructure into Terraform code",
		Long: `Copy changes to the infrastructure into Terraform code.

Without RESOURCE, every top level resource is synced in dependency order.

When RESOURCE or PATH is -, the infrastructure is filtered by the documents
read from stdin and only matching objects are copied. JSON and YAML are
supported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), env, flags, version, args, resources.RunOptions{
				Recursive: opts.recursive,
				Force:     opts.force,
				Import:    opts.imports,
				DryRun:    opts.dryRun,
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "sync the child resources of every object")
	cmd.Flags().BoolVar(&opts.force, "force", false, "ignore the when filter of the sync configuration")
	cmd.Flags().BoolVar(&opts.imports, "import", false, "import the objects into the terraform state")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only print the objects that would be saved")

	return cmd
}

func runSync(ctx context.Context, env *Env, flags *globalFlags, version string, args []string, opts resources.RunOptions) error {
	a, err := newApp(env, flags, version)
	if err != nil {
		return err
	}

	var (
		r       *resources.Resource
		filters []map[string]any
	)
	switch {
	case len(args) == 1 && args[0] == "-":
		if filters, err = readDocuments(env.Stdin); err != nil {
			return err
		}
	case len(args) > 0:
		if r, err = a.graph.Load(args[0]); err != nil {
			return err
		}
		if filters, err = readArgs(r.Path, args[1:], env.Stdin); err != nil {
			return err
		}
	}
	if len(filters) == 0 {
		filters = []map[string]any{nil}
	}

	name := ""
	if r != nil {
		name = r.Name
	}
	ctx, err = a.begin(ctx, engine.OperationSync, name)
	if err != nil {
		return err
	}

	for _, filter := range filters {
		if r != nil {
			a.run.Summary.Resources++
			if _, err = r.Sync(ctx, filter, opts); err != nil {
				break
			}
			continue
		}

		var n int
		n, err = a.graph.Each(ctx, "", engine.OperationSync, func(ctx context.Context, r *resources.Resource) error {
			_, err := r.Sync(ctx, settings.CloneMap(filter), opts)
			return err
		})
		a.run.Summary.Resources += n
		if err != nil {
			break
		}
	}
	return a.finish(ctx, err)
}
