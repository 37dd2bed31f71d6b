package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/resources"
)

type updateFlags struct {
	dryRun    bool
	overwrite bool
}

func newCreateCommand(env *Env, flags *globalFlags, version string) *cobra.Command {
	opts := &updateFlags{}

	cmd := &cobra.Command{
		Use:   "create RESOURCE [PATH...|-]",
		Short: "Create objects",
		Long: `Create an object for every PATH.

PATH is the virtual path of the object, bound to the path variables of
RESOURCE. When PATH is -, object properties are read from stdin.

Creating an object that already exists fails, unless --overwrite is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), env, flags, version, engine.OperationCreate, args[0], args[1:], resources.RunOptions{
				DryRun:    opts.dryRun,
				Overwrite: opts.overwrite,
			})
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only print the objects that would be saved")
	cmd.Flags().BoolVarP(&opts.overwrite, "overwrite", "o", false, "overwrite the object if it exists")

	return cmd
}

func newUpdateCommand(env *Env, flags *globalFlags, version string) *cobra.Command {
	opts := &updateFlags{}

	cmd := &cobra.Command{
		Use:   "update RESOURCE [PATH...|-]",
		Short: "Update objects",
		Long: `Update the object of every PATH, creating it if it does not exist.

PATH is the virtual path of the object, bound to the path variables of
RESOURCE. When PATH is -, object properties are read from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), env, flags, version, engine.OperationUpdate, args[0], args[1:], resources.RunOptions{
				DryRun: opts.dryRun,
			})
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only print the objects that would be saved")

	return cmd
}

// runUpdate runs op, create or update, on resource once per object read
// from paths.
func runUpdate(ctx context.Context, env *Env, flags *globalFlags, version string, op engine.OperationType, name string, paths []string, opts resources.RunOptions) error {
	a, err := newApp(env, flags, version)
	if err != nil {
		return err
	}

	r, err := a.graph.Load(name)
	if err != nil {
		return err
	}

	objects, err := readArgs(r.Path, paths, env.Stdin)
	if err != nil {
		return err
	}

	ctx, err = a.begin(ctx, op, r.Name)
	if err != nil {
		return err
	}

	a.run.Summary.Resources = 1
	for _, args := range objects {
		if err = r.Run(ctx, op, args, opts); err != nil {
			break
		}
	}
	return a.finish(ctx, err)
}
