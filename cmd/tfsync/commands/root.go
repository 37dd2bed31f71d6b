package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/openfroyo/tfsync/pkg/runner"
)

// Env is what the commands read from and write to. Execute uses the
// process environment; tests substitute a memory filesystem and a fake
// runner.
type Env struct {
	// FS is rooted at "/" and holds both the project and its storage.
	FS billy.Filesystem

	// Dir is the absolute working directory on FS.
	Dir string

	// Runner, when set, replaces the process runner.
	Runner runner.Runner

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// LogLevel overrides the configured log level when set.
	LogLevel string
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	verbose bool
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	env := &Env{
		FS:       osfs.New("/"),
		Dir:      dir,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	rootCmd := newRootCommand(env, version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(env *Env, version, commit, buildDate string) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "tfsync",
		Short: "tfsync - Terraform code reconciliation",
		Long: `tfsync generates and modifies Terraform code in JSON format.

Resources are described by YAML definitions under .tfsync/resources. Objects
are created and updated from PATH arguments or standard input, and synced
from the output of discovery commands run against the live infrastructure.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetIn(env.Stdin)
	rootCmd.SetOut(env.Stdout)
	rootCmd.SetErr(env.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newResourcesCommand(env, flags, version))
	rootCmd.AddCommand(newCreateCommand(env, flags, version))
	rootCmd.AddCommand(newUpdateCommand(env, flags, version))
	rootCmd.AddCommand(newSyncCommand(env, flags, version))
	rootCmd.AddCommand(newHistoryCommand(env, flags, version))
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}
