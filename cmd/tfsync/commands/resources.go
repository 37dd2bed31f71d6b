package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/resources"
	"github.com/openfroyo/tfsync/pkg/settings"
)

func newResourcesCommand(env *Env, flags *globalFlags, version string) *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "resources [RESOURCE]",
		Short: "List the available resources",
		Long: `List the available resources with their path and description.

With RESOURCE, print its merged definition. With --dot, print the
depends_on graph of every resource in Graphviz format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, flags, version)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				r, err := a.graph.Load(args[0])
				if err != nil {
					return err
				}
				return printDefinition(cmd.OutOrStdout(), r)
			}

			all, err := a.graph.LoadAll()
			if err != nil {
				return err
			}
			if dot {
				graph, err := engine.NewDependencyGraph(a.graph.Units())
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), graph.ToDOT())
				return err
			}
			listResources(cmd.OutOrStdout(), all)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "print the dependency graph in DOT format")

	return cmd
}

// listResources prints every public resource, sorted by name, with the
// first line of its description.
func listResources(w io.Writer, all []*resources.Resource) {
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	for _, r := range all {
		if strings.HasPrefix(r.Name, ".") {
			continue
		}
		fmt.Fprintln(w, r.Name, r.Path.String())

		description, _, _ := strings.Cut(r.Description, "\n")
		if description != "" {
			fmt.Fprintf(w, "  %s\n", description)
		}
		fmt.Fprintln(w)
	}
}

// printDefinition prints the definition of r preceded by its ancestry.
func printDefinition(w io.Writer, r *resources.Resource) error {
	var ancestry []string
	for current := r; current != nil; current = current.Parent() {
		ancestry = append([]string{strings.ReplaceAll(current.Name, "/", ":")}, ancestry...)
	}

	out, err := settings.Marshal("-.yaml", r.Definition.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "---\n# %s\n%s", strings.Join(ancestry, "/"), out)
	return err
}
