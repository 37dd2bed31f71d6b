package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/properties"
	"github.com/openfroyo/tfsync/pkg/runner"
	"github.com/openfroyo/tfsync/pkg/settings"
)

func (r *Resource) terraformCommand(root, command string, args ...string) []string {
	argv := []string{r.graph.opts.Terraform.Binary}
	if root != "" {
		argv = append(argv, "-chdir="+root)
	}
	argv = append(argv, command)
	return append(argv, args...)
}

func (r *Resource) runTerraform(ctx context.Context, argv []string, passthrough bool) (*runner.Result, error) {
	r.logger.Info().Msgf("$ %s", runner.Join(argv))
	return r.graph.opts.Runner.Run(ctx, runner.Command{Args: argv, Passthrough: passthrough})
}

// Init initializes the terraform working directory root and records an
// empty state for it.
func (r *Resource) Init(ctx context.Context, root string) error {
	if _, err := r.runTerraform(ctx, r.terraformCommand(root, "init", "-input=false"), true); err != nil {
		return err
	}
	r.state.Set(root, nil)
	return nil
}

// Show reads the addresses managed in root from `terraform show -json` and
// records them in the state view.
func (r *Resource) Show(ctx context.Context, root string) ([]string, error) {
	argv := r.terraformCommand(root, "show", "-json", "-no-color")
	result, err := r.runTerraform(ctx, argv, false)
	if err != nil {
		return nil, err
	}

	data, err := settings.Unmarshal(result.Stdout)
	if err != nil {
		return nil, engine.NewExternalProcessError(runner.Join(argv), fmt.Errorf("unparsable output: %w", err)).
			WithResource(r.Name)
	}

	selector := r.showResources()
	var found any
	if strings.HasPrefix(selector, "$") {
		x, err := jp.ParseString(selector)
		if err != nil {
			return nil, engine.NewConfigurationError(r.Name+"/methods/terraform/show/resources",
				fmt.Sprintf("invalid jsonpath %q: %v", selector, err)).WithResource(r.Name)
		}
		found = x.Get(data)
	} else {
		found = settings.Get(data, selector, nil, true)
	}

	var addresses []string
	for _, value := range boxed(found) {
		addresses = append(addresses, settings.String(value))
	}
	r.state.Set(root, addresses)
	return addresses, nil
}

// showResources returns the path of the managed addresses in the show
// output. Resources nested in .tf.json modules look into child_modules
// once per module level.
func (r *Resource) showResources() string {
	if r.terraform.showResources != "" {
		return r.terraform.showResources
	}
	if r.graph.opts.Terraform.ShowResources != "" {
		return r.graph.opts.Terraform.ShowResources
	}

	parts := []string{"values/root_module"}
	for res := r; res.inModule(); res = res.Parent() {
		parts = append(parts, "child_modules")
	}
	return strings.Join(append(parts, "resources/address"), "/")
}

// inModule reports whether r is written into a .tf.json module of its
// parent.
func (r *Resource) inModule() bool {
	return r.Parent() != nil && strings.HasSuffix(r.Module.File, moduleSuffix)
}

// Import imports the object described by args into the terraform state of
// root and returns its id. Resources without an import id are skipped;
// addresses already managed are not imported again.
func (r *Resource) Import(ctx context.Context, root string, args map[string]any) (string, error) {
	if r.terraform.importID == "" {
		return "", nil
	}

	address, err := r.importAddress(args)
	if err != nil {
		return "", err
	}
	id, err := r.formatString("methods/terraform/import/id", r.terraform.importID, args)
	if err != nil {
		return "", err
	}

	if r.state.Contains(root, address) {
		r.logger.Info().Str("address", address).Msgf("Already managing a remote object for %s", address)
		return id, nil
	}

	if _, err := r.runTerraform(ctx, r.terraformCommand(root, "import", "-input=false", address, id), true); err != nil {
		return "", err
	}
	r.state.Add(root, address)

	if err := r.record(ctx, root, address, engine.ActionImported); err != nil {
		return "", err
	}
	return id, nil
}

// importAddress renders the terraform address of the object. Without an
// explicit template it is derived from a resource/<type>/<name> storage
// address; resources inside .tf.json modules are prefixed with their
// module instances, outermost first.
func (r *Resource) importAddress(args map[string]any) (string, error) {
	spec := r.terraform.importAddress
	if spec == "" && strings.HasPrefix(r.Address, "resource/") {
		if parts := strings.Split(r.Address, "/"); len(parts) >= 3 {
			spec = parts[1] + "." + parts[2]
		}
	}
	if spec == "" {
		return "", engine.NewConfigurationError(r.Name+"/methods/terraform/import/address", "no address to import into").
			WithResource(r.Name)
	}

	address, err := r.formatString("methods/terraform/import/address", spec, args)
	if err != nil {
		return "", err
	}

	for res := r; res.inModule(); res = res.Parent() {
		name, err := res.Module.instanceName(res, args)
		if err != nil {
			return "", err
		}
		address = "module." + name + "." + address
	}
	return address, nil
}

// importObject imports the object described by args, initializing and
// reading the state of its root first when needed.
func (r *Resource) importObject(ctx context.Context, args map[string]any, opts RunOptions) error {
	root, err := r.formatString("root", r.Root, args)
	if err != nil {
		return err
	}

	if !r.state.Has(root) {
		if err := r.Init(ctx, root); err != nil {
			return err
		}
		if _, err := r.Show(ctx, root); err != nil {
			return err
		}
	}

	if _, err := r.Import(ctx, root, args); err != nil {
		return err
	}
	return r.trigger(ctx, engine.EventImport, args, RunOptions{Overwrite: opts.Overwrite, DryRun: opts.DryRun})
}

// rootFor materializes args and renders the terraform root.
func (r *Resource) rootFor(args map[string]any) (string, map[string]any, error) {
	materialized, err := r.Properties.Materialize(args, properties.MaterializeOptions{Defaults: true, Slugs: true})
	if err != nil {
		return "", nil, r.schemaError(err)
	}
	root, err := r.formatString("root", r.Root, materialized)
	if err != nil {
		return "", nil, err
	}
	return root, materialized, nil
}
