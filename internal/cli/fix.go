package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/render"
)

// fixCommand creates the fix command.
func (c *CLI) fixCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Repair a diagram that does not render",
		Long: `Render the diagram and, if the renderer reports a syntax error, send the source
and the diagnostic to the model for a minimal fix. The fixed source is checked again
before it is written.`,
		Example: `  flowsketch fix flow.mmd -o flow.mmd
  cat flow.mmd | flowsketch fix -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFix(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the fixed source to a file")

	return cmd
}

func (c *CLI) runFix(cmd *cobra.Command, input, output string) error {
	ctx := cmd.Context()

	source, err := readSource(cmd, input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()
	opts := c.pipelineOptions(c.newEnv(""))

	_, err = runner.Render(ctx, source, opts)
	if err == nil {
		printSuccess("Diagram renders, nothing to fix")
		return nil
	}
	syn, ok := render.AsSyntaxError(err)
	if !ok {
		return err
	}
	printWarning("%s", syn)

	gw, err := c.newGateway(ctx)
	if err != nil {
		return err
	}

	spin := newSpinner(ctx, "Asking for a fix...")
	spin.Start()
	res := gw.Fix(ctx, source, syn.Diagnostic, c.Config.UI.Locale)
	spin.Stop()
	if !res.IsDiagram() {
		printError("%s", res.Content)
		return res.Err
	}

	if _, err := runner.Render(ctx, res.Content, opts); err != nil {
		if still, ok := render.AsSyntaxError(err); ok {
			printWarning("The fix still does not render: %s", still.Diagnostic)
		} else {
			return err
		}
	} else {
		printSuccess("Fixed diagram renders")
	}
	return writeSource(output, res.Content)
}
