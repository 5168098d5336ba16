package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/env"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string  // output file, base path for several formats, or - for stdout
	formats    string  // comma-separated export formats
	scale      float64 // PNG upscale factor
	theme      string  // Mermaid base theme
	background string  // CSS background colour
	refresh    bool    // bypass the cache
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a diagram to SVG, PNG or PDF",
		Long: `Render Mermaid or Graphviz source and export it. Without -o, files are saved to the
output directory as diagram-YYYYMMDD-HHMMSS.<ext>. PNG export needs rsvg-convert; PDF
pages embed the PNG centred on A4.`,
		Example: `  flowsketch render flow.mmd
  flowsketch render flow.mmd -f svg,png,pdf --scale 3
  flowsketch render deps.dot -f png -o deps.png
  flowsketch render flow.mmd -o - > flow.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, base path for several formats, or - for stdout")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "svg", "export formats: svg, png, pdf (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG scale factor (default from config, 2)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Mermaid theme: "+strings.Join(render.Themes, ", ")+" (default follows the terminal)")
	cmd.Flags().StringVar(&opts.background, "background", "", "background colour or transparent")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached renders")

	cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"svg", "png", "pdf"}, cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("theme", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return render.Themes, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	formats, err := render.ParseFormats(opts.formats)
	if err != nil {
		return err
	}
	if opts.output == stdinName {
		if len(formats) > 1 {
			return errors.New(errors.ErrCodeInvalidInput, "-o - writes a single format, got %d", len(formats))
		}
		if formats[0].Binary() && isTerminal(stdout) {
			return errors.New(errors.ErrCodeInvalidInput, "refusing to write %s to a terminal; redirect the output or use -o <file>", formats[0])
		}
	}

	source, err := readSource(cmd, input)
	if err != nil {
		return err
	}

	host := c.newEnv("")
	po := c.pipelineOptions(host)
	po.Formats = formats
	po.Refresh = opts.refresh
	if opts.theme != "" {
		po.Theme = opts.theme
	}
	if opts.background != "" {
		po.Background = opts.background
	}
	if opts.scale != 0 {
		po.Scale = opts.scale
	}
	if err := po.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spin := newSpinner(ctx, "Rendering...")
	spin.Start()
	res, err := runner.Execute(ctx, source, po)
	spin.Stop()
	if err != nil {
		if syn, ok := render.AsSyntaxError(err); ok {
			printError("%s", syn)
			if input != stdinName {
				printNextStep("Ask the model to repair it", "flowsketch fix "+input+" -o "+input)
			}
		}
		return err
	}
	prog.done("rendered " + strings.Join(formatNames(formats), ","))

	if opts.output == stdinName {
		_, err := stdout.Write(res.Artifacts[0].Data)
		return err
	}

	printSuccess("Rendered %s", input)
	printCacheStatus(res.Engine, res.CacheInfo.RenderHit)
	for _, a := range res.Artifacts {
		path, err := saveArtifact(host, a, opts.output, len(res.Artifacts))
		if err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// saveArtifact writes a to output, or to output with a's extension when
// several formats share one base path. Without output the host saves it under
// its generated name.
func saveArtifact(host env.Environment, a render.Artifact, output string, count int) (string, error) {
	if output == "" {
		return host.SaveFile(a.Data, a.Filename, a.MIMEType)
	}
	path := output
	if count > 1 {
		path = strings.TrimSuffix(output, filepath.Ext(output)) + "." + string(a.Format)
	}
	return path, writeFile(path, a.Data)
}

func formatNames(fs []render.Format) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return names
}
