package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/gateway"
)

// generateOpts holds the flags of the generate command.
type generateOpts struct {
	attach   string // sketch or document sent with the prompt
	category string // preferred diagram type
	source   string // current diagram to revise
	output   string // file to write the source to
}

// generateCommand creates the one-shot generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a diagram from a description",
		Long: `Ask the model for a diagram. The reply is cleaned and printed, or written with -o.
When the model answers with a question instead of a diagram, the question is printed.`,
		Example: `  flowsketch generate "user signup with email verification"
  flowsketch generate --attach whiteboard.jpg "clean up this sketch" -o flow.mmd
  flowsketch generate --source flow.mmd "add a retry loop after payment"
  flowsketch generate --category er "blog with posts, authors and tags"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.attach, "attach", "a", "", "image or PDF to send with the prompt")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "preferred diagram type: "+strings.Join(gateway.CategoryIDs(), ", "))
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "existing diagram to revise (- for stdin)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the diagram source to a file")

	cmd.RegisterFlagCompletionFunc("category", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return gateway.CategoryIDs(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, prompt string, opts generateOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	turn := gateway.Turn{Role: gateway.RoleUser, Text: prompt}
	if opts.attach != "" {
		data, err := readFile(opts.attach)
		if err != nil {
			return err
		}
		turn.Attachment = gateway.NewAttachment(opts.attach, data)
	}

	req := gateway.Request{
		Turns:    []gateway.Turn{turn},
		Category: opts.category,
		Locale:   c.Config.UI.Locale,
	}
	if opts.source != "" {
		src, err := readSource(cmd, opts.source)
		if err != nil {
			return err
		}
		req.CurrentSource = src
	}

	gw, err := c.newGateway(ctx)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spin := newSpinner(ctx, "Generating diagram...")
	spin.Start()
	res := gw.Generate(ctx, req)
	spin.Stop()
	prog.done("model replied")

	if !res.OK() {
		printError("%s", res.Content)
		return res.Err
	}
	if !res.IsDiagram() {
		printInfo("%s", res.Content)
		return nil
	}
	if err := writeSource(opts.output, res.Content); err != nil {
		return err
	}
	if opts.output != "" {
		printNextStep("Render it", "flowsketch render "+opts.output+" -f svg,png")
	}
	return nil
}
