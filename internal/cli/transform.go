package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/errors"
)

// cleanCommand creates the clean command.
func (c *CLI) cleanCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Strip code fences and normalize legacy keywords",
		Long: `Clean model output: remove surrounding Markdown code fences and rewrite a leading
"graph" keyword to "flowchart". Cleaning is idempotent.`,
		Example: `  pbpaste | flowsketch clean - | pbcopy
  flowsketch clean reply.md -o flow.mmd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			return writeSource(output, diagram.Clean(source))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file")

	return cmd
}

// recolorOpts holds the flags of the recolor command.
type recolorOpts struct {
	primary string
	text    string
	line    string
	replace []string
	output  string
	inPlace bool
	splice  bool
}

// recolorCommand creates the recolor command.
func (c *CLI) recolorCommand() *cobra.Command {
	var opts recolorOpts

	cmd := &cobra.Command{
		Use:   "recolor <file>",
		Short: "Change diagram colours without asking the model",
		Long: `Set theme variables in the diagram's init directive and replace literal colours.
A directive is added when the diagram has none. Literal replacements apply to the
whole source, directive included.`,
		Example: `  flowsketch recolor flow.mmd --primary '#ffe4b5' --line '#8b4513'
  flowsketch recolor flow.mmd --replace '#f9f=#ffc0cb' -i`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRecolor(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.primary, "primary", "", "node fill colour (primaryColor)")
	cmd.Flags().StringVar(&opts.text, "text", "", "node text colour (primaryTextColor)")
	cmd.Flags().StringVar(&opts.line, "line", "", "edge colour (lineColor)")
	cmd.Flags().StringArrayVarP(&opts.replace, "replace", "r", nil, "replace a literal colour, old=new (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a file")
	cmd.Flags().BoolVarP(&opts.inPlace, "in-place", "i", false, "overwrite the input file")
	cmd.Flags().BoolVar(&opts.splice, "splice-malformed", false, "replace an unparseable directive in place instead of keeping it")

	return cmd
}

// args converts the flags to recolour arguments.
func (o recolorOpts) args() []string {
	var args []string
	if o.primary != "" {
		args = append(args, "primary="+o.primary)
	}
	if o.text != "" {
		args = append(args, "text="+o.text)
	}
	if o.line != "" {
		args = append(args, "line="+o.line)
	}
	return append(args, o.replace...)
}

func (c *CLI) runRecolor(cmd *cobra.Command, input string, opts recolorOpts) error {
	if opts.inPlace {
		if input == stdinName {
			return errors.New(errors.ErrCodeInvalidInput, "--in-place needs a file, not stdin")
		}
		opts.output = input
	}

	r, err := diagram.ParseRecolorArgs(opts.args())
	if err != nil {
		return err
	}
	if r.Empty() {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to change: pass --primary, --text, --line or --replace")
	}

	source, err := readSource(cmd, input)
	if err != nil {
		return err
	}

	p := c.newPatcher()
	p.SpliceMalformed = p.SpliceMalformed || opts.splice
	return writeSource(opts.output, p.Apply(source, r))
}

// colorsCommand creates the colors command.
func (c *CLI) colorsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "colors <file>",
		Short: "Show a diagram's theme and colours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			palette := diagram.ReadPalette(source)
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(palette)
			}
			fmt.Fprint(stdout, palette.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
