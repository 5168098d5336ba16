package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/gallery"
)

// galleryCommand creates the gallery command.
func (c *CLI) galleryCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "gallery [id]",
		Short: "List or print starter diagrams",
		Example: `  flowsketch gallery
  flowsketch gallery sequence -o login.mmd`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: gallery.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, t := range gallery.List() {
					fmt.Fprintln(stdout, styleKey.Render(t.ID)+" "+styleValue.Render(t.Title))
				}
				fmt.Fprintln(stdout)
				printNextStep("Print one", "flowsketch gallery <id>")
				return nil
			}
			t, err := gallery.Get(args[0])
			if err != nil {
				return err
			}
			return writeSource(output, t.Source)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the template to a file")

	return cmd
}
