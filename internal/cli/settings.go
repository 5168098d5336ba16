package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/config"
)

// configCommand creates the config inspection command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.flags.configPath
			if path == "" {
				p, err := config.Path()
				if err != nil {
					return err
				}
				path = p
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML, secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Config.Redacted().Encode(stdout)
		},
	})

	return cmd
}
