package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/internal/server"
	"github.com/matzehuels/flowsketch/pkg/gateway"
	"github.com/matzehuels/flowsketch/pkg/llm"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for browser front ends",
		Long: `Serve the flowsketch JSON API. Requests are stateless: each one carries the
conversation and the current diagram source. Stop with Ctrl+C.`,
		Example: `  flowsketch serve
  flowsketch serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	gw, err := c.newGateway(ctx)
	if err != nil {
		// Local operations still work; chat and fix answer with fallbacks.
		printWarning("No model provider: %v", err)
		gw = gateway.New(nil, c.Logger)
	}
	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	s := &server.Server{
		Gateway:      gw,
		Runner:       runner,
		Patcher:      c.newPatcher(),
		Logger:       c.Logger,
		Options:      c.pipelineOptions(c.newEnv("")),
		Locale:       c.Config.UI.Locale,
		MaxBodyBytes: c.Config.Server.MaxBodyBytes,
	}

	printInfo("Listening on http://%s", addr)
	if gw.Provider != nil {
		printDetail("provider: %s", llm.String(gw.Provider))
	}

	err = s.ListenAndServe(ctx, addr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
