package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

func (c *CLI) graphCommand() *cobra.Command {
	var (
		rendererName string
		svgPath      string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print a renderer's graph as DOT, or render it to SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			rendererType, err := config.ParseRendererType(rendererName)
			if err != nil {
				return err
			}

			logger := logging.FromContext(cmd.Context())
			ctx := config.NewContext(cfg, logger)
			d := device.NewHeadlessDevice(cfg.DeviceType(), device.WithLogger(logger))
			defer d.Release()

			r, err := renderer.NewRenderer(rendererType, d, ctx)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.BuildRenderGraph(); err != nil {
				return err
			}

			dot := rendergraph.ToDOT(r.RenderGraph())
			if svgPath == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}

			svg, err := rendergraph.RenderSVG(cmd.Context(), dot)
			if err != nil {
				return err
			}
			if err := os.WriteFile(svgPath, svg, 0o644); err != nil {
				return fmt.Errorf("write svg: %w", err)
			}
			logger.Info("wrote render graph", "path", svgPath, "nodes", r.RenderGraph().GetRenderNodeCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&rendererName, "renderer", "r", "standard", "renderer to inspect: standard or forward")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write an SVG rendering to this path instead of printing DOT")
	return cmd
}
