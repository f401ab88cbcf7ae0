package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *CLI) configCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "toml":
				data, err = cfg.EncodeTOML()
			case "yaml":
				data, err = yaml.Marshal(cfg)
			default:
				return fmt.Errorf("unsupported format %q (want toml or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "toml", "output format: toml or yaml")
	return cmd
}
