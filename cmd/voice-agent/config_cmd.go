package main

import (
	"fmt"
	"io"

	"voice-agent/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config (file, env and -c overrides) as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Write settings to the config file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Update(root.configPath, args)
			if err != nil {
				return err
			}
			log.Infof("config updated path=%s keys=%d", cfg.Source, len(args))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", cfg.Source)
			return nil
		},
	})
	return cmd
}

func printConfig(out io.Writer, cfg config.Config) error {
	if cfg.APIKey != "" {
		cfg.APIKey = maskKey(cfg.APIKey)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "# %s\n", cfg.Source)
	_, err = out.Write(data)
	return err
}

// maskKey 只保留末尾四位。
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
