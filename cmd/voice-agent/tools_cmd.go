package main

import (
	"encoding/json"
	"fmt"
	"io"

	"voice-agent/internal/industry"

	"github.com/spf13/cobra"
)

func newToolsCmd(root *rootArgs) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools of the active industry config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			return printTools(cmd.OutOrStdout(), store.Active(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tool specs as JSON")
	return cmd
}

func printTools(out io.Writer, cfg industry.Config, asJSON bool) error {
	specs := industry.ToolSpecs(cfg)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"tools": specs, "config": cfg.Summary()})
	}
	_, _ = fmt.Fprintf(out, "%s (%s)\n", cfg.Name, cfg.ID)
	for _, spec := range specs {
		_, _ = fmt.Fprintf(out, "  %-20s %s\n", spec.Name, spec.Description)
	}
	return nil
}
