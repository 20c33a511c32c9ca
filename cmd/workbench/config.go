package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/workbench/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Loads defaults, application.yaml, WORKBENCH_ environment variables and --set overrides, then prints the result as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, root, err := loadConfig(cmd.Context(), cmd, config.Options{})
		if err != nil {
			return err
		}
		defer mgr.Close()

		out, err := effective(root)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
