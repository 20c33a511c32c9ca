package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Workbench boots a modular client and runs its contributions",
	Long: `Workbench connects to its peer (direct, native host or web socket), starts every
registered contribution and negotiates a safe shutdown when the window closes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", "configs", "Directory containing application.yaml")
	rootCmd.PersistentFlags().String("profile", "", "Profile overlay, loads application.<profile>.yaml")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a config value, e.g. --set host.kind=native")
}
