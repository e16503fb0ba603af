// cmd/gmbh-wizard/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gmbh-wizard/internal/common/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gmbh-wizard",
	Short: "Web wizard producing the founding documents of a Swiss GmbH",
	Long: `gmbh-wizard walks a founder through consent, canton and personal
data, merges the registered Word templates, zips them and mails the archive.

Without a subcommand the web server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/config.yaml)")
	rootCmd.AddCommand(serveCmd, mergeCmd, registryCmd, healthcheckCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
