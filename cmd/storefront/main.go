package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"StoreFront/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Catalog, cart and course progress service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "storefront.yaml", "YAML config file (missing file means defaults)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(browseCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}
