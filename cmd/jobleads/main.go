// Package main implements the jobleads command line tool for enriching job
// records outside the HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "jobleads",
	Short:        "Find contact details for job postings",
	Long:         "jobleads visits job-detail pages, clears consent walls and image challenges, and extracts the employer's email, phone or application link.",
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")
}

// loadConfig loads the configuration and starts logging
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logging.InitializeLogging(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, logging.GetGlobalLogger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
