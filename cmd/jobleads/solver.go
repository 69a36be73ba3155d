package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jobleads/internal/logging"
	"jobleads/internal/scraper/captcha"
)

var solverCmd = &cobra.Command{
	Use:   "solver",
	Short: "Inspect the challenge solving service",
}

var solverBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the remaining 2captcha balance",
	RunE:  runSolverBalance,
}

func init() {
	solverCmd.AddCommand(solverBalanceCmd)
	rootCmd.AddCommand(solverCmd)
}

func runSolverBalance(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.CloseLogging()

	if cfg.Challenge.APIKey == "" {
		return fmt.Errorf("no 2captcha API key configured: set CAPTCHA_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balance, err := captcha.NewTwoCaptchaSolver(cfg.Challenge, logger).Balance(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "2captcha balance: %.4f USD\n", balance)
	return nil
}
