package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"jobleads/internal/app"
	"jobleads/internal/logging"
	"jobleads/pkg/models"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a JSON file of job records",
	Long:  "Reads a JSON array of job records, enriches them in paced batches and writes the results with a summary.",
	RunE:  runEnrich,
}

var (
	enrichInput  string
	enrichOutput string
)

func init() {
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "Path to a JSON array of job records (required)")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "Path to write results to (default: stdout)")

	if err := enrichCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(enrichCmd)
}

// enrichOutputFile is what the enrich command writes
type enrichOutputFile struct {
	Summary models.BatchSummary        `json:"summary"`
	Results []*models.EnrichmentResult `json:"results"`
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	jobs, err := readJobs(enrichInput)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.CloseLogging()

	application, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, summary := application.Orchestrator.EnrichBatch(ctx, jobs)

	out := cmd.OutOrStdout()
	if enrichOutput != "" {
		if dir := filepath.Dir(enrichOutput); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", dir, err)
			}
		}
		f, err := os.Create(enrichOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", enrichOutput, err)
		}
		defer f.Close()
		out = f
	}

	if err := writeResults(out, results, summary); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Enriched %d jobs: %d completed, %d failed\n",
		summary.Total, summary.Completed, summary.Failed)
	return nil
}

// readJobs loads and validates a JSON array of job records
func readJobs(path string) ([]models.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file %s: %w", path, err)
	}

	var jobs []models.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", path, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("jobs file %s contains no jobs", path)
	}

	validate := validator.New()
	for i := range jobs {
		if err := validate.Struct(&jobs[i]); err != nil {
			return nil, fmt.Errorf("job %d is invalid: %w", i, err)
		}
	}
	return jobs, nil
}

func writeResults(w io.Writer, results []*models.EnrichmentResult, summary models.BatchSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(enrichOutputFile{Summary: summary, Results: results}); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
