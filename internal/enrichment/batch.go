package enrichment

import (
	"context"

	"golang.org/x/sync/errgroup"

	"jobleads/pkg/models"
)

// EnrichBatch enriches jobs in groups of BatchSize with BatchDelay between
// groups. Results keep the order of jobs; a failing job never stops the
// batch. When ctx ends between groups the remaining jobs are marked failed.
func (o *Orchestrator) EnrichBatch(ctx context.Context, jobs []models.JobRecord) ([]*models.EnrichmentResult, models.BatchSummary) {
	results := make([]*models.EnrichmentResult, len(jobs))

	for start := 0; start < len(jobs); start += o.cfg.BatchSize {
		if start > 0 {
			if err := o.sleep(ctx, o.cfg.BatchDelay); err != nil {
				for i := start; i < len(jobs); i++ {
					results[i] = models.NewEnrichmentResult(jobs[i])
					results[i].Fail(err)
				}
				break
			}
		}

		end := start + o.cfg.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = o.Enrich(ctx, jobs[i])
				return nil
			})
		}
		_ = g.Wait()

		o.logger.Debug("Batch group finished", map[string]interface{}{
			"from":  start,
			"to":    end,
			"total": len(jobs),
		})
	}

	summary := models.Summarize(results)
	o.logger.Info("Batch enrichment finished", map[string]interface{}{
		"total":         summary.Total,
		"completed":     summary.Completed,
		"failed":        summary.Failed,
		"by_confidence": summary.ByConfidence,
	})
	return results, summary
}
