package enrichment

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/scraper/browser"
	"jobleads/pkg/models"
)

func TestEnrichBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	h := newHarness(t, func(jobID string) string {
		if jobID == "job-2" {
			return partnerHTML
		}
		return contactHTML
	})
	inner := h.visitor.NewPageFn
	h.visitor.NewPageFn = func(jobID string) (browser.Page, error) {
		if jobID == "job-4" {
			return nil, fmt.Errorf("%w: crashed", browser.ErrLaunchFailed)
		}
		return inner(jobID)
	}

	var delays atomic.Int32
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		if d == h.orch.cfg.BatchDelay {
			delays.Add(1)
		}
		return ctx.Err()
	}
	h.orch.cfg.BatchSize = 3
	h.orch.cfg.BatchDelay = time.Second

	jobs := make([]models.JobRecord, 7)
	for i := range jobs {
		jobs[i] = models.JobRecord{ID: fmt.Sprintf("job-%d", i)}
	}

	results, summary := h.orch.EnrichBatch(context.Background(), jobs)

	require.Len(t, results, 7)
	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, jobs[i].ID, r.Job.ID)
	}
	assert.Equal(t, models.EnrichmentFailed, results[4].Status)
	assert.Equal(t, models.TierMedium, results[2].Confidence)
	assert.Equal(t, models.TierVeryHigh, results[6].Confidence)

	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, 6, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.ByConfidence[models.TierVeryHigh])
	assert.Equal(t, int32(2), delays.Load())
}

func TestEnrichBatchCancelledBetweenGroups(t *testing.T) {
	h := newHarness(t, func(string) string { return contactHTML })
	h.orch.cfg.BatchSize = 2

	ctx, cancel := context.WithCancel(context.Background())
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		if d == h.orch.cfg.BatchDelay {
			cancel()
		}
		return ctx.Err()
	}
	h.orch.cfg.BatchDelay = time.Second

	jobs := []models.JobRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	results, summary := h.orch.EnrichBatch(ctx, jobs)

	require.Len(t, results, 4)
	assert.Equal(t, models.EnrichmentCompleted, results[0].Status)
	assert.Equal(t, models.EnrichmentCompleted, results[1].Status)
	assert.Equal(t, models.EnrichmentFailed, results[2].Status)
	assert.Equal(t, models.EnrichmentFailed, results[3].Status)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, h.visitor.VisitCount())
}

func TestEnrichBatchEmpty(t *testing.T) {
	h := newHarness(t, func(string) string { return contactHTML })

	results, summary := h.orch.EnrichBatch(context.Background(), nil)

	assert.Empty(t, results)
	assert.Equal(t, 0, summary.Total)
}
