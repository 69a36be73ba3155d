// Package store persists enrichment results for downstream consumers.
package store

import (
	"context"
	"errors"

	"jobleads/pkg/models"
)

// ErrNotFound is returned by Get when no result is stored for a job
var ErrNotFound = errors.New("store: result not found")

// Sink receives finished enrichment results
type Sink interface {
	Save(ctx context.Context, result *models.EnrichmentResult) error
	Get(ctx context.Context, jobID string) (*models.EnrichmentResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// NopSink drops everything; used when no store is configured
type NopSink struct{}

func (NopSink) Save(context.Context, *models.EnrichmentResult) error { return nil }

func (NopSink) Get(context.Context, string) (*models.EnrichmentResult, error) {
	return nil, ErrNotFound
}

func (NopSink) Ping(context.Context) error { return nil }

func (NopSink) Close() error { return nil }
