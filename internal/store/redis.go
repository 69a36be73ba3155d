package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/pkg/models"
)

// RedisSink stores results as JSON under prefix+jobID and indexes them by
// completion time in a sorted set
type RedisSink struct {
	client *redis.Client
	cfg    config.RedisConfig
	logger logging.Logger
}

// NewRedisSink creates a new Redis sink instance
func NewRedisSink(cfg config.RedisConfig, logger logging.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	return &RedisSink{
		client: redis.NewClient(opts),
		cfg:    cfg,
		logger: logger.WithField("component", "redis_sink"),
	}, nil
}

func (r *RedisSink) resultKey(jobID string) string {
	return r.cfg.KeyPrefix + "result:" + jobID
}

func (r *RedisSink) indexKey() string {
	return r.cfg.KeyPrefix + "index"
}

// Save writes the result and adds it to the completion index
func (r *RedisSink) Save(ctx context.Context, result *models.EnrichmentResult) error {
	if result == nil || result.Job.ID == "" {
		return fmt.Errorf("cannot store result without job id")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment result: %w", err)
	}

	completed := time.Now()
	if result.CompletedAt != nil {
		completed = *result.CompletedAt
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.resultKey(result.Job.ID), data, r.cfg.TTL)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(completed.Unix()), Member: result.Job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store enrichment result: %w", err)
	}

	r.logger.Debug("Stored enrichment result", map[string]interface{}{
		"job_id":     result.Job.ID,
		"confidence": string(result.Confidence),
	})
	return nil
}

// Get loads the stored result for jobID
func (r *RedisSink) Get(ctx context.Context, jobID string) (*models.EnrichmentResult, error) {
	data, err := r.client.Get(ctx, r.resultKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment result: %w", err)
	}

	var result models.EnrichmentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrichment result: %w", err)
	}
	return &result, nil
}

// Ping tests the Redis connection
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisSink) Close() error {
	return r.client.Close()
}
