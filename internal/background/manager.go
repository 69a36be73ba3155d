// Package background runs batch enrichments asynchronously on a small worker
// pool and keeps their state for polling.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/pkg/models"
	"jobleads/pkg/utils"
)

// Task manager configuration constants
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 50

	MaxWorkers   = 64
	MaxQueueSize = 10000
)

// BatchEnricher enriches a batch of jobs; implemented by enrichment.Orchestrator
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, jobs []models.JobRecord) ([]*models.EnrichmentResult, models.BatchSummary)
}

// taskExecution is one queued batch
type taskExecution struct {
	processID string
	jobs      []models.JobRecord
}

// TaskManager accepts batches, runs them on its workers and records their
// progress in the injected AutomationState
type TaskManager struct {
	cfg      config.BackgroundConfig
	state    *AutomationState
	enricher BatchEnricher
	events   *TaskCompletionLogger
	logger   logging.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	taskChan chan *taskExecution
}

// validateConfig returns safe worker and queue sizes
func validateConfig(cfg config.BackgroundConfig) (config.BackgroundConfig, error) {
	var err error
	switch {
	case cfg.Workers <= 0:
		cfg.Workers = DefaultWorkers
	case cfg.Workers > MaxWorkers:
		err = fmt.Errorf("worker count (%d) exceeds maximum (%d)", cfg.Workers, MaxWorkers)
		cfg.Workers = MaxWorkers
	}
	switch {
	case cfg.QueueSize <= 0:
		cfg.QueueSize = DefaultQueueSize
	case cfg.QueueSize > MaxQueueSize:
		err = fmt.Errorf("queue size (%d) exceeds maximum (%d)", cfg.QueueSize, MaxQueueSize)
		cfg.QueueSize = MaxQueueSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.MaxTaskAge <= 0 {
		cfg.MaxTaskAge = 24 * time.Hour
	}
	return cfg, err
}

// NewTaskManager creates a task manager. A nil state gets a fresh one.
func NewTaskManager(cfg config.BackgroundConfig, state *AutomationState, enricher BatchEnricher, logger logging.Logger) *TaskManager {
	logger = logger.WithField("component", "task_manager")

	cfg, err := validateConfig(cfg)
	if err != nil {
		logger.Warn("Task manager configuration clamped", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if state == nil {
		state = NewAutomationState()
	}

	return &TaskManager{
		cfg:      cfg,
		state:    state,
		enricher: enricher,
		events:   NewTaskCompletionLogger(logger),
		logger:   logger,
		taskChan: make(chan *taskExecution, cfg.QueueSize),
	}
}

// State returns the state the manager records into
func (tm *TaskManager) State() *AutomationState {
	return tm.state
}

// Start starts the workers and the cleanup routine
func (tm *TaskManager) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	for i := 0; i < tm.cfg.Workers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.logger.Info("Task manager started", map[string]interface{}{
		"workers":    tm.cfg.Workers,
		"queue_size": tm.cfg.QueueSize,
	})
	return nil
}

// Stop cancels running batches and waits for the workers until ctx ends
func (tm *TaskManager) Stop(ctx context.Context) error {
	tm.mu.Lock()
	if !tm.running {
		tm.mu.Unlock()
		return nil
	}
	tm.running = false
	tm.cancel()
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.logger.Info("Task manager stopped gracefully", map[string]interface{}{})
		return nil
	case <-ctx.Done():
		tm.logger.Warn("Task manager shutdown timed out", map[string]interface{}{})
		return ctx.Err()
	}
}

// IsHealthy reports whether the manager accepts work
func (tm *TaskManager) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// SubmitBatch queues jobs for enrichment and returns the task's process id.
// It never blocks: a full queue is reported as ErrQueueFull.
func (tm *TaskManager) SubmitBatch(ctx context.Context, jobs []models.JobRecord) (string, error) {
	if !tm.IsHealthy() {
		return "", ErrNotRunning
	}
	if len(jobs) == 0 {
		return "", utils.NewValidationError("at least one job is required")
	}

	processID := utils.GenerateProcessID("batch")
	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeEnrichBatch,
		Status:    models.TaskStatusAccepted,
		Jobs:      len(jobs),
		CreatedAt: time.Now(),
	}
	if err := tm.state.Tasks.Store(ctx, result); err != nil {
		return "", fmt.Errorf("failed to store task result: %w", err)
	}

	tm.state.scheduleOne()
	select {
	case tm.taskChan <- &taskExecution{processID: processID, jobs: jobs}:
	default:
		tm.state.unschedule()
		_ = tm.state.Tasks.Update(ctx, processID, func(r *TaskResult) {
			r.Status = models.TaskStatusFailure
			r.Error = ErrQueueFull.Error()
		})
		return "", ErrQueueFull
	}

	tm.events.LogTaskAccepted(processID, TaskTypeEnrichBatch, len(jobs))
	return processID, nil
}

// Get retrieves a task by process id
func (tm *TaskManager) Get(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.state.Tasks.Get(ctx, processID)
}

// List returns all known tasks, newest first
func (tm *TaskManager) List(ctx context.Context) ([]*TaskResult, error) {
	return tm.state.Tasks.List(ctx)
}

// Stats returns the counters of the shared state
func (tm *TaskManager) Stats() Stats {
	return tm.state.Stats()
}

func (tm *TaskManager) worker(workerID int) {
	defer tm.wg.Done()

	for {
		select {
		case <-tm.ctx.Done():
			tm.drain()
			return
		case task := <-tm.taskChan:
			tm.processTask(workerID, task)
		}
	}
}

// drain fails batches still queued at shutdown
func (tm *TaskManager) drain() {
	for {
		select {
		case task := <-tm.taskChan:
			tm.state.unschedule()
			_ = tm.state.Tasks.Update(context.Background(), task.processID, func(r *TaskResult) {
				r.Status = models.TaskStatusFailure
				r.Error = "task manager stopped"
			})
		default:
			return
		}
	}
}

// processTask runs one batch and records the outcome
func (tm *TaskManager) processTask(workerID int, task *taskExecution) {
	startTime := time.Now()
	tm.state.start()

	_ = tm.state.Tasks.Update(tm.ctx, task.processID, func(r *TaskResult) {
		r.Status = models.TaskStatusProcessing
		r.StartedAt = &startTime
	})
	tm.events.LogTaskStart(task.processID, TaskTypeEnrichBatch)

	ctx := tm.ctx
	if tm.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(tm.ctx, tm.cfg.TaskTimeout)
		defer cancel()
	}

	results, summary, err := tm.runBatch(ctx, task.jobs)
	processingTime := time.Since(startTime)
	completedAt := time.Now()

	status := models.TaskStatusSuccess
	if err != nil {
		status = models.TaskStatusFailure
		tm.logger.Error("Batch task failed", map[string]interface{}{
			"worker_id":  workerID,
			"process_id": task.processID,
			"error":      err.Error(),
		})
	}

	var final *TaskResult
	_ = tm.state.Tasks.Update(context.Background(), task.processID, func(r *TaskResult) {
		r.Status = status
		r.Results = results
		if results != nil {
			r.Summary = &summary
		}
		if err != nil {
			r.Error = err.Error()
		}
		r.CompletedAt = &completedAt
		r.ProcessingTime = &processingTime
		final = r.clone()
	})
	tm.state.finish(status, len(results))

	if final != nil {
		tm.events.LogTaskCompletion(final)
	}
}

// runBatch calls the enricher and turns panics and cancellation into errors
func (tm *TaskManager) runBatch(ctx context.Context, jobs []models.JobRecord) (results []*models.EnrichmentResult, summary models.BatchSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch panicked: %v", r)
		}
	}()

	results, summary = tm.enricher.EnrichBatch(ctx, jobs)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return results, summary, fmt.Errorf("batch interrupted: %w", ctxErr)
	}
	return results, summary, nil
}

// cleanupRoutine periodically removes finished tasks older than MaxTaskAge
func (tm *TaskManager) cleanupRoutine() {
	defer tm.wg.Done()

	ticker := time.NewTicker(tm.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			tm.Cleanup(context.Background())
		}
	}
}

// Cleanup removes finished tasks older than MaxTaskAge
func (tm *TaskManager) Cleanup(ctx context.Context) int {
	removed, err := tm.state.Tasks.Cleanup(ctx, time.Now().Add(-tm.cfg.MaxTaskAge))
	if err != nil {
		tm.logger.Error("Failed to cleanup old task results", map[string]interface{}{
			"error": err.Error(),
		})
		return 0
	}
	if removed > 0 {
		tm.logger.Debug("Removed expired tasks", map[string]interface{}{"removed": removed})
	}
	return removed
}
