package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobleads/pkg/models"
)

// TaskType represents the type of background task
type TaskType string

const (
	TaskTypeEnrichBatch TaskType = "enrich_batch"
)

// TaskResult represents the state and result of a background task
type TaskResult struct {
	ProcessID      string                     `json:"processId"`
	Type           TaskType                   `json:"type"`
	Status         models.TaskStatus          `json:"status"`
	Jobs           int                        `json:"jobs"`
	Results        []*models.EnrichmentResult `json:"results,omitempty"`
	Summary        *models.BatchSummary       `json:"summary,omitempty"`
	Error          string                     `json:"error,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
	StartedAt      *time.Time                 `json:"startedAt,omitempty"`
	CompletedAt    *time.Time                 `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration             `json:"processingTime,omitempty"`
}

// clone returns a copy safe to hand out while a worker keeps updating the
// stored task
func (r *TaskResult) clone() *TaskResult {
	c := *r
	if r.Results != nil {
		c.Results = append([]*models.EnrichmentResult(nil), r.Results...)
	}
	return &c
}

// TaskStore defines the interface for storing and retrieving task results
type TaskStore interface {
	// Store stores a task result
	Store(ctx context.Context, result *TaskResult) error

	// Get retrieves a task result by process ID
	Get(ctx context.Context, processID string) (*TaskResult, error)

	// Update applies fn to the stored task under the store's lock
	Update(ctx context.Context, processID string, fn func(*TaskResult)) error

	// Cleanup removes finished tasks created before cutoff and returns how
	// many were removed
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)

	// List returns all task results, newest first
	List(ctx context.Context) ([]*TaskResult, error)
}

// InMemoryTaskStore implements TaskStore using in-memory storage
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*TaskResult
}

// NewInMemoryTaskStore creates a new in-memory task store
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*TaskResult),
	}
}

func (s *InMemoryTaskStore) Store(ctx context.Context, result *TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[result.ProcessID] = result.clone()
	return nil
}

func (s *InMemoryTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, exists := s.tasks[processID]
	if !exists {
		return nil, ErrTaskNotFound
	}
	return result.clone(), nil
}

func (s *InMemoryTaskStore) Update(ctx context.Context, processID string, fn func(*TaskResult)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, exists := s.tasks[processID]
	if !exists {
		return ErrTaskNotFound
	}
	fn(result)
	return nil
}

func (s *InMemoryTaskStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for processID, result := range s.tasks {
		if !finished(result.Status) {
			continue
		}
		if result.CreatedAt.Before(cutoff) {
			delete(s.tasks, processID)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*TaskResult, 0, len(s.tasks))
	for _, result := range s.tasks {
		results = append(results, result.clone())
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func finished(status models.TaskStatus) bool {
	return status == models.TaskStatusSuccess || status == models.TaskStatusFailure
}

// Common errors
var (
	ErrTaskNotFound = NewTaskError("TASK_NOT_FOUND", "task not found")
	ErrQueueFull    = NewTaskError("QUEUE_FULL", "task queue is full")
	ErrNotRunning   = NewTaskError("NOT_RUNNING", "task manager is not running")
)

// TaskError represents a background task error
type TaskError struct {
	Message string
	Code    string
}

func NewTaskError(code, message string) *TaskError {
	return &TaskError{
		Message: message,
		Code:    code,
	}
}

func (e *TaskError) Error() string {
	return e.Message
}
