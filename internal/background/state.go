package background

import (
	"sync"

	"jobleads/pkg/models"
)

// AutomationState is the mutable bookkeeping of the task manager: how many
// batches are running, how many are queued, and the task table itself. It is
// created by the caller and passed by reference so several components (the
// manager, HTTP handlers, health checks) observe the same values.
type AutomationState struct {
	Tasks TaskStore

	mu        sync.Mutex
	running   int
	scheduled int
	succeeded int64
	failed    int64
	jobsDone  int64
}

// Stats is a snapshot of AutomationState
type Stats struct {
	Running       int   `json:"running"`
	Scheduled     int   `json:"scheduled"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	JobsProcessed int64 `json:"jobsProcessed"`
}

// NewAutomationState returns state backed by an in-memory task store
func NewAutomationState() *AutomationState {
	return &AutomationState{Tasks: NewInMemoryTaskStore()}
}

func (s *AutomationState) scheduleOne() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled++
}

func (s *AutomationState) unschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled--
}

func (s *AutomationState) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled--
	s.running++
}

func (s *AutomationState) finish(status models.TaskStatus, jobs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	s.jobsDone += int64(jobs)
	if status == models.TaskStatusSuccess {
		s.succeeded++
	} else {
		s.failed++
	}
}

// Stats returns a snapshot of the counters
func (s *AutomationState) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Running:       s.running,
		Scheduled:     s.scheduled,
		Succeeded:     s.succeeded,
		Failed:        s.failed,
		JobsProcessed: s.jobsDone,
	}
}
