package browser

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Slots is a counting semaphore with FIFO waiters that bounds concurrent
// page scrapes.
type Slots struct {
	sem      *semaphore.Weighted
	capacity int64

	inUse    atomic.Int64
	waiting  atomic.Int64
	acquired atomic.Int64
	waitNs   atomic.Int64
}

// SlotStats is a point-in-time view of slot usage
type SlotStats struct {
	Capacity    int64         `json:"capacity"`
	InUse       int64         `json:"in_use"`
	Waiting     int64         `json:"waiting"`
	Acquired    int64         `json:"total_acquired"`
	AverageWait time.Duration `json:"average_wait"`
}

func NewSlots(capacity int) *Slots {
	if capacity < 1 {
		capacity = 1
	}
	return &Slots{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free or ctx is done
func (s *Slots) Acquire(ctx context.Context) error {
	start := time.Now()

	s.waiting.Add(1)
	err := s.sem.Acquire(ctx, 1)
	s.waiting.Add(-1)
	if err != nil {
		return err
	}

	s.inUse.Add(1)
	s.acquired.Add(1)
	s.waitNs.Add(int64(time.Since(start)))
	return nil
}

// Release frees a slot and wakes the oldest waiter
func (s *Slots) Release() {
	s.inUse.Add(-1)
	s.sem.Release(1)
}

func (s *Slots) Stats() SlotStats {
	stats := SlotStats{
		Capacity: s.capacity,
		InUse:    s.inUse.Load(),
		Waiting:  s.waiting.Load(),
		Acquired: s.acquired.Load(),
	}
	if stats.Acquired > 0 {
		stats.AverageWait = time.Duration(s.waitNs.Load() / stats.Acquired)
	}
	return stats
}
