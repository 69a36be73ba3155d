package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsCapacityAndQueue(t *testing.T) {
	slots := NewSlots(6)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, slots.Acquire(context.Background()))
			<-release
			slots.Release()
		}()
	}

	assert.Eventually(t, func() bool {
		s := slots.Stats()
		return s.InUse == 6 && s.Waiting == 1
	}, 2*time.Second, 5*time.Millisecond)

	// one holder leaves, the queued caller takes its place
	release <- struct{}{}
	assert.Eventually(t, func() bool {
		s := slots.Stats()
		return s.InUse == 6 && s.Waiting == 0 && s.Acquired == 7
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()
	assert.Equal(t, int64(0), slots.Stats().InUse)
}

func TestSlotsServeWaitersInOrder(t *testing.T) {
	slots := NewSlots(1)
	require.NoError(t, slots.Acquire(context.Background()))

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, slots.Acquire(context.Background()))
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			slots.Release()
		}(i)

		want := int64(i + 1)
		require.Eventually(t, func() bool { return slots.Stats().Waiting == want }, time.Second, time.Millisecond)
		// give the goroutine time to enter the semaphore queue after bumping the counter
		time.Sleep(10 * time.Millisecond)
	}

	slots.Release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSlotsAcquireHonoursContext(t *testing.T) {
	slots := NewSlots(1)
	require.NoError(t, slots.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := slots.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s := slots.Stats()
	assert.Equal(t, int64(1), s.InUse)
	assert.Equal(t, int64(0), s.Waiting)
}

func TestNewSlotsClampsCapacity(t *testing.T) {
	assert.Equal(t, int64(1), NewSlots(0).Stats().Capacity)
}
