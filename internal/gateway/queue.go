package gateway

import (
	"context"
	"sync"
)

// ThreadQueue serializes turns per thread reference. At most one turn
// per thread runs at a time; up to maxWaiting further turns wait in
// arrival order behind it, and anything beyond that is rejected with
// ErrQueueFull. Distinct threads never block each other.
type ThreadQueue struct {
	mu         sync.Mutex
	maxWaiting int
	threads    map[string]*threadState
}

type threadState struct {
	busy    bool
	waiters []chan struct{}
}

// NewThreadQueue creates a ThreadQueue allowing maxWaiting queued turns
// per thread behind the in-flight one.
func NewThreadQueue(maxWaiting int) *ThreadQueue {
	return &ThreadQueue{
		maxWaiting: maxWaiting,
		threads:    make(map[string]*threadState),
	}
}

// Acquire blocks until the caller holds the thread's turn slot, then
// returns a release function. Waiters are served strictly in arrival
// order. When another turn is already in flight for the thread,
// onQueued (if non-nil) is called once before blocking. Returns
// ErrQueueFull when the thread's wait list is at capacity, or the
// context error if ctx ends while waiting.
func (q *ThreadQueue) Acquire(ctx context.Context, threadRef string, onQueued func()) (func(), error) {
	q.mu.Lock()

	st, ok := q.threads[threadRef]
	if !ok {
		st = &threadState{}
		q.threads[threadRef] = st
	}

	if !st.busy {
		st.busy = true
		q.mu.Unlock()
		return func() { q.release(threadRef) }, nil
	}

	if len(st.waiters) >= q.maxWaiting {
		q.mu.Unlock()
		return nil, ErrQueueFull
	}

	ready := make(chan struct{})
	st.waiters = append(st.waiters, ready)
	q.mu.Unlock()

	if onQueued != nil {
		onQueued()
	}

	select {
	case <-ready:
		return func() { q.release(threadRef) }, nil
	case <-ctx.Done():
		// The slot may have been handed to us while ctx was ending; if
		// we are no longer on the wait list we own it and must pass it on.
		q.mu.Lock()
		if !q.removeWaiter(threadRef, ready) {
			q.mu.Unlock()
			q.release(threadRef)
		} else {
			q.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

// Waiting reports how many turns are queued behind the in-flight one
// for the given thread.
func (q *ThreadQueue) Waiting(threadRef string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.threads[threadRef]; ok {
		return len(st.waiters)
	}
	return 0
}

// release hands the slot to the next waiter, or frees the thread.
func (q *ThreadQueue) release(threadRef string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st, ok := q.threads[threadRef]
	if !ok {
		return
	}

	if len(st.waiters) > 0 {
		next := st.waiters[0]
		st.waiters = st.waiters[1:]
		close(next)
		return
	}

	// No waiters: drop the entry so the map does not grow with every
	// thread ever seen.
	delete(q.threads, threadRef)
}

// removeWaiter deletes ready from the thread's wait list, reporting
// whether it was still listed. Caller holds q.mu.
func (q *ThreadQueue) removeWaiter(threadRef string, ready chan struct{}) bool {
	st, ok := q.threads[threadRef]
	if !ok {
		return false
	}
	for i, w := range st.waiters {
		if w == ready {
			st.waiters = append(st.waiters[:i], st.waiters[i+1:]...)
			return true
		}
	}
	return false
}
