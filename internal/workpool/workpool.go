// Package workpool bounds the number of simulations running at once.
package workpool

import (
	"context"
	"sync"
)

// Semaphore is a counting semaphore. A nil *Semaphore imposes no limit.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with n slots, or returns nil when n <= 0.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return nil
	}
	return &Semaphore{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
// It reports whether a slot was taken.
func (s *Semaphore) Acquire(ctx context.Context) bool {
	if s == nil {
		return ctx.Err() == nil
	}
	select {
	case s.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Release frees a slot taken by Acquire.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	<-s.ch
}

// Capacity returns the number of slots, or 0 when unlimited.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// Run calls fn(i) for every i in [0, n) with at most workers calls in flight.
// It stops starting new calls once ctx is done and returns ctx.Err() in that
// case; calls already started run to completion.
func Run(ctx context.Context, workers, n int, fn func(i int)) error {
	sem := NewSemaphore(workers)
	var wg sync.WaitGroup
	for i := range n {
		if ctx.Err() != nil || !sem.Acquire(ctx) {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()
			fn(i)
		}()
	}
	wg.Wait()
	return ctx.Err()
}
