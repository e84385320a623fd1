package querycache

import (
	"context"
	"errors"
	"sync"
)

// MutationStatus is the lifecycle of a write.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

// ErrMutationPending is returned when a mutation is already running.
var ErrMutationPending = errors.New("mutation already pending")

// Mutation runs a write and reconciles the cache afterwards, either by
// patching cached lists in place or by invalidating them.
type Mutation[In, Out any] struct {
	Cache      *Cache
	Do         func(ctx context.Context, in In) (Out, error)
	Invalidate func(in In, out Out) []Key
	Patch      func(c *Cache, in In, out Out)
	OnSuccess  func(in In, out Out)

	mu     sync.Mutex
	status MutationStatus
	err    error
}

// Run performs the write. Only one run may be pending at a time.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	m.mu.Lock()
	if m.status == MutationPending {
		m.mu.Unlock()
		return zero, ErrMutationPending
	}
	m.status = MutationPending
	m.err = nil
	m.mu.Unlock()

	out, err := m.Do(ctx, in)
	if err != nil {
		m.finish(MutationError, err)
		return zero, err
	}
	if m.Cache != nil {
		if m.Patch != nil {
			m.Patch(m.Cache, in, out)
		}
		if m.Invalidate != nil {
			for _, key := range m.Invalidate(in, out) {
				m.Cache.Invalidate(key, false)
			}
		}
	}
	m.finish(MutationSuccess, nil)
	if m.OnSuccess != nil {
		m.OnSuccess(in, out)
	}
	return out, nil
}

// State returns the status and the last error.
func (m *Mutation[In, Out]) State() (MutationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.err
}

// Pending reports whether a run is in flight.
func (m *Mutation[In, Out]) Pending() bool {
	status, _ := m.State()
	return status == MutationPending
}

// Reset returns the mutation to idle.
func (m *Mutation[In, Out]) Reset() {
	m.finish(MutationIdle, nil)
}

func (m *Mutation[In, Out]) finish(status MutationStatus, err error) {
	m.mu.Lock()
	m.status = status
	m.err = err
	m.mu.Unlock()
}
