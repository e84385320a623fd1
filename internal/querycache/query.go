package querycache

import (
	"context"
	"fmt"
	"sync"
)

// Status is the lifecycle of a list fetch.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is what a list view renders from.
type State[T any] struct {
	Status Status
	Data   T
	Err    error
}

// FetchFunc loads the value for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Query binds a key to a fetch function over a shared cache.
type Query[T any] struct {
	cache *Cache
	fetch FetchFunc[T]

	mu    sync.Mutex
	key   Key
	state State[T]
}

// NewQuery returns an idle query.
func NewQuery[T any](cache *Cache, key Key, fetch FetchFunc[T]) *Query[T] {
	return &Query[T]{cache: cache, key: key, fetch: fetch}
}

// Key returns the current key.
func (q *Query[T]) Key() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// SetKey switches the query to a new key, typically after the parameter bag
// changed. The state keeps the previous data until the next fetch.
func (q *Query[T]) SetKey(key Key) {
	q.mu.Lock()
	q.key = key
	q.mu.Unlock()
}

// State returns the last observed state.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Fetch serves a fresh cached value or loads one. Concurrent fetches of the
// same key share one load, which runs detached from any single caller's ctx
// and is bounded by the cache load timeout. If ctx ends before the load
// completes, this caller's result is discarded and the state left as it was.
func (q *Query[T]) Fetch(ctx context.Context) State[T] {
	key := q.Key()
	if v, ok, fresh := q.cache.Get(key); ok && fresh {
		if data, typed := v.(T); typed {
			return q.setState(State[T]{Status: Success, Data: data})
		}
	}

	q.mu.Lock()
	prev := q.state
	q.state = State[T]{Status: Loading, Data: prev.Data}
	q.mu.Unlock()

	startGen := q.cache.generation(key)
	ch := q.cache.group.DoChan(key.String(), func() (any, error) {
		lctx, cancel := q.cache.loadContext(ctx)
		defer cancel()
		v, err := q.fetch(lctx)
		if err != nil {
			return nil, err
		}
		q.cache.store(key, v, startGen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		q.mu.Lock()
		q.state = prev
		q.mu.Unlock()
		return State[T]{Status: prev.Status, Data: prev.Data, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return q.setState(State[T]{Status: Error, Data: prev.Data, Err: res.Err})
		}
		data, ok := res.Val.(T)
		if !ok {
			return q.setState(State[T]{Status: Error, Data: prev.Data, Err: fmt.Errorf("cached value for %s has type %T", key.Entity, res.Val)})
		}
		return q.setState(State[T]{Status: Success, Data: data})
	}
}

// Refetch invalidates the current key and fetches again.
func (q *Query[T]) Refetch(ctx context.Context) State[T] {
	q.cache.Invalidate(q.Key(), true)
	return q.Fetch(ctx)
}

func (q *Query[T]) setState(s State[T]) State[T] {
	q.mu.Lock()
	q.state = s
	q.mu.Unlock()
	return s
}
