package debounce

import (
	"sync"
	"time"
)

// Default delays for search fields.
const (
	SearchDelay         = 400 * time.Millisecond
	PlaylistSearchDelay = 500 * time.Millisecond
)

// Debouncer delivers the last value of a burst once the input has been
// quiet for the configured delay.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	value   T
	gen     uint64
}

// New returns a debouncer that calls fn after delay of quiet.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Set records v and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush delivers the pending value now, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	v, ok := d.take()
	d.mu.Unlock()
	if ok {
		d.fn(v)
	}
}

// Stop discards the pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.gen++
}

// Pending reports whether a value is waiting to be delivered.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	v, ok := d.take()
	d.mu.Unlock()
	if ok {
		d.fn(v)
	}
}

func (d *Debouncer[T]) take() (T, bool) {
	var zero T
	if !d.pending {
		return zero, false
	}
	v := d.value
	d.value = zero
	d.pending = false
	d.gen++
	return v, true
}
