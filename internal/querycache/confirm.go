package querycache

import (
	"context"
	"errors"
	"sync"
)

// ErrGateClosed is returned when confirming with no target selected.
var ErrGateClosed = errors.New("nothing selected")

// ConfirmGate holds the target of a destructive action until it is confirmed
// or cancelled.
type ConfirmGate[ID comparable] struct {
	mu     sync.Mutex
	target ID
	open   bool
}

// Open selects id.
func (g *ConfirmGate[ID]) Open(id ID) {
	g.mu.Lock()
	g.target = id
	g.open = true
	g.mu.Unlock()
}

// Target returns the selected id.
func (g *ConfirmGate[ID]) Target() (ID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target, g.open
}

// Confirm runs fn on the target. The gate closes on success and stays open
// on error so the action can be retried.
func (g *ConfirmGate[ID]) Confirm(ctx context.Context, fn func(context.Context, ID) error) error {
	id, ok := g.Target()
	if !ok {
		return ErrGateClosed
	}
	if err := fn(ctx, id); err != nil {
		return err
	}
	g.Cancel()
	return nil
}

// Cancel closes the gate.
func (g *ConfirmGate[ID]) Cancel() {
	g.mu.Lock()
	var zero ID
	g.target = zero
	g.open = false
	g.mu.Unlock()
}
