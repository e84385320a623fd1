package reorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/pkg/signage"
)

// Mode selects what pointer interaction does on the item list.
type Mode int

const (
	// Select toggles row checkboxes for bulk actions.
	Select Mode = iota
	// Reorder enables dragging rows.
	Reorder
)

func (m Mode) String() string {
	if m == Reorder {
		return "reorder"
	}
	return "select"
}

// Mover persists a single item move.
type Mover interface {
	MovePlaylistItem(ctx context.Context, playlistID int64, body signage.MoveItemBody) error
}

// ErrReorderMode is returned when checking rows while reordering.
var ErrReorderMode = errors.New("selection is disabled in reorder mode")

const defaultDispatchTimeout = 15 * time.Second

// Engine holds the local item order of one playlist.
type Engine struct {
	playlistID int64
	mover      Mover
	logger     *zap.Logger
	timeout    time.Duration

	// OnMoveError is called when a dispatched move fails. The local order is
	// not rolled back.
	OnMoveError func(item signage.PlaylistItem, err error)

	mu       sync.Mutex
	items    []signage.PlaylistItem
	mode     Mode
	checked  map[int64]bool
	dragFrom int
	inflight sync.WaitGroup
}

// NewEngine returns an engine in Select mode with no items.
func NewEngine(playlistID int64, mover Mover, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		playlistID: playlistID,
		mover:      mover,
		logger:     logger,
		timeout:    defaultDispatchTimeout,
		checked:    map[int64]bool{},
		dragFrom:   -1,
	}
}

// SetDispatchTimeout bounds each move request.
func (e *Engine) SetDispatchTimeout(d time.Duration) {
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// SetItems replaces the local order with a freshly fetched list.
func (e *Engine) SetItems(items []signage.PlaylistItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append([]signage.PlaylistItem(nil), items...)
	e.dragFrom = -1
}

// Items returns a copy of the local order.
func (e *Engine) Items() []signage.PlaylistItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]signage.PlaylistItem(nil), e.items...)
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches mode. Entering Reorder clears the selection.
func (e *Engine) SetMode(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	if mode == Reorder {
		e.checked = map[int64]bool{}
	}
	e.dragFrom = -1
}

// ToggleMode flips between Select and Reorder and returns the new mode.
func (e *Engine) ToggleMode() Mode {
	next := Reorder
	if e.Mode() == Reorder {
		next = Select
	}
	e.SetMode(next)
	return next
}

// Check toggles the selection of an item.
func (e *Engine) Check(id int64, checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == Reorder {
		return ErrReorderMode
	}
	if checked {
		e.checked[id] = true
	} else {
		delete(e.checked, id)
	}
	return nil
}

// Checked returns the selected items in list order.
func (e *Engine) Checked() []signage.PlaylistItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []signage.PlaylistItem
	for _, item := range e.items {
		if e.checked[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// DragStart records the source row.
func (e *Engine) DragStart(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Reorder || index < 0 || index >= len(e.items) {
		e.dragFrom = -1
		return
	}
	e.dragFrom = index
}

// Drop moves the dragged row to index, renumbers play order and dispatches
// one move for the moved item without waiting for it. It reports whether a
// move was dispatched.
func (e *Engine) Drop(ctx context.Context, index int) bool {
	e.mu.Lock()
	from := e.dragFrom
	e.dragFrom = -1
	if from < 0 || from == index || index < 0 || index >= len(e.items) {
		e.mu.Unlock()
		return false
	}
	moved := e.items[from]
	rest := append(append([]signage.PlaylistItem(nil), e.items[:from]...), e.items[from+1:]...)
	e.items = renumber(insertItems(rest, []signage.PlaylistItem{moved}, index))
	timeout := e.timeout
	e.inflight.Add(1)
	e.mu.Unlock()

	body := signage.MoveItemBody{PlaylistFileID: moved.MoveID(), PlayOrder: index + 1}
	go e.dispatch(context.WithoutCancel(ctx), timeout, moved, body)
	return true
}

// Reorder is DragStart followed by Drop.
func (e *Engine) Reorder(ctx context.Context, from, to int) bool {
	e.DragStart(from)
	return e.Drop(ctx, to)
}

// Wait blocks until dispatched moves have finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) dispatch(ctx context.Context, timeout time.Duration, item signage.PlaylistItem, body signage.MoveItemBody) {
	defer e.inflight.Done()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := e.mover.MovePlaylistItem(ctx, e.playlistID, body)
	if err == nil {
		e.logger.Debug("playlist item moved",
			zap.Int64("playlist", e.playlistID),
			zap.Int64("item", body.PlaylistFileID),
			zap.Int("playOrder", body.PlayOrder),
		)
		return
	}
	e.logger.Warn("playlist item move failed",
		zap.Int64("playlist", e.playlistID),
		zap.Int64("item", body.PlaylistFileID),
		zap.Int("playOrder", body.PlayOrder),
		zap.Error(err),
	)
	if e.OnMoveError != nil {
		e.OnMoveError(item, err)
	}
}

func renumber(items []signage.PlaylistItem) []signage.PlaylistItem {
	for i := range items {
		items[i].PlayOrder = i + 1
	}
	return items
}

func insertItems(items []signage.PlaylistItem, insert []signage.PlaylistItem, index int) []signage.PlaylistItem {
	if index < 0 {
		index = 0
	}
	if index > len(items) {
		index = len(items)
	}
	result := make([]signage.PlaylistItem, 0, len(items)+len(insert))
	result = append(result, items[:index]...)
	result = append(result, insert...)
	result = append(result, items[index:]...)
	return result
}
