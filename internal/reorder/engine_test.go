package reorder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/pkg/signage"
)

type stubMover struct {
	mu    sync.Mutex
	calls []signage.MoveItemBody
	err   error
}

func (s *stubMover) MovePlaylistItem(ctx context.Context, playlistID int64, body signage.MoveItemBody) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, body)
	return s.err
}

func (s *stubMover) snapshot() []signage.MoveItemBody {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]signage.MoveItemBody(nil), s.calls...)
}

func sampleItems() []signage.PlaylistItem {
	return []signage.PlaylistItem{
		{ID: 1, PlaylistFileID: 101, Name: "a", PlayOrder: 1},
		{ID: 2, PlaylistFileID: 102, Name: "b", PlayOrder: 2},
		{ID: 3, Name: "c", PlayOrder: 3},
		{ID: 4, PlaylistFileID: 104, Name: "d", PlayOrder: 4},
	}
}

func names(items []signage.PlaylistItem) string {
	out := ""
	for _, item := range items {
		out += item.Name
	}
	return out
}

func TestDropSplicesAndRenumbers(t *testing.T) {
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	if !engine.Reorder(context.Background(), 0, 2) {
		t.Fatalf("expected dispatch")
	}
	engine.Wait()

	items := engine.Items()
	if names(items) != "bcad" {
		t.Fatalf("unexpected order %s", names(items))
	}
	for i, item := range items {
		if item.PlayOrder != i+1 {
			t.Fatalf("item %s has playOrder %d at index %d", item.Name, item.PlayOrder, i)
		}
	}
	calls := mover.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one move, got %d", len(calls))
	}
	if calls[0].PlaylistFileID != 101 || calls[0].PlayOrder != 3 {
		t.Fatalf("unexpected move %+v", calls[0])
	}
}

func TestDropFallsBackToItemID(t *testing.T) {
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	engine.Reorder(context.Background(), 2, 0)
	engine.Wait()

	calls := mover.snapshot()
	if len(calls) != 1 || calls[0].PlaylistFileID != 3 || calls[0].PlayOrder != 1 {
		t.Fatalf("unexpected move %+v", calls)
	}
	if names(engine.Items()) != "cabd" {
		t.Fatalf("unexpected order %s", names(engine.Items()))
	}
}

func TestDropOnSelfIsNoop(t *testing.T) {
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	if engine.Reorder(context.Background(), 1, 1) {
		t.Fatalf("expected no dispatch")
	}
	engine.Wait()
	if len(mover.snapshot()) != 0 {
		t.Fatalf("expected no move")
	}
	if names(engine.Items()) != "abcd" {
		t.Fatalf("order changed")
	}
}

func TestDropWithoutDragStartIsNoop(t *testing.T) {
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	if engine.Drop(context.Background(), 2) {
		t.Fatalf("expected no dispatch")
	}
	engine.DragStart(0)
	engine.SetItems(sampleItems())
	if engine.Drop(context.Background(), 2) {
		t.Fatalf("expected no dispatch after refresh")
	}
}

func TestDragIgnoredInSelectMode(t *testing.T) {
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())

	if engine.Reorder(context.Background(), 0, 3) {
		t.Fatalf("expected no dispatch in select mode")
	}
}

func TestMoveErrorKeepsLocalOrder(t *testing.T) {
	mover := &stubMover{err: errors.New("server down")}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	var failed []signage.PlaylistItem
	var mu sync.Mutex
	engine.OnMoveError = func(item signage.PlaylistItem, err error) {
		mu.Lock()
		failed = append(failed, item)
		mu.Unlock()
	}

	engine.Reorder(context.Background(), 3, 0)
	engine.Wait()

	if names(engine.Items()) != "dabc" {
		t.Fatalf("expected local order kept, got %s", names(engine.Items()))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0].Name != "d" {
		t.Fatalf("expected failure reported for d, got %v", failed)
	}
}

func TestCancelledCallerDoesNotCancelMove(t *testing.T) {
	mover := &ctxMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)

	ctx, cancel := context.WithCancel(context.Background())
	engine.Reorder(ctx, 0, 1)
	cancel()
	engine.Wait()
	if mover.err != nil {
		t.Fatalf("move saw cancelled context: %v", mover.err)
	}
}

type ctxMover struct {
	err error
}

func (m *ctxMover) MovePlaylistItem(ctx context.Context, playlistID int64, body signage.MoveItemBody) error {
	m.err = ctx.Err()
	return nil
}

func TestReorderModeClearsSelection(t *testing.T) {
	engine := NewEngine(9, &stubMover{}, zap.NewNop())
	engine.SetItems(sampleItems())
	if err := engine.Check(2, true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(engine.Checked()) != 1 {
		t.Fatalf("expected one checked")
	}
	if engine.ToggleMode() != Reorder {
		t.Fatalf("expected reorder mode")
	}
	if len(engine.Checked()) != 0 {
		t.Fatalf("expected selection cleared")
	}
	if err := engine.Check(2, true); !errors.Is(err, ErrReorderMode) {
		t.Fatalf("expected reorder mode error, got %v", err)
	}
	if engine.ToggleMode() != Select {
		t.Fatalf("expected select mode")
	}
}

func TestSetItemsReplacesLocalOrder(t *testing.T) {
	engine := NewEngine(9, &stubMover{}, zap.NewNop())
	engine.SetItems(sampleItems())
	engine.SetMode(Reorder)
	engine.Reorder(context.Background(), 0, 3)
	engine.Wait()
	engine.SetItems(sampleItems())
	if names(engine.Items()) != "abcd" {
		t.Fatalf("expected refetched order")
	}
}

func TestMoveToDialogValidate(t *testing.T) {
	dialog := NewMoveToDialog(signage.PlaylistItem{ID: 3, PlaylistFileID: 33, Name: "c", PlayOrder: 3}, 4)
	if dialog.ItemID != 33 {
		t.Fatalf("expected playlistFileId")
	}
	tests := []struct {
		input string
		want  int
		err   string
	}{
		{input: "2", want: 2},
		{input: " 4 ", want: 4},
		{input: "1.5", err: "Please enter a valid whole number"},
		{input: "abc", err: "Please enter a valid whole number"},
		{input: "0", err: "playOrder must be >= 1"},
		{input: "5", err: "playOrder must be <= 4"},
	}
	for _, tt := range tests {
		got, err := dialog.Validate(tt.input)
		if tt.err != "" {
			if err == nil || err.Error() != tt.err {
				t.Fatalf("input %q expected %q got %v", tt.input, tt.err, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("input %q expected %d got %d (%v)", tt.input, tt.want, got, err)
		}
	}
	body := dialog.Body(2)
	if body.PlaylistFileID != 33 || body.PlayOrder != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRandomReordersKeepContiguousPlayOrder(t *testing.T) {
	const n = 12
	items := make([]signage.PlaylistItem, n)
	for i := range items {
		items[i] = signage.PlaylistItem{ID: int64(i + 1), Name: fmt.Sprintf("item-%d", i+1), PlayOrder: i + 1}
	}
	mover := &stubMover{}
	engine := NewEngine(9, mover, zap.NewNop())
	engine.SetItems(items)
	engine.SetMode(Reorder)

	model := make([]int64, n)
	for i := range model {
		model[i] = int64(i + 1)
	}
	rng := rand.New(rand.NewSource(7))
	dispatched := 0
	for step := 0; step < 300; step++ {
		from, to := rng.Intn(n), rng.Intn(n)
		if engine.Reorder(context.Background(), from, to) {
			dispatched++
			id := model[from]
			model = append(model[:from], model[from+1:]...)
			model = append(model[:to], append([]int64{id}, model[to:]...)...)
		}

		got := engine.Items()
		if len(got) != n {
			t.Fatalf("step %d: expected %d items, got %d", step, n, len(got))
		}
		for i, item := range got {
			if item.PlayOrder != i+1 {
				t.Fatalf("step %d: item %d has playOrder %d at index %d", step, item.ID, item.PlayOrder, i)
			}
			if item.ID != model[i] {
				t.Fatalf("step %d: index %d holds %d, want %d", step, i, item.ID, model[i])
			}
		}
	}
	engine.Wait()
	if calls := mover.snapshot(); len(calls) != dispatched {
		t.Fatalf("expected %d moves, got %d", dispatched, len(calls))
	}
}
