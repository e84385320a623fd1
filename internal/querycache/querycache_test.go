package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func folderKey(params string) Key {
	return Key{Entity: "folders", Params: params}
}

func TestFetchServesCacheUntilInvalidated(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int32
	q := NewQuery(cache, folderKey("a"), func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"one"}, nil
	})
	if st := q.Fetch(context.Background()); st.Status != Success || len(st.Data) != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	q.Fetch(context.Background())
	if calls.Load() != 1 {
		t.Fatalf("expected cached value, got %d calls", calls.Load())
	}
	if n := cache.Invalidate(Key{Entity: "folders"}, false); n != 1 {
		t.Fatalf("expected one invalidated entry, got %d", n)
	}
	q.Fetch(context.Background())
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after invalidate")
	}
}

func TestFetchErrorKeepsPreviousData(t *testing.T) {
	cache := NewCache()
	fail := false
	q := NewQuery(cache, folderKey("a"), func(ctx context.Context) ([]string, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []string{"kept"}, nil
	})
	q.Fetch(context.Background())
	fail = true
	st := q.Refetch(context.Background())
	if st.Status != Error || st.Err == nil {
		t.Fatalf("expected error state, got %+v", st)
	}
	if len(st.Data) != 1 || st.Data[0] != "kept" {
		t.Fatalf("expected previous data retained")
	}
}

func TestCancelledFetchDiscardsResult(t *testing.T) {
	cache := NewCache()
	release := make(chan struct{})
	q := NewQuery(cache, folderKey("a"), func(ctx context.Context) ([]string, error) {
		<-release
		return []string{"late"}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan State[[]string], 1)
	go func() { done <- q.Fetch(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	st := <-done
	close(release)
	if !errors.Is(st.Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", st)
	}
	if q.State().Status != Idle {
		t.Fatalf("expected state untouched, got %s", q.State().Status)
	}
}

func TestConcurrentFetchesShareOneLoad(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int32
	gate := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-gate
		return []string{"x"}, nil
	}
	a := NewQuery(cache, folderKey("same"), fetch)
	b := NewQuery(cache, folderKey("same"), fetch)
	var wg sync.WaitGroup
	for _, q := range []*Query[[]string]{a, b} {
		wg.Add(1)
		go func(q *Query[[]string]) {
			defer wg.Done()
			q.Fetch(context.Background())
		}(q)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("expected one load, got %d", calls.Load())
	}
}

func TestCancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return []string{"x"}, nil
		}
	}
	first := NewQuery(cache, folderKey("same"), fetch)
	second := NewQuery(cache, folderKey("same"), fetch)

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan State[[]string], 1)
	go func() { firstDone <- first.Fetch(ctx) }()
	time.Sleep(10 * time.Millisecond)
	secondDone := make(chan State[[]string], 1)
	go func() { secondDone <- second.Fetch(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	cancel()
	if st := <-firstDone; !errors.Is(st.Err, context.Canceled) {
		t.Fatalf("expected first caller cancelled, got %+v", st)
	}
	close(release)
	st := <-secondDone
	if st.Status != Success || len(st.Data) != 1 {
		t.Fatalf("expected second caller to succeed, got %+v", st)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one load, got %d", calls.Load())
	}
	if _, ok, fresh := cache.Get(folderKey("same")); !ok || !fresh {
		t.Fatalf("expected cached result, ok=%v fresh=%v", ok, fresh)
	}
}

func TestSharedLoadTimesOut(t *testing.T) {
	cache := NewCache()
	cache.timeout = 20 * time.Millisecond
	q := NewQuery(cache, folderKey("a"), func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	st := q.Fetch(context.Background())
	if st.Status != Error || !errors.Is(st.Err, context.DeadlineExceeded) {
		t.Fatalf("expected load deadline, got %+v", st)
	}
}

func TestInvalidateDuringFetchLeavesEntryStale(t *testing.T) {
	cache := NewCache()
	gate := make(chan struct{})
	var calls atomic.Int32
	q := NewQuery(cache, folderKey("a"), func(ctx context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			<-gate
		}
		return []string{"v"}, nil
	})
	done := make(chan struct{})
	go func() {
		q.Fetch(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cache.Invalidate(Key{Entity: "folders"}, false)
	close(gate)
	<-done
	if _, ok, fresh := cache.Get(folderKey("a")); !ok || fresh {
		t.Fatalf("expected stale entry, ok=%v fresh=%v", ok, fresh)
	}
}

func TestKeyMatches(t *testing.T) {
	k := Key{Entity: "playlist", Scope: "4", Params: "sortBy=playOrder"}
	if !k.Matches(Key{Entity: "playlist"}, false) {
		t.Fatalf("expected entity prefix match")
	}
	if !k.Matches(Key{Entity: "playlist", Scope: "4"}, false) {
		t.Fatalf("expected scope prefix match")
	}
	if k.Matches(Key{Entity: "playlist", Scope: "5"}, false) {
		t.Fatalf("unexpected scope match")
	}
	if k.Matches(Key{Entity: "playlist", Scope: "4"}, true) {
		t.Fatalf("exact should not match prefix")
	}
}

func TestTTLExpiry(t *testing.T) {
	now := time.Unix(100, 0)
	cache := NewCache(WithTTL(time.Minute), WithNow(func() time.Time { return now }))
	cache.Set(folderKey("a"), []string{"x"})
	if _, _, fresh := cache.Get(folderKey("a")); !fresh {
		t.Fatalf("expected fresh")
	}
	now = now.Add(2 * time.Minute)
	if _, _, fresh := cache.Get(folderKey("a")); fresh {
		t.Fatalf("expected expired")
	}
}

type folder struct {
	ID   int
	Name string
}

func TestMutationPatchRewritesAllCachedLists(t *testing.T) {
	cache := NewCache()
	cache.Set(folderKey("a"), []folder{{1, "a"}, {2, "b"}})
	cache.Set(folderKey("b"), []folder{{2, "b"}})
	cache.Set(Key{Entity: "players"}, []folder{{2, "b"}})
	m := &Mutation[int, struct{}]{
		Cache: cache,
		Do: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, nil
		},
		Patch: func(c *Cache, id int, _ struct{}) {
			UpdateSlices(c, Key{Entity: "folders"}, func(items []folder) []folder {
				out := items[:0:0]
				for _, f := range items {
					if f.ID != id {
						out = append(out, f)
					}
				}
				return out
			})
		},
	}
	if _, err := m.Run(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _, fresh := cache.Get(folderKey("a"))
	if got := v.([]folder); len(got) != 1 || got[0].ID != 1 || !fresh {
		t.Fatalf("unexpected patched list %v fresh=%v", got, fresh)
	}
	v, _, _ = cache.Get(folderKey("b"))
	if len(v.([]folder)) != 0 {
		t.Fatalf("expected second list patched")
	}
	v, _, _ = cache.Get(Key{Entity: "players"})
	if len(v.([]folder)) != 1 {
		t.Fatalf("other entities must not be patched")
	}
	if status, _ := m.State(); status != MutationSuccess {
		t.Fatalf("expected success, got %v", status)
	}
}

func TestMutationInvalidates(t *testing.T) {
	cache := NewCache()
	cache.Set(Key{Entity: "playlist", Scope: "4", Params: "p"}, []folder{})
	var succeeded bool
	m := &Mutation[int, string]{
		Cache: cache,
		Do: func(ctx context.Context, in int) (string, error) {
			return "ok", nil
		},
		Invalidate: func(in int, out string) []Key {
			return []Key{{Entity: "playlist", Scope: "4"}}
		},
		OnSuccess: func(in int, out string) { succeeded = true },
	}
	if _, err := m.Run(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, fresh := cache.Get(Key{Entity: "playlist", Scope: "4", Params: "p"}); fresh {
		t.Fatalf("expected invalidated")
	}
	if !succeeded {
		t.Fatalf("expected success callback")
	}
}

func TestMutationErrorSkipsReconcile(t *testing.T) {
	cache := NewCache()
	cache.Set(folderKey("a"), []folder{})
	m := &Mutation[int, string]{
		Cache: cache,
		Do: func(ctx context.Context, in int) (string, error) {
			return "", errors.New("nope")
		},
		Invalidate: func(in int, out string) []Key {
			return []Key{{Entity: "folders"}}
		},
	}
	if _, err := m.Run(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}
	if _, _, fresh := cache.Get(folderKey("a")); !fresh {
		t.Fatalf("failed mutation must not invalidate")
	}
	if status, err := m.State(); status != MutationError || err == nil {
		t.Fatalf("expected error state")
	}
}

func TestMutationRejectsConcurrentRun(t *testing.T) {
	gate := make(chan struct{})
	m := &Mutation[int, int]{
		Do: func(ctx context.Context, in int) (int, error) {
			<-gate
			return in, nil
		},
	}
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), 1)
		close(done)
	}()
	for !m.Pending() {
		time.Sleep(time.Millisecond)
	}
	if _, err := m.Run(context.Background(), 2); !errors.Is(err, ErrMutationPending) {
		t.Fatalf("expected pending error, got %v", err)
	}
	close(gate)
	<-done
}

func TestConfirmGate(t *testing.T) {
	var gate ConfirmGate[int]
	if err := gate.Confirm(context.Background(), func(context.Context, int) error { return nil }); !errors.Is(err, ErrGateClosed) {
		t.Fatalf("expected closed gate error")
	}
	gate.Open(7)
	err := gate.Confirm(context.Background(), func(ctx context.Context, id int) error {
		return errors.New("server down")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if id, ok := gate.Target(); !ok || id != 7 {
		t.Fatalf("gate should stay open on error")
	}
	var got int
	if err := gate.Confirm(context.Background(), func(ctx context.Context, id int) error {
		got = id
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected target 7, got %d", got)
	}
	if _, ok := gate.Target(); ok {
		t.Fatalf("expected closed after success")
	}
	gate.Open(3)
	gate.Cancel()
	if _, ok := gate.Target(); ok {
		t.Fatalf("expected closed after cancel")
	}
}
