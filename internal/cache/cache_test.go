package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestStore_Do_CachesLoaderResult(t *testing.T) {
	store := NewStore()
	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := store.Do(context.Background(), "key", loader)
		if err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
		if v != "value" {
			t.Errorf("Do = %v, want %q", v, "value")
		}
	}

	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
}

func TestStore_Do_LoaderErrorNotCached(t *testing.T) {
	store := NewStore()
	calls := 0
	failing := errors.New("load failed")
	loader := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, failing
		}
		return "recovered", nil
	}

	if _, err := store.Do(context.Background(), "key", loader); !errors.Is(err, failing) {
		t.Fatalf("expected load error, got %v", err)
	}

	// エラーはキャッシュされず、次回は再試行される
	v, err := store.Do(context.Background(), "key", loader)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if v != "recovered" {
		t.Errorf("Do = %v, want %q", v, "recovered")
	}
	if calls != 2 {
		t.Errorf("loader calls = %d, want 2", calls)
	}
}

func TestStore_Invalidate_ForcesRefetch(t *testing.T) {
	store := NewStore()
	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := store.Do(context.Background(), "key", loader); err != nil {
		t.Fatal(err)
	}
	store.Invalidate("key")

	v, err := store.Do(context.Background(), "key", loader)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("Do after Invalidate = %v, want 2", v)
	}
}

// 読み込み中にInvalidateが走った場合、結果は呼び出し元に返るが
// 古い世代の値としてキャッシュには格納されないことを検証する。
func TestStore_Do_StaleWriteDiscardedAcrossInvalidate(t *testing.T) {
	store := NewStore()
	loader := func(ctx context.Context) (any, error) {
		// loader実行中に無効化が走ったことを模倣する
		store.Invalidate("key")
		return "stale", nil
	}

	v, err := store.Do(context.Background(), "key", loader)
	if err != nil {
		t.Fatal(err)
	}
	if v != "stale" {
		t.Errorf("Do = %v, want %q (caller still receives the result)", v, "stale")
	}

	// 古い結果はキャッシュされていない
	if _, ok := store.Get("key"); ok {
		t.Error("stale result should not be cached after invalidation")
	}
}

// キャンセル済みコンテキストでの読み込み結果が格納されないことを検証する。
func TestStore_Do_CancelledContextNotCached(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	loader := func(ctx context.Context) (any, error) {
		cancel()
		return "late", nil
	}

	v, err := store.Do(ctx, "key", loader)
	if err != nil {
		t.Fatal(err)
	}
	if v != "late" {
		t.Errorf("Do = %v, want %q", v, "late")
	}
	if _, ok := store.Get("key"); ok {
		t.Error("result arriving after cancellation should not be cached")
	}
}

func TestStore_Get_MissingKey(t *testing.T) {
	store := NewStore()
	if _, ok := store.Get("missing"); ok {
		t.Error("Get should report miss for unknown key")
	}
}

func TestStore_Invalidate_UnknownKey_NoPanic(t *testing.T) {
	store := NewStore()
	store.Invalidate("never-seen")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Do(context.Background(), "key", func(ctx context.Context) (any, error) {
				return "v", nil
			})
		}()
		go func() {
			defer wg.Done()
			store.Invalidate("key")
		}()
	}
	wg.Wait()
}
