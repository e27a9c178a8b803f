package cache_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/internal/storage/kv"
)

// TestEntry 测试用的缓存值.
type TestEntry struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Hits  int    `json:"hits"`
}

// mockKVStore 模拟KV存储实现.
type mockKVStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		data: make(map[string][]byte),
	}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value, exists := m.data[key]; exists {
		return value, nil
	}

	return nil, kv.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value

	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.data[key]

	return exists, nil
}

func (m *mockKVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (m *mockKVStore) Close() error {
	return nil
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.NewCache(newMockKVStore(), "dv.links")

	_, err := cache.Get[TestEntry](context.Background(), c, "nope")
	if !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestCache_SetUsesNamespace(t *testing.T) {
	store := newMockKVStore()
	c := cache.NewCache(store, "dv.links.")
	ctx := context.Background()

	if err := cache.Set(ctx, c, "abc", TestEntry{ID: "lk_1"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, ok := store.data["dv.links.abc"]; !ok {
		t.Fatalf("expected namespaced key, have %v", store.data)
	}

	got, err := cache.Get[TestEntry](ctx, c, "abc")
	if err != nil || got.ID != "lk_1" {
		t.Fatalf("unexpected %+v %v", got, err)
	}

	if err := c.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ok, _ := c.Exists(ctx, "abc"); ok {
		t.Fatal("key should be gone")
	}
}

func TestGetOrSet(t *testing.T) {
	c := cache.NewCache(newMockKVStore(), "")
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (TestEntry, error) {
		calls++

		return TestEntry{ID: "lk_5", Token: "t"}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "k", loader, 0)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	second, err := cache.GetOrSet(ctx, c, "k", loader, 0)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected loader once, got %d", calls)
	}

	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestGetOrSet_LoaderError(t *testing.T) {
	c := cache.NewCache(newMockKVStore(), "")
	boom := errors.New("loader error")

	_, err := cache.GetOrSet(context.Background(), c, "k", func(context.Context) (TestEntry, error) {
		return TestEntry{}, boom
	}, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestGetOrSet_CollapsesConcurrentMisses(t *testing.T) {
	c := cache.NewCache(newMockKVStore(), "")
	ctx := context.Background()

	var calls atomic.Int32

	release := make(chan struct{})
	loader := func(context.Context) (TestEntry, error) {
		calls.Add(1)
		<-release

		return TestEntry{ID: "lk_9"}, nil
	}

	const n = 8

	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)

	started.Add(n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			started.Done()

			if _, err := cache.GetOrSet(ctx, c, "hot", loader, 0); err != nil {
				t.Errorf("get or set: %v", err)
			}
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got < 1 || got > n {
		t.Fatalf("unexpected loader calls %d", got)
	}

	if calls.Load() == n {
		t.Errorf("expected concurrent misses to share a loader call")
	}
}

func TestGetOrSetConfirmed_RollsBackOnConfirmError(t *testing.T) {
	ctx := context.Background()
	store := newMockKVStore()
	c := cache.NewCache(store, "test")
	gone := errors.New("gone")

	_, err := cache.GetOrSetConfirmed(ctx, c, "k",
		func(context.Context) (TestEntry, error) { return TestEntry{ID: "1"}, nil },
		func(context.Context, TestEntry) error { return gone },
		time.Minute,
	)
	if !errors.Is(err, gone) {
		t.Fatalf("expected confirm error, got %v", err)
	}

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatal("entry should be removed when confirm fails")
	}

	got, err := cache.GetOrSetConfirmed(ctx, c, "k",
		func(context.Context) (TestEntry, error) { return TestEntry{ID: "2"}, nil },
		func(context.Context, TestEntry) error { return nil },
		time.Minute,
	)
	if err != nil || got.ID != "2" {
		t.Fatalf("got %+v, %v", got, err)
	}

	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Fatal("confirmed entry should stay cached")
	}
}

func TestCache_ClearOnlyNamespace(t *testing.T) {
	store := newMockKVStore()
	links := cache.NewCache(store, "dv.links")
	other := cache.NewCache(store, "dv.other")
	ctx := context.Background()

	_ = cache.Set(ctx, links, "a", 1, 0)
	_ = cache.Set(ctx, links, "b", 2, 0)
	_ = cache.Set(ctx, other, "a", 3, 0)

	if err := links.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if len(store.data) != 1 {
		t.Fatalf("expected only foreign namespace to survive, have %v", store.data)
	}
}
