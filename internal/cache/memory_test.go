package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024, 0)

	key := "https://example.com/article"
	value := []byte("Article text")

	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(retrieved) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", retrieved, value)
	}
	if s := cache.Stats(); s.Size != int64(len(value)) || s.Items != 1 {
		t.Errorf("Stats mismatch: %+v", s)
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := cache.Get(key); ok {
		t.Error("Key still exists after delete")
	}
	if s := cache.Stats(); s.Size != 0 {
		t.Errorf("Size not zero after delete: %d", s.Size)
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100, 0)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	// key-0 and key-1 become most recently used.
	cache.Get("key-0")
	cache.Get("key-1")

	if err := cache.Put("key-new", make([]byte, 30)); err != nil {
		t.Fatalf("Put failed for new key: %v", err)
	}

	for _, key := range []string{"key-0", "key-1", "key-4", "key-new"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
	for _, key := range []string{"key-2", "key-3"} {
		if _, ok := cache.Get(key); ok {
			t.Errorf("%s should have been evicted", key)
		}
	}
	if s := cache.Stats(); s.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", s.Evictions)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(10, 0)
	if err := cache.Put("big", make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	cache := NewMemoryCache(100, 0)
	_ = cache.Put("k", make([]byte, 40))
	_ = cache.Put("k", make([]byte, 10))
	if s := cache.Stats(); s.Size != 10 || s.Items != 1 {
		t.Errorf("Stats after overwrite = %+v", s)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	cache := NewMemoryCache(100, time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	_ = cache.Put("page", []byte("text"))
	if _, ok := cache.Get("page"); !ok {
		t.Fatal("fresh entry missing")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("page"); ok {
		t.Error("expired entry returned")
	}
	if s := cache.Stats(); s.Items != 0 {
		t.Errorf("expired entry not removed: %+v", s)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(1024, 0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%5)
				_ = cache.Put(key, []byte("value"))
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if s := cache.Stats(); s.Size > 1024 {
		t.Errorf("Size %d exceeds capacity", s.Size)
	}
}

func TestStatsHitRate(t *testing.T) {
	s := Stats{Hits: 3, Misses: 1, Capacity: 2048, Size: 1024, Items: 2}
	if s.HitRate() != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", s.HitRate())
	}
	if got := s.String(); got != "2 items, 1.0 kB of 2.0 kB, 75% hits" {
		t.Errorf("String() = %q", got)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("HitRate() of empty stats should be 0")
	}
}
