package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Level identifies a cache tier.
type Level int

const (
	// LevelMemory is the in-process LRU.
	LevelMemory Level = iota

	// LevelDisk is the persistent compressed store.
	LevelDisk
)

// String returns the name of the level.
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// String renders the stats for logs.
func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s of %s, %.0f%% hits",
		s.Items, humanize.Bytes(uint64(s.Size)), humanize.Bytes(uint64(s.Capacity)), s.HitRate()*100)
}

// Cache stores page text by URL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Stats() Stats
}

// Config configures a Tiered cache.
type Config struct {
	// MemoryCapacity is the L1 size in bytes.
	MemoryCapacity int64

	// DiskPath enables the L2 level when set.
	DiskPath string

	// DiskCapacity is the L2 size in bytes, measured after compression.
	DiskCapacity int64

	// CompressionLevel is the zstd level; zero stores pages uncompressed.
	CompressionLevel int

	// TTL expires entries on both levels. Zero keeps entries until evicted.
	TTL time.Duration
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   8 * 1024 * 1024,
		DiskCapacity:     64 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              time.Hour,
	}
}

// expired reports whether an entry stored at ts has outlived ttl.
func expired(ts time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(ts) > ttl
}
