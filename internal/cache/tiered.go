package cache

import (
	"errors"

	"github.com/charmbracelet/log"
)

// Tiered checks memory first, then disk, promoting disk hits into memory.
type Tiered struct {
	memory *MemoryCache
	disk   *DiskCache
}

// New creates a cache from cfg. The disk level is only created when
// cfg.DiskPath is set.
func New(cfg Config) (*Tiered, error) {
	t := &Tiered{memory: NewMemoryCache(cfg.MemoryCapacity, cfg.TTL)}
	if cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel, cfg.TTL)
		if err != nil {
			return nil, err
		}
		t.disk = disk
	}
	return t, nil
}

// Get looks key up in memory, then on disk.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if v, ok := t.memory.Get(key); ok {
		log.Debug("Cache hit", "key", key, "level", LevelMemory)
		return v, true
	}
	if t.disk == nil {
		return nil, false
	}
	v, ok := t.disk.Get(key)
	if !ok {
		return nil, false
	}
	log.Debug("Cache hit", "key", key, "level", LevelDisk)
	if err := t.memory.Put(key, v); err != nil && !errors.Is(err, ErrItemTooLarge) {
		log.Debug("Cache promotion failed", "key", key, "error", err)
	}
	return v, true
}

// Put stores value on every level. An item too large for memory still goes
// to disk.
func (t *Tiered) Put(key string, value []byte) error {
	memErr := t.memory.Put(key, value)
	if t.disk == nil {
		return memErr
	}
	if err := t.disk.Put(key, value); err != nil {
		return err
	}
	if memErr != nil && !errors.Is(memErr, ErrItemTooLarge) {
		return memErr
	}
	return nil
}

// Delete removes key from every level.
func (t *Tiered) Delete(key string) error {
	_ = t.memory.Delete(key)
	if t.disk != nil {
		return t.disk.Delete(key)
	}
	return nil
}

// Clear empties every level.
func (t *Tiered) Clear() error {
	_ = t.memory.Clear()
	if t.disk != nil {
		return t.disk.Clear()
	}
	return nil
}

// Stats combines the counters of both levels. Hits count once per lookup.
func (t *Tiered) Stats() Stats {
	s := t.memory.Stats()
	if t.disk == nil {
		return s
	}
	d := t.disk.Stats()
	s.Capacity += d.Capacity
	s.Size += d.Size
	s.Evictions += d.Evictions
	s.Hits += d.Hits
	s.Misses = d.Misses
	s.Items = max(s.Items, d.Items)
	return s
}
