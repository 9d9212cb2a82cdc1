package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	compressedExt = ".zst"
	plainExt      = ".txt"

	// minCompressSize is the smallest value worth compressing.
	minCompressSize = 1024
)

// DiskCache stores one file per key under a directory. The file's
// modification time is the entry timestamp, so no index is kept.
type DiskCache struct {
	basePath string
	capacity int64
	ttl      time.Duration

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	stats Stats

	now func() time.Time
}

// NewDiskCache creates a disk cache under basePath. A compressionLevel of
// zero stores values as plain files.
func NewDiskCache(basePath string, capacity int64, compressionLevel int, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		ttl:      ttl,
		stats:    Stats{Capacity: capacity},
		now:      time.Now,
	}

	var err error
	if compressionLevel > 0 {
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so pages written with compression
	// stay readable after it is turned off.
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return dc, nil
}

// keyName hashes key into a file name stem.
func keyName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (dc *DiskCache) paths(key string) (compressed, plain string) {
	stem := filepath.Join(dc.basePath, keyName(key))
	return stem + compressedExt, stem + plainExt
}

// Get reads key from disk. Expired or unreadable files are removed.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	compressed, plain := dc.paths(key)
	for _, path := range []string{compressed, plain} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if expired(info.ModTime(), dc.ttl, dc.now()) {
			_ = os.Remove(path)
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil && path == compressed {
			data, err = dc.decoder.DecodeAll(data, nil)
		}
		if err != nil {
			log.Debug("Dropping unreadable cache entry", "path", path, "error", err)
			_ = os.Remove(path)
			continue
		}
		dc.stats.Hits++
		return data, true
	}
	dc.stats.Misses++
	return nil, false
}

// Put writes value for key, evicting the oldest files when over capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, path := value, ""
	compressed, plain := dc.paths(key)
	if dc.encoder != nil && len(value) > minCompressSize {
		if enc := dc.encoder.EncodeAll(value, nil); len(enc) < len(value) {
			data, path = enc, compressed
		}
	}
	if path == "" {
		path = plain
	}
	if int64(len(data)) > dc.capacity {
		return ErrItemTooLarge
	}

	_ = os.Remove(compressed)
	_ = os.Remove(plain)
	if err := dc.evict(int64(len(data))); err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes key.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	compressed, plain := dc.paths(key)
	for _, p := range []string{compressed, plain} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Clear removes every cache file.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	entries, err := dc.entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		_ = os.Remove(e.path)
	}
	return nil
}

// Stats returns counters plus the current on-disk footprint.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	entries, _ := dc.entries()
	for _, e := range entries {
		s.Size += e.size
	}
	s.Items = int64(len(entries))
	return s
}

type diskEntry struct {
	path    string
	size    int64
	modTime time.Time
}

func (dc *DiskCache) entries() ([]diskEntry, error) {
	dirEntries, err := os.ReadDir(dc.basePath)
	if err != nil {
		return nil, err
	}
	var entries []diskEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !(strings.HasSuffix(name, compressedExt) || strings.HasSuffix(name, plainExt)) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, diskEntry{
			path:    filepath.Join(dc.basePath, name),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return entries, nil
}

// evict removes expired files, then the oldest files until incoming fits.
func (dc *DiskCache) evict(incoming int64) error {
	entries, err := dc.entries()
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })

	var total int64
	live := entries[:0]
	for _, e := range entries {
		if expired(e.modTime, dc.ttl, dc.now()) {
			_ = os.Remove(e.path)
			continue
		}
		total += e.size
		live = append(live, e)
	}
	for _, e := range live {
		if total+incoming <= dc.capacity {
			break
		}
		if err := os.Remove(e.path); err == nil {
			total -= e.size
			dc.stats.Evictions++
		}
	}
	return nil
}

// writeFileAtomic writes through a temporary file so readers never see a
// partial page.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
