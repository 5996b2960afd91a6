// Package snapshot keeps recently read snapshot payloads on local disk so
// repeated reads skip object storage.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	snapshotrepo "ghimport/internal/gateway/repository/snapshot"
)

type DiskConfig struct {
	Dir      string
	MaxBytes int64
	TTL      time.Duration
}

func DefaultDiskConfig(dir string) DiskConfig {
	return DiskConfig{Dir: dir, MaxBytes: 256 << 20, TTL: 24 * time.Hour}
}

type diskEntry struct {
	file     string
	size     int64
	storedAt time.Time
	usedAt   time.Time
}

// DiskBlobs is a read-through cache over another snapshotrepo.Blobs.
// Writes and deletes go to the origin first and then update the cache.
// The index lives in memory and is rebuilt from the directory on start.
type DiskBlobs struct {
	origin snapshotrepo.Blobs
	dir    string
	cfg    DiskConfig
	now    func() time.Time

	mu         sync.Mutex
	entries    map[string]*diskEntry
	totalBytes int64
}

var _ snapshotrepo.Blobs = (*DiskBlobs)(nil)

func NewDiskBlobs(origin snapshotrepo.Blobs, cfg DiskConfig) (*DiskBlobs, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &DiskBlobs{
		origin:  origin,
		dir:     dir,
		cfg:     cfg,
		now:     time.Now,
		entries: map[string]*diskEntry{},
	}
	// Files left by a previous process are not indexed by key, so they
	// cannot be served; drop them.
	if err := d.sweep(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DiskBlobs) sweep() error {
	items, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.IsDir() || !strings.HasSuffix(it.Name(), ".blob") {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, it.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (d *DiskBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := d.lookup(key); ok {
		return data, nil
	}
	data, err := d.origin.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	d.store(key, data)
	return data, nil
}

func (d *DiskBlobs) Put(ctx context.Context, key string, data []byte) error {
	if err := d.origin.Put(ctx, key, data); err != nil {
		return err
	}
	d.store(key, data)
	return nil
}

func (d *DiskBlobs) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	if ent, ok := d.entries[key]; ok {
		d.removeLocked(key, ent)
	}
	d.mu.Unlock()
	return d.origin.Delete(ctx, key)
}

// Len is the number of cached payloads.
func (d *DiskBlobs) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *DiskBlobs) lookup(key string) ([]byte, bool) {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	ent, ok := d.entries[key]
	if !ok {
		return nil, false
	}
	if now.Sub(ent.storedAt) > d.cfg.TTL {
		d.removeLocked(key, ent)
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(d.dir, ent.file))
	if err != nil {
		d.removeLocked(key, ent)
		return nil, false
	}
	ent.usedAt = now
	return data, true
}

// store caches data; failures only cost a future origin read.
func (d *DiskBlobs) store(key string, data []byte) {
	if d.cfg.MaxBytes > 0 && int64(len(data)) > d.cfg.MaxBytes {
		return
	}
	file := hashedName(key)
	tmp := filepath.Join(d.dir, file+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	if err := os.Rename(tmp, filepath.Join(d.dir, file)); err != nil {
		_ = os.Remove(tmp)
		return
	}

	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.entries[key]; ok {
		d.totalBytes -= old.size
	}
	d.entries[key] = &diskEntry{file: file, size: int64(len(data)), storedAt: now, usedAt: now}
	d.totalBytes += int64(len(data))
	d.evictLocked()
}

func (d *DiskBlobs) evictLocked() {
	if d.cfg.MaxBytes <= 0 || d.totalBytes <= d.cfg.MaxBytes {
		return
	}
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := d.entries[keys[i]].usedAt, d.entries[keys[j]].usedAt
		if a.Equal(b) {
			return keys[i] < keys[j]
		}
		return a.Before(b)
	})
	for _, k := range keys {
		if d.totalBytes <= d.cfg.MaxBytes {
			return
		}
		d.removeLocked(k, d.entries[k])
	}
}

func (d *DiskBlobs) removeLocked(key string, ent *diskEntry) {
	delete(d.entries, key)
	d.totalBytes -= ent.size
	if d.totalBytes < 0 {
		d.totalBytes = 0
	}
	_ = os.Remove(filepath.Join(d.dir, ent.file))
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".blob"
}
