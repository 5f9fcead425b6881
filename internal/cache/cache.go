// Package cache implements the content-addressed per-blob extraction
// cache of spec.md §6: a directory containing one entry per source path,
// keyed by the hex of a stable 64-bit hash of the path, storing the blob
// id the entry was computed from alongside its extracted symbols.
//
// Adapted from the teacher's internal/index/badger.go (same BadgerOptions
// shape, same block/index cache sizing) but narrowed to exactly this
// key/value schema instead of a general KV Storage interface.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/73ai/gossiphs/internal/extractor"
)

// Entry is the cached extraction result for one path at one blob id.
type Entry struct {
	BlobID  string             `json:"blob_id"`
	Symbols []extractor.Symbol `json:"symbols"`
}

// Options configures the BadgerDB instance backing the cache.
type Options struct {
	Dir              string
	InMemory         bool
	ValueLogFileSize int64
	BlockCacheSize   int64 // MB
	IndexCacheSize   int64 // MB
}

// DefaultOptions returns cache options sized for a single-repo build.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:              dir,
		ValueLogFileSize: 1 << 30,
		BlockCacheSize:   256,
		IndexCacheSize:   64,
	}
}

// Cache is the BadgerDB-backed blob cache.
type Cache struct {
	db *badger.DB
}

// Open opens (creating if absent) the cache database at opts.Dir.
func Open(opts Options) (*Cache, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithLogger(nil).
		WithDetectConflicts(false).
		WithCompression(options.ZSTD)

	if opts.ValueLogFileSize > 0 {
		badgerOpts = badgerOpts.WithValueLogFileSize(opts.ValueLogFileSize)
	}
	if opts.BlockCacheSize > 0 {
		badgerOpts = badgerOpts.WithBlockCacheSize(opts.BlockCacheSize << 20)
	}
	if opts.IndexCacheSize > 0 {
		badgerOpts = badgerOpts.WithIndexCacheSize(opts.IndexCacheSize << 20)
	}
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func pathKey(path string) []byte {
	h := xxhash.Sum64String(path)
	return []byte(fmt.Sprintf("%016x", h))
}

// Get returns the cached symbols for path iff an entry exists and its
// recorded blob id matches blobID. A hash mismatch, missing key, or
// decode failure all return (nil, false) — never an error, never a
// panic, per spec.md §8's cache round-trip property.
func (c *Cache) Get(path, blobID string) ([]extractor.Symbol, bool) {
	key := pathKey(path)

	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if entry.BlobID != blobID {
		return nil, false
	}
	return entry.Symbols, true
}

// Set stores syms for path at blobID, overwriting any prior entry.
func (c *Cache) Set(path, blobID string, syms []extractor.Symbol) error {
	raw, err := json.Marshal(Entry{BlobID: blobID, Symbols: syms})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	key := pathKey(path)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
}
