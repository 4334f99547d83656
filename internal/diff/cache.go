// internal/diff/cache.go
package diff

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"knowtree/internal/history"
)

// Cache stores formatted diff blocks on disk, zstd-compressed and keyed by
// content address. Commits are immutable once fetched, so entries never need
// invalidation.
type Cache struct {
	baseDir string
	mu      sync.RWMutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCache creates a cache rooted at baseDir.
func NewCache(baseDir string, compressionLevel int) (*Cache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Cache{
		baseDir: baseDir,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Key derives the cache key for one formatted commit block.
func Key(repoID, sha string, includePatch bool) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%t", repoID, sha, includePatch)))
	return fmt.Sprintf("%x", h)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.baseDir, key+".zst")
}

// Get returns the cached block for key, or ok=false on a miss.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	compressed, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return "", false
	}

	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		// A corrupt entry behaves like a miss; the caller reformats.
		return "", false
	}
	return string(data), true
}

// FormatAll is the caching variant of the package-level FormatAll: each
// commit's block is served from the cache when present and stored after
// formatting. Fetch errors are inlined like the direct path and never cached.
func (c *Cache) FormatAll(ctx context.Context, source history.Source, repoID string, shas []string, includePatch bool) string {
	return formatBatch(shas, func(sha string) (string, error) {
		key := Key(repoID, sha, includePatch)
		if block, ok := c.Get(key); ok {
			return block, nil
		}

		detail, err := source.Commit(ctx, repoID, sha)
		if err != nil {
			return "", err
		}
		block := Format(detail, includePatch)
		// A failed cache write only costs a refetch next time.
		_ = c.Put(key, block)
		return block, nil
	})
}

// Put stores a formatted block under key.
func (c *Cache) Put(key, block string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	compressed := c.encoder.EncodeAll([]byte(block), nil)
	if err := os.WriteFile(c.entryPath(key), compressed, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
