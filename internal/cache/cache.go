package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/pkg/models"
)

// Entry is one memoized pipeline outcome. Terminal not-found outcomes are
// cached too: re-running the whole pipeline on the same frame will not find
// the title the second time either.
type Entry struct {
	Fingerprint string              `json:"fingerprint"`
	Record      *models.MediaRecord `json:"record,omitempty"`
	NotFound    bool                `json:"not_found,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ComputeFunc produces the outcome for a fingerprint on a cache miss.
type ComputeFunc func(ctx context.Context) (*models.MediaRecord, error)

// Cache memoizes end-to-end identification results by input fingerprint.
// Concurrent requests for the same fingerprint share one computation, so
// duplicate uploads never trigger duplicate external-API calls. An empty
// path disables persistence; a nil *Cache disables caching entirely and is
// always a valid, merely slower, configuration.
type Cache struct {
	path    string
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]Entry
	group   singleflight.Group
}

// New creates a cache. The backing file is loaded if present and created
// lazily on first store.
func New(path string, ttl time.Duration) *Cache {
	c := &Cache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]Entry),
	}
	if path != "" {
		if err := c.load(); err != nil {
			logger.WithError(err).Warn("request cache starts empty, persisted entries unreadable")
		}
	}
	return c
}

// FingerprintBytes hashes raw image bytes into a cache key.
func FingerprintBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// FingerprintText hashes a normalized text query into a cache key.
func FingerprintText(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached outcome for fingerprint or runs compute
// at most once across concurrent callers. Only terminal outcomes (a record,
// or NotFound) are stored; transient failures are not.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) (*models.MediaRecord, error) {
	if c == nil {
		return compute(ctx)
	}

	if record, notFound, ok := c.lookup(fingerprint); ok {
		if notFound {
			return nil, apperrors.NewNotFoundError("no match (cached)", nil)
		}
		return record, nil
	}

	result, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		// A racing caller may have stored the entry while we queued.
		if record, notFound, ok := c.lookup(fingerprint); ok {
			if notFound {
				return nil, apperrors.NewNotFoundError("no match (cached)", nil)
			}
			return record, nil
		}

		record, err := compute(ctx)
		switch {
		case err == nil:
			c.store(Entry{Fingerprint: fingerprint, Record: record, CreatedAt: time.Now()})
			return record, nil
		case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
			c.store(Entry{Fingerprint: fingerprint, NotFound: true, CreatedAt: time.Now()})
			return nil, err
		default:
			return nil, err
		}
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.MediaRecord), nil
}

func (c *Cache) lookup(fingerprint string) (*models.MediaRecord, bool, bool) {
	c.mu.RLock()
	entry, found := c.entries[fingerprint]
	c.mu.RUnlock()
	if !found {
		return nil, false, false
	}
	if c.ttl > 0 && time.Since(entry.CreatedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, fingerprint)
		c.mu.Unlock()
		return nil, false, false
	}
	return entry.Record, entry.NotFound, true
}

func (c *Cache) store(entry Entry) {
	c.mu.Lock()
	c.entries[entry.Fingerprint] = entry
	var saveErr error
	if c.path != "" {
		saveErr = c.save()
	}
	c.mu.Unlock()

	if saveErr != nil {
		// Persistence is best effort; the in-memory entry stands.
		logger.WithError(saveErr).Warn("request cache persist failed")
	}
}

// load reads the persisted key-to-record mapping. Called once at startup.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// save writes the mapping atomically via a temp file. Caller holds the lock.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
