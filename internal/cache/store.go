package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// maxMemoryEntries bounds the in-memory LRU tier
	maxMemoryEntries = 10000

	// flushEveryWrites triggers a flush after this many uncommitted writes
	flushEveryWrites = 20

	// flushEveryInterval triggers a flush when the last one is older than this
	flushEveryInterval = 60 * time.Second

	cacheFileName = "classification_cache.json"
)

// Entry is the durable representation of one cached classification.
// The on-disk file is a JSON object mapping cache key -> Entry.
type Entry struct {
	Classification  string `json:"classification"`
	Timestamp       string `json:"timestamp"`
	Model           string `json:"model"`
	CategoriesCount int    `json:"categories_count"`
}

// Store is a durable, thread-safe, time-boxed classification cache. It keeps
// a bounded in-memory LRU tier in front of an unbounded durable tier that is
// loaded from and periodically flushed to disk. One coarse lock covers both
// read and write paths: cache operations are fast relative to the remote
// call, so correctness wins over fine-grained concurrency.
type Store struct {
	mu      sync.Mutex
	memory  *lru.Cache[string, string]
	durable *gocache.Cache
	ttl     time.Duration
	path    string
	logger  *zap.Logger

	unsaved   int
	lastFlush time.Time

	now func() time.Time
}

// NewStore creates a classification cache rooted at dir, loading any durable
// state left by previous runs. A missing or unparsable store is treated as an
// empty cache rather than an error.
func NewStore(dir string, ttlDays int, preload bool, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	memory, err := lru.New[string, string](maxMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}

	ttl := time.Duration(ttlDays) * 24 * time.Hour
	s := &Store{
		memory:  memory,
		durable: gocache.New(ttl, 0),
		ttl:     ttl,
		path:    filepath.Join(dir, cacheFileName),
		logger:  logger,
		now:     time.Now,
	}
	s.lastFlush = s.now()

	loaded := s.load()
	if preload {
		logger.Info("classification cache loaded", zap.Int("entries", loaded), zap.String("path", s.path))
	}

	return s, nil
}

// Lookup returns the cached classification for a request, or false on any
// miss, expiry, or validation failure. A miss is always a safe degradation.
func (s *Store) Lookup(text string, categories []string, model, promptTemplate string) (string, bool) {
	key := Key(text, categories, model, promptTemplate)
	if key == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Memory tier first; a hit promotes to most-recently-used.
	if label, ok := s.memory.Get(key); ok {
		return label, true
	}

	raw, ok := s.durable.Get(key)
	if !ok {
		return "", false
	}

	entry, ok := raw.(Entry)
	if !ok || entry.Classification == "" {
		s.durable.Delete(key)
		s.unsaved++
		return "", false
	}

	ts, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil || s.now().Sub(ts) >= s.ttl {
		// Malformed or stale: delete eagerly.
		s.durable.Delete(key)
		s.unsaved++
		return "", false
	}

	s.memory.Add(key, entry.Classification)
	return entry.Classification, true
}

// Put records a classification in both tiers and flushes the durable tier
// when enough writes or time have accumulated.
func (s *Store) Put(text string, categories []string, model, promptTemplate, classification string) {
	key := Key(text, categories, model, promptTemplate)
	if key == "" || classification == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.Add(key, classification)

	entry := Entry{
		Classification:  classification,
		Timestamp:       s.now().Format(time.RFC3339),
		Model:           model,
		CategoriesCount: len(categories),
	}
	s.durable.Set(key, entry, s.ttl)
	s.unsaved++

	if s.unsaved >= flushEveryWrites ||
		s.now().Sub(s.lastFlush) > flushEveryInterval ||
		s.durable.ItemCount()%100 == 0 {
		if err := s.flushLocked(); err != nil {
			s.logger.Warn("cache flush failed", zap.Error(err))
		}
	}
}

// Flush persists the durable tier, dropping entries older than the TTL
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// MemoryLen reports the memory tier occupancy
func (s *Store) MemoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.Len()
}

// flushLocked writes the durable tier atomically: temp write, backup rotate,
// rename into place. A failed write attempts restoration from the backup so
// the durable tier is never left partially written or missing. Callers must
// hold s.mu.
func (s *Store) flushLocked() error {
	// Items() excludes expired entries, so stale state is dropped here.
	items := s.durable.Items()
	snapshot := make(map[string]Entry, len(items))
	for key, item := range items {
		if entry, ok := item.Object.(Entry); ok {
			snapshot[key] = entry
		}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmpPath := s.path + ".tmp"
	backupPath := s.path + ".backup"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp cache: %w", err)
	}

	rotated := false
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, backupPath); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
		rotated = true
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if rotated {
			if restoreErr := os.Rename(backupPath, s.path); restoreErr != nil {
				s.logger.Error("cache backup restore failed", zap.Error(restoreErr))
			} else {
				s.logger.Info("cache restored from backup")
			}
		}
		return fmt.Errorf("rename cache into place: %w", err)
	}

	if rotated {
		_ = os.Remove(backupPath)
	}

	s.unsaved = 0
	s.lastFlush = s.now()
	s.logger.Debug("cache flushed", zap.Int("entries", len(snapshot)))

	return nil
}

// load reads the durable tier from disk, skipping malformed or expired
// entries, and returns how many entries survived.
func (s *Store) load() int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}

	var stored map[string]Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("unparsable cache file, starting empty", zap.Error(err))
		return 0
	}

	loaded := 0
	for key, entry := range stored {
		if entry.Classification == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		remaining := s.ttl - s.now().Sub(ts)
		if remaining <= 0 {
			continue
		}
		s.durable.Set(key, entry, remaining)
		loaded++
	}

	return loaded
}
