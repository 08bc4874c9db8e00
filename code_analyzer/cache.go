package code_analyzer

import (
	"io/fs"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/morler/codeassist/code_analyzer/models"
	"gitlab.com/tozd/go/errors"
)

// DefaultCacheSize bounds the number of memoised analyses.
const DefaultCacheSize = 4096

// CacheEntry represents a cached analysis with the file state it was computed from
type CacheEntry struct {
	Analysis  *models.FileAnalysis
	Timestamp time.Time
	FileSize  int64
	ModTime   time.Time
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager memoises analyses per absolute path and drops an entry as soon
// as the file's size or modification time no longer matches.
type CacheManager struct {
	entries *lru.Cache[string, *CacheEntry]
	stats   *CacheStats
}

// NewCacheManager creates a new cache manager instance.
// A non-positive size falls back to DefaultCacheSize.
func NewCacheManager(size int) (*CacheManager, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	entries, err := lru.New[string, *CacheEntry](size)
	if err != nil {
		return nil, errors.Errorf("failed to create analysis cache: %w", err)
	}

	return &CacheManager{
		entries: entries,
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}, nil
}

// isFileChanged checks if a file has been modified since it was cached
func isFileChanged(info fs.FileInfo, entry *CacheEntry) bool {
	return !info.ModTime().Equal(entry.ModTime) || info.Size() != entry.FileSize
}

// Get returns a copy of the cached analysis for path when info still
// describes the same file state.
func (cm *CacheManager) Get(path string, info fs.FileInfo) (*models.FileAnalysis, bool) {
	entry, found := cm.entries.Get(path)
	if !found {
		cm.recordCacheMiss()
		return nil, false
	}

	if isFileChanged(info, entry) {
		cm.entries.Remove(path)
		cm.recordCacheMiss()
		return nil, false
	}

	cm.recordCacheHit()
	analysis := *entry.Analysis
	return &analysis, true
}

// Set stores analysis under path.
func (cm *CacheManager) Set(path string, analysis *models.FileAnalysis) {
	stored := *analysis
	cm.entries.Add(path, &CacheEntry{
		Analysis:  &stored,
		Timestamp: time.Now(),
		FileSize:  analysis.Size,
		ModTime:   analysis.ModTime,
	})
}

// Delete removes a cache entry
func (cm *CacheManager) Delete(path string) {
	cm.entries.Remove(path)
}

// Clear removes all cache entries
func (cm *CacheManager) Clear() {
	cm.entries.Purge()
}

// Len returns the number of cached analyses.
func (cm *CacheManager) Len() int {
	return cm.entries.Len()
}
