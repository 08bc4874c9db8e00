package code_analyzer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/code_analyzer/contracts"
	"github.com/morler/codeassist/code_analyzer/models"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
	"gitlab.com/tozd/go/errors"
)

// CodeAnalyzer computes per-file statistics.
type CodeAnalyzer struct {
	cacheManager *CacheManager
	logger       zerolog.Logger
}

// NewCodeAnalyzer initializes a new CodeAnalyzer. With enableCache false, or
// if the cache cannot be created, every call reads the file.
func NewCodeAnalyzer(logger zerolog.Logger, enableCache bool) contracts.ICodeAnalyzer {
	analyzer := &CodeAnalyzer{logger: logger}

	if enableCache {
		cacheManager, err := NewCacheManager(DefaultCacheSize)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize analysis cache, continuing without it")
		} else {
			analyzer.cacheManager = cacheManager
		}
	}

	return analyzer
}

// Analyze returns size, line count, language tag, modification time and
// content hash of the file at path.
func (analyzer *CodeAnalyzer) Analyze(path string) (*models.FileAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Analysis("stat", path, err)
	}
	if info.IsDir() {
		return nil, apperrors.Analysis("stat", path, errors.New("is a directory"))
	}

	if analyzer.cacheManager != nil {
		if cached, found := analyzer.cacheManager.Get(path, info); found {
			return cached, nil
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Analysis("read", path, err)
	}

	analysis := &models.FileAnalysis{
		Path:     path,
		Size:     info.Size(),
		Lines:    CountLines(content),
		Language: LanguageTag(path),
		ModTime:  info.ModTime(),
		Hash:     xxh3.Hash(content),
	}

	if analyzer.cacheManager != nil {
		analyzer.cacheManager.Set(path, analysis)
	}

	analyzer.logger.Debug().Str("path", path).Int("lines", analysis.Lines).Int64("size", analysis.Size).Msg("analyzed file")
	return analysis, nil
}

// Invalidate drops any memoised analysis for path.
func (analyzer *CodeAnalyzer) Invalidate(path string) {
	if analyzer.cacheManager != nil {
		analyzer.cacheManager.Delete(path)
	}
}

// ClearCache drops every memoised analysis and resets the counters.
func (analyzer *CodeAnalyzer) ClearCache() {
	if analyzer.cacheManager != nil {
		analyzer.cacheManager.Clear()
		analyzer.cacheManager.ResetPerformanceStats()
	}
}

func (analyzer *CodeAnalyzer) GetPerformanceStats() map[string]interface{} {
	if analyzer.cacheManager == nil {
		return map[string]interface{}{"cache_enabled": false}
	}
	stats := analyzer.cacheManager.GetPerformanceStats()
	stats["cache_enabled"] = true
	return stats
}

// CountLines counts line terminators plus one; an empty file has zero lines.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	return bytes.Count(content, []byte{'\n'}) + 1
}

// LanguageTag is the lower-cased extension without its dot, or "unknown".
func LanguageTag(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return models.UnknownLanguage
	}
	return strings.ToLower(ext)
}
