package code_analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/morler/codeassist/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 0, CountLines([]byte("")))
	assert.Equal(t, 1, CountLines([]byte("one line")))
	assert.Equal(t, 2, CountLines([]byte("one line\n")))
	assert.Equal(t, 3, CountLines([]byte("a\nb\nc")))
}

func TestLanguageTag(t *testing.T) {
	assert.Equal(t, "go", LanguageTag("/src/main.go"))
	assert.Equal(t, "js", LanguageTag("b.JS"))
	assert.Equal(t, "yaml", LanguageTag("deploy/app.yaml"))
	assert.Equal(t, "unknown", LanguageTag("Makefile"))
}

func TestCodeAnalyzer_Analyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.js")
	content := []byte("// hi\nconsole.log(1)")
	require.NoError(t, os.WriteFile(path, content, 0644))

	analyzer := NewCodeAnalyzer(zerolog.Nop(), true)
	analysis, err := analyzer.Analyze(path)
	require.NoError(t, err)

	assert.Equal(t, path, analysis.Path)
	assert.Equal(t, int64(len(content)), analysis.Size)
	assert.Equal(t, 2, analysis.Lines)
	assert.Equal(t, "js", analysis.Language)
	assert.Equal(t, xxh3.Hash(content), analysis.Hash)
	assert.False(t, analysis.ModTime.IsZero())
}

func TestCodeAnalyzer_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.py")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	analysis, err := NewCodeAnalyzer(zerolog.Nop(), false).Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 0, analysis.Lines)
	assert.Equal(t, int64(0), analysis.Size)
}

func TestCodeAnalyzer_MissingFileIsAnalysisError(t *testing.T) {
	_, err := NewCodeAnalyzer(zerolog.Nop(), true).Analyze(filepath.Join(t.TempDir(), "gone.go"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAnalysis))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCodeAnalyzer_DirectoryIsAnalysisError(t *testing.T) {
	_, err := NewCodeAnalyzer(zerolog.Nop(), false).Analyze(t.TempDir())

	assert.Equal(t, apperrors.KindAnalysis, apperrors.KindOf(err))
}

func TestCodeAnalyzer_CacheHitAndInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))

	analyzer := NewCodeAnalyzer(zerolog.Nop(), true)
	_, err := analyzer.Analyze(path)
	require.NoError(t, err)
	_, err = analyzer.Analyze(path)
	require.NoError(t, err)

	stats := analyzer.GetPerformanceStats()
	assert.Equal(t, true, stats["cache_enabled"])
	assert.Equal(t, int64(1), stats["cache_hits"])

	analyzer.Invalidate(path)
	_, err = analyzer.Analyze(path)
	require.NoError(t, err)
	stats = analyzer.GetPerformanceStats()
	assert.Equal(t, int64(2), stats["cache_misses"])

	analyzer.ClearCache()
	assert.Equal(t, int64(0), analyzer.GetPerformanceStats()["total_requests"])
}

func TestCodeAnalyzer_CacheDisabled(t *testing.T) {
	stats := NewCodeAnalyzer(zerolog.Nop(), false).GetPerformanceStats()
	assert.Equal(t, false, stats["cache_enabled"])
}
