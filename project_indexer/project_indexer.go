package project_indexer

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/backup_manager"
	contracts_analyzer "github.com/morler/codeassist/code_analyzer/contracts"
	analyzer_models "github.com/morler/codeassist/code_analyzer/models"
	"github.com/morler/codeassist/config"
	"github.com/morler/codeassist/ignore_matcher"
	"github.com/morler/codeassist/project_indexer/models"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// SupportedExtensions lists every extension the indexer visits.
var SupportedExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {},
	".css": {}, ".scss": {}, ".html": {},
	".java": {}, ".cpp": {}, ".c": {}, ".h": {}, ".hpp": {},
	".go": {}, ".rs": {}, ".php": {}, ".rb": {}, ".swift": {},
	".md": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
}

var skippedDirs = map[string]struct{}{
	".git":                 {},
	backup_manager.DirName: {},
}

// ProjectIndexer walks a project tree and builds a ProjectIndex.
type ProjectIndexer struct {
	analyzer contracts_analyzer.ICodeAnalyzer
	config   *config.Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProjectIndexer(analyzer contracts_analyzer.ICodeAnalyzer, cfg *config.Config, logger zerolog.Logger) *ProjectIndexer {
	return &ProjectIndexer{
		analyzer: analyzer,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// IsSupported reports whether path has an extension the indexer visits.
func IsSupported(path string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load builds a fresh index for root. Per-file problems are counted in the
// summary and logged; only an invalid root fails the call.
func (pi *ProjectIndexer) Load(root string) (*models.ProjectIndex, *models.LoadSummary, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, apperrors.ProjectLoad("resolve", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, nil, apperrors.ProjectLoad("load", absRoot, err)
	}
	if !info.IsDir() {
		return nil, nil, apperrors.ProjectLoad("load", absRoot, errors.New("not a directory"))
	}

	matcher := ignore_matcher.NewMatcher(pi.logger)
	matcher.Load(absRoot)

	index := &models.ProjectIndex{
		Root:     absRoot,
		Files:    make(map[string]string),
		Analyses: make(map[string]*analyzer_models.FileAnalysis),
		Metadata: models.Metadata{Languages: make(map[string]int)},
		Ignore:   matcher,
	}
	summary := &models.LoadSummary{Root: absRoot}

	excluded := make(map[string]struct{}, len(pi.config.ExcludedBinary))
	for _, ext := range pi.config.ExcludedBinary {
		excluded[ext] = struct{}{}
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			pi.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			summary.Skipped++
			return nil
		}

		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := SupportedExtensions[ext]; !ok {
			return nil
		}
		if _, ok := excluded[ext]; ok {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if matcher.IsIgnored(relPath) {
			summary.Ignored++
			return nil
		}

		pi.indexFile(index, summary, path, relPath)
		return nil
	})
	if walkErr != nil {
		return nil, nil, apperrors.ProjectLoad("walk", absRoot, walkErr)
	}

	index.Metadata.LastLoaded = pi.now()
	pi.logger.Info().
		Str("root", absRoot).
		Int("loaded", summary.Loaded).
		Int("ignored", summary.Ignored).
		Int("skipped", summary.Skipped).
		Msg("project loaded")

	return index, summary, nil
}

func (pi *ProjectIndexer) indexFile(index *models.ProjectIndex, summary *models.LoadSummary, path, relPath string) {
	info, err := os.Stat(path)
	if err != nil {
		pi.logger.Warn().Err(err).Str("path", relPath).Msg("skipping file that cannot be stat'd")
		summary.Skipped++
		return
	}
	if info.Size() > pi.config.MaxFileSize {
		pi.logger.Warn().Str("path", relPath).Int64("size", info.Size()).Int64("max_file_size", pi.config.MaxFileSize).Msg("skipping file larger than max_file_size")
		summary.Skipped++
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		pi.logger.Warn().Err(err).Str("path", relPath).Msg("skipping unreadable file")
		summary.Skipped++
		return
	}
	if !utf8.Valid(content) {
		pi.logger.Warn().Str("path", relPath).Msg("skipping file that is not valid UTF-8 text")
		summary.Skipped++
		return
	}

	index.Files[path] = string(content)
	summary.Loaded++

	analysis, err := pi.analyzer.Analyze(path)
	if err != nil {
		pi.logger.Warn().Err(err).Str("path", relPath).Msg("analysis failed, file kept without metadata")
		return
	}
	index.Analyses[path] = analysis
	index.Metadata.Add(analysis)
}
