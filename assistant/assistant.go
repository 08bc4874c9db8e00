package assistant

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/backup_manager"
	"github.com/morler/codeassist/change_tracker"
	contracts_analyzer "github.com/morler/codeassist/code_analyzer/contracts"
	analyzer_models "github.com/morler/codeassist/code_analyzer/models"
	"github.com/morler/codeassist/config"
	"github.com/morler/codeassist/project_indexer"
	"github.com/morler/codeassist/project_indexer/models"
	"github.com/morler/codeassist/providers/contracts"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNoProject is returned by queries issued before a project was loaded.
var ErrNoProject = errors.New("no project loaded")

// CodeAssistant owns the loaded project and serialises every operation on it.
type CodeAssistant struct {
	mu        sync.Mutex
	config    *config.Config
	generator contracts.IGenerator
	analyzer  contracts_analyzer.ICodeAnalyzer
	indexer   *project_indexer.ProjectIndexer
	tracker   *change_tracker.Tracker
	backups   *backup_manager.BackupManager
	index     *models.ProjectIndex
	logger    zerolog.Logger
	writeFile func(name string, data []byte, perm fs.FileMode) error
}

func NewCodeAssistant(cfg *config.Config, generator contracts.IGenerator, analyzer contracts_analyzer.ICodeAnalyzer, logger zerolog.Logger) *CodeAssistant {
	return &CodeAssistant{
		config:    cfg,
		generator: generator,
		analyzer:  analyzer,
		indexer:   project_indexer.NewProjectIndexer(analyzer, cfg, logger),
		tracker:   change_tracker.NewTracker(analyzer, logger),
		logger:    logger,
		writeFile: os.WriteFile,
	}
}

// LoadProject indexes root and replaces the current project. On failure the
// previous project stays loaded.
func (ca *CodeAssistant) LoadProject(root string) (*models.LoadSummary, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	index, summary, err := ca.indexer.Load(root)
	if err != nil {
		return nil, err
	}

	ca.index = index
	ca.backups = backup_manager.NewBackupManager(index.Root, ca.config, ca.logger)
	return summary, nil
}

// Root returns the loaded project root, or "" when nothing is loaded.
func (ca *CodeAssistant) Root() string {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	if ca.index == nil {
		return ""
	}
	return ca.index.Root
}

// ModifyFile rewrites an indexed file with generated content after backing it up.
func (ca *CodeAssistant) ModifyFile(ctx context.Context, path, instruction string) Result {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return noProject(path)
	}

	absPath, relPath, err := ca.resolve(path)
	if err != nil {
		return failed(path, err)
	}

	current, ok := ca.index.Files[absPath]
	if !ok {
		return Result{Status: StatusNotFound, Path: relPath, Message: fmt.Sprintf("File %s not found", relPath)}
	}

	backupPath, err := ca.backups.Backup(absPath)
	if err != nil {
		return failed(relPath, err)
	}

	response, err := ca.generator.Generate(ctx, ModifyPrompt(current, instruction))
	if err != nil {
		return failed(relPath, asGenerationError(err))
	}
	content := ExtractCode(response)

	perm := fs.FileMode(0644)
	if info, err := os.Stat(absPath); err == nil {
		perm = info.Mode().Perm()
	}

	if err := ca.writeFile(absPath, []byte(content), perm); err != nil {
		writeErr := apperrors.FileOperation("write", absPath, err)
		if backupPath == "" {
			ca.logger.Error().Err(writeErr).Str("path", relPath).Msg("write failed and no backup was taken")
			return failed(relPath, writeErr)
		}
		ca.logger.Error().Err(writeErr).Str("path", relPath).Msg("write failed, restoring from backup")

		if restoreErr := ca.backups.RestoreFrom(absPath, backupPath); restoreErr != nil {
			ca.logger.Error().Err(restoreErr).Str("path", relPath).Msg("restore after failed write also failed")
			return failed(relPath, writeErr)
		}
		ca.refreshFromDisk(absPath, relPath)
		return Result{
			Status:  StatusRestoredAfterError,
			Path:    relPath,
			Message: fmt.Sprintf("Error occurred, restored from backup: %v", writeErr),
			Err:     writeErr,
		}
	}

	ca.commit(change_tracker.Modified, absPath, content)
	return Result{Status: StatusModified, Path: relPath, Message: fmt.Sprintf("Successfully modified %s", relPath)}
}

// CreateFile writes a new file with generated content. An existing path is
// left alone and the generator is not called.
func (ca *CodeAssistant) CreateFile(ctx context.Context, path, requirements string) Result {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return noProject(path)
	}

	absPath, relPath, err := ca.resolve(path)
	if err != nil {
		return failed(path, err)
	}

	if _, err := os.Lstat(absPath); err == nil {
		return Result{Status: StatusAlreadyExists, Path: relPath, Message: fmt.Sprintf("File %s already exists", relPath)}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return failed(relPath, apperrors.FileOperation("stat", absPath, err))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return failed(relPath, apperrors.FileOperation("create directories", filepath.Dir(absPath), err))
	}

	response, err := ca.generator.Generate(ctx, CreatePrompt(relPath, requirements))
	if err != nil {
		return failed(relPath, asGenerationError(err))
	}
	content := ExtractCode(response)

	if err := ca.writeFile(absPath, []byte(content), 0644); err != nil {
		return failed(relPath, apperrors.FileOperation("write", absPath, err))
	}

	ca.commit(change_tracker.Created, absPath, content)
	return Result{Status: StatusCreated, Path: relPath, Message: fmt.Sprintf("Successfully created %s", relPath)}
}

// GenerateCode passes a free-text request straight to the generator.
func (ca *CodeAssistant) GenerateCode(ctx context.Context, prompt string) (string, error) {
	response, err := ca.generator.Generate(ctx, prompt)
	if err != nil {
		return "", asGenerationError(err)
	}
	return response, nil
}

// ListFiles returns the indexed files relative to the root, sorted.
func (ca *CodeAssistant) ListFiles() ([]string, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return nil, ErrNoProject
	}

	files := make([]string, 0, len(ca.index.Files))
	for absPath := range ca.index.Files {
		relPath, err := filepath.Rel(ca.index.Root, absPath)
		if err != nil {
			relPath = absPath
		}
		files = append(files, filepath.ToSlash(relPath))
	}
	sort.Strings(files)
	return files, nil
}

// Stats returns a copy of the project metadata.
func (ca *CodeAssistant) Stats() (*models.Metadata, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return nil, ErrNoProject
	}

	metadata := ca.index.Metadata
	metadata.Languages = make(map[string]int, len(ca.index.Metadata.Languages))
	for language, count := range ca.index.Metadata.Languages {
		metadata.Languages[language] = count
	}
	return &metadata, nil
}

// BackupFile takes an explicit backup of path. It returns "" when backups
// are disabled.
func (ca *CodeAssistant) BackupFile(path string) (string, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return "", ErrNoProject
	}
	absPath, _, err := ca.resolve(path)
	if err != nil {
		return "", err
	}
	return ca.backups.Backup(absPath)
}

// RestoreFile copies the newest backup of path over it and refreshes the
// index entry when the file is indexed.
func (ca *CodeAssistant) RestoreFile(path string) (backup_manager.RestoreStatus, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.index == nil {
		return "", ErrNoProject
	}
	absPath, relPath, err := ca.resolve(path)
	if err != nil {
		return "", err
	}

	status, err := ca.backups.Restore(absPath)
	if err != nil || status != backup_manager.RestoreRestored {
		return status, err
	}

	if _, indexed := ca.index.Files[absPath]; indexed {
		ca.refreshFromDisk(absPath, relPath)
	}
	return status, nil
}

// refreshFromDisk sets the index entry of absPath to its current on-disk
// content, dropping it when the file is no longer readable text.
func (ca *CodeAssistant) refreshFromDisk(absPath, relPath string) {
	content, err := os.ReadFile(absPath)
	if err != nil || !utf8.Valid(content) {
		ca.logger.Warn().Err(err).Str("path", relPath).Msg("restored file could not be re-read, dropping it from the index")
		ca.forget(absPath)
		return
	}
	ca.replace(absPath, string(content))
	if analysis, err := ca.analyzer.Analyze(absPath); err == nil {
		ca.attach(absPath, analysis)
	}
}

// History returns the change records of the session, oldest first.
func (ca *CodeAssistant) History() []change_tracker.ChangeRecord {
	return ca.tracker.Records()
}

// AnalyzerStats exposes the analysis cache counters.
func (ca *CodeAssistant) AnalyzerStats() map[string]interface{} {
	return ca.analyzer.GetPerformanceStats()
}

// commit brings the index in line with a successful write and records it.
func (ca *CodeAssistant) commit(kind change_tracker.ChangeKind, absPath, content string) {
	ca.replace(absPath, content)
	record := ca.tracker.Track(kind, absPath)
	if record.Analysis != nil {
		ca.attach(absPath, record.Analysis)
	}
	ca.logger.Info().Str("kind", string(kind)).Str("path", absPath).Msg("file changed")
}

func (ca *CodeAssistant) replace(absPath, content string) {
	ca.forget(absPath)
	ca.index.Files[absPath] = content
}

func (ca *CodeAssistant) forget(absPath string) {
	ca.analyzer.Invalidate(absPath)
	delete(ca.index.Files, absPath)
	if previous, ok := ca.index.Analyses[absPath]; ok {
		ca.index.Metadata.Remove(previous)
		delete(ca.index.Analyses, absPath)
	}
}

func (ca *CodeAssistant) attach(absPath string, analysis *analyzer_models.FileAnalysis) {
	ca.index.Analyses[absPath] = analysis
	ca.index.Metadata.Add(analysis)
}

// resolve maps a root-relative or absolute path to its absolute and
// root-relative forms. Paths outside the root are rejected.
func (ca *CodeAssistant) resolve(path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", apperrors.FileOperation("resolve", path, errors.New("empty path"))
	}

	absPath := path
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(ca.index.Root, absPath)
	}
	absPath = filepath.Clean(absPath)

	relPath, err := filepath.Rel(ca.index.Root, absPath)
	if err != nil || relPath == "." || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", "", apperrors.FileOperation("resolve", path, errors.New("path is outside the project root"))
	}
	return absPath, filepath.ToSlash(relPath), nil
}

func noProject(path string) Result {
	return Result{Status: StatusNoProject, Path: path, Message: "No project loaded. Use /load first."}
}

func failed(path string, err error) Result {
	return Result{Status: StatusFailed, Path: path, Message: err.Error(), Err: err}
}

func asGenerationError(err error) error {
	if apperrors.KindOf(err) == apperrors.KindGeneration {
		return err
	}
	return apperrors.Generation("generate", err)
}
