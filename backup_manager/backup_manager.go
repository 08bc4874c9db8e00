package backup_manager

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/config"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// DirName is the reserved directory under the project root.
	DirName = ".codeassist_backups"
	// Suffix ends every backup file name.
	Suffix  = ".bak"

	maxCollisions = 999
)

var stampPattern = regexp.MustCompile(`^\d{8}_\d{6}_\d{6}(_\d{3})?$`)

// RestoreStatus is the outcome of a restore that did not fail.
type RestoreStatus string

const (
	RestoreRestored RestoreStatus = "restored"
	RestoreNotFound RestoreStatus = "not_found"
)

// BackupFile is one backup on disk. Stamp is the creation timestamp taken
// from the file name, including any collision counter.
type BackupFile struct {
	Path  string
	Stamp string
}

// BackupManager snapshots project files into the reserved directory and
// keeps at most Retain backups per file.
type BackupManager struct {
	root    string
	dir     string
	enabled bool
	retain  int
	logger  zerolog.Logger
	now     func() time.Time
}

func NewBackupManager(root string, cfg *config.Config, logger zerolog.Logger) *BackupManager {
	retain := cfg.BackupCount
	if retain < 1 {
		retain = config.DefaultConfig.BackupCount
	}
	return &BackupManager{
		root:    root,
		dir:     filepath.Join(root, DirName),
		enabled: cfg.BackupEnabled,
		retain:  retain,
		logger:  logger,
		now:     time.Now,
	}
}

// Dir returns the reserved backup directory.
func (bm *BackupManager) Dir() string {
	return bm.dir
}

// Enabled reports whether Backup takes snapshots.
func (bm *BackupManager) Enabled() bool {
	return bm.enabled
}

// Backup copies the current content of path into a new backup and rotates
// old ones. It returns the backup path, or "" when backups are disabled.
func (bm *BackupManager) Backup(path string) (string, error) {
	if !bm.enabled {
		return "", nil
	}

	target, backupDir, err := bm.locate(path)
	if err != nil {
		return "", apperrors.FileOperation("backup", path, err)
	}

	source, err := os.Open(target)
	if err != nil {
		return "", apperrors.FileOperation("backup", target, err)
	}
	defer source.Close()

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", apperrors.FileOperation("backup", backupDir, err)
	}

	backupPath, backup, err := bm.createUnique(backupDir, filepath.Base(target))
	if err != nil {
		return "", apperrors.FileOperation("backup", target, err)
	}

	if _, err := io.Copy(backup, source); err != nil {
		backup.Close()
		os.Remove(backupPath)
		return "", apperrors.FileOperation("backup", target, err)
	}
	if err := backup.Close(); err != nil {
		os.Remove(backupPath)
		return "", apperrors.FileOperation("backup", target, err)
	}

	bm.logger.Debug().Str("path", target).Str("backup", backupPath).Msg("created backup")
	bm.rotate(target)
	return backupPath, nil
}

// createUnique opens a new backup file for name, appending a counter when a
// backup with the same timestamp already exists.
func (bm *BackupManager) createUnique(dir, name string) (string, *os.File, error) {
	stamp := formatStamp(bm.now())
	for i := 0; i <= maxCollisions; i++ {
		candidateStamp := stamp
		if i > 0 {
			candidateStamp = fmt.Sprintf("%s_%03d", stamp, i)
		}
		candidate := filepath.Join(dir, name+"."+candidateStamp+Suffix)
		file, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return candidate, file, nil
	}
	return "", nil, errors.Errorf("too many backups created at %s", stamp)
}

// formatStamp renders t in UTC so stamps keep creation order across
// daylight saving changes.
func formatStamp(t time.Time) string {
	t = t.UTC()
	return t.Format("20060102_150405") + fmt.Sprintf("_%06d", t.Nanosecond()/1000)
}

// rotate deletes the oldest backups of target until at most retain remain.
func (bm *BackupManager) rotate(target string) {
	backups, err := bm.List(target)
	if err != nil {
		bm.logger.Warn().Err(err).Str("path", target).Msg("could not list backups for rotation")
		return
	}
	for len(backups) > bm.retain {
		oldest := backups[0]
		if err := os.Remove(oldest.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			bm.logger.Warn().Err(err).Str("backup", oldest.Path).Msg("could not remove old backup")
			return
		}
		bm.logger.Debug().Str("backup", oldest.Path).Msg("rotated out old backup")
		backups = backups[1:]
	}
}

// List returns the backups of path, oldest first.
func (bm *BackupManager) List(path string) ([]BackupFile, error) {
	target, backupDir, err := bm.locate(path)
	if err != nil {
		return nil, apperrors.FileOperation("list backups", path, err)
	}

	entries, err := os.ReadDir(backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FileOperation("list backups", backupDir, err)
	}

	prefix := filepath.Base(target) + "."
	var backups []BackupFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Suffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), Suffix)
		if !stampPattern.MatchString(stamp) {
			continue
		}
		backups = append(backups, BackupFile{Path: filepath.Join(backupDir, name), Stamp: stamp})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Stamp < backups[j].Stamp
	})
	return backups, nil
}

// Restore copies the newest backup of path over it. The backup is kept, so
// restoring twice gives the same content.
func (bm *BackupManager) Restore(path string) (RestoreStatus, error) {
	backups, err := bm.List(path)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return RestoreNotFound, nil
	}

	newest := backups[len(backups)-1]
	if err := bm.RestoreFrom(path, newest.Path); err != nil {
		return "", err
	}
	return RestoreRestored, nil
}

// RestoreFrom copies the given backup over path.
func (bm *BackupManager) RestoreFrom(path, backupPath string) error {
	target, _, err := bm.locate(path)
	if err != nil {
		return apperrors.FileOperation("restore", path, err)
	}

	content, err := os.ReadFile(backupPath)
	if err != nil {
		return apperrors.FileOperation("restore", backupPath, err)
	}

	perm := fs.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return apperrors.FileOperation("restore", target, err)
	}
	if err := os.WriteFile(target, content, perm); err != nil {
		return apperrors.FileOperation("restore", target, err)
	}

	bm.logger.Info().Str("path", target).Str("backup", backupPath).Msg("restored from backup")
	return nil
}

// locate resolves path against the root and returns it together with the
// backup directory mirroring its parent.
func (bm *BackupManager) locate(path string) (string, string, error) {
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(bm.root, target)
	}
	target = filepath.Clean(target)

	relDir, err := filepath.Rel(bm.root, filepath.Dir(target))
	if err != nil {
		return "", "", err
	}
	if relDir == ".." || strings.HasPrefix(relDir, ".."+string(filepath.Separator)) {
		return "", "", errors.Errorf("%s is outside the project root", path)
	}
	return target, filepath.Join(bm.dir, relDir), nil
}
