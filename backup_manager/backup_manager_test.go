package backup_manager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager returns a manager whose clock advances by step on every call.
func newTestManager(t *testing.T, root string, cfg *config.Config, step time.Duration) *BackupManager {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	bm := NewBackupManager(root, cfg, zerolog.New(zerolog.NewTestWriter(t)))
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bm.now = func() time.Time {
		current = current.Add(step)
		return current
	}
	return bm
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestBackup_CreatesNamedCopy(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.js")
	writeFile(t, target, "v1")

	backupPath, err := newTestManager(t, root, nil, time.Second).Backup(target)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, DirName), filepath.Dir(backupPath))
	assert.Equal(t, "app.js.20240501_120001_000000.bak", filepath.Base(backupPath))
	assert.Equal(t, "v1", readFile(t, backupPath))
}

func TestBackup_MirrorsRelativeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "index.ts"), "a")
	writeFile(t, filepath.Join(root, "test", "index.ts"), "b")
	bm := newTestManager(t, root, nil, time.Second)

	first, err := bm.Backup("src/index.ts")
	require.NoError(t, err)
	second, err := bm.Backup(filepath.Join(root, "test", "index.ts"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, DirName, "src"), filepath.Dir(first))
	assert.Equal(t, filepath.Join(root, DirName, "test"), filepath.Dir(second))

	srcBackups, err := bm.List("src/index.ts")
	require.NoError(t, err)
	assert.Len(t, srcBackups, 1)
}

func TestBackup_RotationKeepsNewest(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	cfg := config.Default()
	cfg.BackupCount = 3
	bm := newTestManager(t, root, cfg, time.Second)

	var created []string
	for i := 0; i < cfg.BackupCount+1; i++ {
		writeFile(t, target, strings.Repeat("v", i+1))
		backupPath, err := bm.Backup(target)
		require.NoError(t, err)
		created = append(created, backupPath)
	}

	backups, err := bm.List(target)
	require.NoError(t, err)
	require.Len(t, backups, cfg.BackupCount)

	var retained []string
	for _, backup := range backups {
		retained = append(retained, backup.Path)
	}
	assert.Equal(t, created[1:], retained)
	assert.NoFileExists(t, created[0])
}

func TestBackup_SameInstantDoesNotOverwrite(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	bm := newTestManager(t, root, nil, 0)

	for _, content := range []string{"one", "two", "three"} {
		writeFile(t, target, content)
		_, err := bm.Backup(target)
		require.NoError(t, err)
	}

	backups, err := bm.List(target)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "one", readFile(t, backups[0].Path))
	assert.Equal(t, "two", readFile(t, backups[1].Path))
	assert.Equal(t, "three", readFile(t, backups[2].Path))
	assert.True(t, strings.HasSuffix(backups[2].Path, "_002"+Suffix))
}

func TestBackup_DisabledIsNoOp(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	writeFile(t, target, "v1")
	cfg := config.Default()
	cfg.BackupEnabled = false

	backupPath, err := newTestManager(t, root, cfg, time.Second).Backup(target)
	require.NoError(t, err)
	assert.Empty(t, backupPath)
	assert.NoDirExists(t, filepath.Join(root, DirName))
}

func TestBackup_MissingSourceIsFileOperationError(t *testing.T) {
	root := t.TempDir()
	bm := newTestManager(t, root, nil, time.Second)

	writeFile(t, filepath.Join(root, "kept.go"), "kept")
	_, err := bm.Backup("kept.go")
	require.NoError(t, err)

	_, err = bm.Backup("gone.go")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFileOperation)

	backups, err := bm.List("kept.go")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestBackup_OutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "other.go")
	writeFile(t, outside, "x")

	_, err := newTestManager(t, root, nil, time.Second).Backup(outside)
	assert.Equal(t, apperrors.KindFileOperation, apperrors.KindOf(err))
}

func TestBackup_OrderSurvivesDaylightSavingFallBack(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	bm := NewBackupManager(root, config.Default(), zerolog.Nop())

	// 01:30 EDT is 05:30 UTC; 01:10 EST forty minutes later is 06:10 UTC.
	edt := time.FixedZone("EDT", -4*60*60)
	est := time.FixedZone("EST", -5*60*60)
	clock := []time.Time{
		time.Date(2024, 11, 3, 1, 30, 0, 0, edt),
		time.Date(2024, 11, 3, 1, 10, 0, 0, est),
	}
	bm.now = func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	writeFile(t, target, "older")
	_, err := bm.Backup(target)
	require.NoError(t, err)
	writeFile(t, target, "newer")
	newerPath, err := bm.Backup(target)
	require.NoError(t, err)
	writeFile(t, target, "broken")

	assert.Equal(t, "main.go.20241103_061000_000000.bak", filepath.Base(newerPath))

	status, err := bm.Restore(target)
	require.NoError(t, err)
	assert.Equal(t, RestoreRestored, status)
	assert.Equal(t, "newer", readFile(t, target))
}

func TestRestoreFrom_UsesGivenBackup(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	bm := newTestManager(t, root, nil, time.Second)

	writeFile(t, target, "first")
	firstPath, err := bm.Backup(target)
	require.NoError(t, err)
	writeFile(t, target, "second")
	_, err = bm.Backup(target)
	require.NoError(t, err)

	require.NoError(t, bm.RestoreFrom(target, firstPath))
	assert.Equal(t, "first", readFile(t, target))
	assert.FileExists(t, firstPath)

	err = bm.RestoreFrom(target, filepath.Join(root, DirName, "main.go.missing.bak"))
	assert.ErrorIs(t, err, apperrors.ErrFileOperation)
}

func TestRestore_NoBackupsLeavesFileUntouched(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	writeFile(t, target, "original\x00bytes")

	status, err := newTestManager(t, root, nil, time.Second).Restore(target)
	require.NoError(t, err)

	assert.Equal(t, RestoreNotFound, status)
	assert.Equal(t, "original\x00bytes", readFile(t, target))
}

func TestRestore_UsesNewestAndKeepsIt(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	bm := newTestManager(t, root, nil, time.Second)

	writeFile(t, target, "first")
	_, err := bm.Backup(target)
	require.NoError(t, err)
	writeFile(t, target, "second")
	_, err = bm.Backup(target)
	require.NoError(t, err)
	writeFile(t, target, "broken")

	status, err := bm.Restore(target)
	require.NoError(t, err)
	assert.Equal(t, RestoreRestored, status)
	assert.Equal(t, "second", readFile(t, target))

	writeFile(t, target, "broken again")
	status, err = bm.Restore(target)
	require.NoError(t, err)
	assert.Equal(t, RestoreRestored, status)
	assert.Equal(t, "second", readFile(t, target))

	backups, err := bm.List(target)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestList_IgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.js")
	writeFile(t, target, "a")
	bm := newTestManager(t, root, nil, time.Second)
	_, err := bm.Backup(target)
	require.NoError(t, err)

	dir := filepath.Join(root, DirName)
	writeFile(t, filepath.Join(dir, "a.js.notes.bak"), "x")
	writeFile(t, filepath.Join(dir, "a.jsx.20240501_120001_000000.bak"), "x")
	writeFile(t, filepath.Join(dir, "a.js.20240501_120001_000000.tmp"), "x")

	backups, err := bm.List(target)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestList_NoDirectory(t *testing.T) {
	backups, err := newTestManager(t, t.TempDir(), nil, time.Second).List("x.go")
	require.NoError(t, err)
	assert.Empty(t, backups)
}
