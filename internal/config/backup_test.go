package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupConfigFile_NoFile_ReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	backupPath, err := BackupConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackupConfigFile_CopiesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "ftsTokenizer: porter\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	backupPath, err := BackupConfigFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)
	require.True(t, filepath.IsAbs(backupPath))

	got, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestListConfigBackups_SortedNewestFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	for i := 0; i < 3; i++ {
		_, err := BackupConfigFile(path)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListConfigBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	for i := 1; i < len(backups); i++ {
		infoPrev, _ := os.Stat(backups[i-1])
		infoCur, _ := os.Stat(backups[i])
		assert.False(t, infoPrev.ModTime().Before(infoCur.ModTime()))
	}
}

func TestBackupConfigFile_CleansUpBeyondMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	for i := 0; i < MaxBackups+3; i++ {
		_, err := BackupConfigFile(path)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	backups, err := ListConfigBackups(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}

func TestRestoreConfigFile_RestoresAndBacksUpCurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ftsTokenizer: unicode61\n"), 0o644))

	backupPath, err := BackupConfigFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("ftsTokenizer: porter\n"), 0o644))

	require.NoError(t, RestoreConfigFile(backupPath, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ftsTokenizer: unicode61\n", string(got))

	backups, err := ListConfigBackups(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(backups), 2)
}

func TestRestoreConfigFile_MissingBackup_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	err := RestoreConfigFile(filepath.Join(dir, "missing.bak"), filepath.Join(dir, "config.yaml"))
	require.Error(t, err)
}
