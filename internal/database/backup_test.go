package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slotbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SyncVendors(context.Background(), testVendors()))
	booking := newTestBooking(1, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, db.CreateBookingWithClaim(context.Background(), booking))

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The snapshot must be a usable database with the data intact.
	restored, err := NewDB(filepath.Join(backupDir, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)
}

func TestCleanupOldBackups(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "backup_old.db")
	newFile := filepath.Join(dir, "backup_new.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))

	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	svc := NewBackupService("", config.BackupConfig{
		RetentionDays: 7,
		StoragePath:   dir,
	}, &logger)
	svc.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)
}
