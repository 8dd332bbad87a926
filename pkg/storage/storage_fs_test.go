package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStorage_Write_FileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage, err := NewFilesystemStorage(dir)
	require.NoError(t, err)

	require.NoError(t, storage.Write(ctx, "funnel_data", []byte(`{"tiles":[]}`)))

	data, err := os.ReadFile(filepath.Join(dir, "funnel_data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"tiles":[]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files must be left behind")
}

func TestFilesystemStorage_InvalidKey(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`, ".."} {
		assert.ErrorIs(t, storage.Write(ctx, key, []byte("x")), ErrInvalidKey, key)
		_, err := storage.Read(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		assert.ErrorIs(t, storage.Delete(ctx, key), ErrInvalidKey, key)
	}
}

func TestFilesystemStorage_List_IgnoresOtherFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage, err := NewFilesystemStorage(dir)
	require.NoError(t, err)

	require.NoError(t, storage.Write(ctx, "funnel_backup_a", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "funnel_backup_b.txt"), []byte("b"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "funnel_backup_c.json"), 0o700))

	keys, err := storage.List(ctx, "funnel_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"funnel_backup_a"}, keys)
}

func TestFilesystemStorage_Testdata(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage("testdata/order")
	require.NoError(t, err)

	keys, err := storage.List(ctx, "funnel_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"funnel_backup_2017-10-23-08-00-00",
		"funnel_backup_2017-10-22-08-00-00",
		"funnel_backup_2017-10-21-08-00-00",
	}, keys)
}
