package storage

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func newTestBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })
	return bucket
}

func objectKeys(t *testing.T, bucket *blob.Bucket) []string {
	t.Helper()
	var keys []string
	iter := bucket.List(nil)
	for {
		obj, err := iter.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		keys = append(keys, obj.Key)
	}
	return keys
}

func TestBlobStorage_Write_UsesLocator(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)
	storage := NewBlobStorageFromBucket(bucket, BlobWithPrefix("my-prefix"))

	require.NoError(t, storage.Write(ctx, "funnel_data", []byte("test-data")))
	assert.Equal(t, []string{"my-prefix/funnel_data.json"}, objectKeys(t, bucket))

	data, err := storage.Read(ctx, "funnel_data")
	require.NoError(t, err)
	assert.Equal(t, []byte("test-data"), data)
}

func TestBlobStorage_Write_RandomSuffix(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)
	storage := NewBlobStorageFromBucket(bucket, BlobWithRandomSuffix(true))

	require.NoError(t, storage.Write(ctx, "funnel_data", []byte("original")))
	require.NoError(t, storage.Write(ctx, "funnel_data", []byte("updated")))

	keys := objectKeys(t, bucket)
	require.Len(t, keys, 1, "stale locators must be retired")
	name, ok := storage.parseLocator(keys[0])
	require.True(t, ok)
	assert.Equal(t, "funnel_data", name)
	assert.NotEqual(t, "funnel_data.json", keys[0])

	data, err := storage.Read(ctx, "funnel_data")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), data)

	require.NoError(t, storage.Delete(ctx, "funnel_data"))
	assert.Empty(t, objectKeys(t, bucket))
}

func TestBlobStorage_Read_ResolvesNewestLocator(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)
	storage := NewBlobStorageFromBucket(bucket)

	// two locators for the same name, e.g. left behind by an interrupted write
	require.NoError(t, bucket.WriteAll(ctx, "funnel_data."+uuid.New().String()+".json", []byte("old"), nil))
	require.NoError(t, bucket.WriteAll(ctx, "funnel_data."+uuid.New().String()+".json", []byte("new"), nil))

	objs, err := storage.resolve(ctx, "funnel_data")
	require.NoError(t, err)
	require.Len(t, objs, 2)

	data, err := storage.Read(ctx, "funnel_data")
	require.NoError(t, err)
	expected, err := bucket.ReadAll(ctx, objs[0].Key)
	require.NoError(t, err)
	assert.Equal(t, expected, data)

	keys, err := storage.List(ctx, "funnel_")
	require.NoError(t, err)
	assert.Equal(t, []string{"funnel_data"}, keys, "locators of one name are listed once")

	require.NoError(t, storage.Delete(ctx, "funnel_data"))
	_, err = storage.Read(ctx, "funnel_data")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBlobStorage_Resolve_IgnoresSiblingNames(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)
	storage := NewBlobStorageFromBucket(bucket)

	require.NoError(t, storage.Write(ctx, "funnel_data_old", []byte("sibling")))

	_, err := storage.Read(ctx, "funnel_data")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, storage.Delete(ctx, "funnel_data"))
	data, err := storage.Read(ctx, "funnel_data_old")
	require.NoError(t, err)
	assert.Equal(t, []byte("sibling"), data)
}

func TestBlobStorage_List_SkipsForeignObjects(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)
	storage := NewBlobStorageFromBucket(bucket, BlobWithPrefix("funnel/"))

	require.NoError(t, storage.Write(ctx, "funnel_backup_a", []byte("a")))
	require.NoError(t, bucket.WriteAll(ctx, "funnel/funnel_backup_b.txt", []byte("b"), nil))
	require.NoError(t, bucket.WriteAll(ctx, "other/funnel_backup_c.json", []byte("c"), nil))

	keys, err := storage.List(ctx, "funnel_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"funnel_backup_a"}, keys)
}

func TestBlobStorage_ParseLocator(t *testing.T) {
	storage := NewBlobStorageFromBucket(nil, BlobWithPrefix("p"))
	id := uuid.New().String()

	tests := []struct {
		objKey string
		key    string
		ok     bool
	}{
		{objKey: "p/funnel_data.json", key: "funnel_data", ok: true},
		{objKey: "p/funnel_data." + id + ".json", key: "funnel_data", ok: true},
		{objKey: "p/funnel_backup_2024-01-02-03-04-05.json", key: "funnel_backup_2024-01-02-03-04-05", ok: true},
		{objKey: "p/funnel.data.json", key: "funnel.data", ok: true},
		{objKey: "q/funnel_data.json", ok: false},
		{objKey: "p/funnel_data", ok: false},
		{objKey: "p/.json", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.objKey, func(t *testing.T) {
			key, ok := storage.parseLocator(tt.objKey)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.key, key)
			}
		})
	}
}

func TestBlobStorage_LargeBlob(t *testing.T) {
	ctx := context.Background()
	storage := NewBlobStorageFromBucket(newTestBucket(t))

	largeData := make([]byte, 1024*1024)
	for i := range largeData {
		largeData[i] = byte(i % 256)
	}

	require.NoError(t, storage.Write(ctx, "large-key", largeData))

	data, err := storage.Read(ctx, "large-key")
	require.NoError(t, err)
	assert.Equal(t, largeData, data)
}
