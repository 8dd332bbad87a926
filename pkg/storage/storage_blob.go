package storage

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Register the bucket URL openers for the supported providers
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const blobSuffix = ".json"

type (
	// BlobStorage implements Storage using gocloud.dev/blob.
	//
	// Logical keys are never used as object keys directly: objects are named
	// <prefix><key>[.<uuid>].json and every read or delete resolves the
	// logical key to its object locator by listing first. With random
	// suffixes enabled each write lands on a fresh locator and the stale
	// ones are retired afterwards.
	BlobStorage struct {
		bucket       *blob.Bucket
		prefix       string
		randomSuffix bool
	}
	BlobOption func(*BlobStorage)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func BlobWithPrefix(v string) BlobOption {
	return func(o *BlobStorage) {
		o.prefix = normalizePrefix(v)
	}
}

func BlobWithRandomSuffix(v bool) BlobOption {
	return func(o *BlobStorage) {
		o.randomSuffix = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewBlobStorage opens the bucket at bucketURL, e.g. "gs://bucket-name",
// "s3://bucket-name?region=eu-central-1", "azblob://container" or "file:///tmp/funnel".
func NewBlobStorage(ctx context.Context, bucketURL string, opts ...BlobOption) (*BlobStorage, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bucket")
	}
	return NewBlobStorageFromBucket(bucket, opts...), nil
}

// NewBlobStorageFromBucket wraps an already opened bucket, e.g. a memblob in tests.
func NewBlobStorageFromBucket(bucket *blob.Bucket, opts ...BlobOption) *BlobStorage {
	inst := &BlobStorage{
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (b *BlobStorage) Write(ctx context.Context, key string, data []byte) error {
	if !b.randomSuffix {
		return b.bucket.WriteAll(ctx, b.locator(key, ""), data, nil)
	}

	stale, err := b.resolve(ctx, key)
	if err != nil {
		return err
	}
	if err := b.bucket.WriteAll(ctx, b.locator(key, uuid.New().String()), data, nil); err != nil {
		return err
	}
	return b.remove(ctx, stale)
}

func (b *BlobStorage) Read(ctx context.Context, key string) ([]byte, error) {
	objs, err := b.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, os.ErrNotExist
	}
	data, err := b.bucket.ReadAll(ctx, objs[0].Key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, os.ErrNotExist
	} else if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BlobStorage) List(ctx context.Context, prefix string) ([]string, error) {
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: b.prefix + prefix,
	})

	seen := map[string]struct{}{}
	keys := []string{}
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		key, ok := b.parseLocator(obj.Key)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return sortDescending(keys), nil
}

func (b *BlobStorage) Delete(ctx context.Context, key string) error {
	objs, err := b.resolve(ctx, key)
	if err != nil {
		return err
	}
	return b.remove(ctx, objs)
}

func (b *BlobStorage) Close() error {
	return b.bucket.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (b *BlobStorage) locator(key, id string) string {
	if id == "" {
		return b.prefix + key + blobSuffix
	}
	return b.prefix + key + "." + id + blobSuffix
}

// parseLocator maps an object key back onto its logical key.
func (b *BlobStorage) parseLocator(objKey string) (string, bool) {
	if !strings.HasPrefix(objKey, b.prefix) || !strings.HasSuffix(objKey, blobSuffix) {
		return "", false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(objKey, b.prefix), blobSuffix)
	if i := strings.LastIndex(key, "."); i >= 0 {
		if _, err := uuid.Parse(key[i+1:]); err == nil {
			key = key[:i]
		}
	}
	return key, key != ""
}

// resolve returns all objects stored for key, newest first.
func (b *BlobStorage) resolve(ctx context.Context, key string) ([]*blob.ListObject, error) {
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: b.prefix + key,
	})

	var objs []*blob.ListObject
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		if k, ok := b.parseLocator(obj.Key); ok && k == key {
			objs = append(objs, obj)
		}
	}
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].ModTime.Equal(objs[j].ModTime) {
			return objs[i].Key > objs[j].Key
		}
		return objs[i].ModTime.After(objs[j].ModTime)
	})
	return objs, nil
}

func (b *BlobStorage) remove(ctx context.Context, objs []*blob.ListObject) error {
	var err error
	for _, obj := range objs {
		if errDelete := b.bucket.Delete(ctx, obj.Key); errDelete != nil && gcerrors.Code(errDelete) != gcerrors.NotFound {
			err = multierr.Append(err, errors.Wrapf(errDelete, "failed to delete %s", obj.Key))
		}
	}
	return err
}
