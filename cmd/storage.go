package cmd

import (
	"context"
	"strings"

	"github.com/foomo/funnelstore/pkg/storage"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// supportedBlobSchemes lists the URL schemes supported by blob storage
var supportedBlobSchemes = []string{"gs://", "s3://", "azblob://", "file://", "mem://"}

// createStorage creates a storage backend based on the configuration
func createStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (storage.Storage, error) {
	storageType := storageTypeFlag(v)

	l.Info("creating storage", zap.String("type", storageType))

	switch storageType {
	case "blob":
		bucket := storageBlobBucketFlag(v)
		if bucket == "" {
			return nil, errors.Errorf("blob bucket URL is required when storage-type is 'blob' (supported schemes: %s)", strings.Join(supportedBlobSchemes, ", "))
		}
		if !isValidBlobScheme(bucket) {
			return nil, errors.Errorf("unsupported blob storage URL scheme in %q; supported schemes: %s", bucket, strings.Join(supportedBlobSchemes, ", "))
		}
		l.Info("using blob storage",
			zap.String("bucket", bucket),
			zap.String("prefix", storageBlobPrefixFlag(v)),
			zap.Bool("random_suffix", storageBlobRandomSuffixFlag(v)),
			zap.String("provider", detectBlobProvider(bucket)),
		)
		return storage.NewBlobStorage(ctx, bucket,
			storage.BlobWithPrefix(storageBlobPrefixFlag(v)),
			storage.BlobWithRandomSuffix(storageBlobRandomSuffixFlag(v)),
		)
	case "bolt":
		path := storageBoltPathFlag(v)
		l.Info("using bolt storage", zap.String("path", path))
		return storage.NewBoltStorage(path)
	case "sql":
		dialect := storageSQLDialectFlag(v)
		dsn := storageSQLDSNFlag(v)
		if dsn == "" {
			return nil, errors.New("sql dsn is required when storage-type is 'sql'")
		}
		l.Info("using sql storage",
			zap.String("dialect", dialect),
			zap.String("table", storageSQLTableFlag(v)),
		)
		return storage.NewSQLStorage(ctx, dialect, dsn, storage.SQLWithTable(storageSQLTableFlag(v)))
	case "filesystem", "":
		dir := storageDirFlag(v)
		l.Info("using filesystem storage", zap.String("dir", dir))
		return storage.NewFilesystemStorage(dir)
	default:
		return nil, errors.Errorf("unknown storage type: %s (supported: filesystem, blob, bolt, sql)", storageType)
	}
}

// isValidBlobScheme checks if the bucket URL has a supported scheme
func isValidBlobScheme(bucketURL string) bool {
	for _, scheme := range supportedBlobSchemes {
		if strings.HasPrefix(bucketURL, scheme) {
			return true
		}
	}
	return false
}

// detectBlobProvider returns a human-readable provider name from the URL scheme
func detectBlobProvider(bucketURL string) string {
	switch {
	case strings.HasPrefix(bucketURL, "gs://"):
		return "Google Cloud Storage"
	case strings.HasPrefix(bucketURL, "s3://"):
		return "AWS S3"
	case strings.HasPrefix(bucketURL, "azblob://"):
		return "Azure Blob Storage"
	case strings.HasPrefix(bucketURL, "file://"):
		return "Local filesystem"
	case strings.HasPrefix(bucketURL, "mem://"):
		return "In-memory"
	default:
		return "unknown"
	}
}
