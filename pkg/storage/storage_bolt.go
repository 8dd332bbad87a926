package storage

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("funnel")

// BoltStorage implements Storage on an embedded bbolt database.
// Keys are stored verbatim, there is no locator indirection.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage creates or opens the bbolt database at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bolt db")
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create bolt bucket")
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Write(_ context.Context, key string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), data)
	})
}

func (s *BoltStorage) Read(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}
		// values are only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BoltStorage) List(_ context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortDescending(keys), nil
}

func (s *BoltStorage) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
