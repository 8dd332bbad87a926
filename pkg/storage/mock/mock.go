package mock

import (
	"context"
	"sync"

	"github.com/foomo/funnelstore/pkg/storage"
)

// Op names a storage primitive
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpList   Op = "list"
	OpDelete Op = "delete"
)

// Storage wraps another storage and fails selected primitives on demand.
// It also records every call so tests can assert on the access pattern.
type Storage struct {
	storage.Storage
	mu    sync.Mutex
	fail  map[Op]error
	calls []Call
}

// Call is one recorded primitive invocation
type Call struct {
	Op  Op
	Key string
}

func New(s storage.Storage) *Storage {
	return &Storage{
		Storage: s,
		fail:    map[Op]error{},
	}
}

// Fail makes every following call of op return err; a nil err heals it again.
func (s *Storage) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the recorded calls
func (s *Storage) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how often op was called
func (s *Storage) Count(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := s.record(OpWrite, key); err != nil {
		return err
	}
	return s.Storage.Write(ctx, key, data)
}

func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := s.record(OpRead, key); err != nil {
		return nil, err
	}
	return s.Storage.Read(ctx, key)
}

func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.record(OpList, prefix); err != nil {
		return nil, err
	}
	return s.Storage.List(ctx, prefix)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.record(OpDelete, key); err != nil {
		return err
	}
	return s.Storage.Delete(ctx, key)
}

func (s *Storage) record(op Op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: op, Key: key})
	return s.fail[op]
}
