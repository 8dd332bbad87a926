package snapshot

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/foomo/funnelstore/pkg/metrics"
	"github.com/foomo/funnelstore/pkg/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// CurrentKey is the storage key of the live document
	CurrentKey = "funnel_data"
	// BackupPrefix is prepended to the stamp of every backup key
	BackupPrefix = "funnel_backup_"
	// DefaultRetention is the number of backups kept after a save
	DefaultRetention = 10
)

type (
	// Manager versions the funnel document. Every save keeps a backup of the
	// replaced document and prunes the backups down to the retention window.
	//
	// A Manager holds no state of its own, everything lives in the storage.
	// The save sequence is not transactional: concurrent saves may interleave,
	// the last commit wins and a prune may briefly race a backup write.
	// Callers needing serialization must coordinate outside of the Manager.
	Manager struct {
		l         *zap.Logger
		storage   storage.Storage
		retention int
		now       func() time.Time
	}
	Option func(*Manager)
	// Commit acknowledges a write of the current document
	Commit struct {
		Timestamp time.Time
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithRetention sets the number of backups to keep, values below 1 are ignored.
func WithRetention(v int) Option {
	return func(o *Manager) {
		if v > 0 {
			o.retention = v
		}
	}
}

func WithClock(v func() time.Time) Option {
	return func(o *Manager) {
		o.now = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, s storage.Storage, opts ...Option) *Manager {
	inst := &Manager{
		l:         l.Named("snapshot"),
		storage:   s,
		retention: DefaultRetention,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (m *Manager) Retention() int {
	return m.retention
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Current returns the current document. It never fails: a missing document
// or a storage error yields the empty document.
func (m *Manager) Current(ctx context.Context) Document {
	data, err := m.storage.Read(ctx, CurrentKey)
	if errors.Is(err, os.ErrNotExist) {
		return EmptyDocument()
	} else if err != nil {
		m.l.Warn("failed to read current document, serving empty document", zap.Error(err))
		metrics.CurrentReadFallbackCounter.WithLabelValues().Inc()
		return EmptyDocument()
	}
	if doc := Document(data); !doc.IsNull() {
		return doc
	}
	return EmptyDocument()
}

// Backups lists all backups, newest first.
func (m *Manager) Backups(ctx context.Context) ([]Backup, error) {
	backups, err := m.listBackups(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].compare(backups[j]) > 0
	})
	return backups, nil
}

// Restore returns the document stored in the given backup. It does not touch
// the current document, promoting a backup takes an explicit Save.
// Keys the storage can not map onto an object are not found either.
func (m *Manager) Restore(ctx context.Context, key string) (Document, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if !strings.HasPrefix(key, BackupPrefix) || key == BackupPrefix {
		return nil, errors.Wrap(ErrBackupNotFound, key)
	}
	data, err := m.storage.Read(ctx, key)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
		return nil, errors.Wrap(ErrBackupNotFound, key)
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to read backup")
	}
	return Document(data), nil
}

// Save replaces the current document. A present, non empty document is kept
// as a backup first and the backups are pruned to the retention window.
func (m *Manager) Save(ctx context.Context, doc Document) (Commit, error) {
	if doc.IsNull() {
		return Commit{}, ErrMissingDocument
	}

	l := m.l.With(zap.String("run_id", uuid.New().String()))

	existing, err := m.storage.Read(ctx, CurrentKey)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.Debug("no current document, skipping backup")
	case err != nil:
		l.Warn("failed to read current document, skipping backup", zap.Error(err))
	case Document(existing).IsEmpty():
		l.Debug("current document is empty, skipping backup")
	default:
		// a second save within the same second overwrites this backup
		key := BackupPrefix + NewStamp(m.now()).String()
		if err := m.storage.Write(ctx, key, existing); err != nil {
			return Commit{}, errors.Wrap(err, "failed to write backup")
		}
		metrics.BackupsCreatedCounter.WithLabelValues().Inc()
		l.Info("created backup", zap.String("key", key))
	}

	if err := m.prune(ctx, l); err != nil {
		return Commit{}, errors.Wrap(err, "failed to prune backups")
	}

	return m.commit(ctx, doc)
}

// Import replaces the current document without taking a backup or pruning.
func (m *Manager) Import(ctx context.Context, doc Document) (Commit, error) {
	if doc.IsNull() {
		return Commit{}, ErrMissingDocument
	}
	return m.commit(ctx, doc)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (m *Manager) commit(ctx context.Context, doc Document) (Commit, error) {
	if err := m.storage.Write(ctx, CurrentKey, doc); err != nil {
		return Commit{}, errors.Wrap(err, "failed to write current document")
	}
	return Commit{Timestamp: m.now().UTC()}, nil
}

func (m *Manager) listBackups(ctx context.Context) ([]Backup, error) {
	keys, err := m.storage.List(ctx, BackupPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list backups")
	}
	backups := make([]Backup, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, BackupPrefix) && key != BackupPrefix {
			backups = append(backups, newBackup(key))
		}
	}
	return backups, nil
}

// prune deletes the oldest backups beyond the retention window. It runs on
// every save, whether or not a backup was just written.
func (m *Manager) prune(ctx context.Context, l *zap.Logger) error {
	backups, err := m.listBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= m.retention {
		return nil
	}
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].compare(backups[j]) < 0
	})
	for _, b := range backups[:len(backups)-m.retention] {
		if err := m.storage.Delete(ctx, b.Key); err != nil {
			return errors.Wrapf(err, "failed to delete %s", b.Key)
		}
		metrics.BackupsPrunedCounter.WithLabelValues().Inc()
		l.Debug("removed outdated backup", zap.String("key", b.Key))
	}
	return nil
}
