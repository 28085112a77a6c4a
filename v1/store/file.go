package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

const (
	fileFormatVersion = 1
	lockRetryDelay    = 20 * time.Millisecond
)

type document[T Record] struct {
	Version int `json:"version"`
	Records []T `json:"records"`
}

func encodeDocument[T Record](records []T) ([]byte, error) {
	data, err := json.MarshalIndent(document[T]{Version: fileFormatVersion, Records: records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encoding: %w", err)
	}
	return data, nil
}

// decodeDocument parses a document read from source. Empty data holds no
// records.
func decodeDocument[T Record](data []byte, source string) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc document[T]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, source, err)
	}
	if doc.Version > fileFormatVersion {
		return nil, fmt.Errorf("%w: %s has version %d, newer than %d", ErrCorrupt, source, doc.Version, fileFormatVersion)
	}
	return doc.Records, nil
}

// FileStore persists records as one JSON document. Save holds an exclusive
// flock on "<path>.lock", re-reads the document, applies the buffered
// changes and replaces the file through a rename.
type FileStore[T Record] struct {
	path    string
	logger  logger.Logger
	pending *pending[T]
}

var _ RecordStore[Record] = (*FileStore[Record])(nil)

// NewFileStore returns a store backed by path. The file and its directory
// are created on the first Save.
func NewFileStore[T Record](path string, log logger.Logger) *FileStore[T] {
	return &FileStore[T]{path: path, logger: log, pending: newPending[T]()}
}

// Path returns the document location.
func (s *FileStore[T]) Path() string {
	return s.path
}

func (s *FileStore[T]) LoadAll(ctx context.Context) ([]T, error) {
	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	persisted, err := s.read()
	if err != nil {
		return nil, err
	}
	return apply(persisted, s.pending.snapshot()), nil
}

func (s *FileStore[T]) Upsert(ctx context.Context, rec T) error {
	s.pending.upsert(rec)
	return nil
}

func (s *FileStore[T]) Delete(ctx context.Context, id string) error {
	s.pending.remove(id)
	return nil
}

func (s *FileStore[T]) Save(ctx context.Context) error {
	if s.pending.empty() {
		return nil
	}

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	persisted, err := s.read()
	if err != nil {
		return err
	}

	changes := s.pending.snapshot()
	records := apply(persisted, changes)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordID() < records[j].RecordID()
	})

	if err := s.write(records); err != nil {
		return err
	}
	s.pending.commit(changes)

	s.logger.Debug("record store saved", nil, map[string]interface{}{
		"path":    s.path,
		"records": len(records),
		"changes": len(changes),
	})
	return nil
}

func (s *FileStore[T]) lock(ctx context.Context, exclusive bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating directory: %w", err)
	}

	fl := flock.New(s.path + ".lock")
	var err error
	if exclusive {
		_, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		_, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("store: acquiring lock: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *FileStore[T]) read() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	return decodeDocument[T](data, s.path)
}

func (s *FileStore[T]) write(records []T) error {
	data, err := encodeDocument(records)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("store: replacing %s: %w", s.path, err)
	}
	return nil
}
