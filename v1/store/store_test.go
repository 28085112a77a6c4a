package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

type note struct {
	ID   string   `json:"id" gorm:"primaryKey"`
	Body string   `json:"body"`
	Tags []string `json:"tags,omitempty" gorm:"serializer:json"`
}

func (n note) RecordID() string { return n.ID }

func newFileStore(t *testing.T) *FileStore[note] {
	t.Helper()
	return NewFileStore[note](filepath.Join(t.TempDir(), "nested", "notes.json"), logger.NewNop())
}

func TestFileStore_NothingPersistedUntilSave(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.Upsert(ctx, note{ID: "b", Body: "second"}))
	require.NoError(t, s.Upsert(ctx, note{ID: "a", Body: "first"}))

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: "b", Body: "second"}, {ID: "a", Body: "first"}}, all)

	require.NoError(t, s.Save(ctx))

	reopened := NewFileStore[note](s.Path(), logger.NewNop())
	all, err = reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: "a", Body: "first"}, {ID: "b", Body: "second"}}, all)
}

func TestFileStore_UpsertReplacesAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.Upsert(ctx, note{ID: "a", Body: "v1", Tags: []string{"x"}}))
	require.NoError(t, s.Upsert(ctx, note{ID: "b", Body: "keep"}))
	require.NoError(t, s.Save(ctx))

	require.NoError(t, s.Upsert(ctx, note{ID: "a", Body: "v2"}))
	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "never-existed"))
	require.NoError(t, s.Save(ctx))

	all, err := NewFileStore[note](s.Path(), logger.NewNop()).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: "a", Body: "v2"}}, all)
}

func TestFileStore_DeleteThenUpsertResurrects(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	require.NoError(t, s.Upsert(ctx, note{ID: "a", Body: "v1"}))
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Upsert(ctx, note{ID: "a", Body: "v2"}))
	require.NoError(t, s.Save(ctx))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: "a", Body: "v2"}}, all)
}

func TestFileStore_TwoWritersMerge(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.json")
	first := NewFileStore[note](path, logger.NewNop())
	second := NewFileStore[note](path, logger.NewNop())

	require.NoError(t, first.Upsert(ctx, note{ID: "a"}))
	require.NoError(t, second.Upsert(ctx, note{ID: "b"}))
	require.NoError(t, first.Save(ctx))
	require.NoError(t, second.Save(ctx))

	all, err := first.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.LoadAll(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	require.NoError(t, s.Upsert(ctx, note{ID: "a"}))
	require.NoError(t, s.Save(ctx))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestPending_CommitKeepsLaterChanges(t *testing.T) {
	p := newPending[note]()
	p.upsert(note{ID: "a", Body: "v1"})
	saved := p.snapshot()

	p.upsert(note{ID: "a", Body: "v2"})
	p.commit(saved)

	left := p.snapshot()
	require.Len(t, left, 1)
	assert.Equal(t, "v2", left[0].rec.Body)

	p.commit(left)
	assert.True(t, p.empty())
}

func TestNew(t *testing.T) {
	s, closeFn, err := New[note](context.Background(), Config{}, filepath.Join(t.TempDir(), "x.json"), logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore[note]{}, s)
	assert.NoError(t, closeFn())

	_, _, err = New[note](context.Background(), Config{Backend: "etcd"}, "", logger.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	_, _, err = New[note](context.Background(), Config{Backend: BackendObject}, "", logger.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = New[note](context.Background(), Config{
		Backend: BackendObject,
		Object:  ObjectConfig{Endpoint: "localhost:9000"},
	}, "", logger.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig, "bucket is required")
}

func TestDecodeDocument(t *testing.T) {
	recs, err := decodeDocument[note](nil, "empty")
	require.NoError(t, err)
	assert.Nil(t, recs)

	_, err = decodeDocument[note]([]byte("{"), "broken")
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = decodeDocument[note]([]byte(`{"version": 99, "records": []}`), "future")
	assert.ErrorIs(t, err, ErrCorrupt)

	data, err := encodeDocument([]note{{ID: "a", Body: "x"}})
	require.NoError(t, err)
	recs, err = decodeDocument[note](data, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, []note{{ID: "a", Body: "x"}}, recs)
}
