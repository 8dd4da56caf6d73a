package store_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/ident"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/store"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/synth"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/tree"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openStore(t)

	schema := s.Schema()
	require.NotNil(t, schema)
	assert.Equal(t, store.SchemaVersion, schema.Version)

	n := 12
	file := &record.Record{
		ID:       "id_00000002",
		ParentID: "id_00000001",
		Name:     "abcdefghijkl.py",
		Type:     record.KindFile,
		Size:     4096,
		FileFields: &record.FileFields{
			MIMEType:  "text/x-python",
			LineCount: &n,
		},
	}
	require.NoError(t, s.Put(file))

	got, err := s.Get("id_00000002")
	require.NoError(t, err)
	assert.Equal(t, file.Name, got.Name)
	require.NotNil(t, got.FileFields)
	assert.Nil(t, got.FolderFields)
	require.NotNil(t, got.LineCount)
	assert.Equal(t, 12, *got.LineCount)

	children, err := s.Children("id_00000001")
	require.NoError(t, err)
	assert.Equal(t, []string{"id_00000002"}, children)

	_, err = s.Get("id_99999999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SinkCancelDiscardsWrites(t *testing.T) {
	s := openStore(t)

	sink := s.Sink()
	require.NoError(t, sink.Write(&record.Record{ID: ident.RootID, Name: "root", Type: record.KindFolder}))
	require.NoError(t, sink.Write(&record.Record{
		ID: "id_00000001", ParentID: ident.RootID, Name: "Engineering", Type: record.KindFolder,
	}))
	sink.Cancel()
	sink.Cancel()

	assert.Error(t, sink.Write(&record.Record{ID: "id_00000002"}))
	assert.NoError(t, sink.Close(), "close after cancel is a no-op")

	folders, files, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, folders)
	assert.Zero(t, files)
}

func TestStore_SinkFromBuild(t *testing.T) {
	s := openStore(t)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	syn, err := synth.New(vocab.Default(), rand.New(rand.NewPCG(8, 8)), now)
	require.NoError(t, err)

	opts := tree.DefaultOptions()
	opts.TotalItems = 600
	opts.MinPerFolder = 50

	sink := s.Sink()
	b, err := tree.New(opts, syn, sink)
	require.NoError(t, err)
	stats, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Error(t, sink.Write(&record.Record{ID: "late"}))

	folders, files, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, stats.Folders, folders)
	assert.Equal(t, stats.Files, files)

	depts, err := s.Children(ident.RootID)
	require.NoError(t, err)
	assert.Len(t, depts, vocab.DepartmentFolders)
	assert.Equal(t, "id_00000001", depts[0])

	// Walk yields creation order, so parents come first.
	seen := map[string]bool{}
	var previous string
	err = s.Walk(func(r *record.Record) error {
		if !r.IsRoot() {
			assert.True(t, seen[r.ParentID], "parent %s of %s not yet walked", r.ParentID, r.ID)
		}
		if previous != "" {
			assert.True(t, ident.Less(previous, r.ID))
		}
		seen[r.ID] = true
		previous = r.ID
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, stats.Items)
}

func TestStore_RunAndReset(t *testing.T) {
	s := openStore(t)

	_, err := s.Run()
	assert.ErrorIs(t, err, store.ErrNotFound)

	run := &store.Run{Seed: 42, Folders: 8, Files: 92, Items: 100, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.SetRun(run))
	got, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, run.Seed, got.Seed)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.Put(&record.Record{ID: ident.RootID, Name: "root", Type: record.KindFolder}))
	require.NoError(t, s.Reset())

	_, err = s.Get(ident.RootID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Run()
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotNil(t, s.Schema(), "reset keeps the schema marker")
}
