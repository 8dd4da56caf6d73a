package tree

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/ident"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/synth"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func newSynth(t testing.TB, seed uint64) *synth.Synthesizer {
	t.Helper()
	s, err := synth.New(vocab.Default(), rand.New(rand.NewPCG(seed, seed)), fixedNow)
	require.NoError(t, err)
	return s
}

func opts(total, minPerFolder int) Options {
	o := DefaultOptions()
	o.TotalItems = total
	o.MinPerFolder = minPerFolder
	return o
}

func build(t *testing.T, o Options, seed uint64) ([]*record.Record, Stats) {
	t.Helper()
	c := &output.Collector{}
	b, err := New(o, newSynth(t, seed), c)
	require.NoError(t, err)
	stats, err := b.Build(context.Background())
	require.NoError(t, err)
	return c.Records, stats
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero total", func(o *Options) { o.TotalItems = 0 }},
		{"negative total", func(o *Options) { o.TotalItems = -5 }},
		{"negative floor", func(o *Options) { o.MinPerFolder = -1 }},
		{"floor equals total", func(o *Options) { o.MinPerFolder = o.TotalItems }},
		{"floor above total", func(o *Options) { o.MinPerFolder = o.TotalItems + 1 }},
		{"probability below zero", func(o *Options) { o.PromoteProbability = -0.1 }},
		{"probability above one", func(o *Options) { o.PromoteProbability = 1.5 }},
		{"zero active parents", func(o *Options) { o.MaxActiveParents = 0 }},
		{"negative progress", func(o *Options) { o.ProgressEvery = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			_, err := New(o, newSynth(t, 1), &output.Collector{})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	assert.NoError(t, DefaultOptions().Validate())
}

func TestNew_RejectsMissingCollaborators(t *testing.T) {
	_, err := New(DefaultOptions(), nil, &output.Collector{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultOptions(), newSynth(t, 1), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptions_TargetFolders(t *testing.T) {
	assert.Equal(t, 109, opts(110000, 1000).TargetFolders())
	assert.Equal(t, 2, opts(1500, 500).TargetFolders())
	assert.Equal(t, 5, opts(10, 1).TargetFolders())
}

func TestBuild_SmallExample(t *testing.T) {
	records, stats := build(t, opts(1500, 500), 42)

	assert.Equal(t, 2, stats.TargetFolders)
	assert.Equal(t, 1+vocab.DepartmentFolders, stats.Folders, "root and departments are unconditional")
	assert.Equal(t, 1500-stats.Folders, stats.Files)
	assert.Equal(t, 1500, stats.Items)
	require.Len(t, records, 1500)

	root := records[0]
	assert.Equal(t, ident.RootID, root.ID)
	assert.Equal(t, RootName, root.Name)
	assert.Equal(t, 0, root.Depth)

	v := vocab.Default()
	for i := 0; i < vocab.DepartmentFolders; i++ {
		d := records[i+1]
		assert.Equal(t, strings.ToLower(v.Departments[i]), d.Name)
		assert.Equal(t, ident.RootID, d.ParentID)
		assert.Equal(t, 1, d.Depth)
	}

	// The floor pass fills departments in creation order.
	perParent := map[string]int{}
	for _, r := range records {
		if r.Type == record.KindFile {
			perParent[r.ParentID]++
		}
	}
	assert.Equal(t, 500, perParent[records[1].ID])
	assert.Equal(t, 500, perParent[records[2].ID])
	assert.Equal(t, 492, perParent[records[3].ID])
	assert.NotContains(t, perParent, ident.RootID, "root never holds files")
}

func TestBuild_Invariants(t *testing.T) {
	records, stats := build(t, opts(5000, 100), 7)

	require.Len(t, records, 5000)
	assert.Equal(t, 49, stats.Folders)
	assert.Equal(t, 4951, stats.Files)

	seen := map[string]*record.Record{}
	roots := 0
	var totalSize int64

	for i, r := range records {
		if r.IsRoot() {
			roots++
		} else {
			parent, ok := seen[r.ParentID]
			require.True(t, ok, "record %d (%s): parent %s not emitted earlier", i, r.ID, r.ParentID)
			assert.Equal(t, record.KindFolder, parent.Type, "parent must be a folder")
			assert.Equal(t, parent.Depth+1, r.Depth)
		}

		_, dup := seen[r.ID]
		require.False(t, dup, "duplicate id %s", r.ID)
		seen[r.ID] = r

		created, modified, accessed, indexed, err := r.Times()
		require.NoError(t, err)
		assert.False(t, modified.Before(created))
		assert.False(t, accessed.Before(modified))
		assert.False(t, indexed.Before(accessed))

		switch r.Type {
		case record.KindFolder:
			assert.Equal(t, int64(0), r.Size)
			assert.Empty(t, r.Extension)
		case record.KindFile:
			assert.GreaterOrEqual(t, r.Size, types.KiB)
			assert.NotEmpty(t, r.Extension)
			assert.True(t, strings.HasSuffix(r.Name, r.Extension))
			assert.Len(t, r.Name, FileNameLength+len(r.Extension))
			totalSize += r.Size
		}

		if i > 0 {
			assert.True(t, ident.Less(records[i-1].ID, r.ID), "ids must increase: %s then %s", records[i-1].ID, r.ID)
		}
	}

	assert.Equal(t, 1, roots)
	assert.Equal(t, totalSize, stats.TotalFileSize)
}

func TestBuild_ChecksumFollowsPathContext(t *testing.T) {
	records, _ := build(t, opts(3000, 100), 11)

	byParent := map[string]string{}
	checksumOwner := map[string]string{}
	for _, r := range records {
		if r.IsRoot() {
			continue
		}
		assert.Equal(t, r.MD5, r.Checksum)
		if sum, ok := byParent[r.ParentID]; ok {
			assert.Equal(t, sum, r.MD5, "siblings share a path context")
		}
		byParent[r.ParentID] = r.MD5

		if owner, ok := checksumOwner[r.MD5]; ok {
			assert.Equal(t, owner, r.ParentID, "different path contexts collided")
		}
		checksumOwner[r.MD5] = r.ParentID
	}
}

func TestBuild_SlackWhenTargetTooSmall(t *testing.T) {
	for _, total := range []int{1, 3, 7, 8} {
		records, stats := build(t, opts(total, 0), 1)
		assert.Equal(t, 1+vocab.DepartmentFolders, stats.Items)
		assert.Equal(t, 0, stats.Files)
		assert.Len(t, records, max(total, 8))
	}

	records, stats := build(t, opts(9, 0), 1)
	assert.Len(t, records, 9)
	assert.GreaterOrEqual(t, stats.Folders, 8)
}

func TestBuild_StructureIndependentOfSeed(t *testing.T) {
	_, a := build(t, opts(4000, 200), 1)
	_, b := build(t, opts(4000, 200), 2)

	assert.Equal(t, a.Folders, b.Folders)
	assert.Equal(t, a.Files, b.Files)
	assert.Equal(t, a.Items, b.Items)
}

func TestBuild_DeterministicOutput(t *testing.T) {
	render := func(seed uint64) []byte {
		var buf bytes.Buffer
		sink := output.NewNDJSONSink(&buf)
		b, err := New(opts(2500, 100), newSynth(t, seed), sink)
		require.NoError(t, err)
		_, err = b.Build(context.Background())
		require.NoError(t, err)
		require.NoError(t, sink.Close())
		return buf.Bytes()
	}

	first := render(99)
	assert.Equal(t, first, render(99), "same seed and clock must be byte-identical")
	assert.NotEqual(t, first, render(100))
	assert.Equal(t, 2500, bytes.Count(first, []byte("\n")))
}

func TestBuild_SingleActiveParent(t *testing.T) {
	o := opts(2000, 10)
	o.MaxActiveParents = 1
	o.PromoteProbability = 1

	records, stats := build(t, o, 3)
	assert.Equal(t, o.TargetFolders(), stats.Folders)
	assert.Len(t, records, 2000)

	// With one slot and certain promotion each new folder nests in the last.
	maxDepth := 0
	for _, r := range records {
		if r.Type == record.KindFolder {
			maxDepth = max(maxDepth, r.Depth)
		}
	}
	assert.Equal(t, stats.Folders-vocab.DepartmentFolders, maxDepth)
}

type failAfter struct {
	n   int
	err error
}

func (f *failAfter) Write(*record.Record) error {
	if f.n == 0 {
		return f.err
	}
	f.n--
	return nil
}

func (f *failAfter) Close() error { return nil }

func TestBuild_SinkFailure(t *testing.T) {
	disk := errors.New("disk full")
	b, err := New(opts(1000, 10), newSynth(t, 1), &failAfter{n: 20, err: disk})
	require.NoError(t, err)

	stats, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrSink)
	assert.ErrorIs(t, err, disk)
	assert.Equal(t, 20, stats.Items)
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := New(opts(1000, 10), newSynth(t, 1), &output.Collector{})
	require.NoError(t, err)
	_, err = b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_OnlyOnce(t *testing.T) {
	b, err := New(opts(100, 1), newSynth(t, 1), &output.Collector{})
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	assert.Error(t, err)
}

func TestBuild_Progress(t *testing.T) {
	var reports []Progress
	o := opts(2500, 100)
	o.ProgressEvery = 1000
	o.Progress = func(p Progress) { reports = append(reports, p) }

	build(t, o, 5)

	require.Len(t, reports, 2)
	assert.Equal(t, 1000, reports[0].Items)
	assert.Equal(t, 2000, reports[1].Items)
	assert.Equal(t, reports[1].Items, reports[1].Folders+reports[1].Files)
}

func TestBuilder_Folders(t *testing.T) {
	c := &output.Collector{}
	b, err := New(opts(1000, 50), newSynth(t, 2), c)
	require.NoError(t, err)
	stats, err := b.Build(context.Background())
	require.NoError(t, err)

	folders := b.Folders()
	assert.Len(t, folders, stats.Folders-1)
	assert.Equal(t, "/root", folders[0].Path)
	assert.Equal(t, "/root/engineering", folders[0].ChildPath())
}

func BenchmarkBuild_NDJSON(b *testing.B) {
	o := opts(110000, 1000)
	o.ProgressEvery = 0
	for i := 0; i < b.N; i++ {
		sink := output.NewNDJSONSink(io.Discard)
		builder, err := New(o, newSynth(b, uint64(i)), sink)
		require.NoError(b, err)
		_, err = builder.Build(context.Background())
		require.NoError(b, err)
		require.NoError(b, sink.Close())
	}
}
