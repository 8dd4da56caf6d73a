package synth

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func newTestSynth(t *testing.T, seed uint64, opts ...Option) *Synthesizer {
	t.Helper()
	s, err := New(vocab.Default(), rand.New(rand.NewPCG(seed, seed)), fixedNow, opts...)
	require.NoError(t, err)
	return s
}

func assertTimesOrdered(t *testing.T, r *record.Record) {
	t.Helper()
	created, modified, accessed, indexed, err := r.Times()
	require.NoError(t, err)
	assert.False(t, created.Before(Epoch), "created before epoch")
	assert.False(t, modified.Before(created), "modified before created")
	assert.False(t, accessed.Before(modified), "accessed before modified")
	assert.False(t, indexed.Before(accessed), "indexed before accessed")
	assert.Equal(t, fixedNow, indexed)
}

func TestNew(t *testing.T) {
	t.Run("rejects empty vocabulary", func(t *testing.T) {
		v := vocab.Default()
		v.Users = nil
		_, err := New(v, rand.New(rand.NewPCG(1, 1)), fixedNow)
		assert.ErrorIs(t, err, vocab.ErrEmptyVocabulary)
	})

	t.Run("rejects nil vocabulary", func(t *testing.T) {
		_, err := New(nil, rand.New(rand.NewPCG(1, 1)), fixedNow)
		assert.ErrorIs(t, err, vocab.ErrEmptyVocabulary)
	})

	t.Run("rejects nil random source", func(t *testing.T) {
		_, err := New(vocab.Default(), nil, fixedNow)
		assert.Error(t, err)
	})

	t.Run("rejects inverted size range", func(t *testing.T) {
		_, err := New(vocab.Default(), rand.New(rand.NewPCG(1, 1)), fixedNow, WithSizeRange(10, 5))
		assert.Error(t, err)
	})

	t.Run("rejects sizes below one KiB", func(t *testing.T) {
		_, err := New(vocab.Default(), rand.New(rand.NewPCG(1, 1)), fixedNow, WithSizeRange(1, 4096))
		assert.Error(t, err)

		_, err = New(vocab.Default(), rand.New(rand.NewPCG(1, 1)), fixedNow, WithSizeRange(types.KiB, types.KiB))
		assert.NoError(t, err)
	})

	t.Run("clamps epoch to now", func(t *testing.T) {
		s := newTestSynth(t, 1, WithEpoch(fixedNow.Add(time.Hour)))
		r := s.Folder("id_00000001", "0", "a", "/root")
		assert.Equal(t, record.FormatTime(fixedNow), r.CreatedAt)
		assertTimesOrdered(t, r)
	})
}

func TestSynthesizer_Folder(t *testing.T) {
	s := newTestSynth(t, 42)

	for i := 0; i < 200; i++ {
		r := s.Folder("id_00000001", "0", "engineering", "/root")

		assert.Equal(t, record.KindFolder, r.Type)
		assert.True(t, r.IsDirectory)
		assert.False(t, r.IsFile)
		assert.Equal(t, int64(0), r.Size)
		assert.Equal(t, int64(0), r.SizeBytes)
		assert.Empty(t, r.Extension)
		assert.Equal(t, 1, r.Depth)
		assert.Equal(t, "directory", r.Category)
		assert.True(t, r.IsExecutable)
		assert.Equal(t, "Folder containing engineering related items", r.Description)
		assert.GreaterOrEqual(t, len(r.Tags), 1)
		assert.LessOrEqual(t, len(r.Tags), 4)
		assert.Len(t, uniq(r.Tags), len(r.Tags), "tags must not repeat")
		assert.GreaterOrEqual(t, r.Inode, 1000000)
		assert.LessOrEqual(t, r.Inode, 9999999)
		require.NotNil(t, r.FolderFields)
		assert.Nil(t, r.FileFields)
		assertTimesOrdered(t, r)
	}
}

func TestSynthesizer_File(t *testing.T) {
	s := newTestSynth(t, 7)
	v := vocab.Default()

	for i := 0; i < 500; i++ {
		ext, category := s.PickExtension()
		r := s.File("id_00000009", "id_00000001", s.RandomName(12)+ext, "/root/engineering", ext, category)

		assert.Equal(t, record.KindFile, r.Type)
		assert.True(t, r.IsFile)
		assert.GreaterOrEqual(t, r.Size, types.KiB)
		assert.LessOrEqual(t, r.Size, 100*types.MiB)
		assert.Equal(t, r.Size, r.SizeBytes)
		assert.True(t, v.HasExtension(r.Extension), "extension %q not in vocabulary", r.Extension)
		assert.Equal(t, 2, r.Depth)
		assert.Equal(t, v.IsExecutable(ext), r.IsExecutable)
		assert.Equal(t, []string{category, "file", ext[1:]}, r.MetadataTypes)
		assert.LessOrEqual(t, len(r.Tags), 5)
		assert.Len(t, uniq(r.Tags), len(r.Tags))
		assertTimesOrdered(t, r)

		require.NotNil(t, r.FileFields)
		assert.Nil(t, r.FolderFields)
		assert.Equal(t, v.MIMEType(ext), r.MIMEType)
		assert.Equal(t, r.Size/types.BlockSize+1, r.BlocksAllocated)
		assert.GreaterOrEqual(t, r.CompressionRatio, 0.3)
		assert.LessOrEqual(t, r.CompressionRatio, 0.9)
		assert.Equal(t, v.HasEncoding(category), r.Encoding != nil)
		assert.Equal(t, v.HasLineCount(category), r.LineCount != nil)

		backup, err := time.Parse(record.TimeLayout, r.LastBackup)
		require.NoError(t, err)
		modified, _ := time.Parse(record.TimeLayout, r.ModifiedAt)
		assert.False(t, backup.Before(modified))
	}
}

func TestSynthesizer_FileDescription(t *testing.T) {
	s := newTestSynth(t, 3)
	r := s.File("id_00000002", "id_00000001", "x.go", "/root/engineering", ".go", "code")
	assert.Equal(t, "Code file", r.Description)
}

func TestSynthesizer_SizeRange(t *testing.T) {
	s := newTestSynth(t, 11, WithSizeRange(2048, 2048))
	r := s.File("id_00000002", "id_00000001", "a.txt", "/root", ".txt", "documents")
	assert.Equal(t, int64(2048), r.Size)
	assert.Equal(t, 2.0, r.SizeKB)
}

func TestSynthesizer_Checksums(t *testing.T) {
	s := newTestSynth(t, 5)

	a := s.File("id_00000002", "id_00000001", "a.txt", "/root/sales", ".txt", "documents")
	b := s.File("id_00000003", "id_00000001", "b.txt", "/root/sales", ".txt", "documents")
	c := s.File("id_00000004", "id_00000001", "c.txt", "/root/hr", ".txt", "documents")
	f := s.Folder("id_00000005", "id_00000001", "d", "/root/sales")

	assert.Equal(t, a.MD5, b.MD5)
	assert.Equal(t, a.Checksum, b.Checksum)
	assert.Equal(t, a.SHA256, b.SHA256)
	assert.Equal(t, a.Checksum, f.Checksum)
	assert.NotEqual(t, a.MD5, c.MD5)
	assert.NotEqual(t, a.SHA256, c.SHA256)

	// md5("/root/sales") is fixed regardless of randomness.
	assert.Equal(t, md5Hex("/root/sales"), a.MD5)
	assert.Len(t, a.SHA256, 64)
}

func TestSynthesizer_Deterministic(t *testing.T) {
	render := func(seed uint64) []byte {
		s := newTestSynth(t, seed)
		var out []byte
		for i := 0; i < 20; i++ {
			ext, cat := s.PickExtension()
			data, err := json.Marshal(s.File("id", "p", s.RandomName(12)+ext, "/root", ext, cat))
			require.NoError(t, err)
			out = append(out, data...)
		}
		return out
	}

	assert.Equal(t, render(99), render(99))
	assert.NotEqual(t, render(99), render(100))
}

func TestBetween(t *testing.T) {
	s := newTestSynth(t, 1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start, s.between(start, start), "collapsed interval returns start")
	assert.Equal(t, start, s.between(start, start.Add(-time.Hour)), "inverted interval returns start")

	for i := 0; i < 100; i++ {
		got := s.between(start, start.Add(10*time.Second))
		assert.False(t, got.Before(start))
		assert.False(t, got.After(start.Add(10*time.Second)))
	}
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("/root"))
	assert.Equal(t, 3, Depth("/root/engineering/abcdefgh"))
}

func TestRandomName(t *testing.T) {
	s := newTestSynth(t, 1)
	name := s.RandomName(8)
	assert.Len(t, name, 8)
	assert.Regexp(t, "^[a-z]{8}$", name)
}

func uniq(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, s := range list {
		m[s] = struct{}{}
	}
	return m
}
