package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func folderRecord(id, parent string) *record.Record {
	return &record.Record{
		ID:           id,
		ParentID:     parent,
		Name:         "engineering",
		Type:         record.KindFolder,
		IsDirectory:  true,
		CreatedAt:    "2024-01-01T00:00:00Z",
		ModifiedAt:   "2024-01-01T00:00:00Z",
		AccessedAt:   "2024-01-01T00:00:00Z",
		IndexedAt:    "2024-01-01T00:00:00Z",
		FolderFields: &record.FolderFields{},
	}
}

func fileRecord(id, parent string) *record.Record {
	n := 42
	return &record.Record{
		ID:        id,
		ParentID:  parent,
		Name:      "abcdefghijkl.go",
		Type:      record.KindFile,
		IsFile:    true,
		Extension: ".go",
		Size:      2048,
		SizeBytes: 2048,
		FileFields: &record.FileFields{
			SizeKB:    2,
			MIMEType:  "text/x-go",
			LineCount: &n,
		},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func(w io.Writer) Sink { return NewNDJSONSink(w) })
	r.Register("a", func(w io.Writer) Sink { return NewYAMLSink(w) })

	assert.Equal(t, []string{"a", "b"}, r.Available())

	s, err := r.New("b", io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &NDJSONSink{}, s)

	_, err = r.New("missing", io.Discard)
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	formats := Available()
	assert.Contains(t, formats, "ndjson")
	assert.Contains(t, formats, "yaml")
	assert.Contains(t, formats, DefaultFormat)
}

func TestNDJSONSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewNDJSONSink(&buf)

	require.NoError(t, s.Write(folderRecord("id_00000001", "0")))
	require.NoError(t, s.Write(fileRecord("id_00000002", "id_00000001")))
	assert.Equal(t, 0, buf.Len(), "output is buffered until Close")
	require.NoError(t, s.Close())
	assert.Equal(t, int64(2), s.Count())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var folder map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &folder))
	assert.Equal(t, "folder", folder["type"])
	assert.Contains(t, folder, "item_count")
	assert.NotContains(t, folder, "mime_type")

	var file map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &file))
	assert.Equal(t, "file", file["type"])
	assert.NotContains(t, file, "item_count")
	assert.Contains(t, file, "encoding")
	assert.Nil(t, file["encoding"], "inapplicable fields are explicit nulls")
	assert.Equal(t, float64(42), file["line_count"])

	assert.NotContains(t, lines[0], "\n")
	assert.False(t, strings.Contains(lines[0], "  "), "records are compact")
}

func TestYAMLSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewYAMLSink(&buf)

	require.NoError(t, s.Write(folderRecord("id_00000001", "0")))
	require.NoError(t, s.Write(fileRecord("id_00000002", "id_00000001")))
	require.NoError(t, s.Close())

	out := buf.String()
	assert.Contains(t, out, "id: id_00000001")
	assert.Contains(t, out, "mime_type: text/x-go")
	assert.Contains(t, out, "---")
}

type failingSink struct{ err error }

func (f *failingSink) Write(*record.Record) error { return f.err }
func (f *failingSink) Close() error               { return f.err }

func TestMultiSink(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	m := MultiSink{a, b}

	require.NoError(t, m.Write(folderRecord("id_00000001", "0")))
	require.NoError(t, m.Close())
	assert.Len(t, a.Records, 1)
	assert.Len(t, b.Records, 1)

	boom := errors.New("boom")
	c := &Collector{}
	m = MultiSink{&failingSink{err: boom}, c}
	assert.ErrorIs(t, m.Write(folderRecord("id_00000001", "0")), boom)
	assert.Empty(t, c.Records, "fan-out stops at the first error")
	assert.ErrorIs(t, m.Close(), boom)
}

func TestCollector_WriteAfterClose(t *testing.T) {
	c := &Collector{}
	require.NoError(t, c.Close())
	assert.Error(t, c.Write(folderRecord("id_00000001", "0")))
}

func TestCodecForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"big.ndjson", CodecNone},
		{"big.ndjson.gz", CodecGzip},
		{"big.ndjson.zst", CodecZstd},
		{"BIG.NDJSON.XZ", CodecXZ},
		{"-", CodecNone},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CodecForPath(tt.path))
		})
	}

	assert.Equal(t, CodecGzip, ResolveCodec(CodecAuto, "x.gz"))
	assert.Equal(t, CodecZstd, ResolveCodec(CodecZstd, "x.gz"))
	assert.Equal(t, CodecNone, ResolveCodec("", "x.ndjson"))
}

func TestCompressRoundTrip(t *testing.T) {
	payload := strings.Repeat(`{"id":"id_00000001","type":"folder"}`+"\n", 200)

	for _, codec := range Codecs() {
		t.Run(codec, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := Compress(&buf, codec)
			require.NoError(t, err)
			_, err = io.WriteString(w, payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if codec != CodecNone {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := Decompress(&buf, codec)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, payload, string(got))
		})
	}

	_, err := Compress(io.Discard, "lz4")
	assert.Error(t, err)
	_, err = Decompress(strings.NewReader(""), "lz4")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "fixture.ndjson.gz")

	dst, err := Open(path, CodecAuto)
	require.NoError(t, err)
	assert.Equal(t, CodecGzip, dst.Codec)
	assert.False(t, dst.IsStdout())

	sink := NewNDJSONSink(dst.Writer())
	require.NoError(t, sink.Write(folderRecord("id_00000001", "0")))
	require.NoError(t, sink.Close())
	require.NoError(t, dst.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), dst.Bytes())

	in, err := OpenInput(path)
	require.NoError(t, err)
	defer in.Close()

	sc := bufio.NewScanner(in)
	require.True(t, sc.Scan())
	assert.Contains(t, sc.Text(), `"id":"id_00000001"`)
	assert.False(t, sc.Scan())
}

func TestOpen_UnknownCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.ndjson")
	_, err := Open(path, "brotli")
	assert.Error(t, err)
}

func TestSummaryFormatters(t *testing.T) {
	s := &Summary{
		Output:        "big.ndjson.zst",
		Format:        "ndjson",
		Compression:   CodecZstd,
		Folders:       109,
		Files:         109891,
		Items:         110000,
		TargetItems:   110000,
		TargetFolders: 109,
		Bytes:         3 * 1024 * 1024,
		TotalFileSize: 5 * 1024 * 1024 * 1024,
		Elapsed:       2 * time.Second,
		Seed:          42,
	}

	assert.ElementsMatch(t, []string{"json", "plain", "pretty"}, SummaryFormats())

	t.Run("pretty", func(t *testing.T) {
		f, err := GetSummary("pretty")
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, s))
		out := buf.String()
		assert.Contains(t, out, "110,000")
		assert.Contains(t, out, "big.ndjson.zst (zstd)")
		assert.Contains(t, out, "5.0 GiB")
		assert.NotContains(t, out, "extra items")
	})

	t.Run("plain", func(t *testing.T) {
		f, err := GetSummary("plain")
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, s))
		assert.Contains(t, buf.String(), "items: 110000\n")
		assert.Contains(t, buf.String(), "seed: 42\n")
	})

	t.Run("json", func(t *testing.T) {
		f, err := GetSummary("json")
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, s))

		var decoded Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, *s, decoded)
	})

	_, err := GetSummary("html")
	assert.Error(t, err)
}

func TestSummary_Slack(t *testing.T) {
	s := &Summary{Items: 8, TargetItems: 3, Elapsed: time.Second}
	assert.Equal(t, 5, s.Slack())
	assert.Equal(t, 8.0, s.Rate())

	var buf bytes.Buffer
	require.NoError(t, (&PrettySummaryFormatter{}).Format(&buf, s))
	assert.Contains(t, buf.String(), "5 extra items")

	assert.Equal(t, 0, (&Summary{Items: 3, TargetItems: 3}).Slack())
	assert.Equal(t, 0.0, (&Summary{Items: 3}).Rate())
}
