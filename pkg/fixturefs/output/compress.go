package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression codec names.
const (
	CodecAuto = "auto"
	CodecNone = "none"
	CodecGzip = "gzip"
	CodecZstd = "zstd"
	CodecXZ   = "xz"
)

// Stdout is the output path that selects standard output.
const Stdout = "-"

// Codecs returns the codec names accepted by Compress.
func Codecs() []string {
	return []string{CodecNone, CodecGzip, CodecZstd, CodecXZ}
}

// CodecForPath infers a codec from a file suffix.
func CodecForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	case ".xz":
		return CodecXZ
	default:
		return CodecNone
	}
}

// ResolveCodec turns "auto" or "" into the codec implied by path.
func ResolveCodec(codec, path string) string {
	if codec == "" || codec == CodecAuto {
		return CodecForPath(path)
	}
	return codec
}

// Compress wraps w in an encoder for codec. Closing the returned writer
// flushes the encoder but leaves w open.
func Compress(w io.Writer, codec string) (io.WriteCloser, error) {
	switch codec {
	case CodecNone, "":
		return nopWriteCloser{w}, nil
	case CodecGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case CodecZstd:
		return zstd.NewWriter(w)
	case CodecXZ:
		return xz.NewWriter(w)
	default:
		return nil, fmt.Errorf("unknown compression codec: %s", codec)
	}
}

// Decompress wraps r in a decoder for codec.
func Decompress(r io.Reader, codec string) (io.ReadCloser, error) {
	switch codec {
	case CodecNone, "":
		return io.NopCloser(r), nil
	case CodecGzip:
		return gzip.NewReader(r)
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CodecXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %s", codec)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// CountingWriter counts bytes passed through to the wrapped writer.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}

// Destination is an opened output: a file or stdout, a byte counter and an
// optional encoder. Writes go through Writer; Close finalizes the encoder
// and then the file.
type Destination struct {
	Path  string
	Codec string

	file    *os.File
	counter *CountingWriter
	enc     io.WriteCloser
}

// Open creates the destination at path ("-" for stdout) compressed with
// codec. "auto" infers the codec from the path suffix.
func Open(path, codec string) (*Destination, error) {
	codec = ResolveCodec(codec, path)

	var file *os.File
	if path == Stdout || path == "" {
		path = Stdout
		file = os.Stdout
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating output directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating output file: %w", err)
		}
		file = f
	}

	counter := &CountingWriter{W: file}
	enc, err := Compress(counter, codec)
	if err != nil {
		if file != os.Stdout {
			_ = file.Close()
		}
		return nil, err
	}

	logger.Debug("output opened", "path", path, "codec", codec)
	return &Destination{Path: path, Codec: codec, file: file, counter: counter, enc: enc}, nil
}

// Writer returns the writer records should be serialized to.
func (d *Destination) Writer() io.Writer {
	return d.enc
}

// Bytes returns the number of bytes that reached the file so far.
func (d *Destination) Bytes() int64 {
	return d.counter.N
}

// IsStdout reports whether the destination is standard output.
func (d *Destination) IsStdout() bool {
	return d.file == os.Stdout
}

// Close flushes the encoder and closes the file. Stdout is left open.
func (d *Destination) Close() error {
	encErr := d.enc.Close()
	if d.IsStdout() {
		return encErr
	}
	if err := d.file.Close(); err != nil && encErr == nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if encErr != nil {
		return fmt.Errorf("finalizing %s stream: %w", d.Codec, encErr)
	}
	return nil
}

// OpenInput opens path for reading with codec inferred from its suffix.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := Decompress(f, CodecForPath(path))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &inputFile{ReadCloser: rc, file: f}, nil
}

type inputFile struct {
	io.ReadCloser
	file *os.File
}

func (i *inputFile) Close() error {
	err := i.ReadCloser.Close()
	if cerr := i.file.Close(); err == nil {
		err = cerr
	}
	return err
}
