package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"gopkg.in/yaml.v3"
)

// NDJSONSink writes each record as one compact JSON object followed by a
// newline. Output is buffered; Close flushes it.
type NDJSONSink struct {
	bw    *bufio.Writer
	enc   *json.Encoder
	count int64
}

// NewNDJSONSink creates an NDJSON sink writing to w.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	bw := bufio.NewWriterSize(w, 256*1024)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &NDJSONSink{bw: bw, enc: enc}
}

// Write encodes r on its own line.
func (s *NDJSONSink) Write(r *record.Record) error {
	if err := s.enc.Encode(r); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count returns the number of records written.
func (s *NDJSONSink) Count() int64 {
	return s.count
}

// Close flushes buffered output.
func (s *NDJSONSink) Close() error {
	logger.Debug("ndjson sink flushed", "records", s.count)
	return s.bw.Flush()
}

func init() {
	Register("ndjson", func(w io.Writer) Sink {
		return NewNDJSONSink(w)
	})
	Register("jsonl", func(w io.Writer) Sink {
		return NewNDJSONSink(w)
	})
}

// YAMLSink writes records as a YAML document stream, one document per
// record.
type YAMLSink struct {
	bw  *bufio.Writer
	enc *yaml.Encoder
}

// NewYAMLSink creates a YAML sink writing to w.
func NewYAMLSink(w io.Writer) *YAMLSink {
	bw := bufio.NewWriter(w)
	enc := yaml.NewEncoder(bw)
	enc.SetIndent(2)
	return &YAMLSink{bw: bw, enc: enc}
}

// Write encodes r as a YAML document.
func (s *YAMLSink) Write(r *record.Record) error {
	return s.enc.Encode(r)
}

// Close terminates the stream and flushes buffered output.
func (s *YAMLSink) Close() error {
	if err := s.enc.Close(); err != nil {
		return err
	}
	return s.bw.Flush()
}

func init() {
	Register("yaml", func(w io.Writer) Sink {
		return NewYAMLSink(w)
	})
}

// Ensure sinks implement Sink.
var (
	_ Sink = (*NDJSONSink)(nil)
	_ Sink = (*YAMLSink)(nil)
)
