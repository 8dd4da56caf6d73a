// Package output provides the record sinks that serialize generated items,
// the compression codecs wrapped around them, and formatters for the run
// summary printed after generation.
//
// Sinks and summary formatters use a registry so the format can be chosen
// at runtime:
//
//	sink, err := output.NewSink("ndjson", w)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
)

// logger is the package-level logger for output operations.
var logger = logging.Get("output")

// DefaultFormat is the record format used when none is configured.
const DefaultFormat = "ndjson"

// Sink accepts records in emission order.
type Sink interface {
	// Write serializes one record. Order of calls is order of output.
	Write(r *record.Record) error

	// Close flushes buffered output. It does not close the underlying
	// writer, which belongs to the caller.
	Close() error
}

// SinkFactory creates a sink writing to w.
type SinkFactory func(w io.Writer) Sink

// Registry manages sink registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]SinkFactory
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]SinkFactory)}
}

// Register adds a sink factory, replacing any existing one with that name.
func (r *Registry) Register(name string, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New returns a sink for the named format writing to w.
func (r *Registry) New(name string, w io.Writer) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
	return factory(w), nil
}

// Available returns a sorted list of registered format names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global sink registry.
var DefaultRegistry = NewRegistry()

// Register adds a sink factory to the default registry.
func Register(name string, factory SinkFactory) {
	DefaultRegistry.Register(name, factory)
}

// NewSink returns a sink from the default registry.
func NewSink(name string, w io.Writer) (Sink, error) {
	return DefaultRegistry.New(name, w)
}

// Available returns all format names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// MultiSink fans each record out to several sinks in order. The first
// error stops the fan-out and is returned.
type MultiSink []Sink

// Write writes r to every sink.
func (m MultiSink) Write(r *record.Record) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Collector keeps records in memory.
type Collector struct {
	Records []*record.Record
	closed  bool
}

// Write appends r.
func (c *Collector) Write(r *record.Record) error {
	if c.closed {
		return fmt.Errorf("collector: write after close")
	}
	c.Records = append(c.Records, r)
	return nil
}

// Close marks the collector closed.
func (c *Collector) Close() error {
	c.closed = true
	return nil
}

// Ensure sinks implement Sink.
var (
	_ Sink = MultiSink(nil)
	_ Sink = (*Collector)(nil)
)
