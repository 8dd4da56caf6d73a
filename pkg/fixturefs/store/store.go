// Package store keeps generated fixtures in a Badger database so they can be
// looked up by id or walked by parent after generation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
)

var logger = logging.Get("store")

// Key prefixes for the kinds of data held.
const (
	prefixRecord = "r:" // r:<id> -> record JSON
	prefixChild  = "c:" // c:<parent>/<child> -> empty
	prefixMeta   = "m:" // metadata
)

// SchemaVersion is bumped whenever the key layout changes.
const SchemaVersion = 1

const (
	schemaKey = prefixMeta + "__schema__"
	runKey    = prefixMeta + "run"
)

// ErrNotFound is returned when an id is not in the store.
var ErrNotFound = errors.New("record not found")

// Schema records the key layout version of a store.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run describes the generation that filled the store.
type Run struct {
	Seed      uint64    `json:"seed"`
	Folders   int       `json:"folders"`
	Files     int       `json:"files"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a fixture database backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening fixture store: %w", err)
	}

	s := &Store{db: db}
	if s.Schema() == nil {
		if err := s.setSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset drops all data, then rewrites the schema marker.
func (s *Store) Reset() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clearing fixture store: %w", err)
	}
	return s.setSchema()
}

// Schema returns the stored schema, or nil when none is set.
func (s *Store) Schema() *Schema {
	var schema *Schema
	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})
	return schema
}

func (s *Store) setSchema() error {
	return s.setJSON(schemaKey, &Schema{Version: SchemaVersion, UpdatedAt: time.Now().UTC()})
}

// SetRun stores metadata about the generation that produced the records.
func (s *Store) SetRun(run *Run) error {
	return s.setJSON(runKey, run)
}

// Run returns the stored run metadata.
func (s *Store) Run() (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Put stores a single record and its parent link.
func (s *Store) Put(r *record.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(r.ID), data); err != nil {
			return err
		}
		if r.IsRoot() {
			return nil
		}
		return txn.Set(childKey(r.ParentID, r.ID), nil)
	})
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*record.Record, error) {
	var r record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Children returns the ids of the direct children of parentID in creation
// order.
func (s *Store) Children(parentID string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := childPrefix(parentID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// Count returns the number of stored folders and files.
func (s *Store) Count() (folders, files int, err error) {
	err = s.Walk(func(r *record.Record) error {
		if r.Type == record.KindFolder {
			folders++
		} else {
			files++
		}
		return nil
	})
	return folders, files, err
}

// Walk calls fn for every record in id order, which is creation order.
// An error from fn stops the walk and is returned.
func (s *Store) Walk(fn func(r *record.Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r record.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			if err := fn(&r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sink returns an output.Sink that batches records into the store. Close
// flushes the batch; it does not close the store.
func (s *Store) Sink() *Sink {
	return &Sink{store: s, wb: s.db.NewWriteBatch()}
}

// Sink writes records through a Badger write batch.
type Sink struct {
	store  *Store
	wb     *badger.WriteBatch
	count  int
	closed bool
}

// Write queues r and its parent link.
func (k *Sink) Write(r *record.Record) error {
	if k.closed {
		return fmt.Errorf("store sink: write after close")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := k.wb.Set(recordKey(r.ID), data); err != nil {
		return err
	}
	if !r.IsRoot() {
		if err := k.wb.Set(childKey(r.ParentID, r.ID), nil); err != nil {
			return err
		}
	}
	k.count++
	return nil
}

// Close flushes queued writes.
func (k *Sink) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if err := k.wb.Flush(); err != nil {
		return fmt.Errorf("flushing fixture store: %w", err)
	}
	logger.Debug("store sink flushed", "records", k.count)
	return nil
}

// Cancel discards queued writes. The sink cannot be used afterwards.
func (k *Sink) Cancel() {
	if k.closed {
		return
	}
	k.closed = true
	k.wb.Cancel()
	logger.Debug("store sink cancelled", "records", k.count)
}

var _ output.Sink = (*Sink)(nil)

func recordKey(id string) []byte {
	return []byte(prefixRecord + id)
}

func childPrefix(parentID string) []byte {
	return []byte(prefixChild + parentID + "/")
}

func childKey(parentID, childID string) []byte {
	return []byte(prefixChild + parentID + "/" + childID)
}
