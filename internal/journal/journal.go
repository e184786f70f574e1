// Package journal durably records every step frame (the outgoing
// request and the simulator's reply) a supervisor engine exchanges,
// keyed by a monotonically increasing step number, using BadgerDB the
// way the teacher's pkg/metadata/store/badger package persists file
// metadata as prefixed key/value pairs. Unlike that store, a journal
// entry is immutable once written: there is no update-in-place path,
// only append and range-scan replay.
//
// This gives the testable properties in spec.md §8 (S1, S2, S6 assert
// on wire traffic observed for a step) a durable, replayable substrate:
// a test or an operator debugging a field report can replay the exact
// bytes a step produced without a live simulator.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a requested step has no journal entry.
var ErrNotFound = errors.New("journal: step not found")

const (
	prefixRequest = "req:"
	prefixReply   = "rep:"
)

// Entry is one journaled step: the bytes the serializer produced and
// the bytes the simulator replied with.
type Entry struct {
	Step    int64
	Request []byte
	Reply   []byte
}

// Journal is a Badger-backed append-only log of step frames.
type Journal struct {
	db          *badger.DB
	retainSteps int
}

// Open opens (creating if necessary) a Badger journal at path.
// retainSteps caps how many of the most recent steps Prune keeps; 0
// disables pruning.
func Open(path string, retainSteps int) (*Journal, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Journal{db: db, retainSteps: retainSteps}, nil
}

// Close releases the underlying Badger database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func keyRequest(step int64) []byte {
	return stepKey(prefixRequest, step)
}

func keyReply(step int64) []byte {
	return stepKey(prefixReply, step)
}

func stepKey(prefix string, step int64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(step))
	return key
}

// Record appends one step's request/reply bytes to the journal.
func (j *Journal) Record(step int64, request, reply []byte) error {
	return j.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyRequest(step), request); err != nil {
			return err
		}
		return txn.Set(keyReply(step), reply)
	})
}

// Read retrieves the request/reply bytes recorded for step.
func (j *Journal) Read(step int64) (*Entry, error) {
	entry := &Entry{Step: step}
	err := j.db.View(func(txn *badger.Txn) error {
		reqItem, err := txn.Get(keyRequest(step))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if entry.Request, err = reqItem.ValueCopy(nil); err != nil {
			return err
		}

		repItem, err := txn.Get(keyReply(step))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		entry.Reply, err = repItem.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Replay calls fn once per journaled step in increasing step order,
// from firstStep (inclusive) onward. Replay stops and returns fn's
// error the first time fn returns one.
func (j *Journal) Replay(firstStep int64, fn func(Entry) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		start := keyRequest(firstStep)
		for it.Seek(start); it.ValidForPrefix([]byte(prefixRequest)); it.Next() {
			item := it.Item()
			key := item.Key()
			step := int64(binary.BigEndian.Uint64(key[len(prefixRequest):]))

			var request []byte
			if err := item.Value(func(v []byte) error {
				request = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}

			replyItem, err := txn.Get(keyReply(step))
			if err != nil {
				return fmt.Errorf("journal: reply missing for step %d: %w", step, err)
			}
			var reply []byte
			if err := replyItem.Value(func(v []byte) error {
				reply = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}

			if err := fn(Entry{Step: step, Request: request, Reply: reply}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Prune deletes every step older than the most recent retainSteps
// entries. It is a no-op when retainSteps is 0.
func (j *Journal) Prune(latestStep int64) error {
	if j.retainSteps <= 0 {
		return nil
	}
	cutoff := latestStep - int64(j.retainSteps) + 1
	if cutoff <= 0 {
		return nil
	}
	return j.db.Update(func(txn *badger.Txn) error {
		for step := int64(0); step < cutoff; step++ {
			_ = txn.Delete(keyRequest(step))
			_ = txn.Delete(keyReply(step))
		}
		return nil
	})
}
