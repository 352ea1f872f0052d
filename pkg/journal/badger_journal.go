package journal

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key layout: single-byte prefix + big-endian LSN, so an ascending key
// scan is an ascending LSN scan.
const prefixRecord = byte(0x01)

// BadgerWAL is the BadgerDB-backed Journal, selectable via config for
// deployments that want the log inside the same managed directory tree
// as their other durable state. It satisfies the same append/sync/
// iterate contract as FileWAL: Append buffers in memory, Sync writes
// the batch in one Badger transaction and fsyncs the value log.
type BadgerWAL struct {
	mu      sync.Mutex
	db      *badger.DB
	pending []Entry
	nextLSN uint64
	closed  bool
	failed  bool
}

// OpenBadger opens (or creates) a Badger-backed journal in dir.
func OpenBadger(dir string) (*BadgerWAL, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	// The next LSN is one past the highest stored key.
	var lastLSN uint64
	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()
		// Seek to the end of the record prefix range.
		it.Seek([]byte{prefixRecord + 1})
		if it.ValidForPrefix([]byte{prefixRecord}) {
			key := it.Item().Key()
			lastLSN = binary.BigEndian.Uint64(key[1:])
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &BadgerWAL{db: db, nextLSN: lastLSN + 1}, nil
}

func recordKey(lsn uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixRecord
	binary.BigEndian.PutUint64(key[1:], lsn)
	return key
}

// Append assigns the next LSN and buffers the entry in memory.
func (w *BadgerWAL) Append(e Entry) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	if w.failed {
		return 0, ErrFailed
	}
	e.LSN = w.nextLSN
	w.nextLSN++
	w.pending = append(w.pending, e)
	return e.LSN, nil
}

// Sync writes every pending entry in one Badger transaction, then
// fsyncs the value log. A failed sync poisons the journal.
func (w *BadgerWAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.failed {
		return ErrFailed
	}
	if len(w.pending) == 0 {
		return nil
	}
	err := w.db.Update(func(txn *badger.Txn) error {
		for _, e := range w.pending {
			payload, err := encodePayload(e)
			if err != nil {
				return err
			}
			value := make([]byte, 1+len(payload))
			value[0] = byte(e.Kind)
			copy(value[1:], payload)
			if err := txn.Set(recordKey(e.LSN), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.failed = true
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if err := w.db.Sync(); err != nil {
		w.failed = true
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	w.pending = w.pending[:0]
	return nil
}

// IterateFrom calls fn for every durable record with LSN >= lsn, in
// LSN order. Pending (unsynced) entries are not visited.
func (w *BadgerWAL) IterateFrom(lsn uint64, fn func(Entry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(recordKey(lsn)); it.ValidForPrefix([]byte{prefixRecord}); it.Next() {
			item := it.Item()
			key := item.Key()
			entryLSN := binary.BigEndian.Uint64(key[1:])
			var entry Entry
			err := item.Value(func(value []byte) error {
				if len(value) < 1 {
					return ErrInvalidFormat
				}
				decoded, err := decodePayload(Kind(value[0]), entryLSN, value[1:])
				if err != nil {
					return err
				}
				entry = decoded
				return nil
			})
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close discards pending entries and closes the database.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.db.Close()
}
