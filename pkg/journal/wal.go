package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Record framing: {u32 length, u64 lsn, u8 kind, payload, u32 crc}.
// length covers everything after itself; crc covers (lsn | kind |
// payload). All integers are big-endian. A torn tail — a record whose
// length runs past EOF or whose CRC does not match — is truncated away
// when the file is opened.
const recordHeaderSize = 4

// WALFileName is the single segment file a FileWAL owns inside its
// directory.
const WALFileName = "journal.wal"

// FileWAL is the file-backed Journal. Append buffers through a
// bufio.Writer; Sync flushes and fsyncs, retrying transient failures
// with bounded exponential backoff. A sync that exhausts its retries
// poisons the journal: every later call returns ErrFailed until the
// journal is reopened.
type FileWAL struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	nextLSN uint64
	closed  bool
	failed  bool
}

// OpenFile opens (or creates) the WAL inside dir, scanning existing
// records to find the next LSN and truncating any torn tail.
func OpenFile(dir string) (*FileWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	path := filepath.Join(dir, WALFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	validLen, lastLSN, err := scanValidPrefix(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Truncate(validLen); err != nil {
		file.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	if _, err := file.Seek(validLen, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	return &FileWAL{
		file:    file,
		writer:  bufio.NewWriter(file),
		nextLSN: lastLSN + 1,
	}, nil
}

// scanValidPrefix reads records from the start, returning the byte
// length of the valid prefix and the highest LSN seen within it.
func scanValidPrefix(file *os.File) (int64, uint64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("journal: %w", err)
	}
	size := info.Size()
	reader := bufio.NewReader(io.NewSectionReader(file, 0, size))

	var offset int64
	var lastLSN uint64
	for {
		var lenBuf [recordHeaderSize]byte
		if _, err := io.ReadFull(reader, lenBuf[:]); err != nil {
			break // clean EOF or torn length prefix
		}
		recLen := binary.BigEndian.Uint32(lenBuf[:])
		if recLen < 8+1+4 || offset+recordHeaderSize+int64(recLen) > size {
			break
		}
		body := make([]byte, recLen)
		if _, err := io.ReadFull(reader, body); err != nil {
			break
		}
		lsn := binary.BigEndian.Uint64(body[:8])
		stored := binary.BigEndian.Uint32(body[recLen-4:])
		if crc32.ChecksumIEEE(body[:recLen-4]) != stored {
			break
		}
		lastLSN = lsn
		offset += recordHeaderSize + int64(recLen)
	}
	return offset, lastLSN, nil
}

// Append encodes e, assigns the next LSN, and buffers the record. The
// record is not durable until Sync returns.
func (w *FileWAL) Append(e Entry) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	if w.failed {
		return 0, ErrFailed
	}

	lsn := w.nextLSN
	payload, err := encodePayload(e)
	if err != nil {
		return 0, err
	}

	body := make([]byte, 8+1+len(payload)+4)
	binary.BigEndian.PutUint64(body[:8], lsn)
	body[8] = byte(e.Kind)
	copy(body[9:], payload)
	crc := crc32.ChecksumIEEE(body[:9+len(payload)])
	binary.BigEndian.PutUint32(body[9+len(payload):], crc)

	var lenBuf [recordHeaderSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.writer.Write(lenBuf[:]); err != nil {
		return 0, fmt.Errorf("journal: %w", err)
	}
	if _, err := w.writer.Write(body); err != nil {
		return 0, fmt.Errorf("journal: %w", err)
	}
	w.nextLSN++
	return lsn, nil
}

// Sync flushes the buffer and fsyncs the file, returning only after
// the bytes are durable. Transient fsync failures are retried with
// bounded exponential backoff; exhausting the retries poisons the
// journal.
func (w *FileWAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.failed {
		return ErrFailed
	}
	if err := w.writer.Flush(); err != nil {
		w.failed = true
		return fmt.Errorf("journal: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second
	err := backoff.Retry(func() error {
		return w.file.Sync()
	}, policy)
	if err != nil {
		w.failed = true
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	return nil
}

// IterateFrom calls fn for every record with LSN >= lsn, in LSN order.
// Iteration stops at the first error fn returns.
func (w *FileWAL) IterateFrom(lsn uint64, fn func(Entry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	reader := bufio.NewReader(io.NewSectionReader(w.file, 0, info.Size()))
	for {
		entry, err := readRecord(reader)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.LSN < lsn {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

func readRecord(reader *bufio.Reader) (Entry, error) {
	var lenBuf [recordHeaderSize]byte
	if _, err := io.ReadFull(reader, lenBuf[:]); err != nil {
		return Entry{}, io.EOF
	}
	recLen := binary.BigEndian.Uint32(lenBuf[:])
	if recLen < 8+1+4 {
		return Entry{}, io.EOF
	}
	body := make([]byte, recLen)
	if _, err := io.ReadFull(reader, body); err != nil {
		return Entry{}, io.EOF
	}
	stored := binary.BigEndian.Uint32(body[recLen-4:])
	if crc32.ChecksumIEEE(body[:recLen-4]) != stored {
		return Entry{}, io.EOF // torn tail; everything after is garbage
	}
	lsn := binary.BigEndian.Uint64(body[:8])
	kind := Kind(body[8])
	return decodePayload(kind, lsn, body[9:recLen-4])
}

// Close flushes and closes the file. A poisoned journal closes without
// flushing.
func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.failed {
		if err := w.writer.Flush(); err != nil {
			w.file.Close()
			return fmt.Errorf("journal: %w", err)
		}
	}
	return w.file.Close()
}
