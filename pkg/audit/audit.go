// Package audit provides the engine's append-only audit trail.
//
// One structured JSON line is written per transaction boundary (begin,
// commit, rollback) and per rule-engine abort, so an operator can
// reconstruct what a session did without replaying the WAL. The log is
// append-only and rotates by size.
//
// Example Usage:
//
//	logger, err := audit.NewLogger(audit.Config{Dir: "/var/log/hyperdb"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.LogBegin(sessionID, txnID)
//	logger.LogCommit(sessionID, txnID, mutations, warnings)
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType classifies an audit event.
type EventType string

const (
	EventBegin     EventType = "txn.begin"
	EventCommit    EventType = "txn.commit"
	EventRollback  EventType = "txn.rollback"
	EventRuleAbort EventType = "rule.abort"
	EventRecovery  EventType = "engine.recovery"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Session   string    `json:"session,omitempty"`
	Txn       uint64    `json:"txn,omitempty"`
	Mutations int       `json:"mutations,omitempty"`
	Warnings  int       `json:"warnings,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Config tunes the audit logger.
type Config struct {
	// Dir is where audit files live.
	Dir string

	// MaxFileSize triggers rotation when exceeded, in bytes. Zero means
	// 64 MiB.
	MaxFileSize int64
}

// Logger writes audit events as JSON lines, one file at a time,
// rotating by size. Safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	cfg     Config
	file    *os.File
	written int64
	closed  bool
}

const auditFileName = "audit.log"

// NewLogger opens (or creates) the audit log inside cfg.Dir.
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 64 << 20
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	path := filepath.Join(cfg.Dir, auditFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: %w", err)
	}
	return &Logger{cfg: cfg, file: file, written: info.Size()}, nil
}

// Log appends one event. Errors are returned, not fatal: a full audit
// disk must not take the engine down with it.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("audit: logger closed")
	}
	if l.written+int64(len(line)) > l.cfg.MaxFileSize {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}
	n, err := l.file.Write(line)
	l.written += int64(n)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

// rotateLocked renames the current file with a timestamp suffix and
// starts a fresh one.
func (l *Logger) rotateLocked() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	current := filepath.Join(l.cfg.Dir, auditFileName)
	rotated := filepath.Join(l.cfg.Dir, fmt.Sprintf("audit-%s.log", time.Now().UTC().Format("20060102T150405")))
	if err := os.Rename(current, rotated); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	file, err := os.OpenFile(current, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	l.file = file
	l.written = 0
	return nil
}

// LogBegin records a transaction start.
func (l *Logger) LogBegin(session string, txn uint64) error {
	return l.Log(Event{Type: EventBegin, Session: session, Txn: txn})
}

// LogCommit records a successful commit with its mutation and warning
// counts.
func (l *Logger) LogCommit(session string, txn uint64, mutations, warnings int) error {
	return l.Log(Event{Type: EventCommit, Session: session, Txn: txn, Mutations: mutations, Warnings: warnings})
}

// LogRollback records a rollback and why.
func (l *Logger) LogRollback(session string, txn uint64, reason string) error {
	return l.Log(Event{Type: EventRollback, Session: session, Txn: txn, Detail: reason})
}

// LogRuleAbort records a rule-engine bound violation aborting a
// transaction.
func (l *Logger) LogRuleAbort(session string, txn uint64, reason string) error {
	return l.Log(Event{Type: EventRuleAbort, Session: session, Txn: txn, Detail: reason})
}

// LogRecovery records a startup recovery pass.
func (l *Logger) LogRecovery(replayed, discarded int) error {
	return l.Log(Event{
		Type:   EventRecovery,
		Detail: fmt.Sprintf("replayed=%d discarded=%d", replayed, discarded),
	})
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
