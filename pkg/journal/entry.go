// Package journal implements the write-ahead log: append-only entries
// with fsync-on-commit durability and replay on startup. Entries buffer
// in memory until Sync, which returns only after the bytes are durable;
// recovery replays the mutations of committed transactions only and
// truncates a torn tail detected by CRC mismatch.
package journal

import "github.com/orneryd/hyperdb/pkg/hvalue"

// Kind identifies an entry variant.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindCommit
	KindAbort
	KindSpawnNode
	KindKillNode
	KindLinkEdge
	KindUnlinkEdge
	KindSetAttr
	KindCheckpoint
)

// String returns the entry kind's wire-format-facing name.
func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindCommit:
		return "commit"
	case KindAbort:
		return "abort"
	case KindSpawnNode:
		return "spawn_node"
	case KindKillNode:
		return "kill_node"
	case KindLinkEdge:
		return "link_edge"
	case KindUnlinkEdge:
		return "unlink_edge"
	case KindSetAttr:
		return "set_attr"
	case KindCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// Entry is one WAL record. Which fields are meaningful depends on Kind;
// LSN is assigned by the journal at append time.
type Entry struct {
	LSN  uint64
	Kind Kind
	Txn  uint64

	// SpawnNode, KillNode
	Node     hvalue.NodeId
	NodeType hvalue.TypeId

	// LinkEdge, UnlinkEdge
	Edge     hvalue.EdgeId
	EdgeType hvalue.EdgeTypeId
	Targets  []hvalue.EntityId

	// SpawnNode, LinkEdge
	Attrs map[string]hvalue.Value

	// SetAttr
	Entity hvalue.EntityId
	Attr   string
	Old    hvalue.Value
	HadOld bool
	New    hvalue.Value

	// Checkpoint
	LastCommittedLSN uint64
}

// TxnID returns the transaction an entry belongs to; Checkpoint entries
// belong to none and return 0.
func (e Entry) TxnID() uint64 {
	if e.Kind == KindCheckpoint {
		return 0
	}
	return e.Txn
}

// IsBegin reports whether this entry opens a transaction.
func (e Entry) IsBegin() bool { return e.Kind == KindBegin }

// IsCommit reports whether this entry commits a transaction.
func (e Entry) IsCommit() bool { return e.Kind == KindCommit }

// IsMutation reports whether this entry describes a store mutation, the
// category recovery replays (or discards) and counts in its stats.
func (e Entry) IsMutation() bool {
	switch e.Kind {
	case KindSpawnNode, KindKillNode, KindLinkEdge, KindUnlinkEdge, KindSetAttr:
		return true
	}
	return false
}

// Journal is the append/sync/iterate contract the transaction manager
// writes through. Append assigns the LSN and buffers; Sync returns only
// after everything appended so far is durable.
type Journal interface {
	Append(e Entry) (uint64, error)
	Sync() error
	IterateFrom(lsn uint64, fn func(Entry) error) error
	Close() error
}
