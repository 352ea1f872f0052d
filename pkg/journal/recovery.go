package journal

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// RecoveryStats reports what a recovery pass did. Replayed counts the
// mutation and Commit entries of committed transactions; Discarded
// counts the mutation entries of transactions with no matching Commit.
// Begin entries are bookkeeping and count toward neither.
type RecoveryStats struct {
	Replayed  int
	Discarded int
}

// Recover scans j from the last checkpoint, replays the mutations of
// committed transactions (Begin seen and a matching Commit seen) into
// store in LSN order, discards the rest, and reports what it did.
func Recover(j Journal, store *graphstore.Store) (RecoveryStats, error) {
	// First pass: find the last checkpoint and the committed txn set.
	var startLSN uint64
	committed := map[uint64]bool{}
	err := j.IterateFrom(0, func(e Entry) error {
		switch e.Kind {
		case KindCheckpoint:
			startLSN = e.LastCommittedLSN
		case KindCommit:
			committed[e.Txn] = true
		}
		return nil
	})
	if err != nil {
		return RecoveryStats{}, fmt.Errorf("%w: %v", ErrRecovery, err)
	}

	var stats RecoveryStats
	err = j.IterateFrom(startLSN, func(e Entry) error {
		switch {
		case e.IsMutation() && committed[e.Txn]:
			if err := apply(store, e); err != nil {
				return err
			}
			stats.Replayed++
		case e.IsMutation():
			stats.Discarded++
		case e.IsCommit():
			stats.Replayed++
		}
		return nil
	})
	if err != nil {
		return RecoveryStats{}, fmt.Errorf("%w: %v", ErrRecovery, err)
	}
	return stats, nil
}

// apply replays one mutation entry against store. Entries arrive in
// the order they were journaled, so a KillNode is always preceded by
// the UnlinkEdge entries for its incident edges.
func apply(store *graphstore.Store, e Entry) error {
	switch e.Kind {
	case KindSpawnNode:
		node := hvalue.NewNode(e.Node, e.NodeType)
		for name, v := range e.Attrs {
			node.Attributes.Set(name, v)
		}
		if err := store.CreateNode(node); err != nil {
			return err
		}
		store.AdvanceCounters(e.Node, 0)
	case KindKillNode:
		if err := store.DeleteNode(e.Node); err != nil {
			return err
		}
	case KindLinkEdge:
		edge := hvalue.NewEdge(e.Edge, e.EdgeType, e.Targets)
		for name, v := range e.Attrs {
			edge.Attributes.Set(name, v)
		}
		if err := store.CreateEdge(edge); err != nil {
			return err
		}
		store.AdvanceCounters(0, e.Edge)
	case KindUnlinkEdge:
		if err := store.DeleteEdge(e.Edge); err != nil {
			return err
		}
	case KindSetAttr:
		if nid, ok := e.Entity.AsNode(); ok {
			if _, err := store.SetNodeAttr(nid, e.Attr, e.New); err != nil {
				return err
			}
		} else if eid, ok := e.Entity.AsEdge(); ok {
			if _, err := store.SetEdgeAttr(eid, e.Attr, e.New); err != nil {
				return err
			}
		}
	}
	return nil
}
