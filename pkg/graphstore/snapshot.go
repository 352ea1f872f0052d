package graphstore

import "github.com/orneryd/hyperdb/pkg/hvalue"

// Clone returns an independent deep copy of the store: tables, all four
// indices, and the id counters. The transaction manager takes one at
// BEGIN so ROLLBACK can restore the committed state without replaying
// an undo log.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := New()
	out.nextNodeID = s.nextNodeID
	out.nextEdgeID = s.nextEdgeID
	for id, n := range s.nodes {
		cp := n.Clone()
		out.nodes[id] = &cp
	}
	for id, e := range s.edges {
		cp := e.Clone()
		out.edges[id] = &cp
	}
	for tid, set := range s.nodesByType {
		out.nodesByType[tid] = cloneNodeSet(set)
	}
	for tid, set := range s.edgesByType {
		out.edgesByType[tid] = cloneEdgeSet(set)
	}
	for nid, set := range s.edgesByNode {
		out.edgesByNode[nid] = cloneEdgeSet(set)
	}
	for eid, set := range s.edgesByEdge {
		out.edgesByEdge[eid] = cloneEdgeSet(set)
	}
	for key, set := range s.positional {
		out.positional[key] = cloneEdgeSet(set)
	}
	for eid, set := range s.higherOrder {
		out.higherOrder[eid] = cloneEdgeSet(set)
	}
	for key, idx := range s.attrIndexes {
		out.attrIndexes[key] = idx.clone()
	}
	return out
}

// ReplaceWith overwrites s's entire contents with other's, in place, so
// existing pointers to s (the executor, the query planner) observe the
// restored state. other is not retained.
func (s *Store) ReplaceWith(other *Store) {
	restored := other.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNodeID = restored.nextNodeID
	s.nextEdgeID = restored.nextEdgeID
	s.nodes = restored.nodes
	s.edges = restored.edges
	s.nodesByType = restored.nodesByType
	s.edgesByType = restored.edgesByType
	s.edgesByNode = restored.edgesByNode
	s.edgesByEdge = restored.edgesByEdge
	s.positional = restored.positional
	s.higherOrder = restored.higherOrder
	s.attrIndexes = restored.attrIndexes
}

// AdvanceCounters moves the id counters forward so they never re-issue
// an identifier seen during WAL replay. Passing a value at or below the
// current counter is a no-op.
func (s *Store) AdvanceCounters(node hvalue.NodeId, edge hvalue.EdgeId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(node) > s.nextNodeID {
		s.nextNodeID = uint64(node)
	}
	if uint64(edge) > s.nextEdgeID {
		s.nextEdgeID = uint64(edge)
	}
}

func cloneNodeSet(in map[hvalue.NodeId]struct{}) map[hvalue.NodeId]struct{} {
	out := make(map[hvalue.NodeId]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneEdgeSet(in map[hvalue.EdgeId]struct{}) map[hvalue.EdgeId]struct{} {
	out := make(map[hvalue.EdgeId]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
