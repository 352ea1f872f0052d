package graphstore

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// CreateEdge inserts edge into the store and updates the type,
// adjacency, and higher-order indices. It fails with ErrTargetNotLive
// if any target does not refer to a currently live node or edge
// (invariant 1: no dangling targets in committed state).
func (s *Store) CreateEdge(edge hvalue.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[edge.ID]; exists {
		return fmt.Errorf("%w: %s", ErrEdgeAlreadyExists, edge.ID)
	}
	for _, t := range edge.Targets {
		if nid, ok := t.AsNode(); ok {
			if _, live := s.nodes[nid]; !live {
				return fmt.Errorf("%w: %s", ErrTargetNotLive, nid)
			}
		} else if eid, ok := t.AsEdge(); ok {
			if _, live := s.edges[eid]; !live {
				return fmt.Errorf("%w: %s", ErrTargetNotLive, eid)
			}
		}
	}

	stored := edge.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.edges[edge.ID] = &stored

	set, ok := s.edgesByType[edge.TypeID]
	if !ok {
		set = make(map[hvalue.EdgeId]struct{})
		s.edgesByType[edge.TypeID] = set
	}
	set[edge.ID] = struct{}{}

	for pos, t := range edge.Targets {
		if nid, ok := t.AsNode(); ok {
			s.addNodeAdjacency(nid, pos, edge.TypeID, edge.ID)
		} else if eid, ok := t.AsEdge(); ok {
			s.addEdgeAdjacency(eid, edge.ID)
		}
	}
	return nil
}

func (s *Store) addNodeAdjacency(nid hvalue.NodeId, pos int, etype hvalue.EdgeTypeId, eid hvalue.EdgeId) {
	set, ok := s.edgesByNode[nid]
	if !ok {
		set = make(map[hvalue.EdgeId]struct{})
		s.edgesByNode[nid] = set
	}
	set[eid] = struct{}{}

	key := adjKey{node: nid, position: pos, edgeType: etype}
	pset, ok := s.positional[key]
	if !ok {
		pset = make(map[hvalue.EdgeId]struct{})
		s.positional[key] = pset
	}
	pset[eid] = struct{}{}
}

func (s *Store) addEdgeAdjacency(targetEdge, eid hvalue.EdgeId) {
	set, ok := s.edgesByEdge[targetEdge]
	if !ok {
		set = make(map[hvalue.EdgeId]struct{})
		s.edgesByEdge[targetEdge] = set
	}
	set[eid] = struct{}{}

	hset, ok := s.higherOrder[targetEdge]
	if !ok {
		hset = make(map[hvalue.EdgeId]struct{})
		s.higherOrder[targetEdge] = hset
	}
	hset[eid] = struct{}{}
}

// GetEdge returns a deep copy of the edge identified by id.
func (s *Store) GetEdge(id hvalue.EdgeId) (hvalue.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return hvalue.Edge{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	return e.Clone(), nil
}

// EdgeExists reports whether id is currently live.
func (s *Store) EdgeExists(id hvalue.EdgeId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[id]
	return ok
}

// SetEdgeAttr assigns name on edge id, returning its new version.
func (s *Store) SetEdgeAttr(id hvalue.EdgeId, name string, value hvalue.Value) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	e.SetAttr(name, value)
	return e.Version, nil
}

// DeleteEdge removes edge id and all adjacency/higher-order index
// entries referencing it. It does not check for higher-order edges
// that still target id; the mutation executor resolves those
// (recursively) before calling DeleteEdge on the base edge.
func (s *Store) DeleteEdge(id hvalue.EdgeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	for pos, t := range e.Targets {
		if nid, ok := t.AsNode(); ok {
			if set, ok := s.edgesByNode[nid]; ok {
				delete(set, id)
			}
			key := adjKey{node: nid, position: pos, edgeType: e.TypeID}
			if pset, ok := s.positional[key]; ok {
				delete(pset, id)
			}
		} else if eid, ok := t.AsEdge(); ok {
			if set, ok := s.edgesByEdge[eid]; ok {
				delete(set, id)
			}
			if hset, ok := s.higherOrder[eid]; ok {
				delete(hset, id)
			}
		}
	}
	delete(s.edgesByType[e.TypeID], id)
	delete(s.edges, id)
	delete(s.edgesByEdge, id)
	delete(s.higherOrder, id)
	return nil
}

// EdgesOfType returns every live edge of exactly edgeType.
func (s *Store) EdgesOfType(edgeType hvalue.EdgeTypeId) []hvalue.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.edgesByType[edgeType]
	out := make([]hvalue.EdgeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// EdgesIncident returns every live edge that has node at any position,
// optionally filtered to a single edge type.
func (s *Store) EdgesIncident(node hvalue.NodeId, edgeType hvalue.EdgeTypeId, filterByType bool) []hvalue.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.edgesByNode[node]
	out := make([]hvalue.EdgeId, 0, len(set))
	for id := range set {
		if filterByType {
			e := s.edges[id]
			if e == nil || e.TypeID != edgeType {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// EdgesFrom returns edges with node at position 0 ("source"), optionally
// filtered to edgeType.
func (s *Store) EdgesFrom(node hvalue.NodeId, edgeType hvalue.EdgeTypeId, filterByType bool) []hvalue.EdgeId {
	return s.edgesAtPosition(node, 0, edgeType, filterByType)
}

// EdgesTo returns edges with node at any position other than 0
// ("target"), optionally filtered to edgeType.
func (s *Store) EdgesTo(node hvalue.NodeId, edgeType hvalue.EdgeTypeId, filterByType bool) []hvalue.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.edgesByNode[node]
	out := make([]hvalue.EdgeId, 0, len(set))
	for id := range set {
		e := s.edges[id]
		if e == nil {
			continue
		}
		if filterByType && e.TypeID != edgeType {
			continue
		}
		for pos := 1; pos < len(e.Targets); pos++ {
			if nid, ok := e.Targets[pos].AsNode(); ok && nid == node {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

func firstPosition(e *hvalue.Edge, node hvalue.NodeId) (int, bool) {
	for pos, t := range e.Targets {
		if nid, ok := t.AsNode(); ok && nid == node {
			return pos, true
		}
	}
	return 0, false
}

func (s *Store) edgesAtPosition(node hvalue.NodeId, position int, edgeType hvalue.EdgeTypeId, filterByType bool) []hvalue.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filterByType {
		key := adjKey{node: node, position: position, edgeType: edgeType}
		set := s.positional[key]
		out := make([]hvalue.EdgeId, 0, len(set))
		for id := range set {
			out = append(out, id)
		}
		return out
	}
	var out []hvalue.EdgeId
	for id := range s.edgesByNode[node] {
		if e := s.edges[id]; e != nil {
			if pos, ok := firstPosition(e, node); ok && pos == position {
				out = append(out, id)
			}
		}
	}
	return out
}

// EdgesAbout returns the higher-order index: every live edge that
// targets edgeID.
func (s *Store) EdgesAbout(edgeID hvalue.EdgeId) []hvalue.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.higherOrder[edgeID]
	out := make([]hvalue.EdgeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// FindEquivalent returns a live edge of edgeType whose target multiset
// equals targets (order-insensitive), used by LINK on symmetric edge
// types to implement idempotence. It returns (0, false) if none exists.
func (s *Store) FindEquivalent(edgeType hvalue.EdgeTypeId, targets []hvalue.EntityId) (hvalue.EdgeId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.edgesByType[edgeType] {
		e := s.edges[id]
		if e == nil || len(e.Targets) != len(targets) {
			continue
		}
		if sameMultiset(e.Targets, targets) {
			return id, true
		}
	}
	return 0, false
}

func sameMultiset(a, b []hvalue.EntityId) bool {
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if av.Equal(bv) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AllEdges returns a deep copy of every live edge.
func (s *Store) AllEdges() []hvalue.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hvalue.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e.Clone())
	}
	return out
}

// EdgeCount returns the total number of live edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// EdgeCountWithEntityAtPosition counts live edges of edgeType with
// entity at position, used by cardinality constraint checking.
func (s *Store) EdgeCountWithEntityAtPosition(edgeType hvalue.EdgeTypeId, position int, entity hvalue.EntityId) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if nid, ok := entity.AsNode(); ok {
		key := adjKey{node: nid, position: position, edgeType: edgeType}
		return len(s.positional[key])
	}
	count := 0
	for id := range s.edgesByType[edgeType] {
		e := s.edges[id]
		if e == nil {
			continue
		}
		if pos, ok := e.Target(position); ok && pos.Equal(entity) {
			count++
		}
	}
	return count
}
