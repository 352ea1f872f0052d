package graphstore

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// CreateNode inserts node into the store and updates the type and any
// registered attribute indices. It fails if node.ID is already present.
func (s *Store) CreateNode(node hvalue.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrNodeAlreadyExists, node.ID)
	}
	stored := node.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.nodes[node.ID] = &stored

	set, ok := s.nodesByType[node.TypeID]
	if !ok {
		set = make(map[hvalue.NodeId]struct{})
		s.nodesByType[node.TypeID] = set
	}
	set[node.ID] = struct{}{}

	stored.Attributes.Range(func(name string, v hvalue.Value) bool {
		if idx, ok := s.indexFor(node.TypeID, name); ok {
			idx.insert(v, node.ID)
		}
		return true
	})
	return nil
}

// GetNode returns a deep copy of the node identified by id.
func (s *Store) GetNode(id hvalue.NodeId) (hvalue.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return hvalue.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n.Clone(), nil
}

// SetNodeAttr assigns name on node id and updates any registered
// attribute index for (type, name). It returns the node's new version.
func (s *Store) SetNodeAttr(id hvalue.NodeId, name string, value hvalue.Value) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if idx, ok := s.indexFor(n.TypeID, name); ok {
		if old, had := n.Attributes.Get(name); had {
			idx.remove(old, id)
		}
	}
	n.SetAttr(name, value)
	if idx, ok := s.indexFor(n.TypeID, name); ok {
		idx.insert(value, id)
	}
	return n.Version, nil
}

// RemoveNodeAttr deletes an attribute entirely from node id.
func (s *Store) RemoveNodeAttr(id hvalue.NodeId, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if idx, ok := s.indexFor(n.TypeID, name); ok {
		if old, had := n.Attributes.Get(name); had {
			idx.remove(old, id)
		}
	}
	n.RemoveAttr(name)
	return n.Version, nil
}

// DeleteNode removes node id from the store. It refuses (ErrNodeHasEdges)
// if the node still has any incident edge; the mutation executor is
// responsible for cascading/removing those first.
func (s *Store) DeleteNode(id hvalue.NodeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if len(s.edgesByNode[id]) > 0 {
		return fmt.Errorf("%w: %s", ErrNodeHasEdges, id)
	}
	n.Attributes.Range(func(name string, v hvalue.Value) bool {
		if idx, ok := s.indexFor(n.TypeID, name); ok {
			idx.remove(v, id)
		}
		return true
	})
	delete(s.nodesByType[n.TypeID], id)
	delete(s.nodes, id)
	delete(s.edgesByNode, id)
	return nil
}

// NodeExists reports whether id is currently live.
func (s *Store) NodeExists(id hvalue.NodeId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// NodesOfType returns every live node of exactly typeID.
func (s *Store) NodesOfType(typeID hvalue.TypeId) []hvalue.NodeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.nodesByType[typeID]
	out := make([]hvalue.NodeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// NodeCountOfType returns the number of live nodes of exactly typeID,
// used by the query planner's smallest-first scan ordering heuristic.
func (s *Store) NodeCountOfType(typeID hvalue.TypeId) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodesByType[typeID])
}

// NodesByAttrEq returns nodes of typeID whose attr equals value via the
// registered index, or nil if no index exists for (typeID, attr).
func (s *Store) NodesByAttrEq(typeID hvalue.TypeId, attr string, value hvalue.Value) ([]hvalue.NodeId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexFor(typeID, attr)
	if !ok {
		return nil, false
	}
	return idx.equalMatches(value), true
}

// NodesByAttrRange returns nodes of typeID whose attr lies in [lo, hi]
// via the registered index, or nil if no index exists.
func (s *Store) NodesByAttrRange(typeID hvalue.TypeId, attr string, lo, hi hvalue.Value) ([]hvalue.NodeId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexFor(typeID, attr)
	if !ok {
		return nil, false
	}
	return idx.rangeMatches(lo, hi), true
}

// HasConflictingUnique reports whether some other live node of typeID
// already holds value for attr. exclude/hasExclude let SET ignore the
// entity currently being updated.
func (s *Store) HasConflictingUnique(typeID hvalue.TypeId, attr string, value hvalue.Value, exclude hvalue.NodeId, hasExclude bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexFor(typeID, attr)
	if !ok {
		return false
	}
	return idx.hasOtherThan(value, exclude, hasExclude)
}

// AllNodes returns a deep copy of every live node, for full scans and
// snapshot export.
func (s *Store) AllNodes() []hvalue.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hvalue.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	return out
}

// NodeCount returns the total number of live nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
