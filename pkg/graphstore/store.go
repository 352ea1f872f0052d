// Package graphstore is the single-writer, multi-reader in-process
// store: node and edge tables plus the four indices (type, attribute,
// adjacency, higher-order) described by the engine's component design.
// It knows nothing about the registry's schema; validation against
// declared types and constraints is the mutation executor's job. The
// store only enforces what it must to keep its own indices coherent
// (no dangling edge targets, no deleting a node that still has
// incident edges).
package graphstore

import (
	"sync"
	"sync/atomic"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

type adjKey struct {
	node     hvalue.NodeId
	position int
	edgeType hvalue.EdgeTypeId
}

// Store is the graph store described in the component design: a
// node/edge table plus type, attribute, adjacency, and higher-order
// indices. All index updates happen synchronously with the table
// mutation they describe.
type Store struct {
	mu sync.RWMutex

	nextNodeID uint64
	nextEdgeID uint64

	nodes map[hvalue.NodeId]*hvalue.Node
	edges map[hvalue.EdgeId]*hvalue.Edge

	nodesByType map[hvalue.TypeId]map[hvalue.NodeId]struct{}
	edgesByType map[hvalue.EdgeTypeId]map[hvalue.EdgeId]struct{}

	// edgesByNode maps a node to every edge that targets it at any
	// position.
	edgesByNode map[hvalue.NodeId]map[hvalue.EdgeId]struct{}
	// edgesByEdge maps an edge to every edge that targets it (as a
	// higher-order target) at any position.
	edgesByEdge map[hvalue.EdgeId]map[hvalue.EdgeId]struct{}
	// positional is the finer (node, position, edge type) -> edges index
	// for directional scans.
	positional map[adjKey]map[hvalue.EdgeId]struct{}
	// higherOrder maps an edge to the set of edges that target it,
	// i.e. the "edges_about" index.
	higherOrder map[hvalue.EdgeId]map[hvalue.EdgeId]struct{}

	// attrIndexes is keyed by (TypeId, attribute name); an index exists
	// only for attributes the mutation executor has registered via
	// EnsureIndex (typically every attribute declared unique, plus any
	// the registry marks for range queries).
	attrIndexes map[attrIndexKey]*attrIndex
}

type attrIndexKey struct {
	typeID hvalue.TypeId
	attr   string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes:       make(map[hvalue.NodeId]*hvalue.Node),
		edges:       make(map[hvalue.EdgeId]*hvalue.Edge),
		nodesByType: make(map[hvalue.TypeId]map[hvalue.NodeId]struct{}),
		edgesByType: make(map[hvalue.EdgeTypeId]map[hvalue.EdgeId]struct{}),
		edgesByNode: make(map[hvalue.NodeId]map[hvalue.EdgeId]struct{}),
		edgesByEdge: make(map[hvalue.EdgeId]map[hvalue.EdgeId]struct{}),
		positional:  make(map[adjKey]map[hvalue.EdgeId]struct{}),
		higherOrder: make(map[hvalue.EdgeId]map[hvalue.EdgeId]struct{}),
		attrIndexes: make(map[attrIndexKey]*attrIndex),
	}
}

// NextNodeID allocates the next NodeId from the monotonic counter. It
// does not insert anything; callers pass the returned id to CreateNode.
func (s *Store) NextNodeID() hvalue.NodeId {
	return hvalue.NodeId(atomic.AddUint64(&s.nextNodeID, 1))
}

// NextEdgeID allocates the next EdgeId from the monotonic counter.
func (s *Store) NextEdgeID() hvalue.EdgeId {
	return hvalue.EdgeId(atomic.AddUint64(&s.nextEdgeID, 1))
}

// EnsureIndex declares that (typeID, attr) should be indexed. unique
// additionally means "index is also consulted for uniqueness checks."
// Calling it more than once for the same key is a no-op as long as
// unique does not change.
func (s *Store) EnsureIndex(typeID hvalue.TypeId, attr string, unique bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attrIndexKey{typeID, attr}
	if _, ok := s.attrIndexes[key]; !ok {
		s.attrIndexes[key] = newAttrIndex(unique)
	}
}

func (s *Store) indexFor(typeID hvalue.TypeId, attr string) (*attrIndex, bool) {
	idx, ok := s.attrIndexes[attrIndexKey{typeID, attr}]
	return idx, ok
}
