package pattern

import (
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// transitiveClosure computes the cycle-safe BFS closure of edgeType
// starting at start (position 0 -> position 1), returning every
// reachable node. kind selects whether start itself is included.
func transitiveClosure(store *graphstore.Store, edgeType hvalue.EdgeTypeId, start hvalue.NodeId, kind patternir.TransitiveKind) []hvalue.NodeId {
	visited := map[hvalue.NodeId]bool{start: true}
	queue := []hvalue.NodeId{start}
	var reachable []hvalue.NodeId
	if kind == patternir.TransitiveStar {
		reachable = append(reachable, start)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eid := range store.EdgesFrom(cur, edgeType, true) {
			e, err := store.GetEdge(eid)
			if err != nil {
				continue
			}
			next, ok := e.Target(1)
			if !ok {
				continue
			}
			nid, ok := next.AsNode()
			if !ok {
				continue
			}
			if visited[nid] {
				continue
			}
			visited[nid] = true
			reachable = append(reachable, nid)
			queue = append(queue, nid)
		}
	}
	return reachable
}
