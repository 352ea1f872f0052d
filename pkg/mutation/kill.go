package mutation

import (
	"fmt"
	"sort"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Kill deletes a node and everything its incident edges' on-kill
// actions pull in with it. The deletion set is BFS-expanded to fixpoint
// before anything is touched, so a Restrict encountered anywhere in the
// expansion aborts the whole statement with zero effect.
//
// Cascade mode follows the original semantics: cascading unless NO
// CASCADE is given. With cascade off, an on_kill Cascade edge still has
// its edge removed but the neighboring nodes survive.
func (ex *Executor) Kill(stmt *astir.Kill, env patternir.Bindings) (Outcome, error) {
	victim, err := ex.resolveNode(stmt.Target, env)
	if err != nil {
		return Outcome{}, err
	}
	cascade := stmt.Cascade != astir.CascadeOff

	nodeSet := map[hvalue.NodeId]bool{victim: true}
	edgeSet := map[hvalue.EdgeId]bool{}
	directEdges := map[hvalue.EdgeId]bool{}
	queue := []hvalue.NodeId{victim}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eid := range ex.Store.EdgesIncident(cur, 0, false) {
			e, err := ex.Store.GetEdge(eid)
			if err != nil {
				continue
			}
			etd := ex.Reg.GetEdgeType(e.TypeID)
			action := resolveOnKill(etd, e, cur)
			switch action {
			case registry.OnKillRestrict:
				return Outcome{}, fmt.Errorf("%w: %s", ErrOnKillRestrict, etd.Name)
			case registry.OnKillCascade:
				if cascade {
					for _, other := range e.NodeTargets() {
						if !nodeSet[other] {
							nodeSet[other] = true
							queue = append(queue, other)
						}
					}
				}
			}
			// Delete, Cascade, and SetNull (treated as Delete for target
			// positions) all remove the edge itself.
			if !edgeSet[eid] {
				edgeSet[eid] = true
				if cur == victim {
					directEdges[eid] = true
				}
			}
		}
	}

	// Higher-order closure: an edge about a deleted edge dies with it,
	// recursively.
	hoQueue := make([]hvalue.EdgeId, 0, len(edgeSet))
	for eid := range edgeSet {
		hoQueue = append(hoQueue, eid)
	}
	for len(hoQueue) > 0 {
		cur := hoQueue[0]
		hoQueue = hoQueue[1:]
		for _, about := range ex.Store.EdgesAbout(cur) {
			if !edgeSet[about] {
				edgeSet[about] = true
				hoQueue = append(hoQueue, about)
			}
		}
	}

	// Apply: edges first so node deletion never sees a dangling
	// incident edge, then nodes.
	outcome := Outcome{Kind: OutcomeDeleted}
	for _, eid := range sortedEdgeIds(edgeSet) {
		if err := ex.Store.DeleteEdge(eid); err != nil {
			return Outcome{}, err
		}
		if directEdges[eid] {
			outcome.DeletedEdgesDirect = append(outcome.DeletedEdgesDirect, eid)
		} else {
			outcome.DeletedEdgesCascade = append(outcome.DeletedEdgesCascade, eid)
		}
	}
	for _, nid := range sortedNodeIds(nodeSet) {
		if err := ex.Store.DeleteNode(nid); err != nil {
			return Outcome{}, err
		}
		outcome.DeletedNodes = append(outcome.DeletedNodes, nid)
	}
	return outcome, nil
}

// resolveOnKill finds the action for the position(s) the victim node
// occupies in e. A node appearing at several positions takes the most
// restrictive action among them: Restrict over Cascade over Delete.
func resolveOnKill(etd *registry.EdgeTypeDef, e hvalue.Edge, victim hvalue.NodeId) registry.OnKillAction {
	result := registry.OnKillDelete
	for pos, t := range e.Targets {
		nid, ok := t.AsNode()
		if !ok || nid != victim {
			continue
		}
		switch etd.OnKillAt(pos) {
		case registry.OnKillRestrict:
			return registry.OnKillRestrict
		case registry.OnKillCascade:
			result = registry.OnKillCascade
		}
	}
	return result
}

func sortedEdgeIds(set map[hvalue.EdgeId]bool) []hvalue.EdgeId {
	out := make([]hvalue.EdgeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedNodeIds(set map[hvalue.NodeId]bool) []hvalue.NodeId {
	out := make([]hvalue.NodeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
