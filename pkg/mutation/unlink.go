package mutation

import (
	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Unlink deletes an edge, removing the higher-order closure first:
// every edge about the target (recursively) goes with it.
func (ex *Executor) Unlink(stmt *astir.Unlink, env patternir.Bindings) (Outcome, error) {
	target, err := ex.resolveEdge(stmt.Target, env)
	if err != nil {
		return Outcome{}, err
	}

	closure := map[hvalue.EdgeId]bool{target: true}
	queue := []hvalue.EdgeId{target}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, about := range ex.Store.EdgesAbout(cur) {
			if !closure[about] {
				closure[about] = true
				queue = append(queue, about)
			}
		}
	}

	outcome := Outcome{Kind: OutcomeDeleted}
	for _, eid := range sortedEdgeIds(closure) {
		if err := ex.Store.DeleteEdge(eid); err != nil {
			return Outcome{}, err
		}
		if eid == target {
			outcome.DeletedEdgesDirect = append(outcome.DeletedEdgesDirect, eid)
		} else {
			outcome.DeletedEdgesCascade = append(outcome.DeletedEdgesCascade, eid)
		}
	}
	return outcome, nil
}
