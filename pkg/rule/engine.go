// Package rule implements the pattern-triggered production engine:
// after each mutation, rules whose trigger could fire are matched
// against post-mutation state, and each match's productions run as
// further mutations, themselves enqueuing further candidates, until no
// new match appears (quiescence). Firing order is priority-major
// (higher first), name-minor, and re-fires of an already-fired match
// are suppressed so a rule whose production re-establishes its own
// trigger still quiesces.
package rule

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/mutation"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// Rule-chain bounds. Exceeding either aborts the transaction.
const (
	MaxDepth   = 100
	MaxActions = 10_000
)

var (
	ErrMaxDepthExceeded   = errors.New("rule: production chain exceeded maximum depth")
	ErrMaxActionsExceeded = errors.New("rule: transaction exceeded maximum production count")
)

// EventKind classifies what a mutation did, for trigger registration.
// Rules trigger on additions (node spawned, attribute set, edge
// linked); deletions quiesce on their own.
type EventKind uint8

const (
	EventNodeSpawned EventKind = iota
	EventAttrSet
	EventEdgeLinked
)

// Event is one observed mutation effect the engine collects candidate
// rules for.
type Event struct {
	Kind       EventKind
	TypeID     hvalue.TypeId
	EdgeTypeID hvalue.EdgeTypeId
}

// Firing records one production the engine executed, for journaling.
type Firing struct {
	Rule    string
	Outcome mutation.Outcome
}

// Session tracks rule state across one transaction: the total action
// count (bounded by MaxActions), per-rule fire counts (for max-fires
// guards), and the set of already-fired matches.
type Session struct {
	exec  *mutation.Executor
	rules []*registry.RuleDef

	actions int
	fires   map[string]int
	seen    map[string]bool
}

// NewSession builds a rule session for one transaction, with rules
// pre-sorted into firing order.
func NewSession(reg *registry.Registry, exec *mutation.Executor) *Session {
	rules := append([]*registry.RuleDef(nil), reg.Rules()...)
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
	return &Session{
		exec:  exec,
		rules: rules,
		fires: make(map[string]int),
		seen:  make(map[string]bool),
	}
}

// Run processes events to quiescence, returning every production fired.
// It is called once per user mutation; the depth bound applies to this
// call's chain, the action bound to the whole session.
func (s *Session) Run(events []Event) ([]Firing, error) {
	var firings []Firing
	depth := 0
	pending := events
	for len(pending) > 0 {
		depth++
		if depth > MaxDepth {
			return nil, ErrMaxDepthExceeded
		}
		var next []Event
		for _, r := range s.rules {
			if !triggeredBy(r, pending) {
				continue
			}
			fired, produced, err := s.fireRule(r)
			if err != nil {
				return nil, err
			}
			firings = append(firings, fired...)
			next = append(next, produced...)
		}
		pending = next
	}
	return firings, nil
}

// fireRule matches r's trigger against current state and executes the
// productions for each new match, in deterministic match order.
func (s *Session) fireRule(r *registry.RuleDef) ([]Firing, []Event, error) {
	matches, err := pattern.Execute(r.Trigger, s.exec.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	type keyed struct {
		key string
		b   patternir.Bindings
	}
	candidates := make([]keyed, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, keyed{key: matchKey(r, m), b: m})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].key < candidates[j].key })

	var firings []Firing
	var produced []Event
	for _, cand := range candidates {
		if s.seen[cand.key] {
			continue
		}
		s.seen[cand.key] = true
		if r.Where != nil {
			v, err := pattern.Eval(r.Where, cand.b, s.exec.Store)
			if err != nil {
				return nil, nil, fmt.Errorf("rule %s where: %w", r.Name, err)
			}
			if truthy, ok := v.Bool(); !ok || !truthy {
				continue
			}
		}
		if r.MaxFires > 0 && s.fires[r.Name] >= r.MaxFires {
			continue
		}
		s.fires[r.Name]++

		env := cand.b
		for _, prod := range r.Productions {
			s.actions++
			if s.actions > MaxActions {
				return nil, nil, ErrMaxActionsExceeded
			}
			outcome, nextEnv, err := s.exec.Execute(prod, env)
			if err != nil {
				return nil, nil, fmt.Errorf("rule %s: %w", r.Name, err)
			}
			env = nextEnv
			firings = append(firings, Firing{Rule: r.Name, Outcome: outcome})
			produced = append(produced, EventsFromOutcome(s.exec, outcome)...)
		}
	}
	return firings, produced, nil
}

// matchKey serializes a match into a stable identity: rule name plus
// each trigger output variable's bound entity or value.
func matchKey(r *registry.RuleDef, b patternir.Bindings) string {
	parts := []string{r.Name}
	for _, name := range r.Trigger.OutputVars {
		binding, ok := b.Get(name)
		if !ok {
			parts = append(parts, name+"=?")
			continue
		}
		if entity, ok := binding.AsEntity(); ok {
			parts = append(parts, name+"="+entity.String())
		} else if v, ok := binding.AsValue(); ok {
			parts = append(parts, name+"="+v.GoString())
		}
	}
	return strings.Join(parts, "|")
}

// triggeredBy reports whether any pending event could affect r's
// trigger pattern: a node scan observes spawns and attribute sets on
// its type, an edge op observes links of its edge type.
func triggeredBy(r *registry.RuleDef, events []Event) bool {
	for _, op := range r.Trigger.Ops {
		for _, ev := range events {
			switch o := op.(type) {
			case patternir.ScanNodesOp:
				if (ev.Kind == EventNodeSpawned || ev.Kind == EventAttrSet) && ev.TypeID == o.TypeID {
					return true
				}
			case patternir.ScanNodesByAttrOp:
				if (ev.Kind == EventNodeSpawned || ev.Kind == EventAttrSet) && ev.TypeID == o.TypeID {
					return true
				}
			case patternir.ScanNodesByRangeOp:
				if (ev.Kind == EventNodeSpawned || ev.Kind == EventAttrSet) && ev.TypeID == o.TypeID {
					return true
				}
			case patternir.ScanEdgesOp:
				if ev.Kind == EventEdgeLinked && ev.EdgeTypeID == o.EdgeType {
					return true
				}
			case patternir.FollowEdgeOp:
				if ev.Kind == EventEdgeLinked && ev.EdgeTypeID == o.EdgeType {
					return true
				}
			case patternir.CheckEdgeOp:
				if ev.Kind == EventEdgeLinked && ev.EdgeTypeID == o.EdgeType {
					return true
				}
			case patternir.TransitiveFollowOp:
				if ev.Kind == EventEdgeLinked && ev.EdgeTypeID == o.EdgeType {
					return true
				}
			}
		}
	}
	return false
}

// EventsFromOutcome derives the trigger events a completed mutation
// raises: a spawn raises a node event for the created node's type, a
// link raises an edge event (only when an edge was actually created),
// and a set raises an attribute event per updated node. Deletion
// outcomes raise none.
func EventsFromOutcome(exec *mutation.Executor, outcome mutation.Outcome) []Event {
	var out []Event
	switch outcome.Kind {
	case mutation.OutcomeCreated:
		if nid, ok := outcome.CreatedEntity.AsNode(); ok {
			if n, err := exec.Store.GetNode(nid); err == nil {
				out = append(out, Event{Kind: EventNodeSpawned, TypeID: n.TypeID})
			}
		}
	case mutation.OutcomeLinked:
		if outcome.LinkedCount > 0 {
			if e, err := exec.Store.GetEdge(outcome.LinkedEdge); err == nil {
				out = append(out, Event{Kind: EventEdgeLinked, EdgeTypeID: e.TypeID})
			}
		}
	case mutation.OutcomeUpdated:
		for _, entity := range outcome.UpdatedEntities {
			if nid, ok := entity.AsNode(); ok {
				if n, err := exec.Store.GetNode(nid); err == nil {
					out = append(out, Event{Kind: EventAttrSet, TypeID: n.TypeID})
				}
			}
		}
	}
	return out
}
