package query

import (
	"sort"

	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// plan reorders a query's pattern elements and compiles them, then
// rewrites full type scans into indexed scans where a pushed-down
// equality or range filter permits. The rules, applied in order:
//
//  1. Node scans are ordered smallest-first by type cardinality.
//  2. Filters run at the earliest point all their variables are bound.
//  3. Edge patterns join as soon as at least one target is bound.
//  4. NOT EXISTS runs immediately after its outer dependencies bind.
func (qx *Executor) plan(q *Query) (*patternir.CompiledPattern, error) {
	elements := qx.orderElements(q)
	compiled, err := pattern.Compile(elements, qx.Reg)
	if err != nil {
		return nil, err
	}
	compiled.Ops = qx.selectIndexes(compiled.Ops)
	return compiled, nil
}

// orderElements produces the planned element order described above.
func (qx *Executor) orderElements(q *Query) []pattern.Element {
	var nodes []pattern.NodeElement
	var edges []pattern.EdgeElement
	var notExists []pattern.NotExistsElement
	var filters []pattern.FilterElement
	for _, el := range q.Pattern {
		switch e := el.(type) {
		case pattern.NodeElement:
			nodes = append(nodes, e)
		case pattern.EdgeElement:
			edges = append(edges, e)
		case pattern.NotExistsElement:
			notExists = append(notExists, e)
		case pattern.FilterElement:
			filters = append(filters, e)
		}
	}
	if q.Where != nil {
		filters = append(filters, pattern.FilterElement{Condition: q.Where})
	}

	// Smallest-first scan ordering; ties break on variable name so plans
	// are reproducible.
	sort.SliceStable(nodes, func(i, j int) bool {
		ci := qx.typeCardinality(nodes[i].TypeName)
		cj := qx.typeCardinality(nodes[j].TypeName)
		if ci != cj {
			return ci < cj
		}
		return nodes[i].Var < nodes[j].Var
	})

	// The outer variable set is known upfront; a NOT EXISTS's
	// dependencies are the subpattern variables that appear in it.
	outerVars := map[string]bool{}
	for _, n := range nodes {
		markBound(outerVars, n.Var)
	}
	for _, e := range edges {
		for _, v := range e.Targets {
			markBound(outerVars, v)
		}
		markBound(outerVars, e.EdgeVar)
	}

	bound := map[string]bool{}
	placedEdge := make([]bool, len(edges))
	placedNE := make([]bool, len(notExists))
	placedFilter := make([]bool, len(filters))
	var out []pattern.Element

	place := func() {
		for progress := true; progress; {
			progress = false
			for i, f := range filters {
				if placedFilter[i] {
					continue
				}
				if allBound(filterVars(f.Condition), bound) {
					out = append(out, f)
					placedFilter[i] = true
					progress = true
				}
			}
			for i, e := range edges {
				if placedEdge[i] {
					continue
				}
				if edgePlaceable(e, bound) {
					out = append(out, e)
					placedEdge[i] = true
					for _, v := range e.Targets {
						markBound(bound, v)
					}
					markBound(bound, e.EdgeVar)
					progress = true
				}
			}
			for i, ne := range notExists {
				if placedNE[i] {
					continue
				}
				if allBound(outerDeps(ne, outerVars), bound) {
					out = append(out, ne)
					placedNE[i] = true
					progress = true
				}
			}
		}
	}

	for _, n := range nodes {
		out = append(out, n)
		markBound(bound, n.Var)
		place()
	}
	// Anything not yet placeable goes at the end, preserving declaration
	// order; Compile reports the unbound-variable error if it still
	// cannot run there.
	for i, e := range edges {
		if !placedEdge[i] {
			out = append(out, e)
			for _, v := range e.Targets {
				markBound(bound, v)
			}
			markBound(bound, e.EdgeVar)
		}
	}
	place()
	for i, ne := range notExists {
		if !placedNE[i] {
			out = append(out, ne)
		}
	}
	for i, f := range filters {
		if !placedFilter[i] {
			out = append(out, f)
		}
	}
	return out
}

func (qx *Executor) typeCardinality(typeName string) int {
	td, ok := qx.Reg.GetTypeByName(typeName)
	if !ok {
		return 0
	}
	return qx.Store.NodeCountOfType(td.ID)
}

// selectIndexes rewrites ScanNodesOp + an adjacent equality/range
// filter over the scanned variable into an indexed scan, when the
// store has an index registered for the (type, attribute) pair. The
// first qualifying adjacent filter is used; an equality filter is not
// preferred over a range filter before it. Only inclusive bounds
// (>=, <=) are rewritten; a filter with a strict bound stays a filter
// over the full type scan.
func (qx *Executor) selectIndexes(ops []patternir.Op) []patternir.Op {
	out := make([]patternir.Op, 0, len(ops))
	consumed := make([]bool, len(ops))
	for i, op := range ops {
		if consumed[i] {
			continue
		}
		scan, isScan := op.(patternir.ScanNodesOp)
		if !isScan {
			out = append(out, op)
			continue
		}
		rewritten := false
		for j := i + 1; j < len(ops) && !rewritten; j++ {
			filter, isFilter := ops[j].(patternir.FilterOp)
			if !isFilter {
				break
			}
			if attr, val, ok := eqFilterOn(filter.Condition, scan.Var); ok {
				if _, indexed := qx.Store.NodesByAttrEq(scan.TypeID, attr, val); indexed {
					out = append(out, patternir.ScanNodesByAttrOp{
						Var: scan.Var, TypeID: scan.TypeID, Attr: attr, Value: val,
					})
					consumed[j] = true
					rewritten = true
				}
			} else if attr, lo, hi, ok := rangeFilterOn(filter.Condition, scan.Var); ok {
				if _, indexed := qx.Store.NodesByAttrRange(scan.TypeID, attr, lo, hi); indexed {
					out = append(out, patternir.ScanNodesByRangeOp{
						Var: scan.Var, TypeID: scan.TypeID, Attr: attr, Lo: lo, Hi: hi,
					})
					consumed[j] = true
					rewritten = true
				}
			}
		}
		if !rewritten {
			out = append(out, scan)
		}
	}
	return out
}

// eqFilterOn matches `v.attr = literal` (either operand order),
// returning the attribute and literal.
func eqFilterOn(cond patternir.Expr, varName string) (string, hvalue.Value, bool) {
	bin, ok := cond.(patternir.Binary)
	if !ok || bin.Op != patternir.OpEq {
		return "", hvalue.Null, false
	}
	if attr, v, ok := accessAndLiteral(bin.Left, bin.Right, varName); ok {
		return attr, v, true
	}
	return accessAndLiteral(bin.Right, bin.Left, varName)
}

// rangeFilterOn matches `v.attr >= lo`, `v.attr <= hi`, or a
// conjunction of the two, returning inclusive bounds (Null = open).
func rangeFilterOn(cond patternir.Expr, varName string) (string, hvalue.Value, hvalue.Value, bool) {
	bin, ok := cond.(patternir.Binary)
	if !ok {
		return "", hvalue.Null, hvalue.Null, false
	}
	if bin.Op == patternir.OpAnd {
		la, ll, lh, lok := rangeFilterOn(bin.Left, varName)
		ra, rl, rh, rok := rangeFilterOn(bin.Right, varName)
		if lok && rok && la == ra {
			if (!ll.IsNull() && !rl.IsNull()) || (!lh.IsNull() && !rh.IsNull()) {
				return "", hvalue.Null, hvalue.Null, false
			}
			lo, hi := ll, lh
			if lo.IsNull() {
				lo = rl
			}
			if hi.IsNull() {
				hi = rh
			}
			return la, lo, hi, true
		}
		return "", hvalue.Null, hvalue.Null, false
	}
	if bin.Op != patternir.OpGte && bin.Op != patternir.OpLte {
		return "", hvalue.Null, hvalue.Null, false
	}
	if attr, v, ok := accessAndLiteral(bin.Left, bin.Right, varName); ok {
		if bin.Op == patternir.OpGte {
			return attr, v, hvalue.Null, true
		}
		return attr, hvalue.Null, v, true
	}
	// literal OP v.attr reverses the bound direction.
	if attr, v, ok := accessAndLiteral(bin.Right, bin.Left, varName); ok {
		if bin.Op == patternir.OpGte {
			return attr, hvalue.Null, v, true
		}
		return attr, v, hvalue.Null, true
	}
	return "", hvalue.Null, hvalue.Null, false
}

func accessAndLiteral(a, b patternir.Expr, varName string) (string, hvalue.Value, bool) {
	access, ok := a.(patternir.AttrAccess)
	if !ok || access.Var != varName {
		return "", hvalue.Null, false
	}
	lit, ok := b.(patternir.Literal)
	if !ok {
		return "", hvalue.Null, false
	}
	return access.Attr, lit.Value, true
}

func markBound(bound map[string]bool, name string) {
	if name != "" && name != patternir.WildcardVar {
		bound[name] = true
	}
}

func allBound(vars []string, bound map[string]bool) bool {
	for _, v := range vars {
		if !bound[v] {
			return false
		}
	}
	return true
}

func edgePlaceable(e pattern.EdgeElement, bound map[string]bool) bool {
	if e.Transitive {
		return len(e.Targets) == 2 && bound[e.Targets[0]]
	}
	for _, v := range e.Targets {
		if v != patternir.WildcardVar && bound[v] {
			return true
		}
	}
	return false
}

// outerDeps returns the subpattern variables a NOT EXISTS references
// that the outer pattern also binds; those are its scheduling
// dependencies.
func outerDeps(ne pattern.NotExistsElement, outerVars map[string]bool) []string {
	var deps []string
	for _, v := range subpatternVars(ne.Subpattern) {
		if outerVars[v] {
			deps = append(deps, v)
		}
	}
	return deps
}

func subpatternVars(elements []pattern.Element) []string {
	var out []string
	for _, el := range elements {
		switch e := el.(type) {
		case pattern.NodeElement:
			out = append(out, e.Var)
		case pattern.EdgeElement:
			out = append(out, e.Targets...)
			if e.EdgeVar != "" {
				out = append(out, e.EdgeVar)
			}
		case pattern.FilterElement:
			out = append(out, filterVars(e.Condition)...)
		case pattern.NotExistsElement:
			out = append(out, subpatternVars(e.Subpattern)...)
		}
	}
	return out
}

// filterVars returns the variables an expression references.
func filterVars(expr patternir.Expr) []string {
	var out []string
	var walk func(e patternir.Expr)
	walk = func(e patternir.Expr) {
		switch v := e.(type) {
		case patternir.VarRef:
			out = append(out, v.Name)
		case patternir.AttrAccess:
			out = append(out, v.Var)
		case patternir.Binary:
			walk(v.Left)
			walk(v.Right)
		case patternir.Unary:
			walk(v.Operand)
		case patternir.FuncCall:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(expr)
	return out
}
