package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Run plans and executes a query, returning columnar rows.
func (qx *Executor) Run(q *Query) (*Result, error) {
	compiled, err := qx.plan(q)
	if err != nil {
		return nil, err
	}
	matches, err := pattern.Execute(compiled, qx.Store)
	if err != nil {
		return nil, err
	}

	items := q.Return
	if len(items) == 0 {
		// Bare MATCH returns every output variable as an entity column.
		for _, v := range compiled.OutputVars {
			items = append(items, ReturnItem{Expr: patternir.VarRef{Name: v}, Alias: v})
		}
	}

	columns := make([]string, len(items))
	for i, item := range items {
		columns[i] = item.Alias
		if columns[i] == "" {
			columns[i] = fmt.Sprintf("col%d", i)
		}
	}

	var rows []row
	if hasAggregate(items) || len(q.GroupBy) > 0 {
		rows, err = qx.aggregateRows(items, q.GroupBy, matches)
	} else {
		rows, err = qx.projectRows(items, matches)
	}
	if err != nil {
		return nil, err
	}

	if len(q.OrderBy) > 0 {
		if err := qx.orderRows(rows, q.OrderBy, items, columns); err != nil {
			return nil, err
		}
	}

	start := q.Offset
	if start > len(rows) {
		start = len(rows)
	}
	rows = rows[start:]
	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}

	result := &Result{Columns: columns, Rows: make([][]hvalue.Value, len(rows))}
	for i, r := range rows {
		result.Rows[i] = r.values
	}
	return result, nil
}

// row pairs projected values with a representative source binding, so
// ORDER BY can evaluate expressions that are not themselves returned.
type row struct {
	values []hvalue.Value
	source patternir.Bindings
}

func (qx *Executor) projectRows(items []ReturnItem, matches []patternir.Bindings) ([]row, error) {
	rows := make([]row, 0, len(matches))
	for _, b := range matches {
		values := make([]hvalue.Value, len(items))
		for i, item := range items {
			v, err := pattern.Eval(item.Expr, b, qx.Store)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		rows = append(rows, row{values: values, source: b})
	}
	return rows, nil
}

// aggregateRows groups matches by tuple equality over the GROUP BY
// expressions (one global group when there are none) and computes each
// return item per group: aggregate calls over the whole group,
// everything else against the group's first binding.
func (qx *Executor) aggregateRows(items []ReturnItem, groupBy []patternir.Expr, matches []patternir.Bindings) ([]row, error) {
	type group struct {
		key      string
		bindings []patternir.Bindings
	}
	var order []string
	groups := map[string]*group{}

	for _, b := range matches {
		var keyParts []string
		for _, expr := range groupBy {
			v, err := pattern.Eval(expr, b, qx.Store)
			if err != nil {
				return nil, err
			}
			keyParts = append(keyParts, v.GoString())
		}
		key := strings.Join(keyParts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.bindings = append(g.bindings, b)
	}
	// An aggregate over zero matches still yields one global row
	// (count(*) = 0) when there is no GROUP BY.
	if len(matches) == 0 && len(groupBy) == 0 {
		groups[""] = &group{}
		order = append(order, "")
	}

	var rows []row
	for _, key := range order {
		g := groups[key]
		first := patternir.NewBindings()
		if len(g.bindings) > 0 {
			first = g.bindings[0]
		}
		values := make([]hvalue.Value, len(items))
		for i, item := range items {
			if fn, ok := item.Expr.(patternir.FuncCall); ok && isAggregateFn(fn.Name) {
				v, err := pattern.Aggregate(fn, g.bindings, qx.Store)
				if err != nil {
					return nil, err
				}
				values[i] = v
				continue
			}
			v, err := pattern.Eval(item.Expr, first, qx.Store)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		rows = append(rows, row{values: values, source: first})
	}
	return rows, nil
}

// orderRows sorts rows by the ORDER BY keys: a key naming a returned
// column (by alias) sorts on the projected value, anything else is
// evaluated against each row's source binding. Null sorts last either
// direction.
func (qx *Executor) orderRows(rows []row, orderBy []OrderKey, items []ReturnItem, columns []string) error {
	keys := make([][]hvalue.Value, len(rows))
	for ri, r := range rows {
		keys[ri] = make([]hvalue.Value, len(orderBy))
		for ki, key := range orderBy {
			if col := columnIndex(key.Expr, columns); col >= 0 {
				keys[ri][ki] = r.values[col]
				continue
			}
			v, err := pattern.Eval(key.Expr, r.source, qx.Store)
			if err != nil {
				return err
			}
			keys[ri][ki] = v
		}
	}

	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		for ki, key := range orderBy {
			va, vb := keys[indices[a]][ki], keys[indices[b]][ki]
			if va.IsNull() && vb.IsNull() {
				continue
			}
			if va.IsNull() {
				return false
			}
			if vb.IsNull() {
				return true
			}
			cmp, ok := hvalue.Compare(va, vb)
			if !ok || cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	sorted := make([]row, len(rows))
	for i, idx := range indices {
		sorted[i] = rows[idx]
	}
	copy(rows, sorted)
	return nil
}

func columnIndex(expr patternir.Expr, columns []string) int {
	ref, ok := expr.(patternir.VarRef)
	if !ok {
		return -1
	}
	for i, c := range columns {
		if c == ref.Name {
			return i
		}
	}
	return -1
}

func hasAggregate(items []ReturnItem) bool {
	for _, item := range items {
		if fn, ok := item.Expr.(patternir.FuncCall); ok && isAggregateFn(fn.Name) {
			return true
		}
	}
	return false
}

func isAggregateFn(name string) bool {
	switch name {
	case "count", "sum", "avg", "min", "max":
		return true
	}
	return false
}
