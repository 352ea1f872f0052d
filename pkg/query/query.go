// Package query implements the read pipeline: MATCH -> plan -> execute
// -> return columnar rows. Planning is deterministic and rule-based:
// an adjacent equality or inclusive-range filter on a scanned node
// variable becomes an indexed scan when an index covers it (the first
// such filter is used; equality is not preferred over range),
// smallest-first scan ordering, filter push-down, and NOT EXISTS
// hoisted to immediately after its dependencies are bound. There is no
// cost model.
package query

import (
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// ReturnItem is one RETURN expression with its column name.
type ReturnItem struct {
	Expr  patternir.Expr
	Alias string
}

// OrderKey is one ORDER BY expression.
type OrderKey struct {
	Expr patternir.Expr
	Desc bool
}

// Query is a parsed-and-analyzed MATCH statement.
type Query struct {
	Pattern []pattern.Element
	Where   patternir.Expr // nil for none
	Return  []ReturnItem
	GroupBy []patternir.Expr
	OrderBy []OrderKey

	// Limit <= 0 means no limit; Offset 0 means none.
	Limit  int
	Offset int
}

// Result is the columnar row set a query produces.
type Result struct {
	Columns []string
	Rows    [][]hvalue.Value
}

// Executor plans and runs queries against a registry and store.
type Executor struct {
	Reg   *registry.Registry
	Store *graphstore.Store
}

// New builds a query Executor.
func New(reg *registry.Registry, store *graphstore.Store) *Executor {
	return &Executor{Reg: reg, Store: store}
}
