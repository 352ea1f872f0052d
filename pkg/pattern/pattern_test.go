package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

func buildTaskRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Task", "", false, []registry.AttributeDef{
		{Name: "title", Kind: hvalue.KindString},
	}))
	require.NoError(t, b.AddEdgeType("depends_on", []registry.ParamDef{
		{Name: "from", TypeName: "Task"},
		{Name: "to", TypeName: "Task"},
	}, nil, nil, false, true, nil))
	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestCompileAndExecuteScanAndFollow(t *testing.T) {
	reg := buildTaskRegistry(t)
	store := graphstore.New()
	taskType, _ := reg.GetTypeID("Task")
	depType, _ := reg.GetEdgeTypeID("depends_on")

	a := store.NextNodeID()
	bID := store.NextNodeID()
	require.NoError(t, store.CreateNode(hvalue.NewNode(a, taskType)))
	require.NoError(t, store.CreateNode(hvalue.NewNode(bID, taskType)))
	e := store.NextEdgeID()
	require.NoError(t, store.CreateEdge(hvalue.NewEdge(e, depType, []hvalue.EntityId{
		hvalue.NewNodeEntity(a), hvalue.NewNodeEntity(bID),
	})))

	compiled, err := Compile([]Element{
		NodeElement{Var: "x", TypeName: "Task"},
		EdgeElement{EdgeTypeName: "depends_on", Targets: []string{"x", "y"}},
	}, reg)
	require.NoError(t, err)

	results, err := Execute(compiled, store)
	require.NoError(t, err)
	require.Len(t, results, 1)
	xb, _ := results[0].Get("x")
	yb, _ := results[0].Get("y")
	xn, _ := xb.AsNode()
	yn, _ := yb.AsNode()
	assert.Equal(t, a, xn)
	assert.Equal(t, bID, yn)
}

func TestCompileRejectsUnboundEdgeTarget(t *testing.T) {
	reg := buildTaskRegistry(t)
	_, err := Compile([]Element{
		EdgeElement{EdgeTypeName: "depends_on", Targets: []string{"x", "y"}},
	}, reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnboundVariable)
}

func TestTransitiveClosureExcludesStartForPlus(t *testing.T) {
	reg := buildTaskRegistry(t)
	store := graphstore.New()
	taskType, _ := reg.GetTypeID("Task")
	depType, _ := reg.GetEdgeTypeID("depends_on")

	ids := make([]hvalue.NodeId, 3)
	for i := range ids {
		ids[i] = store.NextNodeID()
		require.NoError(t, store.CreateNode(hvalue.NewNode(ids[i], taskType)))
	}
	for i := 0; i < len(ids)-1; i++ {
		eid := store.NextEdgeID()
		require.NoError(t, store.CreateEdge(hvalue.NewEdge(eid, depType, []hvalue.EntityId{
			hvalue.NewNodeEntity(ids[i]), hvalue.NewNodeEntity(ids[i+1]),
		})))
	}

	reachable := transitiveClosure(store, depType, ids[0], patternir.TransitivePlus)
	assert.ElementsMatch(t, []hvalue.NodeId{ids[1], ids[2]}, reachable)

	reachableStar := transitiveClosure(store, depType, ids[0], patternir.TransitiveStar)
	assert.ElementsMatch(t, []hvalue.NodeId{ids[0], ids[1], ids[2]}, reachableStar)
}

func TestEvalArithmeticAndComparison(t *testing.T) {
	store := graphstore.New()
	b := patternir.NewBindings()
	expr := patternir.Binary{
		Op:    patternir.OpGt,
		Left:  patternir.Binary{Op: patternir.OpAdd, Left: patternir.Literal{Value: hvalue.NewInt(2)}, Right: patternir.Literal{Value: hvalue.NewFloat(1.5)}},
		Right: patternir.Literal{Value: hvalue.NewInt(3)},
	}
	v, err := Eval(expr, b, store)
	require.NoError(t, err)
	truthy, ok := v.Bool()
	require.True(t, ok)
	assert.True(t, truthy)
}

func TestEvalDivideByZero(t *testing.T) {
	store := graphstore.New()
	b := patternir.NewBindings()
	expr := patternir.Binary{Op: patternir.OpDiv, Left: patternir.Literal{Value: hvalue.NewInt(1)}, Right: patternir.Literal{Value: hvalue.NewInt(0)}}
	_, err := Eval(expr, b, store)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestAggregateCountStar(t *testing.T) {
	store := graphstore.New()
	group := []patternir.Bindings{patternir.NewBindings(), patternir.NewBindings()}
	v, err := Aggregate(patternir.FuncCall{Name: "count", Star: true}, group, store)
	require.NoError(t, err)
	n, _ := v.Int()
	assert.EqualValues(t, 2, n)
}
