package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/astir"
	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/mutation"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

// chainFixture declares Task plus a follow_up rule: every Task spawn
// produces another Task, which re-triggers the rule. maxFires bounds
// the chain; 0 leaves it to the depth guard.
func chainFixture(t *testing.T, maxFires int) (*Session, *mutation.Executor, *registry.Registry) {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Task", "", false, []registry.AttributeDef{
		{Name: "title", Kind: hvalue.KindString, Required: true},
	}))
	reg0, err := b.Build()
	require.NoError(t, err)
	taskType, _ := reg0.GetTypeID("Task")

	trigger := &patternir.CompiledPattern{
		Ops:        []patternir.Op{patternir.ScanNodesOp{Var: "t", TypeID: taskType}},
		OutputVars: []string{"t"},
	}
	production := astir.Statement{Spawn: &astir.Spawn{TypeName: "Task", Attrs: []astir.Assignment{
		{Attr: "title", Expr: patternir.Binary{
			Op:    patternir.OpConcat,
			Left:  patternir.AttrAccess{Var: "t", Attr: "title"},
			Right: patternir.Literal{Value: hvalue.NewString("+")},
		}},
	}}}

	b2 := registry.NewBuilder()
	require.NoError(t, b2.AddType("Task", "", false, []registry.AttributeDef{
		{Name: "title", Kind: hvalue.KindString, Required: true},
	}))
	require.NoError(t, b2.AddRule("follow_up", trigger, nil, []astir.Statement{production}, 0, maxFires))
	reg, err := b2.Build()
	require.NoError(t, err)

	exec := mutation.New(reg, graphstore.New())
	return NewSession(reg, exec), exec, reg
}

func TestMaxFiresBoundsAChain(t *testing.T) {
	session, exec, _ := chainFixture(t, 3)

	out, _, err := exec.Spawn(&astir.Spawn{TypeName: "Task", Attrs: []astir.Assignment{
		{Attr: "title", Expr: patternir.Literal{Value: hvalue.NewString("seed")}},
	}}, patternir.NewBindings())
	require.NoError(t, err)

	firings, err := session.Run(EventsFromOutcome(exec, out))
	require.NoError(t, err)
	assert.Len(t, firings, 3)
	assert.Equal(t, 4, exec.Store.NodeCount()) // seed + three productions
}

func TestUnboundedChainHitsDepthGuard(t *testing.T) {
	session, exec, _ := chainFixture(t, 0)

	out, _, err := exec.Spawn(&astir.Spawn{TypeName: "Task", Attrs: []astir.Assignment{
		{Attr: "title", Expr: patternir.Literal{Value: hvalue.NewString("seed")}},
	}}, patternir.NewBindings())
	require.NoError(t, err)

	_, err = session.Run(EventsFromOutcome(exec, out))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestAlreadyFiredMatchIsSuppressed(t *testing.T) {
	session, exec, _ := chainFixture(t, 1)

	out, _, err := exec.Spawn(&astir.Spawn{TypeName: "Task", Attrs: []astir.Assignment{
		{Attr: "title", Expr: patternir.Literal{Value: hvalue.NewString("seed")}},
	}}, patternir.NewBindings())
	require.NoError(t, err)

	firings, err := session.Run(EventsFromOutcome(exec, out))
	require.NoError(t, err)
	require.Len(t, firings, 1)

	// Re-running with the same state produces nothing new: the seed's
	// match has fired and the production's match is blocked by the
	// max-fires guard.
	again, err := session.Run([]Event{{Kind: EventNodeSpawned, TypeID: mustTypeID(t, exec)}})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func mustTypeID(t *testing.T, exec *mutation.Executor) hvalue.TypeId {
	t.Helper()
	id, ok := exec.Reg.GetTypeID("Task")
	require.True(t, ok)
	return id
}

func TestWhereClauseGatesFiring(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Order", "", false, []registry.AttributeDef{
		{Name: "total", Kind: hvalue.KindInt, Required: true},
		{Name: "flagged", Kind: hvalue.KindBool},
	}))
	reg0, err := b.Build()
	require.NoError(t, err)
	orderType, _ := reg0.GetTypeID("Order")

	trigger := &patternir.CompiledPattern{
		Ops:        []patternir.Op{patternir.ScanNodesOp{Var: "o", TypeID: orderType}},
		OutputVars: []string{"o"},
	}
	where := patternir.Binary{
		Op:    patternir.OpGt,
		Left:  patternir.AttrAccess{Var: "o", Attr: "total"},
		Right: patternir.Literal{Value: hvalue.NewInt(100)},
	}
	production := astir.Statement{Set: &astir.Set{Targets: []astir.SetTarget{{
		Target: astir.VarTarget("o"),
		Attrs:  []astir.Assignment{{Attr: "flagged", Expr: patternir.Literal{Value: hvalue.NewBool(true)}}},
	}}}}

	b2 := registry.NewBuilder()
	require.NoError(t, b2.AddType("Order", "", false, []registry.AttributeDef{
		{Name: "total", Kind: hvalue.KindInt, Required: true},
		{Name: "flagged", Kind: hvalue.KindBool},
	}))
	require.NoError(t, b2.AddRule("flag_large", trigger, where, []astir.Statement{production}, 0, 0))
	reg, err := b2.Build()
	require.NoError(t, err)
	exec := mutation.New(reg, graphstore.New())
	session := NewSession(reg, exec)

	small, _, err := exec.Spawn(&astir.Spawn{TypeName: "Order", Attrs: []astir.Assignment{
		{Attr: "total", Expr: patternir.Literal{Value: hvalue.NewInt(50)}},
	}}, patternir.NewBindings())
	require.NoError(t, err)
	firings, err := session.Run(EventsFromOutcome(exec, small))
	require.NoError(t, err)
	assert.Empty(t, firings)

	large, _, err := exec.Spawn(&astir.Spawn{TypeName: "Order", Attrs: []astir.Assignment{
		{Attr: "total", Expr: patternir.Literal{Value: hvalue.NewInt(500)}},
	}}, patternir.NewBindings())
	require.NoError(t, err)
	firings, err = session.Run(EventsFromOutcome(exec, large))
	require.NoError(t, err)
	require.Len(t, firings, 1)

	nid, _ := large.CreatedEntity.AsNode()
	node, err := exec.Store.GetNode(nid)
	require.NoError(t, err)
	flagged, _ := node.GetAttr("flagged")
	v, _ := flagged.Bool()
	assert.True(t, v)
}

func TestPriorityOrderIsDeterministic(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Event", "", false, []registry.AttributeDef{
		{Name: "seq", Kind: hvalue.KindString},
	}))
	require.NoError(t, b.AddType("Log", "", false, []registry.AttributeDef{
		{Name: "from", Kind: hvalue.KindString},
	}))
	reg0, err := b.Build()
	require.NoError(t, err)
	eventType, _ := reg0.GetTypeID("Event")

	trigger := func() *patternir.CompiledPattern {
		return &patternir.CompiledPattern{
			Ops:        []patternir.Op{patternir.ScanNodesOp{Var: "e", TypeID: eventType}},
			OutputVars: []string{"e"},
		}
	}
	logStmt := func(name string) astir.Statement {
		return astir.Statement{Spawn: &astir.Spawn{TypeName: "Log", Attrs: []astir.Assignment{
			{Attr: "from", Expr: patternir.Literal{Value: hvalue.NewString(name)}},
		}}}
	}

	b2 := registry.NewBuilder()
	require.NoError(t, b2.AddType("Event", "", false, []registry.AttributeDef{
		{Name: "seq", Kind: hvalue.KindString},
	}))
	require.NoError(t, b2.AddType("Log", "", false, []registry.AttributeDef{
		{Name: "from", Kind: hvalue.KindString},
	}))
	// Declared out of firing order on purpose: priority 5 beats 1, and
	// equal priorities break on name.
	require.NoError(t, b2.AddRule("zeta", trigger(), nil, []astir.Statement{logStmt("zeta")}, 1, 0))
	require.NoError(t, b2.AddRule("alpha", trigger(), nil, []astir.Statement{logStmt("alpha")}, 1, 0))
	require.NoError(t, b2.AddRule("urgent", trigger(), nil, []astir.Statement{logStmt("urgent")}, 5, 0))
	reg, err := b2.Build()
	require.NoError(t, err)
	exec := mutation.New(reg, graphstore.New())
	session := NewSession(reg, exec)

	out, _, err := exec.Spawn(&astir.Spawn{TypeName: "Event"}, patternir.NewBindings())
	require.NoError(t, err)
	firings, err := session.Run(EventsFromOutcome(exec, out))
	require.NoError(t, err)
	require.Len(t, firings, 3)
	assert.Equal(t, "urgent", firings[0].Rule)
	assert.Equal(t, "alpha", firings[1].Rule)
	assert.Equal(t, "zeta", firings[2].Rule)
}
