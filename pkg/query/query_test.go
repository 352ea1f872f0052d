package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/pattern"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

func taskFixture(t *testing.T) (*Executor, []hvalue.NodeId) {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Task", "", false, []registry.AttributeDef{
		{Name: "title", Kind: hvalue.KindString},
		{Name: "estimate", Kind: hvalue.KindInt},
	}))
	require.NoError(t, b.AddType("Tag", "", false, []registry.AttributeDef{
		{Name: "name", Kind: hvalue.KindString},
	}))
	require.NoError(t, b.AddEdgeType("tagged", []registry.ParamDef{
		{Name: "t", TypeName: "Task"}, {Name: "g", TypeName: "Tag"},
	}, nil, nil, false, false, nil))
	reg, err := b.Build()
	require.NoError(t, err)

	store := graphstore.New()
	taskType, _ := reg.GetTypeID("Task")
	titles := []string{"alpha", "beta", "gamma"}
	estimates := []int64{3, 1, 2}
	ids := make([]hvalue.NodeId, len(titles))
	for i := range titles {
		ids[i] = store.NextNodeID()
		n := hvalue.NewNode(ids[i], taskType)
		n.Attributes.Set("title", hvalue.NewString(titles[i]))
		n.Attributes.Set("estimate", hvalue.NewInt(estimates[i]))
		require.NoError(t, store.CreateNode(n))
	}
	return New(reg, store), ids
}

func TestRunReturnsAllMatches(t *testing.T) {
	qx, _ := taskFixture(t)
	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Return:  []ReturnItem{{Expr: patternir.AttrAccess{Var: "t", Attr: "title"}, Alias: "title"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, result.Columns)
	assert.Len(t, result.Rows, 3)
}

func TestRunCountStar(t *testing.T) {
	qx, _ := taskFixture(t)
	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Return:  []ReturnItem{{Expr: patternir.FuncCall{Name: "count", Star: true}, Alias: "n"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	n, _ := result.Rows[0][0].Int()
	assert.EqualValues(t, 3, n)
}

func TestCountStarWithNoMatchesYieldsZeroRow(t *testing.T) {
	qx, _ := taskFixture(t)
	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "g", TypeName: "Tag"}},
		Return:  []ReturnItem{{Expr: patternir.FuncCall{Name: "count", Star: true}, Alias: "n"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	n, _ := result.Rows[0][0].Int()
	assert.EqualValues(t, 0, n)
}

func TestWhereFilterAndOrderBy(t *testing.T) {
	qx, _ := taskFixture(t)
	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Where: patternir.Binary{
			Op:    patternir.OpGte,
			Left:  patternir.AttrAccess{Var: "t", Attr: "estimate"},
			Right: patternir.Literal{Value: hvalue.NewInt(2)},
		},
		Return: []ReturnItem{
			{Expr: patternir.AttrAccess{Var: "t", Attr: "title"}, Alias: "title"},
			{Expr: patternir.AttrAccess{Var: "t", Attr: "estimate"}, Alias: "estimate"},
		},
		OrderBy: []OrderKey{{Expr: patternir.VarRef{Name: "estimate"}, Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	first, _ := result.Rows[0][0].String()
	second, _ := result.Rows[1][0].String()
	assert.Equal(t, "alpha", first)
	assert.Equal(t, "gamma", second)
}

func TestLimitOffset(t *testing.T) {
	qx, _ := taskFixture(t)
	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Return:  []ReturnItem{{Expr: patternir.AttrAccess{Var: "t", Attr: "title"}, Alias: "title"}},
		OrderBy: []OrderKey{{Expr: patternir.VarRef{Name: "title"}}},
		Limit:   1,
		Offset:  1,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	title, _ := result.Rows[0][0].String()
	assert.Equal(t, "beta", title)
}

func TestGroupByWithAggregate(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Item", "", false, []registry.AttributeDef{
		{Name: "bucket", Kind: hvalue.KindString},
		{Name: "weight", Kind: hvalue.KindInt},
	}))
	reg, err := b.Build()
	require.NoError(t, err)
	store := graphstore.New()
	itemType, _ := reg.GetTypeID("Item")
	for _, item := range []struct {
		bucket string
		weight int64
	}{{"a", 1}, {"a", 2}, {"b", 5}} {
		id := store.NextNodeID()
		n := hvalue.NewNode(id, itemType)
		n.Attributes.Set("bucket", hvalue.NewString(item.bucket))
		n.Attributes.Set("weight", hvalue.NewInt(item.weight))
		require.NoError(t, store.CreateNode(n))
	}
	qx := New(reg, store)

	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "i", TypeName: "Item"}},
		GroupBy: []patternir.Expr{patternir.AttrAccess{Var: "i", Attr: "bucket"}},
		Return: []ReturnItem{
			{Expr: patternir.AttrAccess{Var: "i", Attr: "bucket"}, Alias: "bucket"},
			{Expr: patternir.FuncCall{Name: "sum", Args: []patternir.Expr{
				patternir.AttrAccess{Var: "i", Attr: "weight"},
			}}, Alias: "total"},
		},
		OrderBy: []OrderKey{{Expr: patternir.VarRef{Name: "bucket"}}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	bucketA, _ := result.Rows[0][0].String()
	totalA, _ := result.Rows[0][1].Float()
	assert.Equal(t, "a", bucketA)
	assert.EqualValues(t, 3, totalA)
	totalB, _ := result.Rows[1][1].Float()
	assert.EqualValues(t, 5, totalB)
}

func TestPlannerUsesAttrIndex(t *testing.T) {
	qx, ids := taskFixture(t)
	taskType, _ := qx.Reg.GetTypeID("Task")
	qx.Store.EnsureIndex(taskType, "title", false)
	// Re-insert to populate the index registered after creation.
	for _, id := range ids {
		n, err := qx.Store.GetNode(id)
		require.NoError(t, err)
		v, _ := n.GetAttr("title")
		_, err = qx.Store.SetNodeAttr(id, "title", v)
		require.NoError(t, err)
	}

	compiled, err := qx.plan(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Where: patternir.Binary{
			Op:    patternir.OpEq,
			Left:  patternir.AttrAccess{Var: "t", Attr: "title"},
			Right: patternir.Literal{Value: hvalue.NewString("beta")},
		},
	})
	require.NoError(t, err)
	require.Len(t, compiled.Ops, 1)
	scan, ok := compiled.Ops[0].(patternir.ScanNodesByAttrOp)
	require.True(t, ok, "expected the eq filter to fold into an indexed scan")
	assert.Equal(t, "title", scan.Attr)

	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{pattern.NodeElement{Var: "t", TypeName: "Task"}},
		Where: patternir.Binary{
			Op:    patternir.OpEq,
			Left:  patternir.AttrAccess{Var: "t", Attr: "title"},
			Right: patternir.Literal{Value: hvalue.NewString("beta")},
		},
		Return: []ReturnItem{{Expr: patternir.AttrAccess{Var: "t", Attr: "estimate"}, Alias: "estimate"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	estimate, _ := result.Rows[0][0].Int()
	assert.EqualValues(t, 1, estimate)
}

func TestNotExistsAntiJoin(t *testing.T) {
	qx, ids := taskFixture(t)
	tagType, _ := qx.Reg.GetTypeID("Tag")
	taggedType, _ := qx.Reg.GetEdgeTypeID("tagged")

	tagID := qx.Store.NextNodeID()
	tag := hvalue.NewNode(tagID, tagType)
	tag.Attributes.Set("name", hvalue.NewString("urgent"))
	require.NoError(t, qx.Store.CreateNode(tag))
	eid := qx.Store.NextEdgeID()
	require.NoError(t, qx.Store.CreateEdge(hvalue.NewEdge(eid, taggedType, []hvalue.EntityId{
		hvalue.NewNodeEntity(ids[0]), hvalue.NewNodeEntity(tagID),
	})))

	result, err := qx.Run(&Query{
		Pattern: []pattern.Element{
			pattern.NodeElement{Var: "t", TypeName: "Task"},
			pattern.NotExistsElement{Subpattern: []pattern.Element{
				pattern.EdgeElement{EdgeTypeName: "tagged", Targets: []string{"t", "_"}},
			}},
		},
		Return: []ReturnItem{{Expr: patternir.AttrAccess{Var: "t", Attr: "title"}, Alias: "title"}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2) // the tagged task is excluded
}
