package hvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesCompatible(t *testing.T) {
	cases := []struct {
		name     string
		expected Kind
		actual   Kind
		want     bool
	}{
		{"exact match", KindInt, KindInt, true},
		{"null satisfies anything", KindString, KindNull, true},
		{"int widens to float", KindFloat, KindInt, true},
		{"int widens to duration", KindDuration, KindInt, true},
		{"int widens to timestamp", KindTimestamp, KindInt, true},
		{"float does not narrow to int", KindInt, KindFloat, false},
		{"string vs int", KindString, KindInt, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TypesCompatible(tc.expected, tc.actual))
		})
	}
}

func TestValueAccessors(t *testing.T) {
	v := NewInt(42)
	i, ok := v.Int()
	require.True(t, ok)
	assert.EqualValues(t, 42, i)

	_, ok = v.Float()
	assert.False(t, ok)

	f, ok := v.AsFloat64()
	require.True(t, ok)
	assert.Equal(t, 42.0, f)
}

func TestCompareAndEqual(t *testing.T) {
	a := NewInt(3)
	b := NewFloat(3.0)
	cmp, ok := Compare(a, b)
	require.True(t, ok)
	assert.Equal(t, 0, cmp)
	assert.True(t, Equal(a, b))

	c := NewString("x")
	_, ok = Compare(a, c)
	assert.False(t, ok)

	assert.True(t, Equal(Null, Null))
	assert.False(t, Equal(Null, NewInt(0)))
}

func TestEntityId(t *testing.T) {
	n := NewNodeEntity(NodeId(7))
	e := NewEdgeEntity(EdgeId(9))

	assert.True(t, n.IsNode())
	assert.False(t, n.IsEdge())
	id, ok := n.AsNode()
	require.True(t, ok)
	assert.Equal(t, NodeId(7), id)

	assert.Equal(t, "n7", n.String())
	assert.Equal(t, "e9", e.String())
	assert.True(t, n.Equal(NewNodeEntity(NodeId(7))))
	assert.False(t, n.Equal(e))
}

func TestAttributesPresenceVsNull(t *testing.T) {
	attrs := NewAttributes()
	_, ok := attrs.Get("missing")
	assert.False(t, ok)

	attrs.Set("x", Null)
	v, ok := attrs.Get("x")
	assert.True(t, ok)
	assert.True(t, v.IsNull())
	assert.True(t, attrs.Has("x"))

	attrs.Delete("x")
	assert.False(t, attrs.Has("x"))
}

func TestEdgeHigherOrder(t *testing.T) {
	e := NewEdge(EdgeId(1), EdgeTypeId(1), []EntityId{
		NewNodeEntity(NodeId(1)),
		NewEdgeEntity(EdgeId(2)),
	})
	assert.True(t, e.IsHigherOrder())
	assert.Equal(t, 2, e.Arity())
	assert.Equal(t, []NodeId{1}, e.NodeTargets())
	assert.Equal(t, []EdgeId{2}, e.EdgeTargets())
	assert.True(t, e.InvolvesEdge(2))
	assert.False(t, e.InvolvesNode(99))
}

func TestNodeVersionBumpsOnMutation(t *testing.T) {
	n := NewNode(NodeId(1), TypeId(1))
	assert.EqualValues(t, 0, n.Version)
	n.SetAttr("name", NewString("a"))
	assert.EqualValues(t, 1, n.Version)
	n.RemoveAttr("name")
	assert.EqualValues(t, 2, n.Version)
}
