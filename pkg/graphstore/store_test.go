package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

func TestCreateAndGetNode(t *testing.T) {
	s := New()
	id := s.NextNodeID()
	n := hvalue.NewNode(id, hvalue.TypeId(1))
	n.SetAttr("title", hvalue.NewString("Example"))
	require.NoError(t, s.CreateNode(n))

	got, err := s.GetNode(id)
	require.NoError(t, err)
	title, ok := got.GetAttr("title")
	require.True(t, ok)
	s2, _ := title.String()
	assert.Equal(t, "Example", s2)

	assert.Equal(t, []hvalue.NodeId{id}, s.NodesOfType(hvalue.TypeId(1)))
}

func TestDeleteNodeWithEdgesFails(t *testing.T) {
	s := New()
	a := s.NextNodeID()
	b := s.NextNodeID()
	require.NoError(t, s.CreateNode(hvalue.NewNode(a, 1)))
	require.NoError(t, s.CreateNode(hvalue.NewNode(b, 1)))
	e := s.NextEdgeID()
	edge := hvalue.NewEdge(e, 1, []hvalue.EntityId{hvalue.NewNodeEntity(a), hvalue.NewNodeEntity(b)})
	require.NoError(t, s.CreateEdge(edge))

	err := s.DeleteNode(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeHasEdges)

	require.NoError(t, s.DeleteEdge(e))
	require.NoError(t, s.DeleteNode(a))
}

func TestCreateEdgeRejectsDanglingTarget(t *testing.T) {
	s := New()
	a := s.NextNodeID()
	require.NoError(t, s.CreateNode(hvalue.NewNode(a, 1)))
	e := s.NextEdgeID()
	edge := hvalue.NewEdge(e, 1, []hvalue.EntityId{hvalue.NewNodeEntity(a), hvalue.NewNodeEntity(hvalue.NodeId(999))})
	err := s.CreateEdge(edge)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetNotLive)
}

func TestHigherOrderIndex(t *testing.T) {
	s := New()
	a := s.NextNodeID()
	b := s.NextNodeID()
	require.NoError(t, s.CreateNode(hvalue.NewNode(a, 1)))
	require.NoError(t, s.CreateNode(hvalue.NewNode(b, 1)))
	base := s.NextEdgeID()
	require.NoError(t, s.CreateEdge(hvalue.NewEdge(base, 1, []hvalue.EntityId{hvalue.NewNodeEntity(a), hvalue.NewNodeEntity(b)})))

	higher := s.NextEdgeID()
	require.NoError(t, s.CreateEdge(hvalue.NewEdge(higher, 2, []hvalue.EntityId{hvalue.NewEdgeEntity(base), hvalue.NewNodeEntity(a)})))

	about := s.EdgesAbout(base)
	require.Len(t, about, 1)
	assert.Equal(t, higher, about[0])
}

func TestUniqueIndex(t *testing.T) {
	s := New()
	s.EnsureIndex(1, "email", true)
	a := s.NextNodeID()
	na := hvalue.NewNode(a, 1)
	na.SetAttr("email", hvalue.NewString("a@x"))
	require.NoError(t, s.CreateNode(na))

	assert.True(t, s.HasConflictingUnique(1, "email", hvalue.NewString("a@x"), 0, false))
	assert.False(t, s.HasConflictingUnique(1, "email", hvalue.NewString("a@x"), a, true))
}

func TestFindEquivalentSymmetric(t *testing.T) {
	s := New()
	alice := s.NextNodeID()
	bob := s.NextNodeID()
	require.NoError(t, s.CreateNode(hvalue.NewNode(alice, 1)))
	require.NoError(t, s.CreateNode(hvalue.NewNode(bob, 1)))
	e := s.NextEdgeID()
	require.NoError(t, s.CreateEdge(hvalue.NewEdge(e, 1, []hvalue.EntityId{hvalue.NewNodeEntity(alice), hvalue.NewNodeEntity(bob)})))

	_, found := s.FindEquivalent(1, []hvalue.EntityId{hvalue.NewNodeEntity(bob), hvalue.NewNodeEntity(alice)})
	assert.True(t, found)
}

func TestCloneAndReplaceWith(t *testing.T) {
	s := New()
	s.EnsureIndex(1, "email", true)
	a := s.NextNodeID()
	na := hvalue.NewNode(a, 1)
	na.SetAttr("email", hvalue.NewString("a@x"))
	require.NoError(t, s.CreateNode(na))

	snapshot := s.Clone()

	// Mutations after the clone are invisible to it.
	b := s.NextNodeID()
	require.NoError(t, s.CreateNode(hvalue.NewNode(b, 1)))
	_, err := s.SetNodeAttr(a, "email", hvalue.NewString("changed@x"))
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.NodeCount())

	// Restoring rolls back tables, indices, and counters.
	s.ReplaceWith(snapshot)
	assert.Equal(t, 1, s.NodeCount())
	got, err := s.GetNode(a)
	require.NoError(t, err)
	email, _ := got.GetAttr("email")
	v, _ := email.String()
	assert.Equal(t, "a@x", v)
	assert.True(t, s.HasConflictingUnique(1, "email", hvalue.NewString("a@x"), 0, false))
	assert.False(t, s.HasConflictingUnique(1, "email", hvalue.NewString("changed@x"), 0, false))
	assert.Equal(t, b, s.NextNodeID()) // counter rewound with the snapshot
}

func TestRangeIndex(t *testing.T) {
	s := New()
	s.EnsureIndex(1, "age", false)
	for i, age := range []int64{10, 20, 30} {
		id := s.NextNodeID()
		n := hvalue.NewNode(id, 1)
		n.SetAttr("age", hvalue.NewInt(age))
		require.NoError(t, s.CreateNode(n))
		_ = i
	}
	matches, ok := s.NodesByAttrRange(1, "age", hvalue.NewInt(15), hvalue.NewInt(30))
	require.True(t, ok)
	assert.Len(t, matches, 2)
}
