package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

func TestBuildSimpleHierarchy(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("Entity", "", true, nil))
	require.NoError(t, b.AddType("User", "Entity", false, []AttributeDef{
		{Name: "email", Kind: hvalue.KindString, Unique: true, Required: true},
	}))
	reg, err := b.Build()
	require.NoError(t, err)

	userID, ok := reg.GetTypeID("User")
	require.True(t, ok)
	entityID, ok := reg.GetTypeID("Entity")
	require.True(t, ok)

	assert.True(t, reg.IsSubtype(userID, entityID))
	assert.True(t, reg.IsSubtype(userID, userID))
	assert.False(t, reg.IsSubtype(entityID, userID))

	attr, ok := reg.GetTypeAttr(userID, "email")
	require.True(t, ok)
	assert.True(t, attr.Unique)
}

func TestBuildDuplicateType(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("User", "", false, nil))
	err := b.AddType("User", "", false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateType)
}

func TestBuildUnknownParent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("User", "Ghost", false, nil))
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestBuildInheritanceCycle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("A", "B", false, nil))
	require.NoError(t, b.AddType("B", "A", false, nil))
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInheritanceCycle)
}

func TestBuildEdgeTypeUnknownParamType(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("Project", "", false, nil))
	require.NoError(t, b.AddEdgeType("has_task", []ParamDef{
		{Name: "p", TypeName: "Project"},
		{Name: "t", TypeName: "Task"},
	}, nil, nil, false, false, nil))
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestGetAllTypeAttrsInheritsAndShadows(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddType("Base", "", false, []AttributeDef{
		{Name: "name", Kind: hvalue.KindString},
		{Name: "x", Kind: hvalue.KindInt},
	}))
	require.NoError(t, b.AddType("Derived", "Base", false, []AttributeDef{
		{Name: "x", Kind: hvalue.KindFloat},
	}))
	reg, err := b.Build()
	require.NoError(t, err)

	derivedID, _ := reg.GetTypeID("Derived")
	attrs := reg.GetAllTypeAttrs(derivedID)
	require.Contains(t, attrs, "name")
	require.Contains(t, attrs, "x")
	assert.Equal(t, hvalue.KindFloat, attrs["x"].Kind)
}
