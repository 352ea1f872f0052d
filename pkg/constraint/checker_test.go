package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
	"github.com/orneryd/hyperdb/pkg/registry"
)

func draftRegistry(t *testing.T, severity registry.Severity) (*registry.Registry, *graphstore.Store) {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Doc", "", false, []registry.AttributeDef{
		{Name: "status", Kind: hvalue.KindString, Required: true},
		{Name: "title", Kind: hvalue.KindString},
	}))
	reg0, err := b.Build()
	require.NoError(t, err)
	docType, _ := reg0.GetTypeID("Doc")

	pattern := &patternir.CompiledPattern{
		Ops: []patternir.Op{
			patternir.ScanNodesOp{Var: "d", TypeID: docType},
			patternir.FilterOp{Condition: patternir.Binary{
				Op:    patternir.OpEq,
				Left:  patternir.AttrAccess{Var: "d", Attr: "status"},
				Right: patternir.Literal{Value: hvalue.NewString("draft")},
			}},
		},
		OutputVars: []string{"d"},
	}

	b2 := registry.NewBuilder()
	require.NoError(t, b2.AddType("Doc", "", false, []registry.AttributeDef{
		{Name: "status", Kind: hvalue.KindString, Required: true},
		{Name: "title", Kind: hvalue.KindString},
	}))
	require.NoError(t, b2.AddConstraint("no_drafts", severity, registry.TimingDeferred,
		registry.ConstraintTargetNode, "Doc", pattern, `"{d.title}" ({d}) is still a draft`))
	reg, err := b2.Build()
	require.NoError(t, err)
	return reg, graphstore.New()
}

func addDoc(t *testing.T, reg *registry.Registry, store *graphstore.Store, status, title string) hvalue.NodeId {
	t.Helper()
	docType, _ := reg.GetTypeID("Doc")
	id := store.NextNodeID()
	n := hvalue.NewNode(id, docType)
	n.Attributes.Set("status", hvalue.NewString(status))
	n.Attributes.Set("title", hvalue.NewString(title))
	require.NoError(t, store.CreateNode(n))
	return id
}

func TestCheckDeferredReportsEachMatch(t *testing.T) {
	reg, store := draftRegistry(t, registry.SeverityError)
	addDoc(t, reg, store, "published", "Done")
	id := addDoc(t, reg, store, "draft", "WIP")

	checker := NewChecker(reg)
	violations, err := checker.CheckDeferred(store)
	require.NoError(t, err)
	require.Len(t, violations.All(), 1)
	assert.True(t, violations.HasErrors())

	v := violations.All()[0]
	assert.Equal(t, "no_drafts", v.Constraint)
	assert.Contains(t, v.Message, `"WIP"`)
	assert.Contains(t, v.Message, id.String())
}

func TestCheckDeferredCleanStore(t *testing.T) {
	reg, store := draftRegistry(t, registry.SeverityError)
	addDoc(t, reg, store, "published", "Done")

	violations, err := NewChecker(reg).CheckDeferred(store)
	require.NoError(t, err)
	assert.True(t, violations.IsEmpty())
	assert.False(t, violations.HasErrors())
}

func TestWarningSeverityDoesNotError(t *testing.T) {
	reg, store := draftRegistry(t, registry.SeverityWarning)
	addDoc(t, reg, store, "draft", "WIP")

	violations, err := NewChecker(reg).CheckDeferred(store)
	require.NoError(t, err)
	assert.False(t, violations.HasErrors())
	assert.True(t, violations.HasOnlyWarnings())
	assert.Len(t, violations.Warnings(), 1)
	assert.Empty(t, violations.Errors())
}

func immediateRegistry(t *testing.T) (*registry.Registry, *graphstore.Store) {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.AddType("Doc", "", false, []registry.AttributeDef{
		{Name: "status", Kind: hvalue.KindString, Required: true},
		{Name: "title", Kind: hvalue.KindString},
	}))
	require.NoError(t, b.AddType("Note", "", false, nil))
	reg0, err := b.Build()
	require.NoError(t, err)
	docType, _ := reg0.GetTypeID("Doc")

	draft := &patternir.CompiledPattern{
		Ops: []patternir.Op{
			patternir.ScanNodesOp{Var: "d", TypeID: docType},
			patternir.FilterOp{Condition: patternir.Binary{
				Op:    patternir.OpEq,
				Left:  patternir.AttrAccess{Var: "d", Attr: "status"},
				Right: patternir.Literal{Value: hvalue.NewString("draft")},
			}},
		},
		OutputVars: []string{"d"},
	}

	b2 := registry.NewBuilder()
	require.NoError(t, b2.AddType("Doc", "", false, []registry.AttributeDef{
		{Name: "status", Kind: hvalue.KindString, Required: true},
		{Name: "title", Kind: hvalue.KindString},
	}))
	require.NoError(t, b2.AddType("Note", "", false, nil))
	require.NoError(t, b2.AddConstraint("no_drafts_now", registry.SeverityError, registry.TimingImmediate,
		registry.ConstraintTargetNode, "Doc", draft, "document {d} may not be a draft"))
	require.NoError(t, b2.AddConstraint("no_drafts_later", registry.SeverityError, registry.TimingDeferred,
		registry.ConstraintTargetNode, "Doc", draft, "document {d} is still a draft"))
	reg, err := b2.Build()
	require.NoError(t, err)
	return reg, graphstore.New()
}

func TestCheckImmediateScopesToAffectedType(t *testing.T) {
	reg, store := immediateRegistry(t)
	addDoc(t, reg, store, "draft", "WIP")
	checker := NewChecker(reg)

	docType, _ := reg.GetTypeID("Doc")
	violations, err := checker.CheckImmediate(store, []hvalue.TypeId{docType}, nil)
	require.NoError(t, err)
	require.Len(t, violations.All(), 1)
	assert.Equal(t, "no_drafts_now", violations.All()[0].Constraint)

	// A mutation on an unrelated type checks nothing.
	noteType, _ := reg.GetTypeID("Note")
	violations, err = checker.CheckImmediate(store, []hvalue.TypeId{noteType}, nil)
	require.NoError(t, err)
	assert.True(t, violations.IsEmpty())
}

func TestCheckImmediateSkipsDeferredConstraints(t *testing.T) {
	reg, store := immediateRegistry(t)
	addDoc(t, reg, store, "draft", "WIP")
	docType, _ := reg.GetTypeID("Doc")

	violations, err := NewChecker(reg).CheckImmediate(store, []hvalue.TypeId{docType}, nil)
	require.NoError(t, err)
	for _, v := range violations.All() {
		assert.NotEqual(t, "no_drafts_later", v.Constraint)
	}

	deferred, err := NewChecker(reg).CheckDeferred(store)
	require.NoError(t, err)
	require.Len(t, deferred.All(), 1)
	assert.Equal(t, "no_drafts_later", deferred.All()[0].Constraint)
}

func TestCheckImmediateAllCoversEveryImmediate(t *testing.T) {
	reg, store := immediateRegistry(t)
	addDoc(t, reg, store, "draft", "WIP")

	violations, err := NewChecker(reg).CheckImmediateAll(store)
	require.NoError(t, err)
	require.Len(t, violations.All(), 1)
	assert.Equal(t, "no_drafts_now", violations.All()[0].Constraint)
}

func TestViolationsMerge(t *testing.T) {
	var a, b Violations
	a.Add(Violation{Constraint: "c1", Severity: registry.SeverityWarning, Message: "w"})
	b.Add(Violation{Constraint: "c2", Severity: registry.SeverityError, Message: "e"})
	a.Merge(b)
	assert.Len(t, a.All(), 2)
	assert.True(t, a.HasErrors())
	assert.False(t, a.HasOnlyWarnings())
}

func TestRenderMessageLeavesUnknownPlaceholders(t *testing.T) {
	reg, store := draftRegistry(t, registry.SeverityError)
	_ = reg
	b := patternir.NewBindings()
	out := renderMessage("hello {ghost.attr} and {ghost}", b, store)
	assert.Equal(t, "hello {ghost.attr} and {ghost}", out)
}
