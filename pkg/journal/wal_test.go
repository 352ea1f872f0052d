package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
)

func TestAppendSyncIterateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenFile(dir)
	require.NoError(t, err)

	entries := []Entry{
		{Kind: KindBegin, Txn: 1},
		{Kind: KindSpawnNode, Txn: 1, Node: 1, NodeType: 2, Attrs: map[string]hvalue.Value{
			"title": hvalue.NewString("Example"),
			"count": hvalue.NewInt(7),
		}},
		{Kind: KindLinkEdge, Txn: 1, Edge: 1, EdgeType: 3, Targets: []hvalue.EntityId{
			hvalue.NewNodeEntity(1), hvalue.NewNodeEntity(2),
		}},
		{Kind: KindSetAttr, Txn: 1, Entity: hvalue.NewNodeEntity(1), Attr: "title",
			Old: hvalue.NewString("Example"), HadOld: true, New: hvalue.NewString("Renamed")},
		{Kind: KindCommit, Txn: 1},
	}
	for i, e := range entries {
		lsn, err := w.Append(e)
		require.NoError(t, err)
		assert.EqualValues(t, i+1, lsn)
	}
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	w2, err := OpenFile(dir)
	require.NoError(t, err)
	defer w2.Close()

	var got []Entry
	require.NoError(t, w2.IterateFrom(0, func(e Entry) error {
		got = append(got, e)
		return nil
	}))
	require.Len(t, got, len(entries))
	assert.Equal(t, KindSpawnNode, got[1].Kind)
	title, ok := got[1].Attrs["title"]
	require.True(t, ok)
	s, _ := title.String()
	assert.Equal(t, "Example", s)
	count, _ := got[1].Attrs["count"].Int()
	assert.EqualValues(t, 7, count)
	assert.Equal(t, hvalue.NewNodeEntity(1), got[3].Entity)
	assert.True(t, got[3].HadOld)

	// New appends continue the LSN sequence.
	lsn, err := w2.Append(Entry{Kind: KindBegin, Txn: 2})
	require.NoError(t, err)
	assert.EqualValues(t, len(entries)+1, lsn)
}

func TestTornTailTruncatedOnOpen(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenFile(dir)
	require.NoError(t, err)
	_, err = w.Append(Entry{Kind: KindBegin, Txn: 1})
	require.NoError(t, err)
	_, err = w.Append(Entry{Kind: KindCommit, Txn: 1})
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	// Corrupt the tail: flip a byte inside the last record's payload.
	path := filepath.Join(dir, WALFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-6] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	w2, err := OpenFile(dir)
	require.NoError(t, err)
	defer w2.Close()

	var kinds []Kind
	require.NoError(t, w2.IterateFrom(0, func(e Entry) error {
		kinds = append(kinds, e.Kind)
		return nil
	}))
	assert.Equal(t, []Kind{KindBegin}, kinds)

	// The torn record was truncated, so its LSN is reused.
	lsn, err := w2.Append(Entry{Kind: KindAbort, Txn: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, lsn)
}

func TestRecoverReplaysCommittedOnly(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenFile(dir)
	require.NoError(t, err)

	// Committed transaction: two spawns and a link.
	append6 := []Entry{
		{Kind: KindBegin, Txn: 1},
		{Kind: KindSpawnNode, Txn: 1, Node: 1, NodeType: 1},
		{Kind: KindSpawnNode, Txn: 1, Node: 2, NodeType: 1},
		{Kind: KindLinkEdge, Txn: 1, Edge: 1, EdgeType: 1, Targets: []hvalue.EntityId{
			hvalue.NewNodeEntity(1), hvalue.NewNodeEntity(2),
		}},
		{Kind: KindCommit, Txn: 1},
		// Crash before commit of txn 2.
		{Kind: KindBegin, Txn: 2},
		{Kind: KindSpawnNode, Txn: 2, Node: 3, NodeType: 1},
	}
	for _, e := range append6 {
		_, err := w.Append(e)
		require.NoError(t, err)
	}
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	w2, err := OpenFile(dir)
	require.NoError(t, err)
	defer w2.Close()

	store := graphstore.New()
	stats, err := Recover(w2, store)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Replayed)
	assert.Equal(t, 1, stats.Discarded)

	assert.Equal(t, 2, store.NodeCount())
	assert.Equal(t, 1, store.EdgeCount())
	assert.False(t, store.NodeExists(3))

	// Counters advanced past the replayed ids.
	assert.EqualValues(t, 3, store.NextNodeID())
	assert.EqualValues(t, 2, store.NextEdgeID())
}

func TestRecoverAppliesSetAndKill(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenFile(dir)
	require.NoError(t, err)

	entries := []Entry{
		{Kind: KindBegin, Txn: 1},
		{Kind: KindSpawnNode, Txn: 1, Node: 1, NodeType: 1, Attrs: map[string]hvalue.Value{
			"name": hvalue.NewString("before"),
		}},
		{Kind: KindSpawnNode, Txn: 1, Node: 2, NodeType: 1},
		{Kind: KindSetAttr, Txn: 1, Entity: hvalue.NewNodeEntity(1), Attr: "name",
			Old: hvalue.NewString("before"), HadOld: true, New: hvalue.NewString("after")},
		{Kind: KindKillNode, Txn: 1, Node: 2},
		{Kind: KindCommit, Txn: 1},
	}
	for _, e := range entries {
		_, err := w.Append(e)
		require.NoError(t, err)
	}
	require.NoError(t, w.Sync())

	store := graphstore.New()
	stats, err := Recover(w, store)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Replayed)

	node, err := store.GetNode(1)
	require.NoError(t, err)
	v, _ := node.GetAttr("name")
	s, _ := v.String()
	assert.Equal(t, "after", s)
	assert.False(t, store.NodeExists(2))
	require.NoError(t, w.Close())
}

func TestEntryAccessors(t *testing.T) {
	assert.True(t, Entry{Kind: KindBegin, Txn: 9}.IsBegin())
	assert.True(t, Entry{Kind: KindCommit, Txn: 9}.IsCommit())
	assert.False(t, Entry{Kind: KindAbort, Txn: 9}.IsCommit())
	assert.EqualValues(t, 9, Entry{Kind: KindAbort, Txn: 9}.TxnID())
	assert.EqualValues(t, 0, Entry{Kind: KindCheckpoint, Txn: 9}.TxnID())
	assert.True(t, Entry{Kind: KindSpawnNode}.IsMutation())
	assert.False(t, Entry{Kind: KindBegin}.IsMutation())
}
