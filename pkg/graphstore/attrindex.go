package graphstore

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// attrKey is a deterministic, hashable encoding of a Value used as the
// map key for exact-match (unique/hash) lookups: type-tag the encoding,
// then hash with blake2b/256.
type attrKey [32]byte

func encodeAttrKey(v hvalue.Value) attrKey {
	// %#v-equivalent encoding: kind tag plus value, so an Int(1) and a
	// Float(1.0) hash differently even though Value.Equal treats them
	// as equal — unique-index membership is checked by exact kind+value,
	// range queries go through the sorted side index instead.
	s := fmt.Sprintf("%d:%s", v.Kind(), v.GoString())
	return blake2b.Sum256([]byte(s))
}

// rangeEntry is one (value, node) pair kept in a range index's sorted
// slice.
type rangeEntry struct {
	value hvalue.Value
	node  hvalue.NodeId
}

// attrIndex indexes one (TypeId, attribute name) pair. exact supports
// O(1) equality/uniqueness lookups; sorted supports range scans and is
// kept in ascending order by Value through sorted insertion.
type attrIndex struct {
	unique bool
	exact  map[attrKey]map[hvalue.NodeId]struct{}
	sorted []rangeEntry
}

func newAttrIndex(unique bool) *attrIndex {
	return &attrIndex{unique: unique, exact: make(map[attrKey]map[hvalue.NodeId]struct{})}
}

func (idx *attrIndex) insert(v hvalue.Value, node hvalue.NodeId) {
	if v.IsNull() {
		return // nulls never participate in uniqueness or range indices
	}
	k := encodeAttrKey(v)
	set, ok := idx.exact[k]
	if !ok {
		set = make(map[hvalue.NodeId]struct{})
		idx.exact[k] = set
	}
	set[node] = struct{}{}

	pos := sort.Search(len(idx.sorted), func(i int) bool {
		cmp, ok := hvalue.Compare(idx.sorted[i].value, v)
		return ok && cmp >= 0
	})
	idx.sorted = append(idx.sorted, rangeEntry{})
	copy(idx.sorted[pos+1:], idx.sorted[pos:])
	idx.sorted[pos] = rangeEntry{value: v, node: node}
}

func (idx *attrIndex) clone() *attrIndex {
	out := newAttrIndex(idx.unique)
	for k, set := range idx.exact {
		cp := make(map[hvalue.NodeId]struct{}, len(set))
		for n := range set {
			cp[n] = struct{}{}
		}
		out.exact[k] = cp
	}
	out.sorted = append([]rangeEntry(nil), idx.sorted...)
	return out
}

func (idx *attrIndex) remove(v hvalue.Value, node hvalue.NodeId) {
	if v.IsNull() {
		return
	}
	k := encodeAttrKey(v)
	if set, ok := idx.exact[k]; ok {
		delete(set, node)
		if len(set) == 0 {
			delete(idx.exact, k)
		}
	}
	for i, e := range idx.sorted {
		if e.node == node && hvalue.Equal(e.value, v) {
			idx.sorted = append(idx.sorted[:i], idx.sorted[i+1:]...)
			break
		}
	}
}

// hasOtherThan reports whether any live node is indexed under v,
// excluding exclude when hasExclude is set (used by SET's re-check,
// which must ignore the entity being updated).
func (idx *attrIndex) hasOtherThan(v hvalue.Value, exclude hvalue.NodeId, hasExclude bool) bool {
	if v.IsNull() {
		return false
	}
	set, ok := idx.exact[encodeAttrKey(v)]
	if !ok {
		return false
	}
	for n := range set {
		if hasExclude && n == exclude {
			continue
		}
		return true
	}
	return false
}

func (idx *attrIndex) equalMatches(v hvalue.Value) []hvalue.NodeId {
	set, ok := idx.exact[encodeAttrKey(v)]
	if !ok {
		return nil
	}
	out := make([]hvalue.NodeId, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// rangeMatches returns every node whose indexed value lies in [lo, hi]
// (inclusive), using Value.Compare ordering.
func (idx *attrIndex) rangeMatches(lo, hi hvalue.Value) []hvalue.NodeId {
	var out []hvalue.NodeId
	for _, e := range idx.sorted {
		if !lo.IsNull() {
			if cmp, ok := hvalue.Compare(e.value, lo); ok && cmp < 0 {
				continue
			}
		}
		if !hi.IsNull() {
			if cmp, ok := hvalue.Compare(e.value, hi); ok && cmp > 0 {
				continue
			}
		}
		out = append(out, e.node)
	}
	return out
}
