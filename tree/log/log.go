// Package log implements the condensed append-only Merkle log tree: an
// in-memory representation that retains only the minimal set of subtree
// roots needed to append new leaves and recompute the tree's root hash, in
// O(log n) time and space.
package log

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/ktaudit/ktaudit/tree/log/math"
)

// ErrEmpty is returned by RootHash when the tree has no leaves.
var ErrEmpty = errors.New("log tree has no leaves")

// Node is a single retained node of the condensed tree: a node id in the
// left-balanced numbering (leaves at even ids) together with its hash.
type Node struct {
	ID   uint64
	Hash []byte
}

// Tree is the condensed log tree. It retains only the ordered set of
// full-subtree roots on the current right spine -- the minimal node set
// from which both AppendLeaf and RootHash can be computed.
type Tree struct {
	nodes []Node // ascending by id, left to right
}

// New returns an empty condensed log tree.
func New() *Tree {
	return &Tree{}
}

// leafCount converts a rightmost leaf id (the "max leaf" AppendLeaf works
// with) into the leaf count the math package's functions are parameterized
// on.
func leafCount(maxLeaf uint64) uint64 {
	return maxLeaf/2 + 1
}

// FromPersisted reconstructs a condensed log tree from a previously
// persisted node set and leaf count. The node set must be exactly the full
// subtree roots for that leaf count; any other shape indicates corrupted or
// foreign persisted state, which is a programming/data invariant violation
// rather than a recoverable error.
func FromPersisted(nodes []Node, nEntries uint64) *Tree {
	if nEntries == 0 {
		if len(nodes) != 0 {
			panic("log tree: persisted nodes given for zero leaves")
		}
		return New()
	}

	sorted := make([]Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	want := math.FullSubtreeRootIds(nEntries)
	if len(sorted) != len(want) {
		panic(fmt.Sprintf("log tree: persisted node count %d does not match expected %d for %d entries", len(sorted), len(want), nEntries))
	}
	for i, id := range want {
		if sorted[i].ID != id {
			panic(fmt.Sprintf("log tree: persisted node id %d at position %d does not match expected id %d", sorted[i].ID, i, id))
		}
		if len(sorted[i].Hash) != 32 {
			panic("log tree: persisted node has wrong hash length")
		}
	}

	return &Tree{nodes: sorted}
}

// Nodes returns a snapshot of the tree's current node set, suitable for
// persistence.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// AppendLeaf adds a new leaf derived from prefixRoot and commitment to the
// log. nBefore is the number of leaves in the tree prior to this append.
func (t *Tree) AppendLeaf(commitment, prefixRoot []byte, nBefore uint64) {
	maxLeaf := 2 * nBefore

	h := sha256.New()
	h.Write(prefixRoot)
	h.Write(commitment)
	curHash := h.Sum(nil)
	curID := maxLeaf
	curLevel := uint64(0)

	for len(t.nodes) > 0 {
		last := t.nodes[len(t.nodes)-1]
		if math.Level(last.ID) != curLevel {
			break
		}
		t.nodes = t.nodes[:len(t.nodes)-1]

		var tag byte = 0x01
		if curLevel == 0 {
			tag = 0x00
		}
		ph := sha256.New()
		ph.Write([]byte{tag})
		ph.Write(last.Hash)
		ph.Write([]byte{tag})
		ph.Write(curHash)
		curHash = ph.Sum(nil)

		curID = math.Parent(last.ID, leafCount(maxLeaf))
		curLevel++
	}

	t.nodes = append(t.nodes, Node{ID: curID, Hash: curHash})
}

// RootHash folds the retained node set into the tree's current root hash.
func (t *Tree) RootHash() ([]byte, error) {
	if len(t.nodes) == 0 {
		return nil, ErrEmpty
	}

	newest := t.nodes[len(t.nodes)-1]
	acc := newest.Hash
	newestIsLeaf := math.IsLeaf(newest.ID)

	for i := len(t.nodes) - 2; i >= 0; i-- {
		tag := byte(0x01)
		if i == len(t.nodes)-2 && newestIsLeaf {
			tag = 0x00
		}
		h := sha256.New()
		h.Write([]byte{0x01})
		h.Write(t.nodes[i].Hash)
		h.Write([]byte{tag})
		h.Write(acc)
		acc = h.Sum(nil)
	}
	return acc, nil
}
