// Package prefix implements the condensed Merkle prefix tree used by the
// auditor: a 256-level binary tree verified top-down from a single retained
// root hash using sparse "stand-in" hashes for subtrees the auditor has
// never observed, combined with a copath of sibling hashes for subtrees it
// has.
package prefix

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	hashSize        = 32
	commitmentIndexSize = 32
	seedSize        = 16

	// Domain-separation tags. These values are fixed by the wire protocol
	// the auditor verifies against and must not be changed independently
	// of it.
	tagLeaf         = 0x00
	tagIntermediate = 0x01
	tagStandIn      = 0x02

	maxLevel = 256
)

// bitSet returns the bit of index at the given level (1-indexed, MSB-first
// within each byte), matching the navigation rule used to build and verify
// copaths: level 1 selects the high bit of index[0].
func bitSet(index []byte, level int) bool {
	byteIdx := (level - 1) / 8
	bitIdx := (level - 1) % 8
	return (index[byteIdx]>>(7-bitIdx))&1 == 1
}

// leafHash computes the domain-separated hash of a prefix tree leaf.
func leafHash(index []byte, counter uint32, firstLogPosition uint64) []byte {
	h := sha256.New()
	h.Write([]byte{tagLeaf})
	h.Write(index)
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], counter)
	binary.BigEndian.PutUint64(buf[4:12], firstLogPosition)
	h.Write(buf[:])
	return h.Sum(nil)
}

// intermediateHash computes the domain-separated hash of an internal node
// from its two children, left always being the child reached by a 0 bit.
func intermediateHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{tagIntermediate})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// standInHash computes the deterministic placeholder for an unexplored
// subtree rooted at the given level (1 through 256).
func standInHash(seed []byte, level int) []byte {
	h := sha256.New()
	h.Write([]byte{tagStandIn})
	h.Write(seed)
	h.Write([]byte{byte(level - 1)})
	return h.Sum(nil)
}

// ascend folds a starting hash at level startLevel up to the root (level 0).
//
// copath is ordered root-to-leaf: copath[0] is the sibling at level 1
// (nearest the root, the shallow and best-explored part of the tree) and
// copath[len-1] is the sibling at level len(copath). Levels shallower than
// or equal to len(copath) use the corresponding copath entry; levels deeper
// than that (nearer the leaf, where the tree is sparsest) use a stand-in
// hash derived from seed. startLevel must be >= len(copath).
func ascend(index []byte, cur []byte, startLevel int, copath [][]byte, seed []byte) []byte {
	return ascendTo(index, cur, startLevel, 0, copath, seed)
}

// ascendTo is ascend generalized to stop at an arbitrary level instead of
// always folding all the way to the root; used internally to fold a single
// leaf's path down to the level at which some other update's proof diverges
// from it.
func ascendTo(index []byte, cur []byte, startLevel, stopLevel int, copath [][]byte, seed []byte) []byte {
	for level := startLevel; level > stopLevel; level-- {
		var sibling []byte
		if level <= len(copath) {
			sibling = copath[level-1]
		} else {
			sibling = standInHash(seed, level)
		}

		if bitSet(index, level) {
			cur = intermediateHash(sibling, cur)
		} else {
			cur = intermediateHash(cur, sibling)
		}
	}
	return cur
}
