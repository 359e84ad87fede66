// Package merkle builds a merkle root over an ordered sequence of leaf
// hashes and produces/verifies inclusion proofs against it.
package merkle

import (
	"crypto/sha256"

	"github.com/gochain/utxonode/pkg/types"
)

// Tree is a flattened binary merkle tree: levels stored back to back,
// leaves first. level(i).len() is halved (rounded up to even) at each
// step until a single root remains.
type Tree struct {
	levels [][]types.H256 // levels[0] = leaves (possibly duplicated to even), levels[last] = [root]
}

// hashPair returns SHA-256(left || right).
func hashPair(left, right types.H256) types.H256 {
	buf := make([]byte, 0, types.H256Size*2)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	sum := sha256.Sum256(buf)
	return types.H256(sum)
}

// Build constructs a merkle tree over the given leaf hashes. An empty
// input yields a tree whose root is the all-zero hash.
func Build(leaves []types.H256) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]types.H256{{types.ZeroHash}}}
	}

	level := make([]types.H256, len(leaves))
	copy(level, leaves)
	if len(level)%2 != 0 {
		level = append(level, level[len(level)-1])
	}

	t := &Tree{levels: [][]types.H256{level}}

	for len(level) > 1 {
		next := make([]types.H256, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		if len(next) > 1 && len(next)%2 != 0 {
			next = append(next, next[len(next)-1])
		}
		t.levels = append(t.levels, next)
		level = next
	}

	return t
}

// Root returns the merkle root.
func (t *Tree) Root() types.H256 {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof is the ordered sequence of sibling hashes from a leaf up to the
// root, one per level.
type Proof []types.H256

// ProofFor returns the inclusion proof for the leaf at index i.
func (t *Tree) ProofFor(i int) Proof {
	var proof Proof
	idx := i
	for level := 0; level < len(t.levels)-1; level++ {
		siblings := t.levels[level]
		var siblingIdx int
		if idx%2 == 0 {
			siblingIdx = idx + 1
		} else {
			siblingIdx = idx - 1
		}
		if siblingIdx < len(siblings) {
			proof = append(proof, siblings[siblingIdx])
		}
		idx /= 2
	}
	return proof
}

// Verify recomputes the root from a leaf datum, its proof, and its
// original index, and reports whether it matches root.
func Verify(root types.H256, datum types.H256, proof Proof, index int, leafCount int) bool {
	if leafCount == 0 {
		return root.IsZero() && datum.IsZero() && len(proof) == 0
	}

	current := datum
	idx := index
	for _, sibling := range proof {
		if idx%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		idx /= 2
	}
	return current == root
}
