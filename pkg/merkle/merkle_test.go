package merkle

import (
	"crypto/sha256"
	"testing"

	"github.com/gochain/utxonode/pkg/types"
	"github.com/stretchr/testify/assert"
)

func leafHash(b byte) types.H256 {
	sum := sha256.Sum256([]byte{b})
	return types.H256(sum)
}

func TestBuildEmptyYieldsZeroRoot(t *testing.T) {
	tree := Build(nil)
	assert.True(t, tree.Root().IsZero())
}

func TestBuildSingleLeafRootIsStableAgainstDuplication(t *testing.T) {
	leaf := leafHash(1)
	tree := Build([]types.H256{leaf})
	assert.Equal(t, hashPair(leaf, leaf), tree.Root())
}

func TestProofRoundTripsForEveryLeafAtVariousSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8} {
		leaves := make([]types.H256, n)
		for i := range leaves {
			leaves[i] = leafHash(byte(i + 1))
		}
		tree := Build(leaves)
		root := tree.Root()

		for i := range leaves {
			proof := tree.ProofFor(i)
			assert.True(t, Verify(root, leaves[i], proof, i, n), "leaf %d of %d failed to verify", i, n)
		}
	}
}

func TestVerifyRejectsTamperedLeaf(t *testing.T) {
	leaves := []types.H256{leafHash(1), leafHash(2), leafHash(3), leafHash(4)}
	tree := Build(leaves)
	root := tree.Root()

	proof := tree.ProofFor(0)
	assert.False(t, Verify(root, leafHash(99), proof, 0, len(leaves)))
}

func TestVerifyRejectsWrongIndex(t *testing.T) {
	leaves := []types.H256{leafHash(1), leafHash(2), leafHash(3), leafHash(4)}
	tree := Build(leaves)
	root := tree.Root()

	proof := tree.ProofFor(1)
	assert.False(t, Verify(root, leaves[1], proof, 2, len(leaves)))
}

func TestVerifyEmptyTreeOnlyAcceptsZeroDatum(t *testing.T) {
	assert.True(t, Verify(types.ZeroHash, types.ZeroHash, nil, 0, 0))
	assert.False(t, Verify(types.ZeroHash, leafHash(1), nil, 0, 0))
}
