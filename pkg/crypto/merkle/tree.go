/*
Package merkle implements the allowlist commitment: a keccak256 binary hash
tree over account leaves with sorted-pair hashing. Leaves are
keccak256(address) and a node without a sibling is promoted to the next
level unchanged, so proofs produced here are verifiable by the usual
sorted-pair on-chain verifiers.
*/
package merkle

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmpty is returned on an attempt to build a tree without leaves.
var ErrEmpty = errors.New("length of the leaves cannot be zero")

// ErrUnknownLeaf is returned when a proof is requested for a leaf not in the tree.
var ErrUnknownLeaf = errors.New("leaf is not in the tree")

// Tree is a complete allowlist tree with all levels kept for proof generation.
type Tree struct {
	// levels[0] are the leaves, the last level has a single root node.
	levels [][]common.Hash
}

// LeafHash returns the leaf value for an account.
func LeafHash(a common.Address) common.Hash {
	return crypto.Keccak256Hash(a.Bytes())
}

// HashPair hashes two nodes in sorted order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// NewTree builds a tree over the given accounts in the given order.
func NewTree(accounts []common.Address) (*Tree, error) {
	leaves := make([]common.Hash, len(accounts))
	for i := range accounts {
		leaves[i] = LeafHash(accounts[i])
	}
	return NewTreeFromLeaves(leaves)
}

// NewTreeFromLeaves builds a tree over precomputed leaf hashes.
func NewTreeFromLeaves(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)
	t := &Tree{levels: [][]common.Hash{level}}
	for len(level) > 1 {
		parents := make([]common.Hash, (len(level)+1)/2)
		for i := range parents {
			if i*2+1 == len(level) {
				parents[i] = level[i*2]
				continue
			}
			parents[i] = HashPair(level[i*2], level[i*2+1])
		}
		t.levels = append(t.levels, parents)
		level = parents
	}
	return t, nil
}

// Root returns the computed root hash of the tree.
func (t *Tree) Root() common.Hash {
	return t.levels[len(t.levels)-1][0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.levels[0])
}

// Proof returns the inclusion proof for the first occurrence of leaf.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrUnknownLeaf
	}
	var proof []common.Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// AccountProof returns the inclusion proof for an account.
func (t *Tree) AccountProof(a common.Address) ([]common.Hash, error) {
	return t.Proof(LeafHash(a))
}

// Verify checks that leaf is included into the tree with the given root.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	h := leaf
	for _, p := range proof {
		h = HashPair(h, p)
	}
	return h == root
}

// Allowlist checks account membership against a committed root.
type Allowlist struct{}

// VerifyMembership implements the sale eligibility check.
func (Allowlist) VerifyMembership(account common.Address, proof []common.Hash, root common.Hash) bool {
	return Verify(proof, root, LeafHash(account))
}
