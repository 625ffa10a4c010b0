package mkl

import (
	"bytes"
	"crypto"
	"fmt"
	"hash"
)

// domain separation tags for leaf and interior node hashes
const (
	tagLeaf byte = 0
	tagNode byte = 1
)

type (
	// Tree is an indexed Merkle tree over lexicographically ordered leaves.
	// The same ordered input always produces the same root hash.
	Tree struct {
		root      *node
		leafCount int
	}

	// Data is the hashable content of a leaf.
	Data interface {
		AddToHasher(hasher hash.Hash)
	}

	// LeafData is a tree leaf. NB! leaves must be sorted by Index in
	// strictly ascending order.
	LeafData struct {
		Index []byte
		Data  Data
	}

	// PathItem is one step of an audit path, the hash and index of a sibling node.
	PathItem struct {
		Index []byte
		Hash  []byte
	}

	pair struct {
		index    []byte
		dataHash []byte
	}

	node struct {
		left  *node
		right *node
		hash  []byte
		index []byte
	}
)

// New builds the tree over "leaves". An empty leaf set produces a nil root hash.
func New(hashAlgorithm crypto.Hash, leaves []LeafData) (*Tree, error) {
	if len(leaves) == 0 {
		return &Tree{}, nil
	}
	for i := len(leaves) - 1; i > 0; i-- {
		if bytes.Compare(leaves[i].Index, leaves[i-1].Index) != 1 {
			return nil, fmt.Errorf("leaves not sorted by index in strictly ascending order")
		}
	}
	hasher := hashAlgorithm.New()
	pairs := make([]pair, len(leaves))
	for i, l := range leaves {
		l.Data.AddToHasher(hasher)
		pairs[i] = pair{index: l.Index, dataHash: hasher.Sum(nil)}
		hasher.Reset()
	}
	return &Tree{root: buildTree(pairs, hasher), leafCount: len(pairs)}, nil
}

// RootHash returns the root hash of the tree, nil for an empty tree.
func (t *Tree) RootHash() []byte {
	if t.root == nil {
		return nil
	}
	return t.root.hash
}

func (t *Tree) LeafCount() int {
	return t.leafCount
}

// MerklePath extracts the audit path from the leaf with the given index to the root.
func (t *Tree) MerklePath(leafIdx []byte) ([]*PathItem, error) {
	if t.root == nil {
		return nil, fmt.Errorf("tree empty")
	}
	var path []*PathItem
	curr := t.root
	for !curr.isLeaf() {
		if bytes.Compare(leafIdx, curr.index) == 1 {
			path = append([]*PathItem{{Index: curr.index, Hash: curr.left.hash}}, path...)
			curr = curr.right
		} else { // smaller or equal index
			path = append([]*PathItem{{Index: curr.index, Hash: curr.right.hash}}, path...)
			curr = curr.left
		}
	}
	return path, nil
}

/*
EvalMerklePath computes the root hash implied by the audit path and the leaf
content - comparing the result to a trusted root hash verifies the leaf's
membership.
*/
func EvalMerklePath(path []*PathItem, index []byte, data Data, hashAlgorithm crypto.Hash) []byte {
	hasher := hashAlgorithm.New()
	data.AddToHasher(hasher)
	dataHash := hasher.Sum(nil)
	hasher.Reset()

	hasher.Write([]byte{tagLeaf})
	hasher.Write(index)
	hasher.Write(dataHash)
	h := hasher.Sum(nil)
	hasher.Reset()

	for _, item := range path {
		hasher.Write([]byte{tagNode})
		hasher.Write(item.Index)
		if bytes.Compare(index, item.Index) == 1 {
			// index > item.Index - left sibling
			hasher.Write(item.Hash)
			hasher.Write(h)
		} else {
			// index <= item.Index - right sibling
			hasher.Write(h)
			hasher.Write(item.Hash)
		}
		h = hasher.Sum(nil)
		hasher.Reset()
	}
	return h
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

func buildTree(pairs []pair, hasher hash.Hash) *node {
	if len(pairs) == 1 {
		hasher.Reset()
		hasher.Write([]byte{tagLeaf})
		hasher.Write(pairs[0].index)
		hasher.Write(pairs[0].dataHash)
		return &node{index: pairs[0].index, hash: hasher.Sum(nil)}
	}
	m := (len(pairs) + 1) / 2
	leftSub, rightSub := pairs[:m], pairs[m:]
	left := buildTree(leftSub, hasher)
	right := buildTree(rightSub, hasher)
	hasher.Reset()
	hasher.Write([]byte{tagNode})
	hasher.Write(leftSub[len(leftSub)-1].index)
	hasher.Write(left.hash)
	hasher.Write(right.hash)
	return &node{index: leftSub[len(leftSub)-1].index, left: left, right: right, hash: hasher.Sum(nil)}
}
