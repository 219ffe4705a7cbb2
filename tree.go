// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"github.com/cockroachdb/errors"
)

// TreeIterator produces the local trees of a sealed TreeSequence by edge
// differencing: as the sweep coordinate moves, only the edges that change
// between adjacent trees are applied, giving amortized O(E) work for a full
// sweep over E edges instead of O(E) per tree.
//
// The iterator owns the parent-pointer and sibling-list arrays that back
// every yielded Tree. This is the one piece of mutable state in an
// otherwise immutable system: trees are read-only views bound to the
// iterator's current step and are invalidated when the iterator advances.
//
// The insertion and removal cursors are shared between the two sweep
// directions. After any forward step the insertion cursor sits just past
// the edges inserted at the current left boundary and the removal cursor
// just past the edges removed there, which is exactly the state a backward
// step needs to undo it; Next and Prev may therefore be interleaved freely.
//
// A TreeIterator is not safe for concurrent use. The underlying
// TreeSequence is immutable and may back any number of iterators.
type TreeIterator struct {
	ts *TreeSequence

	parent      []NodeID
	leftChild   []NodeID
	rightChild  []NodeID
	leftSib     []NodeID
	rightSib    []NodeID
	numChildren []int32
	// sampleCount[u] is the number of sample nodes in the subtree rooted
	// at u in the current tree, counting u itself if it is a sample.
	sampleCount []int32

	j, k        int // insertion and removal cursors
	left, right float64
	index       int // current tree index, -1 in the null state
	tree        Tree
}

// Trees returns a new iterator positioned in the null state: Next yields
// the leftmost tree, Prev the rightmost.
func (ts *TreeSequence) Trees() *TreeIterator {
	n := ts.NumNodes()
	it := &TreeIterator{
		ts:          ts,
		parent:      make([]NodeID, n),
		leftChild:   make([]NodeID, n),
		rightChild:  make([]NodeID, n),
		leftSib:     make([]NodeID, n),
		rightSib:    make([]NodeID, n),
		numChildren: make([]int32, n),
		sampleCount: make([]int32, n),
	}
	it.tree = Tree{it: it}
	it.clearState()
	return it
}

// clearState returns the iterator to the null state with an empty forest.
func (it *TreeIterator) clearState() {
	for i := range it.parent {
		it.parent[i] = NullNode
		it.leftChild[i] = NullNode
		it.rightChild[i] = NullNode
		it.leftSib[i] = NullNode
		it.rightSib[i] = NullNode
		it.numChildren[i] = 0
		if it.ts.tables.nodes.IsSample(NodeID(i)) {
			it.sampleCount[i] = 1
		} else {
			it.sampleCount[i] = 0
		}
	}
	it.j, it.k = 0, 0
	it.left, it.right = 0, 0
	it.index = -1
}

// Reset returns the iterator to the null state. Seeking to an arbitrary
// coordinate is deliberately unsupported; restart and sweep instead.
func (it *TreeIterator) Reset() { it.clearState() }

// Next advances to the next tree rightward, returning false when the sweep
// passes the sequence length. From the null state it yields the leftmost
// tree, so exhausting the iterator and calling Next again restarts it.
func (it *TreeIterator) Next() bool {
	edges := &it.ts.tables.edges
	m := len(it.ts.insertion)
	seqLen := it.ts.tables.sequenceLength

	var x float64
	if it.index == -1 {
		it.j, it.k = 0, 0
		x = 0
	} else {
		x = it.right
	}
	if x >= seqLen {
		it.clearState()
		return false
	}

	for it.k < m && edges.Right(it.ts.removal[it.k]) == x {
		it.removeEdge(it.ts.removal[it.k])
		it.k++
	}
	for it.j < m && edges.Left(it.ts.insertion[it.j]) == x {
		it.insertEdge(it.ts.insertion[it.j])
		it.j++
	}

	// The interval is maximal: it extends to the nearest coordinate at
	// which any edge changes state, or the end of the genome.
	it.left = x
	right := seqLen
	if it.j < m {
		right = min(right, edges.Left(it.ts.insertion[it.j]))
	}
	if it.k < m {
		right = min(right, edges.Right(it.ts.removal[it.k]))
	}
	it.right = right
	it.index++
	return true
}

// Prev advances to the next tree leftward, returning false when the sweep
// passes coordinate zero. From the null state it yields the rightmost tree.
func (it *TreeIterator) Prev() bool {
	edges := &it.ts.tables.edges
	m := len(it.ts.insertion)
	seqLen := it.ts.tables.sequenceLength

	var x float64
	if it.index == -1 {
		it.j, it.k = m, m
		x = seqLen
	} else {
		x = it.left
	}
	if x <= 0 {
		it.clearState()
		return false
	}

	for it.j > 0 && edges.Left(it.ts.insertion[it.j-1]) == x {
		it.removeEdge(it.ts.insertion[it.j-1])
		it.j--
	}
	for it.k > 0 && edges.Right(it.ts.removal[it.k-1]) == x {
		it.insertEdge(it.ts.removal[it.k-1])
		it.k--
	}

	it.right = x
	left := 0.0
	if it.j > 0 {
		left = max(left, edges.Left(it.ts.insertion[it.j-1]))
	}
	if it.k > 0 {
		left = max(left, edges.Right(it.ts.removal[it.k-1]))
	}
	it.left = left
	if it.index == -1 {
		it.index = it.ts.NumTrees() - 1
	} else {
		it.index--
	}
	return true
}

// Tree returns the view over the current tree. The view is valid until the
// next call to Next, Prev or Reset; it must not be retained across
// advances.
func (it *TreeIterator) Tree() *Tree { return &it.tree }

func (it *TreeIterator) insertEdge(e EdgeID) {
	edges := &it.ts.tables.edges
	p, c := edges.Parent(e), edges.Child(e)
	if !it.parent[c].IsNull() {
		// Seal-time validation guarantees a forest at every coordinate.
		panic(errors.AssertionFailedf(
			"treeseq: inserting edge %s: child %s already has parent %s", e, c, it.parent[c]))
	}
	it.parent[c] = p
	prev := it.rightChild[p]
	it.leftSib[c] = prev
	it.rightSib[c] = NullNode
	if prev.IsNull() {
		it.leftChild[p] = c
	} else {
		it.rightSib[prev] = c
	}
	it.rightChild[p] = c
	it.numChildren[p]++
	if delta := it.sampleCount[c]; delta != 0 {
		for u := p; !u.IsNull(); u = it.parent[u] {
			it.sampleCount[u] += delta
		}
	}
}

func (it *TreeIterator) removeEdge(e EdgeID) {
	edges := &it.ts.tables.edges
	p, c := edges.Parent(e), edges.Child(e)
	if it.parent[c] != p {
		panic(errors.AssertionFailedf(
			"treeseq: removing edge %s: child %s has parent %s, not %s", e, c, it.parent[c], p))
	}
	if delta := it.sampleCount[c]; delta != 0 {
		for u := p; !u.IsNull(); u = it.parent[u] {
			it.sampleCount[u] -= delta
		}
	}
	lsib, rsib := it.leftSib[c], it.rightSib[c]
	if lsib.IsNull() {
		it.leftChild[p] = rsib
	} else {
		it.rightSib[lsib] = rsib
	}
	if rsib.IsNull() {
		it.rightChild[p] = lsib
	} else {
		it.leftSib[rsib] = lsib
	}
	it.parent[c] = NullNode
	it.leftSib[c] = NullNode
	it.rightSib[c] = NullNode
	it.numChildren[p]--
}

// Tree is a read-only view over the iterator's current local tree: the
// forest of parent/child relationships valid over the half-open genome
// interval [Left, Right). All methods are valid only until the owning
// iterator advances.
type Tree struct {
	it *TreeIterator
}

// Interval returns the [left, right) genome interval of the tree.
func (t *Tree) Interval() (left, right float64) { return t.it.left, t.it.right }

// Span returns the length of the tree's interval.
func (t *Tree) Span() float64 { return t.it.right - t.it.left }

// Index returns the tree's position in the left-to-right tree order.
func (t *Tree) Index() int { return t.it.index }

// Parent returns the parent of node u in this tree, or NullNode.
func (t *Tree) Parent(u NodeID) NodeID { return t.it.parent[u] }

// LeftChild returns the leftmost child of node u, or NullNode.
func (t *Tree) LeftChild(u NodeID) NodeID { return t.it.leftChild[u] }

// RightChild returns the rightmost child of node u, or NullNode.
func (t *Tree) RightChild(u NodeID) NodeID { return t.it.rightChild[u] }

// LeftSib returns the previous sibling of node u, or NullNode.
func (t *Tree) LeftSib(u NodeID) NodeID { return t.it.leftSib[u] }

// RightSib returns the next sibling of node u, or NullNode.
func (t *Tree) RightSib(u NodeID) NodeID { return t.it.rightSib[u] }

// NumChildren returns the number of children of node u.
func (t *Tree) NumChildren(u NodeID) int { return int(t.it.numChildren[u]) }

// Children returns the children of node u in sibling order.
func (t *Tree) Children(u NodeID) []NodeID {
	out := make([]NodeID, 0, t.it.numChildren[u])
	for c := t.it.leftChild[u]; !c.IsNull(); c = t.it.rightSib[c] {
		out = append(out, c)
	}
	return out
}

// Parents returns node u followed by each of its ancestors up to the root
// of its subtree.
func (t *Tree) Parents(u NodeID) []NodeID {
	var out []NodeID
	for v := u; !v.IsNull(); v = t.it.parent[v] {
		out = append(out, v)
	}
	return out
}

// IsSample reports whether node u carries the sample flag.
func (t *Tree) IsSample(u NodeID) bool { return t.it.ts.tables.nodes.IsSample(u) }

// NumTrackedSamples returns the number of sample nodes in the subtree
// rooted at u, counting u itself if it is a sample.
func (t *Tree) NumTrackedSamples(u NodeID) int { return int(t.it.sampleCount[u]) }

// Roots returns the roots of the tree in node id order: the parentless
// nodes whose subtree contains at least one sample. An isolated sample is
// its own root.
func (t *Tree) Roots() []NodeID {
	var out []NodeID
	for i := range t.it.parent {
		u := NodeID(i)
		if t.it.parent[u].IsNull() && t.it.sampleCount[u] > 0 {
			out = append(out, u)
		}
	}
	return out
}

// NumRoots returns the number of roots.
func (t *Tree) NumRoots() int {
	n := 0
	for i := range t.it.parent {
		if t.it.parent[i].IsNull() && t.it.sampleCount[i] > 0 {
			n++
		}
	}
	return n
}

// PreorderNodes returns the nodes of the tree in preorder, starting at the
// leftmost root and visiting each root's subtree in turn.
func (t *Tree) PreorderNodes() []NodeID {
	var out []NodeID
	roots := t.Roots()
	stack := make([]NodeID, 0, 64)
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, u)
		// Children are pushed rightmost-first so the leftmost is visited
		// next.
		for c := t.it.rightChild[u]; !c.IsNull(); c = t.it.leftSib[c] {
			stack = append(stack, c)
		}
	}
	return out
}

// TotalBranchLength returns the sum over all edges present in the tree of
// the parent/child time difference.
func (t *Tree) TotalBranchLength() float64 {
	nodes := &t.it.ts.tables.nodes
	var sum float64
	for i, p := range t.it.parent {
		if !p.IsNull() {
			sum += nodes.Time(p) - nodes.Time(NodeID(i))
		}
	}
	return sum
}
