// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestTreeIteratorTwoTrees(t *testing.T) {
	ts, err := twoTreeTables(t).Seal()
	require.NoError(t, err)

	it := ts.Trees()
	tree := it.Tree()

	// Tree 0 over [0, 5): both samples under node 2.
	require.True(t, it.Next())
	left, right := tree.Interval()
	require.Equal(t, 0.0, left)
	require.Equal(t, 5.0, right)
	require.Equal(t, 0, tree.Index())
	require.Equal(t, NodeID(2), tree.Parent(0))
	require.Equal(t, NodeID(2), tree.Parent(1))
	require.True(t, tree.Parent(2).IsNull())
	require.Equal(t, []NodeID{0, 1}, tree.Children(2))
	require.Equal(t, 2, tree.NumChildren(2))
	require.Equal(t, []NodeID{2}, tree.Roots())
	require.Equal(t, 2, tree.NumTrackedSamples(2))
	require.Equal(t, 2.0, tree.TotalBranchLength())

	// Tree 1 over [5, 10): sample 1 detaches and becomes its own root.
	require.True(t, it.Next())
	left, right = tree.Interval()
	require.Equal(t, 5.0, left)
	require.Equal(t, 10.0, right)
	require.Equal(t, 1, tree.Index())
	require.Equal(t, NodeID(2), tree.Parent(0))
	require.True(t, tree.Parent(1).IsNull())
	require.Equal(t, []NodeID{1, 2}, tree.Roots())
	require.Equal(t, 1, tree.NumTrackedSamples(2))
	require.Equal(t, 1, tree.NumTrackedSamples(1))
	require.Equal(t, 1.0, tree.TotalBranchLength())

	require.False(t, it.Next())
	// The exhausted iterator restarts from the null state.
	require.True(t, it.Next())
	require.Equal(t, 0, tree.Index())
}

func TestTreeIteratorPrev(t *testing.T) {
	ts, err := twoTreeTables(t).Seal()
	require.NoError(t, err)

	it := ts.Trees()
	tree := it.Tree()

	// From the null state Prev yields the rightmost tree.
	require.True(t, it.Prev())
	left, right := tree.Interval()
	require.Equal(t, 5.0, left)
	require.Equal(t, 10.0, right)
	require.Equal(t, 1, tree.Index())
	require.True(t, tree.Parent(1).IsNull())

	require.True(t, it.Prev())
	left, right = tree.Interval()
	require.Equal(t, 0.0, left)
	require.Equal(t, 5.0, right)
	require.Equal(t, 0, tree.Index())
	require.Equal(t, NodeID(2), tree.Parent(1))

	require.False(t, it.Prev())
}

func TestTreeIteratorInterleaved(t *testing.T) {
	ts, err := twoTreeTables(t).Seal()
	require.NoError(t, err)

	it := ts.Trees()
	tree := it.Tree()

	require.True(t, it.Next()) // tree 0
	require.True(t, it.Next()) // tree 1
	require.True(t, it.Prev()) // back to tree 0
	require.Equal(t, 0, tree.Index())
	require.Equal(t, NodeID(2), tree.Parent(1))
	require.True(t, it.Next()) // tree 1 again
	require.Equal(t, 1, tree.Index())
	require.True(t, tree.Parent(1).IsNull())
}

func TestTreeIteratorReset(t *testing.T) {
	ts, err := twoTreeTables(t).Seal()
	require.NoError(t, err)

	it := ts.Trees()
	require.True(t, it.Next())
	require.True(t, it.Next())
	it.Reset()
	require.True(t, it.Next())
	require.Equal(t, 0, it.Tree().Index())
}

func TestTreeIteratorEmpty(t *testing.T) {
	tc, err := NewTableCollection(5)
	require.NoError(t, err)
	_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
	require.NoError(t, err)
	ts, err := tc.Seal()
	require.NoError(t, err)

	// A single tree spanning the genome, with the isolated sample as root.
	it := ts.Trees()
	tree := it.Tree()
	require.True(t, it.Next())
	left, right := tree.Interval()
	require.Equal(t, 0.0, left)
	require.Equal(t, 5.0, right)
	require.Equal(t, []NodeID{0}, tree.Roots())
	require.Equal(t, 0.0, tree.TotalBranchLength())
	require.False(t, it.Next())
}

func TestPreorderNodes(t *testing.T) {
	// 4 under root 6; 0,1 under 4; 5 under 6; 2,3 under 5.
	tc, err := NewTableCollection(10)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err = tc.AddNode(0, 1, NullPopulation, NullIndividual) // 4, 5
		require.NoError(t, err)
	}
	_, err = tc.AddNode(0, 2, NullPopulation, NullIndividual) // 6
	require.NoError(t, err)
	for _, e := range [][2]NodeID{{4, 0}, {4, 1}, {5, 2}, {5, 3}, {6, 4}, {6, 5}} {
		_, err = tc.AddEdge(0, 10, e[0], e[1])
		require.NoError(t, err)
	}
	ts, err := tc.Seal()
	require.NoError(t, err)

	it := ts.Trees()
	require.True(t, it.Next())
	tree := it.Tree()
	require.Equal(t, []NodeID{6, 4, 0, 1, 5, 2, 3}, tree.PreorderNodes())
	require.Equal(t, []NodeID{0, 4, 6}, tree.Parents(0))
	require.Equal(t, 4, tree.NumTrackedSamples(6))
	require.Equal(t, 6.0, tree.TotalBranchLength())
}

// randomTables generates a valid collection: every child node receives a
// random strictly older parent over each segment of a random partition of
// the genome, so no coordinate ever sees two parents for one child.
func randomTables(t *testing.T, rng *rand.Rand) *TableCollection {
	const L = 100.0
	tc, err := NewTableCollection(L)
	require.NoError(t, err)

	numSamples := 2 + rng.Intn(6)
	numInternal := 1 + rng.Intn(6)
	for i := 0; i < numSamples; i++ {
		_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
		require.NoError(t, err)
	}
	for i := 0; i < numInternal; i++ {
		_, err = tc.AddNode(0, float64(i+1), NullPopulation, NullIndividual)
		require.NoError(t, err)
	}

	olderThan := func(u NodeID) []NodeID {
		var out []NodeID
		for i := numSamples; i < numSamples+numInternal; i++ {
			if tc.Nodes().Time(NodeID(i)) > tc.Nodes().Time(u) {
				out = append(out, NodeID(i))
			}
		}
		return out
	}

	total := numSamples + numInternal
	for u := 0; u < total; u++ {
		candidates := olderThan(NodeID(u))
		if len(candidates) == 0 {
			continue
		}
		// Random partition of [0, L); each segment may be left uncovered.
		cuts := []float64{0}
		for x := float64(rng.Intn(20) + 1); x < L; x += float64(rng.Intn(20) + 1) {
			cuts = append(cuts, x)
		}
		cuts = append(cuts, L)
		for i := 0; i+1 < len(cuts); i++ {
			if rng.Intn(4) == 0 {
				continue
			}
			p := candidates[rng.Intn(len(candidates))]
			_, err = tc.AddEdge(cuts[i], cuts[i+1], p, NodeID(u))
			require.NoError(t, err)
		}
	}
	return tc
}

// parentAt recomputes a node's parent at coordinate x by scanning every
// edge, serving as the oracle for the incremental iterator.
func parentAt(tc *TableCollection, x float64, u NodeID) NodeID {
	e := tc.Edges()
	for i := 0; i < e.NumRows(); i++ {
		if e.Child(EdgeID(i)) == u && e.Left(EdgeID(i)) <= x && x < e.Right(EdgeID(i)) {
			return e.Parent(EdgeID(i))
		}
	}
	return NullNode
}

func TestTreeIteratorRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(20230601))
	for trial := 0; trial < 50; trial++ {
		tc := randomTables(t, rng)
		ts, err := tc.Seal()
		require.NoError(t, err)
		tables := ts.Tables()

		// Forward sweep: intervals partition [0, L) and match breakpoints,
		// and every parent pointer agrees with the brute-force oracle.
		bps := ts.Breakpoints()
		it := ts.Trees()
		tree := it.Tree()
		idx := 0
		for it.Next() {
			left, right := tree.Interval()
			require.Equal(t, bps[idx], left, "trial %d tree %d", trial, idx)
			require.Equal(t, bps[idx+1], right, "trial %d tree %d", trial, idx)
			mid := (left + right) / 2
			for u := 0; u < ts.NumNodes(); u++ {
				require.Equal(t, parentAt(tables, mid, NodeID(u)), tree.Parent(NodeID(u)),
					"trial %d tree %d node %d", trial, idx, u)
			}
			// Sample counts at the roots account for every sample.
			total := 0
			for _, r := range tree.Roots() {
				total += tree.NumTrackedSamples(r)
			}
			require.Equal(t, ts.NumSamples(), total, "trial %d tree %d", trial, idx)
			idx++
		}
		require.Equal(t, ts.NumTrees(), idx, "trial %d", trial)

		// Backward sweep visits the same trees in reverse.
		idx = ts.NumTrees() - 1
		for it.Prev() {
			left, right := tree.Interval()
			require.Equal(t, bps[idx], left, "trial %d tree %d", trial, idx)
			require.Equal(t, bps[idx+1], right, "trial %d tree %d", trial, idx)
			mid := (left + right) / 2
			for u := 0; u < ts.NumNodes(); u++ {
				require.Equal(t, parentAt(tables, mid, NodeID(u)), tree.Parent(NodeID(u)),
					"trial %d tree %d node %d", trial, idx, u)
			}
			idx--
		}
		require.Equal(t, -1, idx, "trial %d", trial)
	}
}

func TestTreeIteratorRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		tc := randomTables(t, rng)
		ts, err := tc.Seal()
		require.NoError(t, err)
		tables := ts.Tables()

		it := ts.Trees()
		tree := it.Tree()
		require.True(t, it.Next())
		for step := 0; step < 200; step++ {
			if rng.Intn(2) == 0 {
				if !it.Next() {
					require.True(t, it.Next()) // restart from the left
				}
			} else {
				if !it.Prev() {
					require.True(t, it.Prev()) // restart from the right
				}
			}
			left, right := tree.Interval()
			mid := (left + right) / 2
			for u := 0; u < ts.NumNodes(); u++ {
				require.Equal(t, parentAt(tables, mid, NodeID(u)), tree.Parent(NodeID(u)),
					"trial %d step %d node %d in [%v, %v)", trial, step, u, left, right)
			}
		}
	}
}
