// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// twoTreeTables builds the canonical two-tree topology: samples 0 and 1 at
// time 0, internal node 2 at time 1, edge (0,10,2,0) spanning the genome and
// edge (0,5,2,1) covering only the left half.
func twoTreeTables(t *testing.T) *TableCollection {
	tc, err := NewTableCollection(10)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
		require.NoError(t, err)
	}
	_, err = tc.AddNode(0, 1, NullPopulation, NullIndividual)
	require.NoError(t, err)
	_, err = tc.AddEdge(0, 10, 2, 0)
	require.NoError(t, err)
	_, err = tc.AddEdge(0, 5, 2, 1)
	require.NoError(t, err)
	return tc
}

func TestSeal(t *testing.T) {
	tc := twoTreeTables(t)
	ts, err := tc.Seal()
	require.NoError(t, err)

	require.Equal(t, 10.0, ts.SequenceLength())
	require.Equal(t, 3, ts.NumNodes())
	require.Equal(t, 2, ts.NumEdges())
	require.Equal(t, 2, ts.NumSamples())
	require.Equal(t, []NodeID{0, 1}, ts.SampleNodes())
	require.Equal(t, 2, ts.NumTrees())
	require.Equal(t, []float64{0, 5, 10}, ts.Breakpoints())
	require.Equal(t, ts.SequenceLength(), ts.TotalSpan())
}

func TestSealIsImmutable(t *testing.T) {
	tc := twoTreeTables(t)
	ts, err := tc.Seal()
	require.NoError(t, err)

	// Mutating the source collection afterwards is invisible.
	_, err = tc.AddNode(0, 5, NullPopulation, NullIndividual)
	require.NoError(t, err)
	tc.Clear()
	require.Equal(t, 3, ts.NumNodes())

	// Tables() hands out a copy, not the internal state.
	cp := ts.Tables()
	_, err = cp.AddNode(0, 5, NullPopulation, NullIndividual)
	require.NoError(t, err)
	require.Equal(t, 3, ts.NumNodes())

	// The copy round-trips to an equal sequence.
	ts2, err := ts.Tables().Seal()
	require.NoError(t, err)
	require.Equal(t, ts.Breakpoints(), ts2.Breakpoints())
}

type recordingLogger struct {
	buf bytes.Buffer
}

func (l *recordingLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(&l.buf, format, args...)
	l.buf.WriteByte('\n')
}

func TestSealLogging(t *testing.T) {
	var logger recordingLogger
	tc, err := NewTableCollectionWithOptions(10, CollectionOptions{Logger: &logger})
	require.NoError(t, err)
	_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
	require.NoError(t, err)
	_, err = tc.Seal()
	require.NoError(t, err)
	require.Contains(t, logger.buf.String(), "sealed 1 nodes")
}

func TestSealEmptyTables(t *testing.T) {
	tc, err := NewTableCollection(7)
	require.NoError(t, err)
	ts, err := tc.Seal()
	require.NoError(t, err)
	require.Equal(t, 1, ts.NumTrees())
	require.Equal(t, []float64{0, 7}, ts.Breakpoints())
	require.Equal(t, 0, ts.NumSamples())
}

func TestSealDuplicateSitePosition(t *testing.T) {
	tc := twoTreeTables(t)
	_, err := tc.AddSite(3, []byte("A"))
	require.NoError(t, err)
	_, err = tc.AddSite(3, []byte("C"))
	require.NoError(t, err) // append allows it; seal rejects
	_, err = tc.Seal()
	require.True(t, errors.Is(err, ErrDuplicatePosition), "%v", err)
}

func TestSealMutationTimeOrder(t *testing.T) {
	tc := twoTreeTables(t)
	s, err := tc.AddSite(3, []byte("A"))
	require.NoError(t, err)
	// Mutation on node 2 (time 1) with a time before the node's birth.
	_, err = tc.AddMutation(s, 2, NullMutation, 0.5, []byte("T"))
	require.NoError(t, err)
	_, err = tc.Seal()
	require.True(t, errors.Is(err, ErrTimeOrderViolation), "%v", err)
}

func TestSealMutationParentTimeOrder(t *testing.T) {
	tc := twoTreeTables(t)
	s, err := tc.AddSite(3, []byte("A"))
	require.NoError(t, err)
	m0, err := tc.AddMutation(s, 0, NullMutation, 0.25, []byte("T"))
	require.NoError(t, err)
	// Child mutation older than its parent.
	_, err = tc.AddMutation(s, 0, m0, 0.75, []byte("G"))
	require.NoError(t, err)
	_, err = tc.Seal()
	require.True(t, errors.Is(err, ErrTimeOrderViolation), "%v", err)
}

func TestSealDeferredMutationCycle(t *testing.T) {
	tc, err := NewTableCollectionWithOptions(10, CollectionOptions{DeferReferenceChecks: true})
	require.NoError(t, err)
	_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
	require.NoError(t, err)
	_, err = tc.AddSite(3, []byte("A"))
	require.NoError(t, err)
	// Deferred mode accepts a self-referential parent; seal names the cycle.
	_, err = tc.AddMutation(0, 0, MutationID(0), UnknownTime, []byte("T"))
	require.NoError(t, err)
	_, err = tc.Seal()
	require.True(t, errors.Is(err, ErrCyclicMutationParent), "%v", err)
}

func TestEdgeIndexOrders(t *testing.T) {
	// Three nodes stacked: 0 (sample, t=0) under 3 (t=1) under 4 (t=2),
	// with staggered intervals so insertion and removal orders differ.
	tc, err := NewTableCollection(10)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = tc.AddNode(NodeIsSample, 0, NullPopulation, NullIndividual)
		require.NoError(t, err)
	}
	_, err = tc.AddNode(0, 1, NullPopulation, NullIndividual) // node 3
	require.NoError(t, err)
	_, err = tc.AddNode(0, 2, NullPopulation, NullIndividual) // node 4
	require.NoError(t, err)

	e0, err := tc.AddEdge(0, 10, 3, 0)
	require.NoError(t, err)
	e1, err := tc.AddEdge(0, 10, 4, 3)
	require.NoError(t, err)
	e2, err := tc.AddEdge(2, 8, 3, 1)
	require.NoError(t, err)

	ts, err := tc.Seal()
	require.NoError(t, err)

	edges := ts.Tables().Edges()
	nodes := ts.Tables().Nodes()

	ins := ts.EdgeInsertionOrder()
	require.ElementsMatch(t, []EdgeID{e0, e1, e2}, ins)
	for i := 1; i < len(ins); i++ {
		la, lb := edges.Left(ins[i-1]), edges.Left(ins[i])
		require.LessOrEqual(t, la, lb)
		if la == lb {
			// Root-ward edges first on ties.
			ta := nodes.Time(edges.Parent(ins[i-1]))
			tb := nodes.Time(edges.Parent(ins[i]))
			require.GreaterOrEqual(t, ta, tb)
		}
	}

	rem := ts.EdgeRemovalOrder()
	for i := 1; i < len(rem); i++ {
		ra, rb := edges.Right(rem[i-1]), edges.Right(rem[i])
		require.LessOrEqual(t, ra, rb)
		if ra == rb {
			// Leaf-ward edges first on ties.
			ta := nodes.Time(edges.Parent(rem[i-1]))
			tb := nodes.Time(edges.Parent(rem[i]))
			require.LessOrEqual(t, ta, tb)
		}
	}

	// Interior endpoints 2 and 8 split the genome into three trees.
	require.Equal(t, []float64{0, 2, 8, 10}, ts.Breakpoints())
	require.Equal(t, 3, ts.NumTrees())
}

func TestSiteMutationGrouping(t *testing.T) {
	tc := twoTreeTables(t)
	s0, err := tc.AddSite(2, []byte("A"))
	require.NoError(t, err)
	s1, err := tc.AddSite(7, []byte("C"))
	require.NoError(t, err)
	m0, err := tc.AddMutation(s1, 0, NullMutation, UnknownTime, []byte("T"))
	require.NoError(t, err)
	m1, err := tc.AddMutation(s0, 1, NullMutation, UnknownTime, []byte("G"))
	require.NoError(t, err)
	m2, err := tc.AddMutation(s1, 0, m0, UnknownTime, []byte("A"))
	require.NoError(t, err)

	ts, err := tc.Seal()
	require.NoError(t, err)
	require.Equal(t, []MutationID{m1}, ts.SiteMutations(s0))
	require.Equal(t, []MutationID{m0, m2}, ts.SiteMutations(s1))
}
