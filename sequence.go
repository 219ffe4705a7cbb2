// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"slices"
	"sort"

	"github.com/cockroachdb/swiss"
	"github.com/popgen-dev/treeseq/internal/base"
)

// TreeSequence is an immutable, validated view over a table collection. It
// owns a private copy of the tables plus the derived structures needed for
// iteration: the edge insertion and removal orders, the per-site mutation
// grouping, the sample node list and the tree breakpoints.
//
// A sealed sequence may be shared read-only across any number of
// TreeIterators and across goroutines; each iterator owns its own working
// state.
type TreeSequence struct {
	tables *TableCollection

	// insertion holds edge ids ordered by (left asc, parent time desc,
	// child id); removal holds edge ids ordered by (right asc, parent time
	// asc, child id). Together they partition edge changes into insertion
	// and removal events as the sweep coordinate moves forward.
	insertion []EdgeID
	removal   []EdgeID

	samples       []NodeID
	breakpoints   []float64
	siteMutations [][]MutationID
}

// Seal validates the collection and freezes it into a TreeSequence. The
// sequence takes a deep copy; mutating the collection afterwards is not
// observable through the sequence. On any violation Seal returns an error
// carrying one of the treeseq error kinds and no sequence is constructed.
func (tc *TableCollection) Seal() (*TreeSequence, error) {
	if err := tc.CheckIntegrity(); err != nil {
		return nil, err
	}
	ts := &TreeSequence{tables: tc.Copy()}
	ts.buildEdgeIndexes()
	ts.buildSampleList()
	ts.buildBreakpoints()
	ts.buildSiteMutations()
	tc.opts.Logger.Infof("treeseq: sealed %d nodes, %d edges into %d trees over [0, %v)",
		ts.NumNodes(), ts.NumEdges(), ts.NumTrees(), ts.SequenceLength())
	return ts, nil
}

// NewTreeSequence is an alias for TableCollection.Seal.
func NewTreeSequence(tc *TableCollection) (*TreeSequence, error) { return tc.Seal() }

// CheckIntegrity re-checks every cross-table invariant. Appends already
// checked most of these in strict mode; seal runs it regardless of the
// collection's reference-checking mode, so a partially valid sequence is
// never observable. Deserializers and callers of deferred-mode collections
// can run it directly.
func (tc *TableCollection) CheckIntegrity() error {
	L := tc.sequenceLength

	for i := 0; i < tc.nodes.NumRows(); i++ {
		u := NodeID(i)
		if err := tc.checkPopulationRef("nodes", i, tc.nodes.Population(u)); err != nil {
			return err
		}
		if err := tc.checkIndividualRef("nodes", i, tc.nodes.Individual(u)); err != nil {
			return err
		}
	}

	for i := 0; i < tc.edges.NumRows(); i++ {
		e := EdgeID(i)
		left, right := tc.edges.Left(e), tc.edges.Right(e)
		if left < 0 || right > L || left >= right {
			return base.InvalidIntervalErrorf(
				"edges[%d]: interval [%v, %v) invalid for genome [0, %v)", i, left, right, L)
		}
		parent, child := tc.edges.Parent(e), tc.edges.Child(e)
		if err := tc.checkNodeRef("edges", i, parent, false /* allowNull */); err != nil {
			return err
		}
		if err := tc.checkNodeRef("edges", i, child, false /* allowNull */); err != nil {
			return err
		}
		if tc.nodes.Time(parent) <= tc.nodes.Time(child) {
			return base.TimeOrderErrorf(
				"edges[%d]: parent %s (time %v) not strictly older than child %s (time %v)",
				i, parent, tc.nodes.Time(parent), child, tc.nodes.Time(child))
		}
	}

	// Site positions must be unique. The table may be unsorted, so detect
	// duplicates with a hash index rather than requiring order.
	var positions swiss.Map[float64, SiteID]
	positions.Init(tc.sites.NumRows())
	for i := 0; i < tc.sites.NumRows(); i++ {
		s := SiteID(i)
		pos := tc.sites.Position(s)
		if pos < 0 || pos >= L {
			return base.InvalidIntervalErrorf(
				"sites[%d]: position %v outside [0, %v)", i, pos, L)
		}
		if prev, ok := positions.Get(pos); ok {
			return base.DuplicatePositionErrorf(
				"sites[%d]: position %v duplicates %s", i, pos, prev)
		}
		positions.Put(pos, s)
	}

	for i := 0; i < tc.mutations.NumRows(); i++ {
		m := MutationID(i)
		site := tc.mutations.Site(m)
		if site.IsNull() || site < 0 || int(site) >= tc.sites.NumRows() {
			return base.OutOfBoundsErrorf(
				"mutations[%d]: site %s does not exist (%d sites)", i, site, tc.sites.NumRows())
		}
		if err := tc.checkNodeRef("mutations", i, tc.mutations.Node(m), false); err != nil {
			return err
		}
		parent := tc.mutations.Parent(m)
		if !parent.IsNull() {
			if parent < 0 || int(parent) >= tc.mutations.NumRows() {
				return base.OutOfBoundsErrorf(
					"mutations[%d]: parent %s does not exist", i, parent)
			}
			if parent == m {
				return base.CyclicMutationErrorf(
					"mutations[%d]: mutation is its own parent", i)
			}
			if tc.mutations.Site(parent) != site {
				return base.OutOfBoundsErrorf(
					"mutations[%d]: parent %s is at site %s, not %s",
					i, parent, tc.mutations.Site(parent), site)
			}
			if parent > m {
				return base.TimeOrderErrorf(
					"mutations[%d]: parent %s does not precede its child at site %s",
					i, parent, site)
			}
			pt, mt := tc.mutations.Time(parent), tc.mutations.Time(m)
			if !base.IsUnknownTime(pt) && !base.IsUnknownTime(mt) && pt < mt {
				return base.TimeOrderErrorf(
					"mutations[%d]: time %v exceeds parent mutation time %v", i, mt, pt)
			}
		}
		if mt := tc.mutations.Time(m); !base.IsUnknownTime(mt) {
			if nt := tc.nodes.Time(tc.mutations.Node(m)); mt < nt {
				return base.TimeOrderErrorf(
					"mutations[%d]: time %v precedes node %s time %v",
					i, mt, tc.mutations.Node(m), nt)
			}
		}
		// Parent rows precede children, so chains cannot revisit a row;
		// walking with a step bound double-checks that invariant.
		seen := 0
		for p := tc.mutations.Parent(m); !p.IsNull(); p = tc.mutations.Parent(p) {
			if seen++; seen > tc.mutations.NumRows() {
				return base.CyclicMutationErrorf(
					"mutations[%d]: parent chain does not terminate", i)
			}
		}
	}

	for i := 0; i < tc.migrations.NumRows(); i++ {
		g := MigrationID(i)
		if err := tc.checkNodeRef("migrations", i, tc.migrations.Node(g), false); err != nil {
			return err
		}
		if err := tc.checkPopulationRef("migrations", i, tc.migrations.Source(g)); err != nil {
			return err
		}
		if err := tc.checkPopulationRef("migrations", i, tc.migrations.Dest(g)); err != nil {
			return err
		}
	}

	for i := 0; i < tc.individuals.NumRows(); i++ {
		for _, p := range tc.individuals.Parents(IndividualID(i)) {
			if !p.IsNull() && (p < 0 || int(p) >= tc.individuals.NumRows()) {
				return base.OutOfBoundsErrorf(
					"individuals[%d]: parent individual %d does not exist (%d individuals)",
					i, int32(p), tc.individuals.NumRows())
			}
		}
	}

	return nil
}

func (ts *TreeSequence) buildEdgeIndexes() {
	edges := &ts.tables.edges
	nodes := &ts.tables.nodes
	n := edges.NumRows()

	ts.insertion = make([]EdgeID, n)
	ts.removal = make([]EdgeID, n)
	for i := 0; i < n; i++ {
		ts.insertion[i] = EdgeID(i)
		ts.removal[i] = EdgeID(i)
	}
	// Insertion: left ascending, ties by parent time descending so that
	// edges nearer the root attach first; child id for determinism.
	sort.SliceStable(ts.insertion, func(a, b int) bool {
		ea, eb := ts.insertion[a], ts.insertion[b]
		if edges.Left(ea) != edges.Left(eb) {
			return edges.Left(ea) < edges.Left(eb)
		}
		ta, tb := nodes.Time(edges.Parent(ea)), nodes.Time(edges.Parent(eb))
		if ta != tb {
			return ta > tb
		}
		return edges.Child(ea) < edges.Child(eb)
	})
	// Removal: right ascending, ties by parent time ascending so that
	// edges nearer the leaves detach first.
	sort.SliceStable(ts.removal, func(a, b int) bool {
		ea, eb := ts.removal[a], ts.removal[b]
		if edges.Right(ea) != edges.Right(eb) {
			return edges.Right(ea) < edges.Right(eb)
		}
		ta, tb := nodes.Time(edges.Parent(ea)), nodes.Time(edges.Parent(eb))
		if ta != tb {
			return ta < tb
		}
		return edges.Child(ea) < edges.Child(eb)
	})
}

func (ts *TreeSequence) buildSampleList() {
	for i := 0; i < ts.tables.nodes.NumRows(); i++ {
		if ts.tables.nodes.IsSample(NodeID(i)) {
			ts.samples = append(ts.samples, NodeID(i))
		}
	}
}

// buildBreakpoints collects the tree boundaries: 0, the sequence length,
// and every edge endpoint strictly inside the genome. Every interior edge
// endpoint changes the edge set, so these are exactly the tree boundaries.
func (ts *TreeSequence) buildBreakpoints() {
	L := ts.tables.sequenceLength
	edges := &ts.tables.edges
	pts := make([]float64, 0, 2*edges.NumRows()+2)
	pts = append(pts, 0, L)
	for i := 0; i < edges.NumRows(); i++ {
		if l := edges.Left(EdgeID(i)); l > 0 && l < L {
			pts = append(pts, l)
		}
		if r := edges.Right(EdgeID(i)); r > 0 && r < L {
			pts = append(pts, r)
		}
	}
	sort.Float64s(pts)
	ts.breakpoints = slices.Compact(pts)
}

// buildSiteMutations groups mutation ids by site, preserving row order so
// that each mutation's parent, if any, appears earlier in its group.
func (ts *TreeSequence) buildSiteMutations() {
	ts.siteMutations = make([][]MutationID, ts.tables.sites.NumRows())
	for i := 0; i < ts.tables.mutations.NumRows(); i++ {
		s := ts.tables.mutations.Site(MutationID(i))
		ts.siteMutations[s] = append(ts.siteMutations[s], MutationID(i))
	}
}

// SequenceLength returns the genome upper bound.
func (ts *TreeSequence) SequenceLength() float64 { return ts.tables.sequenceLength }

// NumNodes returns the number of nodes.
func (ts *TreeSequence) NumNodes() int { return ts.tables.nodes.NumRows() }

// NumEdges returns the number of edges.
func (ts *TreeSequence) NumEdges() int { return ts.tables.edges.NumRows() }

// NumSamples returns the number of sample nodes.
func (ts *TreeSequence) NumSamples() int { return len(ts.samples) }

// SampleNodes returns the sample node ids in increasing order. The result
// is a copy.
func (ts *TreeSequence) SampleNodes() []NodeID { return slices.Clone(ts.samples) }

// NumTrees returns the number of local trees along the genome.
func (ts *TreeSequence) NumTrees() int { return len(ts.breakpoints) - 1 }

// Breakpoints returns the tree boundaries: NumTrees()+1 ascending
// coordinates starting at 0 and ending at the sequence length. The result
// is a copy.
func (ts *TreeSequence) Breakpoints() []float64 { return slices.Clone(ts.breakpoints) }

// NodeTime returns the birth time of node u.
func (ts *TreeSequence) NodeTime(u NodeID) float64 { return ts.tables.nodes.Time(u) }

// NodeFlags returns the flags of node u.
func (ts *TreeSequence) NodeFlags(u NodeID) NodeFlags { return ts.tables.nodes.Flags(u) }

// IsSample reports whether node u carries the sample flag.
func (ts *TreeSequence) IsSample(u NodeID) bool { return ts.tables.nodes.IsSample(u) }

// SiteMutations returns the mutation ids at site s, ordered so that each
// mutation's parent, if any, appears earlier. The result is a copy.
func (ts *TreeSequence) SiteMutations(s SiteID) []MutationID {
	return slices.Clone(ts.siteMutations[s])
}

// EdgeInsertionOrder returns the edge ids in insertion order (left
// ascending). The result is a copy.
func (ts *TreeSequence) EdgeInsertionOrder() []EdgeID { return slices.Clone(ts.insertion) }

// EdgeRemovalOrder returns the edge ids in removal order (right ascending).
// The result is a copy.
func (ts *TreeSequence) EdgeRemovalOrder() []EdgeID { return slices.Clone(ts.removal) }

// Tables returns a deep copy of the underlying tables, suitable for further
// mutation and resealing.
func (ts *TreeSequence) Tables() *TableCollection { return ts.tables.Copy() }

// TotalSpan returns the sum of tree spans, i.e. the sequence length. It
// exists for symmetry with per-tree Span and is primarily useful in tests.
func (ts *TreeSequence) TotalSpan() float64 {
	var s float64
	for i := 0; i+1 < len(ts.breakpoints); i++ {
		s += ts.breakpoints[i+1] - ts.breakpoints[i]
	}
	return s
}
