// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"math"
	"sort"
	"time"

	"github.com/popgen-dev/treeseq/internal/base"
)

// TableCollection owns the columnar tables of a tree sequence and enforces
// per-row referential and type constraints as rows are appended. Malformed
// input fails fast at append time with a specific error kind; this localizes
// error causes instead of deferring them to seal time. The exception is
// reference checking, which moves to seal time when the collection is
// created with DeferReferenceChecks.
//
// A collection is mutable (append/sort/clear) until it is sealed into a
// TreeSequence. Sealing takes a private copy, so mutating the collection
// afterwards is not observable through the sequence.
//
// A TableCollection is not safe for concurrent use.
type TableCollection struct {
	sequenceLength float64
	opts           CollectionOptions

	nodes       NodeTable
	edges       EdgeTable
	sites       SiteTable
	mutations   MutationTable
	migrations  MigrationTable
	populations PopulationTable
	individuals IndividualTable
	provenances ProvenanceTable
}

// NewTableCollection returns an empty collection for a genome of the given
// length. The length must be finite and positive.
func NewTableCollection(sequenceLength float64) (*TableCollection, error) {
	return NewTableCollectionWithOptions(sequenceLength, CollectionOptions{})
}

// NewTableCollectionWithOptions is like NewTableCollection with explicit
// options.
func NewTableCollectionWithOptions(
	sequenceLength float64, opts CollectionOptions,
) (*TableCollection, error) {
	if math.IsNaN(sequenceLength) || math.IsInf(sequenceLength, 0) || sequenceLength <= 0 {
		return nil, base.InvalidValueErrorf(
			"sequence length must be finite and positive, got %v", sequenceLength)
	}
	return &TableCollection{
		sequenceLength: sequenceLength,
		opts:           opts.ensureDefaults(),
	}, nil
}

// SequenceLength returns the genome upper bound.
func (tc *TableCollection) SequenceLength() float64 { return tc.sequenceLength }

// Nodes returns the node table.
func (tc *TableCollection) Nodes() *NodeTable { return &tc.nodes }

// Edges returns the edge table.
func (tc *TableCollection) Edges() *EdgeTable { return &tc.edges }

// Sites returns the site table.
func (tc *TableCollection) Sites() *SiteTable { return &tc.sites }

// Mutations returns the mutation table.
func (tc *TableCollection) Mutations() *MutationTable { return &tc.mutations }

// Migrations returns the migration table.
func (tc *TableCollection) Migrations() *MigrationTable { return &tc.migrations }

// Populations returns the population table.
func (tc *TableCollection) Populations() *PopulationTable { return &tc.populations }

// Individuals returns the individual table.
func (tc *TableCollection) Individuals() *IndividualTable { return &tc.individuals }

// Provenances returns the provenance table.
func (tc *TableCollection) Provenances() *ProvenanceTable { return &tc.provenances }

// AddNode appends a node row. Time must be finite and non-negative.
// Population and individual may be null.
func (tc *TableCollection) AddNode(
	flags NodeFlags, time float64, population PopulationID, individual IndividualID,
) (NodeID, error) {
	return tc.AddNodeWithMetadata(flags, time, population, individual, nil)
}

// AddNodeWithMetadata is AddNode with an opaque metadata payload, stored
// byte-exactly.
func (tc *TableCollection) AddNodeWithMetadata(
	flags NodeFlags, time float64, population PopulationID, individual IndividualID, md []byte,
) (NodeID, error) {
	if math.IsNaN(time) || math.IsInf(time, 0) || time < 0 {
		return NullNode, base.InvalidValueErrorf(
			"nodes[%d]: time must be finite and non-negative, got %v", tc.nodes.NumRows(), time)
	}
	if !tc.opts.DeferReferenceChecks {
		if err := tc.checkPopulationRef("nodes", tc.nodes.NumRows(), population); err != nil {
			return NullNode, err
		}
		if err := tc.checkIndividualRef("nodes", tc.nodes.NumRows(), individual); err != nil {
			return NullNode, err
		}
	}
	return tc.nodes.append(flags, time, population, individual, md), nil
}

// AddEdge appends an edge row asserting that parent is the parent of child
// over [left, right). It fails with ErrInvalidInterval when left >= right or
// the interval leaves the genome bounds, with ErrOutOfBounds on a dangling
// node reference, and with ErrTimeOrderViolation when the parent is not
// strictly older than the child.
func (tc *TableCollection) AddEdge(left, right float64, parent, child NodeID) (EdgeID, error) {
	return tc.AddEdgeWithMetadata(left, right, parent, child, nil)
}

// AddEdgeWithMetadata is AddEdge with an opaque metadata payload.
func (tc *TableCollection) AddEdgeWithMetadata(
	left, right float64, parent, child NodeID, md []byte,
) (EdgeID, error) {
	row := tc.edges.NumRows()
	if err := tc.checkInterval("edges", row, left, right); err != nil {
		return NullEdge, err
	}
	if !tc.opts.DeferReferenceChecks {
		if err := tc.checkNodeRef("edges", row, parent, false /* allowNull */); err != nil {
			return NullEdge, err
		}
		if err := tc.checkNodeRef("edges", row, child, false /* allowNull */); err != nil {
			return NullEdge, err
		}
		if tc.nodes.Time(parent) <= tc.nodes.Time(child) {
			return NullEdge, base.TimeOrderErrorf(
				"edges[%d]: parent %s (time %v) not strictly older than child %s (time %v)",
				row, parent, tc.nodes.Time(parent), child, tc.nodes.Time(child))
		}
	}
	return tc.edges.append(left, right, parent, child, md), nil
}

// AddSite appends a site row. The position must lie in [0, sequenceLength).
func (tc *TableCollection) AddSite(position float64, ancestralState []byte) (SiteID, error) {
	return tc.AddSiteWithMetadata(position, ancestralState, nil)
}

// AddSiteWithMetadata is AddSite with an opaque metadata payload.
func (tc *TableCollection) AddSiteWithMetadata(
	position float64, ancestralState, md []byte,
) (SiteID, error) {
	row := tc.sites.NumRows()
	if math.IsNaN(position) || position < 0 || position >= tc.sequenceLength {
		return NullSite, base.InvalidIntervalErrorf(
			"sites[%d]: position %v outside [0, %v)", row, position, tc.sequenceLength)
	}
	return tc.sites.append(position, ancestralState, md), nil
}

// AddMutation appends a mutation row. The parent, if not null, must
// reference an earlier mutation at the same site. Time may be UnknownTime.
func (tc *TableCollection) AddMutation(
	site SiteID, node NodeID, parent MutationID, time float64, derivedState []byte,
) (MutationID, error) {
	return tc.AddMutationWithMetadata(site, node, parent, time, derivedState, nil)
}

// AddMutationWithMetadata is AddMutation with an opaque metadata payload.
func (tc *TableCollection) AddMutationWithMetadata(
	site SiteID, node NodeID, parent MutationID, time float64, derivedState, md []byte,
) (MutationID, error) {
	row := tc.mutations.NumRows()
	if math.IsInf(time, 0) {
		return NullMutation, base.InvalidValueErrorf(
			"mutations[%d]: time must be finite or UnknownTime, got %v", row, time)
	}
	if !tc.opts.DeferReferenceChecks {
		if site < 0 || int(site) >= tc.sites.NumRows() {
			return NullMutation, base.OutOfBoundsErrorf(
				"mutations[%d]: site %s does not exist (%d sites)", row, site, tc.sites.NumRows())
		}
		if err := tc.checkNodeRef("mutations", row, node, false /* allowNull */); err != nil {
			return NullMutation, err
		}
		if !parent.IsNull() {
			if parent < 0 || int(parent) >= row {
				return NullMutation, base.OutOfBoundsErrorf(
					"mutations[%d]: parent %s is not an earlier mutation", row, parent)
			}
			if tc.mutations.Site(parent) != site {
				return NullMutation, base.OutOfBoundsErrorf(
					"mutations[%d]: parent %s is at site %s, not %s",
					row, parent, tc.mutations.Site(parent), site)
			}
		}
	}
	return tc.mutations.append(site, node, parent, time, derivedState, md), nil
}

// AddMigration appends a migration row.
func (tc *TableCollection) AddMigration(
	left, right float64, node NodeID, source, dest PopulationID, time float64,
) (MigrationID, error) {
	return tc.AddMigrationWithMetadata(left, right, node, source, dest, time, nil)
}

// AddMigrationWithMetadata is AddMigration with an opaque metadata payload.
func (tc *TableCollection) AddMigrationWithMetadata(
	left, right float64, node NodeID, source, dest PopulationID, time float64, md []byte,
) (MigrationID, error) {
	row := tc.migrations.NumRows()
	if err := tc.checkInterval("migrations", row, left, right); err != nil {
		return NullMigration, err
	}
	if math.IsNaN(time) || math.IsInf(time, 0) {
		return NullMigration, base.InvalidValueErrorf(
			"migrations[%d]: time must be finite, got %v", row, time)
	}
	if !tc.opts.DeferReferenceChecks {
		if err := tc.checkNodeRef("migrations", row, node, false /* allowNull */); err != nil {
			return NullMigration, err
		}
		if err := tc.checkPopulationRef("migrations", row, source); err != nil {
			return NullMigration, err
		}
		if err := tc.checkPopulationRef("migrations", row, dest); err != nil {
			return NullMigration, err
		}
	}
	return tc.migrations.append(left, right, node, source, dest, time, md), nil
}

// AddPopulation appends a population row.
func (tc *TableCollection) AddPopulation() (PopulationID, error) {
	return tc.AddPopulationWithMetadata(nil)
}

// AddPopulationWithMetadata is AddPopulation with an opaque metadata
// payload.
func (tc *TableCollection) AddPopulationWithMetadata(md []byte) (PopulationID, error) {
	return tc.populations.append(md), nil
}

// AddIndividual appends an individual row. Parent ids, when present, are
// weak back-references; cycle safety is the caller's responsibility.
func (tc *TableCollection) AddIndividual(
	flags IndividualFlags, location []float64, parents []IndividualID,
) (IndividualID, error) {
	return tc.AddIndividualWithMetadata(flags, location, parents, nil)
}

// AddIndividualWithMetadata is AddIndividual with an opaque metadata
// payload.
func (tc *TableCollection) AddIndividualWithMetadata(
	flags IndividualFlags, location []float64, parents []IndividualID, md []byte,
) (IndividualID, error) {
	row := tc.individuals.NumRows()
	if !tc.opts.DeferReferenceChecks {
		for _, p := range parents {
			if !p.IsNull() && (p < 0 || int(p) >= tc.individuals.NumRows()) {
				return NullIndividual, base.OutOfBoundsErrorf(
					"individuals[%d]: parent individual %d does not exist (%d individuals)",
					row, int32(p), tc.individuals.NumRows())
			}
		}
	}
	return tc.individuals.append(flags, location, parents, md), nil
}

// AddProvenance appends a provenance entry recording how the data was
// produced, timestamped with the current time in RFC 3339 format. Empty
// records are rejected.
func (tc *TableCollection) AddProvenance(record string) (ProvenanceID, error) {
	return tc.AddProvenanceRow(time.Now().Format(time.RFC3339), record)
}

// AddProvenanceRow appends a provenance entry with an explicit timestamp.
// It exists for deserializers and replication; most callers want
// AddProvenance.
func (tc *TableCollection) AddProvenanceRow(timestamp, record string) (ProvenanceID, error) {
	if record == "" {
		return NullProvenance, base.InvalidValueErrorf(
			"provenances[%d]: record must be non-empty", tc.provenances.NumRows())
	}
	return tc.provenances.append(timestamp, record), nil
}

// Sort reorders edges by the canonical key (parent time ascending, parent
// id, child id, left), sites by position, and mutations grouped by their
// site's new order with the within-site order preserved so parents still
// precede children. Row ids change: callers must not cache EdgeIDs, SiteIDs
// or MutationIDs across a sort. Mutation site and parent references are
// remapped automatically.
//
// In deferred-reference mode rows may reference ids that do not exist yet.
// Sort orders such rows after all resolvable ones, keeping their reference
// values intact; they are validated at seal like every other deferred check.
func (tc *TableCollection) Sort() {
	tc.sortEdges()
	tc.sortSites()
}

func (tc *TableCollection) sortEdges() {
	n := tc.edges.NumRows()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	e := &tc.edges
	nodes := &tc.nodes
	// A dangling parent has no time yet; treat it as infinitely old so the
	// comparator never indexes past the node table.
	timeOf := func(u NodeID) float64 {
		if u < 0 || int(u) >= nodes.NumRows() {
			return math.Inf(1)
		}
		return nodes.Time(u)
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ea, eb := EdgeID(perm[a]), EdgeID(perm[b])
		ta, tb := timeOf(e.Parent(ea)), timeOf(e.Parent(eb))
		if ta != tb {
			return ta < tb
		}
		if e.Parent(ea) != e.Parent(eb) {
			return e.Parent(ea) < e.Parent(eb)
		}
		if e.Child(ea) != e.Child(eb) {
			return e.Child(ea) < e.Child(eb)
		}
		return e.Left(ea) < e.Left(eb)
	})
	tc.edges.permute(perm)
}

func (tc *TableCollection) sortSites() {
	ns := tc.sites.NumRows()
	sperm := make([]int, ns)
	for i := range sperm {
		sperm[i] = i
	}
	sort.SliceStable(sperm, func(a, b int) bool {
		return tc.sites.position[sperm[a]] < tc.sites.position[sperm[b]]
	})
	siteOldToNew := make([]SiteID, ns)
	for newID, old := range sperm {
		siteOldToNew[old] = SiteID(newID)
	}
	tc.sites.permute(sperm)

	// Regroup mutations by the new site order. The sort is stable, so the
	// within-site order is unchanged and parents keep preceding children.
	// Dangling site ids (deferred-reference mode) group after every known
	// site and keep their value.
	nm := tc.mutations.NumRows()
	siteRank := func(s SiteID) int {
		if s < 0 || int(s) >= ns {
			return ns
		}
		return int(siteOldToNew[s])
	}
	mperm := make([]int, nm)
	for i := range mperm {
		mperm[i] = i
	}
	sort.SliceStable(mperm, func(a, b int) bool {
		return siteRank(tc.mutations.site[mperm[a]]) < siteRank(tc.mutations.site[mperm[b]])
	})
	mutOldToNew := make([]MutationID, nm)
	for newID, old := range mperm {
		mutOldToNew[old] = MutationID(newID)
	}
	m := &tc.mutations
	m.site = permuteSlice(m.site, mperm)
	m.node = permuteSlice(m.node, mperm)
	m.parent = permuteSlice(m.parent, mperm)
	m.time = permuteSlice(m.time, mperm)
	m.derivedState.Permute(mperm)
	m.metadata.Permute(mperm)
	for i := range m.site {
		if s := m.site[i]; s >= 0 && int(s) < ns {
			m.site[i] = siteOldToNew[s]
		}
		if p := m.parent[i]; p >= 0 && int(p) < nm {
			m.parent[i] = mutOldToNew[p]
		}
	}
}

// Clear empties all tables, preserving the sequence length and options.
func (tc *TableCollection) Clear() {
	tc.nodes.clear()
	tc.edges.clear()
	tc.sites.clear()
	tc.mutations.clear()
	tc.migrations.clear()
	tc.populations.clear()
	tc.individuals.clear()
	tc.provenances.clear()
}

// Equals reports structural equality with the given options. Collection
// options do not participate.
func (tc *TableCollection) Equals(other *TableCollection, opts EqualsOptions) bool {
	return tc.sequenceLength == other.sequenceLength &&
		tc.nodes.equal(&other.nodes, opts) &&
		tc.edges.equal(&other.edges, opts) &&
		tc.sites.equal(&other.sites, opts) &&
		tc.mutations.equal(&other.mutations, opts) &&
		tc.migrations.equal(&other.migrations, opts) &&
		tc.populations.equal(&other.populations, opts) &&
		tc.individuals.equal(&other.individuals, opts) &&
		tc.provenances.equal(&other.provenances, opts)
}

// Copy returns a deep copy of the collection.
func (tc *TableCollection) Copy() *TableCollection {
	return &TableCollection{
		sequenceLength: tc.sequenceLength,
		opts:           tc.opts,
		nodes:          tc.nodes.clone(),
		edges:          tc.edges.clone(),
		sites:          tc.sites.clone(),
		mutations:      tc.mutations.clone(),
		migrations:     tc.migrations.clone(),
		populations:    tc.populations.clone(),
		individuals:    tc.individuals.clone(),
		provenances:    tc.provenances.clone(),
	}
}

func (tc *TableCollection) checkInterval(table string, row int, left, right float64) error {
	if math.IsNaN(left) || math.IsNaN(right) || math.IsInf(left, 0) || math.IsInf(right, 0) {
		return base.InvalidIntervalErrorf(
			"%s[%d]: interval [%v, %v) must be finite", table, row, left, right)
	}
	if left >= right {
		return base.InvalidIntervalErrorf(
			"%s[%d]: interval [%v, %v) is empty or inverted", table, row, left, right)
	}
	if left < 0 || right > tc.sequenceLength {
		return base.InvalidIntervalErrorf(
			"%s[%d]: interval [%v, %v) outside genome bounds [0, %v)",
			table, row, left, right, tc.sequenceLength)
	}
	return nil
}

func (tc *TableCollection) checkNodeRef(table string, row int, u NodeID, allowNull bool) error {
	if u.IsNull() {
		if allowNull {
			return nil
		}
		return base.OutOfBoundsErrorf("%s[%d]: node reference must not be null", table, row)
	}
	if int(u) >= tc.nodes.NumRows() || u < 0 {
		return base.OutOfBoundsErrorf(
			"%s[%d]: node %s does not exist (%d nodes)", table, row, u, tc.nodes.NumRows())
	}
	return nil
}

func (tc *TableCollection) checkPopulationRef(table string, row int, p PopulationID) error {
	if p.IsNull() {
		return nil
	}
	if int(p) >= tc.populations.NumRows() || p < 0 {
		return base.OutOfBoundsErrorf(
			"%s[%d]: population %d does not exist (%d populations)",
			table, row, int32(p), tc.populations.NumRows())
	}
	return nil
}

func (tc *TableCollection) checkIndividualRef(table string, row int, i IndividualID) error {
	if i.IsNull() {
		return nil
	}
	if int(i) >= tc.individuals.NumRows() || i < 0 {
		return base.OutOfBoundsErrorf(
			"%s[%d]: individual %d does not exist (%d individuals)",
			table, row, int32(i), tc.individuals.NumRows())
	}
	return nil
}
