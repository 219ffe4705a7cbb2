// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"math"
	"slices"

	"github.com/popgen-dev/treeseq/internal/base"
	"github.com/popgen-dev/treeseq/internal/ragged"
)

// Tables are columnar: row i is the tuple of element i across the table's
// columns. Metadata columns store caller-supplied bytes verbatim with no
// framing; interpretation belongs to a codec layer above the tables. Rows
// are appended through the owning TableCollection, which performs all
// validation; the table types expose the read side.

// NodeTable holds one row per node: flags, birth time, and optional
// population and individual references.
type NodeTable struct {
	flags      []base.NodeFlags
	time       []float64
	population []base.PopulationID
	individual []base.IndividualID
	metadata   ragged.Bytes
	schema     string
}

// NumRows returns the number of nodes.
func (t *NodeTable) NumRows() int { return len(t.time) }

// Flags returns the flags of node u.
func (t *NodeTable) Flags(u NodeID) NodeFlags { return t.flags[u] }

// Time returns the birth time of node u.
func (t *NodeTable) Time(u NodeID) float64 { return t.time[u] }

// Population returns the population of node u, or NullPopulation.
func (t *NodeTable) Population(u NodeID) PopulationID { return t.population[u] }

// Individual returns the individual of node u, or NullIndividual.
func (t *NodeTable) Individual(u NodeID) IndividualID { return t.individual[u] }

// IsSample reports whether node u carries the sample flag.
func (t *NodeTable) IsSample(u NodeID) bool { return t.flags[u].IsSample() }

// Metadata returns the metadata bytes of node u. The result aliases table
// storage and must not be mutated.
func (t *NodeTable) Metadata(u NodeID) []byte { return t.metadata.At(int(u)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
// The core stores the string without interpreting it.
func (t *NodeTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *NodeTable) MetadataSchema() string { return t.schema }

func (t *NodeTable) append(
	flags NodeFlags, time float64, population PopulationID, individual IndividualID, md []byte,
) NodeID {
	t.flags = append(t.flags, flags)
	t.time = append(t.time, time)
	t.population = append(t.population, population)
	t.individual = append(t.individual, individual)
	t.metadata.Append(md)
	return NodeID(len(t.time) - 1)
}

func (t *NodeTable) clear() {
	t.flags = t.flags[:0]
	t.time = t.time[:0]
	t.population = t.population[:0]
	t.individual = t.individual[:0]
	t.metadata.Clear()
}

func (t *NodeTable) clone() NodeTable {
	return NodeTable{
		flags:      slices.Clone(t.flags),
		time:       slices.Clone(t.time),
		population: slices.Clone(t.population),
		individual: slices.Clone(t.individual),
		metadata:   t.metadata.Clone(),
		schema:     t.schema,
	}
}

func (t *NodeTable) equal(other *NodeTable, opts EqualsOptions) bool {
	if !slices.Equal(t.flags, other.flags) ||
		!floatsEqual(t.time, other.time) ||
		!slices.Equal(t.population, other.population) ||
		!slices.Equal(t.individual, other.individual) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// EdgeTable holds one row per edge: a parent/child relationship valid over
// the half-open genome interval [left, right).
type EdgeTable struct {
	left     []float64
	right    []float64
	parent   []base.NodeID
	child    []base.NodeID
	metadata ragged.Bytes
	schema   string
}

// NumRows returns the number of edges.
func (t *EdgeTable) NumRows() int { return len(t.left) }

// Left returns the left coordinate of edge e.
func (t *EdgeTable) Left(e EdgeID) float64 { return t.left[e] }

// Right returns the right coordinate of edge e.
func (t *EdgeTable) Right(e EdgeID) float64 { return t.right[e] }

// Parent returns the parent node of edge e.
func (t *EdgeTable) Parent(e EdgeID) NodeID { return t.parent[e] }

// Child returns the child node of edge e.
func (t *EdgeTable) Child(e EdgeID) NodeID { return t.child[e] }

// Metadata returns the metadata bytes of edge e. The result aliases table
// storage and must not be mutated.
func (t *EdgeTable) Metadata(e EdgeID) []byte { return t.metadata.At(int(e)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *EdgeTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *EdgeTable) MetadataSchema() string { return t.schema }

func (t *EdgeTable) append(left, right float64, parent, child NodeID, md []byte) EdgeID {
	t.left = append(t.left, left)
	t.right = append(t.right, right)
	t.parent = append(t.parent, parent)
	t.child = append(t.child, child)
	t.metadata.Append(md)
	return EdgeID(len(t.left) - 1)
}

func (t *EdgeTable) clear() {
	t.left = t.left[:0]
	t.right = t.right[:0]
	t.parent = t.parent[:0]
	t.child = t.child[:0]
	t.metadata.Clear()
}

func (t *EdgeTable) clone() EdgeTable {
	return EdgeTable{
		left:     slices.Clone(t.left),
		right:    slices.Clone(t.right),
		parent:   slices.Clone(t.parent),
		child:    slices.Clone(t.child),
		metadata: t.metadata.Clone(),
		schema:   t.schema,
	}
}

func (t *EdgeTable) equal(other *EdgeTable, opts EqualsOptions) bool {
	if !floatsEqual(t.left, other.left) ||
		!floatsEqual(t.right, other.right) ||
		!slices.Equal(t.parent, other.parent) ||
		!slices.Equal(t.child, other.child) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// permute reorders the table so that new row i holds old row perm[i].
func (t *EdgeTable) permute(perm []int) {
	t.left = permuteSlice(t.left, perm)
	t.right = permuteSlice(t.right, perm)
	t.parent = permuteSlice(t.parent, perm)
	t.child = permuteSlice(t.child, perm)
	t.metadata.Permute(perm)
}

// SiteTable holds one row per site: a genome position and its ancestral
// state.
type SiteTable struct {
	position       []float64
	ancestralState ragged.Bytes
	metadata       ragged.Bytes
	schema         string
}

// NumRows returns the number of sites.
func (t *SiteTable) NumRows() int { return len(t.position) }

// Position returns the genome coordinate of site s.
func (t *SiteTable) Position(s SiteID) float64 { return t.position[s] }

// AncestralState returns the ancestral state bytes of site s. The result
// aliases table storage and must not be mutated.
func (t *SiteTable) AncestralState(s SiteID) []byte { return t.ancestralState.At(int(s)) }

// Metadata returns the metadata bytes of site s. The result aliases table
// storage and must not be mutated.
func (t *SiteTable) Metadata(s SiteID) []byte { return t.metadata.At(int(s)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *SiteTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *SiteTable) MetadataSchema() string { return t.schema }

func (t *SiteTable) append(position float64, ancestralState, md []byte) SiteID {
	t.position = append(t.position, position)
	t.ancestralState.Append(ancestralState)
	t.metadata.Append(md)
	return SiteID(len(t.position) - 1)
}

func (t *SiteTable) clear() {
	t.position = t.position[:0]
	t.ancestralState.Clear()
	t.metadata.Clear()
}

func (t *SiteTable) clone() SiteTable {
	return SiteTable{
		position:       slices.Clone(t.position),
		ancestralState: t.ancestralState.Clone(),
		metadata:       t.metadata.Clone(),
		schema:         t.schema,
	}
}

func (t *SiteTable) equal(other *SiteTable, opts EqualsOptions) bool {
	if !floatsEqual(t.position, other.position) ||
		!t.ancestralState.Equal(&other.ancestralState) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

func (t *SiteTable) permute(perm []int) {
	t.position = permuteSlice(t.position, perm)
	t.ancestralState.Permute(perm)
	t.metadata.Permute(perm)
}

// MutationTable holds one row per mutation: the site and node it occurs at,
// the derived state, and an optional parent mutation forming a mutation tree
// per site. The time column uses UnknownTime when unset.
type MutationTable struct {
	site         []base.SiteID
	node         []base.NodeID
	parent       []base.MutationID
	time         []float64
	derivedState ragged.Bytes
	metadata     ragged.Bytes
	schema       string
}

// NumRows returns the number of mutations.
func (t *MutationTable) NumRows() int { return len(t.site) }

// Site returns the site of mutation m.
func (t *MutationTable) Site(m MutationID) SiteID { return t.site[m] }

// Node returns the node of mutation m.
func (t *MutationTable) Node(m MutationID) NodeID { return t.node[m] }

// Parent returns the parent mutation of m, or NullMutation.
func (t *MutationTable) Parent(m MutationID) MutationID { return t.parent[m] }

// Time returns the time of mutation m, or UnknownTime.
func (t *MutationTable) Time(m MutationID) float64 { return t.time[m] }

// DerivedState returns the derived state bytes of mutation m. The result
// aliases table storage and must not be mutated.
func (t *MutationTable) DerivedState(m MutationID) []byte { return t.derivedState.At(int(m)) }

// Metadata returns the metadata bytes of mutation m. The result aliases
// table storage and must not be mutated.
func (t *MutationTable) Metadata(m MutationID) []byte { return t.metadata.At(int(m)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *MutationTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *MutationTable) MetadataSchema() string { return t.schema }

func (t *MutationTable) append(
	site SiteID, node NodeID, parent MutationID, time float64, derivedState, md []byte,
) MutationID {
	t.site = append(t.site, site)
	t.node = append(t.node, node)
	t.parent = append(t.parent, parent)
	t.time = append(t.time, time)
	t.derivedState.Append(derivedState)
	t.metadata.Append(md)
	return MutationID(len(t.site) - 1)
}

func (t *MutationTable) clear() {
	t.site = t.site[:0]
	t.node = t.node[:0]
	t.parent = t.parent[:0]
	t.time = t.time[:0]
	t.derivedState.Clear()
	t.metadata.Clear()
}

func (t *MutationTable) clone() MutationTable {
	return MutationTable{
		site:         slices.Clone(t.site),
		node:         slices.Clone(t.node),
		parent:       slices.Clone(t.parent),
		time:         slices.Clone(t.time),
		derivedState: t.derivedState.Clone(),
		metadata:     t.metadata.Clone(),
		schema:       t.schema,
	}
}

func (t *MutationTable) equal(other *MutationTable, opts EqualsOptions) bool {
	if !slices.Equal(t.site, other.site) ||
		!slices.Equal(t.node, other.node) ||
		!slices.Equal(t.parent, other.parent) ||
		!floatsEqual(t.time, other.time) ||
		!t.derivedState.Equal(&other.derivedState) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// MigrationTable holds one row per migration of a node between populations
// over a genome interval.
type MigrationTable struct {
	left     []float64
	right    []float64
	node     []base.NodeID
	source   []base.PopulationID
	dest     []base.PopulationID
	time     []float64
	metadata ragged.Bytes
	schema   string
}

// NumRows returns the number of migrations.
func (t *MigrationTable) NumRows() int { return len(t.left) }

// Left returns the left coordinate of migration m.
func (t *MigrationTable) Left(m MigrationID) float64 { return t.left[m] }

// Right returns the right coordinate of migration m.
func (t *MigrationTable) Right(m MigrationID) float64 { return t.right[m] }

// Node returns the migrating node of migration m.
func (t *MigrationTable) Node(m MigrationID) NodeID { return t.node[m] }

// Source returns the source population of migration m.
func (t *MigrationTable) Source(m MigrationID) PopulationID { return t.source[m] }

// Dest returns the destination population of migration m.
func (t *MigrationTable) Dest(m MigrationID) PopulationID { return t.dest[m] }

// Time returns the time of migration m.
func (t *MigrationTable) Time(m MigrationID) float64 { return t.time[m] }

// Metadata returns the metadata bytes of migration m. The result aliases
// table storage and must not be mutated.
func (t *MigrationTable) Metadata(m MigrationID) []byte { return t.metadata.At(int(m)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *MigrationTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *MigrationTable) MetadataSchema() string { return t.schema }

func (t *MigrationTable) append(
	left, right float64, node NodeID, source, dest PopulationID, time float64, md []byte,
) MigrationID {
	t.left = append(t.left, left)
	t.right = append(t.right, right)
	t.node = append(t.node, node)
	t.source = append(t.source, source)
	t.dest = append(t.dest, dest)
	t.time = append(t.time, time)
	t.metadata.Append(md)
	return MigrationID(len(t.left) - 1)
}

func (t *MigrationTable) clear() {
	t.left = t.left[:0]
	t.right = t.right[:0]
	t.node = t.node[:0]
	t.source = t.source[:0]
	t.dest = t.dest[:0]
	t.time = t.time[:0]
	t.metadata.Clear()
}

func (t *MigrationTable) clone() MigrationTable {
	return MigrationTable{
		left:     slices.Clone(t.left),
		right:    slices.Clone(t.right),
		node:     slices.Clone(t.node),
		source:   slices.Clone(t.source),
		dest:     slices.Clone(t.dest),
		time:     slices.Clone(t.time),
		metadata: t.metadata.Clone(),
		schema:   t.schema,
	}
}

func (t *MigrationTable) equal(other *MigrationTable, opts EqualsOptions) bool {
	if !floatsEqual(t.left, other.left) ||
		!floatsEqual(t.right, other.right) ||
		!slices.Equal(t.node, other.node) ||
		!slices.Equal(t.source, other.source) ||
		!slices.Equal(t.dest, other.dest) ||
		!floatsEqual(t.time, other.time) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// PopulationTable holds one row per population. Populations carry no
// structural columns; only metadata.
type PopulationTable struct {
	metadata ragged.Bytes
	schema   string
}

// NumRows returns the number of populations.
func (t *PopulationTable) NumRows() int { return t.metadata.Len() }

// Metadata returns the metadata bytes of population p. The result aliases
// table storage and must not be mutated.
func (t *PopulationTable) Metadata(p PopulationID) []byte { return t.metadata.At(int(p)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *PopulationTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *PopulationTable) MetadataSchema() string { return t.schema }

func (t *PopulationTable) append(md []byte) PopulationID {
	t.metadata.Append(md)
	return PopulationID(t.metadata.Len() - 1)
}

func (t *PopulationTable) clear() { t.metadata.Clear() }

func (t *PopulationTable) clone() PopulationTable {
	return PopulationTable{metadata: t.metadata.Clone(), schema: t.schema}
}

func (t *PopulationTable) equal(other *PopulationTable, opts EqualsOptions) bool {
	if t.NumRows() != other.NumRows() {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// IndividualTable holds one row per individual: flags, an optional spatial
// location, and optional parent individuals. Parent links are weak
// back-references resolved through the table; an individual does not own
// its parents and no cycle checking is performed.
type IndividualTable struct {
	flags    []base.IndividualFlags
	location ragged.Seq[float64]
	parents  ragged.Seq[base.IndividualID]
	metadata ragged.Bytes
	schema   string
}

// NumRows returns the number of individuals.
func (t *IndividualTable) NumRows() int { return len(t.flags) }

// Flags returns the flags of individual i.
func (t *IndividualTable) Flags(i IndividualID) IndividualFlags { return t.flags[i] }

// Location returns the location coordinates of individual i. The result
// aliases table storage and must not be mutated.
func (t *IndividualTable) Location(i IndividualID) []float64 { return t.location.At(int(i)) }

// Parents returns the parent individuals of i. The result aliases table
// storage and must not be mutated.
func (t *IndividualTable) Parents(i IndividualID) []IndividualID { return t.parents.At(int(i)) }

// Metadata returns the metadata bytes of individual i. The result aliases
// table storage and must not be mutated.
func (t *IndividualTable) Metadata(i IndividualID) []byte { return t.metadata.At(int(i)) }

// SetMetadataSchema attaches a free-form schema descriptor to the table.
func (t *IndividualTable) SetMetadataSchema(s string) { t.schema = s }

// MetadataSchema returns the table's schema descriptor, if any.
func (t *IndividualTable) MetadataSchema() string { return t.schema }

func (t *IndividualTable) append(
	flags IndividualFlags, location []float64, parents []IndividualID, md []byte,
) IndividualID {
	t.flags = append(t.flags, flags)
	t.location.Append(location)
	t.parents.Append(parents)
	t.metadata.Append(md)
	return IndividualID(len(t.flags) - 1)
}

func (t *IndividualTable) clear() {
	t.flags = t.flags[:0]
	t.location.Clear()
	t.parents.Clear()
	t.metadata.Clear()
}

func (t *IndividualTable) clone() IndividualTable {
	return IndividualTable{
		flags:    slices.Clone(t.flags),
		location: t.location.Clone(),
		parents:  t.parents.Clone(),
		metadata: t.metadata.Clone(),
		schema:   t.schema,
	}
}

func (t *IndividualTable) equal(other *IndividualTable, opts EqualsOptions) bool {
	if !slices.Equal(t.flags, other.flags) ||
		!t.location.Equal(&other.location) ||
		!t.parents.Equal(&other.parents) {
		return false
	}
	return opts.IgnoreMetadata || (t.metadata.Equal(&other.metadata) && t.schema == other.schema)
}

// floatsEqual compares float columns treating the UnknownTime NaN sentinel
// as equal to itself, so columns with unset times compare stable.
func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

func permuteSlice[T any](s []T, perm []int) []T {
	out := make([]T, len(s))
	for i, old := range perm {
		out[i] = s[old]
	}
	return out
}
