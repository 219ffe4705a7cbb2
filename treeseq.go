// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package treeseq encodes and traverses succinct tree sequences: a compact
// columnar representation of genealogical trees that change along a genome
// coordinate while sharing structure across positions.
//
// A TableCollection accumulates rows into the node, edge, site, mutation,
// migration, population, individual and provenance tables, validating
// referential and interval constraints as rows are appended. Seal freezes a
// validated collection into an immutable TreeSequence, which computes the
// edge insertion and removal orders that drive tree iteration. A
// TreeIterator then sweeps the genome, yielding each local tree by
// incrementally applying only the edges that change between adjacent trees.
//
//	tables, _ := treeseq.NewTableCollection(1000)
//	anc, _ := tables.AddNode(0, 1.0, treeseq.NullPopulation, treeseq.NullIndividual)
//	s1, _ := tables.AddNode(treeseq.NodeIsSample, 0, treeseq.NullPopulation, treeseq.NullIndividual)
//	s2, _ := tables.AddNode(treeseq.NodeIsSample, 0, treeseq.NullPopulation, treeseq.NullIndividual)
//	tables.AddEdge(0, 1000, anc, s1)
//	tables.AddEdge(0, 1000, anc, s2)
//	ts, _ := tables.Seal()
//	it := ts.Trees()
//	for it.Next() {
//		tree := it.Tree()
//		// tree is valid until the next call to Next or Prev.
//	}
package treeseq

import "github.com/popgen-dev/treeseq/internal/base"

// NodeID exports the base.NodeID type.
type NodeID = base.NodeID

// EdgeID exports the base.EdgeID type.
type EdgeID = base.EdgeID

// SiteID exports the base.SiteID type.
type SiteID = base.SiteID

// MutationID exports the base.MutationID type.
type MutationID = base.MutationID

// MigrationID exports the base.MigrationID type.
type MigrationID = base.MigrationID

// PopulationID exports the base.PopulationID type.
type PopulationID = base.PopulationID

// IndividualID exports the base.IndividualID type.
type IndividualID = base.IndividualID

// ProvenanceID exports the base.ProvenanceID type.
type ProvenanceID = base.ProvenanceID

// Null id sentinels. Row ids are indices into the current column arrays and
// are invalidated by Sort and Clear; the null sentinel is -1 throughout.
const (
	NullNode       = base.NullNode
	NullEdge       = base.NullEdge
	NullSite       = base.NullSite
	NullMutation   = base.NullMutation
	NullMigration  = base.NullMigration
	NullPopulation = base.NullPopulation
	NullIndividual = base.NullIndividual
	NullProvenance = base.NullProvenance
)

// NodeFlags exports the base.NodeFlags type.
type NodeFlags = base.NodeFlags

// NodeIsSample exports the base.NodeIsSample flag.
const NodeIsSample = base.NodeIsSample

// IndividualFlags exports the base.IndividualFlags type.
type IndividualFlags = base.IndividualFlags

// UnknownTime is the sentinel for an unset mutation time.
var UnknownTime = base.UnknownTime

// IsUnknownTime reports whether t is the unknown-time sentinel.
func IsUnknownTime(t float64) bool { return base.IsUnknownTime(t) }

// Logger exports the base.Logger type.
type Logger = base.Logger

// DefaultLogger exports the base.DefaultLogger type.
type DefaultLogger = base.DefaultLogger

// Error kinds. All validation failures are marked with exactly one of these
// sentinels; classify with errors.Is.
var (
	ErrInvalidInterval      = base.ErrInvalidInterval
	ErrOutOfBounds          = base.ErrOutOfBounds
	ErrTimeOrderViolation   = base.ErrTimeOrderViolation
	ErrCyclicMutationParent = base.ErrCyclicMutationParent
	ErrDuplicatePosition    = base.ErrDuplicatePosition
	ErrMalformedEncoding    = base.ErrMalformedEncoding
	ErrSchemaMismatch       = base.ErrSchemaMismatch
	ErrInvalidValue         = base.ErrInvalidValue
)
