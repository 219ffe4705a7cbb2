// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// Row ids are indices into the current column arrays of the owning table
// collection. They are stable only until the collection is sorted or
// cleared; callers must not cache ids across Sort or Clear.
//
// The null sentinel is -1 for every id type.

// NodeID identifies a row of the node table.
type NodeID int32

// EdgeID identifies a row of the edge table.
type EdgeID int32

// SiteID identifies a row of the site table.
type SiteID int32

// MutationID identifies a row of the mutation table.
type MutationID int32

// MigrationID identifies a row of the migration table.
type MigrationID int32

// PopulationID identifies a row of the population table.
type PopulationID int32

// IndividualID identifies a row of the individual table.
type IndividualID int32

// ProvenanceID identifies a row of the provenance table.
type ProvenanceID int32

// Null sentinels for each id type.
const (
	NullNode       NodeID       = -1
	NullEdge       EdgeID       = -1
	NullSite       SiteID       = -1
	NullMutation   MutationID   = -1
	NullMigration  MigrationID  = -1
	NullPopulation PopulationID = -1
	NullIndividual IndividualID = -1
	NullProvenance ProvenanceID = -1
)

// IsNull reports whether the id is the null sentinel.
func (id NodeID) IsNull() bool { return id == NullNode }

// IsNull reports whether the id is the null sentinel.
func (id EdgeID) IsNull() bool { return id == NullEdge }

// IsNull reports whether the id is the null sentinel.
func (id SiteID) IsNull() bool { return id == NullSite }

// IsNull reports whether the id is the null sentinel.
func (id MutationID) IsNull() bool { return id == NullMutation }

// IsNull reports whether the id is the null sentinel.
func (id MigrationID) IsNull() bool { return id == NullMigration }

// IsNull reports whether the id is the null sentinel.
func (id PopulationID) IsNull() bool { return id == NullPopulation }

// IsNull reports whether the id is the null sentinel.
func (id IndividualID) IsNull() bool { return id == NullIndividual }

// IsNull reports whether the id is the null sentinel.
func (id ProvenanceID) IsNull() bool { return id == NullProvenance }

// String returns a string representation of the node id.
func (id NodeID) String() string { return fmt.Sprintf("n%d", int32(id)) }

// SafeFormat implements redact.SafeFormatter.
func (id NodeID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("n%d", redact.SafeInt(id))
}

// String returns a string representation of the edge id.
func (id EdgeID) String() string { return fmt.Sprintf("e%d", int32(id)) }

// SafeFormat implements redact.SafeFormatter.
func (id EdgeID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("e%d", redact.SafeInt(id))
}

// String returns a string representation of the site id.
func (id SiteID) String() string { return fmt.Sprintf("s%d", int32(id)) }

// SafeFormat implements redact.SafeFormatter.
func (id SiteID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("s%d", redact.SafeInt(id))
}

// String returns a string representation of the mutation id.
func (id MutationID) String() string { return fmt.Sprintf("m%d", int32(id)) }

// SafeFormat implements redact.SafeFormatter.
func (id MutationID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("m%d", redact.SafeInt(id))
}
