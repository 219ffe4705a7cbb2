// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import (
	"github.com/popgen-dev/treeseq/internal/ragged"
)

// ProvenanceTable is an append-only audit trail of how the data was
// produced: (timestamp, record) string pairs. It is never consulted during
// tree iteration and rows are never rewritten in place.
type ProvenanceTable struct {
	timestamp ragged.Bytes
	record    ragged.Bytes
}

// NumRows returns the number of provenance entries.
func (t *ProvenanceTable) NumRows() int { return t.record.Len() }

// Timestamp returns the timestamp string of entry p.
func (t *ProvenanceTable) Timestamp(p ProvenanceID) string {
	return string(t.timestamp.At(int(p)))
}

// Record returns the free-form record string of entry p.
func (t *ProvenanceTable) Record(p ProvenanceID) string {
	return string(t.record.At(int(p)))
}

func (t *ProvenanceTable) append(timestamp, record string) ProvenanceID {
	t.timestamp.Append([]byte(timestamp))
	t.record.Append([]byte(record))
	return ProvenanceID(t.record.Len() - 1)
}

func (t *ProvenanceTable) clear() {
	t.timestamp.Clear()
	t.record.Clear()
}

func (t *ProvenanceTable) clone() ProvenanceTable {
	return ProvenanceTable{
		timestamp: t.timestamp.Clone(),
		record:    t.record.Clone(),
	}
}

func (t *ProvenanceTable) equal(other *ProvenanceTable, opts EqualsOptions) bool {
	if opts.IgnoreProvenance {
		return true
	}
	if !t.record.Equal(&other.record) {
		return false
	}
	return opts.IgnoreTimestamps || t.timestamp.Equal(&other.timestamp)
}
