// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import "math"

// NodeFlags is a bitset of per-node properties.
type NodeFlags uint32

const (
	// NodeIsSample marks a node as a sample. Sample nodes are the leaves of
	// interest during tree iteration; isolated samples still count as roots
	// of their local trees.
	NodeIsSample NodeFlags = 1 << 0
)

// IsSample reports whether the sample bit is set.
func (f NodeFlags) IsSample() bool { return f&NodeIsSample != 0 }

// IndividualFlags is a bitset of per-individual properties. No flags are
// defined by the core; the space is available to callers.
type IndividualFlags uint32

// UnknownTime is the sentinel for an unset mutation time. Comparisons
// against it are always false, so ordering checks skip unknown times.
var UnknownTime = math.NaN()

// IsUnknownTime reports whether t is the unknown-time sentinel.
func IsUnknownTime(t float64) bool { return math.IsNaN(t) }
