// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"github.com/cockroachdb/errors"
)

// The error kinds of the table and tree-sequence layer. Every validation
// failure is marked with exactly one of these sentinels; callers classify
// with errors.Is. Errors constructed through the *Errorf helpers carry the
// table name, row index and offending values so bad input can be localized
// without rescanning.
var (
	// ErrInvalidInterval marks errors where left >= right, or where an
	// interval or position falls outside the genome bounds.
	ErrInvalidInterval = errors.New("treeseq: invalid interval")

	// ErrOutOfBounds marks errors where a row references an id that does
	// not exist (or does not exist yet, when forward references are
	// disallowed).
	ErrOutOfBounds = errors.New("treeseq: id out of bounds")

	// ErrTimeOrderViolation marks errors where an edge's parent is not
	// strictly older than its child, or where a mutation does not respect
	// ancestor ordering at its site.
	ErrTimeOrderViolation = errors.New("treeseq: time order violation")

	// ErrCyclicMutationParent marks errors where a mutation's ancestor
	// chain at a site revisits itself.
	ErrCyclicMutationParent = errors.New("treeseq: cyclic mutation parent")

	// ErrDuplicatePosition marks errors where two sites share a position.
	ErrDuplicatePosition = errors.New("treeseq: duplicate site position")

	// ErrMalformedEncoding marks deserialization errors: truncated input,
	// column lengths inconsistent with declared row counts, non-monotonic
	// ragged-array offsets, or checksum mismatches.
	ErrMalformedEncoding = errors.New("treeseq: malformed encoding")

	// ErrSchemaMismatch marks errors where a caller-provided metadata
	// decoder rejects a payload. The core never produces this itself; it
	// exists so codec layers above the tables agree on a kind.
	ErrSchemaMismatch = errors.New("treeseq: metadata schema mismatch")

	// ErrInvalidValue marks errors for non-finite times or coordinates and
	// other malformed scalar fields.
	ErrInvalidValue = errors.New("treeseq: invalid value")
)

// InvalidIntervalErrorf formats an error marked ErrInvalidInterval.
func InvalidIntervalErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidInterval)
}

// OutOfBoundsErrorf formats an error marked ErrOutOfBounds.
func OutOfBoundsErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrOutOfBounds)
}

// TimeOrderErrorf formats an error marked ErrTimeOrderViolation.
func TimeOrderErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTimeOrderViolation)
}

// CyclicMutationErrorf formats an error marked ErrCyclicMutationParent.
func CyclicMutationErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCyclicMutationParent)
}

// DuplicatePositionErrorf formats an error marked ErrDuplicatePosition.
func DuplicatePositionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrDuplicatePosition)
}

// MalformedEncodingErrorf formats an error marked ErrMalformedEncoding.
func MalformedEncodingErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedEncoding)
}

// SchemaMismatchErrorf formats an error marked ErrSchemaMismatch.
func SchemaMismatchErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchemaMismatch)
}

// InvalidValueErrorf formats an error marked ErrInvalidValue.
func InvalidValueErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidValue)
}
