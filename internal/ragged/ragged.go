// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package ragged implements variable-length columns: a concatenated data
// section plus an offsets table with one more entry than there are rows.
// Row i occupies data[offsets[i]:offsets[i+1]]. Rows are stored in their
// entirety with no framing added, so arbitrary payloads (empty, or
// containing NUL bytes) round-trip byte-exactly.
package ragged

import "slices"

// Bytes is a ragged column of byte slices.
//
// The zero value is an empty column ready for use.
type Bytes struct {
	offsets []uint64
	data    []byte
}

// Len returns the number of rows.
func (b *Bytes) Len() int {
	if len(b.offsets) == 0 {
		return 0
	}
	return len(b.offsets) - 1
}

// Append adds a row holding a copy of v.
func (b *Bytes) Append(v []byte) {
	if len(b.offsets) == 0 {
		b.offsets = append(b.offsets, 0)
	}
	b.data = append(b.data, v...)
	b.offsets = append(b.offsets, uint64(len(b.data)))
}

// At returns the i-th row. The returned slice aliases the column's storage
// and must not be mutated.
func (b *Bytes) At(i int) []byte {
	return b.data[b.offsets[i]:b.offsets[i+1]]
}

// Clear empties the column, retaining storage.
func (b *Bytes) Clear() {
	b.offsets = b.offsets[:0]
	b.data = b.data[:0]
}

// Clone returns a deep copy.
func (b *Bytes) Clone() Bytes {
	return Bytes{
		offsets: slices.Clone(b.offsets),
		data:    slices.Clone(b.data),
	}
}

// Equal reports whether two columns hold the same rows.
func (b *Bytes) Equal(other *Bytes) bool {
	if b.Len() != other.Len() {
		return false
	}
	for i := 0; i < b.Len(); i++ {
		if !slices.Equal(b.At(i), other.At(i)) {
			return false
		}
	}
	return true
}

// Permute reorders the column so that new row i holds old row perm[i].
func (b *Bytes) Permute(perm []int) {
	n := b.Len()
	if n != len(perm) {
		panic("ragged: permutation length mismatch")
	}
	var out Bytes
	for _, old := range perm {
		out.Append(b.At(old))
	}
	*b = out
}

// Seq is a ragged column of slices of a fixed-width element type, used for
// per-row sequences such as individual locations and parent id lists.
//
// The zero value is an empty column ready for use.
type Seq[T comparable] struct {
	offsets []uint64
	data    []T
}

// Len returns the number of rows.
func (s *Seq[T]) Len() int {
	if len(s.offsets) == 0 {
		return 0
	}
	return len(s.offsets) - 1
}

// Append adds a row holding a copy of v.
func (s *Seq[T]) Append(v []T) {
	if len(s.offsets) == 0 {
		s.offsets = append(s.offsets, 0)
	}
	s.data = append(s.data, v...)
	s.offsets = append(s.offsets, uint64(len(s.data)))
}

// At returns the i-th row. The returned slice aliases the column's storage
// and must not be mutated.
func (s *Seq[T]) At(i int) []T {
	return s.data[s.offsets[i]:s.offsets[i+1]]
}

// Clear empties the column, retaining storage.
func (s *Seq[T]) Clear() {
	s.offsets = s.offsets[:0]
	s.data = s.data[:0]
}

// Clone returns a deep copy.
func (s *Seq[T]) Clone() Seq[T] {
	return Seq[T]{
		offsets: slices.Clone(s.offsets),
		data:    slices.Clone(s.data),
	}
}

// Equal reports whether two columns hold the same rows.
func (s *Seq[T]) Equal(other *Seq[T]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if !slices.Equal(s.At(i), other.At(i)) {
			return false
		}
	}
	return true
}
