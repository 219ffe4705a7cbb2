// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package ragged

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytes(t *testing.T) {
	var b Bytes
	require.Equal(t, 0, b.Len())

	rows := [][]byte{
		[]byte("abc"),
		{},
		[]byte("with\x00nul"),
		nil,
		[]byte("d"),
	}
	for _, r := range rows {
		b.Append(r)
	}
	require.Equal(t, len(rows), b.Len())
	for i, r := range rows {
		require.Equal(t, len(r), len(b.At(i)))
		if len(r) > 0 {
			require.Equal(t, r, b.At(i))
		}
	}

	c := b.Clone()
	require.True(t, b.Equal(&c))

	b.Permute([]int{4, 3, 2, 1, 0})
	require.Equal(t, []byte("d"), b.At(0))
	require.Equal(t, []byte("abc"), b.At(4))
	require.False(t, b.Equal(&c))

	b.Clear()
	require.Equal(t, 0, b.Len())
}

func TestSeq(t *testing.T) {
	var s Seq[float64]
	s.Append([]float64{1, 2, 3})
	s.Append(nil)
	s.Append([]float64{4})
	require.Equal(t, 3, s.Len())
	require.Equal(t, []float64{1, 2, 3}, s.At(0))
	require.Empty(t, s.At(1))
	require.Equal(t, []float64{4}, s.At(2))

	c := s.Clone()
	require.True(t, s.Equal(&c))
	s.Append([]float64{5})
	require.False(t, s.Equal(&c))
}
