// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var treesPlot bool

var treesCmd = &cobra.Command{
	Use:   "trees <file>",
	Short: "list the local trees along the genome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := readCollection(args[0])
		if err != nil {
			return err
		}
		ts, err := tc.Seal()
		if err != nil {
			return err
		}

		var branchLengths []float64
		it := ts.Trees()
		for it.Next() {
			tree := it.Tree()
			left, right := tree.Interval()
			fmt.Printf("tree %d: [%v, %v) roots=%d branch-length=%v\n",
				tree.Index(), left, right, tree.NumRoots(), tree.TotalBranchLength())
			branchLengths = append(branchLengths, tree.TotalBranchLength())
		}

		if treesPlot && len(branchLengths) > 1 {
			fmt.Println()
			fmt.Println(asciigraph.Plot(branchLengths, asciigraph.Height(10)))
		}
		return nil
	},
}
