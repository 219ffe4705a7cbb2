// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "print summary statistics for a tree sequence file",
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

		fmt.Printf("sequence length: %v\n", ts.SequenceLength())
		fmt.Printf("trees: %d\n", ts.NumTrees())
		fmt.Printf("samples: %d\n", ts.NumSamples())
		fmt.Println()

		tbl := tablewriter.NewWriter(os.Stdout)
		tbl.SetHeader([]string{"Table", "Rows"})
		for _, r := range []struct {
			name string
			rows int
		}{
			{"nodes", tc.Nodes().NumRows()},
			{"edges", tc.Edges().NumRows()},
			{"sites", tc.Sites().NumRows()},
			{"mutations", tc.Mutations().NumRows()},
			{"migrations", tc.Migrations().NumRows()},
			{"populations", tc.Populations().NumRows()},
			{"individuals", tc.Individuals().NumRows()},
			{"provenances", tc.Provenances().NumRows()},
		} {
			tbl.Append([]string{r.name, fmt.Sprintf("%d", r.rows)})
		}
		tbl.Render()
		return nil
	},
}
