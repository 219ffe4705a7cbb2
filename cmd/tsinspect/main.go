// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// tsinspect summarizes and dumps tree sequence files.
package main

import (
	"log"
	"os"

	"github.com/popgen-dev/treeseq"
	"github.com/popgen-dev/treeseq/tswire"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tsinspect [command] (flags)",
	Short: "tree sequence inspection tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		infoCmd,
		dumpCmd,
		treesCmd,
	)

	dumpCmd.Flags().StringVarP(
		&dumpTable, "table", "t", "nodes",
		"table to dump: nodes, edges, sites, mutations, migrations, populations, individuals, provenances")
	dumpCmd.Flags().IntVar(
		&dumpLimit, "limit", 0, "maximum number of rows to dump (0 means all)")
	treesCmd.Flags().BoolVar(
		&treesPlot, "plot", false, "plot total branch length along the genome")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readCollection loads the collection stored at path.
func readCollection(path string) (*treeseq.TableCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tswire.Read(f)
}
