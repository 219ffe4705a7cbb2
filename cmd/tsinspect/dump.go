// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"os"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/popgen-dev/treeseq"
	"github.com/spf13/cobra"
)

var (
	dumpTable string
	dumpLimit int
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "dump the rows of one table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := readCollection(args[0])
		if err != nil {
			return err
		}
		tbl := tablewriter.NewWriter(os.Stdout)
		switch dumpTable {
		case "nodes":
			t := tc.Nodes()
			tbl.SetHeader([]string{"ID", "Flags", "Time", "Population", "Individual", "Metadata"})
			forEachRow(t.NumRows(), func(i int) {
				u := treeseq.NodeID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%#x", uint32(t.Flags(u))),
					fmt.Sprintf("%v", t.Time(u)),
					fmt.Sprintf("%d", int32(t.Population(u))),
					fmt.Sprintf("%d", int32(t.Individual(u))),
					asciiOrHex(t.Metadata(u)),
				})
			})
		case "edges":
			t := tc.Edges()
			tbl.SetHeader([]string{"ID", "Left", "Right", "Parent", "Child"})
			forEachRow(t.NumRows(), func(i int) {
				e := treeseq.EdgeID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%v", t.Left(e)),
					fmt.Sprintf("%v", t.Right(e)),
					fmt.Sprintf("%d", int32(t.Parent(e))),
					fmt.Sprintf("%d", int32(t.Child(e))),
				})
			})
		case "sites":
			t := tc.Sites()
			tbl.SetHeader([]string{"ID", "Position", "Ancestral", "Metadata"})
			forEachRow(t.NumRows(), func(i int) {
				s := treeseq.SiteID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%v", t.Position(s)),
					asciiOrHex(t.AncestralState(s)),
					asciiOrHex(t.Metadata(s)),
				})
			})
		case "mutations":
			t := tc.Mutations()
			tbl.SetHeader([]string{"ID", "Site", "Node", "Parent", "Time", "Derived"})
			forEachRow(t.NumRows(), func(i int) {
				m := treeseq.MutationID(i)
				time := "unknown"
				if !treeseq.IsUnknownTime(t.Time(m)) {
					time = fmt.Sprintf("%v", t.Time(m))
				}
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%d", int32(t.Site(m))),
					fmt.Sprintf("%d", int32(t.Node(m))),
					fmt.Sprintf("%d", int32(t.Parent(m))),
					time,
					asciiOrHex(t.DerivedState(m)),
				})
			})
		case "migrations":
			t := tc.Migrations()
			tbl.SetHeader([]string{"ID", "Left", "Right", "Node", "Source", "Dest", "Time"})
			forEachRow(t.NumRows(), func(i int) {
				m := treeseq.MigrationID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%v", t.Left(m)),
					fmt.Sprintf("%v", t.Right(m)),
					fmt.Sprintf("%d", int32(t.Node(m))),
					fmt.Sprintf("%d", int32(t.Source(m))),
					fmt.Sprintf("%d", int32(t.Dest(m))),
					fmt.Sprintf("%v", t.Time(m)),
				})
			})
		case "populations":
			t := tc.Populations()
			tbl.SetHeader([]string{"ID", "Metadata"})
			forEachRow(t.NumRows(), func(i int) {
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					asciiOrHex(t.Metadata(treeseq.PopulationID(i))),
				})
			})
		case "individuals":
			t := tc.Individuals()
			tbl.SetHeader([]string{"ID", "Flags", "Location", "Parents", "Metadata"})
			forEachRow(t.NumRows(), func(i int) {
				id := treeseq.IndividualID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%#x", uint32(t.Flags(id))),
					fmt.Sprintf("%v", t.Location(id)),
					fmt.Sprintf("%v", t.Parents(id)),
					asciiOrHex(t.Metadata(id)),
				})
			})
		case "provenances":
			t := tc.Provenances()
			tbl.SetHeader([]string{"ID", "Timestamp", "Record"})
			forEachRow(t.NumRows(), func(i int) {
				p := treeseq.ProvenanceID(i)
				tbl.Append([]string{
					fmt.Sprintf("%d", i), t.Timestamp(p), t.Record(p),
				})
			})
		default:
			return errors.Newf("unknown table %q", dumpTable)
		}
		tbl.Render()
		return nil
	},
}

func forEachRow(n int, fn func(i int)) {
	if dumpLimit > 0 && n > dumpLimit {
		n = dumpLimit
	}
	for i := 0; i < n; i++ {
		fn(i)
	}
}

func asciiOrHex(b []byte) string {
	for _, c := range b {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return fmt.Sprintf("%x", b)
		}
	}
	return string(b)
}
