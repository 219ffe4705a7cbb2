// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package tswire implements the columnar interchange format for table
// collections.
//
// The layout is little-endian throughout:
//
//	header:  magic "TSQC", format version uint32, sequence length float64
//	tables:  in fixed order: provenance, populations, individuals, nodes,
//	         edges, sites, mutations, migrations
//
// Each table is written as a row count followed by its columns, one page
// per column. A page is framed as
//
//	kind uint8 (0 raw, 1 snappy), uncompressed length uint64,
//	stored length uint64, payload, xxhash64 checksum of the stored payload
//
// Fixed-width columns (coordinates and times as float64, ids as int32,
// flags as uint32) are flat arrays. Variable-length columns are two pages:
// a uint64 offsets page with rows+1 entries and a concatenated data page.
// The fixed table order guarantees that cross-references already exist by
// the time a referencing table is deserialized.
package tswire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/popgen-dev/treeseq"
	"github.com/popgen-dev/treeseq/internal/base"
)

// Compression selects the page payload encoding.
type Compression uint8

const (
	// NoCompression stores page payloads raw.
	NoCompression Compression = 0
	// SnappyCompression stores page payloads snappy-compressed.
	SnappyCompression Compression = 1
)

// WriteOptions configures Write. The zero value writes raw pages.
type WriteOptions struct {
	Compression Compression
}

var magic = [4]byte{'T', 'S', 'Q', 'C'}

const formatVersion = 1

// maxPageLen bounds declared page lengths so a corrupt header cannot force
// a huge allocation.
const maxPageLen = 1 << 31

// Write serializes the collection to w.
func Write(w io.Writer, tc *treeseq.TableCollection, opts WriteOptions) error {
	e := &encoder{w: w, opts: opts}
	e.write(magic[:])
	e.u32(formatVersion)
	e.f64(tc.SequenceLength())

	e.writeProvenances(tc.Provenances())
	e.writePopulations(tc.Populations())
	e.writeIndividuals(tc.Individuals())
	e.writeNodes(tc.Nodes())
	e.writeEdges(tc.Edges())
	e.writeSites(tc.Sites())
	e.writeMutations(tc.Mutations())
	e.writeMigrations(tc.Migrations())
	return e.err
}

// Read deserializes a collection from r. Framing problems (truncation,
// checksum mismatches, inconsistent column lengths, non-monotonic offsets)
// are reported as ErrMalformedEncoding; rows that violate table invariants
// surface with their specific error kind. The returned collection has
// reference checks deferred and has passed a full integrity check.
func Read(r io.Reader) (*treeseq.TableCollection, error) {
	d := &decoder{r: r}
	var m [4]byte
	d.read(m[:])
	if d.err != nil {
		return nil, d.err
	}
	if m != magic {
		return nil, base.MalformedEncodingErrorf("bad magic %q", m[:])
	}
	if v := d.u32(); d.err == nil && v != formatVersion {
		return nil, base.MalformedEncodingErrorf("unsupported format version %d", v)
	}
	seqLen := d.f64()
	if d.err != nil {
		return nil, d.err
	}
	tc, err := treeseq.NewTableCollectionWithOptions(
		seqLen, treeseq.CollectionOptions{DeferReferenceChecks: true})
	if err != nil {
		return nil, errors.Mark(err, base.ErrMalformedEncoding)
	}

	if err := d.readProvenances(tc); err != nil {
		return nil, err
	}
	if err := d.readPopulations(tc); err != nil {
		return nil, err
	}
	if err := d.readIndividuals(tc); err != nil {
		return nil, err
	}
	if err := d.readNodes(tc); err != nil {
		return nil, err
	}
	if err := d.readEdges(tc); err != nil {
		return nil, err
	}
	if err := d.readSites(tc); err != nil {
		return nil, err
	}
	if err := d.readMutations(tc); err != nil {
		return nil, err
	}
	if err := d.readMigrations(tc); err != nil {
		return nil, err
	}
	if err := tc.CheckIntegrity(); err != nil {
		return nil, err
	}
	return tc, nil
}

type encoder struct {
	w    io.Writer
	opts WriteOptions
	err  error
}

func (e *encoder) write(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.write(b[:])
}

func (e *encoder) f64(v float64) { e.u64(math.Float64bits(v)) }

// page frames and writes a single column payload.
func (e *encoder) page(payload []byte) {
	kind := byte(NoCompression)
	stored := payload
	if e.opts.Compression == SnappyCompression {
		kind = byte(SnappyCompression)
		stored = snappy.Encode(nil, payload)
	}
	e.write([]byte{kind})
	e.u64(uint64(len(payload)))
	e.u64(uint64(len(stored)))
	e.write(stored)
	e.u64(xxhash.Sum64(stored))
}

func (e *encoder) f64Page(n int, at func(i int) float64) {
	buf := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(at(i)))
	}
	e.page(buf)
}

func (e *encoder) i32Page(n int, at func(i int) int32) {
	buf := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(at(i)))
	}
	e.page(buf)
}

func (e *encoder) u32Page(n int, at func(i int) uint32) {
	buf := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], at(i))
	}
	e.page(buf)
}

// raggedPages writes the offsets page and the concatenated data page for a
// variable-length byte column.
func (e *encoder) raggedPages(n int, at func(i int) []byte) {
	offsets := make([]byte, 8*(n+1))
	var data []byte
	for i := 0; i < n; i++ {
		data = append(data, at(i)...)
		binary.LittleEndian.PutUint64(offsets[8*(i+1):], uint64(len(data)))
	}
	e.page(offsets)
	e.page(data)
}

func (e *encoder) schemaPage(s string) { e.page([]byte(s)) }

func (e *encoder) writeProvenances(t *treeseq.ProvenanceTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.raggedPages(n, func(i int) []byte { return []byte(t.Timestamp(treeseq.ProvenanceID(i))) })
	e.raggedPages(n, func(i int) []byte { return []byte(t.Record(treeseq.ProvenanceID(i))) })
}

func (e *encoder) writePopulations(t *treeseq.PopulationTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.PopulationID(i)) })
}

func (e *encoder) writeIndividuals(t *treeseq.IndividualTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.u32Page(n, func(i int) uint32 { return uint32(t.Flags(treeseq.IndividualID(i))) })
	e.raggedPages(n, func(i int) []byte {
		loc := t.Location(treeseq.IndividualID(i))
		buf := make([]byte, 8*len(loc))
		for j, v := range loc {
			binary.LittleEndian.PutUint64(buf[8*j:], math.Float64bits(v))
		}
		return buf
	})
	e.raggedPages(n, func(i int) []byte {
		parents := t.Parents(treeseq.IndividualID(i))
		buf := make([]byte, 4*len(parents))
		for j, v := range parents {
			binary.LittleEndian.PutUint32(buf[4*j:], uint32(v))
		}
		return buf
	})
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.IndividualID(i)) })
}

func (e *encoder) writeNodes(t *treeseq.NodeTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.u32Page(n, func(i int) uint32 { return uint32(t.Flags(treeseq.NodeID(i))) })
	e.f64Page(n, func(i int) float64 { return t.Time(treeseq.NodeID(i)) })
	e.i32Page(n, func(i int) int32 { return int32(t.Population(treeseq.NodeID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Individual(treeseq.NodeID(i))) })
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.NodeID(i)) })
}

func (e *encoder) writeEdges(t *treeseq.EdgeTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.f64Page(n, func(i int) float64 { return t.Left(treeseq.EdgeID(i)) })
	e.f64Page(n, func(i int) float64 { return t.Right(treeseq.EdgeID(i)) })
	e.i32Page(n, func(i int) int32 { return int32(t.Parent(treeseq.EdgeID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Child(treeseq.EdgeID(i))) })
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.EdgeID(i)) })
}

func (e *encoder) writeSites(t *treeseq.SiteTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.f64Page(n, func(i int) float64 { return t.Position(treeseq.SiteID(i)) })
	e.raggedPages(n, func(i int) []byte { return t.AncestralState(treeseq.SiteID(i)) })
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.SiteID(i)) })
}

func (e *encoder) writeMutations(t *treeseq.MutationTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.i32Page(n, func(i int) int32 { return int32(t.Site(treeseq.MutationID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Node(treeseq.MutationID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Parent(treeseq.MutationID(i))) })
	e.f64Page(n, func(i int) float64 { return t.Time(treeseq.MutationID(i)) })
	e.raggedPages(n, func(i int) []byte { return t.DerivedState(treeseq.MutationID(i)) })
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.MutationID(i)) })
}

func (e *encoder) writeMigrations(t *treeseq.MigrationTable) {
	n := t.NumRows()
	e.u64(uint64(n))
	e.schemaPage(t.MetadataSchema())
	e.f64Page(n, func(i int) float64 { return t.Left(treeseq.MigrationID(i)) })
	e.f64Page(n, func(i int) float64 { return t.Right(treeseq.MigrationID(i)) })
	e.i32Page(n, func(i int) int32 { return int32(t.Node(treeseq.MigrationID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Source(treeseq.MigrationID(i))) })
	e.i32Page(n, func(i int) int32 { return int32(t.Dest(treeseq.MigrationID(i))) })
	e.f64Page(n, func(i int) float64 { return t.Time(treeseq.MigrationID(i)) })
	e.raggedPages(n, func(i int) []byte { return t.Metadata(treeseq.MigrationID(i)) })
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(b []byte) {
	if d.err == nil {
		if _, err := io.ReadFull(d.r, b); err != nil {
			d.err = base.MalformedEncodingErrorf("truncated input: %v", err)
		}
	}
}

func (d *decoder) u32() uint32 {
	var b [4]byte
	d.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (d *decoder) u64() uint64 {
	var b [8]byte
	d.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (d *decoder) f64() float64 { return math.Float64frombits(d.u64()) }

// page reads one column page, verifying the checksum and, when
// wantLen >= 0, the uncompressed payload length.
func (d *decoder) page(table, column string, wantLen int64) []byte {
	if d.err != nil {
		return nil
	}
	var kind [1]byte
	d.read(kind[:])
	uncompressedLen := d.u64()
	storedLen := d.u64()
	if d.err != nil {
		return nil
	}
	if uncompressedLen > maxPageLen || storedLen > maxPageLen {
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: page length %d exceeds limit", table, column, max(uncompressedLen, storedLen))
		return nil
	}
	stored := make([]byte, storedLen)
	d.read(stored)
	sum := d.u64()
	if d.err != nil {
		return nil
	}
	if actual := xxhash.Sum64(stored); actual != sum {
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: checksum mismatch (got %x, want %x)", table, column, actual, sum)
		return nil
	}
	payload := stored
	switch Compression(kind[0]) {
	case NoCompression:
	case SnappyCompression:
		var err error
		if payload, err = snappy.Decode(nil, stored); err != nil {
			d.err = base.MalformedEncodingErrorf("%s.%s: snappy: %v", table, column, err)
			return nil
		}
	default:
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: unknown page kind %d", table, column, kind[0])
		return nil
	}
	if uint64(len(payload)) != uncompressedLen {
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: payload length %d, declared %d", table, column, len(payload), uncompressedLen)
		return nil
	}
	if wantLen >= 0 && int64(len(payload)) != wantLen {
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: column length %d inconsistent with %d declared rows",
			table, column, len(payload), wantLen)
		return nil
	}
	return payload
}

func (d *decoder) f64Col(table, column string, n int) []float64 {
	buf := d.page(table, column, int64(8*n))
	if d.err != nil {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out
}

func (d *decoder) i32Col(table, column string, n int) []int32 {
	buf := d.page(table, column, int64(4*n))
	if d.err != nil {
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out
}

func (d *decoder) u32Col(table, column string, n int) []uint32 {
	buf := d.page(table, column, int64(4*n))
	if d.err != nil {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return out
}

// raggedCol reads an offsets page and data page and returns the per-row
// slices. Offsets must start at zero, be monotonic, and end at the data
// length.
func (d *decoder) raggedCol(table, column string, n int) [][]byte {
	offBuf := d.page(table, column+".offsets", int64(8*(n+1)))
	if d.err != nil {
		return nil
	}
	offsets := make([]uint64, n+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(offBuf[8*i:])
	}
	if offsets[0] != 0 {
		d.err = base.MalformedEncodingErrorf(
			"%s.%s: offsets start at %d, not 0", table, column, offsets[0])
		return nil
	}
	for i := 0; i < n; i++ {
		if offsets[i+1] < offsets[i] {
			d.err = base.MalformedEncodingErrorf(
				"%s.%s: non-monotonic offsets at row %d", table, column, i)
			return nil
		}
	}
	data := d.page(table, column+".data", int64(offsets[n]))
	if d.err != nil {
		return nil
	}
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = data[offsets[i]:offsets[i+1]]
	}
	return out
}

func (d *decoder) rowCount(table string) int {
	n := d.u64()
	if d.err == nil && n > maxPageLen/8 {
		d.err = base.MalformedEncodingErrorf("%s: row count %d exceeds limit", table, n)
	}
	return int(n)
}

func (d *decoder) schema(table string) string {
	return string(d.page(table, "schema", -1))
}

func (d *decoder) readProvenances(tc *treeseq.TableCollection) error {
	n := d.rowCount("provenances")
	timestamps := d.raggedCol("provenances", "timestamp", n)
	records := d.raggedCol("provenances", "record", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		if _, err := tc.AddProvenanceRow(string(timestamps[i]), string(records[i])); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readPopulations(tc *treeseq.TableCollection) error {
	n := d.rowCount("populations")
	schema := d.schema("populations")
	md := d.raggedCol("populations", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		if _, err := tc.AddPopulationWithMetadata(md[i]); err != nil {
			return err
		}
	}
	tc.Populations().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readIndividuals(tc *treeseq.TableCollection) error {
	n := d.rowCount("individuals")
	schema := d.schema("individuals")
	flags := d.u32Col("individuals", "flags", n)
	locations := d.raggedCol("individuals", "location", n)
	parents := d.raggedCol("individuals", "parents", n)
	md := d.raggedCol("individuals", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		if len(locations[i])%8 != 0 {
			return base.MalformedEncodingErrorf(
				"individuals.location: row %d length %d not a multiple of 8", i, len(locations[i]))
		}
		loc := make([]float64, len(locations[i])/8)
		for j := range loc {
			loc[j] = math.Float64frombits(binary.LittleEndian.Uint64(locations[i][8*j:]))
		}
		if len(parents[i])%4 != 0 {
			return base.MalformedEncodingErrorf(
				"individuals.parents: row %d length %d not a multiple of 4", i, len(parents[i]))
		}
		par := make([]treeseq.IndividualID, len(parents[i])/4)
		for j := range par {
			par[j] = treeseq.IndividualID(binary.LittleEndian.Uint32(parents[i][4*j:]))
		}
		_, err := tc.AddIndividualWithMetadata(treeseq.IndividualFlags(flags[i]), loc, par, md[i])
		if err != nil {
			return err
		}
	}
	tc.Individuals().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readNodes(tc *treeseq.TableCollection) error {
	n := d.rowCount("nodes")
	schema := d.schema("nodes")
	flags := d.u32Col("nodes", "flags", n)
	times := d.f64Col("nodes", "time", n)
	populations := d.i32Col("nodes", "population", n)
	individuals := d.i32Col("nodes", "individual", n)
	md := d.raggedCol("nodes", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		_, err := tc.AddNodeWithMetadata(
			treeseq.NodeFlags(flags[i]), times[i],
			treeseq.PopulationID(populations[i]), treeseq.IndividualID(individuals[i]), md[i])
		if err != nil {
			return err
		}
	}
	tc.Nodes().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readEdges(tc *treeseq.TableCollection) error {
	n := d.rowCount("edges")
	schema := d.schema("edges")
	lefts := d.f64Col("edges", "left", n)
	rights := d.f64Col("edges", "right", n)
	parents := d.i32Col("edges", "parent", n)
	children := d.i32Col("edges", "child", n)
	md := d.raggedCol("edges", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		_, err := tc.AddEdgeWithMetadata(
			lefts[i], rights[i], treeseq.NodeID(parents[i]), treeseq.NodeID(children[i]), md[i])
		if err != nil {
			return err
		}
	}
	tc.Edges().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readSites(tc *treeseq.TableCollection) error {
	n := d.rowCount("sites")
	schema := d.schema("sites")
	positions := d.f64Col("sites", "position", n)
	ancestral := d.raggedCol("sites", "ancestral_state", n)
	md := d.raggedCol("sites", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		if _, err := tc.AddSiteWithMetadata(positions[i], ancestral[i], md[i]); err != nil {
			return err
		}
	}
	tc.Sites().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readMutations(tc *treeseq.TableCollection) error {
	n := d.rowCount("mutations")
	schema := d.schema("mutations")
	sites := d.i32Col("mutations", "site", n)
	nodes := d.i32Col("mutations", "node", n)
	parents := d.i32Col("mutations", "parent", n)
	times := d.f64Col("mutations", "time", n)
	derived := d.raggedCol("mutations", "derived_state", n)
	md := d.raggedCol("mutations", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		_, err := tc.AddMutationWithMetadata(
			treeseq.SiteID(sites[i]), treeseq.NodeID(nodes[i]), treeseq.MutationID(parents[i]),
			times[i], derived[i], md[i])
		if err != nil {
			return err
		}
	}
	tc.Mutations().SetMetadataSchema(schema)
	return nil
}

func (d *decoder) readMigrations(tc *treeseq.TableCollection) error {
	n := d.rowCount("migrations")
	schema := d.schema("migrations")
	lefts := d.f64Col("migrations", "left", n)
	rights := d.f64Col("migrations", "right", n)
	nodes := d.i32Col("migrations", "node", n)
	sources := d.i32Col("migrations", "source", n)
	dests := d.i32Col("migrations", "dest", n)
	times := d.f64Col("migrations", "time", n)
	md := d.raggedCol("migrations", "metadata", n)
	if d.err != nil {
		return d.err
	}
	for i := 0; i < n; i++ {
		_, err := tc.AddMigrationWithMetadata(
			lefts[i], rights[i], treeseq.NodeID(nodes[i]),
			treeseq.PopulationID(sources[i]), treeseq.PopulationID(dests[i]), times[i], md[i])
		if err != nil {
			return err
		}
	}
	tc.Migrations().SetMetadataSchema(schema)
	return nil
}
