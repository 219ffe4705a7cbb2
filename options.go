// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package treeseq

import "github.com/popgen-dev/treeseq/internal/base"

// CollectionOptions configures a TableCollection.
type CollectionOptions struct {
	// DeferReferenceChecks allows rows to reference ids that have not been
	// appended yet. Reference validation is then performed once, at seal
	// time, instead of at each append. Value checks (finite times,
	// left < right, genome bounds) always run at append time regardless.
	//
	// The default is strict append-order checking: a row referencing a
	// missing id fails immediately with ErrOutOfBounds.
	DeferReferenceChecks bool

	// Logger is used for informational messages. Defaults to
	// base.DefaultLogger if nil.
	Logger base.Logger
}

func (o CollectionOptions) ensureDefaults() CollectionOptions {
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

// EqualsOptions configures structural equality between table collections.
// The zero value compares everything.
type EqualsOptions struct {
	// IgnoreMetadata skips metadata columns and schema strings.
	IgnoreMetadata bool
	// IgnoreProvenance skips the provenance table entirely.
	IgnoreProvenance bool
	// IgnoreTimestamps compares provenance records but not timestamps.
	IgnoreTimestamps bool
}
