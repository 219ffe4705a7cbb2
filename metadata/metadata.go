// Copyright 2023 The Treeseq Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package metadata provides the codec boundary for per-row metadata
// payloads. The core tables store and return raw bytes only; encoding and
// decoding into typed structures is a caller-side concern handled through a
// Codec. The byte-level contract is that a row's metadata column is exactly
// the bytes supplied with no framing added, so any serialization scheme
// round-trips losslessly.
package metadata

import (
	"encoding/json"

	"github.com/popgen-dev/treeseq/internal/base"
)

// Codec encodes and decodes typed metadata values. Implementations are
// supplied by callers; the core never interprets payloads.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// JSONCodec is a Codec backed by encoding/json.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(v interface{}) ([]byte, error) { return json.Marshal(v) }

// Decode implements Codec.
func (JSONCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Decode decodes a payload with the given codec, marking any failure as a
// schema mismatch so callers can classify it alongside the core's error
// kinds.
func Decode(c Codec, data []byte, v interface{}) error {
	if err := c.Decode(data, v); err != nil {
		return base.SchemaMismatchErrorf("metadata payload rejected by decoder: %v", err)
	}
	return nil
}

// Validator checks a raw payload against a table's schema descriptor. The
// core never enforces compliance; a Validator is an optional hook for
// layers above the tables.
type Validator func(schema string, payload []byte) error

// ValidateAll runs a Validator over every payload of a metadata column,
// given the column's row count and accessor. It stops at the first failure.
func ValidateAll(v Validator, schema string, numRows int, payload func(i int) []byte) error {
	for i := 0; i < numRows; i++ {
		if err := v(schema, payload(i)); err != nil {
			return base.SchemaMismatchErrorf("row %d: %v", i, err)
		}
	}
	return nil
}
