// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides muster's standard CBOR encoding configuration.
//
// Muster uses two serialization formats with a clear boundary:
//
//   - JSON for the external interface: the Matrix Client-Server API.
//   - CBOR for internal on-disk state: the sync checkpoint file.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every muster package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR
//     (on-disk state types).
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent.
//
// Never use both `cbor` and `json` tags on the same field.
package codec
