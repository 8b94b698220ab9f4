// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier value types for the Matrix
// identifiers muster passes between packages: [RoomID], [RoomAlias],
// [UserID], and [EventID].
//
// Raw identifier strings from the homeserver (or from decoded notice
// fields) are parsed into these types at the boundary where they enter
// the program. Code past the boundary never handles bare strings, so a
// malformed identifier is rejected once instead of surfacing as a
// confusing API error three calls later.
//
// All types are immutable values. The zero value of each type is not a
// valid identifier; use IsZero to check. Types implement
// encoding.TextMarshaler and TextUnmarshaler, so encoding/json
// validates them automatically during deserialization of homeserver
// responses.
//
// This package depends on no other muster packages.
package ref
