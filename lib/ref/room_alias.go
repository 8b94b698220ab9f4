// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// RoomAlias is a validated Matrix room alias
// (e.g., "#attendance-log:muster.chat").
//
// Aliases are human-readable room names that resolve to a RoomID via
// the homeserver directory. Muster uses one for the audit room, built
// from the configured localpart and server name at startup.
//
// RoomAlias is an immutable value type. The zero value is not valid;
// use IsZero to check.
type RoomAlias struct {
	alias string
}

// NewRoomAlias builds a room alias from a localpart (without '#') and
// a server name.
func NewRoomAlias(localpart, server string) (RoomAlias, error) {
	return ParseRoomAlias("#" + localpart + ":" + server)
}

// ParseRoomAlias validates and wraps a raw Matrix room alias string.
func ParseRoomAlias(raw string) (RoomAlias, error) {
	if _, _, err := parseSigilID(raw, '#', "room alias"); err != nil {
		return RoomAlias{}, err
	}
	return RoomAlias{alias: raw}, nil
}

// MustParseRoomAlias is like ParseRoomAlias but panics on error. Use
// in tests where the input is known-valid.
func MustParseRoomAlias(raw string) RoomAlias {
	alias, err := ParseRoomAlias(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseRoomAlias(%q): %v", raw, err))
	}
	return alias
}

// String returns the full alias string (e.g., "#attendance-log:muster.chat").
func (a RoomAlias) String() string { return a.alias }

// IsZero reports whether the RoomAlias is the zero value.
func (a RoomAlias) IsZero() bool { return a.alias == "" }
