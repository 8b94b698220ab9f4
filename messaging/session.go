// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"

	"github.com/muster-project/muster/lib/ref"
)

// Session is the interface for the Matrix operations muster performs.
// *DirectSession is the production implementation; tests substitute
// fakes so reconciliation and creation logic runs without a
// homeserver.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID
	// (e.g., "@bot/muster:muster.chat").
	UserID() ref.UserID

	// WhoAmI validates the session and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// ResolveAlias resolves a room alias to a room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)

	// JoinRoom joins a room by room ID. To join by alias, resolve
	// with ResolveAlias first.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// SendMessage sends an m.room.message to a room. Returns the
	// event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// SendEvent sends an event of any type to a room. Returns the
	// event ID.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType string, content any) (ref.EventID, error)

	// SendStateEvent sends a state event to a room. Returns the
	// event ID.
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string, content any) (ref.EventID, error)

	// GetStateEvent fetches a specific state event's content from a
	// room. Returns the raw JSON content for the caller to unmarshal.
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string) (json.RawMessage, error)

	// GetEvent fetches a single event by ID.
	GetEvent(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) (*Event, error)

	// LatestEdit returns a message's current content: the newest
	// m.replace edit when one exists, otherwise the original content.
	LatestEdit(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) (map[string]any, error)

	// RedactEvent removes an event's content. Returns the redaction's
	// own event ID.
	RedactEvent(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, reason string) (ref.EventID, error)

	// GetRoomMembers returns the joined members of a room.
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error)

	// Sync performs an incremental sync with the homeserver.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
