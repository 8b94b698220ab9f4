// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/muster-project/muster/lib/ref"
)

// GetState reads a typed state event from a Matrix room. It calls
// GetStateEvent on the session and unmarshals the raw JSON content
// into T. This is the standard way to read typed state:
//
//	emotes, err := messaging.GetState[messaging.RoomEmotesContent](ctx, session, roomID, messaging.EventTypeRoomEmotes, "")
//
// Returns an error if the state event does not exist (M_NOT_FOUND) or
// if the content cannot be unmarshaled into T.
func GetState[T any](ctx context.Context, session Session, roomID ref.RoomID, eventType, stateKey string) (T, error) {
	var zero T
	content, err := session.GetStateEvent(ctx, roomID, eventType, stateKey)
	if err != nil {
		return zero, fmt.Errorf("reading %s[%q] from room %s: %w", eventType, stateKey, roomID, err)
	}
	var result T
	if err := json.Unmarshal(content, &result); err != nil {
		return zero, fmt.Errorf("unmarshaling %s from room %s: %w", eventType, roomID, err)
	}
	return result, nil
}

// ParseContent converts an event's generic content map into a typed
// value via a JSON round-trip. Sync responses deliver content as
// map[string]any; handlers that need structure (reaction relations,
// message bodies) parse at the point of use:
//
//	reaction, err := messaging.ParseContent[messaging.ReactionContent](event)
func ParseContent[T any](event Event) (T, error) {
	var zero T
	data, err := json.Marshal(event.Content)
	if err != nil {
		return zero, fmt.Errorf("encoding %s content: %w", event.Type, err)
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return zero, fmt.Errorf("decoding %s content: %w", event.Type, err)
	}
	return result, nil
}
