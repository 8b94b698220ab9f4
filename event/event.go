// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package event holds the event model, the creation command surface,
// and the notice rendering for scheduled group events.
//
// An event is created once and never mutated afterwards; attendance
// changes touch only the roster fields of its notice. The roster
// itself lives in the notice (package roster), not here. What this
// package persists is the registry record: an io.muster.event state
// event keyed by the notice's event ID, so votes can be routed back
// to their event after a restart.
package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
)

// StateType is the room state event type of the event registry
// record. The state key is the notice's event ID.
const StateType = "io.muster.event"

// Event is one scheduled group event. Immutable after creation.
type Event struct {
	Title       string
	Description string
	// Type is the event category label, stored lowercase and
	// capitalized only for display.
	Type  string
	Color string
	URL   string
	Start time.Time
	End   time.Time
	// Duration is the raw duration text as the creator typed it. The
	// notice displays it verbatim; End holds the computed result.
	Duration string
	Creator  ref.UserID
}

// StateContent is the wire form of the registry record. It carries
// everything needed to re-render the notice header, so reconciliation
// after a restart needs no state beyond the room.
type StateContent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Duration    string     `json:"duration"`
	Color       string     `json:"color"`
	URL         string     `json:"url,omitempty"`
	Creator     ref.UserID `json:"creator"`
}

// StateContent returns the registry record for the event.
func (e Event) StateContent() StateContent {
	return StateContent{
		Title:       e.Title,
		Description: e.Description,
		Type:        strings.ToLower(e.Type),
		Start:       e.Start,
		End:         e.End,
		Duration:    e.Duration,
		Color:       e.Color,
		URL:         e.URL,
		Creator:     e.Creator,
	}
}

// Event reconstructs the event model from a registry record.
func (c StateContent) Event() Event {
	return Event{
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,
		Color:       c.Color,
		URL:         c.URL,
		Start:       c.Start,
		End:         c.End,
		Duration:    c.Duration,
		Creator:     c.Creator,
	}
}

// Lookup fetches the registry record for a notice. Returns a
// MatrixError with M_NOT_FOUND when the notice has no record, which
// is how votes on unrelated messages are told apart from votes on
// event notices.
func Lookup(ctx context.Context, session messaging.Session, roomID ref.RoomID, noticeID ref.EventID) (StateContent, error) {
	record, err := messaging.GetState[StateContent](ctx, session, roomID, StateType, noticeID.String())
	if err != nil {
		return StateContent{}, fmt.Errorf("event: looking up registry record for %s: %w", noticeID, err)
	}
	return record, nil
}

// Register stores the registry record for a freshly posted notice.
func Register(ctx context.Context, session messaging.Session, roomID ref.RoomID, noticeID ref.EventID, ev Event) error {
	if _, err := session.SendStateEvent(ctx, roomID, StateType, noticeID.String(), ev.StateContent()); err != nil {
		return fmt.Errorf("event: registering %s: %w", noticeID, err)
	}
	return nil
}

// Recorder receives a copy of each created event for external
// bookkeeping. The deployment wires NopRecorder; remote persistence
// is out of scope.
type Recorder interface {
	RecordEvent(ctx context.Context, ev Event, noticeID ref.EventID) error
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) RecordEvent(context.Context, Event, ref.EventID) error { return nil }
