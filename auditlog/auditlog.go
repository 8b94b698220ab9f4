// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditlog posts attendance-change entries to a fixed audit
// room. Each roster change produces one entry: who changed, what
// their status is now, and a deep link back to the event notice the
// change was applied to.
//
// Entries are fire-and-forget. A failed post is the caller's to log;
// it is never retried and never rolls back the roster edit that
// triggered it.
package auditlog

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/muster-project/muster/lib/clock"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

// Accent colors keyed by the member's new status. Anything else
// (including a reset to not set) uses the neutral fallback.
const (
	colorAccepted = "#69e4a6"
	colorDeclined = "#ff7285"
	colorFallback = "#0099ff"
)

// Entry is one audit room message, fully rendered except for
// transport framing.
type Entry struct {
	// Body is the plain-text sentence describing the change.
	Body string
	// Color is the accent hex color for the member's new status.
	Color string
	// Link points back to the notice the change was applied to.
	Link string
	// Timestamp records when the entry was built.
	Timestamp time.Time
}

// Emitter builds and posts audit entries for one audit room.
type Emitter struct {
	session messaging.Session
	roomID  ref.RoomID
	clock   clock.Clock
	logger  *slog.Logger
}

// NewEmitter returns an Emitter posting to the given room. The room
// ID is expected to come from resolving the configured audit alias at
// startup.
func NewEmitter(session messaging.Session, roomID ref.RoomID, clk clock.Clock, logger *slog.Logger) *Emitter {
	return &Emitter{
		session: session,
		roomID:  roomID,
		clock:   clk,
		logger:  logger,
	}
}

// Build renders an audit entry for a member's status change. A member
// voting for the first time "signed up"; every later change "changed
// status".
func (e *Emitter) Build(user ref.UserID, oldStatus, newStatus roster.Status, link string) Entry {
	var body string
	if oldStatus == roster.NotSet {
		body = fmt.Sprintf("%s signed up as %s", user, newStatus)
	} else {
		body = fmt.Sprintf("%s changed status to %s", user, newStatus)
	}

	color := colorFallback
	switch newStatus {
	case roster.Accepted:
		color = colorAccepted
	case roster.Declined:
		color = colorDeclined
	}

	return Entry{
		Body:      body,
		Color:     color,
		Link:      link,
		Timestamp: e.clock.Now(),
	}
}

// Post sends an entry to the audit room. The formatted body carries
// the status color and links back to the notice.
func (e *Emitter) Post(ctx context.Context, entry Entry) error {
	formatted := fmt.Sprintf(`<font color=%q><a href=%q>%s</a></font>`,
		entry.Color, entry.Link, html.EscapeString(entry.Body))

	eventID, err := e.session.SendMessage(ctx, e.roomID, messaging.NewFormattedMessage(entry.Body, formatted))
	if err != nil {
		return fmt.Errorf("auditlog: posting entry: %w", err)
	}

	e.logger.Debug("posted audit entry",
		"room_id", e.roomID,
		"event_id", eventID,
		"body", entry.Body)
	return nil
}

// NoticeLink returns the matrix.to deep link for a notice event.
func NoticeLink(roomID ref.RoomID, noticeID ref.EventID) string {
	return "https://matrix.to/#/" + roomID.String() + "/" + noticeID.String()
}
