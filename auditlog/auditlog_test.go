// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/muster-project/muster/lib/clock"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

var testEpoch = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// fakeSession records sent messages. Embedding the interface keeps
// the unused operations panicking if an audit post reaches for them.
type fakeSession struct {
	messaging.Session
	sentRoom    ref.RoomID
	sentContent messaging.MessageContent
	sendErr     error
}

func (f *fakeSession) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	if f.sendErr != nil {
		return ref.EventID{}, f.sendErr
	}
	f.sentRoom = roomID
	f.sentContent = content
	return ref.MustParseEventID("$audit1"), nil
}

func testEmitter(session messaging.Session) *Emitter {
	return NewEmitter(
		session,
		ref.MustParseRoomID("!audit:muster.chat"),
		clock.Fake(testEpoch),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestBuild(t *testing.T) {
	alice := ref.MustParseUserID("@alice:muster.chat")
	emitter := testEmitter(&fakeSession{})

	tests := []struct {
		name      string
		oldStatus roster.Status
		newStatus roster.Status
		wantBody  string
		wantColor string
	}{
		{
			name:      "first vote accepted",
			oldStatus: roster.NotSet,
			newStatus: roster.Accepted,
			wantBody:  "@alice:muster.chat signed up as accepted",
			wantColor: "#69e4a6",
		},
		{
			name:      "first vote declined",
			oldStatus: roster.NotSet,
			newStatus: roster.Declined,
			wantBody:  "@alice:muster.chat signed up as declined",
			wantColor: "#ff7285",
		},
		{
			name:      "change accepted to declined",
			oldStatus: roster.Accepted,
			newStatus: roster.Declined,
			wantBody:  "@alice:muster.chat changed status to declined",
			wantColor: "#ff7285",
		},
		{
			name:      "change declined to accepted",
			oldStatus: roster.Declined,
			newStatus: roster.Accepted,
			wantBody:  "@alice:muster.chat changed status to accepted",
			wantColor: "#69e4a6",
		},
		{
			name:      "reset uses fallback color",
			oldStatus: roster.Accepted,
			newStatus: roster.NotSet,
			wantBody:  "@alice:muster.chat changed status to not set",
			wantColor: "#0099ff",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entry := emitter.Build(alice, test.oldStatus, test.newStatus, "https://matrix.to/#/!r/$n")
			if entry.Body != test.wantBody {
				t.Errorf("Body = %q, want %q", entry.Body, test.wantBody)
			}
			if entry.Color != test.wantColor {
				t.Errorf("Color = %q, want %q", entry.Color, test.wantColor)
			}
			if entry.Link != "https://matrix.to/#/!r/$n" {
				t.Errorf("Link = %q", entry.Link)
			}
			if !entry.Timestamp.Equal(testEpoch) {
				t.Errorf("Timestamp = %v, want %v", entry.Timestamp, testEpoch)
			}
		})
	}
}

func TestPost(t *testing.T) {
	session := &fakeSession{}
	emitter := testEmitter(session)

	entry := emitter.Build(
		ref.MustParseUserID("@alice:muster.chat"),
		roster.NotSet, roster.Accepted,
		"https://matrix.to/#/!events:muster.chat/$notice",
	)
	if err := emitter.Post(context.Background(), entry); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if session.sentRoom.String() != "!audit:muster.chat" {
		t.Errorf("posted to %q", session.sentRoom)
	}
	if session.sentContent.Body != entry.Body {
		t.Errorf("plain body = %q, want %q", session.sentContent.Body, entry.Body)
	}
	formatted := session.sentContent.FormattedBody
	if !strings.Contains(formatted, `color="#69e4a6"`) {
		t.Errorf("formatted body missing status color: %q", formatted)
	}
	if !strings.Contains(formatted, `href="https://matrix.to/#/!events:muster.chat/$notice"`) {
		t.Errorf("formatted body missing deep link: %q", formatted)
	}
}

func TestPostFailure(t *testing.T) {
	sendErr := errors.New("homeserver unreachable")
	emitter := testEmitter(&fakeSession{sendErr: sendErr})

	entry := emitter.Build(
		ref.MustParseUserID("@alice:muster.chat"),
		roster.NotSet, roster.Accepted, "https://matrix.to/#/!r/$n")
	err := emitter.Post(context.Background(), entry)
	if !errors.Is(err, sendErr) {
		t.Fatalf("Post error = %v, want wrapped send error", err)
	}
}

func TestNoticeLink(t *testing.T) {
	link := NoticeLink(
		ref.MustParseRoomID("!events:muster.chat"),
		ref.MustParseEventID("$notice1"),
	)
	if link != "https://matrix.to/#/!events:muster.chat/$notice1" {
		t.Errorf("link = %q", link)
	}
}
