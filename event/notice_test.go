// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

func testEvent(t *testing.T) (Event, *time.Location) {
	t.Helper()
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}
	start := time.Date(2026, 3, 2, 19, 30, 0, 0, berlin)
	return Event{
		Title:       "Weekly raid",
		Description: "Bring **flasks** and food",
		Type:        "raid",
		Color:       "#0099ff",
		Start:       start,
		End:         start.Add(2*time.Hour + 30*time.Minute),
		Duration:    "2h 30m",
		Creator:     ref.MustParseUserID("@officer:muster.chat"),
	}, berlin
}

func TestBuildNoticeFieldLayout(t *testing.T) {
	ev, berlin := testEvent(t)
	ros := roster.Roster{
		NotSet: []ref.UserID{
			ref.MustParseUserID("@alice:muster.chat"),
			ref.MustParseUserID("@bob:muster.chat"),
		},
	}

	notice, err := BuildNotice(ev, ros, berlin)
	if err != nil {
		t.Fatalf("BuildNotice: %v", err)
	}

	if len(notice.Fields) != 6 {
		t.Fatalf("got %d fields, want 6", len(notice.Fields))
	}
	if notice.Fields[0].Name != "When" {
		t.Errorf("Fields[0].Name = %q", notice.Fields[0].Name)
	}
	if notice.Fields[0].Value != "Monday 02/03 from 19:30 to 22:00 server time" {
		t.Errorf("When = %q", notice.Fields[0].Value)
	}
	if notice.Fields[1].Name != "Duration" || notice.Fields[1].Value != "2h 30m" {
		t.Errorf("Duration field = %+v", notice.Fields[1])
	}
	if notice.Fields[2].Name != "​" {
		t.Errorf("Fields[2] is not the spacer: %+v", notice.Fields[2])
	}

	notSet, accepted, declined, err := roster.LocateFields(notice.Fields)
	if err != nil {
		t.Fatalf("LocateFields: %v", err)
	}
	if notSet != 3 || accepted != 4 || declined != 5 {
		t.Errorf("roster fields at %d/%d/%d, want 3/4/5", notSet, accepted, declined)
	}
	if notice.Fields[notSet].Name != "Not set (2)" {
		t.Errorf("not-set label = %q", notice.Fields[notSet].Name)
	}
	if notice.Fields[accepted].Value != "—" {
		t.Errorf("empty accepted bucket = %q", notice.Fields[accepted].Value)
	}
}

func TestBuildNoticeRendering(t *testing.T) {
	ev, berlin := testEvent(t)
	notice, err := BuildNotice(ev, roster.Roster{}, berlin)
	if err != nil {
		t.Fatalf("BuildNotice: %v", err)
	}

	if !strings.HasPrefix(notice.Body, "Weekly raid\nRaid\n") {
		t.Errorf("body header = %q", notice.Body[:min(len(notice.Body), 40)])
	}
	if !strings.Contains(notice.Body, "Set your status by reacting with the emojis below") {
		t.Error("body missing footer")
	}
	if notice.Format != "org.matrix.custom.html" {
		t.Errorf("Format = %q", notice.Format)
	}
	if !strings.Contains(notice.FormattedBody, "<strong>flasks</strong>") {
		t.Errorf("description markdown not rendered: %q", notice.FormattedBody)
	}
	if !strings.Contains(notice.FormattedBody, "<h3>Weekly raid</h3>") {
		t.Errorf("formatted body missing title: %q", notice.FormattedBody)
	}
	if strings.Contains(notice.FormattedBody, "​") {
		t.Error("spacer field leaked into formatted body")
	}
}

func TestEditNotice(t *testing.T) {
	ev, berlin := testEvent(t)
	notice, err := BuildNotice(ev, roster.Roster{}, berlin)
	if err != nil {
		t.Fatalf("BuildNotice: %v", err)
	}

	edit := EditNotice(ref.MustParseEventID("$notice"), notice)
	if !strings.HasPrefix(edit.Body, "* ") {
		t.Errorf("fallback body = %q", edit.Body[:min(len(edit.Body), 20)])
	}
	if edit.RelatesTo == nil || edit.RelatesTo.RelType != messaging.RelReplace {
		t.Fatalf("RelatesTo = %+v", edit.RelatesTo)
	}
	if edit.NewContent == nil || len(edit.NewContent.Fields) != len(notice.Fields) {
		t.Fatalf("NewContent does not carry the replacement fields")
	}
	if edit.NewContent.Body != notice.Body {
		t.Error("NewContent body differs from replacement")
	}
}

func TestDecodeNoticeRoundTrip(t *testing.T) {
	ev, berlin := testEvent(t)
	ros := roster.Roster{
		Accepted: []ref.UserID{ref.MustParseUserID("@alice:muster.chat")},
	}
	notice, err := BuildNotice(ev, ros, berlin)
	if err != nil {
		t.Fatalf("BuildNotice: %v", err)
	}

	// The sync stream hands content back as a generic map.
	encoded, err := json.Marshal(notice)
	if err != nil {
		t.Fatalf("marshaling notice: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		t.Fatalf("unmarshaling to map: %v", err)
	}

	decoded, err := DecodeNotice(raw)
	if err != nil {
		t.Fatalf("DecodeNotice: %v", err)
	}
	got, err := roster.Decode(decoded.Fields)
	if err != nil {
		t.Fatalf("roster.Decode: %v", err)
	}
	if len(got.Accepted) != 1 || got.Accepted[0].String() != "@alice:muster.chat" {
		t.Errorf("accepted = %v", got.Accepted)
	}
}

func TestDecodeNoticeRejectsPlainMessages(t *testing.T) {
	_, err := DecodeNotice(map[string]any{
		"msgtype": "m.text",
		"body":    "just chatting",
	})
	if err == nil {
		t.Fatal("DecodeNotice accepted content without roster fields")
	}
}

// emoteSession serves a canned im.ponies.room_emotes state event.
type emoteSession struct {
	messaging.Session
	content messaging.RoomEmotesContent
}

func (s *emoteSession) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType, stateKey string) (json.RawMessage, error) {
	if eventType != messaging.EventTypeRoomEmotes {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "not found", StatusCode: 404}
	}
	return json.Marshal(s.content)
}

func TestValidateMarkers(t *testing.T) {
	roomID := ref.MustParseRoomID("!events:muster.chat")
	session := &emoteSession{
		content: messaging.RoomEmotesContent{
			Images: map[string]messaging.RoomEmoteImage{
				"accepted": {URL: "mxc://muster.chat/accepted"},
				"declined": {URL: "mxc://muster.chat/declined"},
			},
		},
	}

	if err := ValidateMarkers(context.Background(), session, roomID, "accepted", "declined"); err != nil {
		t.Fatalf("ValidateMarkers: %v", err)
	}

	err := ValidateMarkers(context.Background(), session, roomID, "accepted", "thumbsdown")
	if err == nil {
		t.Fatal("ValidateMarkers passed with a missing marker")
	}
	if !strings.Contains(err.Error(), "thumbsdown") {
		t.Errorf("error does not name the missing marker: %v", err)
	}
}

func TestEventStateContent(t *testing.T) {
	ev, _ := testEvent(t)
	ev.Type = "Raid"

	content := ev.StateContent()
	if content.Type != "raid" {
		t.Errorf("Type = %q, want lowercased", content.Type)
	}
	if content.Title != "Weekly raid" || content.Duration != "2h 30m" {
		t.Errorf("content = %+v", content)
	}
	if !content.End.Equal(ev.End) {
		t.Errorf("End = %v", content.End)
	}
}
