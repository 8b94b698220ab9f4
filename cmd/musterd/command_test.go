// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muster-project/muster/auditlog"
	"github.com/muster-project/muster/event"
	"github.com/muster-project/muster/lib/clock"
	"github.com/muster-project/muster/lib/config"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
	"github.com/muster-project/muster/signup"
)

var (
	testEventRoom = ref.MustParseRoomID("!events:muster.chat")
	testAuditRoom = ref.MustParseRoomID("!audit:muster.chat")
	testBotUser   = ref.MustParseUserID("@muster:muster.chat")
	testAlice     = ref.MustParseUserID("@alice:muster.chat")
	testBob       = ref.MustParseUserID("@bob:muster.chat")
)

// fakeSession is an in-memory homeserver for one event room plus the
// audit room.
type fakeSession struct {
	messaging.Session

	mu          sync.Mutex
	emotes      map[string]messaging.RoomEmoteImage
	members     []messaging.RoomMember
	state       map[string]json.RawMessage
	notices     map[ref.EventID]map[string]any
	reactions   []string
	replies     []string
	auditBodies []string
	redacted    []ref.EventID
	nextEventID int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		emotes: map[string]messaging.RoomEmoteImage{
			"accepted": {URL: "mxc://muster.chat/accepted"},
			"declined": {URL: "mxc://muster.chat/declined"},
		},
		members: []messaging.RoomMember{
			{UserID: testBob, DisplayName: "Bob"},
			{UserID: testAlice, DisplayName: "Alice"},
			{UserID: testBotUser, DisplayName: "Muster"},
		},
		state:   make(map[string]json.RawMessage),
		notices: make(map[ref.EventID]map[string]any),
	}
}

func stateKey(eventType, key string) string { return eventType + "\x00" + key }

func (f *fakeSession) newEventID() ref.EventID {
	f.nextEventID++
	return ref.MustParseEventID(fmt.Sprintf("$event%d", f.nextEventID))
}

func (f *fakeSession) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType, key string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if eventType == messaging.EventTypeRoomEmotes {
		return json.Marshal(messaging.RoomEmotesContent{Images: f.emotes})
	}
	raw, ok := f.state[stateKey(eventType, key)]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "not found", StatusCode: 404}
	}
	return raw, nil
}

func (f *fakeSession) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType, key string, content any) (ref.EventID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(content)
	if err != nil {
		return ref.EventID{}, err
	}
	f.state[stateKey(eventType, key)] = raw
	return f.newEventID(), nil
}

func (f *fakeSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType string, content any) (ref.EventID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	encoded, err := json.Marshal(content)
	if err != nil {
		return ref.EventID{}, err
	}

	if eventType == messaging.EventTypeReaction {
		var reaction messaging.ReactionContent
		if err := json.Unmarshal(encoded, &reaction); err != nil {
			return ref.EventID{}, err
		}
		f.reactions = append(f.reactions, reaction.RelatesTo.Key)
		return f.newEventID(), nil
	}

	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		return ref.EventID{}, err
	}
	var notice event.NoticeContent
	if err := json.Unmarshal(encoded, &notice); err != nil {
		return ref.EventID{}, err
	}
	if notice.RelatesTo != nil && notice.RelatesTo.RelType == messaging.RelReplace {
		replacement, _ := asMap["m.new_content"].(map[string]any)
		f.notices[notice.RelatesTo.EventID] = replacement
		return f.newEventID(), nil
	}

	eventID := f.newEventID()
	f.notices[eventID] = asMap
	return eventID, nil
}

func (f *fakeSession) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if roomID == testAuditRoom {
		f.auditBodies = append(f.auditBodies, content.Body)
	} else {
		f.replies = append(f.replies, content.Body)
	}
	return f.newEventID(), nil
}

func (f *fakeSession) LatestEdit(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.notices[eventID]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "not found", StatusCode: 404}
	}
	return content, nil
}

func (f *fakeSession) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messaging.RoomMember(nil), f.members...), nil
}

func (f *fakeSession) RedactEvent(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, reason string) (ref.EventID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redacted = append(f.redacted, eventID)
	return f.newEventID(), nil
}

func (f *fakeSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	return roomID, nil
}

// noticeRoster decodes the current roster from a stored notice.
func (f *fakeSession) noticeRoster(t *testing.T, noticeID ref.EventID) roster.Roster {
	t.Helper()
	f.mu.Lock()
	content, ok := f.notices[noticeID]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no notice %s", noticeID)
	}
	decoded, err := event.DecodeNotice(content)
	if err != nil {
		t.Fatalf("DecodeNotice: %v", err)
	}
	ros, err := roster.Decode(decoded.Fields)
	if err != nil {
		t.Fatalf("roster.Decode: %v", err)
	}
	return ros
}

func newTestService(t *testing.T, session *fakeSession) *Service {
	t.Helper()
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.Fake(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	emitter := auditlog.NewEmitter(session, testAuditRoom, clk, logger)
	reconciler := signup.NewReconciler(session, emitter, signup.Config{
		AcceptMarker:       "accepted",
		DeclineMarker:      "declined",
		BotUserID:          testBotUser,
		AutomationPrefixes: []string{"bot/"},
	}, logger)

	service := &Service{
		session:       session,
		clock:         clk,
		config:        config.Default(),
		botUserID:     testBotUser,
		zone:          berlin,
		reconciler:    reconciler,
		recorder:      event.NopRecorder{},
		checkpointPth: t.TempDir() + "/sync.cbor",
		logger:        logger,
	}
	service.queue = signup.NewQueue(service.processVote)
	return service
}

const addEventCommand = " title: Weekly raid desc: Bring flasks start: 2026-03-02 19:30 duration: 2h 30m"

func TestHandleAddEvent(t *testing.T) {
	session := newFakeSession()
	service := newTestService(t, session)

	service.handleAddEvent(context.Background(), testEventRoom, testAlice, addEventCommand)

	if len(session.replies) != 0 {
		t.Fatalf("unexpected replies: %v", session.replies)
	}
	if len(session.notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(session.notices))
	}

	var noticeID ref.EventID
	for id := range session.notices {
		noticeID = id
	}

	// Registry record stored under the notice's event ID.
	record, err := event.Lookup(context.Background(), session, testEventRoom, noticeID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.Title != "Weekly raid" || record.Type != "raid" {
		t.Errorf("record = %+v", record)
	}
	wantEnd := time.Date(2026, 3, 2, 22, 0, 0, 0, service.zone)
	if !record.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", record.End, wantEnd)
	}
	if record.Creator != testAlice {
		t.Errorf("Creator = %s", record.Creator)
	}

	// Both standing markers attached in order.
	if len(session.reactions) != 2 || session.reactions[0] != "accepted" || session.reactions[1] != "declined" {
		t.Errorf("reactions = %v", session.reactions)
	}

	// Everyone but the bot starts as not set, ordered by display name.
	ros := session.noticeRoster(t, noticeID)
	if len(ros.NotSet) != 2 || ros.NotSet[0] != testAlice || ros.NotSet[1] != testBob {
		t.Errorf("not set = %v", ros.NotSet)
	}
	if len(ros.Accepted) != 0 || len(ros.Declined) != 0 {
		t.Errorf("accepted/declined not empty: %v / %v", ros.Accepted, ros.Declined)
	}
}

func TestHandleAddEventMissingParameters(t *testing.T) {
	session := newFakeSession()
	service := newTestService(t, session)

	service.handleAddEvent(context.Background(), testEventRoom, testAlice, " title: Raid start: 2026-03-02 19:30")

	if len(session.notices) != 0 {
		t.Error("notice created despite missing parameters")
	}
	if len(session.replies) != 1 || session.replies[0] != "Missing parameters: desc, duration" {
		t.Errorf("replies = %v", session.replies)
	}
}

func TestHandleAddEventMissingMarkerEmote(t *testing.T) {
	session := newFakeSession()
	delete(session.emotes, "declined")
	service := newTestService(t, session)

	service.handleAddEvent(context.Background(), testEventRoom, testAlice, addEventCommand)

	if len(session.notices) != 0 {
		t.Error("notice created despite missing marker emote")
	}
	if len(session.replies) != 1 || session.replies[0] != creationFailedMessage {
		t.Errorf("replies = %v", session.replies)
	}
}

func TestHandleAddEventBadStartTime(t *testing.T) {
	session := newFakeSession()
	service := newTestService(t, session)

	service.handleAddEvent(context.Background(), testEventRoom, testAlice, " title: Raid desc: d start: tonight duration: 2h")

	if len(session.notices) != 0 {
		t.Error("notice created despite bad start time")
	}
	if len(session.replies) != 1 || session.replies[0] != creationFailedMessage {
		t.Errorf("replies = %v", session.replies)
	}
}

func TestHandleAddEventExcludesAutomatedAccounts(t *testing.T) {
	session := newFakeSession()
	session.members = append(session.members, messaging.RoomMember{
		UserID:      ref.MustParseUserID("@bot/janitor:muster.chat"),
		DisplayName: "Janitor",
	})
	service := newTestService(t, session)

	service.handleAddEvent(context.Background(), testEventRoom, testAlice, addEventCommand)

	var noticeID ref.EventID
	for id := range session.notices {
		noticeID = id
	}
	ros := session.noticeRoster(t, noticeID)
	for _, user := range ros.NotSet {
		if strings.HasPrefix(user.Localpart(), "bot/") || user == testBotUser {
			t.Errorf("automated account %s in roster", user)
		}
	}
}
