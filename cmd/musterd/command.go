// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"sort"

	"github.com/muster-project/muster/duration"
	"github.com/muster-project/muster/event"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

// creationFailedMessage is the only creation error text end users
// see, besides the missing-parameter listing. Details go to the log.
const creationFailedMessage = "Could not create new event"

// handleAddEvent runs the !add-event command: validate, post the
// notice, register the event, attach the standing markers. Fails soft
// with a user-visible message; nothing is created on a validation
// error.
func (s *Service) handleAddEvent(ctx context.Context, roomID ref.RoomID, sender ref.UserID, input string) {
	args, err := event.ParseArgs(input)
	if err != nil {
		var missingErr *event.MissingParametersError
		if errors.As(err, &missingErr) {
			s.reply(ctx, roomID, missingErr.Error())
			return
		}
		s.creationFailed(ctx, roomID, "parsing command", err)
		return
	}

	start, err := event.ParseStart(args.Start, s.zone)
	if err != nil {
		s.creationFailed(ctx, roomID, "parsing start time", err)
		return
	}
	terms, err := duration.Parse(args.Duration)
	if err != nil {
		s.creationFailed(ctx, roomID, "parsing duration", err)
		return
	}

	ev := event.Event{
		Title:       args.Title,
		Description: args.Description,
		Type:        args.Type,
		Color:       args.Color,
		URL:         args.URL,
		Start:       start,
		End:         duration.End(start, terms),
		Duration:    args.Duration,
		Creator:     sender,
	}

	// Both standing markers must exist before anything is posted. A
	// missing marker is a deployment problem, not the user's.
	if err := event.ValidateMarkers(ctx, s.session, roomID, s.config.Events.Markers.Accepted, s.config.Events.Markers.Declined); err != nil {
		s.creationFailed(ctx, roomID, "validating markers", err)
		return
	}

	ros, err := s.initialRoster(ctx, roomID)
	if err != nil {
		s.creationFailed(ctx, roomID, "listing members", err)
		return
	}

	notice, err := event.BuildNotice(ev, ros, s.zone)
	if err != nil {
		s.creationFailed(ctx, roomID, "rendering notice", err)
		return
	}
	noticeID, err := s.session.SendEvent(ctx, roomID, messaging.EventTypeMessage, notice)
	if err != nil {
		s.creationFailed(ctx, roomID, "posting notice", err)
		return
	}

	if err := event.Register(ctx, s.session, roomID, noticeID, ev); err != nil {
		// The notice exists but votes cannot be routed to it. Surface
		// the failure rather than leave a dead notice standing.
		s.creationFailed(ctx, roomID, "registering event", err)
		return
	}
	if err := s.recorder.RecordEvent(ctx, ev, noticeID); err != nil {
		s.logger.Warn("event recorder failed", "notice_id", noticeID, "error", err)
	}

	s.attachMarkers(ctx, roomID, noticeID)

	s.logger.Info("event created",
		"room_id", roomID,
		"notice_id", noticeID,
		"title", ev.Title,
		"creator", sender,
	)
}

// initialRoster builds the creation-time roster: everyone currently
// in the room except automated accounts, all not set, ordered by
// display name.
func (s *Service) initialRoster(ctx context.Context, roomID ref.RoomID) (roster.Roster, error) {
	members, err := s.session.GetRoomMembers(ctx, roomID)
	if err != nil {
		return roster.Roster{}, err
	}

	names := make(map[ref.UserID]string, len(members))
	var ros roster.Roster
	for _, member := range members {
		if s.isAutomated(member.UserID) {
			continue
		}
		ros.NotSet = append(ros.NotSet, member.UserID)
		name := member.DisplayName
		if name == "" {
			name = member.UserID.Localpart()
		}
		names[member.UserID] = name
	}
	sort.Slice(ros.NotSet, func(i, j int) bool {
		return names[ros.NotSet[i]] < names[ros.NotSet[j]]
	})
	return ros, nil
}

func (s *Service) isAutomated(user ref.UserID) bool {
	if user == s.botUserID {
		return true
	}
	for _, prefix := range s.config.Automation.LocalpartPrefixes {
		if len(user.Localpart()) >= len(prefix) && user.Localpart()[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// attachMarkers posts the bot's own accept and decline reactions so
// members have buttons to press. Failure leaves a working but
// buttonless notice; members can still react by hand, so this only
// logs.
func (s *Service) attachMarkers(ctx context.Context, roomID ref.RoomID, noticeID ref.EventID) {
	for _, key := range []string{s.config.Events.Markers.Accepted, s.config.Events.Markers.Declined} {
		if _, err := s.session.SendEvent(ctx, roomID, messaging.EventTypeReaction, messaging.NewReaction(noticeID, key)); err != nil {
			s.logger.Error("failed to attach standing marker",
				"notice_id", noticeID,
				"marker", key,
				"error", err,
			)
		}
	}
}

func (s *Service) creationFailed(ctx context.Context, roomID ref.RoomID, step string, err error) {
	s.logger.Error("event creation failed", "room_id", roomID, "step", step, "error", err)
	s.reply(ctx, roomID, creationFailedMessage)
}

func (s *Service) reply(ctx context.Context, roomID ref.RoomID, text string) {
	if _, err := s.session.SendMessage(ctx, roomID, messaging.NewTextMessage(text)); err != nil {
		s.logger.Error("failed to send reply", "room_id", roomID, "error", err)
	}
}
