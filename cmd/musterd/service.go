// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/muster-project/muster/event"
	"github.com/muster-project/muster/lib/clock"
	"github.com/muster-project/muster/lib/config"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/signup"
)

// Service is the daemon's core state. One instance handles every
// room the bot is joined to.
type Service struct {
	session   messaging.Session
	clock     clock.Clock
	config    *config.Config
	botUserID ref.UserID
	zone      *time.Location

	reconciler *signup.Reconciler
	queue      *signup.Queue
	recorder   event.Recorder

	checkpointPth string

	logger *slog.Logger
}

// handleSync routes one /sync batch: accept invites, then scan every
// joined room's timeline for commands and marker reactions. Each
// entry point fails soft; a bad event is logged and the batch
// continues.
func (s *Service) handleSync(ctx context.Context, response *messaging.SyncResponse) {
	s.acceptInvites(ctx, response.Rooms.Invite)

	for roomID, room := range response.Rooms.Join {
		for _, timelineEvent := range room.Timeline.Events {
			switch timelineEvent.Type {
			case messaging.EventTypeReaction:
				s.handleReaction(roomID, timelineEvent)
			case messaging.EventTypeMessage:
				s.handleMessage(ctx, roomID, timelineEvent)
			}
		}
	}
}

func (s *Service) acceptInvites(ctx context.Context, invites map[ref.RoomID]messaging.InvitedRoom) {
	for roomID := range invites {
		s.logger.Info("accepting room invite", "room_id", roomID)
		if _, err := s.session.JoinRoom(ctx, roomID); err != nil {
			s.logger.Error("failed to accept room invite",
				"room_id", roomID,
				"error", err,
			)
		}
	}
}

// handleReaction submits a vote for its notice's worker. Only attach
// events arrive here; the bot's own standing markers are skipped so
// posting them never triggers reconciliation.
func (s *Service) handleReaction(roomID ref.RoomID, timelineEvent messaging.Event) {
	if timelineEvent.Sender == s.botUserID {
		return
	}

	reaction, err := messaging.ParseContent[messaging.ReactionContent](timelineEvent)
	if err != nil {
		s.logger.Warn("unparsable reaction",
			"room_id", roomID,
			"event_id", timelineEvent.EventID,
			"error", err,
		)
		return
	}
	if reaction.RelatesTo.RelType != messaging.RelAnnotation || reaction.RelatesTo.EventID.IsZero() {
		return
	}
	if _, ok := s.reconciler.StatusForMarker(reaction.RelatesTo.Key); !ok {
		return
	}

	s.queue.Submit(context.WithoutCancel(context.Background()), signup.Vote{
		User:       timelineEvent.Sender,
		Key:        reaction.RelatesTo.Key,
		RoomID:     roomID,
		NoticeID:   reaction.RelatesTo.EventID,
		ReactionID: timelineEvent.EventID,
	})
}

// processVote is the queue's processor: one reconciliation per vote,
// errors logged and never propagated.
func (s *Service) processVote(ctx context.Context, vote signup.Vote) {
	err := s.reconciler.Reconcile(ctx, vote)
	switch {
	case err == nil:
	case errors.Is(err, signup.ErrNotRegistered):
		s.logger.Debug("reaction to non-event message",
			"room_id", vote.RoomID,
			"target", vote.NoticeID,
		)
	default:
		s.logger.Error("reconciliation failed",
			"room_id", vote.RoomID,
			"notice_id", vote.NoticeID,
			"user_id", vote.User,
			"error", err,
		)
	}
}

// handleMessage dispatches creation commands.
func (s *Service) handleMessage(ctx context.Context, roomID ref.RoomID, timelineEvent messaging.Event) {
	if timelineEvent.Sender == s.botUserID {
		return
	}

	content, err := messaging.ParseContent[messaging.MessageContent](timelineEvent)
	if err != nil {
		return
	}
	prefix := s.config.Events.CommandPrefix
	if content.Body != prefix && !strings.HasPrefix(content.Body, prefix+" ") {
		return
	}

	s.handleAddEvent(ctx, roomID, timelineEvent.Sender, strings.TrimPrefix(content.Body, prefix))
}
