// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package signup turns marker-attach votes into roster updates.
//
// The notice is the sole store for the accepted and declined buckets.
// Every reconciliation re-reads the notice's current content before
// computing the new state; nothing is cached across votes. The
// not-set bucket is never stored, only recomputed from live room
// membership.
//
// Reconciliations for the same notice are serialized by Queue so two
// overlapping votes cannot compute from the same stale baseline and
// silently drop one update.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/muster-project/muster/auditlog"
	"github.com/muster-project/muster/event"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

// ErrNotRegistered marks a vote against a message with no event
// registry record. Reactions to ordinary messages land here; the
// caller logs and moves on.
var ErrNotRegistered = errors.New("signup: message has no event record")

// Vote is one marker-attach action: who voted, with which marker, on
// which notice. ReactionID identifies the reaction event itself so it
// can be cleared after processing.
type Vote struct {
	User       ref.UserID
	Key        string
	RoomID     ref.RoomID
	NoticeID   ref.EventID
	ReactionID ref.EventID
}

// Config carries the deployment knobs the reconciler needs.
type Config struct {
	// AcceptMarker and DeclineMarker are the two standing reaction
	// shortcodes.
	AcceptMarker  string
	DeclineMarker string
	// BotUserID is excluded from the not-set bucket, as are members
	// whose localpart starts with any AutomationPrefixes entry.
	BotUserID          ref.UserID
	AutomationPrefixes []string
}

// Reconciler applies votes to event notices.
type Reconciler struct {
	session messaging.Session
	emitter *auditlog.Emitter
	config  Config
	logger  *slog.Logger
}

func NewReconciler(session messaging.Session, emitter *auditlog.Emitter, config Config, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		session: session,
		emitter: emitter,
		config:  config,
		logger:  logger,
	}
}

// StatusForMarker maps a reaction key to the status it votes for.
// Reports false for keys that are not standing markers.
func (r *Reconciler) StatusForMarker(key string) (roster.Status, bool) {
	switch key {
	case r.config.AcceptMarker:
		return roster.Accepted, true
	case r.config.DeclineMarker:
		return roster.Declined, true
	default:
		return roster.NotSet, false
	}
}

// Reconcile processes one vote to completion. The roster edit commits
// before the audit entry and marker clear; failures in those trailing
// steps are logged and never roll the edit back.
func (r *Reconciler) Reconcile(ctx context.Context, vote Vote) error {
	newStatus, ok := r.StatusForMarker(vote.Key)
	if !ok {
		return nil
	}

	record, err := event.Lookup(ctx, r.session, vote.RoomID, vote.NoticeID)
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return fmt.Errorf("%w: %s", ErrNotRegistered, vote.NoticeID)
		}
		return fmt.Errorf("signup: reading event record: %w", err)
	}

	content, err := r.session.LatestEdit(ctx, vote.RoomID, vote.NoticeID)
	if err != nil {
		return fmt.Errorf("signup: reading notice %s: %w", vote.NoticeID, err)
	}
	notice, err := event.DecodeNotice(content)
	if err != nil {
		return fmt.Errorf("signup: notice %s: %w", vote.NoticeID, err)
	}
	notSetAt, acceptedAt, declinedAt, err := roster.LocateFields(notice.Fields)
	if err != nil {
		return fmt.Errorf("signup: notice %s: %w", vote.NoticeID, err)
	}
	ros, err := roster.Decode(notice.Fields)
	if err != nil {
		return fmt.Errorf("signup: notice %s: %w", vote.NoticeID, err)
	}

	oldStatus := ros.StatusOf(vote.User)
	ros.Remove(vote.User)
	ros.Add(vote.User, newStatus)

	if newStatus == oldStatus {
		// Re-asserting the current status changes nothing and emits
		// no audit entry, but the marker still gets cleared.
		r.clearMarker(ctx, vote)
		return nil
	}

	members, err := r.session.GetRoomMembers(ctx, vote.RoomID)
	if err != nil {
		return fmt.Errorf("signup: listing members of %s: %w", vote.RoomID, err)
	}
	r.refreshMembership(&ros, members)

	encoded := roster.Encode(ros)
	fields := make([]roster.Field, len(notice.Fields))
	copy(fields, notice.Fields)
	fields[notSetAt] = encoded[0]
	fields[acceptedAt] = encoded[1]
	fields[declinedAt] = encoded[2]

	replacement, err := event.RenderNotice(record.Event(), fields)
	if err != nil {
		return fmt.Errorf("signup: rendering notice %s: %w", vote.NoticeID, err)
	}
	edit := event.EditNotice(vote.NoticeID, replacement)
	if _, err := r.session.SendEvent(ctx, vote.RoomID, messaging.EventTypeMessage, edit); err != nil {
		return fmt.Errorf("signup: editing notice %s: %w", vote.NoticeID, err)
	}

	entry := r.emitter.Build(vote.User, oldStatus, newStatus, auditlog.NoticeLink(vote.RoomID, vote.NoticeID))
	if err := r.emitter.Post(ctx, entry); err != nil {
		r.logger.Error("audit entry failed",
			"notice_id", vote.NoticeID,
			"user_id", vote.User,
			"error", err)
	}

	r.clearMarker(ctx, vote)
	return nil
}

// refreshMembership recomputes the not-set bucket from live room
// membership and purges voters who have left the room. Members are
// ordered by display name, falling back to the localpart.
func (r *Reconciler) refreshMembership(ros *roster.Roster, members []messaging.RoomMember) {
	present := make(map[ref.UserID]bool, len(members))
	voted := make(map[ref.UserID]bool, len(ros.Accepted)+len(ros.Declined))

	for _, member := range members {
		if r.isAutomated(member.UserID) {
			continue
		}
		present[member.UserID] = true
	}

	keepPresent := func(bucket []ref.UserID) []ref.UserID {
		kept := bucket[:0]
		for _, user := range bucket {
			if present[user] {
				kept = append(kept, user)
				voted[user] = true
			}
		}
		return kept
	}
	ros.Accepted = keepPresent(ros.Accepted)
	ros.Declined = keepPresent(ros.Declined)

	names := make(map[ref.UserID]string, len(members))
	ros.NotSet = ros.NotSet[:0]
	for _, member := range members {
		if !present[member.UserID] || voted[member.UserID] {
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
}

func (r *Reconciler) isAutomated(user ref.UserID) bool {
	if user == r.config.BotUserID {
		return true
	}
	for _, prefix := range r.config.AutomationPrefixes {
		if strings.HasPrefix(user.Localpart(), prefix) {
			return true
		}
	}
	return false
}

// clearMarker redacts the member's reaction so the standing marker is
// ready for the next voter. Best-effort: the roster edit stands
// whether or not this succeeds.
func (r *Reconciler) clearMarker(ctx context.Context, vote Vote) {
	if _, err := r.session.RedactEvent(ctx, vote.RoomID, vote.ReactionID, "processed"); err != nil {
		r.logger.Warn("failed to clear vote marker",
			"notice_id", vote.NoticeID,
			"reaction_id", vote.ReactionID,
			"user_id", vote.User,
			"error", err)
	}
}
