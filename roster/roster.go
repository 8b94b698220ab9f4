// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package roster encodes and decodes the attendance roster embedded
// in an event notice. The notice is the only place a roster exists;
// there is no database behind it. Encode renders the three status
// buckets as structured notice fields, and DecodeField recovers the
// member list from a field body by extracting one mention token per
// line.
package roster

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/muster-project/muster/lib/ref"
)

// Status is a member's attendance state for one event.
type Status int

const (
	// NotSet means the member has not voted.
	NotSet Status = iota
	// Accepted means the member signed up.
	Accepted
	// Declined means the member declined.
	Declined
)

// String returns the status name as it appears in audit entries.
func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	default:
		return "not set"
	}
}

// emptyBucket is the placeholder body for a bucket with no members.
// Notice fields cannot be empty strings, so the placeholder stands in
// and decodes back to an empty list.
const emptyBucket = "—"

// Roster holds the three attendance buckets for one event. A member
// appears in exactly one bucket.
type Roster struct {
	NotSet   []ref.UserID
	Accepted []ref.UserID
	Declined []ref.UserID
}

// Bucket returns the bucket for the given status.
func (r *Roster) Bucket(s Status) []ref.UserID {
	switch s {
	case Accepted:
		return r.Accepted
	case Declined:
		return r.Declined
	default:
		return r.NotSet
	}
}

// StatusOf returns the bucket the user currently sits in. Declined is
// checked before Accepted so that a corrupt roster listing a user in
// both buckets resolves deterministically.
func (r *Roster) StatusOf(user ref.UserID) Status {
	for _, member := range r.Declined {
		if member == user {
			return Declined
		}
	}
	for _, member := range r.Accepted {
		if member == user {
			return Accepted
		}
	}
	return NotSet
}

// Remove deletes the user from every bucket.
func (r *Roster) Remove(user ref.UserID) {
	r.NotSet = removeUser(r.NotSet, user)
	r.Accepted = removeUser(r.Accepted, user)
	r.Declined = removeUser(r.Declined, user)
}

// Add appends the user to the bucket for the given status, without
// checking other buckets. Callers use Remove first to keep the
// exactly-one-bucket invariant.
func (r *Roster) Add(user ref.UserID, s Status) {
	switch s {
	case Accepted:
		r.Accepted = append(r.Accepted, user)
	case Declined:
		r.Declined = append(r.Declined, user)
	default:
		r.NotSet = append(r.NotSet, user)
	}
}

func removeUser(bucket []ref.UserID, user ref.UserID) []ref.UserID {
	kept := bucket[:0]
	for _, member := range bucket {
		if member != user {
			kept = append(kept, member)
		}
	}
	return kept
}

// Field is one structured field of a notice, in the order and shape
// the notice renderer expects. Fields travel inside the notice's
// message content, so they carry JSON tags.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Bucket labels. Decoding matches on the label prefix because the
// rendered name carries a member count suffix.
const (
	labelNotSet   = "Not set"
	labelAccepted = "Accepted"
	labelDeclined = "Declined"
)

// Encode renders the roster as three notice fields in fixed order:
// not set, accepted, declined. Each field name carries the bucket's
// member count; each body lists one mention token per line, or the
// placeholder when the bucket is empty.
func Encode(r Roster) [3]Field {
	return [3]Field{
		{Name: fmt.Sprintf("%s (%d)", labelNotSet, len(r.NotSet)), Value: encodeBucket(r.NotSet), Inline: true},
		{Name: fmt.Sprintf("%s (%d)", labelAccepted, len(r.Accepted)), Value: encodeBucket(r.Accepted), Inline: true},
		{Name: fmt.Sprintf("%s (%d)", labelDeclined, len(r.Declined)), Value: encodeBucket(r.Declined), Inline: true},
	}
}

func encodeBucket(members []ref.UserID) string {
	if len(members) == 0 {
		return emptyBucket
	}
	lines := make([]string, len(members))
	for i, member := range members {
		lines[i] = Mention(member)
	}
	return strings.Join(lines, "\n")
}

// Mention renders a user as the mention token embedded in roster
// field bodies.
func Mention(user ref.UserID) string {
	return "<" + user.String() + ">"
}

// mentionPattern extracts the user ID from a mention token. Only the
// first token on a line is used.
var mentionPattern = regexp.MustCompile(`<(@[^>\s]+)>`)

// DecodeField recovers the member list from one roster field body.
// Each line contributes at most one member; lines without a valid
// mention token (including the empty-bucket placeholder) contribute
// nothing. Decoding never fails: unrecognized content is skipped, so
// a hand-edited notice degrades to a smaller roster instead of
// blocking votes.
func DecodeField(f Field) []ref.UserID {
	var members []ref.UserID
	for _, line := range strings.Split(f.Value, "\n") {
		match := mentionPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		user, err := ref.ParseUserID(match[1])
		if err != nil {
			continue
		}
		members = append(members, user)
	}
	return members
}

// LocateFields finds the index of each roster field within a notice's
// field list by label prefix. Position independent: the notice also
// carries When, Duration, and spacer fields, and future revisions may
// reorder them. Returns an error naming the first missing bucket.
func LocateFields(fields []Field) (notSet, accepted, declined int, err error) {
	notSet, accepted, declined = -1, -1, -1
	for i, field := range fields {
		switch {
		case strings.HasPrefix(field.Name, labelNotSet):
			notSet = i
		case strings.HasPrefix(field.Name, labelAccepted):
			accepted = i
		case strings.HasPrefix(field.Name, labelDeclined):
			declined = i
		}
	}
	switch {
	case notSet < 0:
		return 0, 0, 0, fmt.Errorf("roster: notice has no %q field", labelNotSet)
	case accepted < 0:
		return 0, 0, 0, fmt.Errorf("roster: notice has no %q field", labelAccepted)
	case declined < 0:
		return 0, 0, 0, fmt.Errorf("roster: notice has no %q field", labelDeclined)
	}
	return notSet, accepted, declined, nil
}

// Decode recovers a full roster from a notice's field list.
func Decode(fields []Field) (Roster, error) {
	notSet, accepted, declined, err := LocateFields(fields)
	if err != nil {
		return Roster{}, err
	}
	return Roster{
		NotSet:   DecodeField(fields[notSet]),
		Accepted: DecodeField(fields[accepted]),
		Declined: DecodeField(fields[declined]),
	}, nil
}
