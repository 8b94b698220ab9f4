// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/muster-project/muster/duration"
	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
	"github.com/muster-project/muster/roster"
)

// Fixed notice field names preceding the roster fields. The spacer
// separates the schedule row from the roster row; its name and value
// are both the zero-width space.
const (
	fieldWhen     = "When"
	fieldDuration = "Duration"
	fieldSpacer   = "​"

	noticeFooter = "Set your status by reacting with the emojis below"
)

// NoticeContent is the Matrix message content of an event notice. The
// human-readable body and formatted body are renders of Fields, which
// is the machine-read form the reconciler decodes and edits.
type NoticeContent struct {
	MsgType       string               `json:"msgtype"`
	Body          string               `json:"body"`
	Format        string               `json:"format,omitempty"`
	FormattedBody string               `json:"formatted_body,omitempty"`
	Fields        []roster.Field       `json:"io.muster.fields,omitempty"`
	NewContent    *NoticeContent       `json:"m.new_content,omitempty"`
	RelatesTo     *messaging.RelatesTo `json:"m.relates_to,omitempty"`
}

// markdownOnce guards the shared goldmark instance. The configuration
// never changes and the converter is safe to share.
var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
)

func markdownConverter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

// BuildNotice renders the full notice for an event and roster: the
// header (title, capitalized type, description), the When and
// Duration fields, the spacer, and the three roster fields.
func BuildNotice(ev Event, ros roster.Roster, zone *time.Location) (NoticeContent, error) {
	fields := []roster.Field{
		{Name: fieldWhen, Value: duration.FormatWindow(ev.Start, ev.End, zone), Inline: true},
		{Name: fieldDuration, Value: ev.Duration, Inline: true},
		{Name: fieldSpacer, Value: fieldSpacer},
	}
	encoded := roster.Encode(ros)
	fields = append(fields, encoded[:]...)

	return RenderNotice(ev, fields)
}

// RenderNotice renders notice content from an event header and an
// explicit field slice. Reconciliation uses this after swapping the
// roster fields in place, keeping every other field untouched.
func RenderNotice(ev Event, fields []roster.Field) (NoticeContent, error) {
	formatted, err := renderHTML(ev, fields)
	if err != nil {
		return NoticeContent{}, err
	}

	return NoticeContent{
		MsgType:       "m.text",
		Body:          renderBody(ev, fields),
		Format:        "org.matrix.custom.html",
		FormattedBody: formatted,
		Fields:        fields,
	}, nil
}

// EditNotice wraps replacement content as an m.replace edit of the
// given notice. The fallback body carries the conventional "* "
// prefix; the full replacement travels in m.new_content.
func EditNotice(noticeID ref.EventID, content NoticeContent) NoticeContent {
	replacement := content
	return NoticeContent{
		MsgType:       content.MsgType,
		Body:          "* " + content.Body,
		Format:        content.Format,
		FormattedBody: content.FormattedBody,
		NewContent:    &replacement,
		RelatesTo: &messaging.RelatesTo{
			RelType: messaging.RelReplace,
			EventID: noticeID,
		},
	}
}

// DecodeNotice parses raw message content (as returned by the sync
// stream or LatestEdit) into NoticeContent. Content without roster
// fields is not an event notice.
func DecodeNotice(content map[string]any) (NoticeContent, error) {
	encoded, err := json.Marshal(content)
	if err != nil {
		return NoticeContent{}, fmt.Errorf("event: re-encoding notice content: %w", err)
	}
	var notice NoticeContent
	if err := json.Unmarshal(encoded, &notice); err != nil {
		return NoticeContent{}, fmt.Errorf("event: parsing notice content: %w", err)
	}
	if len(notice.Fields) == 0 {
		return NoticeContent{}, fmt.Errorf("event: content has no roster fields")
	}
	return notice, nil
}

func renderBody(ev Event, fields []roster.Field) string {
	var b strings.Builder
	b.WriteString(ev.Title)
	b.WriteString("\n")
	b.WriteString(capitalize(ev.Type))
	b.WriteString("\n\n")
	b.WriteString(ev.Description)
	b.WriteString("\n")
	for _, field := range fields {
		if field.Name == fieldSpacer {
			continue
		}
		b.WriteString("\n")
		b.WriteString(field.Name)
		b.WriteString("\n")
		b.WriteString(field.Value)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(noticeFooter)
	return b.String()
}

func renderHTML(ev Event, fields []roster.Field) (string, error) {
	var b strings.Builder

	title := html.EscapeString(ev.Title)
	if ev.URL != "" {
		fmt.Fprintf(&b, `<h3><a href=%q>%s</a></h3>`, ev.URL, title)
	} else {
		fmt.Fprintf(&b, "<h3>%s</h3>", title)
	}
	fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(capitalize(ev.Type)))

	var description bytes.Buffer
	if err := markdownConverter().Convert([]byte(ev.Description), &description); err != nil {
		return "", fmt.Errorf("event: rendering description: %w", err)
	}
	b.Write(description.Bytes())

	for _, field := range fields {
		if field.Name == fieldSpacer {
			continue
		}
		value := strings.ReplaceAll(html.EscapeString(field.Value), "\n", "<br>")
		fmt.Fprintf(&b, "<p><strong>%s</strong><br>%s</p>", html.EscapeString(field.Name), value)
	}

	fmt.Fprintf(&b, "<p><em>%s</em></p>", noticeFooter)
	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ValidateMarkers checks that both standing marker shortcodes exist
// in the room's published emote set. Creation is refused without
// them; a missing marker is a deployment misconfiguration, not a
// transient condition.
func ValidateMarkers(ctx context.Context, session messaging.Session, roomID ref.RoomID, accept, decline string) error {
	emotes, err := messaging.GetState[messaging.RoomEmotesContent](ctx, session, roomID, messaging.EventTypeRoomEmotes, "")
	if err != nil {
		return fmt.Errorf("event: reading room emotes: %w", err)
	}

	var missing []string
	for _, shortcode := range []string{accept, decline} {
		if _, ok := emotes.Images[shortcode]; !ok {
			missing = append(missing, shortcode)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("event: marker emotes %s not published in room %s", strings.Join(missing, ", "), roomID)
	}
	return nil
}
