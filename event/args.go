// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Creation command argument names. Required arguments abort the
// command with a user-visible listing when absent; optional ones
// carry defaults.
var (
	requiredArgs = []string{"title", "desc", "start", "duration"}

	argDefaults = map[string]string{
		"type":  "raid",
		"color": "#0099ff",
	}
)

// argPattern matches an argument name at a word boundary, followed by
// a colon. The value runs to the next argument name or end of input.
var argPattern = regexp.MustCompile(`(?:^|\s)(title|desc|start|duration|type|color|url):`)

// Args is the parsed creation command. Start stays textual here;
// ParseStart turns it into a time.
type Args struct {
	Title       string
	Description string
	Type        string
	Color       string
	URL         string
	Start       string
	Duration    string
}

// MissingParametersError lists required creation arguments absent
// from the command. Its message is shown to the user verbatim.
type MissingParametersError struct {
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return "Missing parameters: " + strings.Join(e.Missing, ", ")
}

// ParseArgs extracts named arguments from the creation command text
// (the message body with the command prefix already stripped).
// Arguments are written "name: value"; a value runs until the next
// recognized argument name. A required argument whose value is empty
// counts as missing.
func ParseArgs(input string) (Args, error) {
	matches := argPattern.FindAllStringSubmatchIndex(input, -1)

	values := make(map[string]string, len(matches))
	for i, match := range matches {
		name := input[match[2]:match[3]]
		valueEnd := len(input)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}
		values[name] = strings.TrimSpace(input[match[1]:valueEnd])
	}

	var missing []string
	for _, name := range requiredArgs {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Args{}, &MissingParametersError{Missing: missing}
	}

	for name, fallback := range argDefaults {
		if values[name] == "" {
			values[name] = fallback
		}
	}

	return Args{
		Title:       values["title"],
		Description: values["desc"],
		Type:        values["type"],
		Color:       values["color"],
		URL:         values["url"],
		Start:       values["start"],
		Duration:    values["duration"],
	}, nil
}

// startLayout is the accepted start time format, interpreted in the
// configured display zone.
const startLayout = "2006-01-02 15:04"

// ParseStart parses the start argument in the display zone.
func ParseStart(value string, zone *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation(startLayout, value, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("event: start time %q is not in the form %q: %w", value, startLayout, err)
	}
	return start, nil
}
