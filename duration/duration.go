// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package duration parses the human-entered duration specs attached
// to event creation commands and computes the resulting event window.
//
// The grammar is deliberately forgiving: a spec is whitespace-split
// into tokens, each token is leading decimal digits followed by a
// unit suffix, and only the suffixes "h" and "m" (case-sensitive)
// are recognized. Tokens with an unrecognized suffix are silently
// dropped rather than rejected, so "2h 30min" contributes two hours
// and nothing else. A token that does not start with digits is a
// parse error.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is a recognized duration unit.
type Unit int

const (
	// Hours is the "h" suffix.
	Hours Unit = iota
	// Minutes is the "m" suffix.
	Minutes
)

// String returns the unit's suffix.
func (u Unit) String() string {
	if u == Hours {
		return "h"
	}
	return "m"
}

// Term is one parsed component of a duration spec, such as 2 hours.
type Term struct {
	Count int
	Unit  Unit
}

// Duration returns the term's length as a time.Duration.
func (t Term) Duration() time.Duration {
	if t.Unit == Hours {
		return time.Duration(t.Count) * time.Hour
	}
	return time.Duration(t.Count) * time.Minute
}

// Parse splits spec on whitespace and converts each token into a
// Term. Tokens whose suffix is not exactly "h" or "m" are dropped
// without error; a token with no leading digits fails the whole
// parse. An empty or all-whitespace spec yields an empty term list.
func Parse(spec string) ([]Term, error) {
	tokens := strings.Fields(spec)
	terms := make([]Term, 0, len(tokens))

	for _, token := range tokens {
		digitsEnd := 0
		for digitsEnd < len(token) && token[digitsEnd] >= '0' && token[digitsEnd] <= '9' {
			digitsEnd++
		}
		if digitsEnd == 0 {
			return nil, fmt.Errorf("duration: token %q does not start with a number", token)
		}

		count, err := strconv.Atoi(token[:digitsEnd])
		if err != nil {
			return nil, fmt.Errorf("duration: token %q: %w", token, err)
		}

		switch token[digitsEnd:] {
		case "h":
			terms = append(terms, Term{Count: count, Unit: Hours})
		case "m":
			terms = append(terms, Term{Count: count, Unit: Minutes})
		default:
			// Unrecognized unit, token ignored.
		}
	}

	return terms, nil
}

// End applies terms cumulatively to start, in order, and returns the
// resulting end time. An empty term list returns start unchanged.
func End(start time.Time, terms []Term) time.Time {
	end := start
	for _, term := range terms {
		end = end.Add(term.Duration())
	}
	return end
}

// FormatWindow renders an event window for display in a notice:
//
//	"Monday 02/03 from 19:30 to 21:00 server time"
//
// Both times are converted into zone before formatting.
func FormatWindow(start, end time.Time, zone *time.Location) string {
	localStart := start.In(zone)
	localEnd := end.In(zone)
	return fmt.Sprintf("%s from %s to %s server time",
		localStart.Format("Monday 02/01"),
		localStart.Format("15:04"),
		localEnd.Format("15:04"))
}
