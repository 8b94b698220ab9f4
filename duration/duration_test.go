// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package duration

import (
	"reflect"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []Term
		wantErr bool
	}{
		{
			name: "hours and minutes",
			spec: "1h 30m",
			want: []Term{{Count: 1, Unit: Hours}, {Count: 30, Unit: Minutes}},
		},
		{
			name: "single term",
			spec: "2h",
			want: []Term{{Count: 2, Unit: Hours}},
		},
		{
			name: "unknown unit dropped silently",
			spec: "2h 30min",
			want: []Term{{Count: 2, Unit: Hours}},
		},
		{
			name: "uppercase unit dropped",
			spec: "2H",
			want: []Term{},
		},
		{
			name: "bare number dropped",
			spec: "90",
			want: []Term{},
		},
		{
			name: "empty spec",
			spec: "",
			want: []Term{},
		},
		{
			name: "whitespace only",
			spec: "   ",
			want: []Term{},
		},
		{
			name: "repeated units accumulate in order",
			spec: "1h 1h 15m",
			want: []Term{{Count: 1, Unit: Hours}, {Count: 1, Unit: Hours}, {Count: 15, Unit: Minutes}},
		},
		{
			name:    "non-numeric prefix",
			spec:    "h2",
			wantErr: true,
		},
		{
			name:    "word token",
			spec:    "1h soon",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.spec)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded with %v, want error", test.spec, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", test.spec, err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Parse(%q) = %v, want %v", test.spec, got, test.want)
			}
		})
	}
}

func TestEnd(t *testing.T) {
	start := time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		terms []Term
		want  time.Time
	}{
		{
			name:  "empty terms return start",
			terms: nil,
			want:  start,
		},
		{
			name:  "hours and minutes accumulate",
			terms: []Term{{Count: 1, Unit: Hours}, {Count: 30, Unit: Minutes}},
			want:  start.Add(90 * time.Minute),
		},
		{
			name:  "order-independent total",
			terms: []Term{{Count: 30, Unit: Minutes}, {Count: 1, Unit: Hours}},
			want:  start.Add(90 * time.Minute),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := End(start, test.terms); !got.Equal(test.want) {
				t.Errorf("End = %v, want %v", got, test.want)
			}
		})
	}
}

func TestEndIsPure(t *testing.T) {
	start := time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC)
	terms := []Term{{Count: 2, Unit: Hours}}
	first := End(start, terms)
	second := End(start, terms)
	if !first.Equal(second) {
		t.Errorf("End not deterministic: %v vs %v", first, second)
	}
	if !start.Equal(time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC)) {
		t.Error("End mutated its start argument")
	}
}

func TestFormatWindow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// 18:30 UTC on a Monday is 19:30 in Berlin (CET, winter).
	start := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	got := FormatWindow(start, end, berlin)
	want := "Monday 02/03 from 19:30 to 21:00 server time"
	if got != want {
		t.Errorf("FormatWindow = %q, want %q", got, want)
	}
}

func TestFormatWindowCrossesMidnight(t *testing.T) {
	got := FormatWindow(
		time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC),
		time.UTC)
	want := "Monday 02/03 from 23:30 to 01:00 server time"
	if got != want {
		t.Errorf("FormatWindow = %q, want %q", got, want)
	}
}
