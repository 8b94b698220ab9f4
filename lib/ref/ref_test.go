// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid simple",
			input: "!abc123:muster.chat",
		},
		{
			name:  "valid with port in server",
			input: "!opaque:localhost:6167",
		},
		{
			name:  "valid long opaque part",
			input: "!YTRkZjEwNjUtNzU4ZC00ZjFk:matrix.example.com",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "empty room ID",
		},
		{
			name:    "missing bang prefix",
			input:   "abc123:muster.chat",
			wantErr: "must start with '!'",
		},
		{
			name:    "wrong prefix sigil",
			input:   "#room:muster.chat",
			wantErr: "must start with '!'",
		},
		{
			name:    "missing colon and server",
			input:   "!abc123",
			wantErr: "missing ':server' suffix",
		},
		{
			name:    "empty local part",
			input:   "!:muster.chat",
			wantErr: "empty local part",
		},
		{
			name:    "empty server name",
			input:   "!abc123:",
			wantErr: "empty server name",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			roomID, err := ParseRoomID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseRoomID(%q) error = %q, want error containing %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q) unexpected error: %v", test.input, err)
			}
			if roomID.String() != test.input {
				t.Errorf("String() = %q, want %q", roomID.String(), test.input)
			}
			if roomID.IsZero() {
				t.Error("IsZero() = true for valid RoomID")
			}
		})
	}
}

func TestRoomIDZeroValue(t *testing.T) {
	var zero RoomID
	if !zero.IsZero() {
		t.Error("zero value: IsZero() = false, want true")
	}
	if zero.String() != "" {
		t.Errorf("zero value: String() = %q, want empty", zero.String())
	}
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantLocalpart string
		wantServer    string
		wantErr       string
	}{
		{
			name:          "valid simple",
			input:         "@alice:muster.chat",
			wantLocalpart: "alice",
			wantServer:    "muster.chat",
		},
		{
			name:          "valid with slash localpart",
			input:         "@bot/muster:muster.chat",
			wantLocalpart: "bot/muster",
			wantServer:    "muster.chat",
		},
		{
			name:          "valid with port in server",
			input:         "@alice:localhost:6167",
			wantLocalpart: "alice",
			wantServer:    "localhost:6167",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "empty user ID",
		},
		{
			name:    "missing at sigil",
			input:   "alice:muster.chat",
			wantErr: `must start with "@"`,
		},
		{
			name:    "missing server",
			input:   "@alice",
			wantErr: "missing ':server' suffix",
		},
		{
			name:    "empty localpart",
			input:   "@:muster.chat",
			wantErr: "empty localpart",
		},
		{
			name:    "empty server name",
			input:   "@alice:",
			wantErr: "empty server name",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			userID, err := ParseUserID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseUserID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseUserID(%q) error = %q, want error containing %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserID(%q) unexpected error: %v", test.input, err)
			}
			if userID.String() != test.input {
				t.Errorf("String() = %q, want %q", userID.String(), test.input)
			}
			if userID.Localpart() != test.wantLocalpart {
				t.Errorf("Localpart() = %q, want %q", userID.Localpart(), test.wantLocalpart)
			}
			if userID.Server() != test.wantServer {
				t.Errorf("Server() = %q, want %q", userID.Server(), test.wantServer)
			}
		})
	}
}

func TestParseRoomAlias(t *testing.T) {
	alias, err := ParseRoomAlias("#attendance-log:muster.chat")
	if err != nil {
		t.Fatalf("ParseRoomAlias: %v", err)
	}
	if alias.String() != "#attendance-log:muster.chat" {
		t.Errorf("String() = %q", alias.String())
	}

	if _, err := ParseRoomAlias("attendance-log:muster.chat"); err == nil {
		t.Error("ParseRoomAlias without sigil succeeded, want error")
	}
	if _, err := ParseRoomAlias("#attendance-log"); err == nil {
		t.Error("ParseRoomAlias without server succeeded, want error")
	}
}

func TestNewRoomAlias(t *testing.T) {
	alias, err := NewRoomAlias("attendance-log", "muster.chat")
	if err != nil {
		t.Fatalf("NewRoomAlias: %v", err)
	}
	if got, want := alias.String(), "#attendance-log:muster.chat"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid opaque",
			input: "$Rqnc-F-dvnEYJTyHq_iKxU2bZ1CI92-kuZq3a5lr5Zg",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "empty event ID",
		},
		{
			name:    "missing dollar sigil",
			input:   "abc123",
			wantErr: "must start with '$'",
		},
		{
			name:    "dollar only",
			input:   "$",
			wantErr: "no content after '$'",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			eventID, err := ParseEventID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseEventID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseEventID(%q) error = %q, want error containing %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEventID(%q) unexpected error: %v", test.input, err)
			}
			if eventID.String() != test.input {
				t.Errorf("String() = %q, want %q", eventID.String(), test.input)
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustParseUserID on invalid input did not panic")
		}
	}()
	MustParseUserID("not-a-user-id")
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Room  RoomID  `json:"room"`
		User  UserID  `json:"user"`
		Event EventID `json:"event"`
	}
	original := payload{
		Room:  MustParseRoomID("!abc:muster.chat"),
		User:  MustParseUserID("@alice:muster.chat"),
		Event: MustParseEventID("$evt123"),
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip: got %+v, want %+v", decoded, original)
	}

	var rejected payload
	err = json.Unmarshal([]byte(`{"user":"alice-without-sigil"}`), &rejected)
	if err == nil {
		t.Error("Unmarshal of invalid user ID succeeded, want error")
	}
}
