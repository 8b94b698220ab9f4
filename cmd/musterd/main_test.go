// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/muster-project/muster/lib/ref"
	"github.com/muster-project/muster/messaging"
)

// identitySession reports a fixed WhoAmI result.
type identitySession struct {
	messaging.Session

	user ref.UserID
	err  error
}

func (s *identitySession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	return s.user, s.err
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()

	if err := validateSession(ctx, &identitySession{user: testBotUser}, testBotUser); err != nil {
		t.Fatalf("validateSession with matching token: %v", err)
	}
}

func TestValidateSessionRejectsForeignToken(t *testing.T) {
	err := validateSession(context.Background(), &identitySession{user: testAlice}, testBotUser)
	if err == nil {
		t.Fatal("validateSession accepted a token for the wrong account")
	}
	for _, want := range []string{testAlice.String(), testBotUser.String()} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}
}

func TestValidateSessionWrapsWhoAmIFailure(t *testing.T) {
	whoAmIErr := errors.New("homeserver unreachable")
	err := validateSession(context.Background(), &identitySession{err: whoAmIErr}, testBotUser)
	if !errors.Is(err, whoAmIErr) {
		t.Errorf("validateSession error = %v, want wrapped WhoAmI failure", err)
	}
}
