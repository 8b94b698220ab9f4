// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for muster packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// transaction IDs or message bodies distinguishable in shared rooms.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no muster-internal dependencies.
package testutil
