// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for muster's
// notice, reaction, and audit traffic.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client handling login; it holds the homeserver URL and HTTP
// transport, shared across Sessions derived from it. [Session] wraps a
// Client with an access token for authenticated operations: sending
// and editing messages, reading events and their edit relations,
// reactions and redactions, state events, room membership, incremental
// sync with long-polling, and alias resolution.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific error code. Request URLs
// are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters
// (such as user IDs with slashes).
//
// Message edits are first-class because the notice roster lives in a
// mutable message: [NewEditMessage] builds an m.replace edit, and
// Session.LatestEdit resolves a notice event to its most recent
// content.
package messaging
