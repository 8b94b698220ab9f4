// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// musterd is the muster attendance bot daemon.
//
// It long-polls the Matrix /sync stream for two kinds of traffic:
// event creation commands (!add-event) and marker reactions on event
// notices. Commands post a new notice with the full roster rendered
// into its fields; reactions are dispatched to the signup reconciler,
// which edits the notice, announces the change in the audit room, and
// clears the marker.
//
// Configuration comes from a YAML file named by MUSTER_CONFIG or
// --config. The only local state is the sync position token,
// checkpointed so a restart resumes where the previous run stopped.
package main
